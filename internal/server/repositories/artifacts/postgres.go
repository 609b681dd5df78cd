package artifacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/photoforge/internal/common"
	"github.com/dmitrijs2005/photoforge/internal/dbx"
	"github.com/dmitrijs2005/photoforge/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreatePhoto(ctx context.Context, p *models.Photo) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	query := `
		INSERT INTO photos (id, user_id, model_id, prediction_id, url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, p.ID, p.UserID, p.ModelID, p.JobID, p.URL).Scan(&p.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err, "photos_prediction_url_key") {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateVideo(ctx context.Context, v *models.Video) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}

	query := `
		INSERT INTO videos (id, user_id, photo_id, prediction_id, url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, v.ID, v.UserID, v.PhotoID, v.JobID, v.URL).Scan(&v.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err, "videos_prediction_url_key") {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetPhotoForUser(ctx context.Context, id, userID string) (*models.Photo, error) {
	query := `
		SELECT id, user_id, model_id, prediction_id, url, created_at
		FROM photos
		WHERE id = $1 AND user_id = $2
	`
	p := &models.Photo{}
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&p.ID, &p.UserID, &p.ModelID, &p.JobID, &p.URL, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) PhotosByJob(ctx context.Context, jobID string) ([]*models.Photo, error) {
	query := `
		SELECT id, user_id, model_id, prediction_id, url, created_at
		FROM photos
		WHERE prediction_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Photo
	for rows.Next() {
		p := &models.Photo{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.ModelID, &p.JobID, &p.URL, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) VideosByJob(ctx context.Context, jobID string) ([]*models.Video, error) {
	query := `
		SELECT id, user_id, photo_id, prediction_id, url, created_at
		FROM videos
		WHERE prediction_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Video
	for rows.Next() {
		v := &models.Video{}
		if err := rows.Scan(&v.ID, &v.UserID, &v.PhotoID, &v.JobID, &v.URL, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
