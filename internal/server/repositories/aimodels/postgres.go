package aimodels

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

const modelColumns = "id, user_id, name, trigger_word, images_key, lora_weights, status, created_at, updated_at"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.AIModel) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = models.AIModelCreated
	}

	query := `
		INSERT INTO ai_models (id, user_id, name, trigger_word, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, m.ID, m.UserID, m.Name, m.TriggerWord, string(m.Status)).
		Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetForUser(ctx context.Context, id, userID string) (*models.AIModel, error) {
	query := `
		SELECT ` + modelColumns + `
		FROM ai_models
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`
	m, err := scanModel(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.AIModel, error) {
	query := `
		SELECT ` + modelColumns + `
		FROM ai_models
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, userID)
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*models.AIModel, error) {
	query := `
		SELECT ` + modelColumns + `
		FROM ai_models
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.list(ctx, query, limit, offset)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.AIModel, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.AIModel
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) SetImagesKey(ctx context.Context, id, userID, key string) error {
	query := `
		UPDATE ai_models SET images_key = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND user_id = $3 AND deleted_at IS NULL
	`
	return r.exec(ctx, query, key, id, userID)
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id string, status models.AIModelStatus) error {
	query := `
		UPDATE ai_models SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND deleted_at IS NULL
	`
	return r.exec(ctx, query, string(status), id)
}

// ClaimForTraining moves a model that has images and no weights into
// training. Of concurrent callers exactly one succeeds; the others, and any
// model that is not trainable, get common.ErrorNotFound.
func (r *PostgresRepository) ClaimForTraining(ctx context.Context, id, userID string) error {
	query := `
		UPDATE ai_models SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND user_id = $3 AND deleted_at IS NULL
		  AND status <> $1 AND images_key IS NOT NULL AND lora_weights IS NULL
	`
	return r.exec(ctx, query, string(models.AIModelTraining), id, userID)
}

func (r *PostgresRepository) SetWeights(ctx context.Context, id, weights string) error {
	query := `
		UPDATE ai_models SET lora_weights = $1, status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3 AND deleted_at IS NULL
	`
	return r.exec(ctx, query, weights, string(models.AIModelTrained), id)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanModel(s scanner) (*models.AIModel, error) {
	m := &models.AIModel{}
	var status string
	var images, weights sql.NullString
	if err := s.Scan(&m.ID, &m.UserID, &m.Name, &m.TriggerWord, &images, &weights, &status, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Status = models.AIModelStatus(status)
	if images.Valid {
		m.ImagesKey = &images.String
	}
	if weights.Valid {
		m.LoraWeights = &weights.String
	}
	return m, nil
}
