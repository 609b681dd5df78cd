package jobs

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

type table struct {
	name    string
	subject string
}

// Table and column names are never taken from input, only from this map.
var tables = map[models.JobKind]table{
	models.JobTraining: {name: "trainings", subject: "model_id"},
	models.JobPhoto:    {name: "photo_predictions", subject: "model_id"},
	models.JobVideo:    {name: "video_predictions", subject: "photo_id"},
}

func tableFor(kind models.JobKind) (table, error) {
	t, ok := tables[kind]
	if !ok {
		return table{}, fmt.Errorf("unknown job kind %q", kind)
	}
	return t, nil
}

func (t table) columns() string {
	return "id, user_id, " + t.subject + ", request_id, status, credits, input, error_detail, created_at, updated_at"
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, job *models.Job) error {
	t, err := tableFor(job.Kind)
	if err != nil {
		return err
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.JobPending
	}
	input := []byte(job.Input)
	if len(input) == 0 {
		input = []byte("{}")
	}

	query := `
		INSERT INTO ` + t.name + ` (id, user_id, ` + t.subject + `, request_id, status, credits, input)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query, job.ID, job.UserID, job.SubjectID, job.RequestID, string(job.Status), job.Credits, input).
		Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByRequestID(ctx context.Context, kind models.JobKind, requestID string) (*models.Job, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + t.columns() + ` FROM ` + t.name + ` WHERE request_id = $1`
	return scanJob(kind, r.db.QueryRowContext(ctx, query, requestID))
}

func (r *PostgresRepository) GetForUser(ctx context.Context, kind models.JobKind, id, userID string) (*models.Job, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + t.columns() + ` FROM ` + t.name + ` WHERE id = $1 AND user_id = $2`
	return scanJob(kind, r.db.QueryRowContext(ctx, query, id, userID))
}

func (r *PostgresRepository) Complete(ctx context.Context, kind models.JobKind, requestID string, status models.JobStatus, errorDetail string) (*models.Job, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("status %q is not terminal", status)
	}
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := `
		UPDATE ` + t.name + `
		SET status = $1, error_detail = $2, updated_at = CURRENT_TIMESTAMP
		WHERE request_id = $3 AND status = 'PENDING'
		RETURNING ` + t.columns()
	return scanJob(kind, r.db.QueryRowContext(ctx, query, string(status), errorDetail, requestID))
}

func (r *PostgresRepository) List(ctx context.Context, kind models.JobKind, limit, offset int) ([]*models.Job, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + t.columns() + ` FROM ` + t.name + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Job
	for rows.Next() {
		job, err := scanJob(kind, rows)
		if err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(kind models.JobKind, s scanner) (*models.Job, error) {
	job := &models.Job{Kind: kind}
	var status string
	var input []byte
	err := s.Scan(&job.ID, &job.UserID, &job.SubjectID, &job.RequestID, &status, &job.Credits, &input, &job.ErrorDetail, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	job.Status = models.JobStatus(status)
	job.Input = input
	return job, nil
}
