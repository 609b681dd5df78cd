// Package sessions provides a PostgreSQL-backed repository for device
// sessions used by the refresh flow.
package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/photoforge/internal/common"
	"github.com/dmitrijs2005/photoforge/internal/dbx"
	"github.com/dmitrijs2005/photoforge/internal/server/models"
)

// PostgresRepository implements session storage over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, client, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, id) DO UPDATE SET client = EXCLUDED.client, expires_at = EXCLUDED.expires_at
	`
	if _, err := r.db.ExecContext(ctx, query, s.ID, s.UserID, s.Client, s.ExpiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	query := `
		SELECT id, user_id, client, expires_at, created_at
		FROM sessions
		WHERE user_id = $1 AND id = $2
	`
	s := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, userID, sessionID).Scan(&s.ID, &s.UserID, &s.Client, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, sessionID string) error {
	query := `
		DELETE FROM sessions
		WHERE user_id = $1 AND id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, userID, sessionID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
