// Package sessions declares the repository contract for per-device sessions
// referenced by refresh tokens.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/photoforge/internal/server/models"
)

type Repository interface {
	// Upsert creates the (user, session) record or extends its expiry.
	Upsert(ctx context.Context, s *models.Session) error

	// Find returns common.ErrorNotFound when the session is absent.
	Find(ctx context.Context, userID, sessionID string) (*models.Session, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, userID, sessionID string) error
}
