// Package aimodels stores users' personal models. Deleted models are kept
// with deleted_at set and are invisible to every read path.
package aimodels

import (
	"context"

	"github.com/dmitrijs2005/photoforge/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.AIModel) error
	GetForUser(ctx context.Context, id, userID string) (*models.AIModel, error)
	ListByUser(ctx context.Context, userID string) ([]*models.AIModel, error)
	List(ctx context.Context, limit, offset int) ([]*models.AIModel, error)
	SetImagesKey(ctx context.Context, id, userID, key string) error
	SetStatus(ctx context.Context, id string, status models.AIModelStatus) error

	// ClaimForTraining atomically marks a trainable model as training.
	ClaimForTraining(ctx context.Context, id, userID string) error

	// SetWeights records the trained weights and marks the model trained.
	SetWeights(ctx context.Context, id, weights string) error
}
