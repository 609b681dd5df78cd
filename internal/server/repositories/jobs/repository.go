// Package jobs persists provider jobs. Each job kind lives in its own table;
// the repository hides that behind a single interface keyed by kind.
package jobs

import (
	"context"

	"github.com/dmitrijs2005/photoforge/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, job *models.Job) error
	FindByRequestID(ctx context.Context, kind models.JobKind, requestID string) (*models.Job, error)
	GetForUser(ctx context.Context, kind models.JobKind, id, userID string) (*models.Job, error)

	// Complete moves a PENDING job to a terminal status. It returns
	// common.ErrorNotFound when no PENDING job matches, which includes the
	// case of a job that was already completed by a concurrent delivery.
	Complete(ctx context.Context, kind models.JobKind, requestID string, status models.JobStatus, errorDetail string) (*models.Job, error)

	List(ctx context.Context, kind models.JobKind, limit, offset int) ([]*models.Job, error)
}
