// Package artifacts stores the photos and videos produced by completed jobs.
package artifacts

import (
	"context"

	"github.com/dmitrijs2005/photoforge/internal/server/models"
)

type Repository interface {
	CreatePhoto(ctx context.Context, p *models.Photo) error
	CreateVideo(ctx context.Context, v *models.Video) error
	GetPhotoForUser(ctx context.Context, id, userID string) (*models.Photo, error)
	PhotosByJob(ctx context.Context, jobID string) ([]*models.Photo, error)
	VideosByJob(ctx context.Context, jobID string) ([]*models.Video, error)
}
