package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/photoforge/internal/common"
	"github.com/dmitrijs2005/photoforge/internal/server/config"
	"github.com/dmitrijs2005/photoforge/internal/server/models"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/repomanager"
)

const (
	defaultAdminPageSize = 50
	maxAdminPageSize     = 200
)

type lister func(ctx context.Context, limit, offset int) (any, error)

// AdminService lists a closed set of entities for operators.
type AdminService struct {
	isAdmin  func(email string) bool
	entities map[string]lister
}

func NewAdminService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *AdminService {
	jobs := func(kind models.JobKind) lister {
		return func(ctx context.Context, limit, offset int) (any, error) {
			return m.Jobs(db).List(ctx, kind, limit, offset)
		}
	}

	return &AdminService{
		isAdmin: cfg.IsAdmin,
		entities: map[string]lister{
			"users": func(ctx context.Context, limit, offset int) (any, error) {
				return m.Users(db).List(ctx, limit, offset)
			},
			"models": func(ctx context.Context, limit, offset int) (any, error) {
				return m.AIModels(db).List(ctx, limit, offset)
			},
			"trainings":         jobs(models.JobTraining),
			"photo_predictions": jobs(models.JobPhoto),
			"video_predictions": jobs(models.JobVideo),
		},
	}
}

func (s *AdminService) List(ctx context.Context, p *Principal, entity string, limit, offset int) (any, error) {
	if p == nil || !s.isAdmin(p.Email) {
		return nil, common.ErrorForbidden
	}
	list, ok := s.entities[entity]
	if !ok {
		return nil, fmt.Errorf("%w: entity %q", common.ErrorNotFound, entity)
	}

	if limit <= 0 {
		limit = defaultAdminPageSize
	}
	if limit > maxAdminPageSize {
		limit = maxAdminPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return list(ctx, limit, offset)
}
