// Package users declares the repository contract for user accounts. Every
// read excludes soft-deleted rows.
package users

import (
	"context"

	"github.com/dmitrijs2005/photoforge/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills its ID and CreatedAt. A duplicate email
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// IncrementTokenVersion bumps the user's token version and returns the new value.
	IncrementTokenVersion(ctx context.Context, id string) (int64, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
}
