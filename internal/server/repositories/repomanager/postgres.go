// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/photoforge/internal/dbx"
	"github.com/dmitrijs2005/photoforge/internal/server/migrations"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/aimodels"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/artifacts"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/credits"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/jobs"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Credits(db dbx.DBTX) credits.Repository {
	return credits.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Jobs(db dbx.DBTX) jobs.Repository {
	return jobs.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Artifacts(db dbx.DBTX) artifacts.Repository {
	return artifacts.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) AIModels(db dbx.DBTX) aimodels.Repository {
	return aimodels.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}
