package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/photoforge/internal/dbx"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/aimodels"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/artifacts"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/credits"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/jobs"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either the pool or a
// transaction, so services can run several writes in one unit.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Credits(db dbx.DBTX) credits.Repository
	Jobs(db dbx.DBTX) jobs.Repository
	Artifacts(db dbx.DBTX) artifacts.Repository
	AIModels(db dbx.DBTX) aimodels.Repository
}
