package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/scriptguard/internal/dbx"
	"github.com/dmitrijs2005/scriptguard/internal/server/repositories/admins"
	"github.com/dmitrijs2005/scriptguard/internal/server/repositories/apikeys"
	"github.com/dmitrijs2005/scriptguard/internal/server/repositories/executions"
	"github.com/dmitrijs2005/scriptguard/internal/server/repositories/keys"
	"github.com/dmitrijs2005/scriptguard/internal/server/repositories/projects"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Keys(db dbx.DBTX) keys.Repository
	Projects(db dbx.DBTX) projects.Repository
	Admins(db dbx.DBTX) admins.Repository
	APIKeys(db dbx.DBTX) apikeys.Repository
	Executions(db dbx.DBTX) executions.Repository
}
