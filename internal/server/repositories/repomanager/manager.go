package repomanager

import (
	"context"

	"github.com/dmitrijs2005/casdrive/internal/dbx"
	"github.com/dmitrijs2005/casdrive/internal/server/repositories/blobs"
	"github.com/dmitrijs2005/casdrive/internal/server/repositories/nodes"
	"github.com/dmitrijs2005/casdrive/internal/server/repositories/spaces"
)

// RepositoryManager vends repositories bound to a connection or a
// transaction handle.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	// Conn is the handle for work outside a transaction.
	Conn() dbx.DBTX
	// WithTx runs fn in a transaction, committing when it returns nil.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error
	Blobs(db dbx.DBTX) blobs.Repository
	Nodes(db dbx.DBTX) nodes.Repository
	Spaces(db dbx.DBTX) spaces.Repository
	Close() error
}
