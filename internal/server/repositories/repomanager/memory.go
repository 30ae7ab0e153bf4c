package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/casdrive/internal/dbx"
	"github.com/dmitrijs2005/casdrive/internal/server/repositories/blobs"
	"github.com/dmitrijs2005/casdrive/internal/server/repositories/nodes"
	"github.com/dmitrijs2005/casdrive/internal/server/repositories/spaces"
)

// InMemoryRepositoryManager serves process-local repositories. WithTx
// serializes callers but cannot roll back; writes made before an error stay.
type InMemoryRepositoryManager struct {
	txMu   sync.Mutex
	blobs  *blobs.MemoryRepository
	nodes  *nodes.MemoryRepository
	spaces *spaces.MemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		blobs:  blobs.NewMemoryRepository(),
		nodes:  nodes.NewMemoryRepository(),
		spaces: spaces.NewMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context) error { return nil }

func (m *InMemoryRepositoryManager) Conn() dbx.DBTX { return nil }

func (m *InMemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx, nil)
}

func (m *InMemoryRepositoryManager) Blobs(dbx.DBTX) blobs.Repository { return m.blobs }

func (m *InMemoryRepositoryManager) Nodes(dbx.DBTX) nodes.Repository { return m.nodes }

func (m *InMemoryRepositoryManager) Spaces(dbx.DBTX) spaces.Repository { return m.spaces }

func (m *InMemoryRepositoryManager) Close() error { return nil }

// BlobStore exposes the concrete blob repository for inspection.
func (m *InMemoryRepositoryManager) BlobStore() *blobs.MemoryRepository { return m.blobs }

// NodeStore exposes the concrete node repository for inspection.
func (m *InMemoryRepositoryManager) NodeStore() *nodes.MemoryRepository { return m.nodes }
