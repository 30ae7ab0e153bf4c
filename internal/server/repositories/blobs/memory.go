package blobs

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/casdrive/internal/common"
	"github.com/dmitrijs2005/casdrive/internal/server/models"
)

// MemoryRepository keeps blobs in a map. The mutex plays the part of the
// primary key.
type MemoryRepository struct {
	mu    sync.Mutex
	blobs map[string]models.Blob
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{blobs: make(map[string]models.Blob)}
}

func (r *MemoryRepository) GetByHash(ctx context.Context, hash string) (*models.Blob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.blobs[hash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &b, nil
}

func (r *MemoryRepository) InsertIfAbsent(ctx context.Context, b *models.Blob) (*models.Blob, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.blobs[b.Hash]; ok {
		return &existing, false, nil
	}
	stored := *b
	stored.CreatedAt = time.Now().UTC()
	r.blobs[b.Hash] = stored
	return &stored, true, nil
}

// Len returns the number of stored blobs.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.blobs)
}
