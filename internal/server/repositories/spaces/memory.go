package spaces

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/casdrive/internal/common"
	"github.com/dmitrijs2005/casdrive/internal/server/models"
)

type MemoryRepository struct {
	mu     sync.Mutex
	byID   map[string]models.Space
	byName map[[2]string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[string]models.Space),
		byName: make(map[[2]string]string),
	}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.Space, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) EnsureByOwnerAndName(ctx context.Context, s *models.Space) (*models.Space, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := [2]string{s.OwnerID, s.Name}
	if id, ok := r.byName[k]; ok {
		existing := r.byID[id]
		return &existing, nil
	}
	stored := *s
	stored.CreatedAt = time.Now().UTC()
	r.byID[stored.ID] = stored
	r.byName[k] = stored.ID
	return &stored, nil
}
