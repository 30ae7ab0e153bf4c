package nodes

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/casdrive/internal/common"
	"github.com/dmitrijs2005/casdrive/internal/server/models"
)

type nameKey struct {
	spaceID  string
	parentID string
	name     string
}

func keyOf(n *models.Node) nameKey {
	k := nameKey{spaceID: n.SpaceID, name: n.Name}
	if n.ParentID != nil {
		k.parentID = *n.ParentID
	}
	return k
}

// MemoryRepository keeps the tree in maps, enforcing the same name
// uniqueness as the database.
type MemoryRepository struct {
	mu    sync.Mutex
	byID  map[string]models.Node
	names map[nameKey]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:  make(map[string]models.Node),
		names: make(map[nameKey]string),
	}
}

func (r *MemoryRepository) Insert(ctx context.Context, n *models.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := keyOf(n)
	if _, taken := r.names[k]; taken {
		return common.ErrNameConflict
	}
	r.byID[n.ID] = *n
	r.names[k] = n.ID
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, spaceID, id string) (*models.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.byID[id]
	if !ok || n.SpaceID != spaceID {
		return nil, common.ErrorNotFound
	}
	return &n, nil
}

func (r *MemoryRepository) List(ctx context.Context, q ListQuery) ([]*models.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*models.Node
	for _, n := range r.byID {
		if n.SpaceID != q.SpaceID || !matches(&n, q) {
			continue
		}
		n := n
		result = append(result, &n)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Kind != result[j].Kind {
			return result[i].Kind < result[j].Kind
		}
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func matches(n *models.Node, q ListQuery) bool {
	switch q.View {
	case ViewTrash:
		return n.IsTrashed
	case ViewStarred:
		return n.IsStarred && !n.IsTrashed
	case ViewRecent:
		return !n.IsTrashed
	default:
		if n.IsTrashed {
			return false
		}
		if q.ParentID == nil {
			return n.ParentID == nil
		}
		return n.ParentID != nil && *n.ParentID == *q.ParentID
	}
}

// CountByBlob returns how many nodes point at hash.
func (r *MemoryRepository) CountByBlob(hash string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var c int
	for _, n := range r.byID {
		if n.BlobHash != nil && *n.BlobHash == hash {
			c++
		}
	}
	return c
}
