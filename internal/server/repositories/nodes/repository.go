package nodes

import (
	"context"

	"github.com/dmitrijs2005/casdrive/internal/server/models"
)

// View selects which nodes List returns.
type View string

const (
	ViewBrowse  View = ""
	ViewTrash   View = "trash"
	ViewStarred View = "starred"
	ViewRecent  View = "recent"
)

// ParseView accepts the query-string form of a view.
func ParseView(s string) (View, bool) {
	switch v := View(s); v {
	case ViewBrowse, ViewTrash, ViewStarred, ViewRecent:
		return v, true
	}
	return "", false
}

// ListQuery filters a space. ParentID is only used by ViewBrowse, where nil
// means the root.
type ListQuery struct {
	SpaceID  string
	ParentID *string
	View     View
}

type Repository interface {
	// Insert returns common.ErrNameConflict when (space, parent, name) is taken.
	Insert(ctx context.Context, n *models.Node) error
	// GetByID returns common.ErrorNotFound when the node is not in the space.
	GetByID(ctx context.Context, spaceID, id string) (*models.Node, error)
	// List returns directories first, then newest first.
	List(ctx context.Context, q ListQuery) ([]*models.Node, error)
}
