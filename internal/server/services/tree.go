package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/casdrive/internal/common"
	"github.com/dmitrijs2005/casdrive/internal/logging"
	"github.com/dmitrijs2005/casdrive/internal/protocol"
	"github.com/dmitrijs2005/casdrive/internal/server/models"
	"github.com/dmitrijs2005/casdrive/internal/server/repositories/nodes"
	"github.com/dmitrijs2005/casdrive/internal/server/repositories/spaces"
	"github.com/google/uuid"
)

const (
	PersonalSpaceName = "Personal"
	DefaultFolderName = "Untitled Folder"
	maxNameLength     = 255
)

// TreeRegistrar publishes files and folders into a space.
type TreeRegistrar struct {
	nodes  nodes.Repository
	spaces spaces.Repository
	logger logging.Logger
	now    func() time.Time
}

func NewTreeRegistrar(n nodes.Repository, s spaces.Repository, logger logging.Logger) *TreeRegistrar {
	return &TreeRegistrar{
		nodes:  n,
		spaces: s,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ResolveSpace returns the space spaceID names for userID. The personal
// alias (or an empty id) maps to the user's own space, created on first use.
// Spaces of other users are reported as not found.
func (t *TreeRegistrar) ResolveSpace(ctx context.Context, userID, spaceID string) (*models.Space, error) {
	if userID == "" {
		return nil, common.ErrorUnauthorized
	}
	if spaceID == "" || spaceID == protocol.PersonalSpace {
		return t.spaces.EnsureByOwnerAndName(ctx, &models.Space{
			ID:      uuid.NewString(),
			Name:    PersonalSpaceName,
			OwnerID: userID,
		})
	}
	if _, err := uuid.Parse(spaceID); err != nil {
		return nil, common.ErrorNotFound
	}

	s, err := t.spaces.GetByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	if s.OwnerID != userID {
		return nil, common.ErrorNotFound
	}
	return s, nil
}

func (t *TreeRegistrar) CreateFile(ctx context.Context, spaceID string, parentID *string, name, blobHash string, size int64, mimeType string) (*models.Node, error) {
	return t.create(ctx, &models.Node{
		SpaceID:  spaceID,
		ParentID: parentID,
		Name:     name,
		Kind:     models.KindFile,
		Size:     size,
		MimeType: mimeType,
		BlobHash: &blobHash,
	})
}

// CreateFolder names the folder DefaultFolderName when name is blank.
func (t *TreeRegistrar) CreateFolder(ctx context.Context, spaceID string, parentID *string, name string) (*models.Node, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultFolderName
	}
	return t.create(ctx, &models.Node{
		SpaceID:  spaceID,
		ParentID: parentID,
		Name:     name,
		Kind:     models.KindDir,
	})
}

func (t *TreeRegistrar) List(ctx context.Context, q nodes.ListQuery) ([]*models.Node, error) {
	if q.View == nodes.ViewBrowse && q.ParentID != nil {
		if _, err := uuid.Parse(*q.ParentID); err != nil {
			return nil, fmt.Errorf("%w: bad parent id", common.ErrorValidation)
		}
	}
	return t.nodes.List(ctx, q)
}

func (t *TreeRegistrar) create(ctx context.Context, n *models.Node) (*models.Node, error) {
	name := strings.TrimSpace(n.Name)
	if name == "" || len(name) > maxNameLength || strings.ContainsAny(name, "/\x00") {
		return nil, fmt.Errorf("%w: invalid name %q", common.ErrorValidation, n.Name)
	}
	n.Name = name

	if n.ParentID != nil && *n.ParentID == "" {
		n.ParentID = nil
	}
	if n.ParentID != nil {
		if err := t.checkParent(ctx, n.SpaceID, *n.ParentID); err != nil {
			return nil, err
		}
	}

	n.ID = uuid.NewString()
	n.UpdatedAt = t.now()
	if err := t.nodes.Insert(ctx, n); err != nil {
		if errors.Is(err, common.ErrNameConflict) {
			return nil, fmt.Errorf("%w: %q already exists", common.ErrNameConflict, n.Name)
		}
		return nil, err
	}

	t.logger.Info(ctx, "node created", "space", n.SpaceID, "node", n.ID, "kind", string(n.Kind), "name", n.Name)
	return n, nil
}

func (t *TreeRegistrar) checkParent(ctx context.Context, spaceID, parentID string) error {
	if _, err := uuid.Parse(parentID); err != nil {
		return fmt.Errorf("%w: bad parent id", common.ErrorValidation)
	}
	parent, err := t.nodes.GetByID(ctx, spaceID, parentID)
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%w: parent folder does not exist", common.ErrorValidation)
	}
	if err != nil {
		return err
	}
	if parent.Kind != models.KindDir || parent.IsTrashed {
		return fmt.Errorf("%w: parent is not a folder", common.ErrorValidation)
	}
	return nil
}
