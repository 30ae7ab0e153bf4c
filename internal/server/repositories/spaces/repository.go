package spaces

import (
	"context"

	"github.com/dmitrijs2005/casdrive/internal/server/models"
)

type Repository interface {
	// GetByID returns common.ErrorNotFound for unknown ids.
	GetByID(ctx context.Context, id string) (*models.Space, error)
	// EnsureByOwnerAndName returns the owner's space with that name,
	// creating it from s when missing.
	EnsureByOwnerAndName(ctx context.Context, s *models.Space) (*models.Space, error)
}
