package blobs

import (
	"context"

	"github.com/dmitrijs2005/casdrive/internal/server/models"
)

type Repository interface {
	// GetByHash returns common.ErrorNotFound when no blob has the hash.
	GetByHash(ctx context.Context, hash string) (*models.Blob, error)
	// InsertIfAbsent stores b unless a blob with the same hash exists and
	// returns the stored row either way. created is false on conflict.
	InsertIfAbsent(ctx context.Context, b *models.Blob) (stored *models.Blob, created bool, err error)
}
