package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/casdrive/internal/common"
	"github.com/dmitrijs2005/casdrive/internal/logging"
	"github.com/dmitrijs2005/casdrive/internal/server/models"
	"github.com/dmitrijs2005/casdrive/internal/server/repositories/blobs"
)

// DedupRegistry maps content hashes to blobs. Uniqueness is enforced by the
// repository; losing an insert race is reported as success.
type DedupRegistry struct {
	blobs  blobs.Repository
	logger logging.Logger
}

func NewDedupRegistry(repo blobs.Repository, logger logging.Logger) *DedupRegistry {
	return &DedupRegistry{blobs: repo, logger: logger}
}

// Lookup returns nil, nil when the hash is unknown.
func (r *DedupRegistry) Lookup(ctx context.Context, hash string) (*models.Blob, error) {
	b, err := r.blobs.GetByHash(ctx, hash)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup blob: %w", err)
	}
	return b, nil
}

// RegisterIfAbsent records a blob whose object is already in the store and
// returns the registered row, which may predate this call.
func (r *DedupRegistry) RegisterIfAbsent(ctx context.Context, hash string, size int64, mimeType string) (*models.Blob, error) {
	b, created, err := r.blobs.InsertIfAbsent(ctx, &models.Blob{Hash: hash, Size: size, MimeType: mimeType})
	if err != nil {
		return nil, fmt.Errorf("register blob: %w", err)
	}
	if created {
		r.logger.Info(ctx, "blob registered", "hash", hash, "size", size)
	} else {
		r.logger.Debug(ctx, "blob already registered", "hash", hash)
	}
	return b, nil
}
