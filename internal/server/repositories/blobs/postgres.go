// Package blobs stores the content registry: one row per distinct hash.
package blobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/casdrive/internal/common"
	"github.com/dmitrijs2005/casdrive/internal/dbx"
	"github.com/dmitrijs2005/casdrive/internal/server/models"
)

// PostgresRepository implements blob storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByHash(ctx context.Context, hash string) (*models.Blob, error) {
	query := `SELECT hash, size, mime_type, created_at FROM blobs WHERE hash=$1`

	b := &models.Blob{}
	err := r.db.QueryRowContext(ctx, query, hash).Scan(&b.Hash, &b.Size, &b.MimeType, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return b, nil
}

// InsertIfAbsent relies on the primary key on hash. A concurrent insert of
// the same hash makes ours a no-op, after which the winner's row is read.
func (r *PostgresRepository) InsertIfAbsent(ctx context.Context, b *models.Blob) (*models.Blob, bool, error) {
	query := `
		INSERT INTO blobs (hash, size, mime_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (hash) DO NOTHING
		RETURNING hash, size, mime_type, created_at`

	stored := &models.Blob{}
	err := r.db.QueryRowContext(ctx, query, b.Hash, b.Size, b.MimeType).
		Scan(&stored.Hash, &stored.Size, &stored.MimeType, &stored.CreatedAt)
	switch {
	case err == nil:
		return stored, true, nil
	case errors.Is(err, sql.ErrNoRows), dbx.IsUniqueViolation(err):
		existing, err := r.GetByHash(ctx, b.Hash)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	default:
		return nil, false, fmt.Errorf("db error: %w", err)
	}
}
