// Package nodes stores the file tree.
package nodes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/casdrive/internal/common"
	"github.com/dmitrijs2005/casdrive/internal/dbx"
	"github.com/dmitrijs2005/casdrive/internal/server/models"
)

const selectColumns = `SELECT id, space_id, parent_id, name, kind, size, mime_type, blob_hash, is_starred, is_trashed, updated_at FROM nodes`

// PostgresRepository implements the tree over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, n *models.Node) error {
	query := `
		INSERT INTO nodes (id, space_id, parent_id, name, kind, size, mime_type, blob_hash, is_starred, is_trashed, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.SpaceID, n.ParentID, n.Name, string(n.Kind), n.Size, n.MimeType, n.BlobHash, n.IsStarred, n.IsTrashed, n.UpdatedAt)
	if dbx.IsUniqueViolation(err) {
		return common.ErrNameConflict
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, spaceID, id string) (*models.Node, error) {
	query := selectColumns + ` WHERE space_id=$1 AND id=$2`

	n, err := scanNode(r.db.QueryRowContext(ctx, query, spaceID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) List(ctx context.Context, q ListQuery) ([]*models.Node, error) {
	where := []string{"space_id=$1"}
	args := []any{q.SpaceID}

	switch q.View {
	case ViewTrash:
		where = append(where, "is_trashed=true")
	case ViewStarred:
		where = append(where, "is_starred=true", "is_trashed=false")
	case ViewRecent:
		where = append(where, "is_trashed=false")
	default:
		where = append(where, "is_trashed=false")
		if q.ParentID != nil {
			args = append(args, *q.ParentID)
			where = append(where, fmt.Sprintf("parent_id=$%d", len(args)))
		} else {
			where = append(where, "parent_id IS NULL")
		}
	}

	query := selectColumns + ` WHERE ` + strings.Join(where, " AND ") + ` ORDER BY kind ASC, updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select nodes: %w", err)
	}
	defer rows.Close()

	var result []*models.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(s scanner) (*models.Node, error) {
	var (
		n        models.Node
		kind     string
		parentID sql.NullString
		blobHash sql.NullString
	)
	if err := s.Scan(&n.ID, &n.SpaceID, &parentID, &n.Name, &kind, &n.Size, &n.MimeType, &blobHash, &n.IsStarred, &n.IsTrashed, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.Kind = models.NodeKind(kind)
	if parentID.Valid {
		n.ParentID = &parentID.String
	}
	if blobHash.Valid {
		n.BlobHash = &blobHash.String
	}
	return &n, nil
}
