// Package spaces stores the namespaces nodes live in.
package spaces

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/casdrive/internal/common"
	"github.com/dmitrijs2005/casdrive/internal/dbx"
	"github.com/dmitrijs2005/casdrive/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Space, error) {
	query := `SELECT id, name, owner_id, created_at FROM spaces WHERE id=$1`

	s := &models.Space{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Name, &s.OwnerID, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) EnsureByOwnerAndName(ctx context.Context, s *models.Space) (*models.Space, error) {
	insert := `
		INSERT INTO spaces (id, name, owner_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id, name) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, insert, s.ID, s.Name, s.OwnerID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	query := `SELECT id, name, owner_id, created_at FROM spaces WHERE owner_id=$1 AND name=$2`

	stored := &models.Space{}
	err := r.db.QueryRowContext(ctx, query, s.OwnerID, s.Name).Scan(&stored.ID, &stored.Name, &stored.OwnerID, &stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return stored, nil
}
