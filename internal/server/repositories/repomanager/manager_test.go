package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/casdrive/internal/dbx"
	"github.com/dmitrijs2005/casdrive/internal/server/repositories/blobs"
	"github.com/dmitrijs2005/casdrive/internal/server/repositories/nodes"
	"github.com/dmitrijs2005/casdrive/internal/server/repositories/spaces"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockManager(t *testing.T) (*PostgresRepositoryManager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepositoryManagerFromDB(db), mock
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	m, _ := newMockManager(t)

	var _ RepositoryManager = m
	var _ RepositoryManager = NewInMemoryRepositoryManager()

	assert.IsType(t, &blobs.PostgresRepository{}, m.Blobs(m.Conn()))
	assert.IsType(t, &nodes.PostgresRepository{}, m.Nodes(m.Conn()))
	assert.IsType(t, &spaces.PostgresRepository{}, m.Spaces(m.Conn()))
}

func TestWithTx_CommitAndRollback(t *testing.T) {
	m, mock := newMockManager(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO blobs`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := m.WithTx(context.Background(), func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO blobs VALUES (1)")
		return err
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err = m.WithTx(context.Background(), func(ctx context.Context, tx dbx.DBTX) error {
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations(t *testing.T) {
	m, _ := newMockManager(t)

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	require.NoError(t, m.RunMigrations(context.Background()))
	assert.Equal(t, ".", gotDir)

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	assert.EqualError(t, m.RunMigrations(context.Background()), "boom")
}

func TestNewPostgresRepositoryManager_OpenError(t *testing.T) {
	orig := sqlOpen
	t.Cleanup(func() { sqlOpen = orig })
	sqlOpen = func(driverName, dsn string) (*sql.DB, error) {
		return nil, errors.New("bad dsn")
	}

	_, err := NewPostgresRepositoryManager(context.Background(), "postgres://x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db open error")
}

func TestNewPostgresRepositoryManager_PingError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(errors.New("refused"))
	mock.ExpectClose()

	orig := sqlOpen
	t.Cleanup(func() { sqlOpen = orig })
	sqlOpen = func(driverName, dsn string) (*sql.DB, error) {
		assert.Equal(t, "pgx", driverName)
		return db, nil
	}

	_, err = NewPostgresRepositoryManager(context.Background(), "postgres://x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db ping error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInMemoryRepositoryManager(t *testing.T) {
	m := NewInMemoryRepositoryManager()
	ctx := context.Background()

	require.NoError(t, m.RunMigrations(ctx))
	assert.Same(t, m.BlobStore(), m.Blobs(nil))
	assert.Same(t, m.NodeStore(), m.Nodes(m.Conn()))

	called := false
	err := m.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		called = true
		assert.Nil(t, tx)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.NoError(t, m.Close())
}
