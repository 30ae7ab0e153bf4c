// Package server wires configuration, metadata storage, the object store
// gateway and the HTTP API into a runnable application.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/casdrive/internal/logging"
	"github.com/dmitrijs2005/casdrive/internal/server/auth"
	"github.com/dmitrijs2005/casdrive/internal/server/config"
	"github.com/dmitrijs2005/casdrive/internal/server/httpapi"
	"github.com/dmitrijs2005/casdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/casdrive/internal/server/services"
	"github.com/dmitrijs2005/casdrive/internal/server/storage"
)

var logOutput io.Writer = os.Stdout

type App struct {
	config  *config.Config
	logger  logging.Logger
	repos   repomanager.RepositoryManager
	uploads *services.UploadService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(logOutput, logging.ParseLevel(c.LogLevel))

	repos, err := openRepositories(ctx, c.DatabaseDSN, logger)
	if err != nil {
		return nil, err
	}

	gateway, err := storage.NewS3Gateway(ctx, storage.Config{
		Bucket:        c.S3Bucket,
		Region:        c.S3Region,
		AccessKey:     c.S3AccessKey,
		SecretKey:     c.S3SecretKey,
		BaseEndpoint:  c.S3BaseEndpoint,
		UsePathStyle:  c.S3UsePathStyle,
		PresignExpiry: c.PresignExpiry,
	})
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	uploads := services.NewUploadService(repos, gateway, services.UploadConfig{
		MultipartThreshold: c.MultipartThreshold.Int64(),
		MaxUploadSize:      c.MaxUploadSize.Int64(),
	}, logger)

	return &App{config: c, logger: logger, repos: repos, uploads: uploads}, nil
}

// openRepositories keeps metadata in memory when dsn is empty, otherwise it
// connects to Postgres and applies migrations.
func openRepositories(ctx context.Context, dsn string, logger logging.Logger) (repomanager.RepositoryManager, error) {
	if dsn == "" {
		logger.Warn(ctx, "no database DSN, metadata is kept in memory")
		return repomanager.NewInMemoryRepositoryManager(), nil
	}

	rm, err := repomanager.NewPostgresRepositoryManager(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx); err != nil {
		_ = rm.Close()
		return nil, fmt.Errorf("db migrations: %w", err)
	}
	return rm, nil
}

// IssueToken prints an access token for c.IssueTokenFor, signed with the
// server secret.
func IssueToken(w io.Writer, c *config.Config) error {
	tok, err := auth.GenerateToken(c.IssueTokenFor, []byte(c.SecretKey), c.TokenValidity)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, tok)
	return err
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves the API until ctx is cancelled or a termination signal
// arrives, then closes the metadata store.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.uploads, app.config.SecretKey)
	runErr := s.Run(ctx)

	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "closing metadata store", "error", err)
	}
	return runErr
}
