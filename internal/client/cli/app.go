package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dmitrijs2005/casdrive/internal/client/api"
	"github.com/dmitrijs2005/casdrive/internal/client/chunk"
	"github.com/dmitrijs2005/casdrive/internal/client/config"
	"github.com/dmitrijs2005/casdrive/internal/client/upload"
	"github.com/dmitrijs2005/casdrive/internal/logging"
	"github.com/dmitrijs2005/casdrive/internal/netx"
	"github.com/dmitrijs2005/casdrive/internal/unitsx"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// maxParallelFiles bounds how many sessions run at once.
const maxParallelFiles = 3

// ErrUploadsFailed is returned by Run when at least one session did not
// complete.
var ErrUploadsFailed = errors.New("uploads failed")

type App struct {
	config      *config.Config
	logger      logging.Logger
	coordinator *upload.Coordinator
	planner     chunk.Planner
	stdout      io.Writer
	progress    *progress
}

func NewApp(c *config.Config, stdout, stderr io.Writer) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewText(stderr, logging.ParseLevel(c.LogLevel))

	client := api.NewClient(c.ServerURL, c.AccessToken, c.PartRetries, logger)
	client.SetRequestTimeout(c.RequestTimeout)
	putter := netx.NewPutter(netx.NewRetryClient(c.PartRetries, logger))

	coordinator := upload.NewCoordinator(client, putter, upload.Options{
		ChunkSize:      c.ChunkSize.Int64(),
		Concurrency:    c.Concurrency,
		HashWindow:     int(c.HashWindow.Int64()),
		AbortOnFailure: c.AbortOnFailure,
	}, logger)

	return &App{
		config:      c,
		logger:      logger,
		coordinator: coordinator,
		planner:     chunk.Planner{ChunkSize: c.ChunkSize.Int64(), Threshold: c.MultipartThreshold.Int64()},
		stdout:      stdout,
		progress:    newProgress(stderr, isTerminal(stderr)),
	}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

type outcome struct {
	session upload.Session
	result  upload.Result
	err     error
}

// Run uploads every configured file and prints a summary. SIGINT and
// SIGTERM cancel the remaining work.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions, closeAll, err := a.openSessions()
	if err != nil {
		return err
	}
	defer closeAll()

	for _, s := range sessions {
		a.announce(s)
	}

	outcomes := make([]outcome, len(sessions))
	var g errgroup.Group
	g.SetLimit(maxParallelFiles)
	for i, s := range sessions {
		g.Go(func() error {
			res, err := a.coordinator.Run(ctx, s, a.progress.observe)
			outcomes[i] = outcome{session: s, result: res, err: err}
			return nil
		})
	}
	_ = g.Wait()
	a.progress.finish()

	return a.summarize(outcomes)
}

func (a *App) announce(s upload.Session) {
	plan, err := a.planner.Plan(s.Size)
	if err != nil {
		return
	}
	a.logger.Info(context.Background(), "queued",
		"name", s.Name,
		"size", unitsx.HumanSize(s.Size),
		"expected", plan.Strategy.String(),
		"parts", len(plan.Ranges),
	)
}

// openSessions opens every file up front so a typo fails before any
// transfer starts.
func (a *App) openSessions() ([]upload.Session, func(), error) {
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	var parentID *string
	if a.config.ParentID != "" {
		parentID = &a.config.ParentID
	}

	sessions := make([]upload.Session, 0, len(a.config.Files))
	for _, path := range a.config.Files {
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		files = append(files, f)

		info, err := f.Stat()
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		if info.IsDir() {
			closeAll()
			return nil, nil, fmt.Errorf("%s is a directory", path)
		}

		s := upload.NewSession(filepath.Base(path), f, info.Size())
		s.ContentType = mime.TypeByExtension(filepath.Ext(path))
		s.SpaceID = a.config.SpaceID
		s.ParentID = parentID
		sessions = append(sessions, s)
	}
	return sessions, closeAll, nil
}

func (a *App) summarize(outcomes []outcome) error {
	var failed int
	for _, o := range outcomes {
		if o.err != nil {
			failed++
			fmt.Fprintf(a.stdout, "%s\t%s\t%v\n", o.session.Name, statusWord(o.err), o.err)
			continue
		}
		how := o.result.Strategy.String()
		if o.result.FastPath {
			how = "dedup"
		}
		fmt.Fprintf(a.stdout, "%s\tok\t%s\tfile=%s\tsha256=%s\n", o.session.Name, how, o.result.FileID, o.result.Hash)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrUploadsFailed, failed, len(outcomes))
	}
	return nil
}

func statusWord(err error) string {
	if upload.KindOf(err) == upload.KindCancelled {
		return "cancelled"
	}
	return "failed"
}
