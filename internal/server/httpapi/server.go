// Package httpapi exposes the upload protocol and the file tree over HTTP
// with JSON bodies and bearer-token authentication.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/casdrive/internal/logging"
	"github.com/dmitrijs2005/casdrive/internal/protocol"
	"github.com/dmitrijs2005/casdrive/internal/server/services"
)

const (
	maxBodyBytes    = 4 << 20
	shutdownTimeout = 10 * time.Second
)

type HTTPServer struct {
	address   string
	uploads   *services.UploadService
	logger    logging.Logger
	jwtSecret []byte
	mux       *http.ServeMux
}

func NewHTTPServer(a string, l logging.Logger, uploads *services.UploadService, secretKey string) *HTTPServer {
	s := &HTTPServer{
		address:   a,
		uploads:   uploads,
		logger:    l.With("module", "http_server"),
		jwtSecret: []byte(secretKey),
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *HTTPServer) routes() {
	s.mux.HandleFunc("GET "+protocol.PathHealth, s.handleHealth)

	s.mux.Handle("POST "+protocol.PathInit, s.requireAuth(s.handleInit))
	s.mux.Handle("POST "+protocol.PathSignPart, s.requireAuth(s.handleSignPart))
	s.mux.Handle("POST "+protocol.PathComplete, s.requireAuth(s.handleComplete))
	s.mux.Handle("POST "+protocol.PathAbort, s.requireAuth(s.handleAbort))

	s.mux.Handle("POST /spaces/{spaceId}/nodes/folder", s.requireAuth(s.handleCreateFolder))
	s.mux.Handle("GET /spaces/{spaceId}/nodes", s.requireAuth(s.handleListNodes))
}

// Handler returns the routes wrapped in request logging.
func (s *HTTPServer) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-stopped
}
