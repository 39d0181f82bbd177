// Package api exposes the event-ingest HTTP server. A thin shim on the
// Robot Framework side posts lifecycle events here; the server drives the
// listener synchronously in arrival order.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ddn-qa/robotel/pkg/config"
	"github.com/ddn-qa/robotel/pkg/listener"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the ingest HTTP server lifecycle.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

// Compile-time interface check.
var _ Server = (*server)(nil)

type server struct {
	log        logrus.FieldLogger
	cfg        *config.Config
	listener   *listener.Listener
	httpServer *http.Server
	wg         sync.WaitGroup

	// mu serializes event handling: the listener is single-threaded by
	// contract, the HTTP server is not.
	mu sync.Mutex
}

// NewServer creates an ingest server driving the given listener.
func NewServer(log logrus.FieldLogger, cfg *config.Config, l *listener.Listener) Server {
	return &server{
		log:      log.WithField("component", "api"),
		cfg:      cfg,
		listener: l,
	}
}

// Start binds the listen address and serves in the background.
func (s *server) Start(ctx context.Context) error {
	router := s.buildRouter()

	s.httpServer = &http.Server{
		Addr:              s.cfg.Server.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Bind synchronously so we fail fast on port conflicts.
	ln, err := net.Listen("tcp", s.cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Server.Listen, err)
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.log.WithField("listen", s.cfg.Server.Listen).Info("Ingest server starting")

		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("HTTP server error")
		}
	}()

	return nil
}

// Stop shuts down the HTTP server and closes the listener session, flushing
// the build summary.
func (s *server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	s.wg.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.mu.Lock()
	s.listener.Close(closeCtx)
	s.mu.Unlock()

	s.log.Info("Ingest server stopped")

	return nil
}
