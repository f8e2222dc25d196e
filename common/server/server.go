// Package server wraps net/http with the shutdown discipline every binary in
// this repo follows: serve until a signal or a server error, then drain
// in-flight requests before exiting.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ezbake/ezbake-image-frack/common/logger"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Server wraps HTTP server with graceful shutdown
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
	name       string
}

// New creates a new server. The write timeout is generous because thumbnail
// and original-image responses can run to several megabytes.
func New(name string, port int, handler http.Handler, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
		log:  log,
		name: name,
	}
}

// Start serves until an interrupt signal, a cancellation of ctx, or a server
// error, then drains outstanding requests.
func (s *Server) Start(ctx context.Context) error {
	serverErrors := make(chan error, 1)

	go func() {
		s.log.Info(fmt.Sprintf("%s starting", s.name), "addr", s.httpServer.Addr)
		serverErrors <- s.httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		s.log.Info("shutdown signal received", "signal", sig.String())

	case <-ctx.Done():
		s.log.Info("context cancelled, shutting down")
	}

	// Give outstanding requests time to complete
	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(drainCtx); err != nil {
		s.log.Error("graceful shutdown failed", "error", err)
		if err := s.httpServer.Close(); err != nil {
			return fmt.Errorf("could not stop server: %w", err)
		}
	}

	s.log.Info("shutdown complete")
	return nil
}
