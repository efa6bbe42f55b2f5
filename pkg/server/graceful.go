// Package server wraps net/http with graceful shutdown and signal
// handling for the portfolio API binary.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/portfolio-core/pkg/logging"
)

// ReloadFunc re-reads configuration on SIGHUP.
type ReloadFunc func() error

// GracefulServer is an HTTP server that drains connections on SIGINT and
// SIGTERM before exiting.
type GracefulServer struct {
	server       *http.Server
	logger       logging.Logger
	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	reloadMu sync.RWMutex
	reloadFn ReloadFunc
}

// NewGracefulServer creates a server with sane timeouts. A nil logger
// falls back to a no-op logger.
func NewGracefulServer(addr string, handler http.Handler, logger logging.Logger) *GracefulServer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GracefulServer{
		server: &http.Server{
			Addr:           addr,
			Handler:        handler,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    120 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		logger:     logger.With(logging.Component("server")),
		shutdownCh: make(chan struct{}),
	}
}

// Start serves until a shutdown signal arrives or ListenAndServe fails.
func (gs *GracefulServer) Start() error {
	go gs.handleSignals()

	gs.logger.Info("http server listening", logging.String("addr", gs.server.Addr))
	if err := gs.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, bounded by timeout. Safe to call
// more than once.
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	var err error
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		gs.logger.Info("shutting down", logging.Duration("timeout", timeout))
		if shutdownErr := gs.server.Shutdown(ctx); shutdownErr != nil {
			err = shutdownErr
			gs.logger.Error("shutdown failed", logging.Error(shutdownErr))
		}
	})
	return err
}

func (gs *GracefulServer) handleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP, // config reload
	)

	for sig := range sigCh {
		switch sig {
		case syscall.SIGINT, syscall.SIGTERM:
			gs.logger.Info("signal received", logging.String("signal", sig.String()))
			if err := gs.Shutdown(30 * time.Second); err != nil {
				os.Exit(1)
			}
			return

		case syscall.SIGHUP:
			if err := gs.ReloadConfig(); err != nil {
				gs.logger.Error("config reload failed", logging.Error(err))
			}
		}
	}
}

// ShutdownChannel closes when shutdown begins; cleanup hooks select on it.
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}

// SetReloadFunc installs the SIGHUP handler's reload action.
func (gs *GracefulServer) SetReloadFunc(fn ReloadFunc) {
	gs.reloadMu.Lock()
	defer gs.reloadMu.Unlock()
	gs.reloadFn = fn
}

// ReloadConfig runs the installed reload action, if any.
func (gs *GracefulServer) ReloadConfig() error {
	gs.reloadMu.RLock()
	fn := gs.reloadFn
	gs.reloadMu.RUnlock()

	if fn == nil {
		gs.logger.Warn("reload requested with no reload function")
		return nil
	}
	if err := fn(); err != nil {
		return err
	}
	gs.logger.Info("configuration reloaded")
	return nil
}
