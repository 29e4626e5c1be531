package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// ServerConfig holds configuration for the HTTP server
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns sensible defaults for server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            8080,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    60 * time.Second, // a full audio clip must fit
		ShutdownTimeout: 30 * time.Second,
	}
}

// Backend is the stateful side of the hub that lives around the HTTP server.
type Backend interface {
	// Run drives the background workers until ctx is cancelled
	Run(ctx context.Context)
	// StopRealtime ends round timers and closes every websocket. Upgraded
	// connections are hijacked, so http.Server.Shutdown never waits on them.
	StopRealtime()
	// Close flushes write-behind state and releases storage
	Close(ctx context.Context) error
}

// Server serves the router and owns the shutdown order of the hub:
// realtime first, then in-flight HTTP, then workers, then the final flush.
type Server struct {
	http     *http.Server
	backend  Backend
	logger   *slog.Logger
	config   ServerConfig
	listener net.Listener
}

// NewServer creates a server for handler backed by backend
func NewServer(handler http.Handler, backend Backend, config ServerConfig, logger *slog.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:         net.JoinHostPort(config.Host, fmt.Sprint(config.Port)),
			Handler:      handler,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
		},
		backend: backend,
		logger:  logger,
		config:  config,
	}
}

// Listen binds the listening socket. Port 0 picks a free port.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address once listening, else the configured one
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.http.Addr
}

// Run serves until ctx is cancelled or the listener fails, then shuts
// everything down in order. The returned error joins serve and shutdown
// failures.
func (s *Server) Run(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	workers, stopWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorkers()
	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		s.backend.Run(workers)
	}()

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", slog.String("addr", s.Addr()))
		if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("server error: %w", err)
			return
		}
		serveErr <- nil
	}()

	var runErr error
	select {
	case runErr = <-serveErr:
	case <-ctx.Done():
		s.logger.Info("shutdown requested")
	}

	return errors.Join(runErr, s.shutdown(stopWorkers, workersDone))
}

func (s *Server) shutdown(stopWorkers context.CancelFunc, workersDone <-chan struct{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.backend.StopRealtime()

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	// Workers stop after the last request so write-behind sees every mutation
	stopWorkers()
	select {
	case <-workersDone:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("workers: %w", ctx.Err()))
	}

	if err := s.backend.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	s.logger.Info("HTTP server stopped")
	return errors.Join(errs...)
}
