// Package server provides the HTTP API for the queue daemon.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/queued/internal/daemon/engine"
	"github.com/grovetools/queued/pkg/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// RunningConfig holds the active configuration being used by the daemon.
type RunningConfig = models.RunningConfig

// Server manages the daemon's HTTP server over a Unix socket and,
// optionally, a TCP address.
type Server struct {
	logger  *logrus.Entry
	engine  *engine.Engine
	metrics http.Handler

	mu            sync.Mutex
	servers       []*http.Server
	runningConfig *RunningConfig
}

// New creates a new Server instance.
func New(logger *logrus.Entry) *Server {
	return &Server{
		logger: logger,
	}
}

// SetEngine sets the queue engine for the server.
func (s *Server) SetEngine(eng *engine.Engine) {
	s.engine = eng
}

// SetMetrics sets the handler served at /metrics.
func (s *Server) SetMetrics(h http.Handler) {
	s.metrics = h
}

// SetRunningConfig sets the running configuration for the server.
func (s *Server) SetRunningConfig(cfg *RunningConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runningConfig = cfg
}

func (s *Server) getRunningConfig() *RunningConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningConfig
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/queues", s.requireEngine(s.handleGetQueues))
	mux.HandleFunc("GET /api/queues/{name}", s.requireEngine(s.handleGetQueue))
	mux.HandleFunc("GET /api/queues/{name}/members/{iface...}", s.requireEngine(s.handleGetMember))
	mux.HandleFunc("GET /api/rollups", s.requireEngine(s.handleGetRollups))
	mux.HandleFunc("GET /api/status", s.requireEngine(s.handleGetStatus))
	mux.HandleFunc("GET /api/summary", s.requireEngine(s.handleGetSummary))
	mux.HandleFunc("POST /api/refresh", s.requireEngine(s.handleRefresh))
	mux.HandleFunc("POST /api/members/{op}", s.requireEngine(s.handleMemberCommand))
	mux.HandleFunc("GET /api/pause-reasons", s.requireEngine(s.handleGetPauseReasons))
	mux.HandleFunc("GET /api/status-labels", s.requireEngine(s.handleGetStatusLabels))
	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("GET /api/stream", s.requireEngine(s.handleStream))
	mux.HandleFunc("GET /api/ws", s.requireEngine(s.handleWebSocket))

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	return h2c.NewHandler(mux, &http2.Server{})
}

// ListenAndServe starts the daemon on the given unix socket path.
// It blocks until the server stops or fails.
func (s *Server) ListenAndServe(socketPath string) error {
	// Cleanup stale socket
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	// Set restrictive permissions on socket
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.WithField("socket", socketPath).Info("Daemon listening")
	return s.Serve(listener)
}

// ListenTCP serves the API on addr in the background.
func (s *Server) ListenTCP(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.logger.WithField("addr", listener.Addr().String()).Info("Daemon listening on TCP")
	go func() {
		if err := s.Serve(listener); err != nil {
			s.logger.WithError(err).Error("TCP listener stopped")
		}
	}()
	return nil
}

// Serve serves the API on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.servers = append(s.servers, srv)
	s.mu.Unlock()

	if err := srv.Serve(l); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops every listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	s.mu.Lock()
	servers := s.servers
	s.servers = nil
	s.mu.Unlock()

	var firstErr error
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Server) requireEngine(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.engine == nil {
			http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
			return
		}
		h(w, r)
	}
}
