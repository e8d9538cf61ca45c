// Package health provides a simple HTTP health check endpoint.
//
// Docker and Kubernetes use these endpoints to monitor the bot. /healthz
// reports liveness once startup is done; /readyz additionally requires every
// registered check to pass (e.g. the WhatsApp session is connected).
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Check reports whether one dependency is ready.
type Check func() bool

// Server is a lightweight HTTP server that exposes /healthz and /readyz.
type Server struct {
	port   int
	ready  atomic.Bool
	server *http.Server

	mu     sync.RWMutex
	names  []string
	checks map[string]Check
}

// New creates a new health check server.
func New(port int) *Server {
	return &Server{port: port, checks: make(map[string]Check)}
}

// SetReady marks the bot as started.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// AddCheck registers a named readiness check. Re-adding a name replaces it.
func (s *Server) AddCheck(name string, check Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.checks[name]; !ok {
		s.names = append(s.names, name)
	}
	s.checks[name] = check
}

// Live reports whether startup has completed.
func (s *Server) Live() bool {
	return s.ready.Load()
}

// Ready reports whether the bot is started and every check passes.
func (s *Server) Ready() bool {
	ok, _ := s.evaluate()
	return ok
}

func (s *Server) evaluate() (bool, map[string]string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ok := s.ready.Load()
	results := make(map[string]string, len(s.names))
	for _, name := range s.names {
		if s.checks[name]() {
			results[name] = "ok"
			continue
		}
		results[name] = "failing"
		ok = false
	}
	return ok, results
}

// Handler returns the health endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if !s.Live() {
			writeStatus(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready"})
			return
		}
		writeStatus(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ok, checks := s.evaluate()
		if !ok {
			writeStatus(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "checks": checks})
			return
		}
		writeStatus(w, http.StatusOK, map[string]any{"status": "ok", "checks": checks})
	})
	return mux
}

// ListenAndServe starts the health check HTTP server.
// It blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("health server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

func writeStatus(w http.ResponseWriter, code int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
