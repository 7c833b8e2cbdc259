// Package adminserver exposes the daemon's operational HTTP surface:
// liveness, Prometheus metrics, and a non-stable debug listing of active
// filters. It is not the filter manager's wire protocol, which remains
// out of scope for this module.
package adminserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nullset-labs/filterd/internal/manager"
	"github.com/nullset-labs/filterd/pkg/logger"
)

// Lister is the subset of *manager.FilterManager the admin surface needs.
type Lister interface {
	List(prefix string) []string
}

// Config holds admin server configuration. Mirrors internal/config's
// AdminConfig shape.
type Config struct {
	Addr string
}

// Server wraps an *http.Server built on a gorilla/mux router, the way
// the alert-history service's internal/api.NewRouter wires its global
// middleware and route groups.
type Server struct {
	httpServer *http.Server
	ready      *readyFlag
}

type readyFlag struct {
	ok bool
}

// New builds the admin HTTP server. registry backs the /metrics handler;
// mgr backs /debug/filters.
func New(cfg Config, mgr Lister, registry *prometheus.Registry, log *slog.Logger) *Server {
	ready := &readyFlag{}
	router := mux.NewRouter()
	router.Use(logger.HTTPMiddleware(log))
	router.Use(logger.Recover(log))

	router.HandleFunc("/healthz", healthzHandler(ready)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/debug/filters", debugFiltersHandler(mgr)).Methods(http.MethodGet)

	return &Server{
		ready: ready,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// MarkReady flips the liveness probe to healthy. Called once Discovery
// has completed.
func (s *Server) MarkReady() {
	s.ready.ok = true
}

// Handler returns the underlying http.Handler, for tests that want to
// drive requests in-process without a listening socket.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func healthzHandler(ready *readyFlag) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ready.ok {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// debugFiltersHandler serves a non-stable JSON snapshot of active filter
// names, for operator inspection only (SPEC_FULL §10.6). It is not the
// daemon's per-key wire protocol.
func debugFiltersHandler(mgr Lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		names := mgr.List(prefix)
		if names == nil {
			names = []string{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(names)
	}
}

var _ Lister = (*manager.FilterManager)(nil)
