// Package http exposes a read-mostly operator view of a kernel: live units,
// live workers, metrics and health, plus the cancel action.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/notebook/internal/logging"
	"github.com/aretw0/notebook/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Kernel is the subset of the kernel the endpoint needs.
type Kernel interface {
	Units() []string
	Operations(unit string) []string
	Workers() []domain.Worker
	CancelAll() int
	Cancel(id string) bool
	Closed() bool
}

// UnitView is one entry of GET /units.
type UnitView struct {
	Name       string   `json:"name"`
	Operations []string `json:"operations"`
}

// Server serves the introspection endpoint.
type Server struct {
	Kernel   Kernel
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	maxGo    int
}

// Option configures the Server.
type Option func(*Server)

// WithGatherer serves /metrics from g instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the logger used for request failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithGoroutineLimit fails the liveness check above n goroutines.
func WithGoroutineLimit(n int) Option {
	return func(s *Server) {
		s.maxGo = n
	}
}

// NewHandler creates the HTTP handler for k.
func NewHandler(k Kernel, opts ...Option) http.Handler {
	s := &Server{
		Kernel:   k,
		gatherer: prometheus.DefaultGatherer,
		logger:   logging.NewNop(),
		maxGo:    10000,
	}
	for _, opt := range opts {
		opt(s)
	}

	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutines", healthcheck.GoroutineCountCheck(s.maxGo))
	health.AddReadinessCheck("kernel", func() error {
		if k.Closed() {
			return domain.ErrKernelClosed
		}
		return nil
	})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/live", health.LiveEndpoint)
	r.Get("/ready", health.ReadyEndpoint)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/units", s.ListUnits)
	r.Get("/workers", s.ListWorkers)
	r.Post("/cancel", s.CancelAll)
	r.Post("/workers/{id}/cancel", s.CancelWorker)
	return r
}

// ListUnits handles GET /units.
func (s *Server) ListUnits(w http.ResponseWriter, r *http.Request) {
	names := s.Kernel.Units()
	out := make([]UnitView, 0, len(names))
	for _, name := range names {
		ops := s.Kernel.Operations(name)
		if ops == nil {
			ops = []string{}
		}
		out = append(out, UnitView{Name: name, Operations: ops})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// ListWorkers handles GET /workers.
func (s *Server) ListWorkers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Kernel.Workers())
}

// CancelAll handles POST /cancel.
func (s *Server) CancelAll(w http.ResponseWriter, r *http.Request) {
	n := s.Kernel.CancelAll()
	s.logger.Info("cancel requested over http", "interrupted", n)
	s.writeJSON(w, http.StatusAccepted, map[string]int{"interrupted": n})
}

// CancelWorker handles POST /workers/{id}/cancel.
func (s *Server) CancelWorker(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.Kernel.Cancel(id) {
		http.Error(w, "worker not found or already interrupted", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"interrupted": id})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "err", err)
	}
}
