// Package server exposes the dispatch engine over HTTP: schedule runs,
// stored run history, Prometheus metrics, and a websocket that streams the
// assignments of a run as they are committed.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/dispatch-sim/dispatch-sim/sim/store"
)

// Server is the dispatch REST API server.
type Server struct {
	router    chi.Router
	log       *logrus.Entry
	startTime time.Time
	store     store.Store // optional; runs are not persisted when nil
	metrics   *Metrics
	registry  *prometheus.Registry
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithStore persists every successful run to st.
func WithStore(st store.Store) Option {
	return func(s *Server) {
		s.store = st
	}
}

// New creates a Server with all routes registered. Each Server owns its own
// Prometheus registry so several can coexist in one process.
func New(opts ...Option) *Server {
	reg := prometheus.NewRegistry()
	s := &Server{
		router:    chi.NewRouter(),
		log:       logrus.WithField("component", "server"),
		startTime: time.Now(),
		metrics:   NewMetrics(reg),
		registry:  reg,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.log))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/policies", s.handleListPolicies)
		r.Route("/schedules", func(r chi.Router) {
			r.Post("/", s.handleCreateSchedule)
			r.Get("/", s.handleListSchedules)
			r.Get("/{id}", s.handleGetSchedule)
		})
		r.Get("/stream", s.handleStream)
	})
}
