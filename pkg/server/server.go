// Package server exposes the analysis, ingestion, and question answering
// APIs over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clio-ai/clio/pkg/agent"
	"github.com/clio-ai/clio/pkg/config"
	"github.com/clio-ai/clio/pkg/rag"
)

// Server wires the agent and document store behind an HTTP API.
type Server struct {
	cfg      *config.ServerConfig
	agent    *agent.Agent
	store    *rag.Store
	registry *prometheus.Registry
	http     *http.Server
}

// New builds a server. The prometheus registry may already hold the store's
// collectors; pass nil to create a fresh one.
func New(cfg *config.ServerConfig, ag *agent.Agent, store *rag.Store, registry *prometheus.Registry) *Server {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	s := &Server{
		cfg:      cfg,
		agent:    ag,
		store:    store,
		registry: registry,
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze-text", s.handleAnalyzeText)
		r.Post("/analyze-file", s.handleAnalyzeFile)
		r.Post("/index", s.handleIndex)
		r.Post("/ask", s.handleAsk)
		r.Post("/search", s.handleSearch)
		r.Get("/stats", s.handleStats)
		r.Post("/reset", s.handleReset)
	})

	return r
}

// ListenAndServe runs the server until the context is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
