// Package server exposes the visualization pipeline over HTTP.
//
// Routes:
//
//	POST /api/v1/visualize   multipart upload, returns the autonomous document
//	GET  /api/v1/runs        recent run records
//	GET  /api/v1/runs/{uid}  run record of a session
//	GET  /healthz            build information
//	GET  /metrics            prometheus metrics, when a gatherer is configured
//
// Every visualize request runs in its own workspace; nothing but the run
// record outlives the request.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/rpviz/pkg/buildinfo"
	rperrors "github.com/matzehuels/rpviz/pkg/errors"
	"github.com/matzehuels/rpviz/pkg/observability"
	"github.com/matzehuels/rpviz/pkg/pipeline"
	"github.com/matzehuels/rpviz/pkg/publish"
	"github.com/matzehuels/rpviz/pkg/runlog"
)

const (
	// DefaultMaxConcurrent bounds simultaneous visualize requests.
	DefaultMaxConcurrent = 4

	// DefaultMaxUploadBytes bounds the multipart request body.
	DefaultMaxUploadBytes = 256 << 20

	shutdownTimeout = 30 * time.Second
	queueTimeout    = time.Minute
)

// Config wires the server's collaborators.
type Config struct {
	Runner    *pipeline.Runner
	Runs      runlog.Store        // nil disables run records
	Publisher publish.Publisher   // nil keeps documents in the response only
	Gatherer  prometheus.Gatherer // nil disables /metrics

	MaxConcurrent  int
	MaxUploadBytes int64

	// Pipeline settings applied to every request.
	TempDir          string
	CofactorTable    string
	TemplateDir      string
	Workers          int
	DepictionTimeout time.Duration

	Logger *log.Logger
}

// Server handles HTTP requests.
type Server struct {
	cfg    Config
	logger *log.Logger
	router chi.Router
}

// New builds the router.
func New(cfg Config) *Server {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	s := &Server{cfg: cfg, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.ThrottleBacklog(cfg.MaxConcurrent, 4*cfg.MaxConcurrent, queueTimeout)).
			Post("/visualize", s.handleVisualize)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{uid}", s.handleRun)
	})
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.Server().OnRequest(r.Context(), r.Method, route, status, time.Since(start))
		s.logger.Debug("request", "method", r.Method, "route", route, "status", status,
			"duration", time.Since(start).Round(time.Millisecond), "request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "build": buildinfo.Get()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// statusFor maps a pipeline error to a response status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	switch rperrors.GetCode(err) {
	case rperrors.ErrCodeInvalidInput, rperrors.ErrCodeInputFormat, rperrors.ErrCodeUnsupported:
		return http.StatusBadRequest
	case rperrors.ErrCodeInjection:
		return http.StatusUnprocessableEntity
	case rperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case rperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
