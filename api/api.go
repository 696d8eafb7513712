package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"logwarden/service"
)

// Server exposes the pipeline over REST. It is plumbing around the core:
// request shaping, validation, rate limiting and error translation.
type Server struct {
	router   *mux.Router
	pipeline *service.Pipeline
	validate *validator.Validate
	limiter  *rate.Limiter
	logger   *zap.SugaredLogger
	srv      *http.Server
}

// Options tunes the HTTP server
type Options struct {
	Host              string
	Port              int
	RequestsPerSecond int
	Burst             int
}

// NewServer builds the router and middleware stack
func NewServer(pipeline *service.Pipeline, opts Options, logger *zap.SugaredLogger) *Server {
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 100
	}
	if opts.Burst <= 0 {
		opts.Burst = opts.RequestsPerSecond * 2
	}

	s := &Server{
		router:   mux.NewRouter(),
		pipeline: pipeline,
		validate: validator.New(),
		limiter:  rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		logger:   logger,
	}
	s.routes()

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.Use(s.rateLimitMiddleware)
	s.router.Use(s.loggingMiddleware)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/logs", s.handleSearchLogs).Methods(http.MethodGet)
	api.HandleFunc("/logs", s.handleIngestLine).Methods(http.MethodPost)
	api.HandleFunc("/logs/upload", s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/events", s.handleIngestEvent).Methods(http.MethodPost)
	api.HandleFunc("/alerts", s.handleListAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts/{id}/acknowledge", s.handleAcknowledgeAlert).Methods(http.MethodPost)
	api.HandleFunc("/alerts/{id}/resolve", s.handleResolveAlert).Methods(http.MethodPost)

	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// Handler returns the configured router, used by tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving; it blocks until the listener fails or Shutdown runs
func (s *Server) Start() error {
	s.logger.Infow("API server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
