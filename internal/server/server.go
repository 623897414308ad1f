// Package server exposes the HTTP ingestion endpoint for alerts.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/pmarren/alertline/internal/lifecycle"
	"github.com/pmarren/alertline/internal/models"
	"github.com/pmarren/alertline/internal/storage"
)

// Config holds server construction parameters.
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Store        storage.Store
	Errors       lifecycle.ErrorHandler
	Log          zerolog.Logger
}

// Server accepts alert submissions over HTTP and persists them.
type Server struct {
	router *chi.Mux
	server *http.Server
	store  storage.Store
	errors lifecycle.ErrorHandler
	log    zerolog.Logger
}

// New builds the server and its routes.
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		store:  cfg.Store,
		errors: cfg.Errors,
		log:    cfg.Log.With().Str("component", "server").Logger(),
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(s.loggingMiddleware)

	s.router.Post("/alerts", s.handleCreateAlert)
	s.router.Get("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// Name implements lifecycle.Service.
func (s *Server) Name() string { return "ingest-server" }

// Run serves until Stop is called. A clean shutdown reports nil; a bind or
// accept failure is fatal.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Stop stops accepting new connections and drains in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var in models.AlertInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "malformed alert payload", http.StatusBadRequest)
		return
	}
	if err := in.Validate(); err != nil {
		http.Error(w, "incomplete alert payload", http.StatusBadRequest)
		return
	}

	id, err := s.store.InsertAlert(r.Context(), in)
	if err != nil {
		// The caller is responsible for resubmission; no retries here.
		s.errors.OnError(lifecycle.InternalError, fmt.Errorf("failed to insert alert: %w", err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.log.Debug().Int64("id", id).Str("ticker", in.Ticker).Msg("Alert stored")
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
