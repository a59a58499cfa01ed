package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/kmein/menstruation-telegram/internal/usecase"
)

// Pinger is the health probe over the storage backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// JobCounter reports how many subscription triggers are scheduled.
type JobCounter interface {
	JobCount() int
}

// Server exposes the operational surface: health, metrics, and a small
// read-only stats endpoint.
type Server struct {
	settingsUC usecase.SettingsUseCase
	jobs       JobCounter
	pinger     Pinger
	log        *zerolog.Logger
}

func NewServer(settingsUC usecase.SettingsUseCase, jobs JobCounter, pinger Pinger, logger *zerolog.Logger) *Server {
	compLog := logger.With().Str("component", "WebServer").Logger()
	return &Server{settingsUC: settingsUC, jobs: jobs, pinger: pinger, log: &compLog}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/stats", s.handleStats)
	return r
}

// ListenAndServe blocks until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router()}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", addr).Msg("admin server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			s.log.Error().Err(err).Msg("health check failed")
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type statsResponse struct {
	Registered int `json:"registered"`
	Subscribed int `json:"subscribed"`
	Jobs       int `json:"jobs"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	registered, subscribed, err := s.settingsUC.Status(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("stats failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	resp := statsResponse{Registered: registered, Subscribed: subscribed}
	if s.jobs != nil {
		resp.Jobs = s.jobs.JobCount()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
