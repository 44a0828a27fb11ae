// Package ops exposes the operator HTTP surface: status snapshot,
// forced refresh, catalog, reset, health and metrics. It is a thin
// layer over the scheduler; no refresh logic lives here.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/XavierBriggs/Moneta/internal/fetch"
	"github.com/XavierBriggs/Moneta/internal/metrics"
	"github.com/XavierBriggs/Moneta/internal/scheduler"
	"github.com/XavierBriggs/Moneta/pkg/models"
)

// Server serves the operator API.
type Server struct {
	sched  *scheduler.Scheduler
	log    *logrus.Entry
	router chi.Router
	srv    *http.Server
}

// response is the envelope for every JSON reply.
type response struct {
	Code   models.OpCode          `json:"code,omitempty"`
	Error  string                 `json:"error,omitempty"`
	Report *models.RefreshReport  `json:"report,omitempty"`
	Status *models.StatusSnapshot `json:"status,omitempty"`
	Sports []models.RawSport      `json:"sports,omitempty"`
}

// NewServer builds the server and its routes.
func NewServer(addr string, sched *scheduler.Scheduler, met *metrics.Set, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Server{
		sched: sched,
		log:   logger.WithField("component", "ops"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(met.Registry(), promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/catalog", s.handleCatalog)
		r.Post("/force-refresh", s.handleForceRefresh)
		r.Post("/reset", s.handleReset)
	})

	s.router = r
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 70 * time.Second,
	}
	return s
}

// Handler returns the route tree. Test hook and embedding point.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.WithField("addr", s.srv.Addr).Info("operator API listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.sched.Status()
	writeJSON(w, http.StatusOK, response{Code: models.CodeOK, Status: &status})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	sports, err := s.sched.Catalog(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Code: models.CodeOK, Sports: sports})
}

func (s *Server) handleForceRefresh(w http.ResponseWriter, r *http.Request) {
	// No sport selects the next eligible one.
	sport := r.URL.Query().Get("sport")

	report, err := s.sched.ForceRefresh(r.Context(), sport)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Code: models.CodeOK, Report: report})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.sched.Reset()
	writeJSON(w, http.StatusOK, response{Code: models.CodeOK})
}

// writeError maps scheduler and fetch errors onto the response codes
// the operator branches on.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code, status := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).Warn("operator request failed")
	}
	writeJSON(w, status, response{Code: code, Error: err.Error()})
}

func classify(err error) (models.OpCode, int) {
	switch {
	case errors.Is(err, scheduler.ErrBusy):
		return models.CodeBusy, http.StatusConflict
	case errors.Is(err, scheduler.ErrHalted):
		return models.CodeUnauthorized, http.StatusServiceUnavailable
	case errors.Is(err, scheduler.ErrUnknownSport):
		return "", http.StatusNotFound
	}

	switch fetch.KindOf(err) {
	case fetch.KindQuotaExhausted:
		return models.CodeQuotaExhausted, http.StatusTooManyRequests
	case fetch.KindAlreadyUpdated:
		return models.CodeAlreadyUpdated, http.StatusConflict
	case fetch.KindUnauthorized:
		return models.CodeUnauthorized, http.StatusBadGateway
	case fetch.KindRateLimited:
		return models.CodeQuotaExhausted, http.StatusTooManyRequests
	}
	return "", http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
