// Package web exposes the dashboard over HTTP: JSON views of the store, a
// server-sent event stream of overview updates, and operational endpoints.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roadwatch/roadwatch/internal/store"
)

// Server serves read-only dashboard views of a store.
type Server struct {
	logger      *slog.Logger
	store       *store.Store
	recentLimit int
}

// New creates a Server over the given store. recentLimit sizes the
// notification slice of overview responses and the stream.
func New(st *store.Store, logger *slog.Logger, recentLimit int) *Server {
	return &Server{
		logger:      logger,
		store:       st,
		recentLimit: recentLimit,
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/overview", s.handleOverview)
		r.Get("/collections/{name}", s.handleCollection)
		r.Get("/notifications", s.handleNotifications)
		r.Get("/stream", s.handleStream)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"revision": s.store.Snapshot().Revision(),
	})
}

// writeJSON serializes v as the response body with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encoding failed", "error", err)
	}
}

// writeError maps a store rejection to an HTTP error response.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var se *store.Error
	if errors.As(err, &se) {
		switch se.Code {
		case store.ErrCodeNotFound:
			status = http.StatusNotFound
		case store.ErrCodeInvalidArgument:
			status = http.StatusBadRequest
		case store.ErrCodeDuplicateKey:
			status = http.StatusConflict
		}
		s.writeJSON(w, status, map[string]any{
			"code":  se.Code,
			"error": se.Message,
		})
		return
	}

	s.writeJSON(w, status, map[string]any{
		"code":  "INTERNAL",
		"error": err.Error(),
	})
}
