// Package api serves the HTTP surface: the websocket gateway endpoint, the
// population counters, per-identity online lookups, health and metrics.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	googleuuid "github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AxolotlClient/AxolotlClient-API/internal/user"
	"github.com/AxolotlClient/AxolotlClient-API/pkg/interfaces"
)

// Server builds the router. The gateway handler is injected as a plain
// http.Handler so this package stays transport-agnostic.
type Server struct {
	gateway  http.Handler
	presence interfaces.PresenceView
	users    *user.Manager
	registry *prometheus.Registry
	log      *slog.Logger
}

func NewServer(gateway http.Handler, presence interfaces.PresenceView, users *user.Manager, registry *prometheus.Registry, log *slog.Logger) *Server {
	return &Server{
		gateway:  gateway,
		presence: presence,
		users:    users,
		registry: registry,
		log:      log.With("component", "api"),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Handle("/gateway", s.gateway)
		r.Get("/count", s.handleCount)
		r.Get("/users/{uuid}/online", s.handleUserOnline)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	counts, err := s.users.Counts(r.Context())
	if err != nil {
		s.log.Error("count query failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "count unavailable"})
		return
	}
	s.writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleUserOnline(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "uuid")
	id, err := googleuuid.Parse(raw)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid uuid"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"uuid":   id.String(),
		"online": s.presence.IsOnline(id.String()),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to write response", "error", err)
	}
}
