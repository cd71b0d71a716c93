// Package api serves the operational HTTP endpoints of the worker.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"finalscore/bot/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// BaselineReader reads the persisted baseline
type BaselineReader interface {
	Load(ctx context.Context) ([]models.GameRecord, error)
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// Handler holds the dependencies of the ops endpoints
type Handler struct {
	store  BaselineReader
	checks map[string]HealthCheck
	live   http.Handler
}

// NewHandler creates a new ops handler
func NewHandler(store BaselineReader, checks map[string]HealthCheck) *Handler {
	if checks == nil {
		checks = map[string]HealthCheck{}
	}
	return &Handler{store: store, checks: checks}
}

// WithLiveFeed mounts live at /ws
func (h *Handler) WithLiveFeed(live http.Handler) *Handler {
	h.live = live
	return h
}

// NewRouter wires the ops endpoints
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept"},
			MaxAge:         300,
		}))
	}

	// Routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))

		r.Get("/health", h.HealthCheck)
		r.Get("/baseline", h.Baseline)
		r.Handle("/metrics", promhttp.Handler())
	})

	// Long-lived, so outside the request timeout
	if h.live != nil {
		r.Handle("/ws", h.live)
	}

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthCheck runs every dependency check
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy"}
	status := http.StatusOK

	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, status, resp)
}

type baselineGame struct {
	models.GameRecord
	Message string `json:"message"`
}

type baselineResponse struct {
	Count int            `json:"count"`
	Games []baselineGame `json:"games"`
}

// Baseline returns the games announced since the last daily reset
func (h *Handler) Baseline(w http.ResponseWriter, r *http.Request) {
	games, err := h.store.Load(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load baseline for ops API")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load baseline"})
		return
	}

	resp := baselineResponse{Count: len(games), Games: make([]baselineGame, 0, len(games))}
	for _, g := range games {
		resp.Games = append(resp.Games, baselineGame{GameRecord: g, Message: g.Message()})
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}
