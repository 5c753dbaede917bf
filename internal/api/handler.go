// Package api exposes the assistant pipeline over HTTP for the
// desktop overlay shell.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/irene-overlay/irene/internal/chat"
	"github.com/irene-overlay/irene/internal/config"
	"github.com/irene-overlay/irene/internal/store"
)

// ConfigManager is the reloadable configuration surface the handlers
// need. *config.Manager satisfies it.
type ConfigManager interface {
	Get() config.Config
	Reload() error
}

// Handler holds the dependencies shared by all endpoints.
type Handler struct {
	svc     *chat.Service
	history store.History
	cfg     ConfigManager
}

// NewHandler creates a Handler with common dependencies.
func NewHandler(svc *chat.Service, history store.History, cfg ConfigManager) *Handler {
	return &Handler{svc: svc, history: history, cfg: cfg}
}

// Router builds the HTTP routing table.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", h.SendMessage)
		r.Post("/parse", h.ParseResponse)
		r.Post("/translate", h.TranslateCommand)

		r.Post("/commands/run", h.RunCommand)
		r.Post("/commands/explain", h.ExplainCommand)

		r.Get("/chats", h.ListChats)
		r.Post("/chats", h.CreateChat)
		r.Delete("/chats/{chatID}", h.DeleteChat)
		r.Get("/chats/{chatID}/messages", h.ChatMessages)
		r.Post("/chats/{chatID}/activate", h.ActivateChat)

		r.Get("/user", h.GetUser)
		r.Put("/user", h.UpdateUser)

		r.Get("/models", h.Models)
		r.Post("/config/reload", h.ReloadConfig)
	})

	return r
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("requestId", middleware.GetReqID(r.Context())).
			Msg("Request handled")
	})
}

// Health reports process and database liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Ping(r.Context()); err != nil {
		Error(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
