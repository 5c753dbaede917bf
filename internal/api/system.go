package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/irene-overlay/irene/internal/chat"
)

// GetUser returns the stored user identity data.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.svc.UserData())
}

// UpdateUser merges non-empty fields into the stored user data.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req chat.UserData
	if !decode(w, r, &req) {
		return
	}
	JSON(w, http.StatusOK, h.svc.SetUserData(req))
}

// Models reports the rotation order and the model the next turn uses.
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	cfg := h.cfg.Get()
	JSON(w, http.StatusOK, map[string]any{
		"models":     cfg.Models,
		"multimodal": cfg.MultimodalModels,
		"current":    h.svc.CurrentModel(),
	})
}

// ReloadConfig re-reads the configuration file. A failed reload keeps
// the previous configuration active.
func (h *Handler) ReloadConfig(w http.ResponseWriter, r *http.Request) {
	if err := h.cfg.Reload(); err != nil {
		log.Error().Err(err).Msg("Config reload failed")
		Error(w, http.StatusUnprocessableEntity, "config reload failed")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}
