package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/irene-overlay/irene/internal/exec"
)

type runCommandRequest struct {
	Command string `json:"command"`
}

// RunCommand executes a user-confirmed command and returns the outcome.
// Execution is never implicit: the overlay calls this only after the
// user approves a parsed directive.
func (h *Handler) RunCommand(w http.ResponseWriter, r *http.Request) {
	var req runCommandRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Command == "" {
		Error(w, http.StatusBadRequest, "command is required")
		return
	}

	log.Info().Str("command", req.Command).Msg("Executing confirmed command")
	result := h.svc.RunConfirmedCommand(r.Context(), req.Command)
	JSON(w, http.StatusOK, result)
}

type explainCommandRequest struct {
	Command string      `json:"command"`
	Result  exec.Result `json:"result"`
}

// ExplainCommand asks the model for a plain-language reading of a
// command outcome.
func (h *Handler) ExplainCommand(w http.ResponseWriter, r *http.Request) {
	var req explainCommandRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Command == "" {
		Error(w, http.StatusBadRequest, "command is required")
		return
	}

	explanation, err := h.svc.ExplainCommandResult(r.Context(), req.Command, req.Result)
	if err != nil {
		log.Error().Err(err).Str("command", req.Command).Msg("Explanation failed")
		Error(w, http.StatusInternalServerError, "failed to explain command result")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"explanation": explanation})
}
