package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/irene-overlay/irene/internal/parser"
)

type sendMessageRequest struct {
	Message string   `json:"message"`
	Images  []string `json:"images,omitempty"`
	Model   string   `json:"model,omitempty"`
}

type sendMessageResponse struct {
	Response   string        `json:"response"`
	Model      string        `json:"model,omitempty"`
	IsFallback bool          `json:"is_fallback,omitempty"`
	Parsed     parser.Result `json:"parsed"`
	TokenUsage any           `json:"token_usage,omitempty"`
	ChatID     int64         `json:"chat_id"`
}

// SendMessage runs one conversation turn and classifies the reply.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Message == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	result, err := h.svc.SendUserMessage(r.Context(), req.Message, req.Images, req.Model)
	if err != nil {
		log.Error().Err(err).Msg("Send message failed")
		Error(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	JSON(w, http.StatusOK, sendMessageResponse{
		Response:   result.Response,
		Model:      result.Model,
		IsFallback: result.IsFallback,
		Parsed:     h.svc.ParseAssistantResponse(result.Response),
		TokenUsage: result.TokenUsage,
		ChatID:     h.svc.CurrentChatID(),
	})
}

type parseRequest struct {
	Text string `json:"text"`
}

// ParseResponse classifies arbitrary model text without running a turn.
func (h *Handler) ParseResponse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !decode(w, r, &req) {
		return
	}
	JSON(w, http.StatusOK, h.svc.ParseAssistantResponse(req.Text))
}

type translateRequest struct {
	Command string `json:"command"`
}

// TranslateCommand rewrites a Unix-style command for the Windows shell.
func (h *Handler) TranslateCommand(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Command == "" {
		Error(w, http.StatusBadRequest, "command is required")
		return
	}
	JSON(w, http.StatusOK, map[string]string{
		"original":   req.Command,
		"translated": h.svc.TranslateCommand(req.Command),
	})
}
