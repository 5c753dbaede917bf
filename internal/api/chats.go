package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/irene-overlay/irene/pkg/models"
)

const defaultMessageLimit = 200

// ListChats returns all chats, newest activity first.
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.history.Chats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list chats")
		Error(w, http.StatusInternalServerError, "failed to list chats")
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"chats":   chats,
		"current": h.svc.CurrentChatID(),
	})
}

type createChatRequest struct {
	Title string `json:"title"`
}

// CreateChat creates a chat and makes it the active one.
func (h *Handler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if !decode(w, r, &req) {
		return
	}

	id, err := h.history.CreateChat(r.Context(), req.Title)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create chat")
		Error(w, http.StatusInternalServerError, "failed to create chat")
		return
	}
	if err := h.svc.SwitchChat(r.Context(), id); err != nil {
		Error(w, http.StatusInternalServerError, "failed to activate chat")
		return
	}

	chat, err := h.history.Chat(r.Context(), id)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load chat")
		return
	}
	JSON(w, http.StatusCreated, chat.AsJSON())
}

// DeleteChat removes a chat and its messages. Deleting the active chat
// falls back to the most recently used remaining chat.
func (h *Handler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}

	if err := h.history.DeleteChat(r.Context(), chatID); err != nil {
		log.Error().Err(err).Int64("chatId", chatID).Msg("Failed to delete chat")
		Error(w, http.StatusInternalServerError, "failed to delete chat")
		return
	}

	if h.svc.CurrentChatID() == chatID {
		if err := h.svc.EnsureDefaultChat(r.Context()); err != nil {
			Error(w, http.StatusInternalServerError, "failed to select replacement chat")
			return
		}
	}
	JSON(w, http.StatusOK, map[string]any{
		"deleted": chatID,
		"current": h.svc.CurrentChatID(),
	})
}

type messageJSON struct {
	Role        models.Role        `json:"role"`
	Content     string             `json:"content"`
	Kind        models.MessageKind `json:"kind"`
	CommandInfo string             `json:"command_info,omitempty"`
	Timestamp   string             `json:"timestamp"`
	ID          int64              `json:"id"`
}

// ChatMessages returns up to ?limit= most recent messages in order.
func (h *Handler) ChatMessages(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}

	limit := defaultMessageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	if _, err := h.history.Chat(r.Context(), chatID); err != nil {
		Error(w, http.StatusNotFound, "chat not found")
		return
	}

	msgs, err := h.history.RecentMessages(r.Context(), chatID, limit)
	if err != nil {
		log.Error().Err(err).Int64("chatId", chatID).Msg("Failed to load messages")
		Error(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	out := make([]messageJSON, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageJSON{
			Role:        m.Role,
			Content:     m.Content,
			Kind:        m.Kind,
			CommandInfo: m.CommandInfo.String,
			Timestamp:   m.Timestamp,
			ID:          m.ID,
		})
	}
	JSON(w, http.StatusOK, map[string]any{"messages": out})
}

// ActivateChat switches the conversation cursor to the given chat.
func (h *Handler) ActivateChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.SwitchChat(r.Context(), chatID); err != nil {
		Error(w, http.StatusNotFound, "chat not found")
		return
	}
	JSON(w, http.StatusOK, map[string]int64{"current": chatID})
}

func chatIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil || id <= 0 {
		Error(w, http.StatusBadRequest, "invalid chat id")
		return 0, false
	}
	return id, true
}
