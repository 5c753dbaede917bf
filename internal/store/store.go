// Package store provides conversation history persistence.
package store

import (
	"context"

	"github.com/irene-overlay/irene/pkg/models"
)

// DefaultTitlePrefix marks a chat title that has not been renamed or
// auto-generated yet.
const DefaultTitlePrefix = "Chat "

// History is the opaque history service consumed by the message
// pipeline. Conversations and their messages are exclusively owned by
// the implementation; callers only read and request writes.
type History interface {
	// CreateChat creates a chat. An empty title gets a timestamp-derived
	// placeholder.
	CreateChat(ctx context.Context, title string) (int64, error)

	// Chat retrieves a single chat with its summary.
	Chat(ctx context.Context, chatID int64) (*models.Chat, error)

	// Chats lists all chats, most recently active first.
	Chats(ctx context.Context) ([]*models.ChatListEntry, error)

	// DeleteChat removes a chat and its messages.
	DeleteChat(ctx context.Context, chatID int64) error

	// AppendMessage appends one immutable message to a chat.
	AppendMessage(ctx context.Context, chatID int64, role models.Role, content string, kind models.MessageKind, commandInfo string) (int64, error)

	// RecentMessages returns the newest limit messages in chronological
	// (oldest-to-newest) order.
	RecentMessages(ctx context.Context, chatID int64, limit int) ([]models.Message, error)

	// FirstMessages returns the oldest limit messages in chronological
	// order, for title generation.
	FirstMessages(ctx context.Context, chatID int64, limit int) ([]models.Message, error)

	// CountMessages returns the number of messages in a chat.
	CountMessages(ctx context.Context, chatID int64) (int64, error)

	// UpdateTitle replaces a chat's title.
	UpdateTitle(ctx context.Context, chatID int64, title string) error

	// UpdateSummary overwrites a chat's rolling summary.
	UpdateSummary(ctx context.Context, chatID int64, summary string) error

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Close closes the underlying database.
	Close() error
}
