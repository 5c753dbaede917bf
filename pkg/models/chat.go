// Package models contains domain models for irene.
package models

import "database/sql"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MessageKind classifies the payload of a message.
type MessageKind string

const (
	KindText          MessageKind = "text"
	KindCommand       MessageKind = "command"
	KindCommandResult MessageKind = "command_result"
)

// Chat is a named container of conversation messages with an optional
// rolling summary. The summary is overwritten on refresh, never merged.
type Chat struct {
	Title     string         `db:"title" json:"title"`
	CreatedAt string         `db:"created_at" json:"created_at"`
	UpdatedAt string         `db:"updated_at" json:"updated_at"`
	Summary   sql.NullString `db:"summary" json:"-"`
	ID        int64          `db:"id" json:"id"`
}

// ChatListEntry is a chat row decorated with message statistics for
// the chat list in the overlay UI.
type ChatListEntry struct {
	Title           string `json:"title"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
	LastMessageTime string `json:"last_message_time,omitempty"`
	ID              int64  `json:"id"`
	MessageCount    int64  `json:"message_count"`
}

// Message is a single conversation turn. Immutable once stored, ordered
// by timestamp within a chat.
type Message struct {
	Role        Role           `db:"role" json:"role"`
	Content     string         `db:"content" json:"content"`
	Kind        MessageKind    `db:"message_type" json:"kind"`
	CommandInfo sql.NullString `db:"command_info" json:"command_info,omitempty"`
	Timestamp   string         `db:"timestamp" json:"timestamp"`
	ID          int64          `db:"id" json:"id"`
	ChatID      int64          `db:"chat_id" json:"chat_id"`
}

// ChatJSON is a JSON-friendly representation of Chat with the summary
// flattened from sql.NullString.
type ChatJSON struct {
	Title     string `json:"title"`
	Summary   string `json:"summary,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	ID        int64  `json:"id"`
}

// AsJSON converts a Chat into its JSON-friendly form.
func (c *Chat) AsJSON() ChatJSON {
	j := ChatJSON{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.Summary.Valid {
		j.Summary = c.Summary.String
	}
	return j
}
