package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/irene-overlay/irene/pkg/models"
)

// SQLiteStore implements History using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-backed history store at dbPath, creating
// the schema (and running migrations) as needed.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	log.Debug().Str("path", dbPath).Msg("History store opened")
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS chats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		title TEXT DEFAULT 'New Chat',
		summary TEXT
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id INTEGER,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		message_type TEXT DEFAULT 'text',
		command_info TEXT,
		FOREIGN KEY (chat_id) REFERENCES chats (id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// migrate adds the summary column to databases created before it
// existed.
func (s *SQLiteStore) migrate() error {
	rows, err := s.db.Query(`PRAGMA table_info(chats)`)
	if err != nil {
		return err
	}
	defer rows.Close()

	hasSummary := false
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notnull    int
			dfltValue  sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dfltValue, &primaryKey); err != nil {
			return err
		}
		if name == "summary" {
			hasSummary = true
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if !hasSummary {
		log.Info().Msg("Adding summary column to chats table")
		if _, err := s.db.Exec(`ALTER TABLE chats ADD COLUMN summary TEXT`); err != nil {
			return err
		}
	}
	return nil
}

// CreateChat creates a chat, deriving a placeholder title when none is
// given.
func (s *SQLiteStore) CreateChat(ctx context.Context, title string) (int64, error) {
	if title == "" {
		title = DefaultTitlePrefix + time.Now().Format("2006-01-02 15:04")
	}

	result, err := s.db.ExecContext(ctx, `INSERT INTO chats (title) VALUES (?)`, title)
	if err != nil {
		return 0, fmt.Errorf("create chat: %w", err)
	}
	return result.LastInsertId()
}

// Chat retrieves a single chat.
func (s *SQLiteStore) Chat(ctx context.Context, chatID int64) (*models.Chat, error) {
	var chat models.Chat
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, summary, created_at, updated_at FROM chats WHERE id = ?`, chatID,
	).Scan(&chat.ID, &chat.Title, &chat.Summary, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get chat %d: %w", chatID, err)
	}
	return &chat, nil
}

// Chats lists all chats with message statistics, most recently active
// first.
func (s *SQLiteStore) Chats(ctx context.Context) ([]*models.ChatListEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.created_at, c.updated_at,
		       COUNT(m.id), COALESCE(MAX(m.timestamp), '')
		FROM chats c
		LEFT JOIN messages m ON c.id = m.chat_id
		GROUP BY c.id, c.title, c.created_at, c.updated_at
		ORDER BY COALESCE(MAX(m.timestamp), c.created_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var chats []*models.ChatListEntry
	for rows.Next() {
		var entry models.ChatListEntry
		if err := rows.Scan(&entry.ID, &entry.Title, &entry.CreatedAt, &entry.UpdatedAt,
			&entry.MessageCount, &entry.LastMessageTime); err != nil {
			return nil, err
		}
		chats = append(chats, &entry)
	}
	return chats, rows.Err()
}

// DeleteChat removes a chat and, via cascade, its messages.
func (s *SQLiteStore) DeleteChat(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("delete chat messages: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, chatID); err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	return nil
}

// AppendMessage appends one message to a chat.
func (s *SQLiteStore) AppendMessage(ctx context.Context, chatID int64, role models.Role, content string, kind models.MessageKind, commandInfo string) (int64, error) {
	info := sql.NullString{String: commandInfo, Valid: commandInfo != ""}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (chat_id, role, content, message_type, command_info) VALUES (?, ?, ?, ?, ?)`,
		chatID, role, content, kind, info)
	if err != nil {
		return 0, fmt.Errorf("append message: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE chats SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, chatID); err != nil {
		return 0, fmt.Errorf("touch chat: %w", err)
	}
	return result.LastInsertId()
}

// RecentMessages returns the newest limit messages, oldest first.
// Sorting by id keeps ordering stable when timestamps collide within
// one second.
func (s *SQLiteStore) RecentMessages(ctx context.Context, chatID int64, limit int) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, role, content, message_type, command_info, timestamp
		FROM messages WHERE chat_id = ?
		ORDER BY id DESC LIMIT ?`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	// Fetched newest-first; flip to chronological.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// FirstMessages returns the oldest limit messages in chronological
// order.
func (s *SQLiteStore) FirstMessages(ctx context.Context, chatID int64, limit int) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, role, content, message_type, command_info, timestamp
		FROM messages WHERE chat_id = ?
		ORDER BY id ASC LIMIT ?`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("first messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// CountMessages returns the number of messages in a chat.
func (s *SQLiteStore) CountMessages(ctx context.Context, chatID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE chat_id = ?`, chatID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// UpdateTitle replaces a chat's title.
func (s *SQLiteStore) UpdateTitle(ctx context.Context, chatID int64, title string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chats SET title = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, title, chatID)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	return nil
}

// UpdateSummary overwrites a chat's rolling summary. Overwritten, not
// merged: staleness between refreshes is tolerated.
func (s *SQLiteStore) UpdateSummary(ctx context.Context, chatID int64, summary string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chats SET summary = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, summary, chatID)
	if err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanMessages(rows *sql.Rows) ([]models.Message, error) {
	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &m.Kind, &m.CommandInfo, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
