package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/irene-overlay/irene/pkg/models"
)

// SQLiteSuite is a test suite for the SQLite history store.
type SQLiteSuite struct {
	suite.Suite
	store *SQLiteStore
	ctx   context.Context
}

func (s *SQLiteSuite) SetupTest() {
	dbPath := filepath.Join(s.T().TempDir(), "conversations.db")
	store, err := NewSQLite(dbPath)
	s.Require().NoError(err)
	s.store = store
	s.ctx = context.Background()
}

func (s *SQLiteSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func TestSQLiteSuite(t *testing.T) {
	suite.Run(t, new(SQLiteSuite))
}

func (s *SQLiteSuite) TestCreateChat_DefaultTitle() {
	id, err := s.store.CreateChat(s.ctx, "")
	s.Require().NoError(err)
	s.Greater(id, int64(0))

	chat, err := s.store.Chat(s.ctx, id)
	s.Require().NoError(err)
	s.True(strings.HasPrefix(chat.Title, DefaultTitlePrefix))
	s.False(chat.Summary.Valid)
}

func (s *SQLiteSuite) TestCreateChat_ExplicitTitle() {
	id, err := s.store.CreateChat(s.ctx, "Welcome Chat")
	s.Require().NoError(err)

	chat, err := s.store.Chat(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("Welcome Chat", chat.Title)
}

func (s *SQLiteSuite) TestAppendAndRecentMessages() {
	chatID, err := s.store.CreateChat(s.ctx, "t")
	s.Require().NoError(err)

	for _, content := range []string{"one", "two", "three", "four"} {
		_, err := s.store.AppendMessage(s.ctx, chatID, models.RoleUser, content, models.KindText, "")
		s.Require().NoError(err)
	}

	// Newest 3, returned chronologically.
	msgs, err := s.store.RecentMessages(s.ctx, chatID, 3)
	s.Require().NoError(err)
	s.Require().Len(msgs, 3)
	s.Equal("two", msgs[0].Content)
	s.Equal("three", msgs[1].Content)
	s.Equal("four", msgs[2].Content)
}

func (s *SQLiteSuite) TestFirstMessages() {
	chatID, err := s.store.CreateChat(s.ctx, "t")
	s.Require().NoError(err)

	for _, content := range []string{"one", "two", "three"} {
		_, err := s.store.AppendMessage(s.ctx, chatID, models.RoleUser, content, models.KindText, "")
		s.Require().NoError(err)
	}

	msgs, err := s.store.FirstMessages(s.ctx, chatID, 2)
	s.Require().NoError(err)
	s.Require().Len(msgs, 2)
	s.Equal("one", msgs[0].Content)
	s.Equal("two", msgs[1].Content)
}

func (s *SQLiteSuite) TestAppendMessage_CommandInfo() {
	chatID, err := s.store.CreateChat(s.ctx, "t")
	s.Require().NoError(err)

	_, err = s.store.AppendMessage(s.ctx, chatID, models.RoleSystem,
		"Command executed: dir", models.KindCommandResult, `{"command":"dir","success":true}`)
	s.Require().NoError(err)

	msgs, err := s.store.RecentMessages(s.ctx, chatID, 10)
	s.Require().NoError(err)
	s.Require().Len(msgs, 1)
	s.Equal(models.KindCommandResult, msgs[0].Kind)
	s.True(msgs[0].CommandInfo.Valid)
	s.Contains(msgs[0].CommandInfo.String, `"dir"`)
}

func (s *SQLiteSuite) TestCountMessages() {
	chatID, err := s.store.CreateChat(s.ctx, "t")
	s.Require().NoError(err)

	count, err := s.store.CountMessages(s.ctx, chatID)
	s.Require().NoError(err)
	s.Zero(count)

	_, err = s.store.AppendMessage(s.ctx, chatID, models.RoleUser, "hi", models.KindText, "")
	s.Require().NoError(err)

	count, err = s.store.CountMessages(s.ctx, chatID)
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func (s *SQLiteSuite) TestUpdateTitleAndSummary() {
	chatID, err := s.store.CreateChat(s.ctx, "")
	s.Require().NoError(err)

	s.Require().NoError(s.store.UpdateTitle(s.ctx, chatID, "Desktop Cleanup"))
	s.Require().NoError(s.store.UpdateSummary(s.ctx, chatID, "talked about files"))

	chat, err := s.store.Chat(s.ctx, chatID)
	s.Require().NoError(err)
	s.Equal("Desktop Cleanup", chat.Title)
	s.Require().True(chat.Summary.Valid)
	s.Equal("talked about files", chat.Summary.String)

	// Summary is overwritten, never merged.
	s.Require().NoError(s.store.UpdateSummary(s.ctx, chatID, "fresh summary"))
	chat, err = s.store.Chat(s.ctx, chatID)
	s.Require().NoError(err)
	s.Equal("fresh summary", chat.Summary.String)
}

func (s *SQLiteSuite) TestChatsListing() {
	first, err := s.store.CreateChat(s.ctx, "first")
	s.Require().NoError(err)
	second, err := s.store.CreateChat(s.ctx, "second")
	s.Require().NoError(err)

	_, err = s.store.AppendMessage(s.ctx, first, models.RoleUser, "hello", models.KindText, "")
	s.Require().NoError(err)

	chats, err := s.store.Chats(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(chats, 2)

	byID := map[int64]*models.ChatListEntry{}
	for _, c := range chats {
		byID[c.ID] = c
	}
	s.Equal(int64(1), byID[first].MessageCount)
	s.Equal(int64(0), byID[second].MessageCount)
}

func (s *SQLiteSuite) TestDeleteChat() {
	chatID, err := s.store.CreateChat(s.ctx, "doomed")
	s.Require().NoError(err)
	_, err = s.store.AppendMessage(s.ctx, chatID, models.RoleUser, "bye", models.KindText, "")
	s.Require().NoError(err)

	s.Require().NoError(s.store.DeleteChat(s.ctx, chatID))

	_, err = s.store.Chat(s.ctx, chatID)
	s.Error(err)

	count, err := s.store.CountMessages(s.ctx, chatID)
	s.Require().NoError(err)
	s.Zero(count)
}

func TestMigrate_AddsSummaryColumn(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "legacy.db")

	// Open once to create the schema, then drop the summary column to
	// simulate a pre-summary database.
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	_, err = s.db.Exec(`ALTER TABLE chats DROP COLUMN summary`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening must restore the column.
	s, err = NewSQLite(dbPath)
	require.NoError(t, err)
	defer s.Close()

	chatID, err := s.CreateChat(context.Background(), "migrated")
	require.NoError(t, err)
	require.NoError(t, s.UpdateSummary(context.Background(), chatID, "works"))

	chat, err := s.Chat(context.Background(), chatID)
	require.NoError(t, err)
	assert.Equal(t, "works", chat.Summary.String)
}
