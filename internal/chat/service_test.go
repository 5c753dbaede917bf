package chat

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irene-overlay/irene/internal/config"
	"github.com/irene-overlay/irene/internal/exec"
	"github.com/irene-overlay/irene/internal/gemini"
	"github.com/irene-overlay/irene/internal/parser"
	"github.com/irene-overlay/irene/internal/store"
	"github.com/irene-overlay/irene/pkg/models"
)

type staticSource struct {
	cfg config.Config
}

func (s staticSource) Get() config.Config { return s.cfg }

// fakeModel scripts responses and records calls.
type fakeModel struct {
	response     string
	generateErr  error
	prompts      []string
	summaryCalls int
	titleCalls   int
	explainCalls int
	setModels    []string
}

func (f *fakeModel) GenerateContent(_ context.Context, message string, _ []string) (*gemini.GenerateResult, error) {
	f.prompts = append(f.prompts, message)
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return &gemini.GenerateResult{Text: f.response, Model: "fake-model"}, nil
}

func (f *fakeModel) GenerateSummary(context.Context, []models.Message) (string, error) {
	f.summaryCalls++
	return "generated summary", nil
}

func (f *fakeModel) GenerateTitle(context.Context, []models.Message) (string, error) {
	f.titleCalls++
	return "Generated Title", nil
}

func (f *fakeModel) ExplainCommandResult(context.Context, gemini.CommandOutcome) (string, error) {
	f.explainCalls++
	return "explanation", nil
}

func (f *fakeModel) SetModel(name string) { f.setModels = append(f.setModels, name) }
func (f *fakeModel) CurrentModel() string { return "fake-model" }

// captureRunner records the executed command.
type captureRunner struct {
	commands []string
	result   exec.Result
}

func (c *captureRunner) Run(_ context.Context, command string) exec.Result {
	c.commands = append(c.commands, command)
	return c.result
}

func testService(t *testing.T, model *fakeModel, runner CommandRunner) (*Service, store.History) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	history, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { history.Close() })

	cfg := config.Default()
	cfg.SummarizeEvery = 30
	cfg.TitleAfter = 4

	svc := NewService(staticSource{cfg}, history, model, runner)
	require.NoError(t, svc.EnsureDefaultChat(context.Background()))
	return svc, history
}

func seedMessages(t *testing.T, history store.History, chatID int64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		_, err := history.AppendMessage(context.Background(), chatID, role, "seed message", models.KindText, "")
		require.NoError(t, err)
	}
}

func TestEnsureDefaultChat_CreatesWelcomeChat(t *testing.T) {
	svc, history := testService(t, &fakeModel{response: "hi"}, &captureRunner{})

	chatID := svc.CurrentChatID()
	require.NotZero(t, chatID)

	chat, err := history.Chat(context.Background(), chatID)
	require.NoError(t, err)
	assert.Equal(t, "Welcome Chat", chat.Title)
}

func TestSendUserMessage_HappyPath(t *testing.T) {
	model := &fakeModel{response: "hello there"}
	svc, history := testService(t, model, &captureRunner{})

	result, err := svc.SendUserMessage(context.Background(), "hi", nil, "")

	require.NoError(t, err)
	assert.Equal(t, "hello there", result.Response)
	assert.False(t, result.IsFallback)

	// Both sides of the exchange are persisted, user first.
	msgs, err := history.RecentMessages(context.Background(), svc.CurrentChatID(), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "hello there", msgs[1].Content)
}

func TestSendUserMessage_PromptCarriesHistoryAndIdentity(t *testing.T) {
	model := &fakeModel{response: "ok"}
	svc, history := testService(t, model, &captureRunner{})
	seedMessages(t, history, svc.CurrentChatID(), 2)

	svc.SetUserData(UserData{Name: "Ada"})
	_, err := svc.SendUserMessage(context.Background(), "next question", nil, "")
	require.NoError(t, err)

	require.Len(t, model.prompts, 1)
	prompt := model.prompts[0]
	assert.Contains(t, prompt, "User Info: Name: Ada.")
	assert.Contains(t, prompt, "seed message")
	assert.Contains(t, prompt, "Current message:\nnext question")
}

func TestSendUserMessage_StripsPrivateContent(t *testing.T) {
	model := &fakeModel{response: "ok"}
	svc, history := testService(t, model, &captureRunner{})

	_, err := svc.SendUserMessage(context.Background(),
		"remind me about <private>the surprise party</private> tomorrow", nil, "")
	require.NoError(t, err)

	require.Len(t, model.prompts, 1)
	assert.NotContains(t, model.prompts[0], "surprise party")

	msgs, err := history.RecentMessages(context.Background(), svc.CurrentChatID(), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.NotContains(t, msgs[0].Content, "surprise party")
}

func TestSendUserMessage_FallbackOnModelFailure(t *testing.T) {
	model := &fakeModel{generateErr: errors.New("network down")}
	svc, history := testService(t, model, &captureRunner{})

	result, err := svc.SendUserMessage(context.Background(), "hi", nil, "")

	require.NoError(t, err)
	assert.True(t, result.IsFallback)
	assert.Equal(t, config.Default().FallbackResponse, result.Response)

	// The user's message survives the failure, followed by the
	// annotated fallback assistant turn.
	msgs, merr := history.RecentMessages(context.Background(), svc.CurrentChatID(), 10)
	require.NoError(t, merr)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "(fallback)")
}

func TestSendUserMessage_FailedTurnStillFeedsNextContext(t *testing.T) {
	model := &fakeModel{generateErr: errors.New("network down")}
	svc, _ := testService(t, model, &captureRunner{})

	_, err := svc.SendUserMessage(context.Background(), "what is a quine", nil, "")
	require.NoError(t, err)

	model.generateErr = nil
	model.response = "ok"
	_, err = svc.SendUserMessage(context.Background(), "try again", nil, "")
	require.NoError(t, err)

	// The second turn's prompt carries the failed turn's user message
	// as history.
	require.Len(t, model.prompts, 2)
	assert.Contains(t, model.prompts[1], "User: what is a quine")
}

func TestSendUserMessage_EntirelyPrivateRejected(t *testing.T) {
	model := &fakeModel{response: "ok"}
	svc, history := testService(t, model, &captureRunner{})

	_, err := svc.SendUserMessage(context.Background(), "<private>only secrets</private>", nil, "")

	require.Error(t, err)
	assert.Empty(t, model.prompts)

	msgs, merr := history.RecentMessages(context.Background(), svc.CurrentChatID(), 10)
	require.NoError(t, merr)
	assert.Empty(t, msgs)
}

func TestSendUserMessage_ModelOverride(t *testing.T) {
	model := &fakeModel{response: "ok"}
	svc, _ := testService(t, model, &captureRunner{})

	_, err := svc.SendUserMessage(context.Background(), "hi", nil, "gemini-2.5-pro")

	require.NoError(t, err)
	assert.Equal(t, []string{"gemini-2.5-pro"}, model.setModels)
}

func TestSendUserMessage_SummarizationTrigger(t *testing.T) {
	model := &fakeModel{response: "ok"}
	svc, history := testService(t, model, &captureRunner{})
	seedMessages(t, history, svc.CurrentChatID(), 30)

	_, err := svc.SendUserMessage(context.Background(), "hi", nil, "")

	require.NoError(t, err)
	assert.Equal(t, 1, model.summaryCalls)

	chat, err := history.Chat(context.Background(), svc.CurrentChatID())
	require.NoError(t, err)
	require.True(t, chat.Summary.Valid)
	assert.Equal(t, "generated summary", chat.Summary.String)
}

func TestSendUserMessage_NoSummarizationOffThreshold(t *testing.T) {
	model := &fakeModel{response: "ok"}
	svc, history := testService(t, model, &captureRunner{})
	seedMessages(t, history, svc.CurrentChatID(), 12)

	_, err := svc.SendUserMessage(context.Background(), "hi", nil, "")

	require.NoError(t, err)
	assert.Zero(t, model.summaryCalls)
}

func TestSendUserMessage_TitleTrigger(t *testing.T) {
	model := &fakeModel{response: "ok"}
	svc, history := testService(t, model, &captureRunner{})

	// Title generation needs the placeholder title form.
	chatID, err := history.CreateChat(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, svc.SwitchChat(context.Background(), chatID))
	seedMessages(t, history, chatID, 4)

	_, err = svc.SendUserMessage(context.Background(), "hi", nil, "")
	require.NoError(t, err)
	assert.Equal(t, 1, model.titleCalls)

	chat, err := history.Chat(context.Background(), chatID)
	require.NoError(t, err)
	assert.Equal(t, "Generated Title", chat.Title)
}

func TestSendUserMessage_NoTitlePastThreshold(t *testing.T) {
	model := &fakeModel{response: "ok"}
	svc, history := testService(t, model, &captureRunner{})

	chatID, err := history.CreateChat(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, svc.SwitchChat(context.Background(), chatID))
	seedMessages(t, history, chatID, 5)

	_, err = svc.SendUserMessage(context.Background(), "hi", nil, "")
	require.NoError(t, err)
	assert.Zero(t, model.titleCalls)
}

func TestRunConfirmedCommand_RecordsHistory(t *testing.T) {
	runner := &captureRunner{result: exec.Result{Success: true, Stdout: "file1\nfile2"}}
	svc, history := testService(t, &fakeModel{response: "ok"}, runner)

	result := svc.RunConfirmedCommand(context.Background(), "dir")

	assert.True(t, result.Success)
	assert.Equal(t, []string{"dir"}, runner.commands)

	msgs, err := history.RecentMessages(context.Background(), svc.CurrentChatID(), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.RoleSystem, msgs[0].Role)
	assert.Equal(t, models.KindCommandResult, msgs[0].Kind)
	assert.Contains(t, msgs[0].Content, "Command executed: dir")
	assert.Contains(t, msgs[0].Content, "file1")
	require.True(t, msgs[0].CommandInfo.Valid)
	assert.Contains(t, msgs[0].CommandInfo.String, `"success":true`)
}

func TestRunConfirmedCommand_RecordsFailure(t *testing.T) {
	runner := &captureRunner{result: exec.Result{Success: false, Error: "exit status 1", Stderr: "no such file"}}
	svc, history := testService(t, &fakeModel{response: "ok"}, runner)

	result := svc.RunConfirmedCommand(context.Background(), "del missing.txt")

	assert.False(t, result.Success)

	msgs, err := history.RecentMessages(context.Background(), svc.CurrentChatID(), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "Command failed: del missing.txt")
	assert.Contains(t, msgs[0].Content, "no such file")
}

func TestExplainCommandResult(t *testing.T) {
	model := &fakeModel{response: "ok"}
	svc, _ := testService(t, model, &captureRunner{})

	explanation, err := svc.ExplainCommandResult(context.Background(), "dir",
		exec.Result{Success: true, Stdout: "files"})

	require.NoError(t, err)
	assert.Equal(t, "explanation", explanation)
	assert.Equal(t, 1, model.explainCalls)
}

// Full request/response cycle: directive extraction, translation, and
// confirmed execution with the translated command.
func TestEndToEnd_ListFilesScenario(t *testing.T) {
	directive := "```\n{\n  INTENTION: System Command\n  COMMAND: ls ~/Desktop\n  DESCRIPTION: lists desktop files\n  LEVEL: LOW\n}\n```"
	model := &fakeModel{response: directive}
	runner := &captureRunner{result: exec.Result{Success: true, Stdout: "notes.txt"}}
	svc, _ := testService(t, model, runner)

	sent, err := svc.SendUserMessage(context.Background(), "list files on desktop", nil, "")
	require.NoError(t, err)

	parsed := svc.ParseAssistantResponse(sent.Response)
	require.Equal(t, parser.TypeSystemCommand, parsed.Type)
	assert.Equal(t, "System Command", parsed.Command.Intention)
	assert.Equal(t, "ls ~/Desktop", parsed.Command.Command)
	assert.Equal(t, "lists desktop files", parsed.Command.Description)
	assert.Equal(t, models.RiskLow, parsed.Command.Level)

	translated := svc.TranslateCommand(parsed.Command.Command)
	assert.Contains(t, translated, "dir")
	assert.Contains(t, translated, "%USERPROFILE%")

	svc.RunConfirmedCommand(context.Background(), translated)
	require.Len(t, runner.commands, 1)
	assert.Equal(t, translated, runner.commands[0])
}
