package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/irene-overlay/irene/internal/config"
	"github.com/irene-overlay/irene/internal/exec"
	"github.com/irene-overlay/irene/internal/gemini"
	"github.com/irene-overlay/irene/internal/parser"
	"github.com/irene-overlay/irene/internal/privacy"
	"github.com/irene-overlay/irene/internal/store"
	"github.com/irene-overlay/irene/pkg/models"
)

// ConfigSource supplies configuration snapshots.
type ConfigSource interface {
	Get() config.Config
}

// ModelClient is the language-model backend consumed by the pipeline.
// *gemini.Client satisfies it; tests inject fakes.
type ModelClient interface {
	GenerateContent(ctx context.Context, message string, images []string) (*gemini.GenerateResult, error)
	GenerateSummary(ctx context.Context, history []models.Message) (string, error)
	GenerateTitle(ctx context.Context, messages []models.Message) (string, error)
	ExplainCommandResult(ctx context.Context, outcome gemini.CommandOutcome) (string, error)
	SetModel(name string)
	CurrentModel() string
}

// CommandRunner executes confirmed shell commands.
type CommandRunner interface {
	Run(ctx context.Context, command string) exec.Result
}

// SendResult is the outcome of one user turn.
type SendResult struct {
	Response   string             `json:"response"`
	Model      string             `json:"model,omitempty"`
	TokenUsage *gemini.TokenUsage `json:"token_usage,omitempty"`
	IsFallback bool               `json:"is_fallback,omitempty"`
}

// Service is the host-facing conversation pipeline. One Service owns
// the active-chat cursor and the persistent user data; turns for the
// same conversation are serialized by sendMu.
type Service struct {
	source  ConfigSource
	history store.History
	model   ModelClient
	runner  CommandRunner
	parser  *parser.Parser

	sendMu sync.Mutex

	mu            sync.Mutex
	currentChatID int64
	userData      UserData
}

// NewService wires the conversation pipeline.
func NewService(source ConfigSource, history store.History, model ModelClient, runner CommandRunner) *Service {
	return &Service{
		source:  source,
		history: history,
		model:   model,
		runner:  runner,
		parser:  parser.New(),
	}
}

// EnsureDefaultChat makes sure an active chat exists at startup: the
// most recent chat when any exist, otherwise a freshly created one.
func (s *Service) EnsureDefaultChat(ctx context.Context) error {
	chats, err := s.history.Chats(ctx)
	if err != nil {
		return err
	}
	if len(chats) > 0 {
		s.setCurrent(chats[0].ID)
		return nil
	}

	id, err := s.history.CreateChat(ctx, "Welcome Chat")
	if err != nil {
		return err
	}
	s.setCurrent(id)
	log.Info().Int64("chatId", id).Msg("Created welcome chat")
	return nil
}

// CurrentChatID returns the active chat.
func (s *Service) CurrentChatID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentChatID
}

// SwitchChat makes chatID the active chat. Switching never mutates
// either conversation's data.
func (s *Service) SwitchChat(ctx context.Context, chatID int64) error {
	if _, err := s.history.Chat(ctx, chatID); err != nil {
		return fmt.Errorf("switch chat: %w", err)
	}
	s.setCurrent(chatID)
	return nil
}

func (s *Service) setCurrent(chatID int64) {
	s.mu.Lock()
	s.currentChatID = chatID
	s.mu.Unlock()
}

// UserData returns the persistent user identity.
func (s *Service) UserData() UserData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userData
}

// SetUserData merges non-empty fields into the persistent user identity.
func (s *Service) SetUserData(data UserData) UserData {
	s.mu.Lock()
	defer s.mu.Unlock()
	if data.Name != "" {
		s.userData.Name = data.Name
	}
	if data.Preferences != "" {
		s.userData.Preferences = data.Preferences
	}
	return s.userData
}

// SendUserMessage runs one full user turn: history read, optional
// summary and title housekeeping, prompt assembly, model call, and the
// history writes for both sides of the exchange, in that strict order.
//
// Model-call failures never surface as errors: they are converted into
// the configured fallback response, recorded in history as a fallback
// assistant turn so conversation continuity is preserved.
func (s *Service) SendUserMessage(ctx context.Context, text string, images []string, modelOverride string) (*SendResult, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	cfg := s.source.Get()
	assembler := NewAssembler(cfg)
	chatID := s.CurrentChatID()
	if chatID == 0 {
		return nil, fmt.Errorf("no active chat")
	}

	// Content inside <private> tags never reaches storage or the model,
	// and credential-shaped strings are redacted.
	if privacy.IsEntirelyPrivate(text) {
		return nil, fmt.Errorf("message is empty after privacy filtering")
	}
	text = privacy.Clean(text)

	if modelOverride != "" {
		s.model.SetModel(modelOverride)
	}

	result, userStored, err := s.runTurn(ctx, cfg, assembler, chatID, text, images)
	if err == nil {
		return result, nil
	}

	log.Error().Err(err).Int64("chatId", chatID).Msg("Turn failed, using fallback response")

	// The user's side of the exchange survives the failure so the next
	// turn's context still sees it.
	if !userStored {
		if _, werr := s.history.AppendMessage(ctx, chatID, models.RoleUser,
			text, models.KindText, ""); werr != nil {
			log.Warn().Err(werr).Msg("Failed to record user turn")
		}
	}

	fallback := cfg.FallbackResponse
	if _, werr := s.history.AppendMessage(ctx, chatID, models.RoleAssistant,
		fallback+" (fallback)", models.KindText, ""); werr != nil {
		log.Warn().Err(werr).Msg("Failed to record fallback turn")
	}
	return &SendResult{Response: fallback, IsFallback: true}, nil
}

// runTurn returns userStored so the caller knows whether the user's
// message already reached history when an error comes back.
func (s *Service) runTurn(ctx context.Context, cfg config.Config, assembler *Assembler, chatID int64, text string, images []string) (*SendResult, bool, error) {
	history, err := s.history.RecentMessages(ctx, chatID, cfg.HistoryLimit)
	if err != nil {
		return nil, false, fmt.Errorf("read history: %w", err)
	}
	chat, err := s.history.Chat(ctx, chatID)
	if err != nil {
		return nil, false, fmt.Errorf("read chat: %w", err)
	}
	count, err := s.history.CountMessages(ctx, chatID)
	if err != nil {
		return nil, false, fmt.Errorf("count messages: %w", err)
	}

	summary := ""
	if chat.Summary.Valid {
		summary = chat.Summary.String
	}

	if assembler.NeedsSummarization(count) {
		fresh, err := s.model.GenerateSummary(ctx, history)
		if err != nil {
			return nil, false, fmt.Errorf("generate summary: %w", err)
		}
		if err := s.history.UpdateSummary(ctx, chatID, fresh); err != nil {
			return nil, false, fmt.Errorf("store summary: %w", err)
		}
		summary = fresh
	}

	if assembler.NeedsTitleGeneration(chat.Title, count) {
		opening, err := s.history.FirstMessages(ctx, chatID, cfg.TitleAfter)
		if err != nil {
			return nil, false, fmt.Errorf("read opening messages: %w", err)
		}
		title, err := s.model.GenerateTitle(ctx, opening)
		if err != nil {
			return nil, false, fmt.Errorf("generate title: %w", err)
		}
		if err := s.history.UpdateTitle(ctx, chatID, title); err != nil {
			return nil, false, fmt.Errorf("store title: %w", err)
		}
	}

	historyBlock := assembler.FormatHistoryForContext(history, summary)
	prompt := assembler.BuildPrompt(s.UserData(), historyBlock, text)

	response, err := s.model.GenerateContent(ctx, prompt, images)
	if err != nil {
		return nil, false, err
	}

	if _, err := s.history.AppendMessage(ctx, chatID, models.RoleUser, text, models.KindText, ""); err != nil {
		return nil, false, fmt.Errorf("store user message: %w", err)
	}
	if _, err := s.history.AppendMessage(ctx, chatID, models.RoleAssistant, response.Text, models.KindText, ""); err != nil {
		return nil, true, fmt.Errorf("store assistant message: %w", err)
	}

	return &SendResult{
		Response:   response.Text,
		Model:      response.Model,
		TokenUsage: response.Usage,
	}, true, nil
}

// ParseAssistantResponse classifies a model response as chat or a
// system-command directive.
func (s *Service) ParseAssistantResponse(text string) parser.Result {
	return s.parser.Parse(text)
}

// CurrentModel reports the model the backend would use for the next turn.
func (s *Service) CurrentModel() string {
	return s.model.CurrentModel()
}

// TranslateCommand rewrites a command for the Windows shell dialect.
func (s *Service) TranslateCommand(command string) string {
	return parser.ToWindowsCommand(command)
}

// RunConfirmedCommand executes a user-confirmed command and records the
// outcome in history as a system turn with serialized metadata.
func (s *Service) RunConfirmedCommand(ctx context.Context, command string) exec.Result {
	result := s.runner.Run(ctx, command)

	record := models.CommandRecord{
		ID:        uuid.NewString(),
		Command:   strings.TrimSpace(command),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Success:   result.Success,
	}
	info, err := json.Marshal(record)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to serialize command record")
		info = nil
	}

	chatID := s.CurrentChatID()
	if chatID == 0 {
		return result
	}

	var content string
	if result.Success {
		content = fmt.Sprintf("Command executed: %s\nOutput: %s", record.Command, combinedOutput(result))
	} else {
		content = fmt.Sprintf("Command failed: %s\nError: %s", record.Command, failureText(result))
	}

	if _, err := s.history.AppendMessage(ctx, chatID, models.RoleSystem,
		content, models.KindCommandResult, string(info)); err != nil {
		log.Warn().Err(err).Msg("Failed to record command result")
	}
	return result
}

// ExplainCommandResult round-trips an execution result through the
// model for a plain-language explanation.
func (s *Service) ExplainCommandResult(ctx context.Context, command string, result exec.Result) (string, error) {
	outcome := gemini.CommandOutcome{
		Command: command,
		Success: result.Success,
	}
	if result.Success {
		outcome.Output = privacy.RedactSecrets(combinedOutput(result))
	} else {
		outcome.ErrText = privacy.RedactSecrets(failureText(result))
	}
	return s.model.ExplainCommandResult(ctx, outcome)
}

// combinedOutput merges stdout and stderr of a successful run the way
// the confirmation UI displays them.
func combinedOutput(result exec.Result) string {
	out := result.Stdout
	if result.Stderr != "" {
		if out != "" {
			out += "\n--- Warnings/Info ---\n"
		}
		out += result.Stderr
	}
	if out == "" {
		return "(Command completed with no output)"
	}
	return out
}

func failureText(result exec.Result) string {
	if result.Stderr != "" {
		return result.Error + "\n\nError output:\n" + result.Stderr
	}
	return result.Error
}
