// Package chat implements the conversation pipeline: context assembly,
// housekeeping triggers (summary and title generation), and the
// top-level message handling that ties history, model client, parser
// and command runner together.
package chat

import (
	"strings"

	"github.com/irene-overlay/irene/internal/config"
	"github.com/irene-overlay/irene/internal/store"
	"github.com/irene-overlay/irene/pkg/models"
)

// UserData is the persistent user identity prepended to prompts. It
// survives across chats but not across processes.
type UserData struct {
	Name        string `json:"name"`
	Preferences string `json:"preferences"`
}

// Assembler decides how much prior conversation accompanies each new
// user message and when housekeeping generations fire.
type Assembler struct {
	cfg config.Config
}

// NewAssembler creates an Assembler with the given tuning.
func NewAssembler(cfg config.Config) *Assembler {
	return &Assembler{cfg: cfg}
}

// NeedsSummarization reports whether the rolling summary should be
// generated or refreshed: once per SummarizeEvery messages.
func (a *Assembler) NeedsSummarization(messageCount int64) bool {
	n := int64(a.cfg.SummarizeEvery)
	return messageCount > 0 && messageCount%n == 0
}

// NeedsTitleGeneration reports whether a title should be generated:
// exactly when the count reaches the threshold and the title is still
// the timestamp placeholder. Edge boundary, not "every time after".
func (a *Assembler) NeedsTitleGeneration(title string, messageCount int64) bool {
	return messageCount == int64(a.cfg.TitleAfter) &&
		strings.HasPrefix(title, store.DefaultTitlePrefix)
}

// FormatHistoryForContext renders recent conversation as role-labeled
// lines under a hard character budget. When a summary exists it
// substitutes for older turns and the recent-message window shrinks.
// Inclusion walks newest-to-oldest and stops before the first message
// that would exceed the budget; the render itself is chronological and
// never truncated mid-message.
func (a *Assembler) FormatHistoryForContext(history []models.Message, summary string) string {
	window := a.cfg.HistoryLimit
	if summary != "" {
		window = a.cfg.HistoryWithSummaryLimit
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	var lines []string
	used := 0
	for i := len(history) - 1; i >= 0; i-- {
		line := roleLabel(history[i].Role) + ": " + history[i].Content
		if used+len(line) > a.cfg.HistoryCharBudget {
			break
		}
		used += len(line)
		lines = append(lines, line)
	}
	if len(lines) == 0 && summary == "" {
		return ""
	}

	// lines were collected newest-first; restore chronological order.
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}

	var sb strings.Builder
	if summary != "" {
		sb.WriteString("Summary of earlier conversation:\n")
		sb.WriteString(summary)
		sb.WriteString("\n\n")
	}
	if len(lines) > 0 {
		sb.WriteString("Previous conversation context:\n")
		sb.WriteString(strings.Join(lines, "\n"))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// BuildPrompt assembles the full prompt handed to the model client:
// identity preamble, history/summary block, the current-message marker,
// and the new message, all wrapped by the static system prompt and
// context suffix from configuration.
func (a *Assembler) BuildPrompt(user UserData, historyBlock, message string) string {
	var ctxParts []string

	if user.Name != "" || user.Preferences != "" {
		var info strings.Builder
		info.WriteString("User Info: ")
		if user.Name != "" {
			info.WriteString("Name: " + user.Name + ". ")
		}
		if user.Preferences != "" {
			info.WriteString("Preferences: " + user.Preferences)
		}
		ctxParts = append(ctxParts, strings.TrimSpace(info.String())+"\n\n")
	}
	if historyBlock != "" {
		ctxParts = append(ctxParts, historyBlock)
	}

	withContext := message
	if len(ctxParts) > 0 {
		withContext = strings.Join(ctxParts, "") + "Current message:\n" + message
	}

	var sb strings.Builder
	if a.cfg.SystemPrompt != "" {
		sb.WriteString(a.cfg.SystemPrompt)
		sb.WriteString("\n\n")
	}
	sb.WriteString("User: ")
	sb.WriteString(withContext)
	if a.cfg.ContextSuffix != "" {
		sb.WriteString("\n\n")
		sb.WriteString(a.cfg.ContextSuffix)
	}
	return sb.String()
}

func roleLabel(role models.Role) string {
	switch role {
	case models.RoleUser:
		return "User"
	case models.RoleAssistant:
		return "Assistant"
	default:
		return "System"
	}
}
