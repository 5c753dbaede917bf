package gemini

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/irene-overlay/irene/pkg/models"
)

// Derived helpers built on GenerateContent. They share its retry and
// fallback behavior.

// GenerateSummary condenses a conversation into free text. System turns
// (command results and the like) are excluded from the transcript.
func (c *Client) GenerateSummary(ctx context.Context, history []models.Message) (string, error) {
	cfg := c.source.Get()

	var sb strings.Builder
	sb.WriteString(cfg.SummaryPrompt)
	sb.WriteString("\n\nConversation to summarize:\n\n")
	for _, msg := range history {
		if msg.Role == models.RoleSystem {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n\n", roleLabel(msg.Role), msg.Content))
	}

	result, err := c.GenerateContent(ctx, sb.String(), nil)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// GenerateTitle produces a short chat title from the opening messages.
// Surrounding quotes are stripped and the result capped at 50 chars.
func (c *Client) GenerateTitle(ctx context.Context, messages []models.Message) (string, error) {
	var sb strings.Builder
	sb.WriteString("Generate a short, descriptive title (2-6 words) for this conversation. Only respond with the title, nothing else.\n\n")
	sb.WriteString("First messages of a conversation:\n\n")
	for _, msg := range messages {
		sb.WriteString(fmt.Sprintf("%s: %s\n\n", roleLabel(msg.Role), msg.Content))
	}

	result, err := c.GenerateContent(ctx, sb.String(), nil)
	if err != nil {
		return "", err
	}

	title := strings.TrimSpace(result.Text)
	title = strings.Trim(title, `"'`)
	return cutAtRune(title, 50), nil
}

// CommandOutcome describes an executed command for explanation.
type CommandOutcome struct {
	Command string
	Output  string
	ErrText string
	Success bool
}

const (
	maxExplainOutput = 2000
	maxExplainError  = 1000
)

// ExplainCommandResult asks the model for a plain-language explanation
// of a command's output or failure.
func (c *Client) ExplainCommandResult(ctx context.Context, outcome CommandOutcome) (string, error) {
	cfg := c.source.Get()

	var sb strings.Builder
	sb.WriteString(cfg.CommandOutputPrompt)
	sb.WriteString("\n\n")

	if outcome.Success {
		sb.WriteString(fmt.Sprintf("I executed this system command: %q\n\n", outcome.Command))
		sb.WriteString("The command completed successfully with the following output:\n```\n")
		sb.WriteString(truncate(outcome.Output, maxExplainOutput))
		sb.WriteString("\n```\n\n")
		sb.WriteString("Please analyze this output and explain what it means: what the command did, what the results show, and whether anything looks unusual.")
	} else {
		errText := outcome.ErrText
		if errText == "" {
			errText = "Unknown error occurred"
		}
		sb.WriteString(fmt.Sprintf("I tried to execute this system command: %q\n\n", outcome.Command))
		sb.WriteString("But it failed with this error:\n```\n")
		sb.WriteString(truncate(errText, maxExplainError))
		sb.WriteString("\n```\n\n")
		sb.WriteString("Please explain what this error means, why it might have happened, and possible next steps.")
	}

	result, err := c.GenerateContent(ctx, sb.String(), nil)
	if err != nil {
		return "", err
	}
	return result.Text, nil
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

// truncate caps s at maxLen, marking the cut.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return cutAtRune(s, maxLen) + "\n... (truncated)"
}

// cutAtRune caps s at max bytes without splitting a multi-byte rune.
func cutAtRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
