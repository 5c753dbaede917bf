// Package parser classifies language-model responses as either
// actionable system commands or ordinary chat, and extracts a
// normalized command directive in the former case.
//
// Detection is deliberately heuristic. Two textual layouts are
// recognized, evaluated in fixed priority order: a brace-delimited
// key/value block with INTENTION, COMMAND, DESCRIPTION and LEVEL keys,
// and a legacy newline-delimited layout without LEVEL. False positives
// are acceptable because execution is always gated behind explicit
// user confirmation.
package parser

import (
	"regexp"
	"strings"

	"github.com/irene-overlay/irene/pkg/models"
)

// ResultType discriminates the two classification outcomes.
type ResultType string

const (
	TypeChat          ResultType = "chat"
	TypeSystemCommand ResultType = "system_command"
)

// Result is the outcome of parsing one model response.
type Result struct {
	Type             ResultType        `json:"type"`
	Command          *models.Directive `json:"command,omitempty"`
	Message          string            `json:"message,omitempty"`
	CodeBlock        string            `json:"code_block,omitempty"`
	OriginalResponse string            `json:"original_response"`
}

var (
	codeBlockRe = regexp.MustCompile("(?s)```.*?```")
	fenceOpenRe = regexp.MustCompile("^```[\\w]*\\n?")
	fenceEndRe  = regexp.MustCompile("\\n?```$")

	// Brace-delimited layout. Keys are case-insensitive and any
	// whitespace/newline arrangement between them is accepted.
	braceRe = regexp.MustCompile(`(?is)\{\s*INTENTION:\s*(.+?)\s*COMMAND:\s*(.+?)\s*DESCRIPTION:\s*(.+?)\s*LEVEL:\s*(.+?)\s*\}`)

	// Legacy newline-delimited layout, no LEVEL key.
	legacyRe = regexp.MustCompile(`(?is)INTENTION:\s*(.+?)\s*\nCOMMAND:\s*(.+?)\s*\nDESCRIPTION:\s*(.+?)(?:\n|$)`)

	blankRunsRe = regexp.MustCompile(`\n\s*\n`)

	boldRe        = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe      = regexp.MustCompile(`\*(.+?)\*`)
	inlineCodeRe  = regexp.MustCompile("`(.+?)`")
	leadMarkerRe  = regexp.MustCompile(`^[*\-+\s]*`)
	trailMarkerRe = regexp.MustCompile(`[*\-+\s]*$`)
	leadJunkRe    = regexp.MustCompile(`^[^\w/\\%]+`)
)

// systemKeywords is the fixed keyword set for the intention test.
// Intentionally over-inclusive.
var systemKeywords = []string{
	"system command",
	"system modification",
	"system",
	"command",
	"execute",
	"run",
	"list files",
	"directory",
	"file operation",
	"system query",
	"modification",
}

// IsSystemIntention reports whether an INTENTION value describes a
// system command. Pure function so the guessing logic stays separate
// from the mechanical extraction.
func IsSystemIntention(intention string) bool {
	lower := strings.ToLower(intention)
	for _, kw := range systemKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Parser extracts command directives from model responses.
type Parser struct {
	classify func(string) bool
}

// New creates a Parser with the default intention classifier.
func New() *Parser {
	return &Parser{classify: IsSystemIntention}
}

// NewWithClassifier creates a Parser with a custom intention test.
func NewWithClassifier(classify func(string) bool) *Parser {
	return &Parser{classify: classify}
}

// Parse classifies a model response. It never fails: anything that does
// not match a recognized command layout degrades to a chat result with
// the full text returned verbatim.
func (p *Parser) Parse(response string) Result {
	for _, block := range ExtractCodeBlocks(response) {
		if d := p.matchDirective(block); d != nil {
			return Result{
				Type:             TypeSystemCommand,
				Command:          d,
				CodeBlock:        block,
				OriginalResponse: response,
			}
		}
	}

	// Some responses omit the code fence entirely.
	if d := p.matchDirective(response); d != nil {
		return Result{
			Type:             TypeSystemCommand,
			Command:          d,
			OriginalResponse: response,
		}
	}

	return Result{
		Type:             TypeChat,
		Message:          response,
		OriginalResponse: response,
	}
}

// matchDirective tries the two layouts in priority order against text.
func (p *Parser) matchDirective(text string) *models.Directive {
	if m := braceRe.FindStringSubmatch(text); m != nil {
		intention := strings.TrimSpace(m[1])
		if p.classify(intention) {
			return &models.Directive{
				Intention:   intention,
				Command:     CleanCommand(m[2]),
				Description: strings.TrimSpace(m[3]),
				Level:       models.ParseRiskLevel(m[4]),
			}
		}
	}

	if m := legacyRe.FindStringSubmatch(text); m != nil {
		intention := strings.TrimSpace(m[1])
		if p.classify(intention) {
			return &models.Directive{
				Intention:   intention,
				Command:     CleanCommand(m[2]),
				Description: strings.TrimSpace(m[3]),
				Level:       models.RiskMedium,
			}
		}
	}

	return nil
}

// ExtractCodeBlocks returns the contents of every fenced code block in
// document order, with the fence markers stripped.
func ExtractCodeBlocks(response string) []string {
	var blocks []string
	for _, match := range codeBlockRe.FindAllString(response, -1) {
		content := fenceOpenRe.ReplaceAllString(match, "")
		content = fenceEndRe.ReplaceAllString(content, "")
		blocks = append(blocks, strings.TrimSpace(content))
	}
	return blocks
}

// CleanCommand strips markdown markup and stray leading punctuation
// from a command string. Cosmetic cleanup only, not a security boundary.
func CleanCommand(command string) string {
	cleaned := boldRe.ReplaceAllString(command, "$1")
	cleaned = italicRe.ReplaceAllString(cleaned, "$1")
	cleaned = inlineCodeRe.ReplaceAllString(cleaned, "$1")
	cleaned = leadMarkerRe.ReplaceAllString(cleaned, "")
	cleaned = trailMarkerRe.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	// Commands never start with punctuation other than /, \ or %.
	return leadJunkRe.ReplaceAllString(cleaned, "")
}

// CleanResponseText returns the response with all fenced code blocks
// removed and blank-line runs collapsed, for display alongside a
// confirmation affordance.
func CleanResponseText(response string) string {
	clean := codeBlockRe.ReplaceAllString(response, "")
	clean = strings.TrimSpace(clean)
	clean = blankRunsRe.ReplaceAllString(clean, "\n")
	return strings.TrimSpace(clean)
}
