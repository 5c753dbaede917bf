// Package gemini implements the language-model client: payload
// assembly (including inline images), response extraction, length
// trimming, and automatic fallback across a prioritized rotation of
// backend model identifiers on quota exhaustion.
package gemini

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/irene-overlay/irene/internal/config"
)

// ConfigSource supplies configuration snapshots. *config.Manager
// satisfies it; tests inject static sources.
type ConfigSource interface {
	Get() config.Config
}

// dataURIRe recognizes the image payloads accepted as inline parts.
// Malformed entries are dropped, never fatal.
var dataURIRe = regexp.MustCompile(`^data:image/(png|jpeg|jpg|webp);base64,(.+)$`)

// GenerateResult is a successful model response.
type GenerateResult struct {
	Text  string      `json:"text"`
	Model string      `json:"model"`
	Usage *TokenUsage `json:"token_usage,omitempty"`
}

// Client talks to the Gemini backend. The selection state is owned by
// a single Client instance for the process lifetime; the mutex only
// covers overlapping host-API calls, the message pipeline itself is
// serialized upstream.
type Client struct {
	source ConfigSource
	http   *http.Client

	mu           sync.Mutex
	sel          selection
	lastQuotaErr error
}

// NewClient creates a Client reading configuration from source.
func NewClient(source ConfigSource) *Client {
	return &Client{
		source: source,
		http:   &http.Client{Timeout: 90 * time.Second},
	}
}

// SetModel overrides the model rotation. A name found in the rotation
// moves the cursor there; an unknown name becomes a one-shot manual pin.
func (c *Client) SetModel(name string) {
	cfg := c.source.Get()

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, m := range cfg.Models {
		if m == name {
			c.sel = c.sel.pinIndex(i)
			log.Debug().Str("model", name).Msg("Model selected from rotation")
			return
		}
	}
	c.sel = c.sel.pinName(name)
	log.Debug().Str("model", name).Msg("Model pinned outside rotation")
}

// CurrentModel returns the model the next request would use.
func (c *Client) CurrentModel() string {
	cfg := c.source.Get()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.active(cfg.Models)
}

// GenerateContent sends message (plus optional data-URI images) to the
// backend and returns the extracted, length-trimmed response text.
//
// On a quota-exhaustion error the rotation advances and the request is
// retried, at most once per rotation entry; any other error propagates
// immediately. A manual pin is cleared after its first attempt, success
// or failure.
func (c *Client) GenerateContent(ctx context.Context, message string, images []string) (*GenerateResult, error) {
	cfg := c.source.Get()
	if !cfg.HasAPIKey() {
		return nil, ErrMissingAPIKey
	}

	parts, imageCount := buildParts(message, images)

	c.mu.Lock()
	// Images must never be dropped because a rotated-to model cannot
	// see them: jump to the highest-priority entry, which is multimodal.
	if imageCount > 0 && !cfg.IsMultimodal(c.sel.active(cfg.Models)) {
		c.sel = c.sel.pinIndex(0)
		log.Debug().Str("model", c.sel.active(cfg.Models)).Msg("Switched to multimodal model for image request")
	}
	c.mu.Unlock()

	body := generateRequest{
		Contents: []content{{Parts: parts}},
		GenerationConfig: generationConfig{
			MaxOutputTokens: cfg.MaxOutputTokens,
			Temperature:     cfg.Temperature,
			TopP:            cfg.TopP,
			TopK:            cfg.TopK,
		},
	}

	maxAttempts := len(cfg.Models)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		c.mu.Lock()
		sel := c.sel
		c.mu.Unlock()

		model := sel.active(cfg.Models)
		result, err := c.doRequest(ctx, cfg, model, body)
		if err == nil {
			c.mu.Lock()
			c.sel = sel.onSuccess()
			c.mu.Unlock()
			result.Model = model
			return result, nil
		}

		if !IsQuotaError(err) {
			return nil, err
		}

		log.Warn().Str("model", model).Err(err).Msg("Model quota exceeded, rotating")
		c.mu.Lock()
		c.lastQuotaErr = err
		c.sel = sel.onQuota(len(cfg.Models))
		c.mu.Unlock()
	}

	return nil, fmt.Errorf("%w: %v", ErrAllModelsExhausted, c.LastQuotaError())
}

// LastQuotaError returns the most recent quota-exhaustion error seen.
func (c *Client) LastQuotaError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastQuotaErr
}

// buildParts assembles image parts (valid data URIs only) followed by
// one text part.
func buildParts(message string, images []string) ([]part, int) {
	var parts []part
	count := 0
	for _, img := range images {
		m := dataURIRe.FindStringSubmatch(img)
		if m == nil {
			log.Debug().Msg("Dropping malformed image data URI")
			continue
		}
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: "image/" + m[1],
			Data:     m[2],
		}})
		count++
	}
	parts = append(parts, part{Text: message})
	return parts, count
}

func (c *Client) doRequest(ctx context.Context, cfg config.Config, model string, body generateRequest) (*GenerateResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("gemini: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		cfg.BaseURL, url.PathEscape(model), url.QueryEscape(cfg.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini: read response: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("gemini: decode response: %w", err)
	}

	if parsed.Error != nil {
		return nil, &APIError{
			Message: parsed.Error.Message,
			Status:  parsed.Error.Status,
			Code:    parsed.Error.Code,
		}
	}

	text, ok := firstText(parsed)
	if !ok {
		return nil, ErrNoResponseText
	}

	return &GenerateResult{
		Text:  trimResponse(text, cfg.MaxResponseLength),
		Usage: parsed.UsageMetadata,
	}, nil
}

// firstText extracts the first candidate's first text part.
func firstText(resp generateResponse) (string, bool) {
	if len(resp.Candidates) == 0 {
		return "", false
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			return p.Text, true
		}
	}
	return "", false
}

// trimResponse caps text at maxLen characters, marking truncation with
// an ellipsis. This is a display cap, separate from the protocol-level
// maxOutputTokens bound.
func trimResponse(text string, maxLen int) string {
	if maxLen <= 0 || len(text) <= maxLen {
		return text
	}
	return cutAtRune(text, maxLen-3) + "..."
}
