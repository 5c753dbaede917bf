// Package config provides configuration management for irene.
//
// Configuration is an explicit immutable value handed to each component
// constructor. A file on disk (YAML) supplies overrides on top of the
// built-in defaults; the API credential comes from the environment so it
// never lives in the config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// PlaceholderAPIKey is the sentinel value treated as "not configured".
const PlaceholderAPIKey = "YOUR_GEMINI_API_KEY"

// DefaultModelRotation is the fallback order tried on quota exhaustion,
// highest priority first.
var DefaultModelRotation = []string{
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
	"gemini-2.0-flash-lite",
	"gemini-2.0-flash",
	"gemini-2.5-pro",
	"gemini-1.5-flash",
	"gemini-1.5-pro",
}

// DefaultMultimodalModels are the rotation entries that accept inline
// image parts.
var DefaultMultimodalModels = []string{
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemini-2.5-pro",
}

// Config holds all application configuration.
type Config struct {
	// Server
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`

	// Gemini backend
	APIKey           string   `yaml:"-"`
	BaseURL          string   `yaml:"base_url"`
	Models           []string `yaml:"models"`
	MultimodalModels []string `yaml:"multimodal_models"`
	Temperature      float64  `yaml:"temperature"`
	TopP             float64  `yaml:"top_p"`
	TopK             int      `yaml:"top_k"`
	MaxOutputTokens  int      `yaml:"max_output_tokens"`

	// Response post-processing
	MaxResponseLength int `yaml:"max_response_length"`

	// Prompts
	SystemPrompt        string `yaml:"system_prompt"`
	ContextSuffix       string `yaml:"context_suffix"`
	FallbackResponse    string `yaml:"fallback_response"`
	SummaryPrompt       string `yaml:"summary_prompt"`
	CommandOutputPrompt string `yaml:"command_output_prompt"`

	// Context assembly
	HistoryLimit            int `yaml:"history_limit"`
	HistoryWithSummaryLimit int `yaml:"history_with_summary_limit"`
	HistoryCharBudget       int `yaml:"history_char_budget"`
	SummarizeEvery          int `yaml:"summarize_every"`
	TitleAfter              int `yaml:"title_after"`

	// Command execution
	CommandTimeout   time.Duration `yaml:"command_timeout"`
	MaxCommandOutput int           `yaml:"max_command_output"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:        "127.0.0.1:7725",
		DBPath:            defaultDBPath(),
		APIKey:            PlaceholderAPIKey,
		BaseURL:           "https://generativelanguage.googleapis.com",
		Models:            append([]string(nil), DefaultModelRotation...),
		MultimodalModels:  append([]string(nil), DefaultMultimodalModels...),
		Temperature:       0.7,
		TopP:              0.8,
		TopK:              40,
		MaxOutputTokens:   2048,
		MaxResponseLength: 500,

		SystemPrompt:        defaultSystemPrompt,
		ContextSuffix:       defaultContextSuffix,
		FallbackResponse:    defaultFallbackResponse,
		SummaryPrompt:       defaultSummaryPrompt,
		CommandOutputPrompt: defaultCommandOutputPrompt,

		HistoryLimit:            15,
		HistoryWithSummaryLimit: 6,
		HistoryCharBudget:       2000,
		SummarizeEvery:          30,
		TitleAfter:              4,

		CommandTimeout:   30 * time.Second,
		MaxCommandOutput: 1 << 20,
	}
}

// Load reads the config file at path (when it exists), applies
// environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator
		switch {
		case os.IsNotExist(err):
			// Missing file means defaults.
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("IRENE_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("IRENE_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("IRENE_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("IRENE_MAX_RESPONSE_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxResponseLength = n
		}
	}
}

// Validate checks that required fields are set and tunables are sane.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path cannot be empty")
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("models rotation cannot be empty")
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("temperature must be in [0,1]")
	}
	if c.TopP < 0 || c.TopP > 1 {
		return fmt.Errorf("top_p must be in [0,1]")
	}
	if c.TopK < 1 {
		return fmt.Errorf("top_k must be >= 1")
	}
	if c.MaxResponseLength < 4 {
		return fmt.Errorf("max_response_length must be >= 4")
	}
	if c.HistoryCharBudget <= 0 {
		return fmt.Errorf("history_char_budget must be > 0")
	}
	if c.HistoryLimit <= 0 || c.HistoryWithSummaryLimit <= 0 {
		return fmt.Errorf("history limits must be > 0")
	}
	if c.SummarizeEvery <= 0 {
		return fmt.Errorf("summarize_every must be > 0")
	}
	if c.TitleAfter <= 0 {
		return fmt.Errorf("title_after must be > 0")
	}
	if c.CommandTimeout <= 0 {
		return fmt.Errorf("command_timeout must be > 0")
	}
	if c.MaxCommandOutput <= 0 {
		return fmt.Errorf("max_command_output must be > 0")
	}
	return nil
}

// HasAPIKey reports whether a usable credential is configured.
func (c *Config) HasAPIKey() bool {
	return c.APIKey != "" && c.APIKey != PlaceholderAPIKey
}

// IsMultimodal reports whether model accepts inline image parts.
func (c *Config) IsMultimodal(model string) bool {
	for _, m := range c.MultimodalModels {
		if m == model {
			return true
		}
	}
	return false
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "irene.db"
	}
	return filepath.Join(home, ".irene", "conversations.db")
}
