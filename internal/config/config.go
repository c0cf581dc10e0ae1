package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Environment overrides recognized on top of file values. Secrets normally
// arrive this way (via .env at the invocation boundary) rather than living
// in the config file.
const (
	envEmail          = "AIRLOCK_EMAIL"
	envEmailPassword  = "AIRLOCK_EMAIL_PASSWORD"
	envIMAPServer     = "AIRLOCK_IMAP_SERVER"
	envEmailFolder    = "AIRLOCK_EMAIL_FOLDER"
	envAllowedSenders = "AIRLOCK_ALLOWED_SENDERS"
	envEmailAction    = "AIRLOCK_EMAIL_ACTION"
	envOpenAIKey      = "OPENAI_API_KEY"
	envReaderKey      = "JINA_API_KEY"
	envTelegramToken  = "TELEGRAM_BOT_TOKEN"
	envTelegramChatID = "TELEGRAM_CHAT_ID"
)

// Config holds every setting the application wires into its components.
// Core packages receive these values explicitly at construction and never
// read process state themselves.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Store         StoreConfig        `yaml:"store"`
	Fetch         FetchConfig        `yaml:"fetch"`
	LLM           LLMConfig          `yaml:"llm"`
	Extract       ExtractConfig      `yaml:"extract"`
	Feeds         FeedsConfig        `yaml:"feeds"`
	Email         EmailConfig        `yaml:"email"`
	Digest        DigestConfig       `yaml:"digest"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects the console log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// StoreConfig describes the content store layout.
type StoreConfig struct {
	// Root is the directory of category subdirectories.
	Root string `yaml:"root"`
	// IndexPath enables the sqlite membership index when non-empty.
	IndexPath string `yaml:"indexPath"`
}

// FetchConfig tunes content retrieval and its retry policy.
type FetchConfig struct {
	// Endpoint is the reader-API base URL; empty fetches pages directly.
	Endpoint           string `yaml:"endpoint"`
	APIKey             string `yaml:"apiKey"`
	MaxAttempts        int    `yaml:"maxAttempts"`
	BackoffSeconds     int    `yaml:"backoffSeconds"`
	TimeoutSeconds     int    `yaml:"timeoutSeconds"`
	TimeoutStepSeconds int    `yaml:"timeoutStepSeconds"`
}

// LLMConfig defines how to contact the classification API.
type LLMConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// ExtractConfig tunes candidate extraction.
type ExtractConfig struct {
	// Denylist drops URLs containing any of these substrings. A nil list
	// uses the built-in defaults; an explicit empty list disables it.
	Denylist []string `yaml:"denylist"`
	// MinURLLength drops URLs shorter than this many characters.
	MinURLLength int `yaml:"minUrlLength"`
}

// FeedsConfig groups the polled feeds and their shared recency window.
type FeedsConfig struct {
	RecencyHours int          `yaml:"recencyHours"`
	Sources      []FeedConfig `yaml:"sources"`
}

// FeedConfig describes one polled feed.
type FeedConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"defaultCategory"`
}

// EmailConfig describes the polled inbox.
type EmailConfig struct {
	Address        string   `yaml:"address"`
	Password       string   `yaml:"password"`
	Server         string   `yaml:"server"`
	Folder         string   `yaml:"folder"`
	AllowedSenders []string `yaml:"allowedSenders"`
	// Action is what happens to a message once processed: read, archive,
	// or delete.
	Action     string `yaml:"action"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// DigestConfig describes bundle output.
type DigestConfig struct {
	OutputDir string `yaml:"outputDir"`
	Days      int    `yaml:"days"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires the digest notification chat.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load resolves configuration: built-in defaults, then the YAML file (when
// path is non-empty; ${VAR} references are expanded), then environment
// overrides, then validation.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		expanded := os.ExpandEnv(string(raw))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks the invariants components rely on at wiring time.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c.Store,
		validation.Field(&c.Store.Root, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}

	err = validation.ValidateStruct(&c.Fetch,
		validation.Field(&c.Fetch.MaxAttempts, validation.Min(1)),
		validation.Field(&c.Fetch.BackoffSeconds, validation.Min(0)),
	)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	err = validation.ValidateStruct(&c.Email,
		validation.Field(&c.Email.Action, validation.In("", "read", "archive", "delete")),
		validation.Field(&c.Email.MaxAgeDays, validation.Min(0)),
	)
	if err != nil {
		return fmt.Errorf("email: %w", err)
	}

	for _, feed := range c.Feeds.Sources {
		err := validation.ValidateStruct(&feed,
			validation.Field(&feed.Name, validation.Required),
			validation.Field(&feed.URL, validation.Required),
		)
		if err != nil {
			return fmt.Errorf("feed %q: %w", feed.Name, err)
		}
	}
	return nil
}

// RecencyWindow returns the feed freshness window as a duration.
func (c FeedsConfig) RecencyWindow() time.Duration {
	return time.Duration(c.RecencyHours) * time.Hour
}

// MaxAge returns the inbox lookback as a duration.
func (c EmailConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeDays) * 24 * time.Hour
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(envOpenAIKey); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(envReaderKey); v != "" {
		c.Fetch.APIKey = v
	}
	if v := os.Getenv(envEmail); v != "" {
		c.Email.Address = v
	}
	if v := os.Getenv(envEmailPassword); v != "" {
		c.Email.Password = v
	}
	if v := os.Getenv(envIMAPServer); v != "" {
		c.Email.Server = v
	}
	if v := os.Getenv(envEmailFolder); v != "" {
		c.Email.Folder = v
	}
	if v := os.Getenv(envEmailAction); v != "" {
		c.Email.Action = v
	}
	if v := os.Getenv(envAllowedSenders); v != "" {
		c.Email.AllowedSenders = splitList(v)
	}
	if v := os.Getenv(envTelegramToken); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(envTelegramChatID); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

// splitList parses a comma-separated address list, dropping empties.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Store:   StoreConfig{Root: "data"},
		Fetch: FetchConfig{
			Endpoint:           "https://r.jina.ai",
			MaxAttempts:        3,
			BackoffSeconds:     2,
			TimeoutSeconds:     20,
			TimeoutStepSeconds: 10,
		},
		LLM: LLMConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
		},
		Extract: ExtractConfig{MinURLLength: 20},
		Feeds:   FeedsConfig{RecencyHours: 24},
		Email: EmailConfig{
			Folder:     "INBOX",
			Action:     "read",
			MaxAgeDays: 7,
		},
		Digest: DigestConfig{OutputDir: "Digests", Days: 7},
	}
}
