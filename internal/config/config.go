package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the hhbot daemon.
type Config struct {
	HH           HHConfig
	Poll         PollConfig
	Database     DatabaseConfig
	Notification NotificationConfig
	AI           AIConfig
	Resume       ResumeConfig
}

// HHConfig holds provider credentials and endpoints.
type HHConfig struct {
	BaseURL      string // API root, defaults to https://api.hh.ru
	TokenURL     string // OAuth token endpoint, defaults to https://hh.ru/oauth/token
	AccessToken  string // expanded from env var by Load
	RefreshToken string
	ClientID     string
	ClientSecret string
	ResumeID     string
	UserAgent    string
	Timeout      time.Duration // per-request timeout
}

// PollConfig controls the polling engine.
type PollConfig struct {
	Interval       time.Duration // wall-clock interval between cycles
	MinCallSpacing time.Duration // minimum gap between provider calls
	DispatchPause  time.Duration // pause between dispatches to one subscriber
	PageSize       int           // search results per subscriber per cycle
	PeriodDays     int           // search window in days
	MaxPerDay      int           // daily auto-apply cap, 0 = unlimited
}

// DatabaseConfig locates the sqlite file.
type DatabaseConfig struct {
	Path string
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "webhook"
	WebhookURL string `yaml:"webhook_url"` // required if type is "webhook"
}

// AIConfig controls the optional cover letter generation layer.
type AIConfig struct {
	Enabled bool
	BaseURL string        // defaults to https://api.openai.com/v1
	Model   string        // OpenAI model identifier, e.g. "gpt-4o-mini"
	APIKey  string        // expanded from env var by Load
	Timeout time.Duration // per-request timeout
}

// ResumeConfig is the candidate data used in prompts and fallback letters.
type ResumeConfig struct {
	Name     string   `yaml:"name"`
	Position string   `yaml:"position"`
	Summary  string   `yaml:"summary"`
	Skills   []string `yaml:"skills"`
}

const (
	defaultHHBaseURL    = "https://api.hh.ru"
	defaultHHTokenURL   = "https://hh.ru/oauth/token"
	defaultOpenAIURL    = "https://api.openai.com/v1"
	defaultDatabasePath = "hhbot.db"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	HH           rawHHConfig        `yaml:"hh"`
	Poll         rawPollConfig      `yaml:"poll"`
	Database     rawDatabaseConfig  `yaml:"database"`
	Notification NotificationConfig `yaml:"notification"`
	AI           rawAIConfig        `yaml:"ai"`
	Resume       ResumeConfig       `yaml:"resume"`
}

type rawHHConfig struct {
	BaseURL      string `yaml:"base_url"`
	TokenURL     string `yaml:"token_url"`
	AccessToken  string `yaml:"access_token"`
	RefreshToken string `yaml:"refresh_token"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	ResumeID     string `yaml:"resume_id"`
	UserAgent    string `yaml:"user_agent"`
	Timeout      string `yaml:"timeout"`
}

type rawPollConfig struct {
	Interval       string `yaml:"interval"`
	MinCallSpacing string `yaml:"min_call_spacing"`
	DispatchPause  string `yaml:"dispatch_pause"`
	PageSize       int    `yaml:"page_size"`
	PeriodDays     int    `yaml:"period_days"`
	MaxPerDay      int    `yaml:"max_applications_per_day"`
}

type rawDatabaseConfig struct {
	Path string `yaml:"path"`
}

type rawAIConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

// Load reads and parses the YAML config file at path, validates it, and
// returns Config. A .env file next to the working directory is loaded
// first so ${VAR} references in the YAML resolve.
func Load(path string) (*Config, error) {
	// Missing .env is fine; explicit exports still apply.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	interval := 60 * time.Minute
	if raw.Poll.Interval != "" {
		interval, err = time.ParseDuration(raw.Poll.Interval)
		if err != nil {
			return nil, fmt.Errorf("parse poll.interval %q: %w", raw.Poll.Interval, err)
		}
	}

	spacing := 1 * time.Second
	if raw.Poll.MinCallSpacing != "" {
		spacing, err = time.ParseDuration(raw.Poll.MinCallSpacing)
		if err != nil {
			return nil, fmt.Errorf("parse poll.min_call_spacing %q: %w", raw.Poll.MinCallSpacing, err)
		}
	}

	dispatchPause := 2 * time.Second
	if raw.Poll.DispatchPause != "" {
		dispatchPause, err = time.ParseDuration(raw.Poll.DispatchPause)
		if err != nil {
			return nil, fmt.Errorf("parse poll.dispatch_pause %q: %w", raw.Poll.DispatchPause, err)
		}
	}

	hhTimeout := 10 * time.Second
	if raw.HH.Timeout != "" {
		hhTimeout, err = time.ParseDuration(raw.HH.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse hh.timeout %q: %w", raw.HH.Timeout, err)
		}
	}

	aiTimeout := 30 * time.Second
	if raw.AI.Timeout != "" {
		aiTimeout, err = time.ParseDuration(raw.AI.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse ai.timeout %q: %w", raw.AI.Timeout, err)
		}
	}

	cfg := &Config{
		HH: HHConfig{
			BaseURL:      defaulted(raw.HH.BaseURL, defaultHHBaseURL),
			TokenURL:     defaulted(raw.HH.TokenURL, defaultHHTokenURL),
			AccessToken:  raw.HH.AccessToken,
			RefreshToken: raw.HH.RefreshToken,
			ClientID:     raw.HH.ClientID,
			ClientSecret: raw.HH.ClientSecret,
			ResumeID:     raw.HH.ResumeID,
			UserAgent:    raw.HH.UserAgent,
			Timeout:      hhTimeout,
		},
		Poll: PollConfig{
			Interval:       interval,
			MinCallSpacing: spacing,
			DispatchPause:  dispatchPause,
			PageSize:       defaultedInt(raw.Poll.PageSize, 10),
			PeriodDays:     defaultedInt(raw.Poll.PeriodDays, 1),
			MaxPerDay:      raw.Poll.MaxPerDay,
		},
		Database: DatabaseConfig{
			Path: defaulted(raw.Database.Path, defaultDatabasePath),
		},
		Notification: raw.Notification,
		AI: AIConfig{
			Enabled: raw.AI.Enabled,
			BaseURL: defaulted(raw.AI.BaseURL, defaultOpenAIURL),
			Model:   raw.AI.Model,
			APIKey:  raw.AI.APIKey,
			Timeout: aiTimeout,
		},
		Resume: raw.Resume,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaulted(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func defaultedInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func validate(cfg *Config) error {
	if cfg.HH.AccessToken == "" {
		return fmt.Errorf("hh.access_token is required")
	}
	if cfg.HH.ResumeID == "" {
		return fmt.Errorf("hh.resume_id is required")
	}
	if cfg.HH.UserAgent == "" {
		return fmt.Errorf("hh.user_agent is required")
	}

	if cfg.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive, got %v", cfg.Poll.Interval)
	}
	if cfg.Poll.MinCallSpacing < 0 {
		return fmt.Errorf("poll.min_call_spacing must not be negative, got %v", cfg.Poll.MinCallSpacing)
	}
	if cfg.Poll.PageSize < 1 || cfg.Poll.PageSize > 100 {
		return fmt.Errorf("poll.page_size must be between 1 and 100, got %d", cfg.Poll.PageSize)
	}
	if cfg.Poll.MaxPerDay < 0 {
		return fmt.Errorf("poll.max_applications_per_day must not be negative, got %d", cfg.Poll.MaxPerDay)
	}

	switch cfg.Notification.Type {
	case "", "log":
	case "webhook":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"webhook\"")
		}
		u, err := url.Parse(cfg.Notification.WebhookURL)
		if err != nil || u.Scheme != "https" {
			return fmt.Errorf("notification.webhook_url must be an https URL")
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"webhook\", got %q", cfg.Notification.Type)
	}

	if cfg.AI.Enabled {
		if cfg.AI.APIKey == "" {
			return fmt.Errorf("ai.api_key is required when ai.enabled is true")
		}
		if cfg.AI.Model == "" {
			return fmt.Errorf("ai.model is required when ai.enabled is true")
		}
	}

	return nil
}
