package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/nik45114/hhbot/internal/auth"
	"github.com/nik45114/hhbot/internal/config"
	"github.com/nik45114/hhbot/internal/hh"
	"github.com/nik45114/hhbot/internal/httpretry"
	"github.com/nik45114/hhbot/internal/letter"
	"github.com/nik45114/hhbot/internal/model"
	"github.com/nik45114/hhbot/internal/notifier"
	"github.com/nik45114/hhbot/internal/ratelimit"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "hhbot",
	Short: "hh.ru vacancy radar and auto-apply daemon",
	Long:  "hhbot polls hh.ru for new vacancies matching subscriber preferences, deduplicates them, and optionally auto-applies with a generated cover letter.",
	// Default to `start` so that `hhbot` with no args runs the daemon.
	// This preserves compatibility with systemd unit files that invoke the binary directly.
	RunE: runStart,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: HHBOT_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > HHBOT_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("HHBOT_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// buildClient wires the full provider stack: auth manager, retrying HTTP
// transport, and the hh.ru API client.
func buildClient(cfg *config.Config, logger *slog.Logger) *hh.Client {
	httpClient := &http.Client{Timeout: cfg.HH.Timeout}
	authMgr := auth.New(
		cfg.HH.AccessToken,
		cfg.HH.RefreshToken,
		cfg.HH.ClientID,
		cfg.HH.ClientSecret,
		cfg.HH.TokenURL,
		cfg.HH.UserAgent,
		httpClient,
		logger,
	)
	retrying := httpretry.New(httpClient, 3, 0, logger)
	return hh.NewClient(cfg.HH.BaseURL, cfg.HH.ResumeID, authMgr, retrying, logger)
}

func setupNotifier(cfg *config.Config, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "webhook":
		logger.Info("using webhook notifier")
		httpClient := &http.Client{Timeout: cfg.HH.Timeout}
		return notifier.NewWebhookNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

func setupLetters(cfg *config.Config, logger *slog.Logger) *letter.Generator {
	resume := letter.ResumeProfile{
		Name:     cfg.Resume.Name,
		Position: cfg.Resume.Position,
		Summary:  cfg.Resume.Summary,
		Skills:   cfg.Resume.Skills,
	}
	var provider letter.LLMProvider
	if cfg.AI.Enabled {
		httpClient := &http.Client{Timeout: cfg.AI.Timeout}
		provider = letter.NewOpenAIProvider(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, httpClient)
		logger.Info("ai cover letters enabled", "model", cfg.AI.Model)
	}
	return letter.NewGenerator(provider, letter.CoverLetterTemplate, resume, logger)
}

func setupGate(cfg *config.Config) *ratelimit.Gate {
	return ratelimit.NewGate(cfg.Poll.MinCallSpacing)
}
