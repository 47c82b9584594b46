package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/nik45114/hhbot/internal/browse"
	"github.com/nik45114/hhbot/internal/model"
	"github.com/nik45114/hhbot/internal/store"
)

var browseChatID int64

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse new vacancies interactively (TUI)",
	Long:  "Searches with the subscriber's preferences and opens an accept/skip view: 'a' applies with a generated cover letter, 's' skips.",
	RunE:  runBrowse,
}

func init() {
	browseCmd.Flags().Int64Var(&browseChatID, "chat-id", 1, "subscriber id to browse as")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	if err := sqlStore.GetOrCreateUser(browseChatID, ""); err != nil {
		logger.Error("failed to register subscriber", "error", err)
		os.Exit(1)
	}

	client := buildClient(cfg, logger)
	letters := setupLetters(cfg, logger)
	gate := setupGate(cfg)

	session, err := browse.NewSession(browseChatID, sqlStore, client, letters, gate, logger)
	if err != nil {
		logger.Error("failed to start session", "error", err)
		os.Exit(1)
	}

	vacancies, err := browse.RunLoader(session, func(ctx context.Context) ([]model.Vacancy, error) {
		return session.LoadNew(ctx, cfg.Poll.PageSize, cfg.Poll.PeriodDays)
	})
	if err != nil {
		logger.Error("search failed", "error", err)
		os.Exit(1)
	}

	if len(vacancies) == 0 {
		logger.Info("no new vacancies")
		return nil
	}

	return browse.RunTUI(session, vacancies)
}
