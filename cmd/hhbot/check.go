package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nik45114/hhbot/internal/poller"
	"github.com/nik45114/hhbot/internal/store"
)

var checkChatID int64

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Poll once, print matches, exit",
	Long:  "One-shot poll with default preferences: searches, prints new vacancies, exits. Does not write to the store and never applies.",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().Int64Var(&checkChatID, "chat-id", 1, "subscriber id to poll as")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("check mode: nothing will be marked as seen, no applications will be sent")

	client := buildClient(cfg, logger)
	letters := setupLetters(cfg, logger)
	gate := setupGate(cfg)
	nopStore := store.NewNopStore(checkChatID)

	p := poller.New(
		nopStore,
		client,
		letters,
		setupNotifier(cfg, logger),
		gate,
		cfg.Poll.PageSize,
		cfg.Poll.PeriodDays,
		cfg.Poll.MaxPerDay,
		0, // no dispatch pause in one-shot mode
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.RunCycle(ctx); err != nil {
		logger.Error("check failed", "error", err)
		os.Exit(1)
	}

	logger.Info("check complete")
	return nil
}
