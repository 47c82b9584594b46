package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nik45114/hhbot/internal/poller"
	"github.com/nik45114/hhbot/internal/scheduler"
	"github.com/nik45114/hhbot/internal/store"
)

var startChatID int64

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the polling daemon",
	Long:  "Start the scheduler daemon; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	startCmd.Flags().Int64Var(&startChatID, "chat-id", 0, "register this subscriber and enable monitoring before starting")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"interval", cfg.Poll.Interval.String(),
		"min_call_spacing", cfg.Poll.MinCallSpacing.String(),
		"page_size", cfg.Poll.PageSize,
		"max_per_day", cfg.Poll.MaxPerDay,
	)

	sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	if startChatID != 0 {
		if err := enableSubscriber(sqlStore, startChatID); err != nil {
			logger.Error("failed to register subscriber", "chat_id", startChatID, "error", err)
			os.Exit(1)
		}
		logger.Info("subscriber registered", "chat_id", startChatID)
	}

	client := buildClient(cfg, logger)
	n := setupNotifier(cfg, logger)
	letters := setupLetters(cfg, logger)
	gate := setupGate(cfg)

	p := poller.New(
		sqlStore,
		client,
		letters,
		n,
		gate,
		cfg.Poll.PageSize,
		cfg.Poll.PeriodDays,
		cfg.Poll.MaxPerDay,
		cfg.Poll.DispatchPause,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(p, cfg.Poll.Interval, logger)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}

// enableSubscriber seeds the subscriber rows and turns monitoring on.
func enableSubscriber(s *store.SQLiteStore, chatID int64) error {
	if err := s.GetOrCreateUser(chatID, ""); err != nil {
		return err
	}
	enabled := true
	return s.UpdateMonitoring(chatID, &enabled, nil)
}
