package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nik45114/hhbot/internal/model"
	"github.com/nik45114/hhbot/internal/store"
)

var (
	statsChatID int64
	statsLimit  int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show application statistics",
	Long:  "Prints how many applications were sent today and in total, plus the most recent attempts with their outcome.",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().Int64Var(&statsChatID, "chat-id", 1, "subscriber id")
	statsCmd.Flags().IntVar(&statsLimit, "limit", 10, "number of recent applications to show")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
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

	total, err := sqlStore.CountApplications(statsChatID, nil)
	if err != nil {
		return fmt.Errorf("count applications: %w", err)
	}
	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	today, err := sqlStore.CountApplications(statsChatID, &midnight)
	if err != nil {
		return fmt.Errorf("count applications today: %w", err)
	}

	fmt.Printf("Applications: %d today, %d total\n", today, total)

	recent, err := sqlStore.RecentApplications(statsChatID, statsLimit)
	if err != nil {
		return fmt.Errorf("recent applications: %w", err)
	}
	if len(recent) == 0 {
		fmt.Println("No applications recorded yet.")
		return nil
	}

	fmt.Println("\nRecent:")
	for _, rec := range recent {
		line := fmt.Sprintf("  %s  %-7s  %s — %s",
			rec.AppliedAt.Format("2006-01-02 15:04"),
			rec.Status,
			rec.VacancyTitle,
			rec.Employer,
		)
		if rec.Status == model.ApplicationStatusFailed && rec.Error != "" {
			line += "  (" + rec.Error + ")"
		}
		fmt.Println(line)
	}
	return nil
}
