package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/markhub/internal/config"
	"github.com/user/markhub/internal/db"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store and sync status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		store, err := db.NewStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()

		ctx := cmd.Context()
		counts, err := store.CountBookmarksByStatus(ctx)
		if err != nil {
			return fmt.Errorf("failed to count bookmarks: %w", err)
		}
		qaCount, err := store.CountQuestionAnswers(ctx)
		if err != nil {
			return fmt.Errorf("failed to count question answers: %w", err)
		}

		total := 0
		for _, n := range counts {
			total += n
		}
		fmt.Printf("Bookmarks: %d\n", total)
		for _, s := range []db.Status{db.StatusPending, db.StatusFetching, db.StatusProcessing, db.StatusComplete, db.StatusError} {
			if counts[s] > 0 {
				fmt.Printf("  %-10s %d\n", s, counts[s])
			}
		}
		fmt.Printf("Q&A pairs: %d\n", qaCount)

		settings, err := store.GetSyncSettings(ctx)
		if err != nil {
			return fmt.Errorf("failed to load sync settings: %w", err)
		}
		if settings == nil || !settings.WebdavEnabled {
			fmt.Println("Sync: disabled")
			return nil
		}
		fmt.Printf("Sync: every %dm to %s\n", settings.WebdavSyncInterval, settings.WebdavURL)
		if settings.WebdavLastSyncTime != "" {
			fmt.Printf("  last sync:  %s\n", settings.WebdavLastSyncTime)
		}
		if settings.WebdavLastSyncError != "" {
			fmt.Printf("  last error: %s\n", settings.WebdavLastSyncError)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
