package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/markhub/internal/config"
	"github.com/user/markhub/internal/db"
)

var addCmd = &cobra.Command{
	Use:   "add <url>...",
	Short: "Save URLs and process them now",
	Long:  "Queue one or more URLs as bookmarks and run the processing pipeline to completion.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		store, err := db.NewStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()

		queue, err := newQueue(cfg, store, log)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		for _, url := range args {
			existing, err := store.GetBookmarkByURL(ctx, url)
			if err != nil {
				return fmt.Errorf("failed to look up %s: %w", url, err)
			}
			if existing != nil {
				fmt.Printf("Already saved: %s\n", url)
				continue
			}
			if err := store.CreateBookmark(ctx, &db.Bookmark{URL: url}); err != nil {
				return fmt.Errorf("failed to save %s: %w", url, err)
			}
		}

		queue.Run(ctx)

		for _, url := range args {
			b, err := store.GetBookmarkByURL(ctx, url)
			if err != nil || b == nil {
				continue
			}
			switch b.Status {
			case db.StatusComplete:
				fmt.Printf("Processed: %s\n", b.URL)
			case db.StatusError:
				fmt.Printf("Failed: %s (%s)\n", b.URL, b.ErrorMessage)
			default:
				fmt.Printf("Pending: %s\n", b.URL)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}
