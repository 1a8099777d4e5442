package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/markhub/internal/config"
	"github.com/user/markhub/internal/db"
)

var retryAll bool

var retryCmd = &cobra.Command{
	Use:   "retry <id>",
	Short: "Retry errored bookmarks",
	Long:  "Reset an errored bookmark (or all of them with --all) to pending and run the pipeline again.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !retryAll && len(args) == 0 {
			return errors.New("provide a bookmark id or --all")
		}

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
		var ids []string
		if retryAll {
			bookmarks, err := store.ListBookmarks(ctx)
			if err != nil {
				return fmt.Errorf("failed to list bookmarks: %w", err)
			}
			for _, b := range bookmarks {
				if b.Status == db.StatusError {
					ids = append(ids, b.ID)
				}
			}
			if len(ids) == 0 {
				fmt.Println("No errored bookmarks.")
				return nil
			}
		} else {
			b, err := store.GetBookmark(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to look up bookmark: %w", err)
			}
			if b == nil {
				return fmt.Errorf("bookmark %s not found", args[0])
			}
			if b.Status != db.StatusError {
				return fmt.Errorf("bookmark %s is not in error state (status %s)", args[0], b.Status)
			}
			ids = []string{args[0]}
		}

		for _, id := range ids {
			if err := store.ResetBookmark(ctx, id); err != nil {
				return fmt.Errorf("failed to reset %s: %w", id, err)
			}
		}

		queue.Run(ctx)

		for _, id := range ids {
			b, err := store.GetBookmark(ctx, id)
			if err != nil || b == nil {
				continue
			}
			if b.Status == db.StatusComplete {
				fmt.Printf("Processed: %s\n", b.URL)
			} else {
				fmt.Printf("Still %s: %s (%s)\n", b.Status, b.URL, b.ErrorMessage)
			}
		}
		return nil
	},
}

func init() {
	retryCmd.Flags().BoolVar(&retryAll, "all", false, "Retry every errored bookmark")
	rootCmd.AddCommand(retryCmd)
}
