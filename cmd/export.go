package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/markhub/internal/archive"
	"github.com/user/markhub/internal/config"
	"github.com/user/markhub/internal/db"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export the store to a snapshot file",
	Long:  "Write all bookmarks with their Markdown and Q&A pairs to a JSON snapshot file.",
	Args:  cobra.ExactArgs(1),
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

		payload, err := archive.NewExporter(store).Export(cmd.Context())
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		data, err := archive.Encode(payload)
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		if err := os.WriteFile(args[0], data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", args[0], err)
		}

		fmt.Printf("Exported %d bookmarks to %s\n", payload.BookmarkCount, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
