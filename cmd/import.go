package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/markhub/internal/archive"
	"github.com/user/markhub/internal/config"
	"github.com/user/markhub/internal/db"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a snapshot file",
	Long:  "Merge bookmarks from an exported snapshot file into the local store. Existing URLs are left untouched.",
	Args:  cobra.ExactArgs(1),
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

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		payload, err := archive.Decode(data)
		if err != nil {
			return fmt.Errorf("failed to parse snapshot: %w", err)
		}

		result, err := archive.NewImporter(store, log).Import(cmd.Context(), payload, args[0])
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		fmt.Printf("Imported: %d\n", result.Imported)
		fmt.Printf("Skipped:  %d\n", result.Skipped)
		for _, msg := range result.Errors {
			fmt.Printf("Error: %s\n", msg)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
