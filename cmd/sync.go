package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/markhub/internal/archive"
	"github.com/user/markhub/internal/config"
	"github.com/user/markhub/internal/db"
	"github.com/user/markhub/internal/syncer"
)

var syncForce bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the store with the WebDAV remote",
	Long:  "Download the remote snapshot, merge it into the local store, and upload the result if anything changed.",
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

		controller := syncer.NewController(store,
			archive.NewExporter(store),
			archive.NewImporter(store, log),
			cfg.Sync.Debounce,
			log)

		result := controller.PerformSync(cmd.Context(), syncForce)
		if result.Action == syncer.ActionError {
			return fmt.Errorf("sync failed: %s", result.Message)
		}

		fmt.Printf("Sync: %s", result.Action)
		if result.Message != "" {
			fmt.Printf(" (%s)", result.Message)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVarP(&syncForce, "force", "f", false, "Bypass the debounce window")
	rootCmd.AddCommand(syncCmd)
}
