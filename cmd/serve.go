package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/markhub/internal/archive"
	"github.com/user/markhub/internal/config"
	"github.com/user/markhub/internal/db"
	"github.com/user/markhub/internal/logger"
	"github.com/user/markhub/internal/pipeline"
	"github.com/user/markhub/internal/server"
	"github.com/user/markhub/internal/syncer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, processing queue and sync alarm",
	Long:  "Serve the browser-facing API, drain the processing queue, and keep the WebDAV snapshot fresh on a schedule.",
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
		service := pipeline.NewService(store, queue, log)

		exporter := archive.NewExporter(store)
		importer := archive.NewImporter(store, log)
		controller := syncer.NewController(store, exporter, importer, cfg.Sync.Debounce, log)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if _, err := controller.EnsureSettings(ctx, cfg.Sync.Interval); err != nil {
			return fmt.Errorf("failed to seed sync settings: %w", err)
		}

		alarm := syncer.NewAlarm(controller, store, cfg.Sync.InitialDelay, log)
		if err := alarm.Start(ctx); err != nil {
			return fmt.Errorf("failed to start sync alarm: %w", err)
		}
		defer alarm.Stop()

		// Pick up bookmarks left runnable by a previous run.
		queue.Kick()

		handlers := server.NewHandlers(service, queue, controller, alarm, exporter, importer, log)
		return server.New(cfg.Server.Addr, handlers, log).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func newLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		FilePath:   cfg.LogPath(),
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return log, nil
}

func newQueue(cfg *config.Config, store *db.Store, log logger.Logger) (*pipeline.Queue, error) {
	embedder, err := pipeline.NewOpenAIEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	engine := pipeline.NewEngine(store,
		pipeline.NewHTTPFetcher(cfg.Fetch),
		pipeline.NewReadabilityExtractor(),
		pipeline.NewLLMGenerator(cfg),
		embedder,
		log)
	return pipeline.NewQueue(engine, store, log), nil
}
