package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/user/markhub/internal/config"
	"github.com/user/markhub/internal/db"
)

var jobsStatusFilter string

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List the processing job ledger",
	Long:  "Show recent pipeline jobs, newest first. Failed jobs carry the error kind and message in their metadata.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var status db.JobStatus
		if jobsStatusFilter != "" {
			status = db.JobStatus(strings.ToUpper(jobsStatusFilter))
			switch status {
			case db.JobStatusPending, db.JobStatusInProgress, db.JobStatusCompleted, db.JobStatusFailed:
			default:
				return fmt.Errorf("unknown job status %q", jobsStatusFilter)
			}
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		store, err := db.NewStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()

		jobs, err := store.ListJobs(cmd.Context(), status, 50)
		if err != nil {
			return fmt.Errorf("failed to list jobs: %w", err)
		}
		if len(jobs) == 0 {
			fmt.Println("No jobs recorded.")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"ID", "Type", "Status", "Bookmark", "Created", "Metadata"})
		for _, j := range jobs {
			meta := j.Metadata
			if meta == "{}" {
				meta = ""
			}
			t.AppendRow(table.Row{
				shortID(j.ID),
				j.Type,
				j.Status,
				j.BookmarkID,
				j.CreatedAt.Format("2006-01-02 15:04"),
				truncate(meta, 48),
			})
		}
		t.Render()
		return nil
	},
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func init() {
	jobsCmd.Flags().StringVar(&jobsStatusFilter, "status", "", "Filter by status (pending, in_progress, completed, failed)")
	rootCmd.AddCommand(jobsCmd)
}
