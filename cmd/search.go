package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/markhub/internal/config"
	"github.com/user/markhub/internal/db"
	"github.com/user/markhub/internal/pipeline"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search saved knowledge",
	Long:  "Embed the query and rank bookmarks by their closest question/answer pairs.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		store, err := db.NewStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()

		embedder, err := pipeline.NewOpenAIEmbedder(cfg)
		if err != nil {
			return err
		}
		vectors, err := embedder.EmbedBatch(cmd.Context(), []string{query})
		if err != nil {
			return fmt.Errorf("failed to embed query: %w", err)
		}

		results, err := store.SearchByEmbedding(cmd.Context(), vectors[0], 10)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		if searchJSON {
			return outputJSON(results)
		}
		return outputDefault(results)
	},
}

func outputJSON(results []db.SearchResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func outputDefault(results []db.SearchResult) error {
	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	for i, r := range results {
		title := r.Title
		if title == "" {
			title = r.URL
		}
		fmt.Printf("%d. %s (%.2f)\n   %s\n", i+1, title, r.Score, r.URL)
		if r.Question != "" {
			fmt.Printf("   Q: %s\n", truncate(r.Question, 100))
			fmt.Printf("   A: %s\n", truncate(r.Answer, 100))
		}
		fmt.Println()
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func init() {
	searchCmd.Flags().BoolVarP(&searchJSON, "json", "j", false, "Output as JSON")
	rootCmd.AddCommand(searchCmd)
}
