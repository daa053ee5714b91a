package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ymiyake/reviewharvest/internal/index"
	"github.com/ymiyake/reviewharvest/internal/ingest"
)

const defaultCommentsDir = "data/comments"

// newIngestCmd creates the 'ingest' subcommand, which parses archived raw
// pages and upserts review documents into the search index.
func newIngestCmd() *cobra.Command {
	var (
		rebuild    bool
		areaFilter string
	)

	cmd := &cobra.Command{
		Use:   "ingest [comments_dir]",
		Short: "Loads archived review pages into the search index",
		Long: `Walks every raw-page archive under the comments directory, extracts
structured review fields from the stored markup, and upserts one document
per review into the search index. Failed index writes are retried until
they succeed; a struggling index stalls the run rather than losing data.

The comments directory is read from the local filesystem regardless of the
configured storage backend; a scrape that wrote to GCS must be synced down
(e.g. gsutil rsync) before ingesting.`,
		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			commentsDir := defaultCommentsDir
			if len(args) > 0 {
				commentsDir = args[0]
			}

			idx, err := index.NewElastic(index.Config{
				Addresses: cfg.Index.Addresses,
				Name:      cfg.Index.Name,
			}, logger)
			if err != nil {
				return fmt.Errorf("init index: %w", err)
			}

			initial, max := cfg.RetryDelays()
			p := ingest.New(ingest.Config{
				ShowProgress: cfg.Scraper.ShowProgress,
			}, idx, index.NewForeverPolicy(initial, max), logger)

			return p.Run(cmd.Context(), commentsDir, rebuild, areaFilter)
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "delete and recreate the index before ingesting")
	cmd.Flags().StringVarP(&areaFilter, "area", "a", "", "only ingest archives whose name contains this substring")

	return cmd
}
