package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	gcstorage "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ymiyake/reviewharvest/internal/fetcher"
	"github.com/ymiyake/reviewharvest/internal/planner"
)

const defaultAreaList = "area_list.tsv"

// newScrapeCmd creates the 'scrape' subcommand, which runs the three-phase
// crawl for every area in the area list.
func newScrapeCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "scrape [area_list]",
		Short: "Fetches review pages for every area in the area list",
		Long: `Runs restaurant discovery, comment-link discovery, and raw page
fetching for each row of the tab-separated area list. All three phases
consult the archive first, so re-running after an interruption only fetches
what is missing.`,
		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			areaList := defaultAreaList
			if len(args) > 0 {
				areaList = args[0]
			}

			areas, err := planner.ReadAreaList(areaList)
			if err != nil {
				return err
			}

			ws, err := buildWorkspace(cmd.Context(), outDir)
			if err != nil {
				return err
			}

			colly, err := fetcher.NewColly(fetcher.Config{
				UserAgent: cfg.Scraper.UserAgent,
				Timeout:   cfg.FetchTimeout(),
			}, logger)
			if err != nil {
				return fmt.Errorf("init fetcher: %w", err)
			}
			f := fetcher.NewThrottled(colly, cfg.Scraper.RequestsPerSecond)

			p := planner.New(planner.Config{
				ShowProgress: cfg.Scraper.ShowProgress,
			}, ws, f, logger)

			for _, area := range areas {
				logger.Info("harvesting area", zap.String("area", area.Name))
				if err := p.Harvest(cmd.Context(), area); err != nil {
					return fmt.Errorf("harvest %s: %w", area.Name, err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "data", "output directory for the raw archives")

	return cmd
}

// buildWorkspace selects the archive backend from config. The local layout
// is what the ingest command scans later.
func buildWorkspace(ctx context.Context, outDir string) (*planner.Workspace, error) {
	switch cfg.Storage.Backend {
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		return planner.NewGCSWorkspace(client, cfg.Storage.GCSBucket, cfg.Storage.Prefix), nil
	default:
		return planner.NewFSWorkspace(filepath.Clean(outDir)), nil
	}
}
