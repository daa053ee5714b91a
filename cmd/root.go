// Package cmd defines and implements the CLI commands for the
// reviewharvest executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ymiyake/reviewharvest/internal/config"
	"github.com/ymiyake/reviewharvest/internal/logging"
	"github.com/ymiyake/reviewharvest/internal/metrics"
)

var (
	cfgFile string
	cfg     config.Config
	logger  *zap.Logger
)

// newRootCmd creates and configures the root command. Configuration and the
// logger are built once in PersistentPreRunE so every subcommand sees the
// same run identity.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reviewharvest",
		Short: "Harvests restaurant reviews and loads them into a search index.",
		Long: `reviewharvest incrementally fetches restaurant review pages from a
paginated listing site into a resumable raw-page archive, and later parses
the archived markup into documents for a search index. Interrupted runs
pick up exactly where they left off; completed work is never re-fetched.`,
		SilenceUsage: true,

		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err = logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logger = logger.With(zap.String("run_id", uuid.NewString()))
			metrics.Init()
			return nil
		},

		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newIngestCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
