package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hatchline/opportunity-cli/internal/config"
)

// cfg is loaded once in the root PersistentPreRunE and shared by every
// subcommand.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "opportunity-cli",
	Short:         "Deduplication-aware business opportunity enrichment pipeline",
	Long:          "Collects social-media discussion threads, deduplicates them by semantic fingerprint, enriches novel ones with AI-derived attributes, and persists enriched records to a relational sink.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return eris.Wrap(err, "load config")
		}
		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		zap.L().Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
