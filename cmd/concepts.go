package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hatchline/opportunity-cli/internal/cost"
	"github.com/hatchline/opportunity-cli/internal/model"
)

var conceptsExportLimit int

var conceptsCmd = &cobra.Command{
	Use:   "concepts",
	Short: "Inspect the deduplication store",
}

var conceptsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show concept store totals and estimated savings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}

		stats, err := store.Stats(ctx)
		if err != nil {
			return err
		}

		// Savings estimate: each duplicate submission would have cost one
		// unit-cost call per analysis type, scaled by cache coverage.
		calc := cost.NewCalculator(cfg.Pricing.Rates())
		var savings float64
		if stats.Concepts > 0 {
			for t, cached := range stats.CachedByType {
				coverage := float64(cached) / float64(stats.Concepts)
				savings += float64(stats.Duplicates) * calc.UnitCost(t) * coverage
			}
		}
		stats.EstimatedSavings = savings

		return writeYAML(stats)
	},
}

var conceptsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export top concepts by submission count as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}

		concepts, err := store.TopConcepts(ctx, conceptsExportLimit)
		if err != nil {
			return err
		}

		type exportEntry struct {
			ID                  string `yaml:"id"`
			Fingerprint         string `yaml:"fingerprint"`
			PrimarySubmissionID string `yaml:"primary_submission_id"`
			SubmissionCount     int    `yaml:"submission_count"`
			ComputedTypes       []string `yaml:"computed_types,omitempty"`
		}

		entries := make([]exportEntry, len(concepts))
		for i, c := range concepts {
			e := exportEntry{
				ID:                  c.ID,
				Fingerprint:         c.Fingerprint,
				PrimarySubmissionID: c.PrimarySubmissionID,
				SubmissionCount:     c.SubmissionCount,
			}
			for _, t := range model.AllAnalysisTypes() {
				if c.HasResult(t) {
					e.ComputedTypes = append(e.ComputedTypes, string(t))
				}
			}
			entries[i] = e
		}

		return writeYAML(entries)
	},
}

func writeYAML(v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return eris.Wrap(err, "marshal yaml")
	}
	_, err = os.Stdout.Write(out)
	return err
}

func init() {
	conceptsExportCmd.Flags().IntVar(&conceptsExportLimit, "limit", 50, "maximum concepts to export")
	conceptsCmd.AddCommand(conceptsStatsCmd, conceptsExportCmd)
	rootCmd.AddCommand(conceptsCmd)
}
