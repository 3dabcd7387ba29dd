package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hatchline/opportunity-cli/internal/model"
	"github.com/hatchline/opportunity-cli/internal/resilience"
)

// defaultChunkSize bounds one orchestrator pass when --chunk-size is absent
// or non-positive.
const defaultChunkSize = 200

var (
	batchInput     string
	batchChunkSize int
	batchRetryDLQ  bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run chunked enrichment over a large submissions file",
	Long:  "Splits the input into fixed-size chunks and runs one orchestrator pass per chunk, so memory stays bounded on large backfills. With --retry-dlq, re-runs submissions from the dead letter queue instead.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var subs []model.Submission
		var err error
		switch {
		case batchRetryDLQ:
			subs, err = dlqSubmissions()
		case batchInput != "":
			subs, err = readSubmissionsFile(batchInput)
		default:
			return eris.New("either --input or --retry-dlq is required")
		}
		if err != nil {
			return err
		}
		if len(subs) == 0 {
			zap.L().Info("no submissions to process")
			return nil
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		total := aggregateResult()
		offset := 0
		for _, chunk := range splitChunks(subs, batchChunkSize) {
			result, err := env.Orchestrator.Run(ctx, chunk)
			if err != nil {
				return err
			}
			mergeResult(total, result)

			zap.L().Info("batch: chunk complete",
				zap.Int("offset", offset),
				zap.Int("processed", result.Processed),
				zap.Int("loaded", result.Load.Loaded),
			)
			offset += len(chunk)
		}

		if batchRetryDLQ && total.Success {
			if err := resilience.NewFileDLQ(cfg.DLQ.Path).Truncate(); err != nil {
				zap.L().Warn("batch: truncate dead letter queue", zap.Error(err))
			}
		}

		return printResult(total)
	},
}

// dlqSubmissions loads retryable dead-letter entries, deduplicated by
// submission ID (one submission may have failed several services).
func dlqSubmissions() ([]model.Submission, error) {
	entries, err := resilience.NewFileDLQ(cfg.DLQ.Path).Load()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(entries))
	var subs []model.Submission
	for _, e := range entries {
		if seen[e.Submission.ID] {
			continue
		}
		seen[e.Submission.ID] = true
		subs = append(subs, e.Submission)
	}
	return subs, nil
}

// splitChunks partitions submissions into runs of at most size. Non-positive
// sizes fall back to the default, the same clamp the loader applies to its
// batch size.
func splitChunks(subs []model.Submission, size int) [][]model.Submission {
	if size <= 0 {
		size = defaultChunkSize
	}
	var chunks [][]model.Submission
	for start := 0; start < len(subs); start += size {
		end := start + size
		if end > len(subs) {
			end = len(subs)
		}
		chunks = append(chunks, subs[start:end])
	}
	return chunks
}

func aggregateResult() *model.PipelineResult {
	return &model.PipelineResult{
		Services: make(map[string]model.ServiceStatistics),
		Success:  true,
	}
}

func mergeResult(total, chunk *model.PipelineResult) {
	total.Processed += chunk.Processed
	total.Load.Add(chunk.Load)
	if !chunk.Success {
		total.Success = false
		total.Error = chunk.Error
	}
	if total.StartedAt.IsZero() {
		total.StartedAt = chunk.StartedAt
	}
	total.FinishedAt = chunk.FinishedAt
	// Each Run resets service statistics, so chunk snapshots are per-chunk.
	for name, stats := range chunk.Services {
		agg := total.Services[name]
		agg.Service = name
		agg.Analyzed += stats.Analyzed
		agg.Skipped += stats.Skipped
		agg.Copied += stats.Copied
		agg.Failed += stats.Failed
		agg.Invalid += stats.Invalid
		agg.Errors += stats.Errors
		agg.CostSavedUSD += stats.CostSavedUSD
		agg.Degraded = agg.Degraded || stats.Degraded
		total.Services[name] = agg
	}
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "path to a JSON file of submissions")
	batchCmd.Flags().IntVar(&batchChunkSize, "chunk-size", defaultChunkSize, "submissions per orchestrator pass")
	batchCmd.Flags().BoolVar(&batchRetryDLQ, "retry-dlq", false, "re-run submissions from the dead letter queue")
	rootCmd.AddCommand(batchCmd)
}
