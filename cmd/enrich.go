package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hatchline/opportunity-cli/internal/model"
	"github.com/hatchline/opportunity-cli/pkg/reddit"
)

var (
	enrichInput     string
	enrichSubreddit string
	enrichLimit     int
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run one enrichment pass over a batch of submissions",
	Long:  "Reads submissions from a JSON file or fetches them from a subreddit listing, runs every active enrichment service with deduplication, and loads the enriched records into the sink.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		subs, err := collectSubmissions(cmd)
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

		result, err := env.Orchestrator.Run(ctx, subs)
		if err != nil {
			return err
		}

		return printResult(result)
	},
}

func collectSubmissions(cmd *cobra.Command) ([]model.Submission, error) {
	if enrichInput != "" {
		return readSubmissionsFile(enrichInput)
	}
	if enrichSubreddit != "" {
		client := reddit.NewClient(
			reddit.WithBaseURL(cfg.Reddit.BaseURL),
			reddit.WithUserAgent(cfg.Reddit.UserAgent),
			reddit.WithRateLimit(cfg.Reddit.RatePerSec),
		)
		posts, err := client.FetchNew(cmd.Context(), enrichSubreddit, enrichLimit)
		if err != nil {
			return nil, err
		}
		subs := make([]model.Submission, len(posts))
		for i, p := range posts {
			subs[i] = model.Submission{
				ID:           p.FullID(),
				Title:        p.Title,
				Body:         p.SelfText,
				Category:     p.Subreddit,
				Score:        p.Score,
				CommentCount: p.NumComments,
				URL:          p.Permalink,
				Author:       p.Author,
				CreatedAt:    p.CreatedAt(),
			}
		}
		return subs, nil
	}
	return nil, eris.New("either --input or --subreddit is required")
}

func readSubmissionsFile(path string) ([]model.Submission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read submissions file %s", path)
	}
	var subs []model.Submission
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, eris.Wrapf(err, "parse submissions file %s", path)
	}
	return subs, nil
}

func printResult(result *model.PipelineResult) error {
	// Records are persisted or inspected via the sink; keep stdout to the
	// run summary.
	summary := *result
	summary.Records = nil

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal result")
	}
	_, err = os.Stdout.Write(append(out, '\n'))
	return err
}

func init() {
	enrichCmd.Flags().StringVar(&enrichInput, "input", "", "path to a JSON file of submissions")
	enrichCmd.Flags().StringVar(&enrichSubreddit, "subreddit", "", "subreddit to fetch new submissions from")
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 100, "maximum submissions to fetch")
	rootCmd.AddCommand(enrichCmd)
}
