// Package pipeline runs the enrichment services over a batch of submissions
// and hands the results to the relational sink.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hatchline/opportunity-cli/internal/config"
	"github.com/hatchline/opportunity-cli/internal/dedup"
	"github.com/hatchline/opportunity-cli/internal/enrich"
	"github.com/hatchline/opportunity-cli/internal/loader"
	"github.com/hatchline/opportunity-cli/internal/model"
	"github.com/hatchline/opportunity-cli/internal/resilience"
)

// Sink is the loader surface the orchestrator needs. Nil sink means the
// records are returned in the result only, e.g. for the webhook server.
type Sink interface {
	Ping(ctx context.Context) error
	LoadBatch(ctx context.Context, records []model.EnrichedRecord, table, primaryKey string, mode loader.Mode, batchSize int) (model.LoadStatistics, error)
}

// Orchestrator drives one batch run: every active service over every
// submission, then one load.
type Orchestrator struct {
	factory   *enrich.Factory
	sink      Sink
	sinkCfg   config.LoaderConfig
	registrar *dedup.Registrar
	dlq       *resilience.FileDLQ
	dlqMax    int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRegistrar counts each submission against its concept once per run
// pass, independent of how many services process it.
func WithRegistrar(r *dedup.Registrar) Option {
	return func(o *Orchestrator) {
		o.registrar = r
	}
}

// WithDLQ records failed enrichments to a dead letter queue for later retry.
func WithDLQ(q *resilience.FileDLQ, maxRetries int) Option {
	return func(o *Orchestrator) {
		o.dlq = q
		o.dlqMax = maxRetries
	}
}

// New creates an orchestrator over the active services and a sink.
func New(factory *enrich.Factory, sink Sink, sinkCfg config.LoaderConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		factory: factory,
		sink:    sink,
		sinkCfg: sinkCfg,
		dlqMax:  3,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes submissions in order. Services for one submission run
// concurrently; they share no mutable state. One service's failure on one
// submission never blocks other services or submissions. The result's
// Success flag clears only when the sink is unreachable or the final load
// fails.
func (o *Orchestrator) Run(ctx context.Context, subs []model.Submission) (*model.PipelineResult, error) {
	result := &model.PipelineResult{
		Services:  make(map[string]model.ServiceStatistics),
		Success:   true,
		StartedAt: time.Now().UTC(),
	}
	defer func() { result.FinishedAt = time.Now().UTC() }()

	if o.sink != nil {
		if err := o.sink.Ping(ctx); err != nil {
			result.Success = false
			result.Error = err.Error()
			return result, err
		}
	}

	names := o.factory.Names()
	for _, name := range names {
		o.factory.GetService(name).ResetStatistics()
	}

	log := zap.L().With(zap.Int("submissions", len(subs)), zap.Strings("services", names))
	log.Info("pipeline: run started")

	var dlqEntries []resilience.DLQEntry
	records := make([]model.EnrichedRecord, 0, len(subs))
	for _, sub := range subs {
		if ctx.Err() != nil {
			log.Warn("pipeline: run canceled", zap.Int("processed", result.Processed))
			break
		}

		if o.registrar != nil {
			o.registrar.Observe(ctx, sub)
		}

		outputs := make([]model.EnrichmentOutput, len(names))
		g := new(errgroup.Group)
		for i, name := range names {
			svc := o.factory.GetService(name)
			g.Go(func() error {
				outputs[i] = svc.Enrich(ctx, sub)
				return nil
			})
		}
		_ = g.Wait() // Enrich never returns an error.

		record := model.EnrichedRecord{
			Submission: sub,
			Outputs:    make(map[string]model.EnrichmentOutput, len(outputs)),
			EnrichedAt: time.Now().UTC(),
		}
		for _, out := range outputs {
			record.Outputs[out.Service] = out
			if out.Status == model.StatusFailed && o.dlq != nil {
				dlqEntries = append(dlqEntries,
					resilience.NewDLQEntry(sub, out.Service, eris.New(out.Error), o.dlqMax))
			}
		}
		records = append(records, record)
		result.Processed++
	}

	for _, name := range names {
		result.Services[name] = o.factory.GetService(name).Statistics()
	}
	result.Records = records

	if len(dlqEntries) > 0 {
		if err := o.dlq.Append(dlqEntries...); err != nil {
			zap.L().Warn("pipeline: dead letter append failed", zap.Error(err))
		}
	}

	if o.sink != nil && len(records) > 0 {
		mode, err := loader.ParseMode(o.sinkCfg.Mode)
		if err != nil {
			mode = loader.ModeMerge
		}
		loadStats, err := o.sink.LoadBatch(ctx, records, o.sinkCfg.Table, o.sinkCfg.PrimaryKey, mode, o.sinkCfg.BatchSize)
		result.Load = loadStats
		if err != nil {
			result.Success = false
			result.Error = err.Error()
		}
	}

	log.Info("pipeline: run finished",
		zap.Int("processed", result.Processed),
		zap.Int("loaded", result.Load.Loaded),
		zap.Bool("success", result.Success),
	)
	return result, nil
}
