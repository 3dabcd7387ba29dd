package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hatchline/opportunity-cli/internal/analyzer"
	"github.com/hatchline/opportunity-cli/internal/concept"
	"github.com/hatchline/opportunity-cli/internal/cost"
	"github.com/hatchline/opportunity-cli/internal/dedup"
	"github.com/hatchline/opportunity-cli/internal/enrich"
	"github.com/hatchline/opportunity-cli/internal/loader"
	"github.com/hatchline/opportunity-cli/internal/pipeline"
	"github.com/hatchline/opportunity-cli/internal/resilience"
	"github.com/hatchline/opportunity-cli/pkg/anthropic"
	"github.com/hatchline/opportunity-cli/pkg/websearch"
)

// pipelineEnv wires the store, services, and orchestrator for one command.
type pipelineEnv struct {
	Store        concept.Store
	Factory      *enrich.Factory
	Orchestrator *pipeline.Orchestrator
}

func initStore(ctx context.Context) (concept.Store, error) {
	switch cfg.Store.Driver {
	case "memory":
		return concept.NewMemory(), nil
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "concepts.db"
		}
		return concept.NewSQLite(path)
	case "postgres":
		return concept.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	store, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}

	deps := enrich.Dependencies{
		Store:      store,
		Calculator: cost.NewCalculator(cfg.Pricing.Rates()),
		Model:      cfg.Anthropic.HaikuModel,
		Retry: resilience.FromRetryConfig(
			cfg.Retry.MaxAttempts,
			cfg.Retry.InitialBackoffMs,
			cfg.Retry.MaxBackoffMs,
			cfg.Retry.Multiplier,
			cfg.Retry.JitterFraction,
		),
	}
	if cfg.Anthropic.Key != "" {
		deps.AI = anthropic.NewClient(cfg.Anthropic.Key)
	}
	if cfg.Websearch.Key != "" {
		deps.MarketContext = analyzer.NewSearchContext(
			websearch.NewClient(cfg.Websearch.Key,
				websearch.WithBaseURL(cfg.Websearch.BaseURL),
				websearch.WithRateLimit(cfg.Websearch.RatePerSec),
			), 5)
	}

	factory := enrich.NewFactory(cfg.Services, deps)

	// The relational sink rides the concept store's pool; non-postgres runs
	// keep records in the pipeline result.
	var sink pipeline.Sink
	if pg, ok := store.(*concept.PostgresStore); ok {
		sink = loader.New(pg.Pool())
	} else {
		zap.L().Info("no relational sink configured, records stay in memory",
			zap.String("store_driver", cfg.Store.Driver))
	}

	orch := pipeline.New(factory, sink, cfg.Loader,
		pipeline.WithRegistrar(dedup.NewRegistrar(store)),
		pipeline.WithDLQ(resilience.NewFileDLQ(cfg.DLQ.Path), cfg.DLQ.MaxRetries))

	return &pipelineEnv{Store: store, Factory: factory, Orchestrator: orch}, nil
}

func (e *pipelineEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close concept store", zap.Error(err))
	}
}
