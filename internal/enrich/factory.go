package enrich

import (
	"sort"
	"time"

	"github.com/hatchline/opportunity-cli/internal/analyzer"
	"github.com/hatchline/opportunity-cli/internal/concept"
	"github.com/hatchline/opportunity-cli/internal/config"
	"github.com/hatchline/opportunity-cli/internal/cost"
	"github.com/hatchline/opportunity-cli/internal/dedup"
	"github.com/hatchline/opportunity-cli/internal/model"
	"github.com/hatchline/opportunity-cli/internal/resilience"
	"github.com/hatchline/opportunity-cli/pkg/anthropic"
)

// Dependencies holds the collaborators the factory hands to services. A nil
// AI client degrades every analysis service to a no-op instead of failing
// construction.
type Dependencies struct {
	Store         concept.Store
	Calculator    *cost.Calculator
	AI            anthropic.Client
	Model         string
	MarketContext analyzer.ContextProvider
	Breakers      *resilience.ServiceBreakers
	Retry         resilience.RetryConfig
}

// Factory builds and holds the enabled service set.
type Factory struct {
	services map[string]Service
}

type serviceSpec struct {
	enabled      func(config.ServicesConfig) bool
	analysisType model.AnalysisType
	build        func(*dedup.Engine, analyzer.Analyzer, time.Duration) Service
}

// constructors is the lookup table from service name to its capability flag
// and builder.
var constructors = map[string]serviceSpec{
	ServiceOpportunity: {
		enabled:      func(c config.ServicesConfig) bool { return c.Opportunity },
		analysisType: model.AnalysisOpportunity,
		build:        NewOpportunity,
	},
	ServiceMonetization: {
		enabled:      func(c config.ServicesConfig) bool { return c.Monetization },
		analysisType: model.AnalysisMonetization,
		build:        NewMonetization,
	},
	ServiceProfile: {
		enabled:      func(c config.ServicesConfig) bool { return c.Profile },
		analysisType: model.AnalysisProfile,
		build:        NewProfile,
	},
	ServiceTrust: {
		enabled:      func(c config.ServicesConfig) bool { return c.Trust },
		analysisType: model.AnalysisTrust,
		build:        NewTrust,
	},
	ServiceMarket: {
		enabled:      func(c config.ServicesConfig) bool { return c.Market },
		analysisType: model.AnalysisMarket,
		build:        NewMarket,
	},
}

// NewFactory instantiates one service per enabled capability flag. The
// returned factory always holds a usable service for every enabled flag;
// missing dependencies produce degraded no-ops, never errors.
func NewFactory(cfg config.ServicesConfig, deps Dependencies) *Factory {
	timeout := time.Duration(cfg.AnalysisTimeoutSecs) * time.Second
	if deps.Breakers == nil {
		deps.Breakers = resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig())
	}

	services := make(map[string]Service)
	for name, spec := range constructors {
		if !spec.enabled(cfg) {
			continue
		}
		services[name] = buildService(name, spec, deps, timeout)
	}
	return &Factory{services: services}
}

func buildService(name string, spec serviceSpec, deps Dependencies, timeout time.Duration) Service {
	if deps.AI == nil {
		return NewNoop(name, spec.analysisType, "anthropic client not configured")
	}
	if deps.Store == nil {
		return NewNoop(name, spec.analysisType, "concept store not configured")
	}

	opts := []analyzer.Option{
		analyzer.WithRetryConfig(deps.Retry),
		analyzer.WithCircuitBreaker(deps.Breakers.Get(name)),
	}
	if name == ServiceMarket && deps.MarketContext != nil {
		opts = append(opts, analyzer.WithContextProvider(deps.MarketContext))
	}

	az, err := analyzer.NewClaude(deps.AI, deps.Model, spec.analysisType, opts...)
	if err != nil {
		return NewNoop(name, spec.analysisType, err.Error())
	}

	engine := dedup.NewEngine(spec.analysisType, deps.Store, deps.Calculator)
	return spec.build(engine, az, timeout)
}

// GetService returns the named service, or nil when it is not enabled.
func (f *Factory) GetService(name string) Service {
	return f.services[name]
}

// ServiceCount returns the number of active services.
func (f *Factory) ServiceCount() int {
	return len(f.services)
}

// Services returns the active services keyed by name.
func (f *Factory) Services() map[string]Service {
	out := make(map[string]Service, len(f.services))
	for name, svc := range f.services {
		out[name] = svc
	}
	return out
}

// Names returns the active service names in sorted order, the order the
// orchestrator runs them in.
func (f *Factory) Names() []string {
	names := make([]string, 0, len(f.services))
	for name := range f.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
