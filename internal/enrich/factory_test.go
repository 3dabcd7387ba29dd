package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatchline/opportunity-cli/internal/concept"
	"github.com/hatchline/opportunity-cli/internal/config"
	"github.com/hatchline/opportunity-cli/internal/cost"
	"github.com/hatchline/opportunity-cli/internal/model"
	"github.com/hatchline/opportunity-cli/pkg/anthropic"
)

type nullAI struct{}

func (nullAI) CreateMessage(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: `{"ok":true}`}},
	}, nil
}

func allEnabled() config.ServicesConfig {
	return config.ServicesConfig{
		Opportunity:         true,
		Monetization:        true,
		Profile:             true,
		Trust:               true,
		Market:              true,
		AnalysisTimeoutSecs: 30,
	}
}

func fullDeps() Dependencies {
	return Dependencies{
		Store:      concept.NewMemory(),
		Calculator: cost.NewCalculator(cost.DefaultRates()),
		AI:         nullAI{},
		Model:      "claude-haiku-4-5-20251001",
	}
}

func TestNewFactory_AllFlagsEnabled(t *testing.T) {
	f := NewFactory(allEnabled(), fullDeps())

	assert.Equal(t, 5, f.ServiceCount())
	assert.Equal(t, []string{"market", "monetization", "opportunity", "profile", "trust"}, f.Names())

	for _, name := range f.Names() {
		svc := f.GetService(name)
		require.NotNil(t, svc, name)
		assert.Equal(t, name, svc.Name())
		assert.False(t, svc.Statistics().Degraded, name)
	}
}

func TestNewFactory_DisabledFlagsOmitted(t *testing.T) {
	cfg := allEnabled()
	cfg.Market = false
	cfg.Trust = false

	f := NewFactory(cfg, fullDeps())

	assert.Equal(t, 3, f.ServiceCount())
	assert.Nil(t, f.GetService(ServiceMarket))
	assert.NotNil(t, f.GetService(ServiceOpportunity))
}

func TestNewFactory_MissingAIDegradesToNoop(t *testing.T) {
	deps := fullDeps()
	deps.AI = nil

	f := NewFactory(allEnabled(), deps)

	// Every enabled flag still yields a usable service.
	require.Equal(t, 5, f.ServiceCount())
	for _, name := range f.Names() {
		svc := f.GetService(name)
		out := svc.Enrich(context.Background(), model.Submission{ID: "t3_a", Title: "idea"})
		assert.Equal(t, model.StatusFailed, out.Status, name)
		assert.True(t, svc.Statistics().Degraded, name)
	}
}

func TestNewFactory_MissingStoreDegradesToNoop(t *testing.T) {
	deps := fullDeps()
	deps.Store = nil

	f := NewFactory(allEnabled(), deps)
	for _, name := range f.Names() {
		assert.True(t, f.GetService(name).Statistics().Degraded, name)
	}
}

func TestFactory_GetService_Unknown(t *testing.T) {
	f := NewFactory(allEnabled(), fullDeps())
	assert.Nil(t, f.GetService("sentiment"))
}

func TestFactory_ServicesReturnsCopy(t *testing.T) {
	f := NewFactory(allEnabled(), fullDeps())

	m := f.Services()
	delete(m, ServiceTrust)
	assert.Equal(t, 5, f.ServiceCount())
}
