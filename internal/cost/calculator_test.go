package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hatchline/opportunity-cli/internal/model"
)

func TestClaude_KnownModel(t *testing.T) {
	c := NewCalculator(DefaultRates())

	// 1M input + 1M output tokens of haiku, no batch, no cache.
	got := c.Claude("claude-haiku-4-5-20251001", false, 1_000_000, 1_000_000, 0, 0)
	assert.InDelta(t, 4.80, got, 1e-9)
}

func TestClaude_BatchDiscount(t *testing.T) {
	c := NewCalculator(DefaultRates())

	full := c.Claude("claude-sonnet-4-5-20250929", false, 2_000_000, 500_000, 0, 0)
	batch := c.Claude("claude-sonnet-4-5-20250929", true, 2_000_000, 500_000, 0, 0)
	assert.InDelta(t, full*0.5, batch, 1e-9)
}

func TestClaude_UnknownModel(t *testing.T) {
	c := NewCalculator(DefaultRates())
	assert.Zero(t, c.Claude("claude-2", false, 1000, 1000, 0, 0))
}

func TestUnitCost(t *testing.T) {
	c := NewCalculator(DefaultRates())

	for _, at := range model.AllAnalysisTypes() {
		assert.Greater(t, c.UnitCost(at), 0.0, "unit cost for %s", at)
	}
	assert.Zero(t, c.UnitCost(model.AnalysisType("unknown")))
}
