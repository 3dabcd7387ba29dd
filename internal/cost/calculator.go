// Package cost computes API spend and the savings produced by skip/copy
// decisions.
package cost

import "github.com/hatchline/opportunity-cli/internal/model"

// Rates holds pricing configuration: per-model token rates and the flat
// unit cost of each analysis type used for savings accounting.
type Rates struct {
	Anthropic map[string]ModelRate               `yaml:"anthropic" mapstructure:"anthropic"`
	Analysis  map[model.AnalysisType]float64     `yaml:"analysis" mapstructure:"analysis"`
}

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	BatchDiscount float64 `yaml:"batch_discount" mapstructure:"batch_discount"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// Calculator computes costs for API usage and dedup savings.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost for a Claude API call.
func (c *Calculator) Claude(model string, isBatch bool, input, output, cacheWrite, cacheRead int) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}

	batchMul := 1.0
	if isBatch {
		batchMul = rate.BatchDiscount
	}

	inCost := (float64(input) / 1e6) * rate.Input * batchMul
	outCost := (float64(output) / 1e6) * rate.Output * batchMul
	cwCost := (float64(cacheWrite) / 1e6) * rate.Input * rate.CacheWriteMul * batchMul
	crCost := (float64(cacheRead) / 1e6) * rate.Input * rate.CacheReadMul * batchMul

	return inCost + outCost + cwCost + crCost
}

// UnitCost returns the flat per-call cost of one analysis type. Every COPY
// decision saves exactly one unit.
func (c *Calculator) UnitCost(t model.AnalysisType) float64 {
	return c.rates.Analysis[t]
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 0.80, Output: 4.00,
				BatchDiscount: 0.5, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00,
				BatchDiscount: 0.5, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		// Flat per-call estimates per analysis type, derived from average
		// prompt sizes observed in production runs.
		Analysis: map[model.AnalysisType]float64{
			model.AnalysisOpportunity:  0.012,
			model.AnalysisMonetization: 0.012,
			model.AnalysisProfile:      0.008,
			model.AnalysisTrust:        0.006,
			model.AnalysisMarket:       0.015,
		},
	}
}
