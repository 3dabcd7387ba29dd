package anthropic

import "go.uber.org/zap"

// TokenUsage counts the tokens one call consumed.
type TokenUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// modelPricing maps model ID to {input, output} dollars per million tokens.
// Cache writes bill at 1.25x input, cache reads at 0.1x.
var modelPricing = map[string][2]float64{
	"claude-haiku-4-5-20251001":  {0.80, 4.00},
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
	"claude-opus-4-6":            {15.00, 75.00},
}

// EstimateCost returns the call's estimated dollar cost, or 0 for a model
// without a known price.
func (u TokenUsage) EstimateCost(model string) float64 {
	pricing, ok := modelPricing[model]
	if !ok {
		return 0
	}
	perTok := func(n int64, rate float64) float64 {
		return float64(n) / 1e6 * rate
	}
	return perTok(u.InputTokens, pricing[0]) +
		perTok(u.OutputTokens, pricing[1]) +
		perTok(u.CacheCreationInputTokens, pricing[0]*1.25) +
		perTok(u.CacheReadInputTokens, pricing[0]*0.1)
}

// LogCost emits one cost-attribution line tagged with the analysis that
// spent the tokens.
func (u TokenUsage) LogCost(model, analysis string) {
	zap.L().Info("cost attribution",
		zap.String("model", model),
		zap.String("analysis", analysis),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_write_tokens", u.CacheCreationInputTokens),
		zap.Int64("cache_read_tokens", u.CacheReadInputTokens),
		zap.Float64("estimated_cost_usd", u.EstimateCost(model)),
	)
}
