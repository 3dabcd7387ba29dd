package enrich

import (
	"strings"
	"time"

	"github.com/hatchline/opportunity-cli/internal/analyzer"
	"github.com/hatchline/opportunity-cli/internal/dedup"
	"github.com/hatchline/opportunity-cli/internal/model"
)

// Service names, also the statistics keys and the record column prefixes.
const (
	ServiceOpportunity  = "opportunity"
	ServiceMonetization = "monetization"
	ServiceProfile      = "profile"
	ServiceTrust        = "trust"
	ServiceMarket       = "market"
)

// NewOpportunity scores a submission as a potential business opportunity.
func NewOpportunity(engine *dedup.Engine, az analyzer.Analyzer, timeout time.Duration) Service {
	return newAnalysisService(ServiceOpportunity, model.AnalysisOpportunity, engine, az, timeout,
		func(sub model.Submission) bool {
			return hasTitle(sub) && contentLength(sub) >= 20
		})
}

// NewMonetization assesses willingness to pay. Needs enough body text to say
// anything useful about pricing.
func NewMonetization(engine *dedup.Engine, az analyzer.Analyzer, timeout time.Duration) Service {
	return newAnalysisService(ServiceMonetization, model.AnalysisMonetization, engine, az, timeout,
		func(sub model.Submission) bool {
			return hasTitle(sub) && len(strings.TrimSpace(sub.Body)) >= 40
		})
}

// NewProfile identifies the professional audience behind a submission.
func NewProfile(engine *dedup.Engine, az analyzer.Analyzer, timeout time.Duration) Service {
	return newAnalysisService(ServiceProfile, model.AnalysisProfile, engine, az, timeout,
		func(sub model.Submission) bool {
			return hasTitle(sub) && contentLength(sub) >= 10
		})
}

// NewTrust assesses whether a submission reads as genuine first-hand
// experience. A bare title is enough to attempt.
func NewTrust(engine *dedup.Engine, az analyzer.Analyzer, timeout time.Duration) Service {
	return newAnalysisService(ServiceTrust, model.AnalysisTrust, engine, az, timeout, hasTitle)
}

// NewMarket validates the market around a submission's problem, optionally
// grounded with web search context attached to the analyzer.
func NewMarket(engine *dedup.Engine, az analyzer.Analyzer, timeout time.Duration) Service {
	return newAnalysisService(ServiceMarket, model.AnalysisMarket, engine, az, timeout,
		func(sub model.Submission) bool {
			return hasTitle(sub) && contentLength(sub) >= 20
		})
}

func hasTitle(sub model.Submission) bool {
	return strings.TrimSpace(sub.Title) != ""
}

func contentLength(sub model.Submission) int {
	return len(strings.TrimSpace(sub.Title)) + len(strings.TrimSpace(sub.Body))
}
