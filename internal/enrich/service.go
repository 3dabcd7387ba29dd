// Package enrich implements the enrichment services that attach AI-derived
// attributes to submissions, each gated by its own skip/copy decision engine.
package enrich

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hatchline/opportunity-cli/internal/analyzer"
	"github.com/hatchline/opportunity-cli/internal/dedup"
	"github.com/hatchline/opportunity-cli/internal/model"
)

// Service is one enrichment capability. Enrich never returns an error: a
// failing analysis becomes a neutral output and a Failed count, so one broken
// service cannot abort a batch.
type Service interface {
	Name() string
	ValidateInput(sub model.Submission) bool
	Enrich(ctx context.Context, sub model.Submission) model.EnrichmentOutput
	Statistics() model.ServiceStatistics
	ResetStatistics()
}

// analysisService is the shared implementation behind the concrete services.
// Per-service behavior is the analysis type, the validation rule, and the
// analyzer instance.
type analysisService struct {
	name         string
	analysisType model.AnalysisType
	engine       *dedup.Engine
	analyzer     analyzer.Analyzer
	timeout      time.Duration
	validate     func(model.Submission) bool

	mu       sync.Mutex
	analyzed int
	failed   int
	invalid  int
}

func newAnalysisService(
	name string,
	t model.AnalysisType,
	engine *dedup.Engine,
	az analyzer.Analyzer,
	timeout time.Duration,
	validate func(model.Submission) bool,
) *analysisService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &analysisService{
		name:         name,
		analysisType: t,
		engine:       engine,
		analyzer:     az,
		timeout:      timeout,
		validate:     validate,
	}
}

func (s *analysisService) Name() string { return s.name }

func (s *analysisService) ValidateInput(sub model.Submission) bool {
	return s.validate(sub)
}

func (s *analysisService) Enrich(ctx context.Context, sub model.Submission) model.EnrichmentOutput {
	start := time.Now()

	if !s.ValidateInput(sub) {
		s.mu.Lock()
		s.invalid++
		s.mu.Unlock()
		return s.finish(model.EnrichmentOutput{
			Service:      s.name,
			Type:         s.analysisType,
			SubmissionID: sub.ID,
			Status:       model.StatusSkippedInvalid,
			Skipped:      true,
		}, start)
	}

	decision := s.engine.Decide(ctx, sub)

	if decision.Action == dedup.ActionCopy {
		result := decision.Cached.ForSubmission(sub.ID)
		return s.finish(model.EnrichmentOutput{
			Service:      s.name,
			Type:         s.analysisType,
			SubmissionID: sub.ID,
			Status:       model.StatusSucceeded,
			Skipped:      true,
			Source:       model.SourceCopied,
			Result:       &result,
		}, start)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload, err := s.analyzer.Analyze(callCtx, sub)
	if err != nil {
		s.mu.Lock()
		s.failed++
		s.mu.Unlock()
		zap.L().Error("enrich: analysis failed",
			zap.String("service", s.name),
			zap.String("analysis_type", string(s.analysisType)),
			zap.String("submission_id", sub.ID),
			zap.Error(err),
		)
		return s.finish(model.Neutral(s.name, s.analysisType, sub.ID, err), start)
	}

	result := model.AnalysisResult{
		Type:         s.analysisType,
		SubmissionID: sub.ID,
		ConceptID:    decision.ConceptID,
		Source:       model.SourceComputed,
		Payload:      payload,
		ComputedAt:   time.Now().UTC(),
	}

	if _, cacheErr := s.engine.Cache(ctx, decision, result); cacheErr != nil {
		// The result stands; only future duplicates lose the shortcut.
		zap.L().Warn("enrich: cache result failed",
			zap.String("service", s.name),
			zap.String("concept_id", decision.ConceptID),
			zap.Error(cacheErr),
		)
	}

	s.mu.Lock()
	s.analyzed++
	s.mu.Unlock()

	return s.finish(model.EnrichmentOutput{
		Service:      s.name,
		Type:         s.analysisType,
		SubmissionID: sub.ID,
		Status:       model.StatusSucceeded,
		Source:       model.SourceComputed,
		Result:       &result,
	}, start)
}

// Statistics merges the service's own counters with its engine's dedup and
// savings counters.
func (s *analysisService) Statistics() model.ServiceStatistics {
	engineStats := s.engine.Statistics()

	s.mu.Lock()
	defer s.mu.Unlock()
	return model.ServiceStatistics{
		Service:      s.name,
		Analyzed:     s.analyzed,
		Skipped:      engineStats.Skipped,
		Copied:       engineStats.Copied,
		Failed:       s.failed,
		Invalid:      s.invalid,
		Errors:       engineStats.Errors,
		CostSavedUSD: engineStats.CostSavedUSD,
	}
}

func (s *analysisService) ResetStatistics() {
	s.engine.ResetStatistics()
	s.mu.Lock()
	s.analyzed, s.failed, s.invalid = 0, 0, 0
	s.mu.Unlock()
}

func (s *analysisService) finish(out model.EnrichmentOutput, start time.Time) model.EnrichmentOutput {
	out.DurationMS = time.Since(start).Milliseconds()
	return out
}
