package enrich

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/hatchline/opportunity-cli/internal/model"
)

// NoopService stands in for a service whose required dependency was missing
// at construction time. It accepts every submission and returns a neutral
// output, reporting itself degraded so the gap is visible in statistics
// instead of failing the run.
type NoopService struct {
	name         string
	analysisType model.AnalysisType

	mu   sync.Mutex
	seen int
}

// NewNoop creates a degraded stand-in for the named service.
func NewNoop(name string, t model.AnalysisType, reason string) *NoopService {
	zap.L().Warn("enrich: service degraded to no-op",
		zap.String("service", name),
		zap.String("reason", reason),
	)
	return &NoopService{name: name, analysisType: t}
}

func (s *NoopService) Name() string { return s.name }

func (s *NoopService) ValidateInput(model.Submission) bool { return true }

func (s *NoopService) Enrich(_ context.Context, sub model.Submission) model.EnrichmentOutput {
	s.mu.Lock()
	s.seen++
	s.mu.Unlock()

	out := model.Neutral(s.name, s.analysisType, sub.ID, nil)
	out.Error = "service degraded: dependency unavailable"
	return out
}

func (s *NoopService) Statistics() model.ServiceStatistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.ServiceStatistics{
		Service:  s.name,
		Failed:   s.seen,
		Degraded: true,
	}
}

func (s *NoopService) ResetStatistics() {
	s.mu.Lock()
	s.seen = 0
	s.mu.Unlock()
}
