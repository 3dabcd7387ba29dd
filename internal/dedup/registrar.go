package dedup

import (
	"context"

	"go.uber.org/zap"

	"github.com/hatchline/opportunity-cli/internal/concept"
	"github.com/hatchline/opportunity-cli/internal/fingerprint"
	"github.com/hatchline/opportunity-cli/internal/model"
)

// Registrar keeps the concept's submission count in step with submissions.
// The orchestrator observes each submission once before fanning out the
// services, so the count tracks submissions mapped to a concept rather than
// service executions.
type Registrar struct {
	store concept.Store
}

// NewRegistrar creates a registrar over the shared concept store.
func NewRegistrar(store concept.Store) *Registrar {
	return &Registrar{store: store}
}

// Observe bumps the submission count when the submission's fingerprint
// matches an existing concept. Novel fingerprints are left alone: the first
// engine to create the concept seeds the count at one. Re-observing the
// concept's own primary submission is not a new mapping and does not count.
// Best-effort; store faults are logged and the run continues.
func (r *Registrar) Observe(ctx context.Context, sub model.Submission) {
	fp := fingerprint.Generate(sub)

	c, err := r.store.FindByFingerprint(ctx, fp)
	if err != nil {
		zap.L().Warn("dedup: observe submission failed",
			zap.String("submission_id", sub.ID),
			zap.Error(err),
		)
		return
	}
	if c == nil || c.PrimarySubmissionID == sub.ID {
		return
	}

	if err := r.store.IncrementSubmissionCount(ctx, c.ID); err != nil {
		zap.L().Warn("dedup: increment submission count failed",
			zap.String("concept_id", c.ID),
			zap.String("submission_id", sub.ID),
			zap.Error(err),
		)
	}
}
