// Package concept manages canonical business-concept records keyed by
// semantic fingerprint, including the per-analysis-type result cache that
// backs skip/copy decisions.
package concept

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/hatchline/opportunity-cli/internal/model"
)

// ErrDuplicateFingerprint is returned by Create when a concept with the
// same fingerprint already exists. Callers must re-fetch and treat the
// existing concept as a match, not retry the create.
var ErrDuplicateFingerprint = eris.New("concept: duplicate fingerprint")

// ErrNotFound is returned when a referenced concept does not exist.
var ErrNotFound = eris.New("concept: not found")

// Store is the persistence interface for business concepts. All writes are
// atomic at the row level with first-writer-wins semantics, which is what
// preserves the dedup invariant under concurrent workers.
type Store interface {
	// FindByFingerprint returns the concept for a fingerprint, or nil when
	// no concept exists. Read-only.
	FindByFingerprint(ctx context.Context, fingerprint string) (*model.BusinessConcept, error)

	// Create inserts a new concept for the fingerprint with the submission
	// as its primary source. Returns ErrDuplicateFingerprint if the
	// fingerprint is already taken.
	Create(ctx context.Context, fingerprint string, sub model.Submission) (*model.BusinessConcept, error)

	// GetCachedResult returns the cached result for (concept, type), or nil
	// when the type has not been computed for the concept.
	GetCachedResult(ctx context.Context, conceptID string, t model.AnalysisType) (*model.AnalysisResult, error)

	// CacheResult stores a result for (concept, type). First write wins: a
	// second call for an already-cached type is a no-op that returns the
	// previously cached value.
	CacheResult(ctx context.Context, conceptID string, t model.AnalysisType, result model.AnalysisResult) (model.AnalysisResult, error)

	// IncrementSubmissionCount bumps the concept's submission counter.
	// Called once per submission matched to an existing concept.
	IncrementSubmissionCount(ctx context.Context, conceptID string) error

	// Stats summarizes store contents for reporting.
	Stats(ctx context.Context) (*model.ConceptStoreStats, error)

	// TopConcepts returns up to limit concepts ordered by submission count.
	TopConcepts(ctx context.Context, limit int) ([]model.BusinessConcept, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}
