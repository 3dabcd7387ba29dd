// Package dedup implements the skip/copy decision logic that gates costly
// analysis calls behind the concept store's result cache.
package dedup

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hatchline/opportunity-cli/internal/concept"
	"github.com/hatchline/opportunity-cli/internal/cost"
	"github.com/hatchline/opportunity-cli/internal/fingerprint"
	"github.com/hatchline/opportunity-cli/internal/model"
)

// Action says whether the caller must run the costly analysis or copy the
// concept's cached result.
type Action string

const (
	ActionRun  Action = "run"
	ActionCopy Action = "copy"
)

// Decision is the outcome of one skip/copy evaluation.
type Decision struct {
	Action      Action
	ConceptID   string // empty when the store was unreachable (fail-open)
	Fingerprint string
	Cached      *model.AnalysisResult // set on COPY
}

// Statistics counts engine outcomes. Snapshots are returned by value.
type Statistics struct {
	Analyzed     int     `json:"analyzed"`
	Skipped      int     `json:"skipped"`
	Copied       int     `json:"copied"`
	Errors       int     `json:"errors"`
	CostSavedUSD float64 `json:"cost_saved_usd"`
}

// Engine makes skip/copy decisions for one analysis type. Each enrichment
// service owns its own engine; they share only the concept store.
type Engine struct {
	analysisType model.AnalysisType
	store        concept.Store
	unitCost     float64

	mu    sync.Mutex
	stats Statistics
}

// NewEngine creates a decision engine for one analysis type.
func NewEngine(t model.AnalysisType, store concept.Store, calc *cost.Calculator) *Engine {
	return &Engine{
		analysisType: t,
		store:        store,
		unitCost:     calc.UnitCost(t),
	}
}

// AnalysisType returns the type this engine decides for.
func (e *Engine) AnalysisType() model.AnalysisType {
	return e.analysisType
}

// Decide evaluates a submission against the concept store. It never returns
// an error: infrastructure faults fail open to RUN so a store outage costs
// duplicate spend instead of dropped coverage.
func (e *Engine) Decide(ctx context.Context, sub model.Submission) Decision {
	fp := fingerprint.Generate(sub)

	c, err := e.store.FindByFingerprint(ctx, fp)
	if err != nil {
		return e.failOpen(fp, sub, "lookup", err)
	}

	if c == nil {
		c, err = e.store.Create(ctx, fp, sub)
		if eris.Is(err, concept.ErrDuplicateFingerprint) {
			// Another worker created the concept between our lookup and
			// create. One retry as a lookup, never a second create.
			c, err = e.store.FindByFingerprint(ctx, fp)
			if err == nil && c == nil {
				err = concept.ErrNotFound
			}
		}
		if err != nil {
			return e.failOpen(fp, sub, "create", err)
		}
		if c.PrimarySubmissionID == sub.ID {
			// Novel concept; this submission becomes its source of truth.
			e.recordRun()
			return Decision{Action: ActionRun, ConceptID: c.ID, Fingerprint: fp}
		}
	}

	// Existing concept: the submission is a duplicate of a seen idea. The
	// submission count is the Registrar's job, once per submission; several
	// engines deciding the same submission must not each bump it.
	if !c.HasResult(e.analysisType) {
		e.recordRun()
		return Decision{Action: ActionRun, ConceptID: c.ID, Fingerprint: fp}
	}

	cached, err := e.store.GetCachedResult(ctx, c.ID, e.analysisType)
	if err != nil || cached == nil {
		return e.failOpen(fp, sub, "get cached result", err)
	}

	e.recordCopy()
	return Decision{Action: ActionCopy, ConceptID: c.ID, Fingerprint: fp, Cached: cached}
}

// Cache stores a freshly computed result on the decision's concept so
// future duplicates can COPY. A no-op when the decision was made fail-open
// (no concept row exists to attach the result to).
func (e *Engine) Cache(ctx context.Context, d Decision, result model.AnalysisResult) (model.AnalysisResult, error) {
	if d.ConceptID == "" {
		return result, nil
	}
	result.ConceptID = d.ConceptID
	result.Type = e.analysisType
	return e.store.CacheResult(ctx, d.ConceptID, e.analysisType, result)
}

// Statistics returns a snapshot copy of the engine's counters.
func (e *Engine) Statistics() Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// ResetStatistics zeroes the counters at the start of a batch run.
func (e *Engine) ResetStatistics() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats = Statistics{}
}

func (e *Engine) recordRun() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.Analyzed++
}

func (e *Engine) recordCopy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.Skipped++
	e.stats.Copied++
	e.stats.CostSavedUSD += e.unitCost
}

func (e *Engine) failOpen(fp string, sub model.Submission, op string, err error) Decision {
	e.mu.Lock()
	e.stats.Errors++
	e.stats.Analyzed++
	e.mu.Unlock()

	zap.L().Warn("dedup: store fault, failing open to run",
		zap.String("operation", op),
		zap.String("submission_id", sub.ID),
		zap.String("analysis_type", string(e.analysisType)),
		zap.Error(err),
	)
	return Decision{Action: ActionRun, Fingerprint: fp}
}
