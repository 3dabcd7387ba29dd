package concept

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hatchline/opportunity-cli/internal/model"
)

// MemoryStore is an in-process Store used for tests and local dry runs.
// Safe for concurrent use.
type MemoryStore struct {
	mu            sync.Mutex
	byFingerprint map[string]*model.BusinessConcept
	byID          map[string]*model.BusinessConcept
	results       map[string]map[model.AnalysisType]model.AnalysisResult
}

// NewMemory creates an empty in-memory concept store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		byFingerprint: make(map[string]*model.BusinessConcept),
		byID:          make(map[string]*model.BusinessConcept),
		results:       make(map[string]map[model.AnalysisType]model.AnalysisResult),
	}
}

func (s *MemoryStore) FindByFingerprint(_ context.Context, fingerprint string) (*model.BusinessConcept, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byFingerprint[fingerprint]
	if !ok {
		return nil, nil
	}
	return s.snapshot(c), nil
}

func (s *MemoryStore) Create(_ context.Context, fingerprint string, sub model.Submission) (*model.BusinessConcept, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byFingerprint[fingerprint]; ok {
		return nil, ErrDuplicateFingerprint
	}

	now := time.Now().UTC()
	c := &model.BusinessConcept{
		ID:                  uuid.New().String(),
		Fingerprint:         fingerprint,
		PrimarySubmissionID: sub.ID,
		SubmissionCount:     1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	s.byFingerprint[fingerprint] = c
	s.byID[c.ID] = c
	return s.snapshot(c), nil
}

func (s *MemoryStore) GetCachedResult(_ context.Context, conceptID string, t model.AnalysisType) (*model.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[conceptID]; !ok {
		return nil, ErrNotFound
	}
	r, ok := s.results[conceptID][t]
	if !ok {
		return nil, nil
	}
	out := r
	return &out, nil
}

func (s *MemoryStore) CacheResult(_ context.Context, conceptID string, t model.AnalysisType, result model.AnalysisResult) (model.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[conceptID]
	if !ok {
		return model.AnalysisResult{}, ErrNotFound
	}

	if existing, ok := s.results[conceptID][t]; ok {
		return existing, nil
	}

	result.ConceptID = conceptID
	result.Type = t
	if s.results[conceptID] == nil {
		s.results[conceptID] = make(map[model.AnalysisType]model.AnalysisResult)
	}
	s.results[conceptID][t] = result
	c.UpdatedAt = time.Now().UTC()
	return result, nil
}

func (s *MemoryStore) IncrementSubmissionCount(_ context.Context, conceptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[conceptID]
	if !ok {
		return ErrNotFound
	}
	c.SubmissionCount++
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) Stats(_ context.Context) (*model.ConceptStoreStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &model.ConceptStoreStats{
		Concepts:     len(s.byID),
		CachedByType: make(map[model.AnalysisType]int),
	}
	for _, c := range s.byID {
		stats.Submissions += c.SubmissionCount
	}
	stats.Duplicates = stats.Submissions - stats.Concepts
	for _, types := range s.results {
		for t := range types {
			stats.CachedByType[t]++
		}
	}
	return stats, nil
}

func (s *MemoryStore) TopConcepts(_ context.Context, limit int) ([]model.BusinessConcept, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.BusinessConcept, 0, len(s.byID))
	for _, c := range s.byID {
		out = append(out, *s.snapshot(c))
	}
	// Insertion sort keeps this dependency-free; memory stores stay small.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].SubmissionCount > out[j-1].SubmissionCount; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// snapshot copies a concept, attaching cached-result state, so callers never
// hold a reference into the store's private maps.
func (s *MemoryStore) snapshot(c *model.BusinessConcept) *model.BusinessConcept {
	out := *c
	if types, ok := s.results[c.ID]; ok && len(types) > 0 {
		out.Computed = make(map[model.AnalysisType]bool, len(types))
		out.Results = make(map[model.AnalysisType]json.RawMessage, len(types))
		for t, r := range types {
			out.Computed[t] = true
			out.Results[t] = append(json.RawMessage(nil), r.Payload...)
		}
	}
	return &out
}
