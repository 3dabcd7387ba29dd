package model

import (
	"encoding/json"
	"time"
)

// BusinessConcept is the canonical record for one distinct underlying idea,
// deduplicated by semantic fingerprint. The concept store owns these records
// exclusively; other components hold only the concept ID.
type BusinessConcept struct {
	ID                  string                            `json:"id"`
	Fingerprint         string                            `json:"fingerprint"`
	PrimarySubmissionID string                            `json:"primary_submission_id"`
	SubmissionCount     int                               `json:"submission_count"`
	Results             map[AnalysisType]json.RawMessage  `json:"results,omitempty"`
	Computed            map[AnalysisType]bool             `json:"computed,omitempty"`
	CreatedAt           time.Time                         `json:"created_at"`
	UpdatedAt           time.Time                         `json:"updated_at"`
}

// HasResult reports whether the concept carries a cached result for the
// given analysis type. The computed flag is authoritative; a blob without
// the flag set is never served.
func (c *BusinessConcept) HasResult(t AnalysisType) bool {
	return c != nil && c.Computed[t]
}

// ConceptStoreStats summarizes the state of the concept store.
type ConceptStoreStats struct {
	Concepts         int                  `json:"concepts" yaml:"concepts"`
	Submissions      int                  `json:"submissions" yaml:"submissions"`
	Duplicates       int                  `json:"duplicates" yaml:"duplicates"`
	CachedByType     map[AnalysisType]int `json:"cached_by_type" yaml:"cached_by_type"`
	EstimatedSavings float64              `json:"estimated_savings_usd" yaml:"estimated_savings_usd"`
}
