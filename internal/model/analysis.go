package model

import (
	"encoding/json"
	"time"
)

// ResultSource distinguishes a freshly computed analysis result from one
// copied off a concept's cache.
type ResultSource string

const (
	SourceComputed ResultSource = "computed"
	SourceCopied   ResultSource = "copied"
)

// EnrichmentStatus is the terminal state of one (submission, service) pass.
type EnrichmentStatus string

const (
	StatusSucceeded      EnrichmentStatus = "succeeded"
	StatusFailed         EnrichmentStatus = "failed"
	StatusSkippedInvalid EnrichmentStatus = "skipped_invalid"
)

// AnalysisResult is the output of one enrichment service for one submission.
// Immutable after creation. Payload is the raw analyzer output; its shape
// varies per analysis type and the core never inspects it.
type AnalysisResult struct {
	Type         AnalysisType    `json:"type"`
	SubmissionID string          `json:"submission_id"`
	ConceptID    string          `json:"concept_id"`
	Source       ResultSource    `json:"source"`
	Payload      json.RawMessage `json:"payload"`
	ComputedAt   time.Time       `json:"computed_at"`
}

// ForSubmission returns a copy of the result re-keyed to another submission,
// used when a cached concept result is copied to a duplicate submission.
func (r AnalysisResult) ForSubmission(submissionID string) AnalysisResult {
	out := r
	out.SubmissionID = submissionID
	out.Source = SourceCopied
	return out
}

// EnrichmentOutput is the structured result of one Service.Enrich call.
// Enrich never raises; failures surface here as StatusFailed with an error
// message and a nil Result.
type EnrichmentOutput struct {
	Service      string           `json:"service"`
	Type         AnalysisType     `json:"type"`
	SubmissionID string           `json:"submission_id"`
	Status       EnrichmentStatus `json:"status"`
	Skipped      bool             `json:"skipped"`
	Source       ResultSource     `json:"source,omitempty"`
	Result       *AnalysisResult  `json:"result,omitempty"`
	Error        string           `json:"error,omitempty"`
	DurationMS   int64            `json:"duration_ms"`
}

// Neutral returns an empty enrichment output for a failed analysis, so one
// failing service never aborts the batch.
func Neutral(service string, t AnalysisType, submissionID string, err error) EnrichmentOutput {
	out := EnrichmentOutput{
		Service:      service,
		Type:         t,
		SubmissionID: submissionID,
		Status:       StatusFailed,
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}
