package model

import "time"

// EnrichedRecord merges a submission with the outputs of every active
// service for one orchestrator pass. It is the unit handed to the loader;
// a later pass over the same submission ID supersedes it via upsert.
type EnrichedRecord struct {
	Submission Submission                  `json:"submission"`
	Outputs    map[string]EnrichmentOutput `json:"outputs"`
	EnrichedAt time.Time                   `json:"enriched_at"`
}

// ID returns the record's primary key, the external submission ID.
func (r EnrichedRecord) ID() string {
	return r.Submission.ID
}

// Row flattens the record into loader columns. Analysis payloads land in
// per-type JSON columns; absent services simply leave their column nil, so
// schema growth across batches stays additive.
func (r EnrichedRecord) Row() map[string]any {
	row := map[string]any{
		"submission_id": r.Submission.ID,
		"title":         r.Submission.Title,
		"body":          r.Submission.Body,
		"category":      r.Submission.Category,
		"score":         r.Submission.Score,
		"comment_count": r.Submission.CommentCount,
		"url":           r.Submission.URL,
		"author":        r.Submission.Author,
		"created_at":    r.Submission.CreatedAt,
		"enriched_at":   r.EnrichedAt,
	}
	for _, out := range r.Outputs {
		if out.Result == nil {
			continue
		}
		col := string(out.Type) + "_analysis"
		row[col] = []byte(out.Result.Payload)
		row[string(out.Type)+"_source"] = string(out.Result.Source)
	}
	return row
}
