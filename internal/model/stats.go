package model

import "time"

// ServiceStatistics counts the outcomes of one enrichment service over a
// batch run. Reset at the start of a run, accumulated during, read at the
// end for reporting.
type ServiceStatistics struct {
	Service      string  `json:"service"`
	Analyzed     int     `json:"analyzed"`
	Skipped      int     `json:"skipped"`
	Copied       int     `json:"copied"`
	Failed       int     `json:"failed"`
	Invalid      int     `json:"invalid"`
	Errors       int     `json:"errors"`
	CostSavedUSD float64 `json:"cost_saved_usd"`
	Degraded     bool    `json:"degraded,omitempty"`
}

// Total returns the number of submissions this service saw.
func (s ServiceStatistics) Total() int {
	return s.Analyzed + s.Skipped + s.Failed + s.Invalid
}

// SuccessRate returns the fraction of seen submissions that produced a
// result, whether computed or copied.
func (s ServiceStatistics) SuccessRate() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(s.Analyzed+s.Skipped) / float64(total)
}

// SkipRate returns the fraction of seen submissions served from cache.
func (s ServiceStatistics) SkipRate() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(s.Skipped) / float64(total)
}

// LoadStatistics counts the outcomes of one loader batch.
type LoadStatistics struct {
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Batches int `json:"batches"`
}

// Add accumulates another batch's counts.
func (s *LoadStatistics) Add(other LoadStatistics) {
	s.Loaded += other.Loaded
	s.Skipped += other.Skipped
	s.Failed += other.Failed
	s.Batches += other.Batches
}

// PipelineResult is the aggregate outcome of one orchestrator run. Success
// stays true through per-service and per-record failures; only a fatal
// infrastructure error (sink unreachable at start) clears it.
type PipelineResult struct {
	Processed  int                          `json:"processed"`
	Records    []EnrichedRecord             `json:"records,omitempty"`
	Services   map[string]ServiceStatistics `json:"services"`
	Load       LoadStatistics               `json:"load"`
	Success    bool                         `json:"success"`
	Error      string                       `json:"error,omitempty"`
	StartedAt  time.Time                    `json:"started_at"`
	FinishedAt time.Time                    `json:"finished_at"`
}
