package model

import "time"

// Submission represents one observed discussion thread from the collection
// layer. Submissions are immutable once ingested; the collection layer owns
// their creation.
type Submission struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Category     string    `json:"category"` // source community label (e.g., subreddit)
	Score        int       `json:"score"`
	CommentCount int       `json:"comment_count"`
	URL          string    `json:"url,omitempty"`
	Author       string    `json:"author,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AnalysisType identifies one enrichment dimension.
type AnalysisType string

const (
	AnalysisOpportunity  AnalysisType = "opportunity"
	AnalysisMonetization AnalysisType = "monetization"
	AnalysisProfile      AnalysisType = "profile"
	AnalysisTrust        AnalysisType = "trust"
	AnalysisMarket       AnalysisType = "market"
)

// AllAnalysisTypes lists every analysis type in deterministic order.
func AllAnalysisTypes() []AnalysisType {
	return []AnalysisType{
		AnalysisOpportunity,
		AnalysisMonetization,
		AnalysisProfile,
		AnalysisTrust,
		AnalysisMarket,
	}
}
