package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/hatchline/opportunity-cli/internal/model"
	"github.com/hatchline/opportunity-cli/pkg/websearch"
)

// SearchContext grounds market validation with live web results for the
// submission's title.
type SearchContext struct {
	client     websearch.Client
	maxResults int
}

// NewSearchContext creates a ContextProvider over a search client.
func NewSearchContext(client websearch.Client, maxResults int) *SearchContext {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &SearchContext{client: client, maxResults: maxResults}
}

// Context returns search hits formatted one per line.
func (s *SearchContext) Context(ctx context.Context, sub model.Submission) (string, error) {
	query := strings.TrimSpace(sub.Title)
	if query == "" {
		return "", nil
	}

	results, err := s.client.Search(ctx, query, s.maxResults)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "- %s (%s): %s\n", r.Title, r.URL, r.Description)
	}
	return b.String(), nil
}
