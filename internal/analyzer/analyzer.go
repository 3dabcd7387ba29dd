// Package analyzer runs single-submission AI analyses. Each enrichment
// service owns one Analyzer; the Claude implementation wraps pkg/anthropic
// with retry, circuit breaking, and cost attribution.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hatchline/opportunity-cli/internal/model"
	"github.com/hatchline/opportunity-cli/internal/resilience"
	"github.com/hatchline/opportunity-cli/pkg/anthropic"
)

// Analyzer produces a raw JSON analysis payload for one submission.
type Analyzer interface {
	Analyze(ctx context.Context, sub model.Submission) (json.RawMessage, error)
}

// ContextProvider supplies extra grounding text for the prompt, e.g. web
// search results for market validation. Optional.
type ContextProvider interface {
	Context(ctx context.Context, sub model.Submission) (string, error)
}

const maxBodyChars = 16000 // ~4K tokens

// ClaudeAnalyzer implements Analyzer against the Anthropic API.
type ClaudeAnalyzer struct {
	ai           anthropic.Client
	model        string
	maxTokens    int64
	analysisType model.AnalysisType
	system       string
	retry        resilience.RetryConfig
	breaker      *resilience.CircuitBreaker
	extra        ContextProvider
}

// Option configures a ClaudeAnalyzer.
type Option func(*ClaudeAnalyzer)

// WithRetryConfig overrides the default retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(a *ClaudeAnalyzer) { a.retry = cfg }
}

// WithCircuitBreaker shares a circuit breaker across analyzers hitting the
// same upstream.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(a *ClaudeAnalyzer) { a.breaker = cb }
}

// WithContextProvider attaches extra prompt context, fetched per submission.
func WithContextProvider(p ContextProvider) Option {
	return func(a *ClaudeAnalyzer) { a.extra = p }
}

// WithMaxTokens overrides the response token limit.
func WithMaxTokens(n int64) Option {
	return func(a *ClaudeAnalyzer) { a.maxTokens = n }
}

// NewClaude creates an analyzer for one analysis type. The system prompt
// comes from the built-in prompt table.
func NewClaude(ai anthropic.Client, modelID string, t model.AnalysisType, opts ...Option) (*ClaudeAnalyzer, error) {
	system, ok := systemPrompts[t]
	if !ok {
		return nil, eris.Errorf("analyzer: no prompt for analysis type %q", t)
	}

	a := &ClaudeAnalyzer{
		ai:           ai,
		model:        modelID,
		maxTokens:    1024,
		analysisType: t,
		system:       system,
		retry:        resilience.DefaultRetryConfig(),
		breaker:      resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.retry.OnRetry = resilience.RetryLogger(string(t), "analyze")
	return a, nil
}

// Analyze sends the submission to Claude and returns the JSON object found in
// the response text.
func (a *ClaudeAnalyzer) Analyze(ctx context.Context, sub model.Submission) (json.RawMessage, error) {
	userMsg, err := a.buildUserMessage(ctx, sub)
	if err != nil {
		return nil, err
	}

	// The system prompt is identical across a batch, so it carries a
	// prompt-cache breakpoint.
	req := anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    anthropic.CachedSystem(a.system),
		Messages:  []anthropic.Message{{Role: "user", Content: userMsg}},
	}

	resp, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return resilience.ExecuteVal(ctx, a.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return a.ai.CreateMessage(ctx, req)
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "analyzer: claude request")
	}

	resp.Usage.LogCost(a.model, string(a.analysisType))

	payload, err := extractJSON(resp.FirstText())
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (a *ClaudeAnalyzer) buildUserMessage(ctx context.Context, sub model.Submission) (string, error) {
	body := sub.Body
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", sub.Title)
	if sub.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", sub.Category)
	}
	fmt.Fprintf(&b, "Score: %d, Comments: %d\n\n%s", sub.Score, sub.CommentCount, body)

	if a.extra != nil {
		extra, err := a.extra.Context(ctx, sub)
		if err != nil {
			// Grounding context is best-effort; analyze without it.
			zap.L().Warn("analyzer: context provider failed",
				zap.String("analysis_type", string(a.analysisType)),
				zap.String("submission_id", sub.ID),
				zap.Error(err),
			)
		} else if extra != "" {
			fmt.Fprintf(&b, "\n\nAdditional context:\n%s", extra)
		}
	}
	return b.String(), nil
}

// extractJSON finds the JSON object in the response text. The prompt asks
// for bare JSON but models sometimes wrap it in prose or fences.
func extractJSON(text string) (json.RawMessage, error) {
	if text == "" {
		return nil, eris.New("analyzer: empty claude response")
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, eris.Errorf("analyzer: no JSON in response: %.120s", text)
	}

	raw := json.RawMessage(text[start : end+1])
	if !json.Valid(raw) {
		return nil, eris.New("analyzer: response JSON is invalid")
	}
	return raw, nil
}
