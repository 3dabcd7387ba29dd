//go:build !integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatchline/opportunity-cli/internal/concept"
	"github.com/hatchline/opportunity-cli/internal/config"
	"github.com/hatchline/opportunity-cli/internal/cost"
	"github.com/hatchline/opportunity-cli/internal/enrich"
	"github.com/hatchline/opportunity-cli/internal/model"
	"github.com/hatchline/opportunity-cli/internal/pipeline"
	"github.com/hatchline/opportunity-cli/internal/resilience"
	"github.com/hatchline/opportunity-cli/pkg/anthropic"
)

// cannedAI answers every message with a fixed JSON payload.
type cannedAI struct{}

func (cannedAI) CreateMessage(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: `{"score":0.7}`}},
	}, nil
}

func testEnv(t *testing.T) *pipelineEnv {
	t.Helper()

	store := concept.NewMemory()
	factory := enrich.NewFactory(
		config.ServicesConfig{Opportunity: true, Trust: true, AnalysisTimeoutSecs: 5},
		enrich.Dependencies{
			Store:      store,
			Calculator: cost.NewCalculator(cost.DefaultRates()),
			AI:         cannedAI{},
			Model:      "claude-haiku-4-5-20251001",
			Retry:      resilience.RetryConfig{MaxAttempts: 1},
		},
	)
	orch := pipeline.New(factory, nil, config.LoaderConfig{
		Table:      "enriched_submissions",
		PrimaryKey: "submission_id",
		Mode:       "merge",
	})
	return &pipelineEnv{Store: store, Factory: factory, Orchestrator: orch}
}

func TestBuildRouter_Healthz(t *testing.T) {
	r := buildRouter(testEnv(t))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestBuildRouter_EnrichBatch(t *testing.T) {
	r := buildRouter(testEnv(t))

	subs := []model.Submission{
		{ID: "t3_a", Title: "expense tracking is painful", Body: "hours every month reconciling by hand"},
	}
	payload, err := json.Marshal(subs)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/enrich", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var result model.PipelineResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Processed)
	assert.Nil(t, result.Records)
	assert.Equal(t, 1, result.Services["opportunity"].Analyzed)
}

func TestBuildRouter_EnrichRejectsBadBody(t *testing.T) {
	r := buildRouter(testEnv(t))

	req := httptest.NewRequest(http.MethodPost, "/enrich", bytes.NewReader([]byte("not json")))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")
}

func TestBuildRouter_EnrichRejectsEmptyBatch(t *testing.T) {
	r := buildRouter(testEnv(t))

	req := httptest.NewRequest(http.MethodPost, "/enrich", bytes.NewReader([]byte("[]")))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "at least one submission")
}

func TestBuildRouter_Stats(t *testing.T) {
	env := testEnv(t)
	r := buildRouter(env)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var stats map[string]model.ServiceStatistics
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Contains(t, stats, "opportunity")
	assert.Contains(t, stats, "trust")
}
