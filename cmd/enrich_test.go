//go:build !integration

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatchline/opportunity-cli/internal/model"
)

func TestEnrichCmd_Metadata(t *testing.T) {
	assert.Equal(t, "enrich", enrichCmd.Use)
	assert.NotEmpty(t, enrichCmd.Short)

	require.NotNil(t, enrichCmd.Flags().Lookup("input"))
	require.NotNil(t, enrichCmd.Flags().Lookup("subreddit"))
	require.NotNil(t, enrichCmd.Flags().Lookup("limit"))
}

func TestCollectSubmissions_RequiresSource(t *testing.T) {
	oldInput, oldSub := enrichInput, enrichSubreddit
	enrichInput, enrichSubreddit = "", ""
	defer func() { enrichInput, enrichSubreddit = oldInput, oldSub }()

	_, err := collectSubmissions(enrichCmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--input or --subreddit")
}

func TestReadSubmissionsFile_RoundTrip(t *testing.T) {
	subs := []model.Submission{
		{ID: "t3_a", Title: "expense tracking is painful", Body: "hours reconciling by hand", Category: "smallbusiness"},
		{ID: "t3_b", Title: "scheduling nightmare for nurses"},
	}
	data, err := json.Marshal(subs)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "subs.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	got, err := readSubmissionsFile(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t3_a", got[0].ID)
	assert.Equal(t, "smallbusiness", got[0].Category)
}

func TestReadSubmissionsFile_MissingPath(t *testing.T) {
	_, err := readSubmissionsFile("/nonexistent/subs.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read submissions file")
}

func TestReadSubmissionsFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := readSubmissionsFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse submissions file")
}
