package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatchline/opportunity-cli/internal/concept"
	"github.com/hatchline/opportunity-cli/internal/model"
)

func TestObserve_DuplicateCountsOncePerSubmission(t *testing.T) {
	ctx := context.Background()
	store := concept.NewMemory()
	r := NewRegistrar(store)

	primary := model.Submission{ID: "t3_a", Title: "expense tracker", Body: "for freelancers"}
	c, err := store.Create(ctx, mustFingerprint(primary), primary)
	require.NoError(t, err)
	require.Equal(t, 1, c.SubmissionCount)

	r.Observe(ctx, model.Submission{ID: "t3_b", Title: "expense tracker", Body: "for freelancers"})
	r.Observe(ctx, model.Submission{ID: "t3_c", Title: "expense tracker", Body: "for freelancers"})

	found, err := store.FindByFingerprint(ctx, c.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, 3, found.SubmissionCount)
}

func TestObserve_NovelFingerprintIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := concept.NewMemory()
	r := NewRegistrar(store)

	sub := model.Submission{ID: "t3_a", Title: "unseen idea"}
	r.Observe(ctx, sub)

	// No concept is created; that stays with the engines.
	c, err := store.FindByFingerprint(ctx, mustFingerprint(sub))
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestObserve_PrimaryResubmissionNotCounted(t *testing.T) {
	ctx := context.Background()
	store := concept.NewMemory()
	r := NewRegistrar(store)

	primary := model.Submission{ID: "t3_a", Title: "expense tracker"}
	c, err := store.Create(ctx, mustFingerprint(primary), primary)
	require.NoError(t, err)

	r.Observe(ctx, primary)

	found, err := store.FindByFingerprint(ctx, c.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, 1, found.SubmissionCount)
}

func TestObserve_StoreFaultIsBestEffort(t *testing.T) {
	r := NewRegistrar(failingStore{})

	// Must not panic or block the run.
	r.Observe(context.Background(), model.Submission{ID: "t3_a", Title: "idea"})
}
