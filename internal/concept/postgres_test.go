package concept

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatchline/opportunity-cli/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_FindByFingerprint_Missing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, fingerprint, primary_submission_id`).
		WithArgs("fp-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "fingerprint", "primary_submission_id", "submission_count", "created_at", "updated_at"}))

	c, err := s.FindByFingerprint(context.Background(), "fp-1")
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindByFingerprint_LoadsComputedFlags(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, fingerprint, primary_submission_id`).
		WithArgs("fp-1").
		WillReturnRows(pgxmock.
			NewRows([]string{"id", "fingerprint", "primary_submission_id", "submission_count", "created_at", "updated_at"}).
			AddRow("c-1", "fp-1", "t3_a", 2, now, now))
	mock.ExpectQuery(`SELECT analysis_type FROM concept_results`).
		WithArgs("c-1").
		WillReturnRows(pgxmock.NewRows([]string{"analysis_type"}).AddRow("opportunity"))

	c, err := s.FindByFingerprint(context.Background(), "fp-1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.True(t, c.HasResult(model.AnalysisOpportunity))
	assert.False(t, c.HasResult(model.AnalysisTrust))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Create_DuplicateFingerprint(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO concepts`).
		WithArgs(pgxmock.AnyArg(), "fp-1", "t3_b", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := s.Create(context.Background(), "fp-1", model.Submission{ID: "t3_b"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDuplicateFingerprint))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CacheResult_ReturnsStoredRow(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO concept_results`).
		WithArgs("c-1", "trust", "t3_a", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0)) // lost the race, row exists
	mock.ExpectExec(`UPDATE concepts SET updated_at`).
		WithArgs("c-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`SELECT submission_id, payload, computed_at FROM concept_results`).
		WithArgs("c-1", "trust").
		WillReturnRows(pgxmock.
			NewRows([]string{"submission_id", "payload", "computed_at"}).
			AddRow("t3_first", []byte(`{"level":"low"}`), now))

	won, err := s.CacheResult(context.Background(), "c-1", model.AnalysisTrust, model.AnalysisResult{
		SubmissionID: "t3_a",
		Payload:      []byte(`{"level":"high"}`),
	})
	require.NoError(t, err)
	// First write wins: the stored row, not ours, comes back.
	assert.Equal(t, "t3_first", won.SubmissionID)
	assert.JSONEq(t, `{"level":"low"}`, string(won.Payload))
	assert.Equal(t, model.SourceComputed, won.Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_IncrementSubmissionCount_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE concepts SET submission_count`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.IncrementSubmissionCount(context.Background(), "missing")
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
