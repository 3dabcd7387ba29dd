package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:        "enriched_submissions",
		Columns:      []string{"submission_id", "title"},
		ConflictKeys: []string{"submission_id"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:        "enriched_submissions",
		ConflictKeys: []string{"submission_id"},
	}, [][]any{{"t3_a", "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:   "enriched_submissions",
		Columns: []string{"submission_id", "title"},
	}, [][]any{{"t3_a", "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_MergesViaTempTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_merge_enriched_submissions"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_merge_enriched_submissions"}, []string{"submission_id", "title"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "enriched_submissions" .* ON CONFLICT \("submission_id"\) DO UPDATE SET "title" = EXCLUDED\."title"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "enriched_submissions",
		Columns:      []string{"submission_id", "title"},
		ConflictKeys: []string{"submission_id"},
	}, [][]any{{"t3_a", "one"}, {"t3_b", "two"}})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyInto_EmptyRows(t *testing.T) {
	n, err := CopyInto(context.TODO(), nil, "enriched_submissions", []string{"submission_id"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyInto_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"enriched_submissions"}, []string{"submission_id", "title"}).WillReturnResult(3)

	rows := [][]any{{"t3_a", "x"}, {"t3_b", "y"}, {"t3_c", "z"}}
	n, err := CopyInto(context.Background(), mock, "enriched_submissions", []string{"submission_id", "title"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyInto_SchemaQualified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"signals", "enriched"}, []string{"submission_id"}).
		WillReturnError(fmt.Errorf("permission denied"))

	_, err = CopyInto(context.Background(), mock, "signals.enriched", []string{"submission_id"}, [][]any{{"t3_a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO signals.enriched")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"signals.enriched", `"signals"."enriched"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := SanitizeTable(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"submission_id", "title", "score"})
	assert.Equal(t, `"submission_id", "title", "score"`, result)
}
