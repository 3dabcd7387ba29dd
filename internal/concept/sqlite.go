package concept

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/hatchline/opportunity-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite, for local runs
// without a Postgres instance.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given DSN and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "concept: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "concept: sqlite exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS concepts (
	id                    TEXT PRIMARY KEY,
	fingerprint           TEXT NOT NULL UNIQUE,
	primary_submission_id TEXT NOT NULL,
	submission_count      INTEGER NOT NULL DEFAULT 1,
	created_at            DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS concept_results (
	concept_id    TEXT NOT NULL REFERENCES concepts(id),
	analysis_type TEXT NOT NULL,
	submission_id TEXT NOT NULL,
	payload       TEXT NOT NULL,
	computed_at   DATETIME NOT NULL,
	PRIMARY KEY (concept_id, analysis_type)
);

CREATE INDEX IF NOT EXISTS idx_concepts_fingerprint ON concepts(fingerprint);
CREATE INDEX IF NOT EXISTS idx_concept_results_type ON concept_results(analysis_type);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "concept: sqlite migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FindByFingerprint(ctx context.Context, fingerprint string) (*model.BusinessConcept, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, fingerprint, primary_submission_id, submission_count, created_at, updated_at
		 FROM concepts WHERE fingerprint = ?`,
		fingerprint,
	)

	var c model.BusinessConcept
	err := row.Scan(&c.ID, &c.Fingerprint, &c.PrimarySubmissionID, &c.SubmissionCount, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "concept: sqlite find by fingerprint")
	}

	if err := s.loadComputedFlags(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteStore) Create(ctx context.Context, fingerprint string, sub model.Submission) (*model.BusinessConcept, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO concepts (id, fingerprint, primary_submission_id, submission_count, created_at, updated_at)
		 VALUES (?, ?, ?, 1, ?, ?)`,
		id, fingerprint, sub.ID, now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateFingerprint
		}
		return nil, eris.Wrap(err, "concept: sqlite insert concept")
	}

	return &model.BusinessConcept{
		ID:                  id,
		Fingerprint:         fingerprint,
		PrimarySubmissionID: sub.ID,
		SubmissionCount:     1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

func (s *SQLiteStore) GetCachedResult(ctx context.Context, conceptID string, t model.AnalysisType) (*model.AnalysisResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT submission_id, payload, computed_at FROM concept_results
		 WHERE concept_id = ? AND analysis_type = ?`,
		conceptID, string(t),
	)

	var r model.AnalysisResult
	var payload string
	err := row.Scan(&r.SubmissionID, &payload, &r.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "concept: sqlite get cached result")
	}

	r.ConceptID = conceptID
	r.Type = t
	r.Source = model.SourceComputed
	r.Payload = []byte(payload)
	return &r, nil
}

func (s *SQLiteStore) CacheResult(ctx context.Context, conceptID string, t model.AnalysisType, result model.AnalysisResult) (model.AnalysisResult, error) {
	now := time.Now().UTC()
	computedAt := result.ComputedAt
	if computedAt.IsZero() {
		computedAt = now
	}

	// First write wins: conflicting inserts are no-ops and the stored row is
	// returned instead.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO concept_results (concept_id, analysis_type, submission_id, payload, computed_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (concept_id, analysis_type) DO NOTHING`,
		conceptID, string(t), result.SubmissionID, string(result.Payload), computedAt,
	)
	if err != nil {
		return model.AnalysisResult{}, eris.Wrap(err, "concept: sqlite cache result")
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE concepts SET updated_at = ? WHERE id = ?`, now, conceptID,
	); err != nil {
		return model.AnalysisResult{}, eris.Wrap(err, "concept: sqlite touch concept")
	}

	stored, err := s.GetCachedResult(ctx, conceptID, t)
	if err != nil {
		return model.AnalysisResult{}, err
	}
	if stored == nil {
		return model.AnalysisResult{}, eris.Wrap(ErrNotFound, "concept: sqlite cache result readback")
	}
	return *stored, nil
}

func (s *SQLiteStore) IncrementSubmissionCount(ctx context.Context, conceptID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE concepts SET submission_count = submission_count + 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), conceptID,
	)
	if err != nil {
		return eris.Wrapf(err, "concept: sqlite increment count %s", conceptID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "concept: sqlite rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*model.ConceptStoreStats, error) {
	stats := &model.ConceptStoreStats{CachedByType: make(map[model.AnalysisType]int)}

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(submission_count), 0) FROM concepts`)
	if err := row.Scan(&stats.Concepts, &stats.Submissions); err != nil {
		return nil, eris.Wrap(err, "concept: sqlite stats concepts")
	}
	stats.Duplicates = stats.Submissions - stats.Concepts

	rows, err := s.db.QueryContext(ctx,
		`SELECT analysis_type, COUNT(*) FROM concept_results GROUP BY analysis_type`)
	if err != nil {
		return nil, eris.Wrap(err, "concept: sqlite stats results")
	}
	defer rows.Close()

	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, eris.Wrap(err, "concept: sqlite scan stats")
		}
		stats.CachedByType[model.AnalysisType(t)] = n
	}
	return stats, eris.Wrap(rows.Err(), "concept: sqlite stats iterate")
}

func (s *SQLiteStore) TopConcepts(ctx context.Context, limit int) ([]model.BusinessConcept, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fingerprint, primary_submission_id, submission_count, created_at, updated_at
		 FROM concepts ORDER BY submission_count DESC, created_at ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "concept: sqlite top concepts")
	}
	defer rows.Close()

	var out []model.BusinessConcept
	for rows.Next() {
		var c model.BusinessConcept
		if err := rows.Scan(&c.ID, &c.Fingerprint, &c.PrimarySubmissionID, &c.SubmissionCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "concept: sqlite scan concept")
		}
		if err := s.loadComputedFlags(ctx, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "concept: sqlite top concepts iterate")
}

func (s *SQLiteStore) loadComputedFlags(ctx context.Context, c *model.BusinessConcept) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT analysis_type FROM concept_results WHERE concept_id = ?`, c.ID)
	if err != nil {
		return eris.Wrap(err, "concept: sqlite load computed flags")
	}
	defer rows.Close()

	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return eris.Wrap(err, "concept: sqlite scan computed flag")
		}
		if c.Computed == nil {
			c.Computed = make(map[model.AnalysisType]bool)
		}
		c.Computed[model.AnalysisType(t)] = true
	}
	return eris.Wrap(rows.Err(), "concept: sqlite computed flags iterate")
}
