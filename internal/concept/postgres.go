package concept

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/hatchline/opportunity-cli/internal/db"
	"github.com/hatchline/opportunity-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "concept: postgres parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "concept: postgres create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "concept: postgres ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests and by callers
// that share one pool between the concept store and the loader.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: func() {}}
}

// Pool exposes the underlying pool so the loader can share the connection.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS concepts (
	id                    TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	fingerprint           TEXT NOT NULL UNIQUE,
	primary_submission_id TEXT NOT NULL,
	submission_count      INTEGER NOT NULL DEFAULT 1,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS concept_results (
	concept_id    TEXT NOT NULL REFERENCES concepts(id),
	analysis_type TEXT NOT NULL,
	submission_id TEXT NOT NULL,
	payload       JSONB NOT NULL,
	computed_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (concept_id, analysis_type)
);

CREATE INDEX IF NOT EXISTS idx_concepts_fingerprint ON concepts(fingerprint);
CREATE INDEX IF NOT EXISTS idx_concept_results_type ON concept_results(analysis_type);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "concept: postgres migrate")
}

func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}

func (s *PostgresStore) FindByFingerprint(ctx context.Context, fingerprint string) (*model.BusinessConcept, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, fingerprint, primary_submission_id, submission_count, created_at, updated_at
		 FROM concepts WHERE fingerprint = $1`,
		fingerprint,
	)

	var c model.BusinessConcept
	err := row.Scan(&c.ID, &c.Fingerprint, &c.PrimarySubmissionID, &c.SubmissionCount, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "concept: postgres find by fingerprint")
	}

	if err := s.loadComputedFlags(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) Create(ctx context.Context, fingerprint string, sub model.Submission) (*model.BusinessConcept, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO concepts (id, fingerprint, primary_submission_id, submission_count, created_at, updated_at)
		 VALUES ($1, $2, $3, 1, $4, $5)`,
		id, fingerprint, sub.ID, now, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateFingerprint
		}
		return nil, eris.Wrap(err, "concept: postgres insert concept")
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

func (s *PostgresStore) GetCachedResult(ctx context.Context, conceptID string, t model.AnalysisType) (*model.AnalysisResult, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT submission_id, payload, computed_at FROM concept_results
		 WHERE concept_id = $1 AND analysis_type = $2`,
		conceptID, string(t),
	)

	var r model.AnalysisResult
	err := row.Scan(&r.SubmissionID, &r.Payload, &r.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "concept: postgres get cached result")
	}

	r.ConceptID = conceptID
	r.Type = t
	r.Source = model.SourceComputed
	return &r, nil
}

func (s *PostgresStore) CacheResult(ctx context.Context, conceptID string, t model.AnalysisType, result model.AnalysisResult) (model.AnalysisResult, error) {
	computedAt := result.ComputedAt
	if computedAt.IsZero() {
		computedAt = time.Now().UTC()
	}

	// ON CONFLICT DO NOTHING gives first-writer-wins at the row level; the
	// readback returns whichever write won.
	_, err := s.pool.Exec(ctx,
		`INSERT INTO concept_results (concept_id, analysis_type, submission_id, payload, computed_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (concept_id, analysis_type) DO NOTHING`,
		conceptID, string(t), result.SubmissionID, result.Payload, computedAt,
	)
	if err != nil {
		return model.AnalysisResult{}, eris.Wrap(err, "concept: postgres cache result")
	}

	if _, err := s.pool.Exec(ctx,
		`UPDATE concepts SET updated_at = now() WHERE id = $1`, conceptID,
	); err != nil {
		return model.AnalysisResult{}, eris.Wrap(err, "concept: postgres touch concept")
	}

	stored, err := s.GetCachedResult(ctx, conceptID, t)
	if err != nil {
		return model.AnalysisResult{}, err
	}
	if stored == nil {
		return model.AnalysisResult{}, eris.Wrap(ErrNotFound, "concept: postgres cache result readback")
	}
	return *stored, nil
}

func (s *PostgresStore) IncrementSubmissionCount(ctx context.Context, conceptID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE concepts SET submission_count = submission_count + 1, updated_at = now() WHERE id = $1`,
		conceptID,
	)
	if err != nil {
		return eris.Wrapf(err, "concept: postgres increment count %s", conceptID)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*model.ConceptStoreStats, error) {
	stats := &model.ConceptStoreStats{CachedByType: make(map[model.AnalysisType]int)}

	row := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(submission_count), 0) FROM concepts`)
	if err := row.Scan(&stats.Concepts, &stats.Submissions); err != nil {
		return nil, eris.Wrap(err, "concept: postgres stats concepts")
	}
	stats.Duplicates = stats.Submissions - stats.Concepts

	rows, err := s.pool.Query(ctx,
		`SELECT analysis_type, COUNT(*) FROM concept_results GROUP BY analysis_type`)
	if err != nil {
		return nil, eris.Wrap(err, "concept: postgres stats results")
	}
	defer rows.Close()

	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, eris.Wrap(err, "concept: postgres scan stats")
		}
		stats.CachedByType[model.AnalysisType(t)] = n
	}
	return stats, eris.Wrap(rows.Err(), "concept: postgres stats iterate")
}

func (s *PostgresStore) TopConcepts(ctx context.Context, limit int) ([]model.BusinessConcept, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, fingerprint, primary_submission_id, submission_count, created_at, updated_at
		 FROM concepts ORDER BY submission_count DESC, created_at ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "concept: postgres top concepts")
	}
	defer rows.Close()

	var out []model.BusinessConcept
	for rows.Next() {
		var c model.BusinessConcept
		if err := rows.Scan(&c.ID, &c.Fingerprint, &c.PrimarySubmissionID, &c.SubmissionCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "concept: postgres scan concept")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "concept: postgres top concepts iterate")
}

func (s *PostgresStore) loadComputedFlags(ctx context.Context, c *model.BusinessConcept) error {
	rows, err := s.pool.Query(ctx,
		`SELECT analysis_type FROM concept_results WHERE concept_id = $1`, c.ID)
	if err != nil {
		return eris.Wrap(err, "concept: postgres load computed flags")
	}
	defer rows.Close()

	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return eris.Wrap(err, "concept: postgres scan computed flag")
		}
		if c.Computed == nil {
			c.Computed = make(map[model.AnalysisType]bool)
		}
		c.Computed[model.AnalysisType(t)] = true
	}
	return eris.Wrap(rows.Err(), "concept: postgres computed flags iterate")
}
