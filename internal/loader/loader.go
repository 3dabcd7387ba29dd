// Package loader persists enriched records to the relational sink with
// idempotent upsert semantics.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hatchline/opportunity-cli/internal/db"
	"github.com/hatchline/opportunity-cli/internal/model"
)

// Mode selects how records land in the sink table.
type Mode string

const (
	// ModeMerge upserts by primary key; re-loading a record updates it.
	ModeMerge Mode = "merge"
	// ModeAppend inserts without conflict handling.
	ModeAppend Mode = "append"
	// ModeReplace truncates the table, then appends.
	ModeReplace Mode = "replace"
)

// ParseMode validates a mode string from config or flags.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeMerge, ModeAppend, ModeReplace:
		return Mode(s), nil
	default:
		return "", eris.Errorf("loader: unknown mode %q", s)
	}
}

// Loader writes enriched records through the db bulk helpers.
type Loader struct {
	pool       db.Pool
	syncSchema bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithSchemaSync controls whether Load creates the sink table and adds
// missing columns before writing. On by default.
func WithSchemaSync(on bool) Option {
	return func(l *Loader) { l.syncSchema = on }
}

// New creates a Loader over a pgx pool.
func New(pool db.Pool, opts ...Option) *Loader {
	l := &Loader{pool: pool, syncSchema: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Ping verifies the sink is reachable.
func (l *Loader) Ping(ctx context.Context) error {
	if err := l.pool.Ping(ctx); err != nil {
		return eris.Wrap(err, "loader: ping sink")
	}
	return nil
}

// Load writes records to table. Records missing the primary key count as
// Skipped and never abort the batch. New columns appearing in this batch are
// added to the table, leaving earlier rows untouched.
func (l *Loader) Load(ctx context.Context, records []model.EnrichedRecord, table, primaryKey string, mode Mode) (model.LoadStatistics, error) {
	stats := model.LoadStatistics{Batches: 1}
	if len(records) == 0 {
		return stats, nil
	}

	rows := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		row := rec.Row()
		if pk, ok := row[primaryKey]; !ok || pk == nil || pk == "" {
			stats.Skipped++
			zap.L().Warn("loader: record missing primary key",
				zap.String("table", table),
				zap.String("primary_key", primaryKey),
			)
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return stats, nil
	}

	columns := columnUnion(rows, primaryKey)

	if l.syncSchema {
		if err := l.ensureSchema(ctx, table, primaryKey, columns, rows); err != nil {
			stats.Failed = len(rows)
			return stats, err
		}
	}

	values := make([][]any, len(rows))
	for i, row := range rows {
		vals := make([]any, len(columns))
		for j, col := range columns {
			vals[j] = row[col]
		}
		values[i] = vals
	}

	var loaded int64
	var err error
	switch mode {
	case ModeMerge:
		loaded, err = db.BulkUpsert(ctx, l.pool, db.UpsertConfig{
			Table:        table,
			Columns:      columns,
			ConflictKeys: []string{primaryKey},
		}, values)
	case ModeReplace:
		if _, err = l.pool.Exec(ctx, "TRUNCATE TABLE "+db.SanitizeTable(table)); err != nil {
			err = eris.Wrapf(err, "loader: truncate %s", table)
			break
		}
		loaded, err = db.CopyInto(ctx, l.pool, table, columns, values)
	case ModeAppend:
		loaded, err = db.CopyInto(ctx, l.pool, table, columns, values)
	default:
		err = eris.Errorf("loader: unknown mode %q", mode)
	}
	if err != nil {
		stats.Failed = len(rows)
		return stats, err
	}

	stats.Loaded = int(loaded)
	zap.L().Info("loader: batch loaded",
		zap.String("table", table),
		zap.String("mode", string(mode)),
		zap.Int("loaded", stats.Loaded),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

// LoadBatch splits records into fixed-size chunks and loads each with the
// same guarantees. A failing chunk counts as Failed and does not stop later
// chunks. REPLACE truncates once, then appends.
func (l *Loader) LoadBatch(ctx context.Context, records []model.EnrichedRecord, table, primaryKey string, mode Mode, batchSize int) (model.LoadStatistics, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	var stats model.LoadStatistics
	var lastErr error
	chunkMode := mode
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}

		chunkStats, err := l.Load(ctx, records[start:end], table, primaryKey, chunkMode)
		stats.Add(chunkStats)
		if err != nil {
			lastErr = err
			zap.L().Error("loader: chunk failed",
				zap.String("table", table),
				zap.Int("offset", start),
				zap.Error(err),
			)
		}
		if mode == ModeReplace {
			chunkMode = ModeAppend
		}
	}
	if len(records) == 0 {
		stats.Batches = 0
	}
	return stats, lastErr
}

// ensureSchema creates the sink table on first use and adds any columns this
// batch introduces. Column types come from the first non-nil value seen.
func (l *Loader) ensureSchema(ctx context.Context, table, primaryKey string, columns []string, rows []map[string]any) error {
	createSQL := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s TEXT PRIMARY KEY)",
		db.SanitizeTable(table),
		db.SanitizeColumn(primaryKey),
	)
	if _, err := l.pool.Exec(ctx, createSQL); err != nil {
		return eris.Wrapf(err, "loader: create table %s", table)
	}

	for _, col := range columns {
		if col == primaryKey {
			continue
		}
		alterSQL := fmt.Sprintf(
			"ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s",
			db.SanitizeTable(table),
			db.SanitizeColumn(col),
			columnType(firstValue(rows, col)),
		)
		if _, err := l.pool.Exec(ctx, alterSQL); err != nil {
			return eris.Wrapf(err, "loader: add column %s to %s", col, table)
		}
	}
	return nil
}

// columnUnion collects every column present across rows, primary key first,
// the rest sorted for deterministic statements.
func columnUnion(rows []map[string]any, primaryKey string) []string {
	seen := map[string]bool{primaryKey: true}
	for _, row := range rows {
		for col := range row {
			seen[col] = true
		}
	}

	rest := make([]string, 0, len(seen)-1)
	for col := range seen {
		if col != primaryKey {
			rest = append(rest, col)
		}
	}
	sort.Strings(rest)
	return append([]string{primaryKey}, rest...)
}

func firstValue(rows []map[string]any, col string) any {
	for _, row := range rows {
		if v, ok := row[col]; ok && v != nil {
			return v
		}
	}
	return nil
}

func columnType(v any) string {
	switch v.(type) {
	case int, int32, int64:
		return "BIGINT"
	case float32, float64:
		return "DOUBLE PRECISION"
	case bool:
		return "BOOLEAN"
	case time.Time:
		return "TIMESTAMPTZ"
	case []byte, json.RawMessage:
		return "JSONB"
	default:
		return "TEXT"
	}
}
