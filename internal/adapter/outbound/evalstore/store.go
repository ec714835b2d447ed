// Package evalstore persists a bounded log of evaluation records in SQLite.
package evalstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one stored evaluation outcome.
type Record struct {
	RequestID           string
	EventID             string
	EventType           string
	MatchedRuleCodes    []string
	PredicatesEvaluated int
	LatencyNanos        int64
	CreatedAt           time.Time
}

// Store is a SQLite-backed evaluation log. Inserts beyond the configured
// bound prune the oldest rows. Recording is best-effort: callers swallow
// insert errors so an evaluation never fails because of its audit trail.
type Store struct {
	db         *sql.DB
	maxRecords int
	logger     *slog.Logger

	insertsSincePrune atomic.Int64
}

// pruneEvery batches prune sweeps instead of paying one per insert.
const pruneEvery = 256

const schema = `
CREATE TABLE IF NOT EXISTS evaluations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL,
	event_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	matched_rule_codes TEXT NOT NULL,
	predicates_evaluated INTEGER NOT NULL,
	latency_ns INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_evaluations_created_at ON evaluations(created_at);
`

// Open opens (creating if needed) the store at path. maxRecords <= 0
// disables pruning.
func Open(path string, maxRecords int, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open evaluation store: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("evaluation store pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("evaluation store schema: %w", err)
	}

	return &Store{db: db, maxRecords: maxRecords, logger: logger}, nil
}

// Insert appends one record, pruning the oldest rows periodically when the
// store is over its bound.
func (s *Store) Insert(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluations
		 (request_id, event_id, event_type, matched_rule_codes, predicates_evaluated, latency_ns, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID,
		rec.EventID,
		rec.EventType,
		strings.Join(rec.MatchedRuleCodes, ","),
		rec.PredicatesEvaluated,
		rec.LatencyNanos,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}

	if s.maxRecords > 0 && s.insertsSincePrune.Add(1)%pruneEvery == 0 {
		s.prune(ctx)
	}
	return nil
}

// prune deletes everything older than the newest maxRecords rows.
func (s *Store) prune(ctx context.Context) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM evaluations WHERE id NOT IN
		 (SELECT id FROM evaluations ORDER BY id DESC LIMIT ?)`,
		s.maxRecords,
	)
	if err != nil {
		s.logger.Warn("evaluation store prune failed", "error", err)
		return
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.logger.Debug("pruned evaluation records", "deleted", n)
	}
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT request_id, event_id, event_type, matched_rule_codes, predicates_evaluated, latency_ns, created_at
		 FROM evaluations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var codes, createdAt string
		if err := rows.Scan(&rec.RequestID, &rec.EventID, &rec.EventType,
			&codes, &rec.PredicatesEvaluated, &rec.LatencyNanos, &createdAt); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		if codes != "" {
			rec.MatchedRuleCodes = strings.Split(codes, ",")
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rec.CreatedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM evaluations`).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
