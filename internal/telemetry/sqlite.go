package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	deskerrors "github.com/Aman-CERP/orderdesk/internal/errors"
)

// MaxZeroResults is the number of zero-result queries kept in the database.
const MaxZeroResults = 100

const schema = `
CREATE TABLE IF NOT EXISTS query_stats (
	date TEXT NOT NULL,
	kind TEXT NOT NULL,
	count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (date, kind)
);

CREATE TABLE IF NOT EXISTS query_terms (
	term TEXT PRIMARY KEY,
	count INTEGER NOT NULL DEFAULT 1,
	last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_query_terms_count ON query_terms(count DESC);

CREATE TABLE IF NOT EXISTS zero_result_queries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	query TEXT NOT NULL,
	kind TEXT NOT NULL,
	timestamp INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS query_latency_stats (
	date TEXT NOT NULL,
	bucket TEXT NOT NULL,
	count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (date, bucket)
);
`

// SQLiteStore keeps search telemetry in tables next to the order desk
// state. It does not own the connection.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the telemetry tables in db if needed.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, deskerrors.InternalError("telemetry needs a database connection", nil)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to create telemetry schema", err)
	}
	return &SQLiteStore{db: db}, nil
}

// AddQueryCounts adds per-kind and per-bucket counts for date.
func (s *SQLiteStore) AddQueryCounts(ctx context.Context, date string, kinds map[QueryKind]int64, latency map[LatencyBucket]int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for k, n := range kinds {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO query_stats (date, kind, count) VALUES (?, ?, ?)
				ON CONFLICT(date, kind) DO UPDATE SET count = count + excluded.count`,
				date, string(k), n); err != nil {
				return fmt.Errorf("insert query count: %w", err)
			}
		}
		for b, n := range latency {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO query_latency_stats (date, bucket, count) VALUES (?, ?, ?)
				ON CONFLICT(date, bucket) DO UPDATE SET count = count + excluded.count`,
				date, string(b), n); err != nil {
				return fmt.Errorf("insert latency count: %w", err)
			}
		}
		return nil
	})
}

// AddTermCounts adds term frequencies.
func (s *SQLiteStore) AddTermCounts(ctx context.Context, terms map[string]int64) error {
	if len(terms) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for term, n := range terms {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO query_terms (term, count, last_seen) VALUES (?, ?, CURRENT_TIMESTAMP)
				ON CONFLICT(term) DO UPDATE SET
					count = count + excluded.count,
					last_seen = CURRENT_TIMESTAMP`,
				term, n); err != nil {
				return fmt.Errorf("upsert term count: %w", err)
			}
		}
		return nil
	})
}

// AddZeroResults appends zero-result queries and keeps the newest
// MaxZeroResults.
func (s *SQLiteStore) AddZeroResults(ctx context.Context, queries []ZeroResult) error {
	if len(queries) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, q := range queries {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO zero_result_queries (query, kind, timestamp) VALUES (?, ?, ?)`,
				q.Query, string(q.Kind), q.Timestamp.UnixMilli()); err != nil {
				return fmt.Errorf("insert zero-result query: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM zero_result_queries
			WHERE id NOT IN (SELECT id FROM zero_result_queries ORDER BY id DESC LIMIT ?)`,
			MaxZeroResults); err != nil {
			return fmt.Errorf("trim zero-result queries: %w", err)
		}
		return nil
	})
}

// Report is the persisted telemetry over a date range.
type Report struct {
	From        string                  `json:"from"`
	To          string                  `json:"to"`
	Total       int64                   `json:"total"`
	Kinds       map[QueryKind]int64     `json:"kinds"`
	Latency     map[LatencyBucket]int64 `json:"latency"`
	TopTerms    []TermCount             `json:"top_terms"`
	ZeroResults []ZeroResult            `json:"zero_results"`
}

// Report reads counts for dates in [from, to] (YYYY-MM-DD), the top terms
// and the most recent zero-result queries, newest first.
func (s *SQLiteStore) Report(ctx context.Context, from, to string, topTerms, zeroResults int) (Report, error) {
	r := Report{
		From:    from,
		To:      to,
		Kinds:   make(map[QueryKind]int64),
		Latency: make(map[LatencyBucket]int64),
	}

	err := s.query(ctx, `
		SELECT kind, SUM(count) FROM query_stats
		WHERE date >= ? AND date <= ? GROUP BY kind`,
		func(rows *sql.Rows) error {
			var k string
			var n int64
			if err := rows.Scan(&k, &n); err != nil {
				return err
			}
			r.Kinds[QueryKind(k)] = n
			r.Total += n
			return nil
		}, from, to)
	if err != nil {
		return Report{}, err
	}

	err = s.query(ctx, `
		SELECT bucket, SUM(count) FROM query_latency_stats
		WHERE date >= ? AND date <= ? GROUP BY bucket`,
		func(rows *sql.Rows) error {
			var b string
			var n int64
			if err := rows.Scan(&b, &n); err != nil {
				return err
			}
			r.Latency[LatencyBucket(b)] = n
			return nil
		}, from, to)
	if err != nil {
		return Report{}, err
	}

	err = s.query(ctx, `SELECT term, count FROM query_terms ORDER BY count DESC, term LIMIT ?`,
		func(rows *sql.Rows) error {
			var tc TermCount
			if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
				return err
			}
			r.TopTerms = append(r.TopTerms, tc)
			return nil
		}, topTerms)
	if err != nil {
		return Report{}, err
	}

	err = s.query(ctx, `SELECT query, kind, timestamp FROM zero_result_queries ORDER BY id DESC LIMIT ?`,
		func(rows *sql.Rows) error {
			var z ZeroResult
			var kind string
			var ms int64
			if err := rows.Scan(&z.Query, &kind, &ms); err != nil {
				return err
			}
			z.Kind = QueryKind(kind)
			z.Timestamp = time.UnixMilli(ms).UTC()
			r.ZeroResults = append(r.ZeroResults, z)
			return nil
		}, zeroResults)
	if err != nil {
		return Report{}, err
	}
	return r, nil
}

// Reset deletes every telemetry row.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"query_stats", "query_terms", "zero_result_queries", "query_latency_stats"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to begin telemetry transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to write telemetry", err)
	}
	if err := tx.Commit(); err != nil {
		return deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to commit telemetry", err)
	}
	return nil
}

func (s *SQLiteStore) query(ctx context.Context, q string, scan func(*sql.Rows) error, args ...any) error {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to read telemetry", err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to read telemetry", err)
		}
	}
	if err := rows.Err(); err != nil {
		return deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to read telemetry", err)
	}
	return nil
}
