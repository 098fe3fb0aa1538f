// Package analytics records privacy-conscious site visits and terminal
// queries in SQLite. Client addresses are only ever stored hashed.
package analytics

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const (
	topQueryLimit      = 10
	statsVisitorLimit  = 50
	statsQueryLimit    = 20
	defaultRecentLimit = 200
)

// Visit is one tracked page view.
type Visit struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Time      time.Time `json:"timestamp"`
}

// QueryEvent is one query typed into the terminal.
type QueryEvent struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	SessionID string    `json:"session_id"`
	Query     string    `json:"query"`
	Kind      string    `json:"kind"`
	Success   bool      `json:"success"`
	Rows      int       `json:"rows"`
	Time      time.Time `json:"timestamp"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

type Stats struct {
	TotalVisitors    int64        `json:"total_visitors"`
	UniqueVisitors   int64        `json:"unique_visitors"`
	VisitorsToday    int64        `json:"visitors_today"`
	VisitorsThisWeek int64        `json:"visitors_this_week"`
	TotalQueries     int64        `json:"total_queries"`
	FailedQueries    int64        `json:"failed_queries"`
	TopQueries       []QueryCount `json:"top_queries"`
	RecentVisitors   []Visit      `json:"recent_visitors"`
	RecentQueries    []QueryEvent `json:"recent_queries"`
	GeneratedAt      time.Time    `json:"generated_at"`
}

// Store wraps the analytics database.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at path and applies migrations. Use
// ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Every connection to :memory: is its own database, and SQLite has a
	// single writer anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return New(db), nil
}

// New wraps an already migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// HashIP returns a short, salted, one-way digest of ip.
func HashIP(ip, salt string) string {
	sum := sha256.Sum256([]byte(ip + salt))
	return hex.EncodeToString(sum[:])[:16]
}

func stamp(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Unix()
}

func (s *Store) RecordVisit(ctx context.Context, v Visit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visitors (hashed_ip, user_agent, path, visited_at)
		VALUES (?, ?, ?, ?)`,
		v.HashedIP, v.UserAgent, v.Path, stamp(v.Time))
	if err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

func (s *Store) RecordQuery(ctx context.Context, q QueryEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO queries (hashed_ip, session_id, query, kind, success, row_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		q.HashedIP, q.SessionID, q.Query, q.Kind, q.Success, q.Rows, stamp(q.Time))
	if err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	return nil
}

// Stats summarises the stored data. now fixes the day and week windows.
func (s *Store) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	stats := &Stats{GeneratedAt: now}

	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).Unix()
	week := now.Add(-7 * 24 * time.Hour).Unix()

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(DISTINCT hashed_ip),
		       COALESCE(SUM(visited_at >= ?), 0),
		       COALESCE(SUM(visited_at >= ?), 0)
		FROM visitors`, today, week).
		Scan(&stats.TotalVisitors, &stats.UniqueVisitors, &stats.VisitorsToday, &stats.VisitorsThisWeek)
	if err != nil {
		return nil, fmt.Errorf("count visitors: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(success = 0), 0) FROM queries`).
		Scan(&stats.TotalQueries, &stats.FailedQueries)
	if err != nil {
		return nil, fmt.Errorf("count queries: %w", err)
	}

	if stats.TopQueries, err = s.topQueries(ctx, topQueryLimit); err != nil {
		return nil, err
	}
	if stats.RecentVisitors, err = s.RecentVisitors(ctx, statsVisitorLimit); err != nil {
		return nil, err
	}
	if stats.RecentQueries, err = s.RecentQueries(ctx, statsQueryLimit); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) topQueries(ctx context.Context, limit int) ([]QueryCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT query, COUNT(*) AS n
		FROM queries
		GROUP BY query
		ORDER BY n DESC, MAX(created_at) DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("top queries: %w", err)
	}
	defer rows.Close()

	out := []QueryCount{}
	for rows.Next() {
		var qc QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			return nil, fmt.Errorf("scan top query: %w", err)
		}
		out = append(out, qc)
	}
	return out, rows.Err()
}

// RecentVisitors returns up to limit visits, newest first. A non-positive
// limit uses the default of 200.
func (s *Store) RecentVisitors(ctx context.Context, limit int) ([]Visit, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, user_agent, path, visited_at
		FROM visitors
		ORDER BY visited_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent visitors: %w", err)
	}
	defer rows.Close()

	out := []Visit{}
	for rows.Next() {
		var v Visit
		var ts int64
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &ts); err != nil {
			return nil, fmt.Errorf("scan visitor: %w", err)
		}
		v.Time = time.Unix(ts, 0)
		out = append(out, v)
	}
	return out, rows.Err()
}

// RecentQueries returns up to limit terminal queries, newest first.
func (s *Store) RecentQueries(ctx context.Context, limit int) ([]QueryEvent, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, session_id, query, kind, success, row_count, created_at
		FROM queries
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent queries: %w", err)
	}
	defer rows.Close()

	out := []QueryEvent{}
	for rows.Next() {
		var q QueryEvent
		var ts int64
		if err := rows.Scan(&q.ID, &q.HashedIP, &q.SessionID, &q.Query, &q.Kind, &q.Success, &q.Rows, &ts); err != nil {
			return nil, fmt.Errorf("scan query: %w", err)
		}
		q.Time = time.Unix(ts, 0)
		out = append(out, q)
	}
	return out, rows.Err()
}

// Cleanup deletes visits and queries older than cutoff and returns the
// number of rows removed.
func (s *Store) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin cleanup: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var n int64

	for _, stmt := range []string{
		`DELETE FROM visitors WHERE visited_at < ?`,
		`DELETE FROM queries WHERE created_at < ?`,
	} {
		res, err := tx.ExecContext(ctx, stmt, cutoff.Unix())
		if err != nil {
			return 0, fmt.Errorf("cleanup: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("cleanup rows affected: %w", err)
		}
		n += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cleanup: %w", err)
	}
	return n, nil
}
