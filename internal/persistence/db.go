// Package persistence keeps the run journal in SQLite: every bot run, the
// posts it produced, and small scheduler bookkeeping values.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection for the run journal.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		bot TEXT NOT NULL,
		date TEXT NOT NULL,
		success INTEGER NOT NULL,
		dry_run INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS posts (
		run_id TEXT NOT NULL REFERENCES runs(id),
		seq INTEGER NOT NULL,
		kind TEXT NOT NULL,
		post_id TEXT NOT NULL,
		text TEXT NOT NULL,
		weight INTEGER NOT NULL,
		PRIMARY KEY (run_id, seq)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_bot_date ON runs(bot, date);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run is one journaled bot run.
type Run struct {
	ID         string `db:"id" json:"id"`
	Bot        string `db:"bot" json:"bot"`
	Date       string `db:"date" json:"date"`
	Success    bool   `db:"success" json:"success"`
	DryRun     bool   `db:"dry_run" json:"dry_run"`
	Skipped    bool   `db:"skipped" json:"skipped"`
	Error      string `db:"error" json:"error,omitempty"`
	StartedMS  int64  `db:"started_at" json:"started_at_ms"`
	DurationMS int64  `db:"duration_ms" json:"duration_ms"`
}

// StartedAt returns the start instant.
func (r Run) StartedAt() time.Time { return time.UnixMilli(r.StartedMS) }

// Duration returns the run's wall time.
func (r Run) Duration() time.Duration { return time.Duration(r.DurationMS) * time.Millisecond }

// Post is one post a run published (or would have, in a dry run).
type Post struct {
	RunID  string `db:"run_id" json:"-"`
	Seq    int    `db:"seq" json:"seq"`
	Kind   string `db:"kind" json:"kind"`
	PostID string `db:"post_id" json:"post_id"`
	Text   string `db:"text" json:"text"`
	Weight int    `db:"weight" json:"weight"`
}

// RecordRun writes a run and its posts in one transaction.
func (db *DB) RecordRun(run Run, posts []Post) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.NamedExec(`INSERT INTO runs
		(id, bot, date, success, dry_run, skipped, error, started_at, duration_ms)
		VALUES (:id, :bot, :date, :success, :dry_run, :skipped, :error, :started_at, :duration_ms)`, run)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	for i, p := range posts {
		p.RunID = run.ID
		p.Seq = i
		_, err := tx.NamedExec(`INSERT INTO posts (run_id, seq, kind, post_id, text, weight)
			VALUES (:run_id, :seq, :kind, :post_id, :text, :weight)`, p)
		if err != nil {
			return fmt.Errorf("insert post %d of run %s: %w", i, run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Debug("run recorded", "run_id", run.ID, "bot", run.Bot, "posts", len(posts))
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	runs := []Run{}
	err := db.conn.Select(&runs,
		"SELECT * FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	return runs, err
}

// RunPosts returns a run's posts in publishing order.
func (db *DB) RunPosts(runID string) ([]Post, error) {
	posts := []Post{}
	err := db.conn.Select(&posts,
		"SELECT * FROM posts WHERE run_id = ? ORDER BY seq",
		runID,
	)
	return posts, err
}

// PostedToday reports whether bot has a successful live run for date
// (YYYY-MM-DD, KST).
func (db *DB) PostedToday(bot, date string) (bool, error) {
	var n int
	err := db.conn.Get(&n,
		"SELECT COUNT(*) FROM runs WHERE bot = ? AND date = ? AND success = 1 AND dry_run = 0 AND skipped = 0",
		bot, date,
	)
	return n > 0, err
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a value; a missing key yields "" and no error.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}
