package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitemirror/internal/model"
)

// FileName is the name of the journal file inside its directory.
const FileName = "sitemirror.db"

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// Journal records mirror runs and their pages.
type Journal struct {
	db     *sql.DB
	dbPath string
}

// Options configures Journal behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a Journal in dir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dir string, opts Options) (*Journal, error) {
	dbPath := filepath.Join(dir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("journal not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check journal path: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	j := &Journal{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := j.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return j, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.dbPath
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		root_url TEXT NOT NULL,
		host TEXT NOT NULL,
		output_dir TEXT NOT NULL DEFAULT '',
		max_depth INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL DEFAULT '',
		depth_reached INTEGER NOT NULL DEFAULT 0,
		stored INTEGER NOT NULL DEFAULT 0,
		disallowed INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		total_bytes INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_host ON runs(host);

	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		content_type TEXT NOT NULL DEFAULT '',
		path TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0,
		hash TEXT NOT NULL DEFAULT '',
		fetched_at TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	`
	_, err := j.db.ExecContext(context.Background(), schema)
	return err
}

// Run summarizes one journaled mirror run.
type Run struct {
	ID           int64     `json:"id"`
	RootURL      string    `json:"root_url"`
	Host         string    `json:"host"`
	OutputDir    string    `json:"output_dir"`
	MaxDepth     int       `json:"max_depth"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	DepthReached int       `json:"depth_reached"`
	Stored       int       `json:"stored"`
	Disallowed   int       `json:"disallowed"`
	Failed       int       `json:"failed"`
	Skipped      int       `json:"skipped"`
	TotalBytes   int64     `json:"total_bytes"`
	Error        string    `json:"error,omitempty"`
}

// BeginRun inserts a new run and returns its ID.
func (j *Journal) BeginRun(ctx context.Context, report *model.CrawlReport) (int64, error) {
	result, err := j.db.ExecContext(ctx, `
	INSERT INTO runs (root_url, host, output_dir, max_depth, started_at)
	VALUES (?, ?, ?, ?, ?)
	`,
		report.RootURL,
		report.Host,
		report.OutputDir,
		report.MaxDepth,
		formatTimestamp(report.StartedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return result.LastInsertId()
}

// RecordPage stores the result of one URL. Recording the same URL twice for a
// run replaces the earlier row.
func (j *Journal) RecordPage(ctx context.Context, runID int64, page model.PageResult) error {
	_, err := j.db.ExecContext(ctx, `
	INSERT INTO pages (run_id, url, depth, outcome, status_code, content_type, path, size, hash, fetched_at, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		depth = excluded.depth,
		outcome = excluded.outcome,
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		path = excluded.path,
		size = excluded.size,
		hash = excluded.hash,
		fetched_at = excluded.fetched_at,
		error = excluded.error
	`,
		runID,
		page.URL,
		page.Depth,
		page.Outcome.String(),
		page.StatusCode,
		page.ContentType,
		page.Path,
		page.Size,
		page.Hash,
		formatTimestamp(page.FetchedAt),
		page.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record page %s: %w", page.URL, err)
	}
	return nil
}

// FinishRun stores the totals of a finished (or aborted) run.
func (j *Journal) FinishRun(ctx context.Context, runID int64, report *model.CrawlReport) error {
	counts := report.Counts()
	finished := report.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	result, err := j.db.ExecContext(ctx, `
	UPDATE runs SET
		finished_at = ?,
		depth_reached = ?,
		stored = ?,
		disallowed = ?,
		failed = ?,
		skipped = ?,
		total_bytes = ?,
		error = ?
	WHERE id = ?
	`,
		formatTimestamp(finished),
		report.DepthReached,
		counts[model.OutcomeStored],
		counts[model.OutcomeDisallowed],
		counts[model.OutcomeFailed],
		counts[model.OutcomeSkipped],
		report.TotalBytes(),
		report.Error,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return nil
}

// ListRuns returns journaled runs, newest first. An empty host lists every
// host; limit <= 0 returns all runs.
func (j *Journal) ListRuns(ctx context.Context, host string, limit int) ([]Run, error) {
	query := `
	SELECT id, root_url, host, output_dir, max_depth, started_at, finished_at,
		depth_reached, stored, disallowed, failed, skipped, total_bytes, error
	FROM runs
	WHERE 1=1
	`
	args := make([]any, 0)
	if host != "" {
		query += " AND host = ?"
		args = append(args, host)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(
			&r.ID, &r.RootURL, &r.Host, &r.OutputDir, &r.MaxDepth, &started, &finished,
			&r.DepthReached, &r.Stored, &r.Disallowed, &r.Failed, &r.Skipped, &r.TotalBytes, &r.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = parseTimestamp(started)
		r.FinishedAt = parseTimestamp(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunPages returns the pages recorded for a run in insertion order.
func (j *Journal) RunPages(ctx context.Context, runID int64) ([]model.PageResult, error) {
	var exists int
	err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE id = ?", runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to look up run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}

	rows, err := j.db.QueryContext(ctx, `
	SELECT url, depth, outcome, status_code, content_type, path, size, hash, fetched_at, error
	FROM pages
	WHERE run_id = ?
	ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	pages := make([]model.PageResult, 0)
	for rows.Next() {
		var p model.PageResult
		var outcome, fetched string
		if err := rows.Scan(
			&p.URL, &p.Depth, &outcome, &p.StatusCode, &p.ContentType,
			&p.Path, &p.Size, &p.Hash, &fetched, &p.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		if p.Outcome, err = model.ParseOutcome(outcome); err != nil {
			return nil, fmt.Errorf("page %s: %w", p.URL, err)
		}
		p.FetchedAt = parseTimestamp(fetched)
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// PreviousHash returns the hash a URL had in the most recent run before
// runID that stored it. ok is false when no earlier run stored the URL.
func (j *Journal) PreviousHash(ctx context.Context, url string, runID int64) (hash string, ok bool, err error) {
	err = j.db.QueryRowContext(ctx, `
	SELECT hash FROM pages
	WHERE url = ? AND run_id < ? AND outcome = ?
	ORDER BY run_id DESC
	LIMIT 1
	`, url, runID, model.OutcomeStored.String()).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up previous hash: %w", err)
	}
	return hash, true, nil
}

// formatTimestamp stores times in UTC with nanosecond precision.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05", // SQLite default datetime format
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
