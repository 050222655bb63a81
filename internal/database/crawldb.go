package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/webindex/internal/model"
)

// FileName is the database file inside the data directory.
const FileName = "webindex.db"

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("crawl run not found")

// CrawlDB stores crawl runs and their per-URL outcomes.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures CrawlDB behavior.
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

// Open opens or creates the crawl log in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; outcomes arrive from many crawl workers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		seeds TEXT NOT NULL,
		max_depth INTEGER NOT NULL,
		page_limit INTEGER NOT NULL,
		documents INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS visits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		state TEXT NOT NULL,
		reason TEXT,
		status_code INTEGER,
		content_type TEXT,
		content_hash TEXT,
		duration_ms INTEGER,
		visited_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_visits_run ON visits(run_id);
	CREATE INDEX IF NOT EXISTS idx_visits_url ON visits(url);
	CREATE INDEX IF NOT EXISTS idx_visits_state ON visits(state);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunStatus is the lifecycle state of a crawl run.
type RunStatus string

const (
	// RunRunning means the run has not finished (or the process died).
	RunRunning RunStatus = "running"
	// RunCompleted means the crawl ended normally.
	RunCompleted RunStatus = "completed"
	// RunCanceled means the crawl was interrupted.
	RunCanceled RunStatus = "canceled"
	// RunFailed means the crawl or a later stage returned an error.
	RunFailed RunStatus = "failed"
)

// RunConfig is what a run was started with.
type RunConfig struct {
	Seeds     []string
	MaxDepth  int
	PageLimit int
}

// Run is a stored crawl run.
type Run struct {
	ID         int64     `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Seeds      []string  `json:"seeds"`
	MaxDepth   int       `json:"max_depth"`
	PageLimit  int       `json:"page_limit"`
	Documents  int       `json:"documents"`
	Status     RunStatus `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// Duration returns how long a finished run took, or zero.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StartRun records the start of a run and returns its id.
func (cdb *CrawlDB) StartRun(ctx context.Context, cfg RunConfig) (int64, error) {
	seeds, err := json.Marshal(cfg.Seeds)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize seeds: %w", err)
	}

	res, err := cdb.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, seeds, max_depth, page_limit, status) VALUES (?, ?, ?, ?, ?)`,
		formatTimestamp(time.Now()), string(seeds), cfg.MaxDepth, cfg.PageLimit, string(RunRunning))
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun records the end of a run. runErr decides the final status.
func (cdb *CrawlDB) FinishRun(ctx context.Context, id int64, documents int, runErr error) error {
	status := RunCompleted
	var errText sql.NullString
	if runErr != nil {
		status = RunFailed
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			status = RunCanceled
		}
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}

	res, err := cdb.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, documents = ?, status = ?, error = ? WHERE id = ?`,
		formatTimestamp(time.Now()), documents, string(status), errText, id)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return nil
}

// InsertOutcome records the terminal state of one URL in a run.
// A second outcome for the same URL in the same run is ignored.
func (cdb *CrawlDB) InsertOutcome(ctx context.Context, runID int64, o model.Outcome) error {
	_, err := cdb.db.ExecContext(ctx, `
	INSERT INTO visits (run_id, url, depth, state, reason, status_code, content_type, content_hash, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO NOTHING`,
		runID, o.URL, o.Depth, string(o.State), o.Reason, o.StatusCode, o.ContentType, o.ContentHash,
		o.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to insert outcome for %s: %w", o.URL, err)
	}
	return nil
}

// GetRun returns one run.
func (cdb *CrawlDB) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := cdb.db.QueryRowContext(ctx, `
	SELECT id, started_at, finished_at, seeds, max_depth, page_limit, documents, status, error
	FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. A limit of zero or
// less returns every run.
func (cdb *CrawlDB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT id, started_at, finished_at, seeds, max_depth, page_limit, documents, status, error
	FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ListOutcomes returns the outcomes of a run in the order they were recorded.
func (cdb *CrawlDB) ListOutcomes(ctx context.Context, runID int64) ([]model.Outcome, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT url, depth, state, reason, status_code, content_type, content_hash, duration_ms
	FROM visits WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []model.Outcome
	for rows.Next() {
		var (
			o                         model.Outcome
			state                     string
			reason, ctype, hash       sql.NullString
			statusCode, durationMilli sql.NullInt64
		)
		if err := rows.Scan(&o.URL, &o.Depth, &state, &reason, &statusCode, &ctype, &hash, &durationMilli); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.State = model.State(state)
		o.Reason = reason.String
		o.StatusCode = int(statusCode.Int64)
		o.ContentType = ctype.String
		o.ContentHash = hash.String
		o.Duration = time.Duration(durationMilli.Int64) * time.Millisecond
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// CountStates tallies the outcomes of a run by state.
func (cdb *CrawlDB) CountStates(ctx context.Context, runID int64) (map[model.State]int, error) {
	rows, err := cdb.db.QueryContext(ctx,
		`SELECT state, COUNT(*) FROM visits WHERE run_id = ? GROUP BY state`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count states: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.State]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan state count: %w", err)
		}
		counts[model.State(state)] = n
	}
	return counts, rows.Err()
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*Run, error) {
	var (
		run        Run
		startedAt  string
		finishedAt sql.NullString
		seeds      string
		status     string
		errText    sql.NullString
	)
	if err := s.Scan(&run.ID, &startedAt, &finishedAt, &seeds, &run.MaxDepth, &run.PageLimit,
		&run.Documents, &status, &errText); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(seeds), &run.Seeds); err != nil {
		return nil, fmt.Errorf("failed to parse seeds: %w", err)
	}
	run.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTimestamp(finishedAt.String)
	}
	run.Status = RunStatus(status)
	run.Error = errText.String
	return &run, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05.000", // formatTimestamp
	"2006-01-02 15:04:05",     // SQLite CURRENT_TIMESTAMP
	time.RFC3339Nano,          // driver-parsed DATETIME scanned into a string
	"2006-01-02T15:04:05",
}

// formatTimestamp renders t the way SQLite's date functions expect.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05.000")
}

// parseTimestamp tries each of timestampFormats in turn and returns the
// zero time if none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
