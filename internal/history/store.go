package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the
// schema changes; old journals must then be removed.
const schemaVersion = 1

// ErrSchemaMismatch indicates the journal was written by an
// incompatible version.
var ErrSchemaMismatch = errors.New("history schema version mismatch")

// Outcome is the terminal classification of a run.
type Outcome string

const (
	OutcomeRunning     Outcome = "running"
	OutcomeCompleted   Outcome = "completed"
	OutcomeFailed      Outcome = "failed"
	OutcomeKilled      Outcome = "killed"
	OutcomeSpawnFailed Outcome = "spawn_failed"
)

// Entry is one journaled run.
type Entry struct {
	ID         int64
	JobID      string
	Workspace  string
	Workflow   string
	ExecuteAs  string
	Outcome    Outcome
	ExitCode   int
	Delivered  bool
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store manages run journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return tx.Commit()
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: journal has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// RecordStart journals the beginning of a run and returns its row id.
func (s *Store) RecordStart(ctx context.Context, jobID, workspace, workflow, executeAs string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (job_id, workspace, workflow, execute_as, outcome, started_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		jobID, workspace, workflow, executeAs, OutcomeRunning,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// RecordResult journals the terminal state of a run.
func (s *Store) RecordResult(ctx context.Context, id int64, outcome Outcome, exitCode int, delivered bool, runErr error) error {
	message := ""
	if runErr != nil {
		message = runErr.Error()
	}
	deliveredInt := 0
	if delivered {
		deliveredInt = 1
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET outcome = ?, exit_code = ?, delivered = ?, error = ?, finished_at = ? WHERE id = ?`,
		outcome, exitCode, deliveredInt, message,
		time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("update run %d: %w", id, err)
	}
	return nil
}

// MarkDelivered flags the most recent run of workflow in workspace as
// delivered. Commit happens in a separate invocation from the run, so
// the row is located by workspace and workflow rather than by id.
func (s *Store) MarkDelivered(ctx context.Context, workspace, workflow string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET delivered = 1
         WHERE id = (SELECT id FROM runs WHERE workspace = ? AND workflow = ?
                     ORDER BY started_at DESC, id DESC LIMIT 1)`,
		workspace, workflow,
	)
	if err != nil {
		return fmt.Errorf("mark delivered for %s/%s: %w", workspace, workflow, err)
	}
	return nil
}

// Recent returns the most recently started runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, workspace, workflow, execute_as, outcome, exit_code, delivered, error, started_at, finished_at
         FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var delivered int
		var started string
		var finished sql.NullString
		if err := rows.Scan(&entry.ID, &entry.JobID, &entry.Workspace, &entry.Workflow, &entry.ExecuteAs,
			&entry.Outcome, &entry.ExitCode, &delivered, &entry.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		entry.Delivered = delivered != 0
		if ts, parseErr := time.Parse(time.RFC3339Nano, started); parseErr == nil {
			entry.StartedAt = ts
		}
		if finished.Valid {
			if ts, parseErr := time.Parse(time.RFC3339Nano, finished.String); parseErr == nil {
				entry.FinishedAt = ts
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
