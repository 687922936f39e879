package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// ErrCorrupt marks a history file sqlite cannot read as a database.
var ErrCorrupt = errors.New("history database is corrupt")

// Store records resolutions in a local sqlite database.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL keep watch-mode writes from failing on a busy file.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, openError("ping sqlite history", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, openError("initialize sqlite schema", cleanPath, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveResolution inserts or replaces a run and its dependency rows. A
// missing RunID is generated and a zero Timestamp becomes now.
func (s *Store) SaveResolution(ctx context.Context, r Resolution) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.Package = strings.TrimSpace(r.Package)
	if r.Package == "" {
		return "", fmt.Errorf("resolution package must not be empty")
	}
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	if r.Outcome == "" {
		r.Outcome = OutcomeOK
	}

	err := s.withRetry("save resolution", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM resolutions WHERE run_id = ?`, r.RunID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO resolutions (
  run_id, package, source, outcome, cycle_node, dependency_count,
  node_count, edge_count, duration_ns, ts_utc, commit_hash, commit_ts_utc
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID,
			r.Package,
			r.Source,
			r.Outcome,
			r.CycleNode,
			len(r.Dependencies),
			r.NodeCount,
			r.EdgeCount,
			int64(r.Duration),
			formatTime(r.Timestamp),
			r.CommitHash,
			formatTime(r.CommitTimestamp),
		); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO resolution_dependencies(run_id, dependency) VALUES (?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, dep := range r.Dependencies {
			if _, err := stmt.ExecContext(ctx, r.RunID, dep); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return "", err
	}
	return r.RunID, nil
}

// LoadResolutions returns the runs for pkg at or after since, oldest first.
func (s *Store) LoadResolutions(ctx context.Context, pkg string, since time.Time) ([]Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := selectResolutions + " WHERE package = ?"
	args := []any{strings.TrimSpace(pkg)}
	if !since.IsZero() {
		query += " AND ts_utc >= ?"
		args = append(args, formatTime(since))
	}
	query += " ORDER BY ts_utc ASC, run_id ASC"

	return s.queryResolutions(ctx, query, args...)
}

// Latest returns the most recent run for pkg; ok is false when none exists.
func (s *Store) Latest(ctx context.Context, pkg string) (Resolution, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := selectResolutions + " WHERE package = ? ORDER BY ts_utc DESC, run_id DESC LIMIT 1"
	runs, err := s.queryResolutions(ctx, query, strings.TrimSpace(pkg))
	if err != nil || len(runs) == 0 {
		return Resolution{}, false, err
	}
	return runs[0], true, nil
}

const selectResolutions = `
SELECT run_id, package, source, outcome, cycle_node, node_count, edge_count,
  duration_ns, ts_utc, commit_hash, commit_ts_utc
FROM resolutions`

func (s *Store) queryResolutions(ctx context.Context, query string, args ...any) ([]Resolution, error) {
	var rows *sql.Rows
	err := s.withRetry("load resolutions", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}

	runs := make([]Resolution, 0)
	for rows.Next() {
		var (
			r           Resolution
			durationNS  int64
			tsRaw       string
			commitTSRaw string
		)
		if err := rows.Scan(
			&r.RunID,
			&r.Package,
			&r.Source,
			&r.Outcome,
			&r.CycleNode,
			&r.NodeCount,
			&r.EdgeCount,
			&durationNS,
			&tsRaw,
			&r.CommitHash,
			&commitTSRaw,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan resolution row: %w", err)
		}
		r.Duration = time.Duration(durationNS)
		if r.Timestamp, err = parseTime(tsRaw); err != nil {
			rows.Close()
			return nil, err
		}
		if r.CommitTimestamp, err = parseTime(commitTSRaw); err != nil {
			rows.Close()
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate resolution rows: %w", err)
	}
	// Single connection: the cursor must be released before the next query.
	rows.Close()

	for i := range runs {
		deps, err := s.loadDependencies(ctx, runs[i].RunID)
		if err != nil {
			return nil, err
		}
		runs[i].Dependencies = deps
	}
	return runs, nil
}

func (s *Store) loadDependencies(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT dependency FROM resolution_dependencies WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("load dependencies for %s: %w", runID, err)
	}
	defer rows.Close()

	var deps []string
	for rows.Next() {
		var dep string
		if err := rows.Scan(&dep); err != nil {
			return nil, fmt.Errorf("scan dependency row: %w", err)
		}
		deps = append(deps, dep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(deps)
	return deps, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func openError(op, path string, err error) error {
	if IsCorruptError(err) {
		return fmt.Errorf("%s %q: %w: %v", op, path, ErrCorrupt, err)
	}
	return fmt.Errorf("%s %q: %w", op, path, err)
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t.UTC(), nil
}
