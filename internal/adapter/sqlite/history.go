package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/skgchp/shoveover/internal/domain"
	"github.com/skgchp/shoveover/internal/port"
)

// HistoryStore persists run summaries and per-directory move records in
// SQLite. Optional collaborator: the engine works without it, and
// recording failures are logged, not fatal.
type HistoryStore struct {
	db *sql.DB
}

// Ensure HistoryStore implements port.History
var _ port.History = (*HistoryStore)(nil)

// Open opens (and if needed creates) the history database at dbPath.
func Open(dbPath string) (*HistoryStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	// Open database with WAL mode and busy timeout
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	store := &HistoryStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return store, nil
}

// Close closes the database connection
func (s *HistoryStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *HistoryStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at      TEXT NOT NULL,
		finished_at     TEXT NOT NULL,
		moved_count     INTEGER NOT NULL,
		total_freed_kb  INTEGER NOT NULL,
		final_free_pct  INTEGER NOT NULL,
		dry_run         INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS moves (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      INTEGER NOT NULL REFERENCES runs(id),
		source      TEXT NOT NULL,
		destination TEXT NOT NULL,
		size_kb     INTEGER NOT NULL,
		dry_run     INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_moves_run_id ON moves(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordRun stores one run summary and its moves in a single
// transaction.
func (s *HistoryStore) RecordRun(summary *domain.RunSummary, moves []domain.MoveResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO runs (started_at, finished_at, moved_count, total_freed_kb, final_free_pct, dry_run)
		VALUES (?, ?, ?, ?, ?, ?)`,
		summary.StartedAt.UTC().Format(time.RFC3339),
		summary.FinishedAt.UTC().Format(time.RFC3339),
		summary.MovedCount,
		summary.TotalFreedKB,
		summary.FinalFreePct,
		boolToInt(summary.DryRun),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get run id: %w", err)
	}

	for _, m := range moves {
		if _, err := tx.Exec(`
			INSERT INTO moves (run_id, source, destination, size_kb, dry_run)
			VALUES (?, ?, ?, ?, ?)`,
			runID, m.Source, m.Destination, m.SizeKB, boolToInt(m.DryRun),
		); err != nil {
			return fmt.Errorf("failed to insert move: %w", err)
		}
	}

	return tx.Commit()
}

// RunRecord is one stored run, for inspection via the CLI.
type RunRecord struct {
	ID           int64
	StartedAt    time.Time
	FinishedAt   time.Time
	MovedCount   int
	TotalFreedKB int64
	FinalFreePct int
	DryRun       bool
	MovedPaths   []string
}

// RecentRuns returns up to limit runs, newest first, each with its
// moved source paths.
func (s *HistoryStore) RecentRuns(limit int) ([]RunRecord, error) {
	if limit < 1 {
		limit = 10
	}

	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, moved_count, total_freed_kb, final_free_pct, dry_run
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var started, finished string
		var dryRun int
		if err := rows.Scan(&r.ID, &started, &finished, &r.MovedCount, &r.TotalFreedKB, &r.FinalFreePct, &dryRun); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		r.DryRun = dryRun != 0
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		paths, err := s.movedPaths(runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].MovedPaths = paths
	}
	return runs, nil
}

func (s *HistoryStore) movedPaths(runID int64) ([]string, error) {
	rows, err := s.db.Query(`SELECT source FROM moves WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query moves: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// String renders a run record as one log-friendly line.
func (r RunRecord) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %d: %s moved=%d freed_kb=%d final_free=%d%%",
		r.ID, r.StartedAt.Format(time.RFC3339), r.MovedCount, r.TotalFreedKB, r.FinalFreePct)
	if r.DryRun {
		b.WriteString(" (dry run)")
	}
	return b.String()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
