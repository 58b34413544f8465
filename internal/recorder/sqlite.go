package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"PivotScreener/internal/logger"
	"PivotScreener/internal/model"
)

// SQLiteRecorder persists cycle reports to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, l *zap.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so the API can read cycle history while a cycle writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: logger.OrDefault(l).Named("recorder")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_cycles (
			id            TEXT PRIMARY KEY,
			started_at    INTEGER NOT NULL,
			finished_at   INTEGER NOT NULL,
			outcome       TEXT NOT NULL,
			universe_size INTEGER,
			evaluated     INTEGER,
			skipped       INTEGER,
			breakouts     INTEGER,
			breakdowns    INTEGER,
			committed     INTEGER,
			persist_error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_started ON scan_cycles(started_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordCycle(rep *model.CycleReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	committed := 0
	if rep.Committed {
		committed = 1
	}
	_, err := r.db.Exec(`INSERT INTO scan_cycles
		(id, started_at, finished_at, outcome, universe_size, evaluated, skipped,
		 breakouts, breakdowns, committed, persist_error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		rep.ID, rep.StartedAt.UnixNano(), rep.FinishedAt.UnixNano(), string(rep.Outcome),
		rep.UniverseSize, rep.Evaluated, rep.Skipped,
		rep.Breakouts, rep.Breakdowns, committed, rep.PersistErr,
	)
	return err
}

// RecentCycles returns up to limit reports, newest first.
func (r *SQLiteRecorder) RecentCycles(limit int) ([]model.CycleReport, error) {
	rows, err := r.db.Query(`SELECT id, started_at, finished_at, outcome, universe_size,
		evaluated, skipped, breakouts, breakdowns, committed, persist_error
		FROM scan_cycles ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	var out []model.CycleReport
	for rows.Next() {
		var (
			rep                 model.CycleReport
			started, finished   int64
			outcome, persistErr string
			committed           int
		)
		if err := rows.Scan(&rep.ID, &started, &finished, &outcome, &rep.UniverseSize,
			&rep.Evaluated, &rep.Skipped, &rep.Breakouts, &rep.Breakdowns,
			&committed, &persistErr); err != nil {
			return nil, fmt.Errorf("scan cycle row: %w", err)
		}
		rep.StartedAt = time.Unix(0, started).UTC()
		rep.FinishedAt = time.Unix(0, finished).UTC()
		rep.Outcome = model.CycleOutcome(outcome)
		rep.Committed = committed == 1
		rep.PersistErr = persistErr
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
