package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dispatch-sim/dispatch-sim/sim"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so created_at sorts correctly as TEXT.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	log *logrus.Entry
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}

	return &SQLiteStore{
		db:  db,
		log: logrus.WithField("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.log.Debug("migrate")
	return migrate(ctx, s.db)
}

// SaveRun inserts run, filling in a missing ID or creation time.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	if run.Schedule == nil {
		return errors.New("save run: schedule is required")
	}
	if run.ID == "" {
		run.ID = "run_" + uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	s.log.WithField("id", run.ID).Debug("insert run")

	scheduleJSON, err := json.Marshal(run.Schedule)
	if err != nil {
		return fmt.Errorf("marshal schedule: %w", err)
	}
	metricsJSON, err := json.Marshal(run.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, policy, makespan, jobs, schedule, metrics, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Policy, run.Makespan, run.Jobs,
		string(scheduleJSON), string(metricsJSON),
		run.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun returns the run with id, or ErrNotFound.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.log.WithField("id", id).Debug("select run")
	row := s.db.QueryRowContext(ctx,
		`SELECT id, policy, makespan, jobs, schedule, metrics, created_at
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	s.log.WithField("limit", limit).Debug("list runs")

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, policy, makespan, jobs, schedule, metrics, created_at
		 FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var run Run
	var scheduleJSON, metricsJSON, createdAt string
	if err := sc.Scan(&run.ID, &run.Policy, &run.Makespan, &run.Jobs,
		&scheduleJSON, &metricsJSON, &createdAt); err != nil {
		return nil, err
	}
	run.Schedule = &sim.Schedule{}
	if err := json.Unmarshal([]byte(scheduleJSON), run.Schedule); err != nil {
		return nil, fmt.Errorf("unmarshal schedule: %w", err)
	}
	if err := json.Unmarshal([]byte(metricsJSON), &run.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	var err error
	if run.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &run, nil
}
