package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status values for a run.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// ErrRunNotFound is returned when no run matches an identifier.
var ErrRunNotFound = errors.New("run not found")

// ErrAmbiguousRun is returned when a short identifier matches several runs.
var ErrAmbiguousRun = errors.New("run id prefix is ambiguous")

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Counts are the totals every stage reports.
type Counts struct {
	Processed int
	Errored   int
	Skipped   int
}

// Run is one stage invocation.
type Run struct {
	ID         string
	Stage      string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	Counts     Counts
	Detail     string
}

// Duration returns how long the run took, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// UnitEvent records the outcome of one unit within a run.
type UnitEvent struct {
	ID        int64
	RunID     string
	Unit      string
	Outcome   string
	Detail    string
	CreatedAt time.Time
}

// StartRun inserts a running row for stage with a fresh UUID.
func (s *Store) StartRun(ctx context.Context, stage string) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		Stage:     stage,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.insertRun(ctx, run); err != nil {
		return Run{}, err
	}
	return run, nil
}

// StartRunWithID inserts a running row using a caller-supplied identifier.
func (s *Store) StartRunWithID(ctx context.Context, id, stage string) (Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Run{}, fmt.Errorf("journal: run id: %w", err)
	}
	run := Run{ID: id, Stage: stage, Status: StatusRunning, StartedAt: time.Now().UTC()}
	if err := s.insertRun(ctx, run); err != nil {
		return Run{}, err
	}
	return run, nil
}

func (s *Store) insertRun(ctx context.Context, run Run) error {
	_, err := s.exec(ctx,
		`INSERT INTO runs (id, stage, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Stage, run.Status, run.StartedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordUnit appends a unit event to a run.
func (s *Store) RecordUnit(ctx context.Context, runID, unit, outcome, detail string) error {
	_, err := s.exec(ctx,
		`INSERT INTO unit_events (run_id, unit, outcome, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		runID, unit, outcome, detail, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert unit event: %w", err)
	}
	return nil
}

// FinishRun stores the final status and counters of a run.
func (s *Store) FinishRun(ctx context.Context, runID, status string, counts Counts, detail string) error {
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, processed = ?, errored = ?, skipped = ?, detail = ? WHERE id = ?`,
		status, time.Now().UTC().Format(timeLayout), counts.Processed, counts.Errored, counts.Skipped, detail, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

const runColumns = `id, stage, status, started_at, finished_at, processed, errored, skipped, detail`

// ListRuns returns up to limit runs, newest first. A non-positive limit
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun finds a run by full identifier or unique prefix.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return Run{}, ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ORDER BY id LIMIT 2`,
		id, stripLikeWildcards(id)+"%")
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		if run.ID == id {
			return run, nil
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	switch len(matches) {
	case 0:
		return Run{}, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	case 1:
		return matches[0], nil
	default:
		return Run{}, fmt.Errorf("%s: %w", id, ErrAmbiguousRun)
	}
}

// Units returns the events of a run in insertion order.
func (s *Store) Units(ctx context.Context, runID string) ([]UnitEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, unit, outcome, detail, created_at FROM unit_events WHERE run_id = ? ORDER BY id`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("list unit events: %w", err)
	}
	defer rows.Close()

	var events []UnitEvent
	for rows.Next() {
		var (
			ev      UnitEvent
			created string
		)
		if err := rows.Scan(&ev.ID, &ev.RunID, &ev.Unit, &ev.Outcome, &ev.Detail, &created); err != nil {
			return nil, fmt.Errorf("scan unit event: %w", err)
		}
		ev.CreatedAt = parseTime(created)
		events = append(events, ev)
	}
	return events, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run      Run
		started  string
		finished sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Stage, &run.Status, &started, &finished,
		&run.Counts.Processed, &run.Counts.Errored, &run.Counts.Skipped, &run.Detail); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = parseTime(started)
	if finished.Valid {
		run.FinishedAt = parseTime(finished.String)
	}
	return run, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func stripLikeWildcards(value string) string {
	r := strings.NewReplacer(`%`, ``, `_`, ``)
	return r.Replace(value)
}
