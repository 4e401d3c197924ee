package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"yoloprep/internal/config"
	"yoloprep/internal/journal"
	"yoloprep/internal/logging"
	"yoloprep/internal/objectstore"
	"yoloprep/internal/staging"
)

// Stage names as recorded in logs and the journal.
const (
	StageSelect   = "select"
	StagePlace    = "place"
	StageOrganize = "organize"
)

// Env carries the collaborators shared by every stage.
type Env struct {
	Config *config.Config
	Logger *slog.Logger
	// Journal records run history. Nil disables it.
	Journal *journal.Store
	// Progress receives progress bars. Nil falls back to sampled log lines.
	Progress io.Writer
	// OpenStore replaces objectstore.Open when set.
	OpenStore func(ctx context.Context, container string) (objectstore.Store, error)
}

func (e Env) check(stage string) error {
	if e.Config == nil {
		return Wrap(ErrConfiguration, stage, "init", "config is required", nil)
	}
	return nil
}

func (e Env) openStore(ctx context.Context, stage, container string) (objectstore.Store, error) {
	if e.OpenStore != nil {
		store, err := e.OpenStore(ctx, container)
		if err != nil {
			return nil, Wrap(ErrConfiguration, stage, "open store", container, err)
		}
		return store, nil
	}
	if err := e.Config.ValidateStoreCredentials(); err != nil {
		return nil, Wrap(ErrConfiguration, stage, "open store", "credentials", err)
	}
	store, err := objectstore.Open(ctx, e.Config, container)
	if err != nil {
		return nil, Wrap(ErrConfiguration, stage, "open store", container, err)
	}
	return store, nil
}

// RunInfo identifies one stage invocation in a summary.
type RunInfo struct {
	ID       string
	Stage    string
	Status   string
	Started  time.Time
	Duration time.Duration
}

// run tracks journal bookkeeping for one stage invocation. Journal failures
// are logged once and then ignored.
type run struct {
	info    RunInfo
	journal *journal.Store
	logger  *slog.Logger
}

func startRun(ctx context.Context, env Env, stage string) (context.Context, *run) {
	r := &run{
		info:    RunInfo{Stage: stage, Status: journal.StatusRunning, Started: time.Now()},
		journal: env.Journal,
	}
	base := logging.NewComponentLogger(env.Logger, stage)
	if r.journal != nil {
		row, err := r.journal.StartRun(ctx, stage)
		if err != nil {
			logging.WarnWithContext(base, "run journal unavailable", "journal_unavailable",
				logging.Error(err),
				logging.String(logging.FieldImpact, "this run will not appear in history"),
				logging.String(logging.FieldErrorHint, "run yoloprep doctor to check the state directory"))
			r.journal = nil
		} else {
			r.info.ID = row.ID
		}
	}
	if r.info.ID == "" {
		r.info.ID = uuid.NewString()
	}
	ctx = logging.WithStage(logging.WithRunID(ctx, r.info.ID), stage)
	r.logger = logging.WithContext(ctx, base)
	return ctx, r
}

func (r *run) ID() string { return r.info.ID }

// unit records the outcome of one unit in the journal.
func (r *run) unit(ctx context.Context, unit, outcome string, err error) {
	if r.journal == nil {
		return
	}
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	if jerr := r.journal.RecordUnit(context.WithoutCancel(ctx), r.info.ID, unit, outcome, detail); jerr != nil {
		r.dropJournal(jerr)
	}
}

// finish closes the run with a status derived from runErr.
func (r *run) finish(ctx context.Context, counts journal.Counts, runErr error) RunInfo {
	r.info.Duration = time.Since(r.info.Started)
	r.info.Status = statusFor(runErr)
	detail := ""
	if runErr != nil {
		detail = runErr.Error()
	}
	if r.journal != nil {
		if err := r.journal.FinishRun(context.WithoutCancel(ctx), r.info.ID, r.info.Status, counts, detail); err != nil {
			r.dropJournal(err)
		}
	}
	r.logger.Info("stage finished",
		logging.String("status", r.info.Status),
		logging.Int("processed", counts.Processed),
		logging.Int("errored", counts.Errored),
		logging.Int("skipped", counts.Skipped),
		logging.Duration("duration", r.info.Duration.Round(time.Millisecond)))
	return r.info
}

func (r *run) dropJournal(err error) {
	logging.WarnWithContext(r.logger, "run journal write failed", "journal_write_failed",
		logging.Error(err),
		logging.String(logging.FieldImpact, "history for this run is incomplete"),
		logging.String(logging.FieldErrorHint, "check free space and permissions of the state directory"))
	r.journal = nil
}

func statusFor(err error) string {
	switch {
	case err == nil:
		return journal.StatusCompleted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return journal.StatusCancelled
	default:
		return journal.StatusFailed
	}
}

// workspace clears stale staging directories and acquires a fresh one.
func (r *run) workspace(ctx context.Context, cfg *config.Config) (*staging.Workspace, error) {
	cleaned := staging.CleanStale(ctx, cfg.Paths.WorkDir, staging.DefaultStaleAge, r.logger)
	if n := len(cleaned.Removed); n > 0 {
		r.logger.Info("removed stale workspaces", logging.Int("count", n))
	}
	ws, err := staging.Acquire(cfg.Paths.WorkDir, r.info.Stage, r.info.ID)
	if err != nil {
		return nil, Wrap(ErrConfiguration, r.info.Stage, "workspace", cfg.Paths.WorkDir, err)
	}
	r.logger.Debug("workspace acquired", logging.String("path", ws.Dir()))
	return ws, nil
}

func (r *run) release(ws *staging.Workspace) {
	if ws == nil {
		return
	}
	if err := ws.Close(); err != nil {
		logging.WarnWithContext(r.logger, "workspace cleanup failed", "workspace_cleanup_failed",
			logging.Error(err),
			logging.String("path", ws.Dir()),
			logging.String(logging.FieldImpact, "staging files remain on disk"),
			logging.String(logging.FieldErrorHint, fmt.Sprintf("remove %s manually", ws.Dir())))
	}
}

// withTimeout bounds one transfer by the configured store timeout.
func withTimeout(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if d := objectstore.Timeout(cfg); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
