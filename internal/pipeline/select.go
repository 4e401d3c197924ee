package pipeline

import (
	"context"
	"errors"
	"path/filepath"

	"yoloprep/internal/annotation"
	"yoloprep/internal/archive"
	"yoloprep/internal/journal"
	"yoloprep/internal/logging"
	"yoloprep/internal/objectstore"
	"yoloprep/internal/staging"
	"yoloprep/internal/textutil"
)

// SelectOptions configures a select run. Empty fields fall back to config.
type SelectOptions struct {
	Container string
	Archives  []string
	Output    string
	EmptyTag  string
}

// SelectSummary accumulates the results of a select run.
type SelectSummary struct {
	Run            RunInfo
	Archives       int
	ArchivesFailed int
	Records        int
	Boxed          int
	Empty          int
	Warnings       int
	Selected       int
	Output         string
	// PersistErr is set when the selection list could not be written.
	PersistErr error
}

// Counts maps the summary onto the journal totals. Archives are the units;
// nameless image records count as skipped.
func (s SelectSummary) Counts() journal.Counts {
	return journal.Counts{
		Processed: s.Archives - s.ArchivesFailed,
		Errored:   s.ArchivesFailed,
		Skipped:   s.Warnings,
	}
}

// Select downloads annotation archives, picks the images that carry boxes or
// the empty-image tag, and writes their sorted union to the output list.
// Archive failures are counted and skipped. The list is written even when it
// is empty, but not after an interruption.
func Select(ctx context.Context, env Env, opts SelectOptions) (SelectSummary, error) {
	var summary SelectSummary
	if err := env.check(StageSelect); err != nil {
		return summary, err
	}
	cfg := env.Config
	names := cleanArchiveNames(opts.Archives)
	if len(names) == 0 {
		return summary, Wrap(ErrConfiguration, StageSelect, "inputs", "at least one archive name is required", nil)
	}
	output := opts.Output
	if output == "" {
		output = cfg.SelectionPath()
	}
	output = absPath(output)
	summary.Output = output
	selectOpts := annotation.Options{EmptyTag: opts.EmptyTag}
	if selectOpts.EmptyTag == "" {
		selectOpts.EmptyTag = cfg.Dataset.EmptyTag
	}

	store, err := env.openStore(ctx, StageSelect, opts.Container)
	if err != nil {
		return summary, err
	}

	ctx, r := startRun(ctx, env, StageSelect)
	r.logger.Info("select started",
		logging.Int("archives", len(names)),
		logging.String("store", store.Location()),
		logging.String("output", output))

	ws, err := r.workspace(ctx, cfg)
	if err != nil {
		summary.Run = r.finish(ctx, summary.Counts(), err)
		return summary, err
	}
	defer r.release(ws)

	selected := annotation.NewSet()
	progress := newTracker(env.Progress, r.logger, len(names), "archives")
	var runErr error
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		summary.Archives++
		result, err := selectArchive(ctx, r, env, store, ws, i, name, selectOpts)
		if err != nil {
			if ctx.Err() != nil {
				summary.Archives--
				runErr = ctx.Err()
				break
			}
			summary.ArchivesFailed++
			logArchiveFailure(r, name, err)
			r.unit(ctx, name, archiveOutcome(err), err)
			progress.step()
			continue
		}

		added := selected.Add(result.Images...)
		summary.Records += result.Total
		summary.Boxed += result.Boxed
		summary.Empty += result.Empty
		summary.Warnings += len(result.Warnings)
		for _, w := range result.Warnings {
			logging.WarnWithContext(r.logger, "image record skipped", "record_skipped",
				logging.String(logging.FieldUnit, name),
				logging.Int("record", w.Index),
				logging.String("reason", w.Message),
				logging.String(logging.FieldImpact, "image cannot be selected"),
				logging.String(logging.FieldErrorHint, "fix the record in the annotation tool and re-export"))
		}
		r.logger.Info("archive processed",
			logging.String(logging.FieldUnit, name),
			logging.Int("records", result.Total),
			logging.Int("qualifying", len(result.Images)),
			logging.Int("new", added),
			logging.Int("selected_total", selected.Len()))
		r.unit(ctx, name, outcomeArchiveOK, nil)
		progress.step()
	}
	progress.finish()

	list := selected.Sorted()
	summary.Selected = len(list)
	if runErr != nil {
		r.logger.Info("selection list not written after interruption", logging.String("path", output))
		summary.Run = r.finish(ctx, summary.Counts(), runErr)
		return summary, runErr
	}
	if err := textutil.WriteLinesFile(output, list); err != nil {
		summary.PersistErr = Wrap(ErrPersistence, StageSelect, "write selection", output, err)
		logging.ErrorWithContext(r.logger, "selection list not written", "selection_write_failed",
			logging.String("path", output),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the output directory exists and is writable"))
	} else {
		r.logger.Info("selection list written",
			logging.String("path", output),
			logging.Int("images", len(list)))
	}
	summary.Run = r.finish(ctx, summary.Counts(), summary.PersistErr)
	return summary, summary.PersistErr
}

func selectArchive(ctx context.Context, r *run, env Env, store objectstore.Store, ws *staging.Workspace, index int, name string, opts annotation.Options) (annotation.Result, error) {
	root, err := fetchArchive(ctx, r, env.Config, store, ws, index, name)
	if err != nil {
		return annotation.Result{}, err
	}
	doc, ok, err := archive.FindFirst(root, ".xml")
	if err != nil {
		return annotation.Result{}, archiveFailure(StageSelect, outcomeArchiveInvalid, "find document", name, err)
	}
	if !ok {
		return annotation.Result{}, archiveFailure(StageSelect, outcomeArchiveNoDocument, "find document", name,
			errors.New("archive contains no .xml annotation document"))
	}
	r.logger.Debug("annotation document found",
		logging.String(logging.FieldUnit, name),
		logging.String("document", filepath.Base(doc)))
	result, err := annotation.SelectFile(doc, opts)
	if err != nil {
		return annotation.Result{}, archiveFailure(StageSelect, outcomeArchiveMalformed, "parse document", name, err)
	}
	return result, nil
}
