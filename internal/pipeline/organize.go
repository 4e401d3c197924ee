package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"yoloprep/internal/archive"
	"yoloprep/internal/associate"
	"yoloprep/internal/dataset"
	"yoloprep/internal/journal"
	"yoloprep/internal/logging"
	"yoloprep/internal/manifest"
	"yoloprep/internal/mapping"
	"yoloprep/internal/objectstore"
	"yoloprep/internal/staging"
)

// OrganizeOptions configures an organize run. Empty fields fall back to config.
type OrganizeOptions struct {
	Container string
	Archives  []string
	// Classes is a local class-names file that replaces the one found in the
	// archives.
	Classes string
}

// OrganizeSummary accumulates the results of an organize run.
type OrganizeSummary struct {
	Run            RunInfo
	Archives       int
	ArchivesFailed int
	Labels         associate.Tally
	Classes        []string
	ClassSource    string
	DatasetDir     string
	Manifest       manifest.Result
	// PersistErr is set when the manifest files could not be written.
	PersistErr error
}

// Counts maps the summary onto the journal totals. Labels are the units;
// failed archives count as errors too.
func (s OrganizeSummary) Counts() journal.Counts {
	return journal.Counts{
		Processed: s.Labels.Placed(),
		Errored:   s.ArchivesFailed + s.Labels.CopyFailed + s.Labels.Invalid,
		Skipped:   s.Labels.MappingMiss + s.Labels.Orphaned,
	}
}

// Organize downloads label archives, copies each label next to its placed
// image under labels/<partition>, and writes the manifest lists and dataset
// descriptor. Labels without a mapping entry or a placed image are skipped.
func Organize(ctx context.Context, env Env, opts OrganizeOptions) (OrganizeSummary, error) {
	var summary OrganizeSummary
	if err := env.check(StageOrganize); err != nil {
		return summary, err
	}
	cfg := env.Config
	names := cleanArchiveNames(opts.Archives)
	if len(names) == 0 {
		return summary, Wrap(ErrConfiguration, StageOrganize, "inputs", "at least one archive name is required", nil)
	}
	layout := dataset.NewLayout(cfg.Dataset.Dir)
	summary.DatasetDir = absPath(layout.Root)
	if err := layout.RequireImageDirs(); err != nil {
		return summary, Wrap(ErrConfiguration, StageOrganize, "dataset", "run place first", err)
	}

	mappingPath := cfg.MappingPath()
	table, err := mapping.ReadFile(mappingPath)
	if err != nil {
		return summary, Wrap(ErrConfiguration, StageOrganize, "load mapping", mappingPath, err)
	}
	if table.Len() == 0 {
		return summary, Wrap(ErrConfiguration, StageOrganize, "load mapping", fmt.Sprintf("%s has no entries", mappingPath), nil)
	}

	if opts.Classes != "" {
		classes, err := archive.ReadClassNames(opts.Classes)
		if err != nil {
			return summary, Wrap(ErrConfiguration, StageOrganize, "class names", opts.Classes, err)
		}
		if len(classes) == 0 {
			return summary, Wrap(ErrConfiguration, StageOrganize, "class names", fmt.Sprintf("%s is empty", opts.Classes), nil)
		}
		summary.Classes = classes
		summary.ClassSource = absPath(opts.Classes)
	}

	store, err := env.openStore(ctx, StageOrganize, opts.Container)
	if err != nil {
		return summary, err
	}
	lock, err := dataset.Acquire(layout)
	if err != nil {
		return summary, Wrap(ErrConfiguration, StageOrganize, "lock dataset", layout.Root, err)
	}
	defer lock.Release()

	ctx, r := startRun(ctx, env, StageOrganize)
	r.logger.Info("organize started",
		logging.Int("archives", len(names)),
		logging.Int("mapping_entries", table.Len()),
		logging.String("store", store.Location()),
		logging.String("dataset", layout.Root))
	if shared := table.Shared(); len(shared) > 0 {
		logging.WarnWithContext(r.logger, "mapping reuses flat names", "mapping_shared_names",
			logging.Int("count", len(shared)),
			logging.Any("names", shared),
			logging.String(logging.FieldImpact, "labels for these identifiers land on the same image"),
			logging.String(logging.FieldErrorHint, "re-run place to rebuild the mapping"))
	}

	assoc, err := associate.New(layout, table, associate.Options{
		ImageExt: cfg.Dataset.ImageExt,
		BaseDir:  cfg.Dataset.ArchiveBaseDir,
	}, r.logger)
	if err != nil {
		err = Wrap(ErrConfiguration, StageOrganize, "associate", layout.Root, err)
		summary.Run = r.finish(ctx, summary.Counts(), err)
		return summary, err
	}

	ws, err := r.workspace(ctx, cfg)
	if err != nil {
		summary.Run = r.finish(ctx, summary.Counts(), err)
		return summary, err
	}
	defer r.release(ws)

	progress := newTracker(env.Progress, r.logger, len(names), "archives")
	var runErr error
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		summary.Archives++
		tally, err := organizeArchive(ctx, r, env, store, ws, assoc, i, name, &summary)
		summary.Labels.Merge(tally)
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
		r.unit(ctx, name, outcomeArchiveOK, nil)
		progress.step()
	}
	progress.finish()

	r.logger.Info("label totals",
		logging.Int("train", summary.Labels.Train),
		logging.Int("valid", summary.Labels.Valid),
		logging.Int("mapping_miss", summary.Labels.MappingMiss),
		logging.Int("orphaned", summary.Labels.Orphaned),
		logging.Int("copy_failed", summary.Labels.CopyFailed),
		logging.Int("invalid", summary.Labels.Invalid))

	if runErr != nil {
		summary.Run = r.finish(ctx, summary.Counts(), runErr)
		return summary, runErr
	}

	result, err := manifest.Build(layout.Root, summary.Classes)
	if err != nil {
		hint := "check that the dataset directory is writable"
		if errors.Is(err, manifest.ErrNoClasses) {
			hint = fmt.Sprintf("add %s to the archives or pass --classes", cfg.Dataset.ClassNamesFile)
		}
		summary.PersistErr = Wrap(ErrPersistence, StageOrganize, "manifest", layout.Root, err)
		logging.ErrorWithContext(r.logger, "manifest not written", "manifest_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hint))
	} else {
		summary.Manifest = result
		r.logger.Info("manifest written",
			logging.String("descriptor", result.Descriptor),
			logging.Int("train", result.TrainCount),
			logging.Int("valid", result.ValidCount),
			logging.Int("classes", result.Classes))
	}
	summary.Run = r.finish(ctx, summary.Counts(), summary.PersistErr)
	return summary, summary.PersistErr
}

func organizeArchive(ctx context.Context, r *run, env Env, store objectstore.Store, ws *staging.Workspace, assoc *associate.Associator, index int, name string, summary *OrganizeSummary) (associate.Tally, error) {
	cfg := env.Config
	root, err := fetchArchive(ctx, r, cfg, store, ws, index, name)
	if err != nil {
		return associate.Tally{}, err
	}

	if len(summary.Classes) == 0 {
		loadArchiveClasses(r, root, name, cfg.Dataset.ClassNamesFile, summary)
	}

	labels, err := archive.LabelFiles(root)
	if err != nil {
		return associate.Tally{}, archiveFailure(StageOrganize, outcomeArchiveInvalid, "list labels", name, err)
	}
	if len(labels) == 0 {
		logging.WarnWithContext(r.logger, "archive has no label files", "archive_empty",
			logging.String(logging.FieldUnit, name),
			logging.String(logging.FieldImpact, "no labels added from this archive"),
			logging.String(logging.FieldErrorHint, "export the task in YOLO format"))
		return associate.Tally{}, nil
	}
	r.logger.Info("organizing labels",
		logging.String(logging.FieldUnit, name),
		logging.Int("labels", len(labels)))

	return assoc.AssociateAll(ctx, labels, root, func(res associate.Result) {
		if res.Outcome.Placed() {
			return
		}
		unit := res.Key
		if unit == "" {
			if rel, err := filepath.Rel(root, res.Label); err == nil {
				unit = name + "/" + filepath.ToSlash(rel)
			} else {
				unit = res.Label
			}
		}
		r.unit(ctx, unit, string(res.Outcome), res.Err)
	})
}

// loadArchiveClasses reads class names from the first archive that carries
// the class-names file. A missing or empty file leaves the summary untouched.
func loadArchiveClasses(r *run, root, archiveName, fileName string, summary *OrganizeSummary) {
	path, ok, err := archive.FindNamed(root, fileName)
	if err != nil || !ok {
		r.logger.Debug("class names file not in archive",
			logging.String(logging.FieldUnit, archiveName),
			logging.String("file", fileName))
		return
	}
	classes, err := archive.ReadClassNames(path)
	if err != nil || len(classes) == 0 {
		logging.WarnWithContext(r.logger, "class names file unreadable", "class_names_invalid",
			logging.String(logging.FieldUnit, archiveName),
			logging.String("file", fileName),
			logging.Any("error", err),
			logging.String(logging.FieldImpact, "class names will be taken from a later archive"),
			logging.String(logging.FieldErrorHint, "check the archive's class names file"))
		return
	}
	summary.Classes = classes
	summary.ClassSource = archiveName + "/" + fileName
	r.logger.Info("class names loaded",
		logging.String("source", summary.ClassSource),
		logging.Int("classes", len(classes)))
}
