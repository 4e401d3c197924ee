package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"yoloprep/internal/dataset"
	"yoloprep/internal/flatten"
	"yoloprep/internal/journal"
	"yoloprep/internal/logging"
	"yoloprep/internal/mapping"
	"yoloprep/internal/objectstore"
	"yoloprep/internal/preflight"
	"yoloprep/internal/split"
	"yoloprep/internal/textutil"
)

// Image outcomes recorded in the journal.
const (
	outcomeImageDownloaded = "downloaded"
	outcomeImagePresent    = "already_present"
	outcomeImageNotFound   = "not_found"
	outcomeImageFailed     = "download_failed"
	outcomeImageInvalid    = "invalid_name"
	outcomeImageConflict   = "mapping_conflict"
)

// PlaceOptions configures a place run. Empty fields fall back to config.
type PlaceOptions struct {
	Container string
	// Input is the selection list produced by Select.
	Input string
}

// PlaceSummary accumulates the results of a place run.
type PlaceSummary struct {
	Run            RunInfo
	Requested      int
	Duplicates     int
	PlannedTrain   int
	PlannedValid   int
	Downloaded     int
	AlreadyPresent int
	NotFound       int
	Failed         int
	Bytes          int64
	Mapped         int
	DatasetDir     string
	MappingPath    string
	// PersistErr is set when the mapping could not be saved.
	PersistErr error
}

// Counts maps the summary onto the journal totals.
func (s PlaceSummary) Counts() journal.Counts {
	return journal.Counts{
		Processed: s.Downloaded,
		Errored:   s.NotFound + s.Failed,
		Skipped:   s.AlreadyPresent,
	}
}

type placement struct {
	id        string
	partition dataset.Partition
}

// Place reads the selection list, splits it into train and validation
// partitions, downloads every image under its flattened name, and saves the
// identifier mapping. Images already present in either partition keep their
// partition and are not downloaded again. The mapping is saved even when the
// run is interrupted.
func Place(ctx context.Context, env Env, opts PlaceOptions) (PlaceSummary, error) {
	var summary PlaceSummary
	if err := env.check(StagePlace); err != nil {
		return summary, err
	}
	cfg := env.Config
	layout := dataset.NewLayout(cfg.Dataset.Dir)
	summary.DatasetDir = absPath(layout.Root)
	summary.MappingPath = absPath(cfg.MappingPath())

	input := opts.Input
	if input == "" {
		input = cfg.SelectionPath()
	}
	ids, err := textutil.ReadLinesFile(input)
	if err != nil {
		return summary, Wrap(ErrConfiguration, StagePlace, "read image list", input, err)
	}
	ids, summary.Duplicates = uniqueInOrder(ids)
	summary.Requested = len(ids)
	if len(ids) == 0 {
		return summary, Wrap(ErrConfiguration, StagePlace, "read image list", fmt.Sprintf("%s lists no images", input), nil)
	}

	train, valid, err := split.Assign(ids, cfg.Dataset.ValidSplit, cfg.Dataset.RandomSeed)
	if err != nil {
		return summary, Wrap(ErrConfiguration, StagePlace, "split", "", err)
	}
	summary.PlannedTrain = len(train)
	summary.PlannedValid = len(valid)

	if err := preflight.Failed(preflight.ForPlacement(cfg)); err != nil {
		return summary, Wrap(ErrConfiguration, StagePlace, "preflight", "", err)
	}
	store, err := env.openStore(ctx, StagePlace, opts.Container)
	if err != nil {
		return summary, err
	}

	lock, err := dataset.Acquire(layout)
	if err != nil {
		return summary, Wrap(ErrConfiguration, StagePlace, "lock dataset", layout.Root, err)
	}
	defer lock.Release()
	if err := layout.EnsureImageDirs(); err != nil {
		return summary, Wrap(ErrConfiguration, StagePlace, "create image dirs", layout.Root, err)
	}
	// The mapping describes this run's selection only. Images placed by an
	// earlier run are re-recorded when their partition lookup finds them.
	table := mapping.New()

	ctx, r := startRun(ctx, env, StagePlace)
	if summary.Duplicates > 0 {
		r.logger.Info("duplicate identifiers ignored", logging.Int("count", summary.Duplicates))
	}
	r.logger.Info("place started",
		logging.Int("images", len(ids)),
		logging.Int("train", len(train)),
		logging.Int("valid", len(valid)),
		logging.Float64("valid_split", cfg.Dataset.ValidSplit),
		logging.Int64("seed", cfg.Dataset.RandomSeed),
		logging.String("store", store.Location()),
		logging.String("dataset", layout.Root))

	plan := make([]placement, 0, len(ids))
	for _, id := range train {
		plan = append(plan, placement{id: id, partition: dataset.PartitionTrain})
	}
	for _, id := range valid {
		plan = append(plan, placement{id: id, partition: dataset.PartitionValid})
	}

	progress := newTracker(env.Progress, r.logger, len(plan), "images")
	var runErr error
	for _, item := range plan {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		outcome, n, err := placeImage(ctx, r, env, store, layout, table, item)
		if err != nil && ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}
		switch outcome {
		case outcomeImageDownloaded:
			summary.Downloaded++
			summary.Bytes += n
		case outcomeImagePresent:
			summary.AlreadyPresent++
		case outcomeImageNotFound:
			summary.NotFound++
		default:
			summary.Failed++
		}
		if err != nil {
			logImageFailure(r, item.id, outcome, err)
		}
		r.unit(ctx, item.id, outcome, err)
		progress.step()
	}
	progress.finish()

	summary.Mapped = table.Len()
	if err := table.Save(summary.MappingPath); err != nil {
		summary.PersistErr = Wrap(ErrPersistence, StagePlace, "save mapping", summary.MappingPath, err)
		logging.ErrorWithContext(r.logger, "mapping not saved", "mapping_write_failed",
			logging.String("path", summary.MappingPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "placed images are kept; re-run place to rebuild the mapping"))
	} else {
		r.logger.Info("mapping saved",
			logging.String("path", summary.MappingPath),
			logging.Int("entries", summary.Mapped))
	}
	if summary.NotFound > 0 {
		logging.WarnWithContext(r.logger, "images missing from store", "images_not_found",
			logging.Int("count", summary.NotFound),
			logging.String(logging.FieldImpact, "dataset is smaller than the selection list"),
			logging.String(logging.FieldErrorHint, "check the container name and the paths in the image list"))
	}
	r.logger.Info("placement totals",
		logging.Int("downloaded", summary.Downloaded),
		logging.Int("already_present", summary.AlreadyPresent),
		logging.Int("not_found", summary.NotFound),
		logging.Int("failed", summary.Failed),
		logging.String("transferred", humanize.IBytes(uint64(summary.Bytes))))

	if runErr == nil {
		runErr = summary.PersistErr
	}
	summary.Run = r.finish(ctx, summary.Counts(), runErr)
	return summary, runErr
}

// placeImage handles one identifier and returns its outcome, the number of
// bytes transferred, and the unit failure if any.
func placeImage(ctx context.Context, r *run, env Env, store objectstore.Store, layout dataset.Layout, table *mapping.Store, item placement) (string, int64, error) {
	if !utf8.ValidString(item.id) {
		return outcomeImageInvalid, 0, Wrap(ErrUnit, StagePlace, "flatten", fmt.Sprintf("%q", item.id),
			errors.New("identifier is not valid UTF-8"))
	}
	flat := flatten.Name(item.id)
	if !dataset.ValidName(flat) {
		return outcomeImageInvalid, 0, Wrap(ErrUnit, StagePlace, "flatten", item.id,
			fmt.Errorf("identifier flattens to unusable name %q", flat))
	}
	if err := table.Check(item.id, flat); err != nil {
		return outcomeImageConflict, 0, Wrap(ErrUnit, StagePlace, "map", item.id, err)
	}

	partition, present, err := layout.Probe(flat)
	if err != nil {
		return outcomeImageFailed, 0, Wrap(ErrUnit, StagePlace, "probe", flat, err)
	}
	if present {
		if partition != item.partition {
			r.logger.Debug("image already placed in other partition",
				logging.String(logging.FieldUnit, item.id),
				logging.String("partition", string(partition)))
		}
		if err := table.Record(item.id, flat); err != nil {
			return outcomeImageConflict, 0, Wrap(ErrUnit, StagePlace, "map", item.id, err)
		}
		return outcomeImagePresent, 0, nil
	}

	dst := layout.ImagePath(item.partition, flat)
	dlCtx, cancel := withTimeout(ctx, env.Config)
	n, err := objectstore.Download(dlCtx, store, item.id, dst, nil)
	cancel()
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			return outcomeImageNotFound, 0, Wrap(ErrUnit, StagePlace, "download", item.id, err)
		}
		return outcomeImageFailed, 0, Wrap(ErrUnit, StagePlace, "download", item.id, err)
	}
	if err := table.Record(item.id, flat); err != nil {
		return outcomeImageConflict, n, Wrap(ErrUnit, StagePlace, "map", item.id, err)
	}
	r.logger.Debug("image placed",
		logging.String(logging.FieldUnit, item.id),
		logging.String("name", flat),
		logging.String("partition", string(item.partition)),
		logging.String("size", humanize.IBytes(uint64(n))))
	return outcomeImageDownloaded, n, nil
}

func logImageFailure(r *run, id, outcome string, err error) {
	hint := "re-run place to retry; present images are skipped"
	switch outcome {
	case outcomeImageNotFound:
		hint = "check that the identifier exists in the container"
	case outcomeImageConflict, outcomeImageInvalid:
		hint = "rename the source image so its flattened name is unique"
	}
	logging.WarnWithContext(r.logger, "image not placed", "image_failed",
		logging.String(logging.FieldUnit, id),
		logging.String("outcome", outcome),
		logging.Error(err),
		logging.String(logging.FieldImpact, "image is missing from the dataset"),
		logging.String(logging.FieldErrorHint, hint))
}

// uniqueInOrder drops repeated identifiers, keeping the first occurrence, and
// returns how many were dropped.
func uniqueInOrder(ids []string) ([]string, int) {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, len(ids) - len(out)
}
