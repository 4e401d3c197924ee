package associate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"yoloprep/internal/dataset"
	"yoloprep/internal/fileutil"
	"yoloprep/internal/flatten"
	"yoloprep/internal/logging"
)

const (
	// DefaultImageExt is the extension assumed for source images.
	DefaultImageExt = "jpeg"
	// DefaultBaseDir is the archive-internal directory that prefixes label paths.
	DefaultBaseDir = "obj_train_data"
)

// Outcome classifies what happened to one label record.
type Outcome string

const (
	OutcomeTrain       Outcome = "train"
	OutcomeValid       Outcome = "valid"
	OutcomeMappingMiss Outcome = "mapping_miss"
	OutcomeOrphaned    Outcome = "orphaned"
	OutcomeCopyFailed  Outcome = "copy_failed"
	OutcomeInvalid     Outcome = "invalid"
)

// Placed reports whether the label was copied into the dataset.
func (o Outcome) Placed() bool {
	return o == OutcomeTrain || o == OutcomeValid
}

// Lookup resolves an original identifier to its flat image name.
type Lookup interface {
	Lookup(id string) (string, bool)
}

// Options controls key derivation.
type Options struct {
	// ImageExt is appended to the label path to form the lookup key. Leading
	// dots are ignored.
	ImageExt string
	// BaseDir is stripped from the front of archive-relative label paths.
	// Empty disables stripping.
	BaseDir string
}

// DefaultOptions returns the options used by CVAT YOLO exports.
func DefaultOptions() Options {
	return Options{ImageExt: DefaultImageExt, BaseDir: DefaultBaseDir}
}

// Result describes the handling of one label record.
type Result struct {
	Label       string
	Key         string
	FlatName    string
	Destination string
	Outcome     Outcome
	Err         error
}

// Tally accumulates outcomes across labels and archives.
type Tally struct {
	Train       int
	Valid       int
	Skipped     int
	MappingMiss int
	Orphaned    int
	CopyFailed  int
	Invalid     int
}

// Add counts one result.
func (t *Tally) Add(r Result) {
	switch r.Outcome {
	case OutcomeTrain:
		t.Train++
		return
	case OutcomeValid:
		t.Valid++
		return
	case OutcomeMappingMiss:
		t.MappingMiss++
	case OutcomeOrphaned:
		t.Orphaned++
	case OutcomeCopyFailed:
		t.CopyFailed++
	default:
		t.Invalid++
	}
	t.Skipped++
}

// Merge adds another tally into t.
func (t *Tally) Merge(o Tally) {
	t.Train += o.Train
	t.Valid += o.Valid
	t.Skipped += o.Skipped
	t.MappingMiss += o.MappingMiss
	t.Orphaned += o.Orphaned
	t.CopyFailed += o.CopyFailed
	t.Invalid += o.Invalid
}

// Placed returns the number of labels copied into either partition.
func (t Tally) Placed() int {
	return t.Train + t.Valid
}

// Associator joins label records to placed images.
type Associator struct {
	layout dataset.Layout
	lookup Lookup
	imgExt string
	base   string
	logger *slog.Logger
}

// New validates the dataset layout, creates the label directories, and
// returns an Associator.
func New(layout dataset.Layout, lookup Lookup, opts Options, logger *slog.Logger) (*Associator, error) {
	if lookup == nil {
		return nil, errors.New("associate: mapping is required")
	}
	if err := layout.RequireImageDirs(); err != nil {
		return nil, err
	}
	if err := layout.EnsureLabelDirs(); err != nil {
		return nil, err
	}
	imgExt := strings.TrimLeft(strings.TrimSpace(opts.ImageExt), ".")
	if imgExt == "" {
		return nil, errors.New("associate: image extension is required")
	}
	base := strings.Trim(strings.ReplaceAll(strings.TrimSpace(opts.BaseDir), `\`, "/"), "/")
	return &Associator{
		layout: layout,
		lookup: lookup,
		imgExt: imgExt,
		base:   base,
		logger: logging.NewComponentLogger(logger, "associate"),
	}, nil
}

// Key derives the mapping key for a label stored at labelPath inside an
// archive extracted to root.
func (a *Associator) Key(labelPath, root string) (string, error) {
	rel, err := filepath.Rel(root, labelPath)
	if err != nil {
		return "", fmt.Errorf("relative label path: %w", err)
	}
	rel = strings.ReplaceAll(filepath.ToSlash(rel), `\`, "/")
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("label %s is outside %s", labelPath, root)
	}
	if a.base != "" {
		rel = strings.TrimPrefix(rel, a.base+"/")
	}
	dir, file := path.Split(rel)
	return dir + flatten.Base(file) + "." + a.imgExt, nil
}

// Associate handles one label record. It never returns an error; failures
// are reported through the Result outcome.
func (a *Associator) Associate(labelPath, root string) Result {
	result := Result{Label: labelPath}

	key, err := a.Key(labelPath, root)
	if err != nil {
		result.Outcome = OutcomeInvalid
		result.Err = err
		return result
	}
	result.Key = key

	flat, ok := a.lookup.Lookup(key)
	if !ok {
		result.Outcome = OutcomeMappingMiss
		return result
	}
	result.FlatName = flat
	if !dataset.ValidName(flat) {
		result.Outcome = OutcomeInvalid
		result.Err = fmt.Errorf("mapped name %q is not a plain file name", flat)
		return result
	}

	partition, found, err := a.layout.Probe(flat)
	if err != nil {
		result.Outcome = OutcomeCopyFailed
		result.Err = fmt.Errorf("probe %s: %w", flat, err)
		return result
	}
	if !found {
		result.Outcome = OutcomeOrphaned
		return result
	}

	dest := filepath.Join(a.layout.LabelsDir(partition), flatten.LabelName(flat))
	result.Destination = dest
	if err := fileutil.CopyFile(labelPath, dest); err != nil {
		result.Outcome = OutcomeCopyFailed
		result.Err = err
		return result
	}
	if partition == dataset.PartitionTrain {
		result.Outcome = OutcomeTrain
	} else {
		result.Outcome = OutcomeValid
	}
	return result
}

// AssociateAll processes labels in order and returns their tally. observe,
// when non-nil, sees every result. Only context cancellation stops the loop
// early; the tally covers the labels handled before it.
func (a *Associator) AssociateAll(ctx context.Context, labels []string, root string, observe func(Result)) (Tally, error) {
	var tally Tally
	for _, label := range labels {
		if err := ctx.Err(); err != nil {
			return tally, err
		}
		result := a.Associate(label, root)
		tally.Add(result)
		a.logResult(result)
		if observe != nil {
			observe(result)
		}
	}
	a.logger.Info("label association finished",
		logging.Int("train", tally.Train),
		logging.Int("valid", tally.Valid),
		logging.Int("skipped", tally.Skipped),
		logging.Int("mapping_miss", tally.MappingMiss),
		logging.Int("orphaned", tally.Orphaned),
		logging.Int("copy_failed", tally.CopyFailed))
	return tally, nil
}

func (a *Associator) logResult(r Result) {
	switch r.Outcome {
	case OutcomeTrain, OutcomeValid:
		a.logger.Debug("label placed",
			logging.String("key", r.Key),
			logging.String("partition", string(r.Outcome)),
			logging.String("destination", r.Destination))
	case OutcomeMappingMiss:
		a.logger.Debug("label has no mapping entry", logging.String("key", r.Key))
	case OutcomeOrphaned:
		a.logger.Debug("label image not placed in any partition",
			logging.String("key", r.Key),
			logging.String("flat_name", r.FlatName))
	default:
		logging.WarnWithContext(a.logger, "label skipped", "label_skipped",
			logging.String("label", r.Label),
			logging.String("outcome", string(r.Outcome)),
			logging.Error(r.Err),
			logging.String(logging.FieldImpact, "label will be missing from the dataset"))
	}
}
