package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"yoloprep/internal/fileutil"
)

// Partition is the train or validation half of the dataset.
type Partition string

const (
	PartitionTrain Partition = "train"
	PartitionValid Partition = "valid"
)

// Partitions lists partitions in probe order.
var Partitions = []Partition{PartitionTrain, PartitionValid}

// ErrMissingDirectory is returned when a required dataset directory is absent.
var ErrMissingDirectory = errors.New("dataset directory missing")

const (
	imagesDir = "images"
	labelsDir = "labels"
	// LockFileName is created in the dataset root while a stage mutates it.
	LockFileName = ".yoloprep.lock"
)

// Layout resolves paths inside a dataset root.
type Layout struct {
	Root string
}

// NewLayout returns a layout for root after cleaning the path.
func NewLayout(root string) Layout {
	return Layout{Root: filepath.Clean(strings.TrimSpace(root))}
}

// ImagesDir returns images/<partition>.
func (l Layout) ImagesDir(p Partition) string {
	return filepath.Join(l.Root, imagesDir, string(p))
}

// LabelsDir returns labels/<partition>.
func (l Layout) LabelsDir(p Partition) string {
	return filepath.Join(l.Root, labelsDir, string(p))
}

// ImagePath returns the path a flat image name occupies in a partition.
func (l Layout) ImagePath(p Partition, name string) string {
	return filepath.Join(l.ImagesDir(p), name)
}

// ManifestEntry returns the dataset-relative, forward-slash path of an image.
func ManifestEntry(p Partition, name string) string {
	return imagesDir + "/" + string(p) + "/" + name
}

// EnsureImageDirs creates images/train and images/valid.
func (l Layout) EnsureImageDirs() error {
	for _, p := range Partitions {
		dir := l.ImagesDir(p)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// EnsureLabelDirs creates labels/train and labels/valid.
func (l Layout) EnsureLabelDirs() error {
	for _, p := range Partitions {
		dir := l.LabelsDir(p)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// RequireImageDirs fails when the root or either images directory is missing.
func (l Layout) RequireImageDirs() error {
	if !fileutil.IsDir(l.Root) {
		return fmt.Errorf("%w: %s", ErrMissingDirectory, l.Root)
	}
	for _, p := range Partitions {
		dir := l.ImagesDir(p)
		if !fileutil.IsDir(dir) {
			return fmt.Errorf("%w: %s", ErrMissingDirectory, dir)
		}
	}
	return nil
}

// Probe reports which partition holds the flat image name, checking train
// first. ok is false when neither does.
func (l Layout) Probe(name string) (Partition, bool, error) {
	for _, p := range Partitions {
		present, err := fileutil.IsFile(l.ImagePath(p, name))
		if err != nil {
			return "", false, err
		}
		if present {
			return p, true, nil
		}
	}
	return "", false, nil
}

// ValidName reports whether name can be used as a single path element.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
