// Package manifest writes the YOLO training manifest: train.txt and val.txt
// list the placed images, and dataset.yaml points the trainer at them.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"yoloprep/internal/dataset"
	"yoloprep/internal/fileutil"
	"yoloprep/internal/textutil"
)

const (
	TrainListName  = "train.txt"
	ValidListName  = "val.txt"
	DescriptorName = "dataset.yaml"

	// partialSuffix marks an interrupted download.
	partialSuffix = ".part"
)

// ErrNoClasses is returned when Build is called without class names.
var ErrNoClasses = errors.New("class names are required")

// Descriptor is the dataset.yaml document. Field order is the key order.
type Descriptor struct {
	Path  string   `yaml:"path"`
	Train string   `yaml:"train"`
	Val   string   `yaml:"val"`
	NC    int      `yaml:"nc"`
	Names []string `yaml:"names,flow"`
}

// Result lists the written artifacts.
type Result struct {
	TrainList  string
	ValidList  string
	Descriptor string
	TrainCount int
	ValidCount int
	Classes    int
}

// Build enumerates images/train and images/valid under datasetDir and writes
// the manifest files. Nothing is written when classNames is empty or either
// image directory is missing.
func Build(datasetDir string, classNames []string) (Result, error) {
	classes := cleanClassNames(classNames)
	if len(classes) == 0 {
		return Result{}, ErrNoClasses
	}

	layout := dataset.NewLayout(datasetDir)
	if err := layout.RequireImageDirs(); err != nil {
		return Result{}, err
	}
	root, err := filepath.Abs(layout.Root)
	if err != nil {
		return Result{}, fmt.Errorf("resolve dataset path: %w", err)
	}

	train, err := entries(layout, dataset.PartitionTrain)
	if err != nil {
		return Result{}, err
	}
	valid, err := entries(layout, dataset.PartitionValid)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		TrainList:  filepath.Join(root, TrainListName),
		ValidList:  filepath.Join(root, ValidListName),
		Descriptor: filepath.Join(root, DescriptorName),
		TrainCount: len(train),
		ValidCount: len(valid),
		Classes:    len(classes),
	}

	if err := textutil.WriteLinesFile(result.TrainList, train); err != nil {
		return Result{}, fmt.Errorf("write %s: %w", TrainListName, err)
	}
	if err := textutil.WriteLinesFile(result.ValidList, valid); err != nil {
		return Result{}, fmt.Errorf("write %s: %w", ValidListName, err)
	}

	doc, err := Encode(Descriptor{
		Path:  filepath.ToSlash(root),
		Train: TrainListName,
		Val:   ValidListName,
		NC:    len(classes),
		Names: classes,
	})
	if err != nil {
		return Result{}, err
	}
	if err := textutil.WriteFileAtomic(result.Descriptor, doc, 0o644); err != nil {
		return Result{}, fmt.Errorf("write %s: %w", DescriptorName, err)
	}
	return result, nil
}

// Encode renders the descriptor as YAML with a two-space indent.
func Encode(d Descriptor) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("encode %s: %w", DescriptorName, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", DescriptorName, err)
	}
	return buf.Bytes(), nil
}

// entries returns sorted dataset-relative paths of regular files in a
// partition's image directory.
func entries(layout dataset.Layout, p dataset.Partition) ([]string, error) {
	files, err := fileutil.ListFiles(layout.ImagesDir(p))
	if err != nil {
		return nil, fmt.Errorf("list %s images: %w", p, err)
	}
	out := make([]string, 0, len(files))
	for _, name := range files {
		if strings.HasSuffix(name, partialSuffix) {
			continue
		}
		out = append(out, dataset.ManifestEntry(p, name))
	}
	return out, nil
}

func cleanClassNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
