package main

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"yoloprep/internal/config"
	"yoloprep/internal/pipeline"
)

// storeFlags are shared by every stage that reads from the object store.
type storeFlags struct {
	container  string
	connectStr string
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.container, "container", "", "Object store container or bucket (default store.container)")
	cmd.Flags().StringVar(&f.connectStr, "connect-str", "", "Azure Storage connection string (overrides config and environment)")
}

func (f *storeFlags) apply(cfg *config.Config) {
	if f.connectStr != "" {
		cfg.Store.ConnectionString = f.connectStr
	}
}

// stageResult finishes a stage command: cancelled runs become interrupt
// errors, everything else is returned after the summary was printed.
func stageResult(err error, runID string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return interrupted(err, runID)
	}
	return err
}

func revalidate(cfg *config.Config, stage string) error {
	if err := cfg.Validate(); err != nil {
		return pipeline.Wrap(pipeline.ErrConfiguration, stage, "flags", "", err)
	}
	return nil
}

func newSelectCommand(ctx *commandContext) *cobra.Command {
	var (
		store    storeFlags
		archives []string
		output   string
		emptyTag string
	)

	cmd := &cobra.Command{
		Use:   "select [archive...]",
		Short: "Build the list of images to train on from annotation archives",
		Long: `Download CVAT annotation archives, find the annotation document in each,
and write the sorted union of image names that have at least one box or carry
the empty-image tag.

Archives that fail to download, extract, or parse are counted and skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(cmd, func(env pipeline.Env) error {
				store.apply(env.Config)
				summary, err := pipeline.Select(cmd.Context(), env, pipeline.SelectOptions{
					Container: store.container,
					Archives:  append(args, archives...),
					Output:    output,
					EmptyTag:  emptyTag,
				})
				if pipeline.IsConfiguration(err) {
					return err
				}
				if perr := printSelectSummary(cmd, ctx, summary); perr != nil {
					return perr
				}
				return stageResult(err, summary.Run.ID)
			})
		},
	}

	store.register(cmd)
	cmd.Flags().StringArrayVarP(&archives, "archive", "a", nil, "Annotation archive name (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output list file (default dataset.selection_file)")
	cmd.Flags().StringVar(&emptyTag, "empty-tag", "", "Tag label marking images without objects (default dataset.empty_tag)")
	return cmd
}

func newPlaceCommand(ctx *commandContext) *cobra.Command {
	var (
		store       storeFlags
		input       string
		datasetDir  string
		mappingFile string
		validSplit  float64
		seed        int64
	)

	cmd := &cobra.Command{
		Use:   "place",
		Short: "Download the selected images into train and validation partitions",
		Long: `Read the image list, split it into train and validation partitions with a
seeded shuffle, download each image under its flattened name, and save the
mapping from original paths to flattened names.

Images already present in either partition are not downloaded again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(cmd, func(env pipeline.Env) error {
				cfg := env.Config
				store.apply(cfg)
				if err := applyDatasetFlags(cmd, cfg, datasetDir, mappingFile); err != nil {
					return err
				}
				if cmd.Flags().Changed("valid-split") {
					cfg.Dataset.ValidSplit = validSplit
				}
				if cmd.Flags().Changed("seed") {
					cfg.Dataset.RandomSeed = seed
				}
				if err := revalidate(cfg, pipeline.StagePlace); err != nil {
					return err
				}
				summary, err := pipeline.Place(cmd.Context(), env, pipeline.PlaceOptions{
					Container: store.container,
					Input:     input,
				})
				if pipeline.IsConfiguration(err) {
					return err
				}
				if perr := printPlaceSummary(cmd, ctx, summary); perr != nil {
					return perr
				}
				return stageResult(err, summary.Run.ID)
			})
		},
	}

	store.register(cmd)
	cmd.Flags().StringVarP(&input, "input", "i", "", "Image list produced by select (default dataset.selection_file)")
	cmd.Flags().StringVarP(&datasetDir, "dataset", "d", "", "Dataset directory (default dataset.dir)")
	cmd.Flags().StringVar(&mappingFile, "mapping-file", "", "Mapping file; a bare file name resolves inside the dataset")
	cmd.Flags().Float64Var(&validSplit, "valid-split", 0, "Fraction of images placed in the validation partition")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for the split")
	return cmd
}

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	var (
		store          storeFlags
		archives       []string
		datasetDir     string
		mappingFile    string
		imageExt       string
		baseDir        string
		classNamesFile string
		classes        string
	)

	cmd := &cobra.Command{
		Use:   "organize [archive...]",
		Short: "Place exported YOLO labels next to their images and write the manifest",
		Long: `Download YOLO label archives, copy every label into the partition of its
image using the saved mapping, then write train.txt, val.txt, and
dataset.yaml.

Class names come from the first archive containing the class names file
unless --classes points at a local file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(cmd, func(env pipeline.Env) error {
				cfg := env.Config
				store.apply(cfg)
				if err := applyDatasetFlags(cmd, cfg, datasetDir, mappingFile); err != nil {
					return err
				}
				if cmd.Flags().Changed("image-ext") {
					cfg.Dataset.ImageExt = strings.TrimLeft(strings.TrimSpace(imageExt), ".")
				}
				if cmd.Flags().Changed("base-dir") {
					cfg.Dataset.ArchiveBaseDir = strings.Trim(strings.TrimSpace(baseDir), `/\`)
				}
				if cmd.Flags().Changed("class-names-file") {
					cfg.Dataset.ClassNamesFile = strings.TrimSpace(classNamesFile)
				}
				if err := revalidate(cfg, pipeline.StageOrganize); err != nil {
					return err
				}
				classesPath := classes
				if classesPath != "" {
					expanded, err := config.ExpandPath(classesPath)
					if err != nil {
						return pipeline.Wrap(pipeline.ErrConfiguration, pipeline.StageOrganize, "flags", "--classes", err)
					}
					classesPath = expanded
				}
				summary, err := pipeline.Organize(cmd.Context(), env, pipeline.OrganizeOptions{
					Container: store.container,
					Archives:  append(args, archives...),
					Classes:   classesPath,
				})
				if pipeline.IsConfiguration(err) {
					return err
				}
				if perr := printOrganizeSummary(cmd, ctx, summary); perr != nil {
					return perr
				}
				return stageResult(err, summary.Run.ID)
			})
		},
	}

	store.register(cmd)
	cmd.Flags().StringArrayVarP(&archives, "archive", "a", nil, "Label archive name (repeatable)")
	cmd.Flags().StringVarP(&datasetDir, "dataset", "d", "", "Dataset directory (default dataset.dir)")
	cmd.Flags().StringVar(&mappingFile, "mapping-file", "", "Mapping file; a bare file name resolves inside the dataset")
	cmd.Flags().StringVar(&imageExt, "image-ext", "", "Extension of the original images (default dataset.image_ext)")
	cmd.Flags().StringVar(&baseDir, "base-dir", "", "Directory inside the archive that prefixes label paths; empty disables stripping")
	cmd.Flags().StringVar(&classNamesFile, "class-names-file", "", "Class names file looked up in the archives (default dataset.class_names_file)")
	cmd.Flags().StringVar(&classes, "classes", "", "Local class names file that overrides the archives")
	return cmd
}

func applyDatasetFlags(cmd *cobra.Command, cfg *config.Config, datasetDir, mappingFile string) error {
	if cmd.Flags().Changed("dataset") {
		expanded, err := config.ExpandPath(datasetDir)
		if err != nil {
			return pipeline.Wrap(pipeline.ErrConfiguration, "", "flags", "--dataset", err)
		}
		cfg.Dataset.Dir = expanded
	}
	if cmd.Flags().Changed("mapping-file") {
		mappingFile = strings.TrimSpace(mappingFile)
		if mappingFile == "" {
			return pipeline.Wrap(pipeline.ErrConfiguration, "", "flags", "--mapping-file must not be empty", nil)
		}
		// A bare file name stays inside the dataset, anything else is a path.
		if filepath.Base(mappingFile) == mappingFile && !strings.HasPrefix(mappingFile, "~") {
			cfg.Dataset.MappingFile = mappingFile
			return nil
		}
		expanded, err := config.ExpandPath(mappingFile)
		if err != nil {
			return pipeline.Wrap(pipeline.ErrConfiguration, "", "flags", "--mapping-file", err)
		}
		cfg.Dataset.MappingFile = expanded
	}
	return nil
}
