package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"yoloprep/internal/config"
	"yoloprep/internal/dataset"
	"yoloprep/internal/fileutil"
	"yoloprep/internal/journal"
	"yoloprep/internal/logging"
	"yoloprep/internal/manifest"
	"yoloprep/internal/mapping"
	"yoloprep/internal/objectstore"
	"yoloprep/internal/pipeline"
	"yoloprep/internal/testsupport"
)

func newEnv(t *testing.T, cfg *config.Config) pipeline.Env {
	t.Helper()
	return pipeline.Env{
		Config:  cfg,
		Logger:  logging.NewNop(),
		Journal: testsupport.MustOpenJournal(t, cfg),
	}
}

func container(cfg *config.Config) string { return cfg.Store.Container }

func unitOutcomes(t *testing.T, env pipeline.Env, runID string) map[string]string {
	t.Helper()
	events, err := env.Journal.Units(context.Background(), runID)
	if err != nil {
		t.Fatalf("Units: %v", err)
	}
	out := make(map[string]string, len(events))
	for _, ev := range events {
		out[ev.Unit] = ev.Outcome
	}
	return out
}

func TestSelectUnionAcrossArchives(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	env := newEnv(t, cfg)
	testsupport.PutZipObject(t, cfg, container(cfg), "ann/batch1.zip", testsupport.ZipEntry{
		Name: "annotations.xml",
		Body: testsupport.CVATDocument(
			testsupport.CVATImage{Name: "a/1.jpeg", Boxes: 1},
			testsupport.CVATImage{Name: "a/2.jpeg", Tags: []string{"brak reklam"}},
			testsupport.CVATImage{Name: "a/3.jpeg"},
			testsupport.CVATImage{Boxes: 1},
		),
	})
	testsupport.PutZipObject(t, cfg, container(cfg), "ann/batch2.zip", testsupport.ZipEntry{
		Name: "task/annotations.xml",
		Body: testsupport.CVATDocument(
			testsupport.CVATImage{Name: "a/1.jpeg", Boxes: 2},
			testsupport.CVATImage{Name: "b/4.jpeg", Boxes: 1},
		),
	})

	summary, err := pipeline.Select(context.Background(), env, pipeline.SelectOptions{
		Archives: []string{"ann/batch1.zip", "ann/missing.zip", " ", "ann/batch2.zip"},
	})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if summary.Archives != 3 || summary.ArchivesFailed != 1 {
		t.Fatalf("archives %d failed %d, want 3 and 1", summary.Archives, summary.ArchivesFailed)
	}
	if summary.Warnings != 1 || summary.Selected != 3 || summary.Records != 6 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	got := testsupport.ReadFile(t, cfg.SelectionPath())
	if want := "a/1.jpeg\na/2.jpeg\nb/4.jpeg\n"; got != want {
		t.Fatalf("selection list = %q, want %q", got, want)
	}

	run, err := env.Journal.GetRun(context.Background(), summary.Run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	want := journal.Counts{Processed: 2, Errored: 1, Skipped: 1}
	if run.Status != journal.StatusCompleted || run.Counts != want {
		t.Fatalf("unexpected journal run %+v", run)
	}
	if outcomes := unitOutcomes(t, env, run.ID); outcomes["ann/missing.zip"] != "not_found" || outcomes["ann/batch2.zip"] != "ok" {
		t.Fatalf("unexpected unit outcomes %v", outcomes)
	}
}

func TestSelectCountsBrokenArchives(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutJournal())
	env := pipeline.Env{Config: cfg, Logger: logging.NewNop()}
	testsupport.PutObject(t, cfg, container(cfg), "not-a-zip.zip", "plain text")
	testsupport.PutZipObject(t, cfg, container(cfg), "no-xml.zip", testsupport.ZipEntry{Name: "readme.txt", Body: "hi"})
	testsupport.PutZipObject(t, cfg, container(cfg), "bad-xml.zip", testsupport.ZipEntry{Name: "a.xml", Body: "<annotations><image name=\"x\">"})

	output := filepath.Join(testsupport.BaseDir(cfg), "out", "list.txt")
	summary, err := pipeline.Select(context.Background(), env, pipeline.SelectOptions{
		Archives: []string{"not-a-zip.zip", "no-xml.zip", "bad-xml.zip"},
		Output:   output,
	})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if summary.ArchivesFailed != 3 || summary.Selected != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if got := testsupport.ReadFile(t, output); got != "" {
		t.Fatalf("expected empty selection list, got %q", got)
	}
}

// countingStore records which keys were streamed.
type countingStore struct {
	objectstore.Store
	opened []string
}

func (c *countingStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	c.opened = append(c.opened, key)
	return c.Store.Open(ctx, key)
}

func TestSelectChecksArchiveExistsBeforeDownload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	env := newEnv(t, cfg)
	testsupport.PutZipObject(t, cfg, container(cfg), "a.zip", testsupport.ZipEntry{Name: "a.xml", Body: "<annotations/>"})
	counting := &countingStore{}
	env.OpenStore = func(ctx context.Context, name string) (objectstore.Store, error) {
		store, err := objectstore.Open(ctx, cfg, name)
		if err != nil {
			return nil, err
		}
		counting.Store = store
		return counting, nil
	}

	summary, err := pipeline.Select(context.Background(), env, pipeline.SelectOptions{
		Archives: []string{"missing.zip", "a.zip"},
		Output:   filepath.Join(testsupport.BaseDir(cfg), "list.txt"),
	})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if summary.ArchivesFailed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(counting.opened) != 1 || counting.opened[0] != "a.zip" {
		t.Fatalf("missing archive should not be streamed, opened %v", counting.opened)
	}
	if outcomes := unitOutcomes(t, env, summary.Run.ID); outcomes["missing.zip"] != "not_found" || outcomes["a.zip"] != "ok" {
		t.Fatalf("unexpected unit outcomes %v", outcomes)
	}
}

func TestSelectRequiresArchives(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := pipeline.Select(context.Background(), newEnv(t, cfg), pipeline.SelectOptions{Archives: []string{"", "  "}})
	if !errors.Is(err, pipeline.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSelectCancelledWritesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutJournal())
	env := pipeline.Env{Config: cfg, Logger: logging.NewNop()}
	testsupport.PutZipObject(t, cfg, container(cfg), "a.zip", testsupport.ZipEntry{Name: "a.xml", Body: testsupport.CVATDocument()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := pipeline.Select(ctx, env, pipeline.SelectOptions{Archives: []string{"a.zip"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if summary.Run.Status != journal.StatusCancelled {
		t.Fatalf("status = %q, want cancelled", summary.Run.Status)
	}
	if _, statErr := os.Stat(cfg.SelectionPath()); !os.IsNotExist(statErr) {
		t.Fatalf("selection list should not be written, stat err %v", statErr)
	}
}

func imageIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("Batch/IMG_%d.jpeg", i)
	}
	return ids
}

func writeSelection(t *testing.T, cfg *config.Config, ids []string) {
	t.Helper()
	testsupport.WriteFile(t, cfg.SelectionPath(), strings.Join(ids, "\n")+"\n")
}

func countImages(t *testing.T, layout dataset.Layout) (train, valid int) {
	t.Helper()
	trainFiles, err := fileutil.ListFiles(layout.ImagesDir(dataset.PartitionTrain))
	if err != nil {
		t.Fatalf("list train: %v", err)
	}
	validFiles, err := fileutil.ListFiles(layout.ImagesDir(dataset.PartitionValid))
	if err != nil {
		t.Fatalf("list valid: %v", err)
	}
	for _, name := range append(trainFiles, validFiles...) {
		if strings.HasSuffix(name, ".part") {
			t.Fatalf("partial download left behind: %s", name)
		}
	}
	return len(trainFiles), len(validFiles)
}

func TestPlaceSplitsDownloadsAndMaps(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSplit(0.1, 42))
	env := newEnv(t, cfg)
	ids := imageIDs(10)
	for _, id := range ids[:9] {
		testsupport.PutObject(t, cfg, container(cfg), id, "jpeg:"+id)
	}
	writeSelection(t, cfg, append(ids, ids[0]))

	summary, err := pipeline.Place(context.Background(), env, pipeline.PlaceOptions{})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if summary.Requested != 10 || summary.Duplicates != 1 {
		t.Fatalf("requested %d duplicates %d", summary.Requested, summary.Duplicates)
	}
	if summary.PlannedTrain != 9 || summary.PlannedValid != 1 {
		t.Fatalf("planned %d/%d, want 9/1", summary.PlannedTrain, summary.PlannedValid)
	}
	if summary.Downloaded != 9 || summary.NotFound != 1 || summary.Failed != 0 || summary.Mapped != 9 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	layout := dataset.NewLayout(cfg.Dataset.Dir)
	train, valid := countImages(t, layout)
	if train+valid != 9 {
		t.Fatalf("placed %d+%d images, want 9", train, valid)
	}

	table, err := mapping.ReadFile(cfg.MappingPath())
	if err != nil {
		t.Fatalf("read mapping: %v", err)
	}
	if table.Len() != 9 {
		t.Fatalf("mapping has %d entries, want 9", table.Len())
	}
	name, ok := table.Lookup("Batch/IMG_0.jpeg")
	if !ok || name != "batch-img_0.jpeg" {
		t.Fatalf("Lookup = %q, %v", name, ok)
	}
	if _, ok := table.Lookup(ids[9]); ok {
		t.Fatal("missing image must not be mapped")
	}
	p, found, err := layout.Probe(name)
	if err != nil || !found {
		t.Fatalf("probe %s: found=%v err=%v", name, found, err)
	}
	if got := testsupport.ReadFile(t, layout.ImagePath(p, name)); got != "jpeg:Batch/IMG_0.jpeg" {
		t.Fatalf("unexpected image body %q", got)
	}

	run, err := env.Journal.GetRun(context.Background(), summary.Run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Counts != (journal.Counts{Processed: 9, Errored: 1}) {
		t.Fatalf("unexpected journal counts %+v", run.Counts)
	}
	if outcomes := unitOutcomes(t, env, run.ID); outcomes[ids[9]] != "not_found" {
		t.Fatalf("missing image outcome = %q", outcomes[ids[9]])
	}
}

func TestPlaceRerunSkipsPresentImages(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSplit(0.5, 7))
	env := newEnv(t, cfg)
	ids := imageIDs(4)
	for _, id := range ids {
		testsupport.PutObject(t, cfg, container(cfg), id, id)
	}
	writeSelection(t, cfg, ids)

	if _, err := pipeline.Place(context.Background(), env, pipeline.PlaceOptions{}); err != nil {
		t.Fatalf("first Place: %v", err)
	}
	layout := dataset.NewLayout(cfg.Dataset.Dir)
	firstTrain, firstValid := countImages(t, layout)

	cfg.Dataset.RandomSeed = 99
	summary, err := pipeline.Place(context.Background(), env, pipeline.PlaceOptions{})
	if err != nil {
		t.Fatalf("second Place: %v", err)
	}
	if summary.Downloaded != 0 || summary.AlreadyPresent != 4 || summary.Mapped != 4 {
		t.Fatalf("unexpected rerun summary %+v", summary)
	}
	train, valid := countImages(t, layout)
	if train != firstTrain || valid != firstValid {
		t.Fatalf("rerun moved images: %d/%d became %d/%d", firstTrain, firstValid, train, valid)
	}
}

func TestPlaceConfigurationErrors(t *testing.T) {
	t.Run("missing list", func(t *testing.T) {
		cfg := testsupport.NewConfig(t)
		_, err := pipeline.Place(context.Background(), newEnv(t, cfg), pipeline.PlaceOptions{})
		if !errors.Is(err, pipeline.ErrConfiguration) {
			t.Fatalf("expected configuration error, got %v", err)
		}
	})
	t.Run("empty list", func(t *testing.T) {
		cfg := testsupport.NewConfig(t)
		testsupport.WriteFile(t, cfg.SelectionPath(), "\n  \n")
		_, err := pipeline.Place(context.Background(), newEnv(t, cfg), pipeline.PlaceOptions{})
		if !errors.Is(err, pipeline.ErrConfiguration) {
			t.Fatalf("expected configuration error, got %v", err)
		}
	})
	t.Run("bad ratio", func(t *testing.T) {
		cfg := testsupport.NewConfig(t)
		writeSelection(t, cfg, imageIDs(3))
		cfg.Dataset.ValidSplit = 1.5
		_, err := pipeline.Place(context.Background(), newEnv(t, cfg), pipeline.PlaceOptions{})
		if !errors.Is(err, pipeline.ErrConfiguration) {
			t.Fatalf("expected configuration error, got %v", err)
		}
	})
	t.Run("dataset locked", func(t *testing.T) {
		cfg := testsupport.NewConfig(t)
		ids := imageIDs(3)
		testsupport.PutObject(t, cfg, container(cfg), ids[0], "x")
		writeSelection(t, cfg, ids)
		lock, err := dataset.Acquire(dataset.NewLayout(cfg.Dataset.Dir))
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		defer lock.Release()
		_, err = pipeline.Place(context.Background(), newEnv(t, cfg), pipeline.PlaceOptions{})
		if !errors.Is(err, dataset.ErrLocked) || !errors.Is(err, pipeline.ErrConfiguration) {
			t.Fatalf("expected locked configuration error, got %v", err)
		}
	})
}

func TestPlaceCancelledStillSavesMapping(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutJournal())
	env := pipeline.Env{Config: cfg, Logger: logging.NewNop()}
	ids := imageIDs(3)
	for _, id := range ids {
		testsupport.PutObject(t, cfg, container(cfg), id, id)
	}
	writeSelection(t, cfg, ids)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := pipeline.Place(ctx, env, pipeline.PlaceOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if summary.Downloaded != 0 || summary.PersistErr != nil {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if _, err := os.Stat(cfg.MappingPath()); err != nil {
		t.Fatalf("mapping should be saved after interruption: %v", err)
	}
}

func TestPlaceStartsFromEmptyMapping(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSplit(0.5, 7))
	env := newEnv(t, cfg)
	ids := imageIDs(2)
	for _, id := range ids {
		testsupport.PutObject(t, cfg, container(cfg), id, id)
	}
	writeSelection(t, cfg, ids)
	testsupport.WriteFile(t, cfg.MappingPath(),
		`{"stale/other.jpeg": "stale-other.jpeg", "A/b.jpeg": "a-b.jpeg", "a/B.jpeg": "a-b.jpeg"}`)

	summary, err := pipeline.Place(context.Background(), env, pipeline.PlaceOptions{})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if summary.Downloaded != 2 || summary.Mapped != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	table, err := mapping.ReadFile(cfg.MappingPath())
	if err != nil {
		t.Fatalf("read mapping: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("mapping has %d entries, want 2: %v", table.Len(), table.Entries())
	}
	for _, id := range []string{"stale/other.jpeg", "A/b.jpeg"} {
		if _, ok := table.Lookup(id); ok {
			t.Fatalf("entry %q from the previous file was carried over", id)
		}
	}
}

func TestPlaceRejectsInvalidUTF8Identifier(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSplit(0, 1))
	env := newEnv(t, cfg)
	ids := imageIDs(2)
	for _, id := range ids {
		testsupport.PutObject(t, cfg, container(cfg), id, id)
	}
	bad := "Batch/\xffB.jpeg"
	writeSelection(t, cfg, append(ids, bad))

	summary, err := pipeline.Place(context.Background(), env, pipeline.PlaceOptions{})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if summary.Downloaded != 2 || summary.Failed != 1 || summary.NotFound != 0 || summary.Mapped != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	table, err := mapping.ReadFile(cfg.MappingPath())
	if err != nil {
		t.Fatalf("read mapping: %v", err)
	}
	if _, ok := table.Lookup(bad); ok {
		t.Fatal("invalid identifier must not be mapped")
	}
	if _, ok := table.Owner("batch-\ufffdb.jpeg"); ok {
		t.Fatal("replacement-character name must not be recorded")
	}
	if outcomes := unitOutcomes(t, env, summary.Run.ID); outcomes[bad] != "invalid_name" {
		t.Fatalf("unexpected unit outcomes %v", outcomes)
	}
}

// preparePlaced places two images under a 50% split so one lands in each
// partition, and returns their identifiers.
func preparePlaced(t *testing.T, cfg *config.Config, env pipeline.Env) []string {
	t.Helper()
	ids := []string{"batch1/img1.jpeg", "batch1/img2.jpeg"}
	for _, id := range ids {
		testsupport.PutObject(t, cfg, container(cfg), id, id)
	}
	writeSelection(t, cfg, ids)
	if _, err := pipeline.Place(context.Background(), env, pipeline.PlaceOptions{}); err != nil {
		t.Fatalf("Place: %v", err)
	}
	return ids
}

func yoloArchive(withClasses bool) []testsupport.ZipEntry {
	entries := []testsupport.ZipEntry{
		{Name: "obj.data", Body: "classes = 2\n"},
		{Name: "train.txt", Body: "data/obj_train_data/batch1/img1.jpeg\n"},
		{Name: "obj_train_data/batch1/img1.txt", Body: "0 0.5 0.5 0.1 0.1\n"},
		{Name: "obj_train_data/batch1/img2.txt", Body: "1 0.2 0.2 0.1 0.1\n"},
		{Name: "obj_train_data/batch1/unmapped.txt", Body: "0 0.1 0.1 0.1 0.1\n"},
	}
	if withClasses {
		entries = append(entries, testsupport.ZipEntry{Name: "obj.names", Body: "ad\nlogo\n\n"})
	}
	return entries
}

func TestOrganizePlacesLabelsAndWritesManifest(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSplit(0.5, 42))
	env := newEnv(t, cfg)
	preparePlaced(t, cfg, env)
	testsupport.PutZipObject(t, cfg, container(cfg), "labels/yolo1.zip", yoloArchive(true)...)

	summary, err := pipeline.Organize(context.Background(), env, pipeline.OrganizeOptions{
		Archives: []string{"labels/yolo1.zip", "labels/missing.zip"},
	})
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	if summary.Labels.Train != 1 || summary.Labels.Valid != 1 || summary.Labels.MappingMiss != 1 {
		t.Fatalf("unexpected label tally %+v", summary.Labels)
	}
	if summary.ArchivesFailed != 1 || summary.ClassSource != "labels/yolo1.zip/obj.names" {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if strings.Join(summary.Classes, ",") != "ad,logo" {
		t.Fatalf("classes = %v", summary.Classes)
	}

	layout := dataset.NewLayout(cfg.Dataset.Dir)
	p, found, err := layout.Probe("batch1-img1.jpeg")
	if err != nil || !found {
		t.Fatalf("probe: found=%v err=%v", found, err)
	}
	label := filepath.Join(layout.LabelsDir(p), "batch1-img1.txt")
	if got := testsupport.ReadFile(t, label); got != "0 0.5 0.5 0.1 0.1\n" {
		t.Fatalf("label body = %q", got)
	}

	if summary.Manifest.TrainCount != 1 || summary.Manifest.ValidCount != 1 {
		t.Fatalf("unexpected manifest %+v", summary.Manifest)
	}
	var desc manifest.Descriptor
	if err := yaml.Unmarshal([]byte(testsupport.ReadFile(t, summary.Manifest.Descriptor)), &desc); err != nil {
		t.Fatalf("parse descriptor: %v", err)
	}
	if desc.NC != 2 || desc.Train != "train.txt" || desc.Val != "val.txt" || len(desc.Names) != 2 {
		t.Fatalf("unexpected descriptor %+v", desc)
	}
	trainList := testsupport.ReadFile(t, summary.Manifest.TrainList)
	if !strings.HasPrefix(trainList, "images/train/batch1-img") || !strings.HasSuffix(trainList, ".jpeg\n") {
		t.Fatalf("unexpected train list %q", trainList)
	}

	outcomes := unitOutcomes(t, env, summary.Run.ID)
	if outcomes["batch1/unmapped.jpeg"] != "mapping_miss" || outcomes["labels/yolo1.zip"] != "ok" {
		t.Fatalf("unexpected unit outcomes %v", outcomes)
	}
}

func TestOrganizeAcceptsSharedMappingNames(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSplit(0.5, 42))
	env := newEnv(t, cfg)
	preparePlaced(t, cfg, env)
	testsupport.WriteFile(t, cfg.MappingPath(), `{
    "BATCH1/img1.jpeg": "batch1-img1.jpeg",
    "batch1/img1.jpeg": "batch1-img1.jpeg",
    "batch1/img2.jpeg": "batch1-img2.jpeg"
}`)
	testsupport.PutZipObject(t, cfg, container(cfg), "labels/yolo1.zip", yoloArchive(true)...)

	summary, err := pipeline.Organize(context.Background(), env, pipeline.OrganizeOptions{
		Archives: []string{"labels/yolo1.zip"},
	})
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	if summary.Labels.Placed() != 2 || summary.Labels.MappingMiss != 1 {
		t.Fatalf("unexpected label tally %+v", summary.Labels)
	}
}

func TestOrganizeWithoutClassNamesKeepsLabels(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSplit(0.5, 42))
	env := newEnv(t, cfg)
	preparePlaced(t, cfg, env)
	testsupport.PutZipObject(t, cfg, container(cfg), "labels/yolo1.zip", yoloArchive(false)...)

	summary, err := pipeline.Organize(context.Background(), env, pipeline.OrganizeOptions{
		Archives: []string{"labels/yolo1.zip"},
	})
	if !errors.Is(err, pipeline.ErrPersistence) || !errors.Is(err, manifest.ErrNoClasses) {
		t.Fatalf("expected persistence error for missing classes, got %v", err)
	}
	if summary.Labels.Placed() != 2 {
		t.Fatalf("labels should still be placed, tally %+v", summary.Labels)
	}
	if _, statErr := os.Stat(filepath.Join(cfg.Dataset.Dir, manifest.DescriptorName)); !os.IsNotExist(statErr) {
		t.Fatalf("descriptor should not exist, stat err %v", statErr)
	}
}

func TestOrganizeClassesOverride(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSplit(0.5, 42))
	env := newEnv(t, cfg)
	preparePlaced(t, cfg, env)
	testsupport.PutZipObject(t, cfg, container(cfg), "labels/yolo1.zip", yoloArchive(true)...)
	classes := filepath.Join(testsupport.BaseDir(cfg), "classes.txt")
	testsupport.WriteFile(t, classes, "banner\n")

	summary, err := pipeline.Organize(context.Background(), env, pipeline.OrganizeOptions{
		Archives: []string{"labels/yolo1.zip"},
		Classes:  classes,
	})
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	if len(summary.Classes) != 1 || summary.Classes[0] != "banner" || summary.ClassSource != classes {
		t.Fatalf("override not applied: %+v", summary)
	}
}

func TestOrganizeRequiresPlacedDataset(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := pipeline.Organize(context.Background(), newEnv(t, cfg), pipeline.OrganizeOptions{
		Archives: []string{"labels/yolo1.zip"},
	})
	if !errors.Is(err, pipeline.ErrConfiguration) || !errors.Is(err, dataset.ErrMissingDirectory) {
		t.Fatalf("expected missing directory configuration error, got %v", err)
	}
}
