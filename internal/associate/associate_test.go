package associate_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"yoloprep/internal/associate"
	"yoloprep/internal/dataset"
	"yoloprep/internal/logging"
	"yoloprep/internal/mapping"
)

type fixture struct {
	layout dataset.Layout
	store  *mapping.Store
	root   string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	layout := dataset.NewLayout(filepath.Join(t.TempDir(), "dataset"))
	if err := layout.EnsureImageDirs(); err != nil {
		t.Fatalf("ensure image dirs: %v", err)
	}
	return fixture{layout: layout, store: mapping.New(), root: t.TempDir()}
}

func (f fixture) placeImage(t *testing.T, p dataset.Partition, id, flat string) {
	t.Helper()
	if err := f.store.Record(id, flat); err != nil {
		t.Fatalf("record %s: %v", id, err)
	}
	writeFile(t, f.layout.ImagePath(p, flat), "jpeg")
}

func (f fixture) label(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(f.root, filepath.FromSlash(rel))
	writeFile(t, path, content)
	return path
}

func (f fixture) associator(t *testing.T) *associate.Associator {
	t.Helper()
	a, err := associate.New(f.layout, f.store, associate.DefaultOptions(), logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestKeyDerivation(t *testing.T) {
	f := newFixture(t)
	a := f.associator(t)

	tests := []struct {
		rel  string
		want string
	}{
		{"obj_train_data/d/img1.txt", "d/img1.jpeg"},
		{"obj_train_data/img1.txt", "img1.jpeg"},
		{"other/img1.txt", "other/img1.jpeg"},
		{"obj_train_data/a/b.c.txt", "a/b.c.jpeg"},
	}
	for _, tc := range tests {
		got, err := a.Key(filepath.Join(f.root, filepath.FromSlash(tc.rel)), f.root)
		if err != nil {
			t.Fatalf("Key(%q): %v", tc.rel, err)
		}
		if got != tc.want {
			t.Fatalf("Key(%q) = %q, want %q", tc.rel, got, tc.want)
		}
	}
}

func TestKeyWithoutBaseDirAndDottedExt(t *testing.T) {
	f := newFixture(t)
	a, err := associate.New(f.layout, f.store, associate.Options{ImageExt: ".jpg"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := a.Key(filepath.Join(f.root, "obj_train_data", "x.txt"), f.root)
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if got != "obj_train_data/x.jpg" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestAssociateTrainJoin(t *testing.T) {
	f := newFixture(t)
	f.placeImage(t, dataset.PartitionTrain, "d/img1.jpeg", "d-img1.jpeg")
	label := f.label(t, "obj_train_data/d/img1.txt", "0 0.5 0.5 0.1 0.1\n")

	result := f.associator(t).Associate(label, f.root)
	if result.Outcome != associate.OutcomeTrain {
		t.Fatalf("expected train outcome, got %s (%v)", result.Outcome, result.Err)
	}
	dest := filepath.Join(f.layout.LabelsDir(dataset.PartitionTrain), "d-img1.txt")
	if result.Destination != dest {
		t.Fatalf("unexpected destination %q", result.Destination)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read label: %v", err)
	}
	if string(data) != "0 0.5 0.5 0.1 0.1\n" {
		t.Fatalf("label content mismatch: %q", data)
	}
}

func TestAssociateAllTally(t *testing.T) {
	f := newFixture(t)
	f.placeImage(t, dataset.PartitionTrain, "d/img1.jpeg", "d-img1.jpeg")
	f.placeImage(t, dataset.PartitionValid, "d/img2.jpeg", "d-img2.jpeg")
	if err := f.store.Record("d/img3.jpeg", "d-img3.jpeg"); err != nil {
		t.Fatalf("record: %v", err)
	}

	labels := []string{
		f.label(t, "obj_train_data/d/img1.txt", "0"),
		f.label(t, "obj_train_data/d/img2.txt", "1"),
		f.label(t, "obj_train_data/d/img3.txt", "2"),
		f.label(t, "obj_train_data/d/unknown.txt", "3"),
	}

	var seen []associate.Outcome
	tally, err := f.associator(t).AssociateAll(context.Background(), labels, f.root, func(r associate.Result) {
		seen = append(seen, r.Outcome)
	})
	if err != nil {
		t.Fatalf("AssociateAll: %v", err)
	}
	want := associate.Tally{Train: 1, Valid: 1, Skipped: 2, MappingMiss: 1, Orphaned: 1}
	if tally != want {
		t.Fatalf("tally = %+v, want %+v", tally, want)
	}
	if len(seen) != 4 || seen[0] != associate.OutcomeTrain || seen[1] != associate.OutcomeValid ||
		seen[2] != associate.OutcomeOrphaned || seen[3] != associate.OutcomeMappingMiss {
		t.Fatalf("unexpected outcomes %v", seen)
	}
	if _, err := os.Stat(filepath.Join(f.layout.LabelsDir(dataset.PartitionValid), "d-img2.txt")); err != nil {
		t.Fatalf("expected valid label: %v", err)
	}
}

func TestAssociateMappingMissWritesNothing(t *testing.T) {
	f := newFixture(t)
	label := f.label(t, "obj_train_data/d/img9.txt", "0")

	result := f.associator(t).Associate(label, f.root)
	if result.Outcome != associate.OutcomeMappingMiss {
		t.Fatalf("expected mapping miss, got %s", result.Outcome)
	}
	for _, p := range dataset.Partitions {
		entries, err := os.ReadDir(f.layout.LabelsDir(p))
		if err != nil {
			t.Fatalf("read labels dir: %v", err)
		}
		if len(entries) != 0 {
			t.Fatalf("expected no labels in %s, got %d", p, len(entries))
		}
	}
}

func TestAssociateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.placeImage(t, dataset.PartitionValid, "a.jpeg", "a.jpeg")
	label := f.label(t, "obj_train_data/a.txt", "first")
	a := f.associator(t)

	if r := a.Associate(label, f.root); r.Outcome != associate.OutcomeValid {
		t.Fatalf("first pass: %s", r.Outcome)
	}
	writeFile(t, label, "second")
	if r := a.Associate(label, f.root); r.Outcome != associate.OutcomeValid {
		t.Fatalf("second pass: %s", r.Outcome)
	}
	data, err := os.ReadFile(filepath.Join(f.layout.LabelsDir(dataset.PartitionValid), "a.txt"))
	if err != nil {
		t.Fatalf("read label: %v", err)
	}
	if string(data) != "second" {
		t.Fatalf("expected label overwritten, got %q", data)
	}
}

func TestNewRequiresImageDirs(t *testing.T) {
	layout := dataset.NewLayout(filepath.Join(t.TempDir(), "missing"))
	if _, err := associate.New(layout, mapping.New(), associate.DefaultOptions(), nil); err == nil {
		t.Fatal("expected missing image directories to fail")
	}
}

func TestAssociateAllStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	labels := []string{f.label(t, "obj_train_data/a.txt", "0")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tally, err := f.associator(t).AssociateAll(ctx, labels, f.root, nil)
	if err == nil {
		t.Fatal("expected context error")
	}
	if tally != (associate.Tally{}) {
		t.Fatalf("expected empty tally, got %+v", tally)
	}
}

func TestAssociateAllCountsCopyFailures(t *testing.T) {
	f := newFixture(t)
	f.placeImage(t, dataset.PartitionTrain, "d/img1.jpeg", "d-img1.jpeg")
	f.placeImage(t, dataset.PartitionTrain, "d/img2.jpeg", "d-img2.jpeg")
	a := f.associator(t)

	trainLabels := f.layout.LabelsDir(dataset.PartitionTrain)
	blocked := filepath.Join(trainLabels, "d-img1.txt")
	if err := os.Mkdir(blocked, 0o755); err != nil {
		t.Fatalf("block destination: %v", err)
	}

	labels := []string{
		f.label(t, "obj_train_data/d/img1.txt", "0"),
		f.label(t, "obj_train_data/d/img2.txt", "1"),
	}
	var failed []associate.Result
	tally, err := a.AssociateAll(context.Background(), labels, f.root, func(r associate.Result) {
		if r.Outcome == associate.OutcomeCopyFailed {
			failed = append(failed, r)
		}
	})
	if err != nil {
		t.Fatalf("copy failures must not be returned, got %v", err)
	}
	want := associate.Tally{Train: 1, Skipped: 1, CopyFailed: 1}
	if tally != want {
		t.Fatalf("tally = %+v, want %+v", tally, want)
	}
	if len(failed) != 1 || failed[0].Err == nil || failed[0].Destination != blocked {
		t.Fatalf("unexpected copy failure results %+v", failed)
	}

	entries, err := os.ReadDir(trainLabels)
	if err != nil {
		t.Fatalf("read labels dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if len(names) != 2 || names[0] != "d-img1.txt" || names[1] != "d-img2.txt" {
		t.Fatalf("expected only the blocker and the second label, got %v", names)
	}
}
