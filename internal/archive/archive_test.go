package archive_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"yoloprep/internal/archive"
	"yoloprep/internal/testsupport"
)

func TestExtractAndFind(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "export.zip")
	testsupport.WriteZip(t, zipPath,
		testsupport.ZipEntry{Name: "obj.names", Body: "ad\n\nbanner\n"},
		testsupport.ZipEntry{Name: "train.txt", Body: "images/train/a.jpeg\n"},
		testsupport.ZipEntry{Name: "obj_train_data/d/img1.txt", Body: "0 0.5 0.5 0.1 0.1\n"},
		testsupport.ZipEntry{Name: "obj_train_data/a.TXT", Body: "1 0.5 0.5 0.1 0.1\n"},
		testsupport.ZipEntry{Name: "annotations.XML", Body: "<annotations/>"},
	)

	dest := filepath.Join(dir, "out")
	n, err := archive.Extract(zipPath, dest)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 files, got %d", n)
	}

	doc, ok, err := archive.FindFirst(dest, ".xml")
	if err != nil || !ok {
		t.Fatalf("FindFirst: ok=%v err=%v", ok, err)
	}
	if filepath.Base(doc) != "annotations.XML" {
		t.Fatalf("unexpected document %q", doc)
	}

	labels, err := archive.LabelFiles(dest)
	if err != nil {
		t.Fatalf("LabelFiles: %v", err)
	}
	want := []string{
		filepath.Join(dest, "obj_train_data", "a.TXT"),
		filepath.Join(dest, "obj_train_data", "d", "img1.txt"),
	}
	if len(labels) != len(want) {
		t.Fatalf("labels = %v, want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("labels[%d] = %q, want %q", i, labels[i], want[i])
		}
	}

	namesPath, ok, err := archive.FindNamed(dest, "obj.names")
	if err != nil || !ok {
		t.Fatalf("FindNamed: ok=%v err=%v", ok, err)
	}
	names, err := archive.ReadClassNames(namesPath)
	if err != nil {
		t.Fatalf("ReadClassNames: %v", err)
	}
	if len(names) != 2 || names[0] != "ad" || names[1] != "banner" {
		t.Fatalf("unexpected class names %v", names)
	}
}

func TestFindFirstNoMatch(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "a.txt"), "x")
	_, ok, err := archive.FindFirst(dir, "xml")
	if err != nil {
		t.Fatalf("FindFirst: %v", err)
	}
	if ok {
		t.Fatal("expected no match")
	}
}

func TestFindNamedNested(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "export", "obj.names")
	testsupport.WriteFile(t, nested, "ad\n")
	got, ok, err := archive.FindNamed(dir, "obj.names")
	if err != nil || !ok {
		t.Fatalf("FindNamed: ok=%v err=%v", ok, err)
	}
	if got != nested {
		t.Fatalf("unexpected path %q", got)
	}
}

func TestExtractRejectsNonArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bogus.zip")
	testsupport.WriteFile(t, path, "this is not a zip")
	_, err := archive.Extract(path, filepath.Join(dir, "out"))
	if !errors.Is(err, archive.ErrNotArchive) {
		t.Fatalf("expected ErrNotArchive, got %v", err)
	}
}

func TestExtractMissingArchive(t *testing.T) {
	dir := t.TempDir()
	_, err := archive.Extract(filepath.Join(dir, "missing.zip"), filepath.Join(dir, "out"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestExtractRejectsZipSlip(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	testsupport.WriteZip(t, zipPath, testsupport.ZipEntry{Name: "../escaped.txt", Body: "x"})

	dest := filepath.Join(dir, "out")
	_, err := archive.Extract(zipPath, dest)
	if !errors.Is(err, archive.ErrUnsafePath) {
		t.Fatalf("expected ErrUnsafePath, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "escaped.txt")); !os.IsNotExist(statErr) {
		t.Fatalf("entry escaped destination: %v", statErr)
	}
}
