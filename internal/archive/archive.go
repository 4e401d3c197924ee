// Package archive unpacks annotation exports and locates the documents inside
// them.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"yoloprep/internal/textutil"
)

var (
	// ErrNotArchive is returned when the file is not a readable zip archive.
	ErrNotArchive = errors.New("not a zip archive")
	// ErrUnsafePath is returned for entries that would land outside the destination.
	ErrUnsafePath = errors.New("archive entry escapes destination")
)

// Manifest list names that share the label extension but are not labels.
var nonLabelNames = map[string]struct{}{
	"train.txt": {},
	"val.txt":   {},
}

// Extract unpacks zipPath into dest and returns the number of files written.
// A missing archive surfaces as fs.ErrNotExist.
func Extract(zipPath, dest string) (int, error) {
	if _, err := os.Stat(zipPath); err != nil {
		return 0, err
	}
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		if errors.Is(err, zip.ErrInsecurePath) {
			if reader != nil {
				reader.Close()
			}
			return 0, fmt.Errorf("%s: %w", filepath.Base(zipPath), ErrUnsafePath)
		}
		if errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrAlgorithm) {
			return 0, fmt.Errorf("%s: %w", filepath.Base(zipPath), ErrNotArchive)
		}
		return 0, fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return 0, fmt.Errorf("create extract dir: %w", err)
	}
	root, err := filepath.Abs(dest)
	if err != nil {
		return 0, fmt.Errorf("resolve extract dir: %w", err)
	}

	written := 0
	for _, file := range reader.File {
		target, err := entryPath(root, file.Name)
		if err != nil {
			return written, err
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return written, fmt.Errorf("create %s: %w", file.Name, err)
			}
			continue
		}
		if !file.Mode().IsRegular() {
			continue
		}
		if err := extractFile(file, target); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func entryPath(root, name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

func extractFile(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(target), err)
	}
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", file.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("extract %s: %w", file.Name, err)
	}
	return dst.Close()
}

// FindFirst returns the first file under root, in lexical walk order, whose
// extension matches ext case-insensitively. ok is false when none matches.
func FindFirst(root, ext string) (string, bool, error) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.ToLower(filepath.Ext(path)) == ext {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return found, found != "", nil
}

// FindNamed returns the file called name directly under root, or failing
// that the first one in walk order anywhere below it.
func FindNamed(root, name string) (string, bool, error) {
	direct := filepath.Join(root, name)
	if info, err := os.Stat(direct); err == nil && info.Mode().IsRegular() {
		return direct, true, nil
	}
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return found, found != "", nil
}

// LabelFiles returns every *.txt file under root except the train.txt and
// val.txt manifest lists, sorted.
func LabelFiles(root string) ([]string, error) {
	var labels []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".txt") {
			return nil
		}
		if _, skip := nonLabelNames[strings.ToLower(d.Name())]; skip {
			return nil
		}
		labels = append(labels, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(labels)
	return labels, nil
}

// ReadClassNames returns the non-blank, trimmed lines of a class names file.
func ReadClassNames(path string) ([]string, error) {
	return textutil.ReadLinesFile(path)
}
