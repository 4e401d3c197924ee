package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local serves objects from <root>/<container>/<key>.
type Local struct {
	dir string
}

// NewLocal returns a store over root/container. The directory must exist.
func NewLocal(root, container string) (*Local, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("objectstore: local root is required")
	}
	dir := filepath.Join(root, container)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("objectstore: container %s: %w", container, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("objectstore: container %s is not a directory", dir)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.path(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return file, nil
}

func (l *Local) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := l.path(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (l *Local) Location() string {
	return "file://" + filepath.ToSlash(l.dir)
}

// path maps a key onto the container directory. Keys that climb out of the
// container are treated as missing objects.
func (l *Local) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.ReplaceAll(key, `\`, "/")))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return filepath.Join(l.dir, clean), nil
}
