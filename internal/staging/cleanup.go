package staging

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"yoloprep/internal/logging"
)

// CleanStaleResult contains the outcome of a stale directory cleanup operation.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// DefaultStaleAge is how old an abandoned workspace must be before a new
// run removes it.
const DefaultStaleAge = 24 * time.Hour

// CleanStale removes workspaces under workDir older than maxAge. Workspaces of
// runs killed before their deferred cleanup ran are the usual target.
func CleanStale(ctx context.Context, workDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return result
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: workDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() {
			continue
		}

		dirPath := filepath.Join(workDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.RemoveAll(dirPath); err != nil {
				result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
				logging.WarnWithContext(logger, "failed to remove stale workspace", "workspace_cleanup_failed",
					logging.String("path", dirPath),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check paths.work_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			} else {
				result.Removed = append(result.Removed, dirPath)
				if logger != nil {
					logger.Info("removed stale workspace",
						logging.String("path", dirPath),
						logging.Duration("age", time.Since(info.ModTime()).Round(time.Second)),
						logging.String(logging.FieldEventType, "workspace_cleanup"),
					)
				}
			}
		}
	}

	return result
}

// ListDirectories returns the workspaces currently under workDir.
func ListDirectories(workDir string) ([]DirInfo, error) {
	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		dirPath := filepath.Join(workDir, entry.Name())
		size, _ := dirSize(dirPath)

		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
		})
	}

	return dirs, nil
}

// DirInfo contains metadata about a workspace.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// dirSize calculates the total size of a directory recursively.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, infoErr := d.Info(); infoErr == nil {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
