package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"yoloprep/internal/textutil"
)

// Workspace is a scratch directory owned by one stage run. Close removes it
// and everything below it.
type Workspace struct {
	dir string
}

// Acquire creates a fresh workspace under workDir named after the stage and
// run so leftovers from a killed process are easy to attribute.
func Acquire(workDir, stage, runID string) (*Workspace, error) {
	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return nil, errors.New("staging: work directory is required")
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("staging: create work directory: %w", err)
	}
	prefix := textutil.SanitizeToken(stage)
	if id := textutil.SanitizeToken(runID); id != "unknown" {
		if len(id) > 8 {
			id = id[:8]
		}
		prefix += "-" + id
	}
	dir, err := os.MkdirTemp(workDir, prefix+"-")
	if err != nil {
		return nil, fmt.Errorf("staging: create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace root.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path joins elem onto the workspace root.
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.dir}, elem...)...)
}

// ArchivePath is where a downloaded archive is stored.
func (w *Workspace) ArchivePath(name string) string {
	return w.Path("archives", filepath.Base(filepath.FromSlash(name)))
}

// ExtractDir returns a per-archive extraction directory. index keeps two
// archives with the same sanitized name apart.
func (w *Workspace) ExtractDir(index int, name string) string {
	return w.Path("extract", fmt.Sprintf("%03d-%s", index, textutil.SanitizeToken(name)))
}

// Close removes the workspace. It is safe to call more than once.
func (w *Workspace) Close() error {
	if w == nil || w.dir == "" {
		return nil
	}
	dir := w.dir
	w.dir = ""
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("staging: remove workspace: %w", err)
	}
	return nil
}
