package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"yoloprep/internal/config"
	"yoloprep/internal/journal"
)

// MinPlacementFreeBytes is the free space placement requires on the dataset volume.
const MinPlacementFreeBytes uint64 = 256 << 20

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCreatable passes when path is an accessible directory or can be
// created under its nearest existing ancestor.
func CheckCreatable(name, path string) Result {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return CheckDirectoryAccess(name, path)
	}
	parent, err := nearestExisting(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, parent, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckFreeSpace verifies the volume holding path has at least minBytes available.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	available, err := FreeBytes(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	detail := fmt.Sprintf("%s free on %s", humanize.IBytes(available), path)
	if available < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (need at least %s)", detail, humanize.IBytes(minBytes))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// FreeBytes reports the space available to unprivileged users on the volume
// holding path or its nearest existing ancestor.
func FreeBytes(path string) (uint64, error) {
	existing, err := nearestExisting(path)
	if err != nil {
		return 0, err
	}
	var st unix.Statfs_t
	if err := unix.Statfs(existing, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", existing, err)
	}
	return st.Bavail * uint64(st.Bsize), nil
}

// CheckStore verifies the selected backend has what it needs to connect. It
// does not contact remote services.
func CheckStore(cfg *config.Config) Result {
	name := "Object store (" + cfg.Store.Backend + ")"
	if err := cfg.ValidateStoreCredentials(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	switch cfg.Store.Backend {
	case config.BackendLocal:
		return CheckDirectoryAccess(name, cfg.Store.LocalRoot)
	case config.BackendGCS:
		if cfg.Store.CredentialsFile == "" {
			return Result{Name: name, Passed: true, Detail: "application default credentials"}
		}
		if _, err := os.Stat(cfg.Store.CredentialsFile); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("credentials file: %v", err)}
		}
		return Result{Name: name, Passed: true, Detail: cfg.Store.CredentialsFile}
	default:
		return Result{Name: name, Passed: true, Detail: "connection string set"}
	}
}

// CheckJournal opens the journal database, creating it when absent.
func CheckJournal(path string) Result {
	const name = "Run journal"
	store, err := journal.Open(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	_ = store.Close()
	return Result{Name: name, Passed: true, Detail: path}
}

func nearestExisting(path string) (string, error) {
	current, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for {
		_, err := os.Stat(current)
		if err == nil {
			return current, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no existing ancestor for %s", path)
		}
		current = parent
	}
}
