package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the dataset lock.
var ErrLocked = errors.New("dataset is locked by another run")

// Lock is an advisory, process-wide lock on a dataset root.
type Lock struct {
	path string
	lock *flock.Flock
}

// Acquire creates the dataset root if needed and takes its lock without
// blocking.
func Acquire(l Layout) (*Lock, error) {
	if err := os.MkdirAll(l.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create dataset root: %w", err)
	}
	path := filepath.Join(l.Root, LockFileName)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, path)
	}
	return &Lock{path: path, lock: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release unlocks the dataset. The lock file stays in place so a waiting
// process never locks an unlinked inode.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	l.lock = nil
	return nil
}
