package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"yoloprep/internal/config"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// PartialSuffix is appended to in-flight download targets.
const PartialSuffix = ".part"

// Store is a read-only view of one container or bucket.
type Store interface {
	// Open streams the object stored under key. Missing objects return an
	// error wrapping ErrNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// Location describes the store for logs and summaries.
	Location() string
}

// Open builds the store selected by cfg.Store, wrapped in a rate limiter when
// requests_per_second is positive. container overrides cfg.Store.Container
// when non-empty.
func Open(ctx context.Context, cfg *config.Config, container string) (Store, error) {
	if cfg == nil {
		return nil, errors.New("objectstore: config is required")
	}
	if container == "" {
		container = cfg.Store.Container
	}
	if container == "" {
		return nil, errors.New("objectstore: container is required")
	}

	var (
		store Store
		err   error
	)
	switch cfg.Store.Backend {
	case config.BackendAzure:
		store, err = NewAzure(cfg.Store.ConnectionString, container)
	case config.BackendGCS:
		store, err = NewGCS(ctx, cfg.Store.CredentialsFile, container)
	case config.BackendLocal:
		store, err = NewLocal(cfg.Store.LocalRoot, container)
	default:
		err = fmt.Errorf("objectstore: unsupported backend %q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Store.RequestsPerSecond > 0 {
		store = WithRateLimit(store, cfg.Store.RequestsPerSecond)
	}
	return store, nil
}

// Timeout returns the per-transfer timeout configured for the store.
func Timeout(cfg *config.Config) time.Duration {
	if cfg == nil || cfg.Store.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(cfg.Store.TimeoutSeconds) * time.Second
}

// Download copies key into dst through dst+".part". progress, when non-nil,
// receives a copy of every byte written. The partial file is removed on any
// failure, including cancellation.
func Download(ctx context.Context, store Store, key, dst string, progress io.Writer) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("create destination dir: %w", err)
	}
	body, err := store.Open(ctx, key)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	partial := dst + PartialSuffix
	file, err := os.OpenFile(partial, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", partial, err)
	}

	var w io.Writer = file
	if progress != nil {
		w = io.MultiWriter(file, progress)
	}
	n, copyErr := io.Copy(w, contextReader{ctx: ctx, r: body})
	closeErr := file.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(partial)
		return n, fmt.Errorf("download %s: %w", key, copyErr)
	}
	if err := os.Rename(partial, dst); err != nil {
		_ = os.Remove(partial)
		return n, fmt.Errorf("finalize %s: %w", dst, err)
	}
	return n, nil
}

// contextReader stops a copy once ctx is done, even when the backend body
// ignores cancellation.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
