package testsupport

import (
	"path/filepath"
	"testing"

	"yoloprep/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The object store is the local backend rooted under the temp directory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = ""
	cfgVal.Store.Backend = config.BackendLocal
	cfgVal.Store.LocalRoot = filepath.Join(base, "store")
	cfgVal.Store.ConnectionString = ""
	cfgVal.Dataset.Dir = filepath.Join(base, "dataset")
	cfgVal.Dataset.SelectionFile = filepath.Join(base, "to_train_combined.txt")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithContainer sets the object store container.
func WithContainer(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.Container = name
	}
}

// WithSplit sets the validation ratio and seed.
func WithSplit(ratio float64, seed int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dataset.ValidSplit = ratio
		b.cfg.Dataset.RandomSeed = seed
	}
}

// WithoutJournal disables the run journal.
func WithoutJournal() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
