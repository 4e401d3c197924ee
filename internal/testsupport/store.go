package testsupport

import (
	"path/filepath"
	"testing"

	"yoloprep/internal/config"
	"yoloprep/internal/journal"
)

// MustOpenJournal opens the configured journal for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg.JournalPath())
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// PutObject stores body under key in a container of the local object store.
func PutObject(t testing.TB, cfg *config.Config, container, key, body string) {
	t.Helper()

	WriteFile(t, ObjectPath(cfg, container, key), body)
}

// PutZipObject stores a zip archive under key in a container of the local object store.
func PutZipObject(t testing.TB, cfg *config.Config, container, key string, entries ...ZipEntry) {
	t.Helper()

	WriteZip(t, ObjectPath(cfg, container, key), entries...)
}

// ObjectPath returns where the local backend keeps key.
func ObjectPath(cfg *config.Config, container, key string) string {
	return filepath.Join(cfg.Store.LocalRoot, container, filepath.FromSlash(key))
}
