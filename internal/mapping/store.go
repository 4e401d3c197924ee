package mapping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"yoloprep/internal/textutil"
)

var (
	// ErrConflict is returned when an identifier is re-recorded with a different name.
	ErrConflict = errors.New("identifier already mapped to a different name")
	// ErrCollision is returned when two identifiers flatten to the same name.
	ErrCollision = errors.New("flat name already owned by another identifier")
)

// Entry is one identifier-to-name pair.
type Entry struct {
	ID   string
	Name string
}

// Store holds the identifier mapping built during placement.
type Store struct {
	names  map[string]string // id -> flat name
	owners map[string]string // flat name -> id
}

// New returns an empty store.
func New() *Store {
	return &Store{
		names:  make(map[string]string),
		owners: make(map[string]string),
	}
}

// Record binds id to name. Recording an identical pair again is a no-op.
func (s *Store) Record(id, name string) error {
	if err := s.Check(id, name); err != nil {
		return err
	}
	s.names[id] = name
	s.owners[name] = id
	return nil
}

// Check reports whether Record(id, name) would succeed without changing the
// store.
func (s *Store) Check(id, name string) error {
	if id == "" || name == "" {
		return errors.New("identifier and name are required")
	}
	if existing, ok := s.names[id]; ok {
		if existing == name {
			return nil
		}
		return fmt.Errorf("%w: %q -> %q (already %q)", ErrConflict, id, name, existing)
	}
	if owner, ok := s.owners[name]; ok {
		return fmt.Errorf("%w: %q and %q both map to %q", ErrCollision, owner, id, name)
	}
	return nil
}

// Lookup returns the flat name recorded for id.
func (s *Store) Lookup(id string) (string, bool) {
	name, ok := s.names[id]
	return name, ok
}

// Owner returns the identifier that owns a flat name.
func (s *Store) Owner(name string) (string, bool) {
	id, ok := s.owners[name]
	return id, ok
}

// Len returns the number of recorded identifiers.
func (s *Store) Len() int {
	return len(s.names)
}

// Entries returns all pairs sorted by identifier.
func (s *Store) Entries() []Entry {
	entries := make([]Entry, 0, len(s.names))
	for id, name := range s.names {
		entries = append(entries, Entry{ID: id, Name: name})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID < entries[j].ID
	})
	return entries
}

// Persist serializes the table as an indented JSON object keyed by identifier.
func (s *Store) Persist() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(s.names); err != nil {
		return nil, fmt.Errorf("marshal mapping: %w", err)
	}
	return buf.Bytes(), nil
}

// Load parses a serialized table. Values are not required to be unique:
// tables written elsewhere may map several identifiers to one flat name, and
// lookups by identifier stay well defined. Owner reports the lexically first
// identifier for a shared name.
func Load(data []byte) (*Store, error) {
	store := New()
	if len(bytes.TrimSpace(data)) == 0 {
		return store, nil
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse mapping: %w", err)
	}
	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		name := strings.TrimSpace(raw[id])
		if id == "" || name == "" {
			return nil, fmt.Errorf("parse mapping: empty identifier or name for %q", id)
		}
		store.names[id] = name
		if _, taken := store.owners[name]; !taken {
			store.owners[name] = id
		}
	}
	return store, nil
}

// Shared returns the flat names that more than one identifier maps to,
// sorted.
func (s *Store) Shared() []string {
	counts := make(map[string]int, len(s.owners))
	for _, name := range s.names {
		counts[name]++
	}
	var shared []string
	for name, n := range counts {
		if n > 1 {
			shared = append(shared, name)
		}
	}
	sort.Strings(shared)
	return shared
}

// Save writes the table to path atomically.
func (s *Store) Save(path string) error {
	data, err := s.Persist()
	if err != nil {
		return err
	}
	if err := textutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write mapping %s: %w", path, err)
	}
	return nil
}

// ReadFile loads the table stored at path.
func ReadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	return Load(data)
}
