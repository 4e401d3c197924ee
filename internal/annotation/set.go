package annotation

import "sort"

// Set is the deduplicated union of qualifying image names across documents.
type Set struct {
	names map[string]struct{}
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{names: make(map[string]struct{})}
}

// Add inserts names and reports how many were not already present.
func (s *Set) Add(names ...string) int {
	added := 0
	for _, name := range names {
		if _, exists := s.names[name]; exists {
			continue
		}
		s.names[name] = struct{}{}
		added++
	}
	return added
}

// Contains reports whether name is in the set.
func (s *Set) Contains(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of unique names.
func (s *Set) Len() int {
	return len(s.names)
}

// Sorted returns the members in ascending byte order.
func (s *Set) Sorted() []string {
	out := make([]string, 0, len(s.names))
	for name := range s.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
