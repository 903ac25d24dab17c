package findings

import (
	"path/filepath"
	"sort"
	"sync"
)

// Store maps file paths to their latest published Findings.
//
// Set replaces the whole value for a path, so a reader either sees the old
// table or the new one, never a mix.
type Store struct {
	entries map[string]*Findings
	mu      sync.RWMutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*Findings),
	}
}

// NormalizePath cleans a path for use as a store key.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	return filepath.Clean(path)
}

// Set publishes findings for path. The findings are frozen first.
func (s *Store) Set(path string, f *Findings) {
	f.Freeze()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[NormalizePath(path)] = f
}

// Get returns the findings for path.
func (s *Store) Get(path string) (*Findings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.entries[NormalizePath(path)]

	return f, ok
}

// Delete drops the findings for path.
func (s *Store) Delete(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, NormalizePath(path))
}

// Paths returns the stored paths in sorted order.
func (s *Store) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.entries))
	for path := range s.entries {
		paths = append(paths, path)
	}

	sort.Strings(paths)

	return paths
}

// Each calls fn for every stored entry in path order. The snapshot is taken
// before iterating, so fn may call back into the store.
func (s *Store) Each(fn func(path string, f *Findings)) {
	for _, path := range s.Paths() {
		if f, ok := s.Get(path); ok {
			fn(path, f)
		}
	}
}

// Len returns the number of stored files.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}
