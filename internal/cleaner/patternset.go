package cleaner

import (
	"path"
	"strings"
)

// PatternSet is an insertion-ordered set of delete and keep patterns.
// Entries are never removed. It is not safe for concurrent use.
type PatternSet struct {
	order []string
	index map[string]struct{}
}

// NewPatternSet returns an empty set.
func NewPatternSet() *PatternSet {
	return &PatternSet{index: make(map[string]struct{})}
}

// NewSeededSet returns a set seeded for cfg.Destination with every
// configured exclude and its ancestors already kept.
func NewSeededSet(cfg *NormalizedConfig) *PatternSet {
	s := NewPatternSet()
	s.Seed(cfg.Destination)
	for _, ex := range cfg.Excludes {
		s.ExcludePathAndAncestors(ex)
	}
	return s
}

// Keep returns the keep pattern for p.
func Keep(p string) string {
	return KeepMarker + p
}

// IsKeep reports whether pattern protects its path from deletion.
func IsKeep(pattern string) bool {
	return strings.HasPrefix(pattern, KeepMarker)
}

// Seed inserts the delete-everything pattern for dest and the keep pattern
// for dest itself.
func (s *PatternSet) Seed(dest string) {
	s.Add(path.Join(dest, "**"))
	s.Add(Keep(dest))
}

// Add inserts pattern and reports whether it was new.
func (s *PatternSet) Add(pattern string) bool {
	if _, ok := s.index[pattern]; ok {
		return false
	}
	s.index[pattern] = struct{}{}
	s.order = append(s.order, pattern)
	return true
}

// Has reports whether pattern is in the set.
func (s *PatternSet) Has(pattern string) bool {
	_, ok := s.index[pattern]
	return ok
}

// ExcludePathAndAncestors keeps p and every parent directory of p.
//
// The walk stops at the first ancestor that is already kept: that ancestor's
// own parents were added when it was inserted. path.Dir converges on "." or
// "/", so the loop ends even for paths outside the seeded destination.
func (s *PatternSet) ExcludePathAndAncestors(p string) {
	for s.Add(Keep(p)) {
		p = path.Dir(p)
	}
}

// Patterns returns a copy of the entries in insertion order.
func (s *PatternSet) Patterns() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of entries.
func (s *PatternSet) Len() int {
	return len(s.order)
}
