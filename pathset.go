// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psarc

package psarc

import (
	"path"
	"strings"
)

// PathSet is a duplicate-suppressing ordered container of input paths.
// Order of first insertion is preserved and defines TOC order at pack time.
type PathSet struct {
	seen  map[string]struct{}
	paths []string
}

// NewPathSet returns an empty PathSet.
func NewPathSet() *PathSet {
	return &PathSet{seen: make(map[string]struct{})}
}

// Add inserts path, cleaned of every "./" segment at the start of the path
// or right after a "/", after computing a
// canonical form used only for deduplication. It reports whether the path
// was newly added; a false return means a duplicate was rejected.
func (s *PathSet) Add(p string) bool {
	cleaned := stripDotSegments(p)
	canon := canonicalizeForDedup(cleaned)

	if _, dup := s.seen[canon]; dup {
		return false
	}

	s.seen[canon] = struct{}{}

	if escapesRoot(cleaned) {
		s.paths = append(s.paths, canon)
	} else {
		s.paths = append(s.paths, cleaned)
	}

	return true
}

// escapesRoot reports whether p has a "../" prefix, is exactly "..", or
// contains a "/../" segment.
func escapesRoot(p string) bool {
	return strings.HasPrefix(p, "../") || p == ".." || strings.Contains(p, "/../")
}

// Paths returns the accumulated paths in insertion order. The returned
// slice must not be mutated by the caller.
func (s *PathSet) Paths() []string {
	return s.paths
}

// Len returns the number of distinct paths added so far.
func (s *PathSet) Len() int {
	return len(s.paths)
}

// stripDotSegments removes every "./" occurring at the start of p or
// immediately after a "/". It does not collapse ".." segments.
func stripDotSegments(p string) string {
	var b strings.Builder
	b.Grow(len(p))

	atSegmentStart := true
	for i := 0; i < len(p); i++ {
		if atSegmentStart && p[i] == '.' && i+1 < len(p) && p[i+1] == '/' {
			i++ // consume the "./" pair, stay at next segment start

			continue
		}

		c := p[i]
		b.WriteByte(c)
		atSegmentStart = c == '/'
	}

	return b.String()
}

// canonicalizeForDedup returns the canonical absolute form of p, used
// purely for duplicate detection. It is computed the same way for every
// path, not only ones that escape the root, so that syntactically
// different spellings of the same in-root path (a doubled slash, a
// "dir/../dir/file" that stays inside the root) collapse onto one key.
func canonicalizeForDedup(p string) string {
	if path.IsAbs(p) {
		return path.Clean(p)
	}

	return path.Clean("/" + p)
}
