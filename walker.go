// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psarc

package psarc

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// WalkOptions controls how Walk expands patterns into a PathSet.
type WalkOptions struct {
	// Recursive walks matched directories depth-first, visiting entries in
	// lexical name order rather than raw directory-entry order.
	Recursive bool
	// IgnoreCase makes glob matching case-insensitive; the literal filename
	// on disk is always preserved in the resulting path set.
	IgnoreCase bool
}

// Walk expands patterns (shell-style globs supporting *, ?, [...], {...},
// and a leading ~) against the current directory and returns the ordered,
// duplicate-suppressed set of matched regular files.
func Walk(patterns []string, opts WalkOptions) (*PathSet, error) {
	set := NewPathSet()

	for _, pattern := range patterns {
		if err := walkOnePattern(pattern, opts, set); err != nil {
			return nil, err
		}
	}

	return set, nil
}

func walkOnePattern(pattern string, opts WalkOptions, set *PathSet) error {
	expanded, err := expandHome(pattern)
	if err != nil {
		return err
	}

	root, globPart := splitGlobRoot(expanded)

	matcher, err := compileGlob(globPart, opts.IgnoreCase)
	if err != nil {
		return err
	}

	entries, err := matchDirEntries(root, matcher, opts.IgnoreCase)
	if err != nil {
		return err
	}

	for _, name := range entries {
		full := filepath.Join(root, name)

		info, err := os.Lstat(full)
		if err != nil {
			return err
		}

		if info.IsDir() {
			if opts.Recursive {
				if err := walkDirRecursive(full, set); err != nil {
					return err
				}
			}

			continue
		}

		if info.Mode().IsRegular() {
			set.Add(filepath.ToSlash(full))
		}
	}

	return nil
}

// walkDirRecursive adds every regular file under root, depth-first in
// lexical name order (fs.WalkDir sorts each directory), skipping "." and "..".
func walkDirRecursive(root string, set *PathSet) error {
	return fs.WalkDir(os.DirFS(filepath.Dir(root)), filepath.Base(root), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		name := d.Name()
		if name == "." || name == ".." {
			return nil
		}

		if d.Type().IsRegular() {
			set.Add(filepath.ToSlash(filepath.Join(filepath.Dir(root), p)))
		}

		return nil
	})
}

// expandHome expands a leading "~" or "~/" to the invoking user's home
// directory.
func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if p == "~" {
		return home, nil
	}

	return filepath.Join(home, p[2:]), nil
}

// splitGlobRoot separates p into a non-glob directory prefix and the
// remaining glob pattern, so directory enumeration only needs to scan the
// narrowest possible directory.
func splitGlobRoot(p string) (root, pattern string) {
	dir := filepath.Dir(p)
	base := filepath.Base(p)

	if !containsGlobMeta(dir) {
		return dir, base
	}

	return ".", p
}

func containsGlobMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

func compileGlob(pattern string, ignoreCase bool) (glob.Glob, error) {
	if ignoreCase {
		pattern = strings.ToLower(pattern)
	}

	return glob.Compile(pattern, '/')
}

// matchDirEntries lists root's immediate entries whose name matches
// matcher, sorted by name rather than in raw directory-entry order.
func matchDirEntries(root string, matcher glob.Glob, ignoreCase bool) ([]string, error) {
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(dirEntries))

	for _, e := range dirEntries {
		name := e.Name()

		candidate := name
		if ignoreCase {
			candidate = strings.ToLower(name)
		}

		if matcher.Match(candidate) {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names, nil
}
