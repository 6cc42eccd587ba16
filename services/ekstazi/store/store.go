// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store locates and rolls over the on-disk metadata directory
// that holds every persisted artifact between runs.
package store

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Filenames and suffixes of the metadata directory, matching the
// original tool's constants.
const (
	DirName = ".ekstazi"

	TypeHierarchySuffix = "types.txt"
	DepGraphSuffix      = "depgraph.txt"
	FunctionsSuffix     = "functions.txt"
	ConstructorsSuffix  = "constructors.txt"
	ModifiedFunsSuffix  = "modified-functions.txt"
	ModifiedTestsSuffix = "modified-tests.txt"
	MetricsSuffix       = "metrics.prom"
	CountFilename       = "count.ekstazi"

	OldSuffix = "old"
)

// Paths resolves every per-module artifact path under a metadata
// directory rooted at dir, for a module named by its basename.
type Paths struct {
	dir    string
	module string
}

// New returns Paths rooted at dir for module. dir is typically
// DirName relative to the working directory.
func New(dir, module string) *Paths {
	return &Paths{dir: dir, module: moduleBasename(module)}
}

func moduleBasename(module string) string {
	return strings.TrimSuffix(filepath.Base(module), filepath.Ext(module))
}

// EnsureDir creates the metadata directory if it does not already
// exist.
func (p *Paths) EnsureDir() error {
	return os.MkdirAll(p.dir, 0o755)
}

func (p *Paths) path(suffix string) string {
	return filepath.Join(p.dir, p.module+"."+suffix)
}

// TypeHierarchy returns the current type-hierarchy file path.
func (p *Paths) TypeHierarchy() string { return p.path(TypeHierarchySuffix) }

// DepGraph returns the current dependency-graph file path.
func (p *Paths) DepGraph() string { return p.path(DepGraphSuffix) }

// Functions returns the current function-records file path.
func (p *Paths) Functions() string { return p.path(FunctionsSuffix) }

// Constructors returns the reserved constructors file path.
func (p *Paths) Constructors() string { return p.path(ConstructorsSuffix) }

// ModifiedFunctions returns the modified-functions output file path.
func (p *Paths) ModifiedFunctions() string { return p.path(ModifiedFunsSuffix) }

// ModifiedTests returns the modified-tests output file path.
func (p *Paths) ModifiedTests() string { return p.path(ModifiedTestsSuffix) }

// Metrics returns the Prometheus textfile-dump output path.
func (p *Paths) Metrics() string { return p.path(MetricsSuffix) }

// Count returns the invocation-counter file path. Unlike the other
// files, this one is not per-module.
func (p *Paths) Count() string { return filepath.Join(p.dir, CountFilename) }

// oldPath returns the ".old" sibling of a current path.
func oldPath(current string) string {
	return current + "." + OldSuffix
}

// Rollover renames current to its ".old" sibling if current exists,
// overwriting any prior ".old" file. If current does not exist, this
// is a no-op: there is nothing to roll over, and any existing ".old"
// file is left untouched so a later Load still finds the prior
// generation.
func Rollover(current string) error {
	if _, err := os.Stat(current); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.Rename(current, oldPath(current))
}

// OldOf returns the ".old" sibling path of current, for use with a
// package's Load function to read the prior generation.
func OldOf(current string) string {
	return oldPath(current)
}

// ReadCount reads the invocation counter at path. A missing file is
// treated as the first invocation (count 1, no error), matching the
// "first run selects everything" policy.
func ReadCount(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 1, nil
		}
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 1, nil
	}
	return n, nil
}

// WriteCount writes n to path as the new invocation counter.
func WriteCount(path string, n int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(n)+"\n"), 0o644)
}

// GetGtestFilter is the external filter-string consumption helper: it
// reads the invocation counter and, if this is the first invocation,
// returns "*" (select everything); otherwise it concatenates the
// lines of the modified-tests file with ":", stripping each line's
// leading namespace qualifier (everything up to the last "::").
func GetGtestFilter(countPath, modifiedTestsPath string) (string, error) {
	count, err := ReadCount(countPath)
	if err != nil {
		return "", err
	}
	if count <= 1 {
		return "*", nil
	}

	data, err := os.ReadFile(modifiedTestsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	var filters []string
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line == "" {
			continue
		}
		filters = append(filters, stripNamespace(line))
	}
	return strings.Join(filters, ":"), nil
}

func stripNamespace(filter string) string {
	if idx := strings.LastIndex(filter, "::"); idx >= 0 {
		return filter[idx+2:]
	}
	return filter
}
