// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package typehierarchy tracks C++ class inheritance as two
// consistent adjacency lists: base -> derived and derived -> base.
package typehierarchy

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ekstazi-go/ekstazi/services/ekstazi/graph"
)

const (
	derivedHierarchyHeader = "Derived Hierarchy:"
	superHierarchyHeader   = "Super Hierarchy:"
	delim                  = ";"
)

// Hierarchy is the type hierarchy described in §4.3.
type Hierarchy struct {
	derived graph.Adjacency // base -> {derived}
	super   graph.Adjacency // derived -> {base}
}

// New returns an empty hierarchy.
func New() *Hierarchy {
	return &Hierarchy{derived: make(graph.Adjacency), super: make(graph.Adjacency)}
}

// AddInheritance records that derived inherits from base, updating
// both adjacencies atomically.
func (h *Hierarchy) AddInheritance(base, derivedType string) {
	h.derived[base] = append(h.derived[base], derivedType)
	h.super[derivedType] = append(h.super[derivedType], base)
}

// DerivedOf returns every type reachable by following derived-of
// relations from base (i.e. every subtype, transitively).
func (h *Hierarchy) DerivedOf(base string) map[string]struct{} {
	return graph.Reach(h.derived, base)
}

// SuperOf returns every ancestor type of derived, transitively.
func (h *Hierarchy) SuperOf(derivedType string) map[string]struct{} {
	return graph.Reach(h.super, derivedType)
}

// AllRelated returns the union of DerivedOf and SuperOf for t.
func (h *Hierarchy) AllRelated(t string) map[string]struct{} {
	result := make(map[string]struct{})
	for k := range h.DerivedOf(t) {
		result[k] = struct{}{}
	}
	for k := range h.SuperOf(t) {
		result[k] = struct{}{}
	}
	return result
}

// Contains reports whether t appears anywhere in the derived-view:
// as a base key, or as any derived value. A linear scan is acceptable
// here; this operation is used only by diagnostic tooling.
func (h *Hierarchy) Contains(t string) bool {
	if _, ok := h.derived[t]; ok {
		return true
	}
	for _, derivedTypes := range h.derived {
		for _, d := range derivedTypes {
			if d == t {
				return true
			}
		}
	}
	return false
}

// Dedup sorts and uniques both adjacency lists in place.
func (h *Hierarchy) Dedup() {
	dedupAdjacency(h.derived)
	dedupAdjacency(h.super)
}

func dedupAdjacency(adj graph.Adjacency) {
	for k, vs := range adj {
		if len(vs) == 0 {
			continue
		}
		sorted := append([]string(nil), vs...)
		sort.Strings(sorted)
		out := sorted[:1]
		for _, v := range sorted[1:] {
			if v != out[len(out)-1] {
				out = append(out, v)
			}
		}
		adj[k] = out
	}
}

// Edges returns every direct base->derived pair in the hierarchy, in
// no particular order. It exists for tools that dump or render the
// hierarchy rather than query it.
func (h *Hierarchy) Edges() [][2]string {
	edges := make([][2]string, 0, len(h.derived))
	for base, derivedTypes := range h.derived {
		for _, d := range derivedTypes {
			edges = append(edges, [2]string{base, d})
		}
	}
	return edges
}

// Size returns the number of distinct types in the derived view.
func (h *Hierarchy) Size() int {
	return graph.NumNodes(h.derived)
}

// NumDerivedTypes returns the number of distinct types that are
// derived from something.
func (h *Hierarchy) NumDerivedTypes() int {
	return graph.NumNonRootNodes(h.derived)
}

// MaxDepth returns the deepest inheritance chain, measured on the
// derived view.
func (h *Hierarchy) MaxDepth() int {
	return graph.MaxDistance(h.derived)
}

// AverageDepth returns the mean leaf depth of the derived view.
func (h *Hierarchy) AverageDepth() float64 {
	return graph.AverageDistance(h.derived)
}

// Save writes the hierarchy using the two-section textual format:
// a header line, then for every base type a line
// "base;derived1;derived2;...;" with a trailing delimiter after every
// value including the last.
func (h *Hierarchy) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	if err := writeSection(w, derivedHierarchyHeader, h.derived); err != nil {
		return err
	}
	return writeSection(w, superHierarchyHeader, h.super)
}

func writeSection(w *bufio.Writer, header string, adj graph.Adjacency) error {
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}

	keys := make([]string, 0, len(adj))
	for k := range adj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		line := k + delim
		for _, v := range adj[k] {
			line += v + delim
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// Load reads a hierarchy previously written by Save. A missing file
// yields an empty hierarchy and no error.
func Load(path string) (*Hierarchy, error) {
	h := New()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return h, nil
		}
		return nil, err
	}
	defer f.Close()

	var section graph.Adjacency
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch line {
		case derivedHierarchyHeader:
			section = h.derived
			continue
		case superHierarchyHeader:
			section = h.super
			continue
		}
		if line == "" || section == nil {
			continue
		}

		trimmed := strings.TrimSuffix(line, delim)
		fields := strings.Split(trimmed, delim)
		if len(fields) == 0 {
			continue
		}
		key := fields[0]
		values := fields[1:]
		if _, ok := section[key]; !ok && len(values) == 0 {
			section[key] = nil
		}
		section[key] = append(section[key], values...)
	}
	return h, scanner.Err()
}
