// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package depgraph implements the function-level dependency graph: a
// directed graph whose edge callee -> caller reads "the callee's
// changes propagate to the caller."
package depgraph

import (
	"bufio"
	"os"
	"sort"
	"strings"

	"github.com/ekstazi-go/ekstazi/services/ekstazi/graph"
)

// Graph is the dependency graph described in §4.2. The zero value is
// an empty graph.
type Graph struct {
	adj graph.Adjacency
}

// New returns an empty dependency graph.
func New() *Graph {
	return &Graph{adj: make(graph.Adjacency)}
}

// Add appends dst to src's dependent list. A self-loop (src == dst) is
// a no-op. Duplicates are permitted until Dedup is called.
func (g *Graph) Add(src, dst string) {
	if src == dst {
		return
	}
	if g.adj == nil {
		g.adj = make(graph.Adjacency)
	}
	g.adj[src] = append(g.adj[src], dst)
}

// Exists reports whether dst appears in src's dependent list.
func (g *Graph) Exists(src, dst string) bool {
	for _, d := range g.adj[src] {
		if d == dst {
			return true
		}
	}
	return false
}

// Reach returns every node reachable from start, excluding start.
func (g *Graph) Reach(start string) map[string]struct{} {
	return graph.Reach(g.adj, start)
}

// Reverse returns a new graph with every edge inverted, rebuilt by
// calling Add on every reversed edge (so the result's lists are not
// deduplicated either).
func (g *Graph) Reverse() *Graph {
	reversed := New()
	for src, dsts := range g.adj {
		for _, dst := range dsts {
			reversed.Add(dst, src)
		}
	}
	return reversed
}

// Dedup sorts and uniques every destination list in place.
func (g *Graph) Dedup() {
	for src, dsts := range g.adj {
		g.adj[src] = dedupStrings(dsts)
	}
}

// Empty reports whether the graph has no source nodes.
func (g *Graph) Empty() bool {
	return len(g.adj) == 0
}

// Edges returns every callee->caller pair currently in the graph, in
// no particular order. It exists for tools that dump or render the
// graph rather than walk it.
func (g *Graph) Edges() [][2]string {
	edges := make([][2]string, 0, len(g.adj))
	for src, dsts := range g.adj {
		for _, dst := range dsts {
			edges = append(edges, [2]string{src, dst})
		}
	}
	return edges
}

func dedupStrings(in []string) []string {
	if len(in) == 0 {
		return in
	}
	sorted := append([]string(nil), in...)
	sort.Strings(sorted)

	out := sorted[:1]
	for _, s := range sorted[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}

// Save writes the graph to path in the on-disk format: one line per
// source node, "src;dst1;dst2;...", with the delimiter only between
// entries (no trailing delimiter after the last destination).
func (g *Graph) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	srcs := make([]string, 0, len(g.adj))
	for src := range g.adj {
		srcs = append(srcs, src)
	}
	sort.Strings(srcs)

	for _, src := range srcs {
		if _, err := w.WriteString(src); err != nil {
			return err
		}
		for _, dst := range g.adj[src] {
			if _, err := w.WriteString(";" + dst); err != nil {
				return err
			}
		}
		if _, err := w.WriteString("\n"); err != nil {
			return err
		}
	}
	return nil
}

// Load reads a graph previously written by Save. A missing file is
// not an error: it yields an empty graph, matching the "missing prior
// state is recovered locally" policy.
func Load(path string) (*Graph, error) {
	g := New()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return g, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, ";")
		src := fields[0]
		for _, dst := range fields[1:] {
			g.adj[src] = append(g.adj[src], dst)
		}
		if len(fields) == 1 {
			// Source with no recorded dependents yet; keep the key
			// present so Empty()/iteration see it.
			if _, ok := g.adj[src]; !ok {
				g.adj[src] = nil
			}
		}
	}
	return g, scanner.Err()
}
