// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides string-keyed adjacency-list graph algorithms
// shared by the dependency graph and the type hierarchy: reachability,
// reversal, leaf detection, and distance metrics.
package graph

// Adjacency is a directed graph represented as source node -> ordered
// list of destination nodes. Both the dependency graph and the type
// hierarchy are built on this shape.
type Adjacency map[string][]string

// Reach returns every node reachable from start by following edges,
// excluding start itself. A start node with no entry in adj yields the
// empty set.
//
// Description:
//
//	Breadth-first traversal over adj. Mirrors ekstazi::utils::bfs: a
//	visited set seeded with start prevents start from appearing in its
//	own result even if a cycle leads back to it.
//
// Complexity: O(V + E).
func Reach(adj Adjacency, start string) map[string]struct{} {
	visited := map[string]struct{}{start: {}}
	result := make(map[string]struct{})

	queue := []string{start}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		for _, next := range adj[node] {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			result[next] = struct{}{}
			queue = append(queue, next)
		}
	}

	return result
}

// Reverse returns a new adjacency with every edge inverted: for every
// src -> dst in adj, the result has dst -> src.
func Reverse(adj Adjacency) Adjacency {
	reversed := make(Adjacency)
	for src, dsts := range adj {
		for _, dst := range dsts {
			reversed[dst] = append(reversed[dst], src)
		}
	}
	return reversed
}

// Leaves returns every node with no outgoing edges: keys with an empty
// list, plus nodes that appear only as a destination.
func Leaves(adj Adjacency) map[string]struct{} {
	leaves := make(map[string]struct{})
	for node, dsts := range adj {
		if len(dsts) == 0 {
			leaves[node] = struct{}{}
		}
	}
	for _, dsts := range adj {
		for _, dst := range dsts {
			if _, hasOutEdges := adj[dst]; !hasOutEdges {
				leaves[dst] = struct{}{}
			}
		}
	}
	return leaves
}

// MaxDistanceFrom returns the greatest BFS depth reachable from start:
// the number of hops to the farthest node, or 0 if nothing is
// reachable.
func MaxDistanceFrom(adj Adjacency, start string) int {
	visited := map[string]struct{}{start: {}}
	queue := []string{start}
	depth := map[string]int{start: 0}
	max := 0

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		for _, next := range adj[node] {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			d := depth[node] + 1
			depth[next] = d
			if d > max {
				max = d
			}
			queue = append(queue, next)
		}
	}

	return max
}

// MaxDistance returns the maximum, over every node in adj, of
// MaxDistanceFrom(adj, node).
func MaxDistance(adj Adjacency) int {
	max := 0
	for node := range nodeSet(adj) {
		if d := MaxDistanceFrom(adj, node); d > max {
			max = d
		}
	}
	return max
}

// AverageDistance returns the mean, over every leaf of adj (found on
// the forward graph), of that leaf's MaxDistanceFrom depth measured in
// the reversed graph. The caller must not invoke this on a graph with
// no leaves (the result is unspecified).
func AverageDistance(adj Adjacency) float64 {
	reversed := Reverse(adj)
	leaves := Leaves(adj)

	if len(leaves) == 0 {
		return 0
	}

	total := 0
	for leaf := range leaves {
		total += MaxDistanceFrom(reversed, leaf)
	}
	return float64(total) / float64(len(leaves))
}

// NumNodes returns the number of distinct nodes mentioned in adj,
// either as a source or as a destination.
func NumNodes(adj Adjacency) int {
	return len(nodeSet(adj))
}

// NumNonRootNodes returns the number of distinct nodes that appear as
// a destination of at least one edge.
func NumNonRootNodes(adj Adjacency) int {
	seen := make(map[string]struct{})
	for _, dsts := range adj {
		for _, dst := range dsts {
			seen[dst] = struct{}{}
		}
	}
	return len(seen)
}

func nodeSet(adj Adjacency) map[string]struct{} {
	nodes := make(map[string]struct{}, len(adj))
	for src, dsts := range adj {
		nodes[src] = struct{}{}
		for _, dst := range dsts {
			nodes[dst] = struct{}{}
		}
	}
	return nodes
}
