// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReachExcludesStart(t *testing.T) {
	adj := Adjacency{
		"A": {"B", "C"},
		"B": {"D"},
		"C": {"D"},
	}

	reached := Reach(adj, "A")

	assert.NotContains(t, reached, "A")
	assert.Contains(t, reached, "B")
	assert.Contains(t, reached, "C")
	assert.Contains(t, reached, "D")
	assert.Len(t, reached, 3)
}

func TestReachMissingKeyIsEmpty(t *testing.T) {
	adj := Adjacency{"A": {"B"}}
	assert.Empty(t, Reach(adj, "Z"))
}

func TestReachHandlesCyclesWithoutSelf(t *testing.T) {
	adj := Adjacency{
		"A": {"B"},
		"B": {"A"},
	}
	reached := Reach(adj, "A")
	assert.NotContains(t, reached, "A")
	assert.Contains(t, reached, "B")
}

func TestReverseInvertsEveryEdge(t *testing.T) {
	adj := Adjacency{
		"A": {"B", "C"},
		"B": {"C"},
	}
	reversed := Reverse(adj)

	assert.ElementsMatch(t, []string{"A"}, reversed["B"])
	assert.ElementsMatch(t, []string{"A", "B"}, reversed["C"])
}

func TestReverseReverseRoundTrips(t *testing.T) {
	adj := Adjacency{
		"A": {"B", "C"},
		"B": {"C"},
	}
	twice := Reverse(Reverse(adj))

	for node, dsts := range adj {
		assert.ElementsMatch(t, dsts, twice[node])
	}
}

func TestLeavesIncludesEmptyOutListAndDanglingTargets(t *testing.T) {
	adj := Adjacency{
		"A": {"B", "D"},
		"B": {},
		"C": nil,
	}
	leaves := Leaves(adj)
	assert.Contains(t, leaves, "B")
	assert.Contains(t, leaves, "C")
	assert.Contains(t, leaves, "D")
	assert.NotContains(t, leaves, "A")
}

func TestMaxDistanceFromLinearChain(t *testing.T) {
	adj := Adjacency{
		"A": {"B"},
		"B": {"C"},
		"C": {"D"},
	}
	assert.Equal(t, 3, MaxDistanceFrom(adj, "A"))
	assert.Equal(t, 0, MaxDistanceFrom(adj, "D"))
}

func TestAverageDistanceOverLeavesOfForwardGraph(t *testing.T) {
	// A -> B -> C: C is the forward graph's only leaf. Its depth in
	// the reversed graph (C -> B -> A) is 2.
	adj := Adjacency{
		"A": {"B"},
		"B": {"C"},
	}
	assert.Equal(t, 2.0, AverageDistance(adj))
}

func TestNumNodesCountsSourcesAndDestinations(t *testing.T) {
	adj := Adjacency{"A": {"B"}, "C": {}}
	assert.Equal(t, 3, NumNodes(adj))
	assert.Equal(t, 1, NumNonRootNodes(adj))
}
