// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"bufio"
	"context"
	"os"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ekstazi-go/ekstazi/services/ekstazi/function"
	"github.com/ekstazi-go/ekstazi/services/ekstazi/gtestadapter"
	"github.com/ekstazi-go/ekstazi/services/ekstazi/store"
)

// Finalize runs the constructor-liveness optimization over the
// staged pending virtual edges, installs the surviving edges into
// the new dependency graph, persists every artifact, and writes the
// selected test filters. constructorsOn toggles the optimization
// itself: with it off, every pending edge is installed unconditionally,
// matching a conservative (no liveness pruning) analysis.
func (o *Orchestrator) Finalize(ctx context.Context, constructorsOn bool) error {
	ctx, span := tracer.Start(ctx, "orchestrator.finalize", trace.WithAttributes(
		attribute.Int("pending_edges", len(o.pending)),
		attribute.Bool("constructors", constructorsOn),
	))
	defer span.End()

	o.NewDepGraph.Dedup()

	sideMap := o.buildConstructedSideMap(constructorsOn)

	installed := 0
	for _, edge := range o.pending {
		if !o.installEdge(edge, sideMap, constructorsOn) {
			continue
		}
		installed++
	}
	span.SetAttributes(attribute.Int("virtual_edges_installed", installed))

	o.NewDepGraph.Dedup()

	if err := o.NewDepGraph.Save(o.Paths.DepGraph()); err != nil {
		return err
	}
	if err := function.Save(o.Paths.Functions(), o.NewFunctions); err != nil {
		return err
	}
	if err := o.OldDepGraph.Save(store.OldOf(o.Paths.DepGraph())); err != nil {
		return err
	}
	if err := function.Save(store.OldOf(o.Paths.Functions()), o.OldFunctions); err != nil {
		return err
	}

	return o.writeSelection(ctx)
}

// buildConstructedSideMap maps a class name to the set of test-like
// function names from which some registered constructor of that
// class is reachable in the old or the new dependency graph. When constructorsOn
// is false, the map is left nil and every pending edge's target class
// is treated as unconditionally constructed.
func (o *Orchestrator) buildConstructedSideMap(constructorsOn bool) map[string]map[string]struct{} {
	if !constructorsOn {
		return nil
	}

	sideMap := make(map[string]map[string]struct{})
	for ctorName := range o.constructors {
		class, _ := function.SplitClassName(ctorName, false)
		if class == "" {
			continue
		}
		reach := o.reachBothGenerations(ctorName)
		for name := range reach {
			if !isTestLikeName(name) {
				continue
			}
			if sideMap[class] == nil {
				sideMap[class] = make(map[string]struct{})
			}
			sideMap[class][name] = struct{}{}
		}
	}
	return sideMap
}

// reachBothGenerations unions reach(start) computed over the new
// dependency graph and the old one, per §4.8's "old graph ∪ new
// graph" rule.
func (o *Orchestrator) reachBothGenerations(start string) map[string]struct{} {
	reach := make(map[string]struct{})
	for name := range o.NewDepGraph.Reach(start) {
		reach[name] = struct{}{}
	}
	for name := range o.OldDepGraph.Reach(start) {
		reach[name] = struct{}{}
	}
	return reach
}

// isTestLikeName reports whether name matches one of the four
// Google-Test function-name shapes, independent of whether it has
// actually been registered from a binary's listing output. It is used
// only to recognize call-graph nodes as tests for the
// constructor-liveness computation.
func isTestLikeName(name string) bool {
	_, ok := gtestadapter.ClassifyFromIR(name)
	return ok
}

// installEdge decides whether the pending virtual edge should be
// installed into the new dependency graph and, if so, installs it.
func (o *Orchestrator) installEdge(edge pendingEdge, sideMap map[string]map[string]struct{}, constructorsOn bool) bool {
	if o.NewDepGraph.Exists(edge.target, edge.caller) {
		return false
	}

	if constructorsOn {
		class, _ := function.SplitClassName(edge.target, false)
		witnesses, ok := sideMap[class]
		if !ok || len(witnesses) == 0 {
			return false
		}

		reachableFromCaller := o.reachBothGenerations(edge.caller)
		reachableFromCaller[edge.caller] = struct{}{}

		live := false
		for test := range witnesses {
			if _, ok := reachableFromCaller[test]; ok {
				live = true
				break
			}
		}
		if !live {
			return false
		}
	}

	o.NewDepGraph.Add(edge.target, edge.caller)
	if o.Telemetry != nil {
		o.Telemetry.VirtualEdgesInstalled.Inc()
	}
	return true
}

// writeSelection computes the modified-function set (old vs. new
// function records), unions each modified function's reach in both
// generations of the graph to cover functions that changed callers
// between runs, and writes the modified-functions and modified-tests
// artifacts.
func (o *Orchestrator) writeSelection(ctx context.Context) error {
	_, span := tracer.Start(ctx, "orchestrator.write_selection")
	defer span.End()

	modified := function.GetModified(o.OldFunctions, o.NewFunctions)

	affected := make(map[string]struct{}, len(modified))
	for name := range modified {
		affected[name] = struct{}{}
		for n := range o.NewDepGraph.Reach(name) {
			affected[n] = struct{}{}
		}
		for n := range o.OldDepGraph.Reach(name) {
			affected[n] = struct{}{}
		}
	}
	span.SetAttributes(attribute.Int("modified_functions", len(modified)), attribute.Int("affected_functions", len(affected)))

	if err := writeSortedLines(o.Paths.ModifiedFunctions(), affected); err != nil {
		return err
	}

	tests := o.Adapter.GetModifiedTests(affected)
	testNames := make(map[string]struct{}, len(tests))
	for _, t := range tests {
		testNames[t.FilterString()] = struct{}{}
	}
	return writeSortedLines(o.Paths.ModifiedTests(), testNames)
}

func writeSortedLines(path string, set map[string]struct{}) error {
	lines := make([]string, 0, len(set))
	for s := range set {
		lines = append(lines, s)
	}
	sort.Strings(lines)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}
