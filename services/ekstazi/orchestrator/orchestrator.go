// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator drives one analysis pass over a compiled
// module: it loads the prior run's persisted state, walks the current
// module's call graph (resolving virtual calls against the
// reconstructed type hierarchy and vtables), applies the
// constructor-liveness optimization, and projects the set of directly
// and transitively affected functions onto the registered tests.
//
// A single Orchestrator is scoped to one module analysis; it holds no
// process-wide state and must not be shared across concurrent
// analyses of the same module name (see the concurrency model notes).
package orchestrator

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ekstazi-go/ekstazi/services/ekstazi/depgraph"
	"github.com/ekstazi-go/ekstazi/services/ekstazi/function"
	"github.com/ekstazi-go/ekstazi/services/ekstazi/gtestadapter"
	"github.com/ekstazi-go/ekstazi/services/ekstazi/hasher"
	"github.com/ekstazi-go/ekstazi/services/ekstazi/ir"
	"github.com/ekstazi-go/ekstazi/services/ekstazi/store"
	"github.com/ekstazi-go/ekstazi/services/ekstazi/telemetry"
	"github.com/ekstazi-go/ekstazi/services/ekstazi/typehierarchy"
	"github.com/ekstazi-go/ekstazi/services/ekstazi/vtable"
)

var tracer = otel.Tracer("ekstazi.orchestrator")

// pureVirtualSentinel is the symbol a vtable slot carries for a pure
// virtual method with no override in this class.
const pureVirtualSentinel = "__cxa_pure_virtual"

// pendingEdge is a virtual-call edge staged during the walk, not yet
// known to survive the constructor-liveness optimization.
type pendingEdge struct {
	caller string
	target string
}

// Orchestrator holds the state of one analysis pass.
type Orchestrator struct {
	Paths  *store.Paths
	Logger *slog.Logger

	// Telemetry is optional: a nil Telemetry simply skips every
	// counter increment below.
	Telemetry *telemetry.Telemetry

	OldHierarchy *typehierarchy.Hierarchy
	OldDepGraph  *depgraph.Graph
	OldFunctions map[string]function.Record

	NewHierarchy *typehierarchy.Hierarchy
	NewDepGraph  *depgraph.Graph
	NewFunctions map[string]function.Record

	// constructors is the set of registered constructors' demangled
	// names, used only to re-derive the class each belongs to via
	// function.SplitClassName.
	constructors map[string]struct{}

	vtables vtable.Table

	pending    []pendingEdge
	pendingSet map[pendingEdge]struct{}

	Adapter *gtestadapter.Adapter
}

// New returns an Orchestrator for one module analysis.
func New(paths *store.Paths, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		Paths:        paths,
		Logger:       logger,
		constructors: make(map[string]struct{}),
		pendingSet:   make(map[pendingEdge]struct{}),
		Adapter:      gtestadapter.NewAdapter(),
	}
}

// Init ensures the metadata directory exists, rolls over and loads
// the prior run's persisted state, and builds the current module's
// type hierarchy and vtables.
func (o *Orchestrator) Init(ctx context.Context, mod *ir.Module) error {
	_, span := tracer.Start(ctx, "orchestrator.init", trace.WithAttributes(
		attribute.String("module", mod.Name),
	))
	defer span.End()

	if err := o.Paths.EnsureDir(); err != nil {
		return err
	}

	if err := o.rolloverAndLoad(); err != nil {
		return err
	}

	o.NewHierarchy = typehierarchy.New()
	for _, gv := range mod.Globals {
		if !vtable.IsVTableDef(gv) || len(gv.TypeMetadata) < 2 {
			continue
		}
		concrete := gv.TypeMetadata[len(gv.TypeMetadata)-1]
		for _, base := range gv.TypeMetadata[:len(gv.TypeMetadata)-1] {
			o.NewHierarchy.AddInheritance(base, concrete)
		}
	}
	o.NewHierarchy.Dedup()
	if err := o.NewHierarchy.Save(o.Paths.TypeHierarchy()); err != nil {
		return err
	}

	o.vtables = vtable.BuildAll(mod)
	o.NewDepGraph = depgraph.New()
	o.NewFunctions = make(map[string]function.Record)

	return nil
}

func (o *Orchestrator) rolloverAndLoad() error {
	hierarchyPath := o.Paths.TypeHierarchy()
	if err := store.Rollover(hierarchyPath); err != nil {
		return err
	}
	oldHierarchy, err := typehierarchy.Load(store.OldOf(hierarchyPath))
	if err != nil {
		o.Logger.Warn("missing or unreadable prior type hierarchy, treating as empty", slog.String("error", err.Error()))
		oldHierarchy = typehierarchy.New()
	}
	o.OldHierarchy = oldHierarchy

	depgraphPath := o.Paths.DepGraph()
	if err := store.Rollover(depgraphPath); err != nil {
		return err
	}
	oldDepGraph, err := depgraph.Load(store.OldOf(depgraphPath))
	if err != nil {
		o.Logger.Warn("missing or unreadable prior dependency graph, treating as empty", slog.String("error", err.Error()))
		oldDepGraph = depgraph.New()
	}
	o.OldDepGraph = oldDepGraph

	functionsPath := o.Paths.Functions()
	if err := store.Rollover(functionsPath); err != nil {
		return err
	}
	oldFunctions, err := function.Load(store.OldOf(functionsPath))
	if err != nil {
		o.Logger.Warn("missing or unreadable prior function records, treating as empty", slog.String("error", err.Error()))
		oldFunctions = make(map[string]function.Record)
	}
	o.OldFunctions = oldFunctions

	return nil
}

// shouldAddFunction rejects functions the call graph must not track:
// declarations, internal test-framework functions, and standard
// library functions (identified by their demangled namespace).
func shouldAddFunction(f *ir.Function) bool {
	if f == nil || f.IsDeclaration {
		return false
	}
	if ir.IsInternalFunction(f.Demangled) {
		return false
	}
	if strings.Contains(f.Demangled, "std::") || strings.Contains(f.Demangled, "__gnu_cxx::") {
		return false
	}
	return true
}

// register records f in the current function-record set (computing
// its checksum) and, if it is a constructor, remembers that for the
// constructor-liveness optimization. Re-registering an already-known
// name is a no-op.
func (o *Orchestrator) register(f *ir.Function) {
	if !shouldAddFunction(f) {
		return
	}
	if _, ok := o.NewFunctions[f.Demangled]; ok {
		return
	}

	o.NewFunctions[f.Demangled] = function.Record{
		Name:       f.Demangled,
		SourceFile: f.SourceFile,
		Checksum:   hasher.FunctionHash(f),
	}

	if function.IsConstructor(f.Mangled, f.Demangled) {
		o.constructors[f.Demangled] = struct{}{}
	}
}

// addCallDependency records the edge callee -> caller, provided both
// functions pass shouldAddFunction.
func (o *Orchestrator) addCallDependency(caller, callee *ir.Function) {
	if !shouldAddFunction(caller) || !shouldAddFunction(callee) {
		return
	}
	o.register(caller)
	o.register(callee)
	o.NewDepGraph.Add(callee.Demangled, caller.Demangled)
}

// Walk performs the call-graph walk of §4.8 over every function
// defined in mod: direct calls become direct edges, and indirect
// (virtual) calls are resolved against the type hierarchy and vtables
// into pending edges for the constructor-liveness pass in Finalize.
func (o *Orchestrator) Walk(ctx context.Context, mod *ir.Module) {
	_, span := tracer.Start(ctx, "orchestrator.walk", trace.WithAttributes(
		attribute.Int("function_count", len(mod.Functions)),
	))
	defer span.End()

	for _, f := range mod.Functions {
		if f.IsDeclaration {
			continue
		}
		o.register(f)

		for _, block := range f.Blocks {
			for _, inst := range block.Instructions {
				if inst.Opcode != ir.OpCall && inst.Opcode != ir.OpInvoke {
					continue
				}
				if inst.Called != nil {
					o.addCallDependency(f, inst.Called)
					continue
				}
				o.resolveVirtualCall(f, inst)
			}
		}
	}
}

// resolveVirtualCall attempts to resolve inst (an indirect call in
// caller) as a virtual-function call: the called value must be a load
// from a getelementptr with exactly one index, into a struct named
// "class.<Name>"; the index selects a virtual-function slot, looked
// up both in that class's vtable and in the vtable of every class
// derivedOf it.
func (o *Orchestrator) resolveVirtualCall(caller *ir.Function, inst *ir.Instruction) {
	if len(inst.Operands) == 0 {
		return
	}
	loadValue := inst.Operands[0]
	if loadValue.Kind != ir.ValueLoad || loadValue.Load == nil {
		return
	}
	gep := loadValue.Load.GEP
	if gep == nil || gep.NumIndices != 1 {
		return
	}
	if !strings.HasPrefix(gep.ClassType, "class.") {
		return
	}
	class := strings.TrimPrefix(gep.ClassType, "class.")

	candidates := map[string]struct{}{class: {}}
	for derived := range o.NewHierarchy.DerivedOf(class) {
		candidates[derived] = struct{}{}
	}

	for candidate := range candidates {
		vt, ok := o.vtables[candidate]
		if !ok {
			continue
		}
		target := vt.Slot(gep.Index)
		if target == nil || target.Demangled == pureVirtualSentinel || target.Mangled == pureVirtualSentinel {
			continue
		}
		o.stagePendingEdge(caller.Demangled, target)
	}
}

func (o *Orchestrator) stagePendingEdge(callerName string, target *ir.Function) {
	if !shouldAddFunction(target) {
		return
	}
	o.register(target)

	edge := pendingEdge{caller: callerName, target: target.Demangled}
	if _, ok := o.pendingSet[edge]; ok {
		return
	}
	o.pendingSet[edge] = struct{}{}
	o.pending = append(o.pending, edge)

	if o.Telemetry != nil {
		o.Telemetry.VirtualEdgesStaged.Inc()
	}
}
