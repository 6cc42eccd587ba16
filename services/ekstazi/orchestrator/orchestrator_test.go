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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekstazi-go/ekstazi/services/ekstazi/ir"
	"github.com/ekstazi-go/ekstazi/services/ekstazi/store"
)

// fn is a test helper building a minimal single-block ir.Function.
func fn(mangled, demangled string, instructions ...*ir.Instruction) *ir.Function {
	return &ir.Function{
		Mangled:    mangled,
		Demangled:  demangled,
		SourceFile: "fixture.cc",
		Blocks: []*ir.BasicBlock{
			{Instructions: instructions},
		},
	}
}

func directCall(target *ir.Function) *ir.Instruction {
	return &ir.Instruction{Opcode: ir.OpCall, Called: target}
}

func virtualCall(class string, index int) *ir.Instruction {
	return &ir.Instruction{
		Opcode: ir.OpCall,
		Operands: []ir.Value{
			{
				Kind: ir.ValueLoad,
				Load: &ir.Instruction{
					GEP: &ir.GEPInfo{ClassType: "class." + class, Index: index, NumIndices: 1},
				},
			},
		},
	}
}

func vtableGlobal(name string, chain []string, slots ...*ir.Function) *ir.GlobalVariable {
	elems := []ir.Value{{Kind: ir.ValueOther}, {Kind: ir.ValueOther}}
	for _, s := range slots {
		if s == nil {
			elems = append(elems, ir.Value{Kind: ir.ValueOther})
			continue
		}
		elems = append(elems, ir.Value{Kind: ir.ValueFunction, Fun: s})
	}
	return &ir.GlobalVariable{
		Name:              name,
		HasInitializer:    true,
		AggregateElements: elems,
		TypeMetadata:      chain,
	}
}

// buildFixture returns a module modeling:
//
//	ns::Base         (abstract, Speak() pure virtual)
//	ns::Derived : ns::Base   (overrides Speak())
//	ns::Orphan  : ns::Base   (overrides Speak(), never constructed by any test)
//
// and a single test that constructs a ns::Derived and calls Speak()
// through a ns::Base* pointer.
func buildFixture() (*ir.Module, *ir.Function, *ir.Function, *ir.Function) {
	pureVirtual := &ir.Function{Mangled: pureVirtualSentinel, Demangled: pureVirtualSentinel}

	derivedSpeak := fn("_ZN2ns7Derived5SpeakEv", "ns::Derived::Speak()")
	orphanSpeak := fn("_ZN2ns6Orphan5SpeakEv", "ns::Orphan::Speak()")

	derivedCtor := fn("_ZN2ns7DerivedC1Ev", "ns::Derived::Derived()")
	orphanCtor := fn("_ZN2ns6OrphanC1Ev", "ns::Orphan::Orphan()")

	testFunc := fn("_ZN2ns18CaseA_Case1_TestBodyEv", "ns::CaseA_Case1_Test::TestBody()",
		directCall(derivedCtor),
		virtualCall("ns::Base", 0),
	)

	baseVT := vtableGlobal("_ZTV7Base", []string{"ns::Base"}, pureVirtual)
	derivedVT := vtableGlobal("_ZTV10Derived", []string{"ns::Base", "ns::Derived"}, derivedSpeak)
	orphanVT := vtableGlobal("_ZTV6Orphan", []string{"ns::Base", "ns::Orphan"}, orphanSpeak)

	mod := &ir.Module{
		Name:    "fixture.cc",
		Globals: []*ir.GlobalVariable{baseVT, derivedVT, orphanVT},
		Functions: []*ir.Function{
			testFunc, derivedCtor, orphanCtor, derivedSpeak, orphanSpeak,
		},
	}
	return mod, testFunc, derivedCtor, derivedSpeak
}

func newOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	dir := filepath.Join(t.TempDir(), store.DirName)
	return New(store.New(dir, "fixture"), nil)
}

func TestInitBuildsHierarchyFromVTableTypeMetadata(t *testing.T) {
	mod, _, _, _ := buildFixture()
	o := newOrchestrator(t)

	require.NoError(t, o.Init(context.Background(), mod))

	derived := o.NewHierarchy.DerivedOf("ns::Base")
	assert.Contains(t, derived, "ns::Derived")
	assert.Contains(t, derived, "ns::Orphan")
}

func TestWalkRegistersDirectCallEdge(t *testing.T) {
	mod, testFunc, derivedCtor, _ := buildFixture()
	o := newOrchestrator(t)
	require.NoError(t, o.Init(context.Background(), mod))

	o.Walk(context.Background(), mod)

	assert.True(t, o.NewDepGraph.Exists(derivedCtor.Demangled, testFunc.Demangled))
}

func TestFinalizeInstallsLiveVirtualEdgeAndDropsOrphan(t *testing.T) {
	mod, testFunc, _, derivedSpeak := buildFixture()
	o := newOrchestrator(t)
	require.NoError(t, o.Init(context.Background(), mod))
	o.Walk(context.Background(), mod)

	require.NoError(t, o.Finalize(context.Background(), true))

	assert.True(t, o.NewDepGraph.Exists(derivedSpeak.Demangled, testFunc.Demangled))
	assert.False(t, o.NewDepGraph.Exists("ns::Orphan::Speak()", testFunc.Demangled))
}

func TestFinalizeWithConstructorsOffInstallsEveryPendingEdge(t *testing.T) {
	mod, testFunc, _, _ := buildFixture()
	o := newOrchestrator(t)
	require.NoError(t, o.Init(context.Background(), mod))
	o.Walk(context.Background(), mod)

	require.NoError(t, o.Finalize(context.Background(), false))

	assert.True(t, o.NewDepGraph.Exists("ns::Derived::Speak()", testFunc.Demangled))
	assert.True(t, o.NewDepGraph.Exists("ns::Orphan::Speak()", testFunc.Demangled))
}

func TestFinalizeNeverInstallsPureVirtualSentinel(t *testing.T) {
	mod, testFunc, _, _ := buildFixture()
	o := newOrchestrator(t)
	require.NoError(t, o.Init(context.Background(), mod))
	o.Walk(context.Background(), mod)
	require.NoError(t, o.Finalize(context.Background(), false))

	assert.False(t, o.NewDepGraph.Exists(pureVirtualSentinel, testFunc.Demangled))
}

func TestFinalizeWritesModifiedFunctionsOnFirstRun(t *testing.T) {
	mod, _, derivedCtor, _ := buildFixture()
	o := newOrchestrator(t)
	require.NoError(t, o.Init(context.Background(), mod))
	o.Walk(context.Background(), mod)
	require.NoError(t, o.Finalize(context.Background(), true))

	data, err := os.ReadFile(o.Paths.ModifiedFunctions())
	require.NoError(t, err)
	assert.Contains(t, string(data), derivedCtor.Demangled)
}

func TestFinalizeSelectsModifiedTestViaAdapter(t *testing.T) {
	mod, testFunc, _, _ := buildFixture()
	o := newOrchestrator(t)
	require.NoError(t, o.Init(context.Background(), mod))
	o.Adapter.RegisterFromListing("CaseA.\n  Case1\n")
	o.Walk(context.Background(), mod)
	require.NoError(t, o.Finalize(context.Background(), true))

	data, err := os.ReadFile(o.Paths.ModifiedTests())
	require.NoError(t, err)
	assert.Contains(t, string(data), "CaseA.Case1")
	_ = testFunc
}
