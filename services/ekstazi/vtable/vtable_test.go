// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package vtable

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekstazi-go/ekstazi/services/ekstazi/ir"
)

func TestIsVTableDefRequiresTagAndInitializer(t *testing.T) {
	assert.True(t, IsVTableDef(&ir.GlobalVariable{
		Name:              "_ZTV3Foo",
		HasInitializer:    true,
		AggregateElements: []ir.Value{{Kind: ir.ValueConstantInt}},
	}))

	assert.False(t, IsVTableDef(&ir.GlobalVariable{Name: "_ZTV3Foo", HasInitializer: false}))
	assert.False(t, IsVTableDef(&ir.GlobalVariable{Name: "someOtherGlobal", HasInitializer: true, AggregateElements: []ir.Value{{}}}))
}

func TestBuildSkipsNonFunctionSlots(t *testing.T) {
	virt := &ir.Function{Demangled: "Foo::virt()"}
	gv := &ir.GlobalVariable{
		Name:           "_ZTV3Foo",
		HasInitializer: true,
		AggregateElements: []ir.Value{
			{Kind: ir.ValueConstantInt}, // offset-to-top
			{Kind: ir.ValueConstantInt}, // RTTI
			{Kind: ir.ValueFunction, Fun: virt},
			{Kind: ir.ValueConstantInt}, // non-function slot, skipped
		},
	}

	vt := Build("Foo", gv)
	assert.Equal(t, 1, vt.NumSlots())
	assert.Equal(t, virt, vt.Slot(0))
	assert.Nil(t, vt.Slot(1))
}

func TestBuildAllIndexesByConcreteClassFromTypeMetadata(t *testing.T) {
	mod := &ir.Module{
		Globals: []*ir.GlobalVariable{
			{
				Name:              "_ZTV1B",
				HasInitializer:    true,
				TypeMetadata:      []string{"A", "B"},
				AggregateElements: []ir.Value{{}, {}, {Kind: ir.ValueFunction, Fun: &ir.Function{Demangled: "B::virt()"}}},
			},
		},
	}

	table := BuildAll(mod)
	vt, ok := table["B"]
	assert.True(t, ok)
	assert.Equal(t, 1, vt.NumSlots())
}

func TestBuildAllSkipsNonVTableGlobals(t *testing.T) {
	mod := &ir.Module{
		Globals: []*ir.GlobalVariable{
			{Name: "someGlobal", HasInitializer: true, AggregateElements: []ir.Value{{}}},
		},
	}
	assert.Empty(t, BuildAll(mod))
}
