// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package vtable reconstructs virtual-function tables from the
// constant initializers of IR global variables.
package vtable

import (
	"strings"

	"github.com/ekstazi-go/ekstazi/services/ekstazi/ir"
)

// mangledVTableTag is the Itanium mangled vtable symbol infix, e.g.
// "_ZTV3Foo".
const mangledVTableTag = "TV"

// namePrefix is the human-readable vtable name prefix used by the
// demangler, e.g. "vtable for Foo".
const namePrefix = "vtable for "

// firstSlotVFunction is the index of the first virtual-function
// pointer slot: slot 0 is the offset-to-top, slot 1 is the RTTI
// pointer.
const firstSlotVFunction = 2

// IsVTableDef reports whether gv is a vtable definition: its name
// carries the mangled vtable tag (or the demangled "vtable for "
// prefix) and it has an initializer with at least one element in
// AggregateElements, which stands in for the initializer's constant
// array; the element kinds are not checked here.
func IsVTableDef(gv *ir.GlobalVariable) bool {
	if gv == nil || !gv.HasInitializer {
		return false
	}
	if !strings.Contains(gv.Name, mangledVTableTag) && !strings.HasPrefix(gv.Name, namePrefix) {
		return false
	}
	return len(gv.AggregateElements) > 0
}

// VTable is a reconstructed virtual-function table for one class.
type VTable struct {
	Class       string
	OffsetToTop ir.Value
	RTTI        ir.Value
	VirtualFuns []*ir.Function
}

// Build reconstructs a VTable from gv, naming it class. Slot 0 is kept
// as OffsetToTop, slot 1 as RTTI; every slot from 2 on is examined
// after stripping bitcasts (modeled here as simply reading the
// ValueFunction variant of the element) and, when it names a
// function, appended to VirtualFuns in slot order. Non-function slots
// are skipped, not zero-filled, matching the original reconstruction.
// A `__cxa_pure_virtual` slot is a function slot and is kept; callers
// recognize it by name.
func Build(class string, gv *ir.GlobalVariable) *VTable {
	vt := &VTable{Class: class}

	elems := gv.AggregateElements
	if len(elems) > 0 {
		vt.OffsetToTop = elems[0]
	}
	if len(elems) > 1 {
		vt.RTTI = elems[1]
	}

	for i := firstSlotVFunction; i < len(elems); i++ {
		if elems[i].Kind == ir.ValueFunction && elems[i].Fun != nil {
			vt.VirtualFuns = append(vt.VirtualFuns, elems[i].Fun)
		}
	}

	return vt
}

// Slot returns the function at the given virtual-function slot index
// (0-based, relative to the first function slot), or nil if the index
// is out of range.
func (vt *VTable) Slot(index int) *ir.Function {
	if index < 0 || index >= len(vt.VirtualFuns) {
		return nil
	}
	return vt.VirtualFuns[index]
}

// NumSlots returns the number of virtual-function slots in vt.
func (vt *VTable) NumSlots() int {
	return len(vt.VirtualFuns)
}

// Table indexes every reconstructed vtable in a module by class name.
type Table map[string]*VTable

// BuildAll scans a module's globals for vtable definitions and
// reconstructs one VTable per class, keyed by the concrete class name
// taken from the last entry of the global's TypeMetadata chain (base
// classes first, concrete type last) when present, falling back to the
// demangled class name stripped from the global's own name.
func BuildAll(mod *ir.Module) Table {
	table := make(Table)
	for _, gv := range mod.Globals {
		if !IsVTableDef(gv) {
			continue
		}
		class := classNameOf(gv)
		if class == "" {
			continue
		}
		table[class] = Build(class, gv)
	}
	return table
}

func classNameOf(gv *ir.GlobalVariable) string {
	if len(gv.TypeMetadata) > 0 {
		return gv.TypeMetadata[len(gv.TypeMetadata)-1]
	}
	if strings.HasPrefix(gv.Name, namePrefix) {
		return strings.TrimPrefix(gv.Name, namePrefix)
	}
	return ""
}
