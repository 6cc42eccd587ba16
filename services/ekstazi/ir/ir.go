// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ir holds the object model the analysis pipeline operates on.
//
// A real frontend (an LLVM-bitcode or similar IR reader, paired with an
// Itanium-ABI demangler) is responsible for producing these values; this
// package only defines their shape. No parsing logic lives here.
package ir

import "strings"

// Module is one compilation unit: a source filename plus its functions
// and global variables.
type Module struct {
	Name      string
	Globals   []*GlobalVariable
	Functions []*Function
}

// Function is a single IR function definition or declaration.
type Function struct {
	// Mangled is the linker symbol name, in Itanium ABI form.
	Mangled string

	// Demangled is the human-readable form of Mangled. Frontends are
	// expected to populate this eagerly; the analysis never demangles.
	Demangled string

	// SourceFile is the file the function's definition came from.
	SourceFile string

	// IsDeclaration is true for functions with no body in this module.
	IsDeclaration bool

	IsVarArg bool
	ArgCount int

	Blocks []*BasicBlock
}

// BasicBlock is a single straight-line sequence of instructions ending
// in a terminator with zero or more successors.
type BasicBlock struct {
	Instructions []*Instruction
	Successors   []*BasicBlock
}

// Opcode identifies the kind of an Instruction.
type Opcode int

const (
	OpOther Opcode = iota
	OpCall
	OpInvoke
	OpLoad
	OpGetElementPtr
	OpTerminator
)

// Instruction is one IR instruction.
type Instruction struct {
	Opcode Opcode

	// Operands holds every value-operand of the instruction, in IR order.
	Operands []Value

	// Called is set for Call/Invoke instructions when the callee is a
	// known, directly-named function (a "direct call"). It is nil for
	// indirect calls, which are instead shaped as a Load of a
	// GetElementPtr (see GEP below) per the virtual-call pattern.
	Called *Function

	// GEP describes the getelementptr a Load instruction reads from,
	// when the instruction is shaped like an indirect (virtual) call
	// target load. Nil otherwise.
	GEP *GEPInfo
}

// GEPInfo captures the fields of a getelementptr needed to resolve a
// virtual call: the struct type being indexed into and the single
// constant index used.
type GEPInfo struct {
	// ClassType is the pointed-to struct type name, e.g. "class.Foo".
	ClassType string

	// Index is the sole index of the getelementptr. Virtual-call GEPs
	// always carry exactly one index; a GEP with any other index count
	// is not a vtable-slot access and must be ignored by callers.
	Index int

	// NumIndices is the number of indices the original instruction
	// carried, so callers can verify the "exactly one index" shape.
	NumIndices int
}

// ValueKind discriminates the Value union.
type ValueKind int

const (
	ValueOther ValueKind = iota
	ValueConstantInt
	ValueConstantFP
	ValueConstantData // byte array / string constant
	ValueConstantAggregate
	ValueConstantExpr
	ValueFunction
	ValueGlobal
	ValueLoad
)

// Value is an operand of an Instruction. Only the fields relevant to
// Kind are populated.
type Value struct {
	Kind ValueKind

	IntValue   int64
	FloatValue float64
	Bytes      []byte

	Fun    *Function
	Global *GlobalVariable

	// Load is set when Kind is ValueLoad: the load instruction that
	// produced this value, whose GEP field describes the address read;
	// used to recognize the virtual-call load-of-gep pattern.
	Load *Instruction
}

// GlobalVariable is an IR global, used both for ordinary global
// constants and for vtable definitions.
type GlobalVariable struct {
	Name string

	// HasInitializer mirrors llvm::GlobalVariable::hasInitializer().
	HasInitializer bool

	// Initializer is the global's constant initializer, when present.
	// For a vtable definition this is a ConstantAggregate whose first
	// element is a ConstantArray of the vtable slots.
	Initializer *Value

	// AggregateElements holds the initializer's array elements in
	// order, when Initializer is an aggregate/array. Slot 0 is the
	// offset-to-top, slot 1 is the RTTI pointer, and slots 2..N are
	// virtual function pointers (see vtable package).
	AggregateElements []Value

	// TypeMetadata stands in for the "type" metadata attached to a
	// vtable global by the compiler: a chain of class names, bases
	// first, concrete type last.
	TypeMetadata []string
}

// IsInternalFunction reports whether a (demangled) name belongs to the
// gtest/gtest-internal machinery rather than user code.
func IsInternalFunction(demangled string) bool {
	if strings.Contains(demangled, "testing::internal") {
		return true
	}
	for _, prefix := range []string{"testing::Assertion", "testing::Message", "testing::Test", "testing::UnitTest"} {
		if strings.HasPrefix(demangled, prefix) {
			return true
		}
	}
	return false
}
