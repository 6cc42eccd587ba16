// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hasher computes a structural, location-independent hash of
// an IR function, used to detect whether a function's body changed
// between two runs.
package hasher

import (
	"math"

	"github.com/ekstazi-go/ekstazi/services/ekstazi/ir"
)

// seed is the fixed 64-bit accumulator seed.
const seed uint64 = 0x6acaa36bef8325c5

// blockHeader is mixed in once per basic block, before its
// instructions.
const blockHeader uint64 = 45798

// Accumulator mixes values into a running 64-bit hash. It is not
// safe for concurrent use.
type Accumulator struct {
	hash uint64
}

// NewAccumulator returns an accumulator seeded with the fixed constant.
func NewAccumulator() *Accumulator {
	return &Accumulator{hash: seed}
}

// AddUint64 mixes in a 64-bit value using a position-sensitive step.
func (a *Accumulator) AddUint64(v uint64) {
	a.hash = hash16Bytes(a.hash, v)
}

// AddString mixes in the bytes of s using a commutative
// hash-accumulate step.
func (a *Accumulator) AddString(s string) {
	a.hash += hashBytes([]byte(s))
}

// AddBytes mixes in raw bytes the same way AddString does.
func (a *Accumulator) AddBytes(b []byte) {
	a.hash += hashBytes(b)
}

// Sum returns the accumulated hash.
func (a *Accumulator) Sum() uint64 {
	return a.hash
}

// hash16Bytes combines two 64-bit words into one, mirroring the
// multiply/xor-shift 16-byte mixing step (LLVM's hash_16_bytes) used by
// structural IR comparators: deterministic, position-sensitive, and stable across
// runs within this process and across processes given the same input.
func hash16Bytes(a, b uint64) uint64 {
	const mul uint64 = 0x9ddfea08eb382d69
	c := (a ^ b) * mul
	c ^= c >> 47
	d := (b ^ c) * mul
	d ^= d >> 47
	d *= mul
	return d
}

// hashBytes is a simple commutative-friendly accumulation of raw
// bytes, used where order sensitivity is provided by the caller's
// position in the mixing sequence rather than by this primitive.
func hashBytes(b []byte) uint64 {
	const prime uint64 = 1099511628211
	h := uint64(14695981039346656037)
	for _, c := range b {
		h ^= uint64(c)
		h *= prime
	}
	return h
}

// FunctionHash computes the structural hash of f, independent of
// source location and independent of calls made into the test
// framework.
func FunctionHash(f *ir.Function) uint64 {
	acc := NewAccumulator()

	if f.IsVarArg {
		acc.AddUint64(1)
	} else {
		acc.AddUint64(0)
	}
	acc.AddUint64(uint64(f.ArgCount))

	visited := make(map[*ir.BasicBlock]struct{})
	var stack []*ir.BasicBlock
	if len(f.Blocks) > 0 {
		stack = append(stack, f.Blocks[0])
	}

	for len(stack) > 0 {
		block := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[block]; seen {
			continue
		}
		visited[block] = struct{}{}

		mixBlock(acc, block)

		for _, succ := range block.Successors {
			if _, seen := visited[succ]; !seen {
				stack = append(stack, succ)
			}
		}
	}

	return acc.Sum()
}

func mixBlock(acc *Accumulator, block *ir.BasicBlock) {
	acc.AddUint64(blockHeader)

	for _, inst := range block.Instructions {
		acc.AddUint64(uint64(inst.Opcode))

		isInternalCall := (inst.Opcode == ir.OpCall || inst.Opcode == ir.OpInvoke) &&
			inst.Called != nil && ir.IsInternalFunction(inst.Called.Demangled)

		if inst.Opcode == ir.OpCall || inst.Opcode == ir.OpInvoke {
			if isInternalCall {
				continue
			}
			for _, operand := range inst.Operands {
				if operand.Kind == ir.ValueFunction {
					continue
				}
				mixConstant(acc, operand)
			}
			continue
		}

		for _, operand := range inst.Operands {
			mixConstant(acc, operand)
		}
	}
}

// mixConstant mixes the content of a single operand per §4.6.1.
// Aggregate and constexpr constants, and globals referencing the test
// framework, are intentionally no-ops (a documented precision limit).
// A global with an initializer recurses into it.
func mixConstant(acc *Accumulator, v ir.Value) {
	switch v.Kind {
	case ir.ValueConstantInt:
		acc.AddUint64(uint64(v.IntValue))
	case ir.ValueConstantFP:
		acc.AddUint64(math.Float64bits(v.FloatValue))
	case ir.ValueConstantData:
		acc.AddBytes(v.Bytes)
	case ir.ValueConstantAggregate, ir.ValueConstantExpr:
		// no-op: see §4.6.1 in the design notes.
	case ir.ValueGlobal:
		if v.Global == nil {
			return
		}
		if ir.IsInternalFunction(v.Global.Name) {
			return
		}
		if v.Global.HasInitializer && v.Global.Initializer != nil {
			mixConstant(acc, *v.Global.Initializer)
		}
	default:
		// ValueFunction, ValueLoad, ValueOther: not constants, not mixed.
	}
}
