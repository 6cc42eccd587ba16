// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package typehierarchy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddInheritanceUpdatesBothAdjacencies(t *testing.T) {
	h := New()
	h.AddInheritance("Base", "Derived")

	assert.Contains(t, h.DerivedOf("Base"), "Derived")
	assert.Contains(t, h.SuperOf("Derived"), "Base")
}

func TestMultipleInheritance(t *testing.T) {
	h := New()
	h.AddInheritance("Base1", "Derived")
	h.AddInheritance("Base2", "Derived")

	supers := h.SuperOf("Derived")
	assert.Contains(t, supers, "Base1")
	assert.Contains(t, supers, "Base2")
}

func TestDerivedOfIsTransitive(t *testing.T) {
	h := New()
	h.AddInheritance("A", "B")
	h.AddInheritance("B", "C")

	derived := h.DerivedOf("A")
	assert.Contains(t, derived, "B")
	assert.Contains(t, derived, "C")
}

func TestContainsChecksKeysThenValues(t *testing.T) {
	h := New()
	h.AddInheritance("Base", "Derived")

	assert.True(t, h.Contains("Base"))
	assert.True(t, h.Contains("Derived"))
	assert.False(t, h.Contains("Unknown"))
}

func TestSaveLoadRoundTripsBothAdjacencies(t *testing.T) {
	h := New()
	h.AddInheritance("A", "B")
	h.AddInheritance("A", "C")
	h.Dedup()

	path := filepath.Join(t.TempDir(), "types.txt")
	require.NoError(t, h.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"B", "C"}, adjSlice(loaded.derived, "A"))
	assert.ElementsMatch(t, []string{"A"}, adjSlice(loaded.super, "B"))
}

func TestSaveFormatHasTrailingDelimiter(t *testing.T) {
	h := New()
	h.AddInheritance("Base", "Derived")

	path := filepath.Join(t.TempDir(), "types.txt")
	require.NoError(t, h.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(data), "Base;Derived;\n")
}

func TestLoadMissingFileYieldsEmptyHierarchy(t *testing.T) {
	h, err := Load(filepath.Join(t.TempDir(), "absent.txt"))
	require.NoError(t, err)
	assert.Equal(t, 0, h.Size())
}

func adjSlice(adj map[string][]string, key string) []string {
	return adj[key]
}
