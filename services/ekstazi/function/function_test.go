// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package function

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModifiedIsEmptyForIdenticalSets(t *testing.T) {
	set := map[string]Record{
		"ns::Foo::bar()": {Name: "ns::Foo::bar()", SourceFile: "foo.cc", Checksum: 42},
	}
	assert.Empty(t, GetModified(set, set))
}

func TestGetModifiedDetectsAddedRemovedAndChanged(t *testing.T) {
	old := map[string]Record{
		"removed": {Name: "removed", Checksum: 1},
		"changed": {Name: "changed", Checksum: 1},
		"same":    {Name: "same", Checksum: 1},
	}
	newSet := map[string]Record{
		"added":   {Name: "added", Checksum: 1},
		"changed": {Name: "changed", Checksum: 2},
		"same":    {Name: "same", Checksum: 1},
	}

	modified := GetModified(old, newSet)
	assert.Contains(t, modified, "removed")
	assert.Contains(t, modified, "added")
	assert.Contains(t, modified, "changed")
	assert.NotContains(t, modified, "same")
}

func TestSplitClassNameFindsLastSeparatorBeforeArgs(t *testing.T) {
	class, short := SplitClassName("ns::Outer::Inner::method(int, char)", false)
	assert.Equal(t, "ns::Outer::Inner", class)
	assert.Equal(t, "method", short)
}

func TestSplitClassNameWithNoQualifier(t *testing.T) {
	class, short := SplitClassName("freeFunction(int)", false)
	assert.Equal(t, "freeFunction", class)
	assert.Equal(t, "", short)
}

func TestIsConstructorRequiresMatchingClassAndTag(t *testing.T) {
	assert.True(t, IsConstructor("_ZN2ns3FooC1Ev", "ns::Foo::Foo()"))
	assert.False(t, IsConstructor("_ZN2ns3FooC1Ev", "ns::Foo::Bar()"))
	assert.False(t, IsConstructor("_ZN2ns3Foo4barEv", "ns::Foo::bar()"))
}

func TestSaveLoadRoundTripsRecords(t *testing.T) {
	records := map[string]Record{
		"ns::Foo::bar()": {Name: "ns::Foo::bar()", SourceFile: "foo.cc", Checksum: 123456789},
	}

	path := filepath.Join(t.TempDir(), "functions.txt")
	require.NoError(t, Save(path, records))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}

func TestLoadMissingFileYieldsEmptyMap(t *testing.T) {
	loaded, err := Load(filepath.Join(t.TempDir(), "absent.txt"))
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "functions.txt")
	require.NoError(t, os.WriteFile(path, []byte("good;file.cc;1\nmalformed-line\nalso;bad\n"), 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
	assert.Contains(t, loaded, "good")
}
