// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingDirYieldsDefault(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEmptyDirStringYieldsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadParsesYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("test_executable: ./suite\nconstructors: false\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "./suite", cfg.TestExecutable)
	assert.False(t, cfg.Constructors)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("test_executable: [unterminated\n"), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestApplyOverridesPrefersExplicitCLIFlags(t *testing.T) {
	cfg := Default()
	cfg.TestExecutable = "from-yaml"

	resolved := cfg.ApplyOverrides("from-cli", true, false)
	assert.Equal(t, "from-cli", resolved.TestExecutable)
	assert.False(t, resolved.Constructors)
}

func TestApplyOverridesLeavesValuesWhenNotProvided(t *testing.T) {
	cfg := Default()
	cfg.TestExecutable = "from-yaml"

	resolved := cfg.ApplyOverrides("", false, false)
	assert.Equal(t, "from-yaml", resolved.TestExecutable)
	assert.True(t, resolved.Constructors)
}

func TestValidatePassesForDefault(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
