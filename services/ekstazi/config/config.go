// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the optional project-level configuration file
// and merges it with explicit CLI overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the two recognized options from §6, resolved from the
// optional YAML file and any CLI override.
//
// Description:
//
//	Loaded from <workDir>/.ekstazi/config.yaml. All fields are
//	optional; a missing config file is not an error.
//
// Thread Safety: Safe for concurrent reads after construction.
type Config struct {
	// TestExecutable is the path to the compiled test binary used for
	// listing. When empty, the run command defaults it to the module
	// basename with the IR suffix stripped.
	TestExecutable string `yaml:"test_executable" validate:"omitempty,printascii"`

	// Constructors enables the constructor-liveness pruning of virtual
	// edges (§4.8). Defaults to true.
	Constructors bool `yaml:"constructors"`
}

// Default returns the configuration in effect with no YAML file and
// no CLI overrides.
func Default() Config {
	return Config{Constructors: true}
}

const configFilename = "config.yaml"

// Load reads <dir>/config.yaml (dir is typically the metadata
// directory, e.g. ".ekstazi"). A missing file or an empty dir yields
// Default() and no error; an existing-but-malformed file is an error.
func Load(dir string) (Config, error) {
	cfg := Default()
	if dir == "" {
		return cfg, nil
	}

	path := filepath.Join(dir, configFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading %s: %w", configFilename, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", configFilename, err)
	}

	return cfg, nil
}

// ApplyOverrides merges CLI-supplied values into cfg. A blank
// testExecutable leaves cfg's value untouched; constructorsSet
// indicates whether the CLI flag was explicitly provided (cobra's
// Changed()) so an explicit "false" can override a YAML "true".
func (cfg Config) ApplyOverrides(testExecutable string, constructorsSet bool, constructors bool) Config {
	if testExecutable != "" {
		cfg.TestExecutable = testExecutable
	}
	if constructorsSet {
		cfg.Constructors = constructors
	}
	return cfg
}

var validate = validator.New()

// Validate checks the resolved configuration before the orchestrator
// runs.
func (cfg Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
