// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ekstazi-go/ekstazi/services/ekstazi/config"
	"github.com/ekstazi-go/ekstazi/services/ekstazi/ir"
	"github.com/ekstazi-go/ekstazi/services/ekstazi/orchestrator"
	"github.com/ekstazi-go/ekstazi/services/ekstazi/store"
	"github.com/ekstazi-go/ekstazi/services/ekstazi/telemetry"
)

// gtestListFlag is the flag probed for and then passed to the test
// executable to obtain its test listing.
const gtestListFlag = "--gtest_list_tests"

// gtestHelpFlag is probed first, cheaply, to decide whether the
// configured executable is a Google-Test binary at all.
const gtestHelpFlag = "--help"

// ErrNonGtestBinary is returned when the configured test executable
// does not advertise the gtest listing flag in its help output.
var ErrNonGtestBinary = errors.New("configured executable does not advertise a gtest-style listing flag")

func newRunCommand() *cobra.Command {
	var testExecutable string
	var constructors bool

	cmd := &cobra.Command{
		Use:   "run <module.ir.json>",
		Short: "Run one analysis pass over a serialized module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0], testExecutable, constructors)
		},
	}

	cmd.Flags().StringVar(&testExecutable, "test-executable", "", "path to the compiled test binary used for listing")
	cmd.Flags().BoolVar(&constructors, "constructors", true, "enable the constructor-liveness pruning of virtual edges")

	return cmd
}

func runRun(cmd *cobra.Command, modulePath, testExecutableFlag string, constructorsFlag bool) error {
	logger := newLogger()
	ctx := context.Background()

	dir := store.DirName
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	cfg = cfg.ApplyOverrides(testExecutableFlag, cmd.Flags().Changed("constructors"), constructorsFlag)
	if err := cfg.Validate(); err != nil {
		return err
	}

	mod, err := loadModule(modulePath)
	if err != nil {
		return fmt.Errorf("loading module: %w", err)
	}

	tel, err := telemetry.New(os.Stderr, correlationID)
	if err != nil {
		return err
	}
	defer func() {
		if err := tel.Shutdown(ctx); err != nil {
			logger.Warn("trace exporter shutdown failed", slogErr(err))
		}
	}()

	paths := store.New(dir, mod.Name)
	orch := orchestrator.New(paths, logger)
	orch.Telemetry = tel

	if err := orch.Init(ctx, mod); err != nil {
		return err
	}

	testExecutable := cfg.TestExecutable
	if testExecutable == "" {
		base := filepath.Base(mod.Name)
		testExecutable = strings.TrimSuffix(base, filepath.Ext(base))
	}
	listing, err := listTests(testExecutable)
	if err != nil {
		return err
	}
	orch.Adapter.RegisterFromListing(listing)

	orch.Walk(ctx, mod)
	tel.FunctionsRegistered.Add(float64(len(orch.NewFunctions)))

	if err := orch.Finalize(ctx, cfg.Constructors); err != nil {
		return err
	}

	selected, err := countNonEmptyLines(paths.ModifiedTests())
	if err != nil {
		return err
	}
	tel.TestsSelected.Add(float64(selected))

	if err := tel.DumpMetrics(paths.Metrics()); err != nil {
		logger.Warn("failed to dump metrics", slogErr(err))
	}

	count, err := store.ReadCount(paths.Count())
	if err != nil {
		return err
	}
	return store.WriteCount(paths.Count(), count+1)
}

// listTests probes testExecutable's help output for the gtest listing
// flag and, if present, runs it with that flag to capture the
// listing. An empty testExecutable path (no frontend configured yet)
// yields an empty listing rather than an error, since orchestrator
// tests and dry runs may have no binary to probe.
func listTests(testExecutable string) (string, error) {
	if testExecutable == "" {
		return "", nil
	}

	help, err := exec.Command(testExecutable, gtestHelpFlag).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("probing %s: %w", testExecutable, err)
	}
	if !strings.Contains(string(help), gtestListFlag) {
		return "", ErrNonGtestBinary
	}

	listing, err := exec.Command(testExecutable, gtestListFlag).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("listing tests from %s: %w", testExecutable, err)
	}
	return string(listing), nil
}

func loadModule(path string) (*ir.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var mod ir.Module
	if err := json.Unmarshal(data, &mod); err != nil {
		return nil, err
	}
	return &mod, nil
}

func countNonEmptyLines(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	n := 0
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line != "" {
			n++
		}
	}
	return n, nil
}

func slogErr(err error) slog.Attr {
	return slog.String("error", err.Error())
}
