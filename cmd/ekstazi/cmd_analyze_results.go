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
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ekstazi-go/ekstazi/services/ekstazi/function"
	"github.com/ekstazi-go/ekstazi/services/ekstazi/gtestadapter"
	"github.com/ekstazi-go/ekstazi/services/ekstazi/store"
	"github.com/ekstazi-go/ekstazi/services/ekstazi/typehierarchy"
)

// newAnalyzeResultsCommand is a supplementary tool, grounded in the
// original results analyzer: it re-derives summary counts from a prior
// run's persisted artifacts under both function-level and class-level
// modularity, without re-running the call-graph walk.
func newAnalyzeResultsCommand() *cobra.Command {
	var module string
	var testExecutable string

	cmd := &cobra.Command{
		Use:   "analyze-results",
		Short: "Summarize the test selection from the most recent run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyzeResults(module, testExecutable)
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "module basename whose run to analyze")
	cmd.Flags().StringVar(&testExecutable, "test-executable", "", "path to the compiled test binary used for listing")
	_ = cmd.MarkFlagRequired("module")

	return cmd
}

func runAnalyzeResults(module, testExecutable string) error {
	paths := store.New(store.DirName, module)

	modifiedFunctions, err := readLineSet(paths.ModifiedFunctions())
	if err != nil {
		return err
	}

	oldFunctions, err := function.Load(store.OldOf(paths.Functions()))
	if err != nil {
		return err
	}

	oldHierarchy, err := typehierarchy.Load(store.OldOf(paths.TypeHierarchy()))
	if err != nil {
		return err
	}
	newHierarchy, err := typehierarchy.Load(paths.TypeHierarchy())
	if err != nil {
		return err
	}

	listing, err := listTests(testExecutable)
	if err != nil {
		return err
	}
	adapter := gtestadapter.NewAdapter()
	adapter.RegisterFromListing(listing)

	funTests := adapter.GetModifiedTests(modifiedFunctions)
	caseTests := adapter.GetModifiedTestsSelCase(modifiedFunctions)
	classModified := expandToClassLevel(modifiedFunctions, oldFunctions, oldHierarchy, newHierarchy)
	classTests := adapter.GetModifiedTests(classModified)

	fmt.Printf("modified_functions: %d\n", len(modifiedFunctions))
	fmt.Printf("num_tests_fun_test: %d\n", len(funTests))
	fmt.Printf("num_tests_fun_case: %d\n", len(caseTests))
	fmt.Printf("num_tests_class: %d\n", len(classTests))
	return nil
}

// expandToClassLevel widens modifiedFunctions to class-level
// modularity: for every modified name that names a class or namespace
// member, and whose qualifier is a known class in either generation of
// the type hierarchy, every function in the old function set whose
// name contains that qualifier as a substring is added to the result.
func expandToClassLevel(modifiedFunctions map[string]struct{}, oldFunctions map[string]function.Record, oldHierarchy, newHierarchy *typehierarchy.Hierarchy) map[string]struct{} {
	widened := make(map[string]struct{}, len(modifiedFunctions))
	for name := range modifiedFunctions {
		widened[name] = struct{}{}

		class, short := function.SplitClassName(name, false)
		if short == "" {
			continue
		}
		if !oldHierarchy.Contains(class) && !newHierarchy.Contains(class) {
			continue
		}
		for other := range oldFunctions {
			if strings.Contains(other, class) {
				widened[other] = struct{}{}
			}
		}
	}
	return widened
}

func readLineSet(path string) (map[string]struct{}, error) {
	set := make(map[string]struct{})

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			set[line] = struct{}{}
		}
	}
	return set, scanner.Err()
}
