// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gtestadapter

import "sort"

// Adapter reconciles a module's modified-function set against the
// tests registered from a binary's listing output, projecting the
// result into the three selection modes of §4.7.
type Adapter struct {
	Registry *Registry
}

// NewAdapter returns an adapter around an empty registry.
func NewAdapter() *Adapter {
	return &Adapter{Registry: NewRegistry()}
}

// RegisterFromListing parses listing and registers every test it
// names.
func (a *Adapter) RegisterFromListing(listing string) {
	for _, t := range CreateTestsFromExec(listing) {
		a.Registry.Register(t)
	}
}

// matchedTests resolves every modified function name that is a test
// signature and whose map key is registered, to its registered Test.
func (a *Adapter) matchedTests(modifiedFunctions map[string]struct{}) map[string]*Test {
	matched := make(map[string]*Test)

	for name := range modifiedFunctions {
		effective := name
		if remapped, ok := RemapValueParameterizedName(name); ok {
			effective = remapped
		}

		variant, ok := ClassifyFromIR(effective)
		if !ok {
			continue
		}
		parsed, ok := ParseFunName(variant, effective)
		if !ok {
			continue
		}

		if t, ok := a.Registry.Lookup(parsed.MapKey()); ok {
			matched[t.MapKey()] = t
		}
	}

	return matched
}

// GetModifiedFilters returns the runner filter strings for the subset
// of modifiedFunctions that resolve to a registered test, sorted for
// determinism.
func (a *Adapter) GetModifiedFilters(modifiedFunctions map[string]struct{}) []string {
	matched := a.matchedTests(modifiedFunctions)

	filters := make([]string, 0, len(matched))
	for _, t := range matched {
		filters = append(filters, t.FilterString())
	}
	sort.Strings(filters)
	return filters
}

// GetModifiedTests returns the registered Test objects matched by
// modifiedFunctions, one per matched key, ordered by map key.
func (a *Adapter) GetModifiedTests(modifiedFunctions map[string]struct{}) []*Test {
	matched := a.matchedTests(modifiedFunctions)

	keys := make([]string, 0, len(matched))
	for k := range matched {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tests := make([]*Test, 0, len(keys))
	for _, k := range keys {
		tests = append(tests, matched[k])
	}
	return tests
}

// GetModifiedTestsSelCase is GetModifiedTests, additionally including
// every registered test that shares a case name with any matched
// test.
func (a *Adapter) GetModifiedTestsSelCase(modifiedFunctions map[string]struct{}) []*Test {
	matched := a.matchedTests(modifiedFunctions)

	cases := make(map[string]struct{}, len(matched))
	for _, t := range matched {
		cases[t.CaseName] = struct{}{}
	}

	var tests []*Test
	for _, t := range a.Registry.All() {
		if _, ok := cases[t.CaseName]; ok {
			tests = append(tests, t)
		}
	}
	return tests
}
