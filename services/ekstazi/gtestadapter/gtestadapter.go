// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gtestadapter classifies and parses Google-Test-style tests
// in both directions: from a compiled function's demangled IR name,
// and from the compiled binary's own test-listing output. It
// reconciles the two into a single, variant-independent map key.
package gtestadapter

import (
	"sort"
	"strings"
)

// Variant discriminates the four shapes a Google Test can take. The
// ordering matters wherever variants are tried in sequence: Normal's
// signature is a suffix of every other variant's, so it must always
// be tried last.
type Variant int

const (
	Normal Variant = iota
	Typed
	TypeParameterized
	ValueParameterized
)

func (v Variant) String() string {
	switch v {
	case Typed:
		return "Typed"
	case TypeParameterized:
		return "TypeParameterized"
	case ValueParameterized:
		return "ValueParameterized"
	default:
		return "Normal"
	}
}

const (
	typedSignatureBegin = "_Test<"
	typedSignatureEnd   = ">::TestBody()"

	typeParameterizedSignatureBegin = "gtest_case_"
	typeParameterizedSignatureEnd   = "::TestBody()"
	typeParameterizedSeparator      = "_::"

	valueParameterizedSignatureBegin = "testing::internal::ParameterizedTestFactory<"
	valueParameterizedSignatureEnd   = ">::CreateTest()"
	valueParameterizedClassSuffix    = "_Test"

	normalSignatureEnd = "_Test::TestBody()"

	typeParamHeaderSignature = "# TypeParam = "
	getParamLineSignature    = "# GetParam() = "

	maxTypeParamLen = 250
)

// Test is a single registered test, in whichever variant shape it was
// discovered. Fields not meaningful to a variant are left zero.
type Test struct {
	Variant   Variant
	CaseName  string
	Name      string
	Prefix    string // type-parameterized only
	Index     string // typed / type-parameterized only: the instantiation index
	TypeParam string // typed / type-parameterized only
}

// MapKey returns the canonical key used to reconcile IR-derived and
// listing-derived identities of the same test.
func (t *Test) MapKey() string {
	switch t.Variant {
	case Typed, TypeParameterized:
		return t.CaseName + "_" + t.Name + "_" + t.TypeParam
	default: // Normal, ValueParameterized
		return t.CaseName + "_" + t.Name
	}
}

// FilterString returns the runner filter string selecting this test.
func (t *Test) FilterString() string {
	switch t.Variant {
	case Typed:
		return t.CaseName + "/" + t.Index + "." + t.Name
	case TypeParameterized:
		if t.Prefix == "" {
			return t.CaseName + "/" + t.Index + "." + t.Name
		}
		return t.Prefix + "/" + t.CaseName + "/" + t.Index + "." + t.Name
	case ValueParameterized:
		return "*" + t.CaseName + "." + t.Name + "*"
	default:
		return t.CaseName + "." + t.Name
	}
}

func truncateTypeParam(s string) string {
	if len(s) <= maxTypeParamLen {
		return s
	}
	return s[:maxTypeParamLen]
}

// ClassifyFromIR determines which variant a demangled IR function name
// belongs to, trying signatures in the load-bearing order documented
// in Variant. It returns false if demangled does not look like any
// gtest test body / factory symbol.
func ClassifyFromIR(demangled string) (Variant, bool) {
	if strings.Contains(demangled, "testing::internal::ParameterizedTestFactory") &&
		strings.HasSuffix(demangled, valueParameterizedClassSuffix+valueParameterizedSignatureEnd) {
		return ValueParameterized, true
	}
	if strings.Contains(demangled, typeParameterizedSignatureBegin) &&
		strings.HasSuffix(demangled, typeParameterizedSignatureEnd) {
		return TypeParameterized, true
	}
	if strings.Contains(demangled, typedSignatureBegin) && strings.Contains(demangled, typedSignatureEnd) {
		return Typed, true
	}
	if strings.HasSuffix(demangled, normalSignatureEnd) {
		return Normal, true
	}
	return 0, false
}

// ParseFunName parses a demangled IR function name into a Test,
// dispatching on the already-classified variant. For
// ValueParameterized, name must already be the remapped
// "...::TestBody()" form (see RemapValueParameterizedName); it is not
// the raw factory symbol.
func ParseFunName(variant Variant, demangled string) (*Test, bool) {
	switch variant {
	case Typed:
		return parseTyped(demangled)
	case TypeParameterized:
		return parseTypeParameterized(demangled)
	default:
		return parseNormal(demangled)
	}
}

func splitQualifiedShort(qualified string) (caseName, name string) {
	short := qualified
	if sep := strings.LastIndex(qualified, "::"); sep >= 0 {
		short = qualified[sep+2:]
	}
	if underscore := strings.Index(short, "_"); underscore >= 0 {
		return short[:underscore], short[underscore+1:]
	}
	return short, ""
}

func parseNormal(demangled string) (*Test, bool) {
	if !strings.HasSuffix(demangled, normalSignatureEnd) {
		return nil, false
	}
	qualified := strings.TrimSuffix(demangled, normalSignatureEnd)
	caseName, name := splitQualifiedShort(qualified)
	return &Test{Variant: Normal, CaseName: caseName, Name: name}, true
}

func parseTyped(demangled string) (*Test, bool) {
	idx := strings.Index(demangled, typedSignatureBegin)
	if idx < 0 || !strings.HasSuffix(demangled, typedSignatureEnd) {
		return nil, false
	}
	typeParam := demangled[idx+len(typedSignatureBegin) : len(demangled)-len(typedSignatureEnd)]
	qualified := demangled[:idx]
	caseName, name := splitQualifiedShort(qualified)
	return &Test{
		Variant:   Typed,
		CaseName:  caseName,
		Name:      name,
		TypeParam: truncateTypeParam(typeParam),
	}, true
}

func parseTypeParameterized(demangled string) (*Test, bool) {
	begin := strings.Index(demangled, typeParameterizedSignatureBegin)
	if begin < 0 {
		return nil, false
	}
	rest := demangled[begin+len(typeParameterizedSignatureBegin):]

	sep := strings.Index(rest, typeParameterizedSeparator)
	if sep < 0 {
		return nil, false
	}
	caseName := rest[:sep]
	after := rest[sep+len(typeParameterizedSeparator):]

	if !strings.HasSuffix(after, typeParameterizedSignatureEnd) {
		return nil, false
	}
	ltIdx := strings.Index(after, "<")
	if ltIdx < 0 {
		return nil, false
	}
	nameArea := after[:ltIdx]
	typeParam := after[ltIdx+1 : len(after)-len(">"+typeParameterizedSignatureEnd)]

	prefix := "gtest_" + caseName + "_"
	name := strings.TrimPrefix(nameArea, prefix)

	return &Test{
		Variant:   TypeParameterized,
		CaseName:  caseName,
		Name:      name,
		TypeParam: truncateTypeParam(typeParam),
	}, true
}

// RemapValueParameterizedName translates a factory-style
// value-parameterized IR symbol,
// "testing::internal::ParameterizedTestFactory<ns::Case_Name_Test>::CreateTest()",
// into its "...::TestBody()" equivalent,
// "ns::Case_Name_Test::TestBody()", so lookups use the common key that
// a listing-derived Test was registered under.
func RemapValueParameterizedName(demangled string) (string, bool) {
	idx := strings.Index(demangled, valueParameterizedSignatureBegin)
	if idx < 0 || !strings.HasSuffix(demangled, valueParameterizedSignatureEnd) {
		return "", false
	}
	inner := demangled[idx+len(valueParameterizedSignatureBegin) : len(demangled)-len(valueParameterizedSignatureEnd)]
	if !strings.HasSuffix(inner, valueParameterizedClassSuffix) {
		return "", false
	}
	return inner + "::TestBody()", true
}

// ClassifyFromListing determines the variant of a test-case header
// line (e.g. "Prefix/Case/0.  # TypeParam = int" or "Case.") together
// with its first indented test-name line (e.g. "Name  # GetParam() =
// 5"). header must already have its trailing "." and any inline
// comment present; firstTestLine is the raw (un-trimmed) first test
// name under that header, or "" if unknown.
//
// A single "/" before the index (e.g. "Case/0.") is the ordinary
// instantiated-typed-test shape and is classified as Typed; a second
// "/" (e.g. "Prefix/Case/0.") is what distinguishes a
// type-parameterized case that was registered with an explicit
// instantiation prefix. A type-parameterized case registered with an
// empty prefix is observationally identical to a typed case (same map
// key formula, same filter shape), so no information is lost by
// classifying it as Typed here.
func ClassifyFromListing(header, firstTestLine string) Variant {
	if idx := strings.Index(header, typeParamHeaderSignature); idx >= 0 {
		caseArea := strings.TrimSuffix(strings.TrimSpace(header[:idx]), ".")
		if strings.Count(caseArea, "/") >= 2 {
			return TypeParameterized
		}
		return Typed
	}
	if strings.Contains(firstTestLine, getParamLineSignature) {
		return ValueParameterized
	}
	return Normal
}

// Registry indexes every Test discovered from a binary's listing
// output by its map key.
type Registry struct {
	byKey map[string]*Test
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]*Test)}
}

// Register indexes t by its map key, overwriting any previous entry
// under the same key.
func (r *Registry) Register(t *Test) {
	r.byKey[t.MapKey()] = t
}

// Lookup returns the test registered under key, if any.
func (r *Registry) Lookup(key string) (*Test, bool) {
	t, ok := r.byKey[key]
	return t, ok
}

// All returns every registered test, ordered by map key for
// deterministic iteration.
func (r *Registry) All() []*Test {
	keys := make([]string, 0, len(r.byKey))
	for k := range r.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tests := make([]*Test, 0, len(keys))
	for _, k := range keys {
		tests = append(tests, r.byKey[k])
	}
	return tests
}
