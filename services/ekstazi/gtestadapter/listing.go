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

import "strings"

// inlineCommentMarker separates a gtest listing's case/name text from
// its trailing "# TypeParam = ..." / "# GetParam() = ..." comment.
const inlineCommentMarker = "  # "

// CreateTestsFromExec parses the output of a gtest binary invoked with
// its test-listing flag into a slice of Test values, one per test
// name line. A case header line is unindented and ends in ".",
// optionally followed by an inline comment; every indented line below
// it names one test in that case, optionally with its own inline
// comment.
func CreateTestsFromExec(listing string) []*Test {
	var tests []*Test

	var curVariant Variant
	var curPrefix, curCase, curIndex, curTypeParam string

	for _, raw := range strings.Split(listing, "\n") {
		line := strings.TrimRight(raw, "\r")
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, " ") {
			header := strings.TrimSpace(line)
			caseText, comment := splitInlineComment(header)
			caseText = strings.TrimSuffix(caseText, ".")

			curVariant = ClassifyFromListing(header, "")
			curTypeParam = ""
			if curVariant == Typed || curVariant == TypeParameterized {
				curTypeParam = truncateTypeParam(strings.TrimPrefix(comment, typeParamHeaderSignature))
			}

			curPrefix, curCase, curIndex = splitCaseText(caseText)
			continue
		}

		nameLine := strings.TrimSpace(line)
		name, comment := splitInlineComment(nameLine)

		variant := curVariant
		if variant == Normal && strings.HasPrefix(comment, getParamLineSignature) {
			variant = ValueParameterized
		}

		tests = append(tests, &Test{
			Variant:   variant,
			CaseName:  curCase,
			Name:      name,
			Prefix:    curPrefix,
			Index:     curIndex,
			TypeParam: curTypeParam,
		})
	}

	return tests
}

// splitInlineComment splits "text  # comment" into ("text", "#
// comment"). If there is no inline comment, comment is "".
func splitInlineComment(s string) (text, comment string) {
	if idx := strings.Index(s, inlineCommentMarker); idx >= 0 {
		return s[:idx], s[idx+2:]
	}
	return s, ""
}

// splitCaseText splits a header's case text (with the trailing "."
// and any comment already removed) into prefix/case/index, per the
// number of "/"-separated components present.
func splitCaseText(caseText string) (prefix, caseName, index string) {
	parts := strings.Split(caseText, "/")
	switch len(parts) {
	case 1:
		return "", parts[0], ""
	case 2:
		return "", parts[0], parts[1]
	default:
		return parts[0], parts[1], parts[2]
	}
}
