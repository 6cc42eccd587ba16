// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsInternalFunctionMatchesInternalNamespace(t *testing.T) {
	assert.True(t, IsInternalFunction("testing::internal::HandleExceptionsInMethodIfSupported()"))
}

func TestIsInternalFunctionMatchesKnownPrefixes(t *testing.T) {
	assert.True(t, IsInternalFunction("testing::Test::Run()"))
	assert.True(t, IsInternalFunction("testing::UnitTest::AddTestPartResult()"))
	assert.True(t, IsInternalFunction("testing::Message::GetString()"))
	assert.True(t, IsInternalFunction("testing::AssertionResult::AssertionResult()"))
}

func TestIsInternalFunctionRejectsUserCode(t *testing.T) {
	assert.False(t, IsInternalFunction("ns::FooTest_Bar_Test::TestBody()"))
	assert.False(t, IsInternalFunction("ns::Widget::Render()"))
}
