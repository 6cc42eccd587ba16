// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command ekstazi runs one regression-test-selection analysis pass
// over a compiled module's intermediate representation.
//
// Usage:
//
//	ekstazi run module.ir.json
//	ekstazi filter
//	ekstazi graph dump --format=dot
//	ekstazi analyze-results
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// correlationID identifies this invocation across every log line and
// trace span it emits.
var correlationID = uuid.NewString()

func newLogger() *slog.Logger {
	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) {
		handler = slog.NewTextHandler(os.Stderr, nil)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	return slog.New(handler).With(slog.String("correlation_id", correlationID))
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "ekstazi",
		Short: "Static-dependency-based regression test selection",
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newFilterCommand())
	root.AddCommand(newGraphCommand())
	root.AddCommand(newAnalyzeResultsCommand())

	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
