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
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-graphviz"
	"github.com/spf13/cobra"

	"github.com/ekstazi-go/ekstazi/services/ekstazi/depgraph"
	"github.com/ekstazi-go/ekstazi/services/ekstazi/store"
	"github.com/ekstazi-go/ekstazi/services/ekstazi/typehierarchy"
)

// newGraphCommand is a supplementary visualization tool, grounded in
// the original tool's type-hierarchy-analyzer and results-analyzer: it
// loads a persisted dependency graph or type hierarchy and prints it
// either as a sorted list of "src -> dst" edge lines or as Graphviz DOT.
func newGraphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect a persisted dependency graph or type hierarchy",
	}
	cmd.AddCommand(newGraphDumpCommand())
	return cmd
}

func newGraphDumpCommand() *cobra.Command {
	var module string
	var which string
	var format string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the dependency graph or type hierarchy for a module",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := store.New(store.DirName, module)

			var edges [][2]string
			switch which {
			case "depgraph":
				g, err := depgraph.Load(paths.DepGraph())
				if err != nil {
					return err
				}
				edges = g.Edges()
			case "hierarchy":
				h, err := typehierarchy.Load(paths.TypeHierarchy())
				if err != nil {
					return err
				}
				edges = h.Edges()
			default:
				return fmt.Errorf("unknown --which %q, want \"depgraph\" or \"hierarchy\"", which)
			}

			if format == "dot" {
				return printDOT(edges)
			}
			return printEdgeList(edges)
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "module basename whose graph to dump")
	cmd.Flags().StringVar(&which, "which", "depgraph", "which artifact to dump: \"depgraph\" or \"hierarchy\"")
	cmd.Flags().StringVar(&format, "format", "text", "output format: \"text\" or \"dot\"")
	_ = cmd.MarkFlagRequired("module")

	return cmd
}

func printEdgeList(edges [][2]string) error {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	for _, e := range edges {
		fmt.Printf("%s -> %s\n", e[0], e[1])
	}
	return nil
}

func printDOT(edges [][2]string) error {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	for _, e := range edges {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e[0], e[1])
	}
	buf.WriteString("}\n")

	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes(buf.Bytes())
	if err != nil {
		return fmt.Errorf("parse generated DOT: %w", err)
	}
	defer g.Close()

	var out bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.DOT, &out); err != nil {
		return fmt.Errorf("rendering DOT: %w", err)
	}

	_, err = os.Stdout.Write(out.Bytes())
	return err
}
