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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ekstazi-go/ekstazi/services/ekstazi/store"
)

func newFilterCommand() *cobra.Command {
	var module string

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Print the runner filter string for the most recent run",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := store.New(store.DirName, module)
			filter, err := store.GetGtestFilter(paths.Count(), paths.ModifiedTests())
			if err != nil {
				return err
			}
			fmt.Println(filter)
			return nil
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "module basename whose filter to print")
	_ = cmd.MarkFlagRequired("module")

	return cmd
}
