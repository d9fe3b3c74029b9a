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
	"runtime"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/beliefgraph/services/belief/artifact"
	"github.com/AleutianAI/beliefgraph/services/belief/graph"
)

type versionOutput struct {
	Version         string `json:"version"`
	ArtifactFormat  uint16 `json:"artifact_format"`
	SnapshotVersion int    `json:"snapshot_version"`
	GoVersion       string `json:"go_version"`
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  exactArgs(0),
		// No config is needed to print the version.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			out := versionOutput{
				Version:         version,
				ArtifactFormat:  artifact.FormatVersion,
				SnapshotVersion: graph.SnapshotVersion,
				GoVersion:       runtime.Version(),
			}
			if a.jsonOutput {
				return a.printJSON(out)
			}
			fmt.Fprintf(a.out, "beliefgraph %s (artifact format %d, %s)\n",
				out.Version, out.ArtifactFormat, out.GoVersion)
			return nil
		},
	}
}
