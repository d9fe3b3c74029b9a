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
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/beliefgraph/services/belief/artifact"
	"github.com/AleutianAI/beliefgraph/services/belief/graph"
)

type statsOutput struct {
	Manifest *artifact.Manifest `json:"manifest"`
	Graph    graph.Stats        `json:"graph"`
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show statistics of the published belief graph",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, m, err := a.openGraph(cmd.Context())
			if err != nil {
				return err
			}
			out := statsOutput{Manifest: m, Graph: g.Stats()}
			if a.jsonOutput {
				return a.printJSON(out)
			}
			a.printFields("Belief graph "+m.Name, []field{
				{"nodes", out.Graph.Nodes},
				{"concepts", out.Graph.Concepts},
				{"property nodes", out.Graph.PropertyNodes},
				{"edges", out.Graph.Edges},
				{"values", out.Graph.Values},
				{"ambiguous values", out.Graph.AmbiguousValues},
				{"slots", out.Graph.Slots},
				{"typed slots", out.Graph.TypedSlots},
				{"built", formatTime(out.Graph.BuiltAtMilli)},
				{"checksum", m.Checksum},
				{"sources", len(m.Sources)},
			})
			return nil
		},
	}
}

func formatTime(milli int64) string {
	if milli == 0 {
		return "-"
	}
	return time.UnixMilli(milli).UTC().Format(time.RFC3339)
}

func formatMilli(milli int64) string {
	return (time.Duration(milli) * time.Millisecond).String()
}
