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
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/beliefgraph/services/belief/artifact"
	"github.com/AleutianAI/beliefgraph/services/belief/graph"
	"github.com/AleutianAI/beliefgraph/services/belief/source"
)

type buildFlags struct {
	sources []string
	store   string
	name    string
	dryRun  bool
}

// buildOutput is the JSON form of a build.
type buildOutput struct {
	Stats    graph.BuildStats   `json:"stats"`
	Graph    graph.Stats        `json:"graph"`
	Manifest *artifact.Manifest `json:"manifest,omitempty"`
	DryRun   bool               `json:"dry_run"`
}

func newBuildCmd(a *app) *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a belief graph artifact from source tables",
		Long: `Parses the source tables in order, builds the belief graph in two passes,
and publishes it to the configured artifact store. Nothing is written unless
the whole build succeeds.`,
		Example: `  beliefgraph build --source catalog.tbl --source grocery.tbl
  beliefgraph build --store badger --name retail
  beliefgraph build --dry-run --json`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBuild(cmd.Context(), f)
		},
	}
	cmd.Flags().StringArrayVar(&f.sources, "source", nil,
		"Source table file, repeatable (default: sources from config)")
	cmd.Flags().StringVar(&f.store, "store", "",
		"Artifact store: file, badger or gcs (default: from config)")
	cmd.Flags().StringVar(&f.name, "name", "",
		"Artifact name (default: from config)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false,
		"Build and report without publishing")
	return cmd
}

func (a *app) runBuild(ctx context.Context, f buildFlags) error {
	sources := f.sources
	if len(sources) == 0 {
		sources = a.cfg.Sources
	}
	if len(sources) == 0 {
		return badArgs(errors.New("no sources: pass --source or set sources in the config file"))
	}
	if f.store != "" {
		a.cfg.Artifact.Store = f.store
	}
	if f.name != "" {
		a.cfg.Artifact.Name = f.name
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	parser := source.NewParser(
		source.WithDelimiter(a.cfg.Build.Delimiter),
		source.WithParserLogger(a.logger),
	)
	records, err := parser.ParseFiles(ctx, sources)
	if err != nil {
		return err
	}

	opts := []graph.BuilderOption{
		graph.WithLogger(a.logger),
		graph.WithRequireRoot(a.cfg.Build.RequireRoot),
	}
	if a.cfg.Build.MaxNodes > 0 {
		opts = append(opts, graph.WithMaxNodes(a.cfg.Build.MaxNodes))
	}
	result, err := graph.NewBuilder(opts...).Build(ctx, records)
	if err != nil {
		return err
	}

	out := buildOutput{
		Stats:  result.Stats,
		Graph:  result.Graph.Stats(),
		DryRun: f.dryRun,
	}
	if !f.dryRun {
		store, err := artifact.OpenStore(ctx, a.storeConfig(false), a.logger)
		if err != nil {
			return err
		}
		defer store.Close()

		m, err := artifact.Publish(ctx, store, a.cfg.Artifact.Name, result.Graph, sources)
		if err != nil {
			return err
		}
		out.Manifest = m
	}

	if a.jsonOutput {
		return a.printJSON(out)
	}

	fields := []field{
		{"records", result.Stats.RecordsProcessed},
		{"nodes", result.Stats.NodesCreated},
		{"property leaves", result.Stats.PropertyLeaves},
		{"reused concepts", result.Stats.ReusedConcepts},
		{"edges", result.Stats.EdgesCreated},
		{"typed slots", result.Stats.TypedSlots},
		{"ambiguous values", out.Graph.AmbiguousValues},
		{"duration", formatMilli(result.Stats.DurationMilli)},
	}
	title := "Dry run: belief graph built, nothing published"
	if out.Manifest != nil {
		title = "Published belief graph " + out.Manifest.Name
		fields = append(fields,
			field{"store", a.cfg.Artifact.Store},
			field{"checksum", out.Manifest.Checksum[:12]},
			field{"size", out.Manifest.SizeBytes},
		)
	}
	a.printFields(title, fields)
	return nil
}
