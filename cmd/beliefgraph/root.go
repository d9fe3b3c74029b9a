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
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/beliefgraph/services/belief/artifact"
	"github.com/AleutianAI/beliefgraph/services/belief/config"
	"github.com/AleutianAI/beliefgraph/services/belief/graph"
	"github.com/AleutianAI/beliefgraph/services/belief/telemetry"
)

// Exit codes.
const (
	ExitSuccess = 0 // Command completed
	ExitFailure = 1 // Command failed
	ExitBadArgs = 2 // Invalid arguments or configuration
)

// version is set at link time.
var version = "dev"

// usageError marks errors caused by the invocation rather than the data.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func badArgs(err error) error {
	if err == nil {
		return nil
	}
	return &usageError{err: err}
}

// exitCode maps a command error to a process exit code.
func exitCode(err error) int {
	var ue *usageError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &ue), errors.Is(err, config.ErrInvalidConfig):
		return ExitBadArgs
	default:
		return ExitFailure
	}
}

// app holds state shared by every command of one invocation.
type app struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	jsonOutput bool

	cfg    *config.Config
	logger *slog.Logger
}

// run executes the CLI and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{out: stdout, errOut: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := root.ExecuteContext(ctx)
	if err != nil && strings.HasPrefix(err.Error(), "unknown command") {
		err = badArgs(err)
	}
	if err != nil {
		a.printError(err)
	}
	return exitCode(err)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "beliefgraph",
		Short: "Build and query belief graph artifacts",
		Long: `beliefgraph compiles declarative ontology tables into a typed belief
graph, stores it as a versioned artifact, and serves read-only queries over it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return badArgs(err)
	})

	root.PersistentFlags().StringVar(&a.configPath, "config", "",
		"Config file (default ./"+config.DefaultFileName+" if present)")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false,
		"Output as JSON")

	root.AddCommand(
		newInitCmd(a),
		newBuildCmd(a),
		newQueryCmd(a),
		newStatsCmd(a),
		newExportDictCmd(a),
		newServeCmd(a),
		newVersionCmd(a),
	)
	return root
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return badArgs(cobra.ExactArgs(n)(cmd, args))
	}
}

// maxArgs is cobra.MaximumNArgs reporting a usage error.
func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return badArgs(cobra.MaximumNArgs(n)(cmd, args))
	}
}

func (a *app) loadConfig() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = telemetry.NewLogger(a.errOut, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(a.logger)
	return nil
}

// storeConfig describes the configured artifact store.
func (a *app) storeConfig(readOnly bool) artifact.StoreConfig {
	c := a.cfg.Artifact
	return artifact.StoreConfig{
		Kind:       c.Store,
		Dir:        c.Dir,
		BadgerPath: c.BadgerPath,
		ReadOnly:   readOnly,
		GCS: artifact.GCSOptions{
			Bucket:          c.GCS.Bucket,
			Prefix:          c.GCS.Prefix,
			CredentialsFile: c.GCS.CredentialsFile,
		},
	}
}

// openGraph loads the configured artifact.
func (a *app) openGraph(ctx context.Context) (*graph.Graph, *artifact.Manifest, error) {
	store, err := artifact.OpenStore(ctx, a.storeConfig(true), a.logger)
	if err != nil {
		return nil, nil, err
	}
	defer store.Close()

	g, m, err := artifact.Open(ctx, store, a.cfg.Artifact.Name, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open artifact %q: %w", a.cfg.Artifact.Name, err)
	}
	return g, m, nil
}

// initTelemetry starts exporters for long-running commands.
func (a *app) initTelemetry(ctx context.Context) (func(context.Context) error, error) {
	t := a.cfg.Telemetry
	return telemetry.Init(ctx, telemetry.Config{
		ServiceName:    t.ServiceName,
		ServiceVersion: version,
		Environment:    t.Environment,
		TraceExporter:  t.TraceExporter,
		MetricExporter: t.MetricExporter,
		OTLPEndpoint:   t.OTLPEndpoint,
		Output:         a.errOut,
	})
}
