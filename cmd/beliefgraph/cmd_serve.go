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
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/beliefgraph/services/belief/artifact"
	"github.com/AleutianAI/beliefgraph/services/belief/server"
	"github.com/AleutianAI/beliefgraph/services/belief/telemetry"
)

func newServeCmd(a *app) *cobra.Command {
	var port int
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve read-only queries over the published belief graph",
		Long: `Loads the published artifact and serves the /v1/belief HTTP API. The server
does not start if the artifact cannot be loaded. With --watch, a file store
artifact is reloaded whenever a build replaces it; a failed reload keeps the
current graph in service.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			if cmd.Flags().Changed("watch") {
				a.cfg.Server.Watch = watch
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			if a.cfg.Server.Watch && a.cfg.Artifact.Store != artifact.StoreFile {
				return badArgs(errors.New("--watch requires the file artifact store"))
			}
			ctx := cmd.Context()

			shutdown, err := a.initTelemetry(ctx)
			if err != nil {
				return err
			}
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				if err := shutdown(flushCtx); err != nil {
					a.logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
				}
			}()

			store, err := artifact.OpenStore(ctx, a.storeConfig(true), a.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			sc := a.cfg.Server
			opts := server.Options{
				Port:            sc.Port,
				Debug:           sc.Debug,
				ServiceName:     a.cfg.Telemetry.ServiceName,
				RateLimit:       sc.RateLimit,
				Burst:           sc.Burst,
				ShutdownTimeout: sc.ShutdownTimeout,
				WatchDebounce:   sc.WatchDebounce,
				MetricsHandler:  telemetry.MetricsHandler(),
				Logger:          a.logger,
			}
			if sc.Watch {
				opts.WatchDir = a.cfg.Artifact.Dir
			}

			server.Version = version
			holder := server.NewHolder(store, a.cfg.Artifact.Name, a.logger)
			return server.New(holder, opts).Run(ctx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default: from config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the artifact when it is replaced")
	return cmd
}
