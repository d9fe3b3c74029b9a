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
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/beliefgraph/services/belief/config"
)

type initOutput struct {
	Path    string   `json:"path"`
	Sources []string `json:"sources"`
}

func newInitCmd(a *app) *cobra.Command {
	var force bool
	var sources []string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Writes the default configuration to --config, or ./` + config.DefaultFileName + `
when --config is not given. An existing file is kept unless --force is set.`,
		Example: `  beliefgraph init --source catalog.tbl
  beliefgraph init --config prod.yaml --force`,
		Args: exactArgs(0),
		// The file being written may not exist or parse yet.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if path == "" {
				path = config.DefaultFileName
			}
			_, err := os.Stat(path)
			switch {
			case err == nil && !force:
				return badArgs(fmt.Errorf("%s already exists (use --force to overwrite)", path))
			case err != nil && !errors.Is(err, os.ErrNotExist):
				return fmt.Errorf("checking %s: %w", path, err)
			}

			cfg := config.DefaultConfig()
			cfg.Sources = sources
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			if a.jsonOutput {
				return a.printJSON(initOutput{Path: path, Sources: cfg.Sources})
			}
			fmt.Fprintf(a.out, "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false,
		"Overwrite an existing file")
	cmd.Flags().StringArrayVar(&sources, "source", nil,
		"Source table file to list in the config, repeatable")
	return cmd
}
