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
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

type exportOutput struct {
	Path     string `json:"path"`
	Values   int    `json:"values"`
	Existing int    `json:"existing"`
	Total    int    `json:"total"`
}

func newExportDictCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-dict",
		Short: "Write every known value to a tokenizer dictionary",
		Long: `Writes every value of the published belief graph, one per line, merged with
the entries already in the dictionary file and sorted.`,
		Example: `  beliefgraph export-dict --out dict/belief.txt`,
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return badArgs(errors.New("--out is required"))
			}
			g, _, err := a.openGraph(cmd.Context())
			if err != nil {
				return err
			}

			existing, err := readDictionary(out)
			if err != nil {
				return err
			}
			values := g.Values()
			merged := mergeDictionary(existing, values)
			if err := writeDictionary(out, merged); err != nil {
				return err
			}

			res := exportOutput{Path: out, Values: len(values), Existing: len(existing), Total: len(merged)}
			if a.jsonOutput {
				return a.printJSON(res)
			}
			a.printFields("Dictionary "+out, []field{
				{"graph values", res.Values},
				{"existing entries", res.Existing},
				{"total", res.Total},
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Dictionary file to create or extend")
	return cmd
}

// readDictionary returns the non-empty lines of path. A missing file is
// an empty dictionary.
func readDictionary(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			entries = append(entries, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary %s: %w", path, err)
	}
	return entries, nil
}

// mergeDictionary returns the sorted union of the entry lists.
func mergeDictionary(lists ...[]string) []string {
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, e := range list {
			seen[e] = struct{}{}
		}
	}
	merged := make([]string, 0, len(seen))
	for e := range seen {
		merged = append(merged, e)
	}
	sort.Strings(merged)
	return merged
}

// writeDictionary replaces path with entries, one per line.
func writeDictionary(path string, entries []string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, e := range entries {
		w.WriteString(e)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
