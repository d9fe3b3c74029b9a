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
	"go/format"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// moduleSources returns every .go file of the module, skipping directories
// the go tool ignores.
func moduleSources(t *testing.T) []string {
	t.Helper()
	root, err := filepath.Abs(filepath.Join("..", ".."))
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(root, "go.mod"))

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(name, ".go") {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, files)
	return files
}

func TestSourcesAreGofmtClean(t *testing.T) {
	for _, path := range moduleSources(t) {
		src, err := os.ReadFile(path)
		require.NoError(t, err)

		formatted, err := format.Source(src)
		require.NoError(t, err, path)
		assert.True(t, bytes.Equal(src, formatted), "%s is not gofmt-clean", path)
	}
}

func TestSourcesHaveLicenseHeader(t *testing.T) {
	const last = "// See the NOTICE.txt file for details regarding AI system attribution.\n\n"
	for _, path := range moduleSources(t) {
		src, err := os.ReadFile(path)
		require.NoError(t, err)

		s := string(src)
		assert.True(t, strings.HasPrefix(s, "// Copyright (C) 2025 Aleutian AI"), path)
		i := strings.Index(s, last)
		if assert.Positive(t, i, path) {
			assert.NotEqual(t, byte('\n'), s[i+len(last)], "%s: one blank line after the header", path)
		}
	}
}
