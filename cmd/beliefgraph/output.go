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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	colorAccent = lipgloss.Color("#20B9B4")
	colorMuted  = lipgloss.Color("#2C4A54")
	colorError  = lipgloss.Color("#E74C3C")
)

var styles = struct {
	Title lipgloss.Style
	Key   lipgloss.Style
	Muted lipgloss.Style
	Error lipgloss.Style
	Box   lipgloss.Style
}{
	Title: lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	Key:   lipgloss.NewStyle().Foreground(colorAccent),
	Muted: lipgloss.NewStyle().Foreground(colorMuted),
	Error: lipgloss.NewStyle().Bold(true).Foreground(colorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(0, 1),
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// field is one labelled line of text output.
type field struct {
	Key   string
	Value any
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printFields writes a titled key/value block, boxed on terminals.
func (a *app) printFields(title string, fields []field) {
	width := 0
	for _, f := range fields {
		width = max(width, len(f.Key))
	}

	styled := isTerminal(a.out)
	var b strings.Builder
	if styled {
		b.WriteString(styles.Title.Render(title))
	} else {
		b.WriteString(title)
	}
	for _, f := range fields {
		key := fmt.Sprintf("%-*s", width, f.Key)
		if styled {
			key = styles.Key.Render(key)
		}
		fmt.Fprintf(&b, "\n  %s  %v", key, f.Value)
	}

	if styled {
		fmt.Fprintln(a.out, styles.Box.Render(b.String()))
		return
	}
	fmt.Fprintln(a.out, b.String())
}

// printList writes one item per line. An empty list prints a muted note.
func (a *app) printList(items []string, empty string) {
	if len(items) == 0 {
		if isTerminal(a.out) {
			empty = styles.Muted.Render(empty)
		}
		fmt.Fprintln(a.out, empty)
		return
	}
	for _, it := range items {
		fmt.Fprintln(a.out, it)
	}
}

func (a *app) printError(err error) {
	if a.jsonOutput {
		_ = json.NewEncoder(a.out).Encode(struct {
			Error string `json:"error"`
			Code  int    `json:"code"`
		}{Error: err.Error(), Code: exitCode(err)})
		return
	}
	prefix := "Error:"
	if isTerminal(a.errOut) {
		prefix = styles.Error.Render(prefix)
	}
	fmt.Fprintln(a.errOut, prefix, err)
}
