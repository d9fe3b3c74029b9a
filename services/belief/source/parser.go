// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode"
)

// DefaultDelimiter separates the fields of a record.
const DefaultDelimiter = "|"

// Field counts of a record line.
const (
	minFields = 5
	maxFields = 6
)

// maxLineBytes bounds a single source line.
const maxLineBytes = 1024 * 1024

// ParserOptions configures a Parser.
type ParserOptions struct {
	// Delimiter separates fields. Default: "|".
	Delimiter string

	// Logger receives per-file debug output. Default: slog.Default().
	Logger *slog.Logger
}

// ParserOption is a functional option for configuring Parser.
type ParserOption func(*ParserOptions)

// WithDelimiter sets the field delimiter.
func WithDelimiter(d string) ParserOption {
	return func(o *ParserOptions) {
		o.Delimiter = d
	}
}

// WithParserLogger sets the logger.
func WithParserLogger(l *slog.Logger) ParserOption {
	return func(o *ParserOptions) {
		o.Logger = l
	}
}

// Parser turns source lines into Records.
//
// Thread Safety:
//
//	Parser holds no mutable state and is safe for concurrent use.
type Parser struct {
	options ParserOptions
}

// NewParser creates a Parser with the given options.
func NewParser(opts ...ParserOption) *Parser {
	options := ParserOptions{
		Delimiter: DefaultDelimiter,
		Logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Delimiter == "" {
		options.Delimiter = DefaultDelimiter
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Parser{options: options}
}

// Normalize strips all whitespace from s and lower-cases it. Every parsed
// field is in this form, so lookups must normalize their input the same way.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// ParseLine parses a single source line.
//
// Description:
//
//	Normalizes the line, splits it into fields and validates the kind
//	marker and required fields. Blank and comment lines are reported with
//	skip=true and no error.
//
// Inputs:
//
//	source - Name of the source, used in the record and in errors.
//	lineNo - 1-based line number.
//	line - The raw line.
//
// Outputs:
//
//	Record - The parsed record. Zero when skip is true.
//	bool - True if the line carries no record.
//	error - Non-nil if the line is malformed. Wrapped in *LineError.
func (p *Parser) ParseLine(source string, lineNo int, line string) (Record, bool, error) {
	norm := Normalize(line)
	if norm == "" || strings.HasPrefix(norm, "#") {
		return Record{}, true, nil
	}

	fail := func(err error) (Record, bool, error) {
		return Record{}, false, &LineError{Source: source, Line: lineNo, Err: err}
	}

	fields := strings.Split(norm, p.options.Delimiter)
	if len(fields) < minFields || len(fields) > maxFields {
		return fail(fmt.Errorf("%w: expected %d or %d fields, got %d",
			ErrMalformedRecord, minFields, maxFields, len(fields)))
	}

	kind, ok := kindFromMarker(fields[0])
	if !ok {
		return fail(fmt.Errorf("%w: %q", ErrUnknownRecordKind, fields[0]))
	}

	rec := Record{
		Kind:    kind,
		Source:  source,
		Line:    lineNo,
		Label:   fields[1],
		Slot:    fields[2],
		Type:    fields[3],
		Payload: fields[4],
	}

	extra := ""
	if len(fields) == maxFields {
		extra = fields[5]
	}

	switch kind {
	case KindDeclare:
		if rec.Payload == "" {
			return fail(fmt.Errorf("%w: declare without value", ErrMalformedRecord))
		}
		rec.Weights = extra
		if _, err := ParseWeights(extra); err != nil {
			return fail(err)
		}
	case KindAnnotate:
		if extra != "" {
			return fail(fmt.Errorf("%w: annotate takes %d fields", ErrMalformedRecord, minFields))
		}
		if _, err := ParseWeights(rec.Payload); err != nil {
			return fail(err)
		}
	case KindAttach:
		if rec.Slot == "" || rec.Type == "" {
			return fail(fmt.Errorf("%w: attach requires slot and classifier", ErrMalformedRecord))
		}
		rec.Parent = extra
	}

	return rec, false, nil
}

// Parse reads all records from r.
//
// Outputs:
//
//	[]Record - Records in line order.
//	error - The first malformed line, or a read error.
func (p *Parser) Parse(r io.Reader, source string) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	records := make([]Record, 0)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		rec, skip, err := p.ParseLine(source, lineNo, scanner.Text())
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	return records, nil
}

// ParseFiles reads records from each file in order and concatenates them.
//
// Description:
//
//	Files are read one after another; record order is file order, then
//	line order. Any malformed line aborts the whole read.
//
// Inputs:
//
//	ctx - Context for cancellation, checked between files.
//	paths - Source files. Must not be empty.
//
// Outputs:
//
//	[]Record - All records.
//	error - ErrNoSources, a *LineError, or an I/O error.
func (p *Parser) ParseFiles(ctx context.Context, paths []string) ([]Record, error) {
	if len(paths) == 0 {
		return nil, ErrNoSources
	}

	all := make([]Record, 0)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		records, err := p.parseFile(path)
		if err != nil {
			return nil, err
		}
		p.options.Logger.Debug("parsed source",
			slog.String("path", path),
			slog.Int("records", len(records)),
		)
		all = append(all, records...)
	}
	return all, nil
}

func (p *Parser) parseFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()
	return p.Parse(f, path)
}
