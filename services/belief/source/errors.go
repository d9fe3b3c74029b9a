// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package source reads the declarative taxonomy source that the belief graph
// is built from.
//
// A source is line oriented. Each record is a delimiter-separated list of
// fields, stripped of whitespace and lower-cased before it is interpreted:
//
//	kind | label | slot | type | payload [| extra]
//
// The kind marker is one of:
//
//	"-"  Declare   introduce a concept node (payload: value or value/id;
//	               extra: inline name:weight pairs)
//	"*"  Annotate  attach name:weight pairs to the last declared node
//	"+"  Attach    wire children or declare a typed slot on the current
//	               parent (payload: comma list of value or value/id; extra:
//	               explicit parent as value/id)
//
// Blank lines and lines starting with '#' are ignored.
package source

import (
	"errors"
	"fmt"
)

// Sentinel errors for source parsing.
var (
	// ErrMalformedRecord is returned when a line does not have the expected
	// number of fields or a required field is empty.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrUnknownRecordKind is returned when the first field is not a known
	// kind marker.
	ErrUnknownRecordKind = errors.New("unknown record kind")

	// ErrInvalidWeight is returned when a name:weight pair cannot be parsed.
	ErrInvalidWeight = errors.New("invalid attribute weight")

	// ErrNoSources is returned when no source files are given.
	ErrNoSources = errors.New("no source files given")
)

// LineError locates a parse failure in a source file.
type LineError struct {
	// Source is the name of the source (usually a file path).
	Source string

	// Line is the 1-based line number.
	Line int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *LineError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Source, e.Line, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *LineError) Unwrap() error {
	return e.Err
}
