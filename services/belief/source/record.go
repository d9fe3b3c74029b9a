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
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind is the record kind, given by the marker in the first field.
type Kind int

const (
	// KindUnknown is the zero value and never produced by the parser.
	KindUnknown Kind = iota

	// KindDeclare introduces a concept node ("-").
	KindDeclare

	// KindAnnotate attaches weights to the last declared node ("*").
	KindAnnotate

	// KindAttach wires children or declares a typed slot ("+").
	KindAttach
)

// Kind markers as they appear in the source.
const (
	MarkerDeclare  = "-"
	MarkerAnnotate = "*"
	MarkerAttach   = "+"
)

// RefSeparator separates value and id in a node reference ("tv/n42").
const RefSeparator = "/"

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindDeclare:
		return "declare"
	case KindAnnotate:
		return "annotate"
	case KindAttach:
		return "attach"
	default:
		return "unknown"
	}
}

// kindFromMarker maps a marker field to a Kind.
func kindFromMarker(marker string) (Kind, bool) {
	switch marker {
	case MarkerDeclare:
		return KindDeclare, true
	case MarkerAnnotate:
		return KindAnnotate, true
	case MarkerAttach:
		return KindAttach, true
	default:
		return KindUnknown, false
	}
}

// Record is one normalized line of the declarative source.
//
// Field meaning depends on Kind:
//
//	Declare:  Slot is the slot the concept is declared under, Type its node
//	          type, Payload "value" or "value/id", Weights inline weights.
//	Annotate: Payload is a comma list of name:weight pairs.
//	Attach:   Label is the slot's display label, Slot the relation, Type the
//	          value-type classifier, Payload the child list, Parent an
//	          optional explicit parent reference.
type Record struct {
	Kind    Kind
	Source  string
	Line    int
	Label   string
	Slot    string
	Type    string
	Payload string

	// Parent is the explicit parent reference of an Attach record, or "".
	Parent string

	// Weights holds the raw inline weights of a Declare record, or "".
	Weights string
}

// Position returns "source:line" for log and error messages.
func (r Record) Position() string {
	return fmt.Sprintf("%s:%d", r.Source, r.Line)
}

// Ref is a reference to a node by value and, optionally, id.
type Ref struct {
	Value string
	ID    string
}

// HasID returns true if the reference carries an explicit id.
func (r Ref) HasID() bool {
	return r.ID != ""
}

// String renders the reference the way it appears in the source.
func (r Ref) String() string {
	if r.ID == "" {
		return r.Value
	}
	return r.Value + RefSeparator + r.ID
}

// ParseRef splits a "value" or "value/id" token.
func ParseRef(token string) Ref {
	value, id, _ := strings.Cut(token, RefSeparator)
	return Ref{Value: value, ID: id}
}

// Concept returns the declared value and id of a Declare record.
// When the payload carries no id, the value doubles as the id.
func (r Record) Concept() Ref {
	ref := ParseRef(r.Payload)
	if ref.ID == "" {
		ref.ID = ref.Value
	}
	return ref
}

// ParentRef returns the explicit parent of an Attach record.
func (r Record) ParentRef() (Ref, bool) {
	if r.Parent == "" {
		return Ref{}, false
	}
	return ParseRef(r.Parent), true
}

// Children returns the child references listed in an Attach payload.
// Empty tokens are skipped.
func (r Record) Children() []Ref {
	if r.Payload == "" {
		return nil
	}
	tokens := strings.Split(r.Payload, ",")
	refs := make([]Ref, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		refs = append(refs, ParseRef(t))
	}
	return refs
}

// AnnotationWeights parses the name:weight pairs carried by the record:
// the payload of an Annotate record or the inline weights of a Declare.
func (r Record) AnnotationWeights() (map[string]float64, error) {
	raw := r.Payload
	if r.Kind == KindDeclare {
		raw = r.Weights
	}
	return ParseWeights(raw)
}

// ParseWeights parses a comma list of name:weight pairs.
// An empty string yields an empty map.
func ParseWeights(raw string) (map[string]float64, error) {
	weights := make(map[string]float64)
	if raw == "" {
		return weights, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidWeight, pair)
		}
		w, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidWeight, pair, err)
		}
		weights[name] = w
	}
	return weights, nil
}

// FormatWeights renders weights in source form, sorted by name.
func FormatWeights(weights map[string]float64) string {
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+":"+strconv.FormatFloat(weights[name], 'g', -1, 64))
	}
	return strings.Join(parts, ",")
}
