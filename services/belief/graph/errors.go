// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the belief graph: a typed, indexed, write-once
// taxonomy of concepts and property values.
//
// The graph is built offline from declarative source records (package
// source) and queried read-only by the dialogue layer to answer questions
// such as "which slots can this value denote?" or "what type does this
// slot declare?".
//
// # Ownership Model
//
// The graph owns every node through its arena and id index. Parent to
// child edges hold the child's id, not a pointer, and are resolved through
// the id index. A property value may therefore be reachable from several
// parents without being copied.
//
// # Thread Safety
//
// Building is single-threaded. Once Build returns, the graph is frozen and
// can be read from any number of goroutines without synchronization.
//
// # Lifecycle
//
//  1. Parse records with source.Parser
//  2. Build with Builder.Build (declare pass, then attach pass)
//  3. Query with NodesByValue, SlotType, ConnectedSlots, etc.
//  4. Persist with Snapshot and restore with FromSnapshot
package graph

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/beliefgraph/services/belief/source"
)

// Sentinel errors for graph construction and queries.
var (
	// ErrDuplicateIdentity is returned when two nodes share an id.
	ErrDuplicateIdentity = errors.New("duplicate node id")

	// ErrDuplicateValue is returned when two declared concepts share a value.
	ErrDuplicateValue = errors.New("duplicate concept value")

	// ErrIntegrity is returned when a node reference does not resolve to a
	// node with the expected value. This signals a corrupt or reordered source.
	ErrIntegrity = errors.New("node reference integrity violation")

	// ErrConflict is returned when a slot type declaration conflicts with an
	// earlier one on the same node.
	ErrConflict = errors.New("slot type conflict")

	// ErrUnknownSlot is returned by strict lookups of a slot that was never
	// declared.
	ErrUnknownSlot = errors.New("unknown slot")

	// ErrGraphFrozen is returned when attempting to modify a frozen graph.
	ErrGraphFrozen = errors.New("graph is frozen and cannot be modified")

	// ErrNoRoot is returned when the graph has no root node.
	ErrNoRoot = errors.New("graph has no root node")

	// ErrOrphanRecord is returned when an annotate or attach record appears
	// before any declare record it could apply to.
	ErrOrphanRecord = errors.New("record has no preceding declaration")

	// ErrMaxNodesExceeded is returned when the graph has reached its
	// configured maximum node capacity.
	ErrMaxNodesExceeded = errors.New("maximum node count exceeded")

	// ErrInvalidSnapshot is returned when a snapshot fails validation.
	ErrInvalidSnapshot = errors.New("invalid graph snapshot")
)

// ConflictError describes a conflicting slot type declaration.
type ConflictError struct {
	NodeID    string
	Slot      string
	Existing  ValueType
	Requested ValueType
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %q on node %s: declared %s, got %s",
		e.Slot, e.NodeID, e.Existing, e.Requested)
}

// Unwrap returns the sentinel error.
func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// UnknownSlotError reports a lookup of a slot that was never declared.
type UnknownSlotError struct {
	Slot string
}

// Error implements the error interface.
func (e *UnknownSlotError) Error() string {
	return fmt.Sprintf("slot %q was never declared", e.Slot)
}

// Unwrap returns the sentinel error.
func (e *UnknownSlotError) Unwrap() error {
	return ErrUnknownSlot
}

// RecordError locates a build failure at the source record that caused it.
type RecordError struct {
	// Record is the offending record.
	Record source.Record

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *RecordError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Record.Position(), e.Record.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *RecordError) Unwrap() error {
	return e.Err
}

func recordError(rec source.Record, err error) error {
	return &RecordError{Record: rec, Err: err}
}
