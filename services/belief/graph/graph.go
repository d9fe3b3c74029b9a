// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"fmt"
	"log/slog"
	"time"
)

// Graph is the belief graph.
//
// Description:
//
//	Graph owns every node through an insertion-ordered arena and indexes
//	them by id and by value. It also holds the graph-wide slot type table
//	and slot labels. After Freeze, all indexes are immutable.
//
// Thread Safety:
//
//	Not safe for concurrent use during building. Safe for concurrent reads
//	once frozen.
type Graph struct {
	rootID string

	// arena is the sole owner of nodes, in creation order.
	arena []*Node

	byID    map[string]*Node
	byValue map[string][]*Node

	slots      map[string]ValueType
	slotLabels map[string]string

	state        GraphState
	builtAtMilli int64
	maxNodes     int
	logger       *slog.Logger
}

func newGraph(maxNodes int, logger *slog.Logger) *Graph {
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Graph{
		byID:       make(map[string]*Node),
		byValue:    make(map[string][]*Node),
		slots:      make(map[string]ValueType),
		slotLabels: make(map[string]string),
		state:      GraphStateBuilding,
		maxNodes:   maxNodes,
		logger:     logger,
	}
}

// State returns the lifecycle state of the graph.
func (g *Graph) State() GraphState {
	return g.state
}

// IsFrozen returns true if the graph is read-only.
func (g *Graph) IsFrozen() bool {
	return g.state == GraphStateReadOnly
}

// BuiltAtMilli returns the build completion time in Unix milliseconds.
func (g *Graph) BuiltAtMilli() int64 {
	return g.builtAtMilli
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.arena)
}

// register adds n to the arena and both indexes.
func (g *Graph) register(n *Node) error {
	if g.state == GraphStateReadOnly {
		return ErrGraphFrozen
	}
	if len(g.arena) >= g.maxNodes {
		return ErrMaxNodesExceeded
	}
	if _, exists := g.byID[n.id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateIdentity, n.id)
	}
	g.arena = append(g.arena, n)
	g.byID[n.id] = n
	g.byValue[n.value] = append(g.byValue[n.value], n)
	if n.kind == NodeKindRoot {
		g.rootID = n.id
	}
	return nil
}

// declareSlot records slot in the graph-wide slot table.
//
// A typed declaration supersedes an earlier KEY entry. Two different typed
// declarations keep the first and log the disagreement.
func (g *Graph) declareSlot(slot string, t ValueType) {
	existing, ok := g.slots[slot]
	switch {
	case !ok:
		g.slots[slot] = t
	case existing == t || t.IsKey():
	case existing.IsKey():
		g.slots[slot] = t
	default:
		g.logger.Warn("slot declared with differing types",
			slog.String("slot", slot),
			slog.String("kept", existing.String()),
			slog.String("ignored", t.String()),
		)
	}
}

// setSlotLabel records the human-readable label of slot. A later
// non-empty label replaces an earlier one.
func (g *Graph) setSlotLabel(slot, label string) {
	if label != "" {
		g.slotLabels[slot] = label
	}
}

// Freeze marks the graph as read-only. Idempotent.
func (g *Graph) Freeze() {
	if g.state == GraphStateReadOnly {
		return
	}
	g.state = GraphStateReadOnly
	if g.builtAtMilli == 0 {
		g.builtAtMilli = time.Now().UnixMilli()
	}
}
