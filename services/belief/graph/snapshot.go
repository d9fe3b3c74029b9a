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
)

// SnapshotVersion is the version of the Snapshot layout. Bump it when the
// layout changes incompatibly.
const SnapshotVersion = 1

// Snapshot is the flat, pointer-free form of a frozen graph used for
// persistence. Nodes appear in creation order.
type Snapshot struct {
	Version      int
	RootID       string
	Nodes        []NodeRecord
	Slots        map[string]string
	SlotLabels   map[string]string
	BuiltAtMilli int64
}

// NodeRecord is the persisted form of a Node.
type NodeRecord struct {
	ID            string
	Value         string
	Slot          string
	NodeType      string
	Kind          NodeKind
	Weights       map[string]float64
	FieldTypes    map[string]string
	SlotLabels    map[string]string
	Children      []Edge
	IncomingSlots []string
}

// Snapshot returns the persisted form of the graph.
//
// Outputs:
//
//	*Snapshot - The snapshot. It shares no state with g.
//	error - Non-nil if the graph is not frozen yet.
func (g *Graph) Snapshot() (*Snapshot, error) {
	if !g.IsFrozen() {
		return nil, fmt.Errorf("snapshot of unfrozen graph")
	}

	snap := &Snapshot{
		Version:      SnapshotVersion,
		RootID:       g.rootID,
		Nodes:        make([]NodeRecord, 0, len(g.arena)),
		Slots:        make(map[string]string, len(g.slots)),
		SlotLabels:   make(map[string]string, len(g.slotLabels)),
		BuiltAtMilli: g.builtAtMilli,
	}
	for _, n := range g.arena {
		fieldTypes := make(map[string]string, len(n.fieldTypes))
		for k, v := range n.fieldTypes {
			fieldTypes[k] = string(v)
		}
		snap.Nodes = append(snap.Nodes, NodeRecord{
			ID:            n.id,
			Value:         n.value,
			Slot:          n.slot,
			NodeType:      n.nodeType,
			Kind:          n.kind,
			Weights:       n.Weights(),
			FieldTypes:    fieldTypes,
			SlotLabels:    n.SlotLabels(),
			Children:      n.Children(),
			IncomingSlots: n.IncomingSlots(),
		})
	}
	for k, v := range g.slots {
		snap.Slots[k] = string(v)
	}
	for k, v := range g.slotLabels {
		snap.SlotLabels[k] = v
	}
	return snap, nil
}

// FromSnapshot rebuilds a frozen graph from its persisted form.
//
// Description:
//
//	Validates the snapshot while rebuilding: ids must be unique, every edge
//	must resolve, incoming slots must match the edges, and the root id must
//	name a root node. The value index is rebuilt in node order, so queries
//	return results in the same order as on the original graph.
//
// Errors:
//
//	Wraps ErrInvalidSnapshot on any validation failure.
func FromSnapshot(snap *Snapshot, logger *slog.Logger) (*Graph, error) {
	g, err := fromSnapshot(snap, logger)
	recordRestoreMetrics(err == nil)
	return g, err
}

func fromSnapshot(snap *Snapshot, logger *slog.Logger) (*Graph, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrInvalidSnapshot)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: version %d, expected %d", ErrInvalidSnapshot, snap.Version, SnapshotVersion)
	}

	g := newGraph(len(snap.Nodes)+1, logger)
	for _, rec := range snap.Nodes {
		n := newNode(rec.ID, rec.Value, rec.Slot, rec.NodeType, rec.Kind)
		for k, v := range rec.Weights {
			n.weights[k] = v
		}
		for k, v := range rec.FieldTypes {
			n.fieldTypes[k] = ValueType(v)
		}
		for k, v := range rec.SlotLabels {
			n.slotLabels[k] = v
		}
		n.children = append(n.children, rec.Children...)
		for _, s := range rec.IncomingSlots {
			n.incoming[s] = struct{}{}
		}
		if err := g.register(n); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
	}

	// Every edge must resolve and be mirrored in the child's incoming slots.
	linked := make(map[string]map[string]struct{}, len(g.arena))
	for _, n := range g.arena {
		for _, e := range n.children {
			child, ok := g.byID[e.ChildID]
			if !ok {
				return nil, fmt.Errorf("%w: node %q links to unknown id %q", ErrInvalidSnapshot, n.id, e.ChildID)
			}
			if !child.HasIncomingSlot(e.Slot) {
				return nil, fmt.Errorf("%w: node %q missing incoming slot %q", ErrInvalidSnapshot, child.id, e.Slot)
			}
			if linked[child.id] == nil {
				linked[child.id] = make(map[string]struct{})
			}
			linked[child.id][e.Slot] = struct{}{}
		}
	}
	for _, n := range g.arena {
		if len(linked[n.id]) != len(n.incoming) {
			return nil, fmt.Errorf("%w: node %q has incoming slots without edges", ErrInvalidSnapshot, n.id)
		}
	}

	roots := 0
	for _, n := range g.arena {
		if n.kind == NodeKindRoot {
			roots++
		}
	}
	if roots > 1 || g.rootID != snap.RootID {
		return nil, fmt.Errorf("%w: root %q does not match %d root node(s)", ErrInvalidSnapshot, snap.RootID, roots)
	}

	for k, v := range snap.Slots {
		g.slots[k] = ValueType(v)
	}
	for k, v := range snap.SlotLabels {
		g.slotLabels[k] = v
	}
	g.builtAtMilli = snap.BuiltAtMilli
	g.Freeze()
	return g, nil
}
