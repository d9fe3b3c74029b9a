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
	"sort"
)

// Edge is a labelled parent to child link. The child is referenced by id
// and resolved through the owning graph.
type Edge struct {
	// Slot is the relation name, e.g. "brand" or "category".
	Slot string

	// ChildID is the id of the child node.
	ChildID string
}

// Node is a vertex of the belief graph.
//
// Description:
//
//	A node is either the root, a declared concept with a graph-unique value,
//	or a property leaf whose value may repeat across the graph. Fields are
//	unexported; a node obtained from a frozen graph is read-only.
//
// Thread Safety:
//
//	Safe for concurrent reads once the owning graph is frozen.
type Node struct {
	id       string
	value    string
	slot     string
	nodeType string
	kind     NodeKind

	weights    map[string]float64
	fieldTypes map[string]ValueType
	slotLabels map[string]string
	children   []Edge
	incoming   map[string]struct{}
}

func newNode(id, value, slot, nodeType string, kind NodeKind) *Node {
	return &Node{
		id:         id,
		value:      value,
		slot:       slot,
		nodeType:   nodeType,
		kind:       kind,
		weights:    make(map[string]float64),
		fieldTypes: make(map[string]ValueType),
		slotLabels: make(map[string]string),
		incoming:   make(map[string]struct{}),
	}
}

// ID returns the node's unique identifier.
func (n *Node) ID() string { return n.id }

// Value returns the node's surface value.
func (n *Node) Value() string { return n.value }

// Slot returns the slot the node was declared under. Empty for the root.
func (n *Node) Slot() string { return n.slot }

// NodeType returns the node type as written in the source.
func (n *Node) NodeType() string { return n.nodeType }

// Kind returns whether the node is the root, a concept or a property leaf.
func (n *Node) Kind() NodeKind { return n.kind }

// IsRoot returns true for the root node.
func (n *Node) IsRoot() bool { return n.kind == NodeKindRoot }

// IsProperty returns true for property nodes.
func (n *Node) IsProperty() bool { return n.kind == NodeKindProperty }

// Weight returns the named annotation weight.
func (n *Node) Weight(name string) (float64, bool) {
	w, ok := n.weights[name]
	return w, ok
}

// Weights returns a copy of the node's annotation weights.
func (n *Node) Weights() map[string]float64 {
	out := make(map[string]float64, len(n.weights))
	for k, v := range n.weights {
		out[k] = v
	}
	return out
}

// FieldType returns the type this node declares for slot.
func (n *Node) FieldType(slot string) (ValueType, bool) {
	t, ok := n.fieldTypes[slot]
	return t, ok
}

// FieldTypes returns a copy of the node's slot type declarations.
func (n *Node) FieldTypes() map[string]ValueType {
	out := make(map[string]ValueType, len(n.fieldTypes))
	for k, v := range n.fieldTypes {
		out[k] = v
	}
	return out
}

// SlotLabel returns the label this node's own attach records gave slot,
// or "". The graph-wide label is Graph.SlotLabel.
func (n *Node) SlotLabel(slot string) string { return n.slotLabels[slot] }

// SlotLabels returns a copy of the node's slot labels.
func (n *Node) SlotLabels() map[string]string {
	out := make(map[string]string, len(n.slotLabels))
	for k, v := range n.slotLabels {
		out[k] = v
	}
	return out
}

// Children returns a copy of the node's outgoing edges in insertion order.
func (n *Node) Children() []Edge {
	out := make([]Edge, len(n.children))
	copy(out, n.children)
	return out
}

// HasIncomingSlot reports whether some parent links to this node via slot.
func (n *Node) HasIncomingSlot(slot string) bool {
	_, ok := n.incoming[slot]
	return ok
}

// IncomingSlots returns the slots through which parents link to this node,
// sorted.
func (n *Node) IncomingSlots() []string {
	out := make([]string, 0, len(n.incoming))
	for s := range n.incoming {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// setFieldType records that this node declares slot with type t.
//
// A differing earlier declaration is a ConflictError unless ignoreConflict
// is set, in which case the new type replaces it.
func (n *Node) setFieldType(slot string, t ValueType, ignoreConflict bool) error {
	if existing, ok := n.fieldTypes[slot]; ok && existing != t && !ignoreConflict {
		return &ConflictError{NodeID: n.id, Slot: slot, Existing: existing, Requested: t}
	}
	n.fieldTypes[slot] = t
	return nil
}

// setSlotLabel records label for slot on this node. A later non-empty
// label replaces an earlier one.
func (n *Node) setSlotLabel(slot, label string) {
	if label != "" {
		n.slotLabels[slot] = label
	}
}

// addChild links child under slot.
//
// The link is a KEY relation. If this node already declares slot with a
// non-KEY type, the link is a ConflictError unless ignoreConflict is set;
// the existing declaration is kept either way. Linking the same child under
// the same slot twice is a no-op.
func (n *Node) addChild(child *Node, slot string, ignoreConflict bool) error {
	existing, declared := n.fieldTypes[slot]
	if declared && !existing.IsKey() && !ignoreConflict {
		return &ConflictError{NodeID: n.id, Slot: slot, Existing: existing, Requested: ValueTypeKey}
	}
	if !declared {
		n.fieldTypes[slot] = ValueTypeKey
	}
	for _, e := range n.children {
		if e.Slot == slot && e.ChildID == child.id {
			return nil
		}
	}
	n.children = append(n.children, Edge{Slot: slot, ChildID: child.id})
	child.incoming[slot] = struct{}{}
	return nil
}
