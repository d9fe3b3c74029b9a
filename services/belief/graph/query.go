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

// Root returns the root node.
//
// Outputs:
//
//	*Node - The root node.
//	error - ErrNoRoot if no root was declared.
func (g *Graph) Root() (*Node, error) {
	if g.rootID == "" {
		return nil, ErrNoRoot
	}
	return g.byID[g.rootID], nil
}

// NodeByID returns the node with the given id.
func (g *Graph) NodeByID(id string) (*Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// NodesByValue returns every node with the given value in creation order.
// Returns nil for unknown values.
func (g *Graph) NodesByValue(value string) []*Node {
	nodes := g.byValue[value]
	if len(nodes) == 0 {
		return nil
	}
	out := make([]*Node, len(nodes))
	copy(out, nodes)
	return out
}

// NodesByValueAndSlot returns the nodes with the given value that some
// parent links to via slot.
func (g *Graph) NodesByValueAndSlot(value, slot string) []*Node {
	var out []*Node
	for _, n := range g.byValue[value] {
		if n.HasIncomingSlot(slot) {
			out = append(out, n)
		}
	}
	return out
}

// NodesBySlot returns every node that some parent links to via slot, in
// creation order.
//
// Description:
//
//	Linear scan over all nodes. Typed (non-KEY) slots never have nodes
//	attached and return nil.
func (g *Graph) NodesBySlot(slot string) []*Node {
	var out []*Node
	for _, n := range g.arena {
		if n.HasIncomingSlot(slot) {
			out = append(out, n)
		}
	}
	return out
}

// HasValue returns true if any node has the given value.
func (g *Graph) HasValue(value string) bool {
	return len(g.byValue[value]) > 0
}

// HasSlot returns true if any attach record used the slot.
func (g *Graph) HasSlot(slot string) bool {
	_, ok := g.slots[slot]
	return ok
}

// SlotType returns the declared leaf type of slot. The second result is
// false when the slot was never declared with a typed (non-KEY) classifier.
func (g *Graph) SlotType(slot string) (ValueType, bool) {
	t, ok := g.slots[slot]
	if !ok || t.IsKey() {
		return "", false
	}
	return t, true
}

// LookupSlotType returns the registered type of slot, KEY included.
//
// Outputs:
//
//	ValueType - The slot's type.
//	error - *UnknownSlotError if the slot was never declared.
func (g *Graph) LookupSlotType(slot string) (ValueType, error) {
	t, ok := g.slots[slot]
	if !ok {
		return "", &UnknownSlotError{Slot: slot}
	}
	return t, nil
}

// SlotLabel returns the display label of slot, or "" if none was given.
func (g *Graph) SlotLabel(slot string) string {
	return g.slotLabels[slot]
}

// ConnectedSlots returns the sorted set of slots through which any node of
// the given value is linked. These are the disambiguation candidates for
// the value.
func (g *Graph) ConnectedSlots(value string) []string {
	seen := make(map[string]struct{})
	for _, n := range g.byValue[value] {
		for s := range n.incoming {
			seen[s] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// IsAmbiguous returns true if the value is linked through more than one
// distinct slot.
func (g *Graph) IsAmbiguous(value string) bool {
	var first string
	for _, n := range g.byValue[value] {
		for s := range n.incoming {
			if first == "" {
				first = s
			} else if s != first {
				return true
			}
		}
	}
	return false
}

// Children resolves the outgoing edges of n to nodes, in edge order.
// Returns nil if n does not belong to this graph.
func (g *Graph) Children(n *Node) []*Node {
	if n == nil || g.byID[n.id] != n {
		return nil
	}
	out := make([]*Node, 0, len(n.children))
	for _, e := range n.children {
		if child, ok := g.byID[e.ChildID]; ok {
			out = append(out, child)
		}
	}
	return out
}

// ChildrenBySlot resolves the children of n linked via slot.
func (g *Graph) ChildrenBySlot(n *Node, slot string) []*Node {
	if n == nil || g.byID[n.id] != n {
		return nil
	}
	var out []*Node
	for _, e := range n.children {
		if e.Slot != slot {
			continue
		}
		if child, ok := g.byID[e.ChildID]; ok {
			out = append(out, child)
		}
	}
	return out
}

// Values returns every distinct node value, sorted.
func (g *Graph) Values() []string {
	out := make([]string, 0, len(g.byValue))
	for v := range g.byValue {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Slots returns every registered slot, sorted.
func (g *Graph) Slots() []string {
	out := make([]string, 0, len(g.slots))
	for s := range g.slots {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Stats summarizes the shape of a graph.
type Stats struct {
	Nodes           int   `json:"nodes"`
	Concepts        int   `json:"concepts"`
	PropertyNodes   int   `json:"property_nodes"`
	Edges           int   `json:"edges"`
	Values          int   `json:"values"`
	AmbiguousValues int   `json:"ambiguous_values"`
	Slots           int   `json:"slots"`
	TypedSlots      int   `json:"typed_slots"`
	BuiltAtMilli    int64 `json:"built_at_milli"`
}

// Stats computes graph statistics. The root counts as a concept.
func (g *Graph) Stats() Stats {
	s := Stats{
		Nodes:        len(g.arena),
		Values:       len(g.byValue),
		Slots:        len(g.slots),
		BuiltAtMilli: g.builtAtMilli,
	}
	for _, n := range g.arena {
		if n.kind == NodeKindProperty {
			s.PropertyNodes++
		} else {
			s.Concepts++
		}
		s.Edges += len(n.children)
	}
	for v := range g.byValue {
		if g.IsAmbiguous(v) {
			s.AmbiguousValues++
		}
	}
	for _, t := range g.slots {
		if !t.IsKey() {
			s.TypedSlots++
		}
	}
	return s
}
