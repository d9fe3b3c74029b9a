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
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertQueryEquivalent checks that every query answers identically on a
// and b, node ids included.
func assertQueryEquivalent(t *testing.T, a, b *Graph) {
	t.Helper()

	ra, errA := a.Root()
	rb, errB := b.Root()
	assert.Equal(t, errA, errB)
	if errA == nil {
		assert.Equal(t, ra.ID(), rb.ID())
	}

	assert.Equal(t, a.Values(), b.Values())
	assert.Equal(t, a.Slots(), b.Slots())
	assert.Equal(t, a.Stats(), b.Stats())

	ids := func(nodes []*Node) []string {
		out := make([]string, 0, len(nodes))
		for _, n := range nodes {
			out = append(out, n.ID())
		}
		return out
	}

	for _, v := range a.Values() {
		assert.Equal(t, ids(a.NodesByValue(v)), ids(b.NodesByValue(v)), "value %q", v)
		assert.Equal(t, a.ConnectedSlots(v), b.ConnectedSlots(v), "value %q", v)
		assert.Equal(t, a.IsAmbiguous(v), b.IsAmbiguous(v), "value %q", v)
		for _, s := range a.Slots() {
			assert.Equal(t, ids(a.NodesByValueAndSlot(v, s)), ids(b.NodesByValueAndSlot(v, s)))
		}
	}
	for _, s := range a.Slots() {
		assert.Equal(t, ids(a.NodesBySlot(s)), ids(b.NodesBySlot(s)), "slot %q", s)
		ta, oka := a.SlotType(s)
		tb, okb := b.SlotType(s)
		assert.Equal(t, oka, okb)
		assert.Equal(t, ta, tb)
		assert.Equal(t, a.SlotLabel(s), b.SlotLabel(s))
	}
	for _, n := range a.arena {
		other, ok := b.NodeByID(n.ID())
		require.True(t, ok)
		assert.Equal(t, n.Value(), other.Value())
		assert.Equal(t, n.Slot(), other.Slot())
		assert.Equal(t, n.Kind(), other.Kind())
		assert.Equal(t, n.NodeType(), other.NodeType())
		assert.Equal(t, n.Weights(), other.Weights())
		assert.Equal(t, n.FieldTypes(), other.FieldTypes())
		assert.Equal(t, n.SlotLabels(), other.SlotLabels())
		assert.Equal(t, n.Children(), other.Children())
		assert.Equal(t, n.IncomingSlots(), other.IncomingSlots())
	}
	assert.Equal(t, a.BuiltAtMilli(), b.BuiltAtMilli())
}

func TestSnapshot_RoundTrip(t *testing.T) {
	g := buildGraph(t, catalogSource).Graph

	snap, err := g.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, SnapshotVersion, snap.Version)
	assert.Len(t, snap.Nodes, g.NodeCount())

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(snap))
	var decoded Snapshot
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))

	restored, err := FromSnapshot(&decoded, nil)
	require.NoError(t, err)
	assert.True(t, restored.IsFrozen())
	assertQueryEquivalent(t, g, restored)
}

func TestSnapshot_Unfrozen(t *testing.T) {
	g := newGraph(0, nil)
	_, err := g.Snapshot()
	assert.Error(t, err)
}

func TestFromSnapshot_Invalid(t *testing.T) {
	fresh := func(t *testing.T) *Snapshot {
		snap, err := buildGraph(t, catalogSource).Graph.Snapshot()
		require.NoError(t, err)
		return snap
	}

	tests := []struct {
		name   string
		mutate func(s *Snapshot)
	}{
		{"version", func(s *Snapshot) { s.Version = SnapshotVersion + 1 }},
		{"duplicate id", func(s *Snapshot) { s.Nodes[2].ID = s.Nodes[1].ID }},
		{"dangling edge", func(s *Snapshot) { s.Nodes[0].Children[0].ChildID = "missing" }},
		{"missing incoming slot", func(s *Snapshot) { s.Nodes[1].IncomingSlots = nil }},
		{"extra incoming slot", func(s *Snapshot) {
			s.Nodes[1].IncomingSlots = append(s.Nodes[1].IncomingSlots, "zzz")
		}},
		{"root mismatch", func(s *Snapshot) { s.RootID = "tv" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := fresh(t)
			tt.mutate(snap)
			_, err := FromSnapshot(snap, nil)
			assert.ErrorIs(t, err, ErrInvalidSnapshot)
		})
	}

	t.Run("nil", func(t *testing.T) {
		_, err := FromSnapshot(nil, nil)
		assert.ErrorIs(t, err, ErrInvalidSnapshot)
	})
}
