// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import "github.com/AleutianAI/beliefgraph/services/belief/graph"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is returned by GET /v1/belief/health.
type HealthResponse struct {
	Status        string      `json:"status"`
	Version       string      `json:"version"`
	Artifact      string      `json:"artifact,omitempty"`
	Checksum      string      `json:"checksum,omitempty"`
	Stats         graph.Stats `json:"stats"`
	LoadedAtMilli int64       `json:"loaded_at_milli"`
}

// EdgeView is one outgoing edge of a node.
type EdgeView struct {
	Slot    string `json:"slot"`
	ChildID string `json:"child_id"`
}

// NodeView is the wire form of a node.
type NodeView struct {
	ID            string             `json:"id"`
	Value         string             `json:"value"`
	Slot          string             `json:"slot,omitempty"`
	NodeType      string             `json:"node_type,omitempty"`
	Kind          string             `json:"kind"`
	Weights       map[string]float64 `json:"weights,omitempty"`
	FieldTypes    map[string]string  `json:"field_types,omitempty"`
	SlotLabels    map[string]string  `json:"slot_labels,omitempty"`
	Children      []EdgeView         `json:"children,omitempty"`
	IncomingSlots []string           `json:"incoming_slots,omitempty"`
}

// NodesResponse lists nodes matching a query.
type NodesResponse struct {
	Value string     `json:"value,omitempty"`
	Slot  string     `json:"slot,omitempty"`
	Count int        `json:"count"`
	Nodes []NodeView `json:"nodes"`
}

// SlotResponse describes one slot. Type is omitted for KEY slots.
type SlotResponse struct {
	Slot      string `json:"slot"`
	Type      string `json:"type,omitempty"`
	Label     string `json:"label,omitempty"`
	NodeCount int    `json:"node_count"`
}

// ValueSlotsResponse reports the slots a value is connected through.
type ValueSlotsResponse struct {
	Value     string   `json:"value"`
	Known     bool     `json:"known"`
	Slots     []string `json:"slots"`
	Ambiguous bool     `json:"ambiguous"`
}

// RangeResponse maps a range key to its comparison label.
type RangeResponse struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

func newNodeView(n *graph.Node) NodeView {
	v := NodeView{
		ID:            n.ID(),
		Value:         n.Value(),
		Slot:          n.Slot(),
		NodeType:      n.NodeType(),
		Kind:          n.Kind().String(),
		IncomingSlots: n.IncomingSlots(),
	}
	if w := n.Weights(); len(w) > 0 {
		v.Weights = w
	}
	if ft := n.FieldTypes(); len(ft) > 0 {
		v.FieldTypes = make(map[string]string, len(ft))
		for slot, t := range ft {
			v.FieldTypes[slot] = t.String()
		}
	}
	if labels := n.SlotLabels(); len(labels) > 0 {
		v.SlotLabels = labels
	}
	for _, e := range n.Children() {
		v.Children = append(v.Children, EdgeView{Slot: e.Slot, ChildID: e.ChildID})
	}
	return v
}

func newNodesResponse(value, slot string, nodes []*graph.Node) NodesResponse {
	resp := NodesResponse{
		Value: value,
		Slot:  slot,
		Count: len(nodes),
		Nodes: make([]NodeView, 0, len(nodes)),
	}
	for _, n := range nodes {
		resp.Nodes = append(resp.Nodes, newNodeView(n))
	}
	return resp
}
