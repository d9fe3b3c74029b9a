// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/beliefgraph/services/belief/graph"
	"github.com/AleutianAI/beliefgraph/services/belief/source"
)

// errNoResults is returned when a query finds nothing and the caller asked
// for that to fail.
var errNoResults = errors.New("no results")

// nodeOutput is the JSON form of a node.
type nodeOutput struct {
	ID            string             `json:"id"`
	Value         string             `json:"value"`
	Kind          string             `json:"kind"`
	NodeType      string             `json:"node_type,omitempty"`
	Weights       map[string]float64 `json:"weights,omitempty"`
	IncomingSlots []string           `json:"incoming_slots,omitempty"`
	Children      []graph.Edge       `json:"children,omitempty"`
}

func toNodeOutput(n *graph.Node) nodeOutput {
	return nodeOutput{
		ID:            n.ID(),
		Value:         n.Value(),
		Kind:          n.Kind().String(),
		NodeType:      n.NodeType(),
		Weights:       n.Weights(),
		IncomingSlots: n.IncomingSlots(),
		Children:      n.Children(),
	}
}

type slotOutput struct {
	Slot  string `json:"slot"`
	Type  string `json:"type"`
	Label string `json:"label,omitempty"`
}

type ambiguityOutput struct {
	Value     string   `json:"value"`
	Slots     []string `json:"slots"`
	Ambiguous bool     `json:"ambiguous"`
}

type rangeOutput struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

func newQueryCmd(a *app) *cobra.Command {
	var failIfEmpty bool
	var slotFilter string

	query := &cobra.Command{
		Use:   "query",
		Short: "Query the published belief graph",
		Example: `  beliefgraph query value apple
  beliefgraph query value apple --slot brand
  beliefgraph query ambiguous apple --json
  beliefgraph query range tv.size
  beliefgraph query range`,
	}
	query.PersistentFlags().BoolVar(&failIfEmpty, "fail-if-empty", false,
		"Exit with an error if no results are found")

	// Arguments are normalized like source fields before lookup.
	withGraph := func(fn func(g *graph.Graph, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			g, _, err := a.openGraph(cmd.Context())
			if err != nil {
				return err
			}
			return fn(g, normalizeArgs(args))
		}
	}

	value := &cobra.Command{
		Use:   "value <value>",
		Short: "Nodes carrying a value",
		Args:  exactArgs(1),
		RunE: withGraph(func(g *graph.Graph, args []string) error {
			var nodes []*graph.Node
			if slot := source.Normalize(slotFilter); slot != "" {
				nodes = g.NodesByValueAndSlot(args[0], slot)
			} else {
				nodes = g.NodesByValue(args[0])
			}
			return a.printNodes(nodes, failIfEmpty)
		}),
	}
	value.Flags().StringVar(&slotFilter, "slot", "", "Only nodes attached under this slot")

	slot := &cobra.Command{
		Use:   "slot <slot>",
		Short: "Nodes attached under a slot",
		Args:  exactArgs(1),
		RunE: withGraph(func(g *graph.Graph, args []string) error {
			return a.printNodes(g.NodesBySlot(args[0]), failIfEmpty)
		}),
	}

	typ := &cobra.Command{
		Use:   "type <slot>",
		Short: "Declared value type of a slot",
		Args:  exactArgs(1),
		RunE: withGraph(func(g *graph.Graph, args []string) error {
			vt, err := g.LookupSlotType(args[0])
			if err != nil {
				return err
			}
			out := slotOutput{Slot: args[0], Type: vt.String(), Label: g.SlotLabel(args[0])}
			if a.jsonOutput {
				return a.printJSON(out)
			}
			a.printFields("Slot "+out.Slot, []field{
				{"type", out.Type},
				{"label", out.Label},
			})
			return nil
		}),
	}

	ambiguous := &cobra.Command{
		Use:   "ambiguous <value>",
		Short: "Slots a value is connected through",
		Args:  exactArgs(1),
		RunE: withGraph(func(g *graph.Graph, args []string) error {
			out := ambiguityOutput{
				Value:     args[0],
				Slots:     g.ConnectedSlots(args[0]),
				Ambiguous: g.IsAmbiguous(args[0]),
			}
			if out.Slots == nil {
				out.Slots = []string{}
			}
			if failIfEmpty && len(out.Slots) == 0 {
				return fmt.Errorf("%w: %q is not connected through any slot", errNoResults, args[0])
			}
			if a.jsonOutput {
				return a.printJSON(out)
			}
			a.printFields("Value "+out.Value, []field{
				{"slots", strings.Join(out.Slots, ", ")},
				{"ambiguous", out.Ambiguous},
			})
			return nil
		}),
	}

	rng := &cobra.Command{
		Use:   "range [key]",
		Short: "Range comparison label of a slot key, or every mapped key",
		Args:  maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return a.printRangeKeys()
			}
			key := source.Normalize(args[0])
			label := graph.RangeAdapter(key)
			if label == "" {
				return fmt.Errorf("%w: no range label for %q", errNoResults, key)
			}
			if a.jsonOutput {
				return a.printJSON(rangeOutput{Key: key, Label: label})
			}
			fmt.Fprintln(a.out, label)
			return nil
		},
	}

	id := &cobra.Command{
		Use:   "id <id>",
		Short: "Node by id",
		Args:  exactArgs(1),
		RunE: withGraph(func(g *graph.Graph, args []string) error {
			n, ok := g.NodeByID(args[0])
			if !ok {
				return fmt.Errorf("%w: no node with id %q", errNoResults, args[0])
			}
			if a.jsonOutput {
				return a.printNodes([]*graph.Node{n}, false)
			}
			a.printFields("Node "+n.ID(), nodeFields(g, n))
			return nil
		}),
	}

	query.AddCommand(value, slot, typ, ambiguous, rng, id)
	return query
}

// printNodes writes nodes as JSON or one line per node.
func (a *app) printNodes(nodes []*graph.Node, failIfEmpty bool) error {
	if failIfEmpty && len(nodes) == 0 {
		return errNoResults
	}
	if a.jsonOutput {
		out := make([]nodeOutput, 0, len(nodes))
		for _, n := range nodes {
			out = append(out, toNodeOutput(n))
		}
		return a.printJSON(out)
	}

	lines := make([]string, 0, len(nodes))
	for _, n := range nodes {
		line := fmt.Sprintf("%s\t%s\t%s", n.ID(), n.Value(), n.Kind())
		if slots := n.IncomingSlots(); len(slots) > 0 {
			line += "\t" + strings.Join(slots, ",")
		}
		lines = append(lines, line)
	}
	a.printList(lines, "no nodes")
	return nil
}

// nodeFields describes n for text output, with its children grouped by
// slot in edge order. A slot is shown with the node's own label for it.
func nodeFields(g *graph.Graph, n *graph.Node) []field {
	fields := []field{
		{"value", n.Value()},
		{"kind", n.Kind()},
	}
	if t := n.NodeType(); t != "" {
		fields = append(fields, field{"type", t})
	}
	if w := n.Weights(); len(w) > 0 {
		fields = append(fields, field{"weights", source.FormatWeights(w)})
	}
	if slots := n.IncomingSlots(); len(slots) > 0 {
		fields = append(fields, field{"incoming", strings.Join(slots, ", ")})
	}

	seen := make(map[string]bool)
	for _, e := range n.Children() {
		if seen[e.Slot] {
			continue
		}
		seen[e.Slot] = true
		children := g.ChildrenBySlot(n, e.Slot)
		values := make([]string, 0, len(children))
		for _, c := range children {
			values = append(values, c.Value())
		}
		key := "slot " + e.Slot
		if label := n.SlotLabel(e.Slot); label != "" && label != e.Slot {
			key += " (" + label + ")"
		}
		fields = append(fields, field{key, strings.Join(values, ", ")})
	}
	return fields
}

// printRangeKeys writes every mapped range key with its label.
func (a *app) printRangeKeys() error {
	keys := graph.RangeKeys()
	if a.jsonOutput {
		out := make([]rangeOutput, 0, len(keys))
		for _, k := range keys {
			out = append(out, rangeOutput{Key: k, Label: graph.RangeAdapter(k)})
		}
		return a.printJSON(out)
	}
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"\t"+graph.RangeAdapter(k))
	}
	a.printList(lines, "no range keys")
	return nil
}

func normalizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = source.Normalize(arg)
	}
	return out
}
