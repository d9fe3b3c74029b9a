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
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/beliefgraph/services/belief/source"
)

// BuilderOptions configures graph building behavior.
type BuilderOptions struct {
	// Logger receives build progress and warnings.
	Logger *slog.Logger

	// MaxNodes caps the number of nodes in the graph.
	// Default: DefaultMaxNodes
	MaxNodes int

	// RequireRoot makes a source without a root declaration fail with
	// ErrNoRoot.
	// Default: true
	RequireRoot bool

	// NewID generates ids for anonymous property leaves.
	// Default: uuid.NewString
	NewID func() string
}

// DefaultBuilderOptions returns sensible defaults.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		Logger:      slog.Default(),
		MaxNodes:    DefaultMaxNodes,
		RequireRoot: true,
		NewID:       uuid.NewString,
	}
}

// BuilderOption is a functional option for configuring the builder.
type BuilderOption func(*BuilderOptions)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(o *BuilderOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithMaxNodes sets the maximum number of nodes.
func WithMaxNodes(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.MaxNodes = n
	}
}

// WithRequireRoot sets whether a root declaration is mandatory.
func WithRequireRoot(require bool) BuilderOption {
	return func(o *BuilderOptions) {
		o.RequireRoot = require
	}
}

// WithIDGenerator sets the id generator for property leaves.
func WithIDGenerator(fn func() string) BuilderOption {
	return func(o *BuilderOptions) {
		if fn != nil {
			o.NewID = fn
		}
	}
}

// Builder constructs a belief graph from source records.
//
// Description:
//
//	Builder runs two passes over the records. The declare pass creates every
//	concept node and applies annotations so that all ids and concept values
//	exist before any edge is wired. The attach pass wires edges, creates
//	property leaves and records slot type declarations. Construction is all
//	or nothing: the first violation aborts the build.
//
// Thread Safety:
//
//	Builder is stateless between calls and safe for concurrent use. Each
//	Build call owns its graph.
type Builder struct {
	options BuilderOptions
}

// NewBuilder creates a new Builder with the given options.
func NewBuilder(opts ...BuilderOption) *Builder {
	options := DefaultBuilderOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Builder{options: options}
}

// buildState tracks state during a build.
type buildState struct {
	graph  *Graph
	result *BuildResult

	// concepts maps a declared concept value to its node. Bare KEY children
	// with one of these values reuse the concept.
	concepts map[string]*Node

	// current is the node the most recent declare record resolved to.
	current *Node
}

// Build constructs a frozen graph from records.
//
// Description:
//
//	Records are processed in order. Pass 1 handles declare and annotate
//	records; pass 2 handles attach records.
//
// Inputs:
//
//	ctx - Context for cancellation. Checked between records.
//	records - Parsed records in source order.
//
// Outputs:
//
//	*BuildResult - The frozen graph and build statistics.
//	error - Non-nil on any violation. Violations tied to a record are
//	        wrapped in *RecordError. No graph is returned on error.
//
// Errors:
//
//	ErrDuplicateIdentity, ErrDuplicateValue, ErrIntegrity, ErrConflict,
//	ErrOrphanRecord, ErrMaxNodesExceeded, ErrNoRoot, or ctx.Err().
func (b *Builder) Build(ctx context.Context, records []source.Record) (*BuildResult, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}

	start := time.Now()
	ctx, span := startBuildSpan(ctx, len(records))
	defer span.End()

	state := &buildState{
		graph:    newGraph(b.options.MaxNodes, b.options.Logger),
		result:   &BuildResult{},
		concepts: make(map[string]*Node),
	}
	state.result.Graph = state.graph

	err := b.declarePass(ctx, state, records)
	if err == nil {
		err = b.attachPass(ctx, state, records)
	}
	if err == nil && b.options.RequireRoot && state.graph.rootID == "" {
		err = ErrNoRoot
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordBuildMetrics(ctx, time.Since(start), 0, 0, false)
		return nil, err
	}

	state.graph.Freeze()
	state.result.finish(start)
	setBuildSpanResult(span, state.result.Stats)
	recordBuildMetrics(ctx, time.Since(start), state.result.Stats.NodesCreated, state.result.Stats.EdgesCreated, true)

	b.options.Logger.Info("belief graph built",
		slog.Int("records", state.result.Stats.RecordsProcessed),
		slog.Int("nodes", state.result.Stats.NodesCreated),
		slog.Int("property_leaves", state.result.Stats.PropertyLeaves),
		slog.Int("edges", state.result.Stats.EdgesCreated),
		slog.Int64("duration_ms", state.result.Stats.DurationMilli),
	)
	return state.result, nil
}

// declarePass creates concept nodes and applies annotations.
func (b *Builder) declarePass(ctx context.Context, state *buildState, records []source.Record) error {
	state.current = nil
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		state.result.Stats.RecordsProcessed++

		switch rec.Kind {
		case source.KindDeclare:
			state.result.Stats.Declarations++
			node, err := b.declare(state, rec)
			if err != nil {
				return recordError(rec, err)
			}
			state.current = node
		case source.KindAnnotate:
			state.result.Stats.Annotations++
			if state.current == nil {
				return recordError(rec, ErrOrphanRecord)
			}
			if err := applyWeights(state.current, rec); err != nil {
				return recordError(rec, err)
			}
		case source.KindAttach:
			state.result.Stats.Attachments++
		}
	}
	return nil
}

// declare registers the node introduced by a declare record.
func (b *Builder) declare(state *buildState, rec source.Record) (*Node, error) {
	ref := rec.Concept()
	g := state.graph

	kind := NodeKindConcept
	slot := rec.Slot
	switch {
	case ref.Value == RootValue && g.rootID == "":
		kind = NodeKindRoot
		slot = ""
	case rec.Type == PropertyNodeType:
		kind = NodeKindProperty
	}

	// Declared concept values are exclusive. A property declaration may share
	// its value with other properties but never with a concept.
	for _, existing := range g.byValue[ref.Value] {
		if kind != NodeKindProperty || existing.kind != NodeKindProperty {
			return nil, fmt.Errorf("%w: %q already declared as %s", ErrDuplicateValue, ref.Value, existing.id)
		}
	}

	node := newNode(ref.ID, ref.Value, slot, rec.Type, kind)
	if err := g.register(node); err != nil {
		return nil, err
	}
	if err := applyWeights(node, rec); err != nil {
		return nil, err
	}
	if kind != NodeKindProperty {
		state.concepts[ref.Value] = node
	}
	return node, nil
}

// applyWeights merges the record's weights into node. Later weights of the
// same name overwrite earlier ones.
func applyWeights(node *Node, rec source.Record) error {
	weights, err := rec.AnnotationWeights()
	if err != nil {
		return err
	}
	for name, w := range weights {
		node.weights[name] = w
	}
	return nil
}

// attachPass wires edges and records slot declarations.
func (b *Builder) attachPass(ctx context.Context, state *buildState, records []source.Record) error {
	state.current = nil
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch rec.Kind {
		case source.KindDeclare:
			node, err := b.resolve(state, rec.Concept())
			if err != nil {
				return recordError(rec, err)
			}
			state.current = node
		case source.KindAttach:
			if err := b.attach(state, rec); err != nil {
				return recordError(rec, err)
			}
		}
	}
	return nil
}

// attach applies one attach record to its parent.
func (b *Builder) attach(state *buildState, rec source.Record) error {
	parent := state.current
	if ref, ok := rec.ParentRef(); ok {
		p, err := b.resolveParent(state, ref)
		if err != nil {
			return err
		}
		parent = p
	}
	if parent == nil {
		return ErrOrphanRecord
	}

	g := state.graph
	g.setSlotLabel(rec.Slot, rec.Label)
	parent.setSlotLabel(rec.Slot, rec.Label)

	vt := ValueType(rec.Type)
	if !vt.IsKey() {
		if err := parent.setFieldType(rec.Slot, vt, false); err != nil {
			return err
		}
		g.declareSlot(rec.Slot, vt)
		state.result.Stats.TypedSlots++
		return nil
	}

	g.declareSlot(rec.Slot, ValueTypeKey)
	for _, ref := range rec.Children() {
		child, err := b.child(state, ref, rec.Slot)
		if err != nil {
			return err
		}
		before := len(parent.children)
		if err := parent.addChild(child, rec.Slot, true); err != nil {
			return err
		}
		state.result.Stats.EdgesCreated += len(parent.children) - before
	}
	return nil
}

// resolve looks up a declared node by id and checks its value.
func (b *Builder) resolve(state *buildState, ref source.Ref) (*Node, error) {
	node, ok := state.graph.byID[ref.ID]
	if !ok {
		return nil, fmt.Errorf("%w: id %q is not declared", ErrIntegrity, ref.ID)
	}
	if node.value != ref.Value {
		return nil, fmt.Errorf("%w: id %q has value %q, referenced as %q",
			ErrIntegrity, ref.ID, node.value, ref.Value)
	}
	return node, nil
}

// resolveParent resolves an explicit parent reference. A bare value must
// name a declared concept.
func (b *Builder) resolveParent(state *buildState, ref source.Ref) (*Node, error) {
	if ref.HasID() {
		return b.resolve(state, ref)
	}
	node, ok := state.concepts[ref.Value]
	if !ok {
		return nil, fmt.Errorf("%w: parent %q is not a declared concept", ErrIntegrity, ref.Value)
	}
	return node, nil
}

// child resolves a KEY child token.
//
// A value/id token must resolve to a declared node. A bare value reuses the
// declared concept of that value when there is one, otherwise a fresh
// property leaf is created.
func (b *Builder) child(state *buildState, ref source.Ref, slot string) (*Node, error) {
	if ref.HasID() {
		return b.resolve(state, ref)
	}
	if node, ok := state.concepts[ref.Value]; ok {
		if node.kind == NodeKindRoot {
			return nil, fmt.Errorf("%w: root cannot be attached as a child", ErrIntegrity)
		}
		state.result.Stats.ReusedConcepts++
		return node, nil
	}

	leaf := newNode(b.options.NewID(), ref.Value, slot, PropertyNodeType, NodeKindProperty)
	if err := state.graph.register(leaf); err != nil {
		return nil, err
	}
	state.result.Stats.PropertyLeaves++
	return leaf, nil
}
