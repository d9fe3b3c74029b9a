// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server exposes a loaded belief graph over a read-only HTTP API.
//
// The dialogue layer queries values, slots and ambiguity through this API.
// The graph is held behind an atomic pointer: a reload fully loads and
// validates the new artifact before swapping it in, so in-flight requests
// finish against the graph they started with and a failed reload keeps
// serving the previous graph.
package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/beliefgraph/services/belief/artifact"
	"github.com/AleutianAI/beliefgraph/services/belief/graph"
)

// ErrNotLoaded is returned when no graph has been loaded yet.
var ErrNotLoaded = errors.New("belief graph not loaded")

// Snapshot is one loaded graph with its provenance.
type Snapshot struct {
	Graph    *graph.Graph
	Manifest *artifact.Manifest
	LoadedAt time.Time
}

// Holder owns the currently served graph.
//
// Thread Safety:
//
//	Current is lock-free and safe for concurrent use. Reloads are
//	serialized.
type Holder struct {
	store  artifact.Store
	name   string
	logger *slog.Logger

	current atomic.Pointer[Snapshot]
	reload  sync.Mutex
}

// NewHolder creates a holder for the artifact name in store. Nothing is
// loaded until Load is called.
func NewHolder(store artifact.Store, name string, logger *slog.Logger) *Holder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Holder{store: store, name: name, logger: logger}
}

// Current returns the served snapshot, or nil before the first load.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Graph returns the served graph.
func (h *Holder) Graph() (*graph.Graph, error) {
	s := h.current.Load()
	if s == nil {
		return nil, ErrNotLoaded
	}
	return s.Graph, nil
}

// Load loads the artifact and swaps it in.
//
// Outputs:
//
//	bool - True if a different artifact was swapped in. An unchanged
//	       checksum keeps the current graph.
//	error - Load failure. The current graph, if any, stays in service.
func (h *Holder) Load(ctx context.Context) (bool, error) {
	h.reload.Lock()
	defer h.reload.Unlock()

	g, m, err := artifact.Open(ctx, h.store, h.name, h.logger)
	if err != nil {
		return false, err
	}

	if prev := h.current.Load(); prev != nil && prev.Manifest.Checksum == m.Checksum {
		return false, nil
	}

	h.current.Store(&Snapshot{Graph: g, Manifest: m, LoadedAt: time.Now()})
	recordReload(ctx)
	return true, nil
}

// Set serves g directly, bypassing the store. Used for in-process graphs.
func (h *Holder) Set(g *graph.Graph, m *artifact.Manifest) {
	if m == nil {
		m = &artifact.Manifest{Name: h.name, Stats: g.Stats()}
	}
	h.current.Store(&Snapshot{Graph: g, Manifest: m, LoadedAt: time.Now()})
}
