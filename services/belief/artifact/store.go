// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package artifact

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/beliefgraph/services/belief/graph"
)

var tracer = otel.Tracer("beliefgraph.artifact")

// Store persists artifact blobs with their manifests.
//
// Thread Safety:
//
//	Implementations must be safe for concurrent use.
type Store interface {
	// Save stores blob and manifest under name, replacing any previous
	// artifact. Readers never observe a half-written artifact.
	Save(ctx context.Context, name string, blob []byte, m *Manifest) error

	// Load returns the blob and manifest stored under name.
	// Returns ErrArtifactNotFound if there is none.
	Load(ctx context.Context, name string) ([]byte, *Manifest, error)

	// Close releases the store's resources.
	Close() error
}

// Publish encodes a frozen graph and saves it to store.
//
// Description:
//
//	Callers only reach Publish after a successful build, so a failed build
//	never produces an artifact.
//
// Outputs:
//
//	*Manifest - The manifest written alongside the blob.
//	error - Non-nil if encoding or saving fails.
func Publish(ctx context.Context, store Store, name string, g *graph.Graph, sources []string) (*Manifest, error) {
	ctx, span := tracer.Start(ctx, "artifact.Publish", trace.WithAttributes(
		attribute.String("artifact.name", name),
	))
	defer span.End()

	if err := validateName(name); err != nil {
		return nil, err
	}

	blob, err := EncodeGraph(g)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("encoding graph: %w", err)
	}

	m := NewManifest(name, blob, g, sources)
	if err := store.Save(ctx, name, blob, m); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("artifact.size_bytes", m.SizeBytes),
		attribute.Int("artifact.nodes", m.Stats.Nodes),
	)
	return m, nil
}

// Open loads, verifies and decodes the artifact stored under name.
//
// Description:
//
//	The blob is checked against its manifest checksum before decoding and
//	the decoded snapshot is re-validated while the graph is rebuilt. The
//	returned graph is frozen.
//
// Errors:
//
//	ErrArtifactNotFound, ErrChecksumMismatch, ErrVersionMismatch,
//	ErrArtifactCorrupted, or graph.ErrInvalidSnapshot.
func Open(ctx context.Context, store Store, name string, logger *slog.Logger) (*graph.Graph, *Manifest, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, span := tracer.Start(ctx, "artifact.Open", trace.WithAttributes(
		attribute.String("artifact.name", name),
	))
	defer span.End()

	start := time.Now()
	g, m, err := open(ctx, store, name, logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	logger.Info("belief graph artifact loaded",
		slog.String("name", name),
		slog.Int("nodes", m.Stats.Nodes),
		slog.Int64("size_bytes", m.SizeBytes),
		slog.Duration("duration", time.Since(start)),
	)
	return g, m, nil
}

func open(ctx context.Context, store Store, name string, logger *slog.Logger) (*graph.Graph, *Manifest, error) {
	if err := validateName(name); err != nil {
		return nil, nil, err
	}

	blob, m, err := store.Load(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if err := m.Verify(blob); err != nil {
		return nil, nil, err
	}

	snap, err := Decode(blob)
	if err != nil {
		return nil, nil, err
	}
	g, err := graph.FromSnapshot(snap, logger)
	if err != nil {
		return nil, nil, err
	}
	return g, m, nil
}
