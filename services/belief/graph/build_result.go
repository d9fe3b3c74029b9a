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

import "time"

// BuildStats contains statistics about a build operation.
type BuildStats struct {
	// RecordsProcessed is the number of records consumed.
	RecordsProcessed int `json:"records_processed"`

	// Declarations is the number of declare records.
	Declarations int `json:"declarations"`

	// Annotations is the number of annotate records.
	Annotations int `json:"annotations"`

	// Attachments is the number of attach records.
	Attachments int `json:"attachments"`

	// NodesCreated is the total number of nodes in the graph.
	NodesCreated int `json:"nodes_created"`

	// PropertyLeaves is the number of anonymous property nodes created
	// during the attach pass.
	PropertyLeaves int `json:"property_leaves"`

	// EdgesCreated is the number of parent to child edges.
	EdgesCreated int `json:"edges_created"`

	// ReusedConcepts counts KEY children that resolved to a declared concept
	// instead of creating a property leaf.
	ReusedConcepts int `json:"reused_concepts"`

	// TypedSlots is the number of non-KEY slot declarations recorded.
	TypedSlots int `json:"typed_slots"`

	// DurationMilli is the build duration in milliseconds.
	DurationMilli int64 `json:"duration_milli"`
}

// BuildResult contains the result of a successful build.
type BuildResult struct {
	// Graph is the frozen belief graph.
	Graph *Graph

	// Stats contains build statistics.
	Stats BuildStats
}

func (r *BuildResult) finish(start time.Time) {
	r.Stats.NodesCreated = r.Graph.NodeCount()
	r.Stats.DurationMilli = time.Since(start).Milliseconds()
}
