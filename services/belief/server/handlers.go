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

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/beliefgraph/services/belief/graph"
	"github.com/AleutianAI/beliefgraph/services/belief/source"
	"github.com/AleutianAI/beliefgraph/services/belief/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Version is reported by the health endpoint. Set by the binary.
var Version = "dev"

// Handlers contains the HTTP handlers for the belief graph API.
type Handlers struct {
	holder *Holder
	logger *slog.Logger
}

// NewHandlers creates handlers serving the graph in holder.
func NewHandlers(holder *Holder, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{holder: holder, logger: logger}
}

// graphOrAbort returns the served graph, or writes 503 and returns nil.
func (h *Handlers) graphOrAbort(c *gin.Context, logger *slog.Logger) *graph.Graph {
	g, err := h.holder.Graph()
	if err != nil {
		logger.Warn("Graph not loaded")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: err.Error(),
			Code:  "NOT_LOADED",
		})
		return nil
	}
	return g
}

// HandleHealth handles GET /v1/belief/health.
//
// Response:
//
//	200 OK: HealthResponse
//	503 Service Unavailable: No graph loaded
func (h *Handlers) HandleHealth(c *gin.Context) {
	snap := h.holder.Current()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:  "loading",
			Version: Version,
		})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       Version,
		Artifact:      snap.Manifest.Name,
		Checksum:      snap.Manifest.Checksum,
		Stats:         snap.Graph.Stats(),
		LoadedAtMilli: snap.LoadedAt.UnixMilli(),
	})
}

// HandleNodes handles GET /v1/belief/nodes.
//
// Description:
//
//	Returns every node carrying the value, optionally restricted to nodes
//	attached under slot. An unknown value yields an empty list.
//
// Query Parameters:
//
//	value - Required. Node value.
//	slot - Optional. Incoming slot filter.
//
// Response:
//
//	200 OK: NodesResponse
//	400 Bad Request: Missing value
func (h *Handlers) HandleNodes(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := telemetry.LoggerWithTrace(c.Request.Context(), h.logger).With("request_id", requestID, "handler", "HandleNodes")

	value := source.Normalize(c.Query("value"))
	if value == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "value query parameter is required",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	g := h.graphOrAbort(c, logger)
	if g == nil {
		return
	}

	start := time.Now()
	slot := source.Normalize(c.Query("slot"))
	var nodes []*graph.Node
	if slot != "" {
		nodes = g.NodesByValueAndSlot(value, slot)
	} else {
		nodes = g.NodesByValue(value)
	}
	recordQuery(c.Request.Context(), "nodes_by_value", start, len(nodes) > 0)

	c.JSON(http.StatusOK, newNodesResponse(value, slot, nodes))
}

// HandleNode handles GET /v1/belief/nodes/:id.
//
// Response:
//
//	200 OK: NodeView
//	404 Not Found: No node with that id
func (h *Handlers) HandleNode(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := telemetry.LoggerWithTrace(c.Request.Context(), h.logger).With("request_id", requestID, "handler", "HandleNode")

	g := h.graphOrAbort(c, logger)
	if g == nil {
		return
	}

	start := time.Now()
	id := source.Normalize(c.Param("id"))
	n, ok := g.NodeByID(id)
	recordQuery(c.Request.Context(), "node_by_id", start, ok)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "node not found: " + id,
			Code:  "NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, newNodeView(n))
}

// HandleSlot handles GET /v1/belief/slots/:slot.
//
// Response:
//
//	200 OK: SlotResponse
//	404 Not Found: Slot never attached through
func (h *Handlers) HandleSlot(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := telemetry.LoggerWithTrace(c.Request.Context(), h.logger).With("request_id", requestID, "handler", "HandleSlot")

	g := h.graphOrAbort(c, logger)
	if g == nil {
		return
	}

	start := time.Now()
	slot := source.Normalize(c.Param("slot"))
	known := g.HasSlot(slot)
	recordQuery(c.Request.Context(), "slot", start, known)
	if !known {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "unknown slot: " + slot,
			Code:  "UNKNOWN_SLOT",
		})
		return
	}

	resp := SlotResponse{
		Slot:      slot,
		Label:     g.SlotLabel(slot),
		NodeCount: len(g.NodesBySlot(slot)),
	}
	if t, ok := g.SlotType(slot); ok {
		resp.Type = t.String()
	}
	c.JSON(http.StatusOK, resp)
}

// HandleSlotNodes handles GET /v1/belief/slots/:slot/nodes.
//
// Response:
//
//	200 OK: NodesResponse (empty for an unknown slot)
func (h *Handlers) HandleSlotNodes(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := telemetry.LoggerWithTrace(c.Request.Context(), h.logger).With("request_id", requestID, "handler", "HandleSlotNodes")

	g := h.graphOrAbort(c, logger)
	if g == nil {
		return
	}

	start := time.Now()
	slot := source.Normalize(c.Param("slot"))
	nodes := g.NodesBySlot(slot)
	recordQuery(c.Request.Context(), "nodes_by_slot", start, len(nodes) > 0)

	c.JSON(http.StatusOK, newNodesResponse("", slot, nodes))
}

// HandleValueSlots handles GET /v1/belief/values/:value/slots.
//
// Response:
//
//	200 OK: ValueSlotsResponse
func (h *Handlers) HandleValueSlots(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := telemetry.LoggerWithTrace(c.Request.Context(), h.logger).With("request_id", requestID, "handler", "HandleValueSlots")

	g := h.graphOrAbort(c, logger)
	if g == nil {
		return
	}

	start := time.Now()
	value := source.Normalize(c.Param("value"))
	slots := g.ConnectedSlots(value)
	known := g.HasValue(value)
	recordQuery(c.Request.Context(), "connected_slots", start, known)

	if slots == nil {
		slots = []string{}
	}
	c.JSON(http.StatusOK, ValueSlotsResponse{
		Value:     value,
		Known:     known,
		Slots:     slots,
		Ambiguous: g.IsAmbiguous(value),
	})
}

// HandleRange handles GET /v1/belief/range/:key.
//
// Response:
//
//	200 OK: RangeResponse
//	404 Not Found: Key has no range label
func (h *Handlers) HandleRange(c *gin.Context) {
	getOrCreateRequestID(c)

	start := time.Now()
	key := source.Normalize(c.Param("key"))
	label := graph.RangeAdapter(key)
	recordQuery(c.Request.Context(), "range", start, label != "")
	if label == "" {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "no range label for key: " + key,
			Code:  "UNKNOWN_RANGE_KEY",
		})
		return
	}
	c.JSON(http.StatusOK, RangeResponse{Key: key, Label: label})
}

// getOrCreateRequestID extracts or generates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
