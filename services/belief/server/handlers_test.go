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
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/beliefgraph/services/belief/artifact"
	"github.com/AleutianAI/beliefgraph/services/belief/graph"
	"github.com/AleutianAI/beliefgraph/services/belief/source"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const artifactName = "belief"

const catalogSource = `-|root|root|root|root
-|phone|category|category|phone
-|grocery|category|category|grocery
+|categories|category|key|phone,grocery|root
+|brand|brand|key|apple,samsung|phone
+|price|price|numeric||phone
+|fruit|fruit|key|apple,banana|grocery
`

func buildGraph(t *testing.T, text string) *graph.Graph {
	t.Helper()
	records, err := source.NewParser().Parse(strings.NewReader(text), "catalog.tbl")
	require.NoError(t, err)
	result, err := graph.NewBuilder().Build(context.Background(), records)
	require.NoError(t, err)
	return result.Graph
}

// publishedStore returns a file store holding text built as artifactName.
func publishedStore(t *testing.T, text string) *artifact.FileStore {
	t.Helper()
	store := artifact.NewFileStore(t.TempDir(), nil)
	_, err := artifact.Publish(context.Background(), store, artifactName, buildGraph(t, text), []string{"catalog.tbl"})
	require.NoError(t, err)
	return store
}

func setupTestRouter(t *testing.T) (http.Handler, *Holder) {
	t.Helper()
	holder := NewHolder(publishedStore(t, catalogSource), artifactName, nil)
	_, err := holder.Load(context.Background())
	require.NoError(t, err)
	return New(holder, Options{Debug: true}).Handler(), holder
}

func doGet(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHandleHealth(t *testing.T) {
	router, holder := setupTestRouter(t)

	w := doGet(t, router, "/v1/belief/health")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, Version, resp.Version)
	assert.Equal(t, artifactName, resp.Artifact)
	assert.Equal(t, holder.Current().Manifest.Checksum, resp.Checksum)
	assert.Equal(t, holder.Current().Graph.NodeCount(), resp.Stats.Nodes)
	assert.Positive(t, resp.LoadedAtMilli)
}

func TestHandleHealth_NotLoaded(t *testing.T) {
	holder := NewHolder(artifact.NewFileStore(t.TempDir(), nil), artifactName, nil)
	router := New(holder, Options{Debug: true}).Handler()

	w := doGet(t, router, "/v1/belief/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "loading", decode[HealthResponse](t, w).Status)

	w = doGet(t, router, "/v1/belief/nodes?value=apple")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "NOT_LOADED", decode[ErrorResponse](t, w).Code)
}

func TestHandlers_LogTraceContext(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	holder := NewHolder(artifact.NewFileStore(t.TempDir(), nil), artifactName, nil)
	router := New(holder, Options{Debug: true, Logger: logger}).Handler()

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x0a, 0x0b, 0x0c, 0x01},
		SpanID:     trace.SpanID{0x01, 0x02},
		TraceFlags: trace.FlagsSampled,
	})
	req := httptest.NewRequest(http.MethodGet, "/v1/belief/nodes?value=apple", nil)
	req = req.WithContext(trace.ContextWithSpanContext(req.Context(), sc))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var entry map[string]any
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		if strings.Contains(line, "Graph not loaded") {
			require.NoError(t, json.Unmarshal([]byte(line), &entry))
		}
	}
	require.NotNil(t, entry, logs.String())
	assert.Equal(t, sc.TraceID().String(), entry["trace_id"])
	assert.Equal(t, "HandleNodes", entry["handler"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestHandleNodes(t *testing.T) {
	router, _ := setupTestRouter(t)

	t.Run("by value", func(t *testing.T) {
		w := doGet(t, router, "/v1/belief/nodes?value=apple")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[NodesResponse](t, w)
		assert.Equal(t, 2, resp.Count)
		for _, n := range resp.Nodes {
			assert.Equal(t, "apple", n.Value)
			assert.Equal(t, "property", n.Kind)
		}
	})

	t.Run("by value and slot", func(t *testing.T) {
		w := doGet(t, router, "/v1/belief/nodes?value=apple&slot=fruit")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[NodesResponse](t, w)
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, []string{"fruit"}, resp.Nodes[0].IncomingSlots)
	})

	t.Run("query is case-folded", func(t *testing.T) {
		w := doGet(t, router, "/v1/belief/nodes?value=Apple&slot=FRUIT")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[NodesResponse](t, w)
		assert.Equal(t, "apple", resp.Value)
		assert.Equal(t, "fruit", resp.Slot)
		assert.Equal(t, 1, resp.Count)
	})

	t.Run("unknown value", func(t *testing.T) {
		w := doGet(t, router, "/v1/belief/nodes?value=radio")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[NodesResponse](t, w)
		assert.Zero(t, resp.Count)
		assert.Empty(t, resp.Nodes)
	})

	t.Run("missing value", func(t *testing.T) {
		w := doGet(t, router, "/v1/belief/nodes")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_REQUEST", decode[ErrorResponse](t, w).Code)

		w = doGet(t, router, "/v1/belief/nodes?value=%20%20")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleNode(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doGet(t, router, "/v1/belief/nodes/phone")
	require.Equal(t, http.StatusOK, w.Code)
	n := decode[NodeView](t, w)
	assert.Equal(t, "phone", n.ID)
	assert.Equal(t, "category", n.NodeType)
	assert.Equal(t, "numeric", n.FieldTypes["price"])
	assert.Equal(t, "key", n.FieldTypes["brand"])
	assert.Equal(t, map[string]string{"brand": "brand", "price": "price"}, n.SlotLabels)
	assert.Equal(t, []string{"category"}, n.IncomingSlots)
	assert.NotEmpty(t, n.Children)

	w = doGet(t, router, "/v1/belief/nodes/Phone")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "phone", decode[NodeView](t, w).ID)

	w = doGet(t, router, "/v1/belief/nodes/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[ErrorResponse](t, w).Code)
}

func TestHandleSlot(t *testing.T) {
	router, _ := setupTestRouter(t)

	tests := []struct {
		slot      string
		wantCode  int
		wantType  string
		wantLabel string
		wantNodes int
	}{
		{slot: "price", wantCode: http.StatusOK, wantType: "numeric", wantLabel: "price", wantNodes: 0},
		{slot: "brand", wantCode: http.StatusOK, wantLabel: "brand", wantNodes: 2},
		{slot: "category", wantCode: http.StatusOK, wantLabel: "categories", wantNodes: 2},
		{slot: "Brand", wantCode: http.StatusOK, wantLabel: "brand", wantNodes: 2},
		{slot: "color", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.slot, func(t *testing.T) {
			w := doGet(t, router, "/v1/belief/slots/"+tt.slot)
			require.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode != http.StatusOK {
				assert.Equal(t, "UNKNOWN_SLOT", decode[ErrorResponse](t, w).Code)
				return
			}
			resp := decode[SlotResponse](t, w)
			assert.Equal(t, tt.wantType, resp.Type)
			assert.Equal(t, tt.wantLabel, resp.Label)
			assert.Equal(t, tt.wantNodes, resp.NodeCount)
		})
	}
}

func TestHandleSlotNodes(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doGet(t, router, "/v1/belief/slots/category/nodes")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[NodesResponse](t, w)
	values := make([]string, 0, resp.Count)
	for _, n := range resp.Nodes {
		values = append(values, n.Value)
	}
	assert.ElementsMatch(t, []string{"phone", "grocery"}, values)

	w = doGet(t, router, "/v1/belief/slots/color/nodes")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[NodesResponse](t, w).Count)
}

func TestHandleValueSlots(t *testing.T) {
	router, _ := setupTestRouter(t)

	tests := []struct {
		value         string
		wantSlots     []string
		wantAmbiguous bool
		wantKnown     bool
	}{
		{value: "apple", wantSlots: []string{"brand", "fruit"}, wantAmbiguous: true, wantKnown: true},
		{value: "banana", wantSlots: []string{"fruit"}, wantKnown: true},
		{value: "BANANA", wantSlots: []string{"fruit"}, wantKnown: true},
		{value: "phone", wantSlots: []string{"category"}, wantKnown: true},
		{value: "root", wantSlots: []string{}, wantKnown: true},
		{value: "radio", wantSlots: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			w := doGet(t, router, "/v1/belief/values/"+tt.value+"/slots")
			require.Equal(t, http.StatusOK, w.Code)
			resp := decode[ValueSlotsResponse](t, w)
			assert.Equal(t, tt.wantSlots, resp.Slots)
			assert.Equal(t, tt.wantAmbiguous, resp.Ambiguous)
			assert.Equal(t, tt.wantKnown, resp.Known)
		})
	}
}

func TestHandleRange(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doGet(t, router, "/v1/belief/range/tv.size")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, RangeResponse{Key: "tv.size", Label: graph.RangeLabelInch}, decode[RangeResponse](t, w))

	w = doGet(t, router, "/v1/belief/range/TV.Size")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tv.size", decode[RangeResponse](t, w).Key)

	w = doGet(t, router, "/v1/belief/range/tv.color")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "UNKNOWN_RANGE_KEY", decode[ErrorResponse](t, w).Code)
}

func TestRequestID(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doGet(t, router, "/v1/belief/nodes/phone")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/v1/belief/nodes/phone", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(0.001, 1))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, doGet(t, router, "/ping").Code)

	w := doGet(t, router, "/ping")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decode[ErrorResponse](t, w).Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(0, 0))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for range 10 {
		assert.Equal(t, http.StatusOK, doGet(t, router, "/ping").Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	holder := NewHolder(artifact.NewFileStore(t.TempDir(), nil), artifactName, nil)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("belief_query_duration_seconds_count 1\n"))
	})
	router := New(holder, Options{Debug: true, MetricsHandler: metrics}).Handler()

	w := doGet(t, router, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "belief_query_duration_seconds")

	router = New(holder, Options{Debug: true}).Handler()
	assert.Equal(t, http.StatusNotFound, doGet(t, router, "/metrics").Code)
}
