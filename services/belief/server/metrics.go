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
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("beliefgraph.server")
)

var (
	queryLatency metric.Float64Histogram
	reloadTotal  metric.Int64Counter
	rateLimited  metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		queryLatency, err = meter.Float64Histogram(
			"belief_query_duration_seconds",
			metric.WithDescription("Duration of belief graph queries"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		reloadTotal, err = meter.Int64Counter(
			"belief_reload_total",
			metric.WithDescription("Artifacts swapped into service"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		rateLimited, err = meter.Int64Counter(
			"belief_rate_limited_total",
			metric.WithDescription("Requests rejected by the rate limiter"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordQuery(ctx context.Context, query string, start time.Time, found bool) {
	if err := initMetrics(); err != nil {
		return
	}
	queryLatency.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(
			attribute.String("query", query),
			attribute.Bool("found", found),
		),
	)
}

func recordReload(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	reloadTotal.Add(ctx, 1)
}

func recordRateLimited(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	rateLimited.Add(ctx, 1)
}
