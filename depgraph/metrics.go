// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package depgraph

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("deptrace.depgraph")

// engineMetrics bundles a channel's OpenTelemetry instruments. Everything
// is recorded at handoff granularity, never per message, so the producer's
// append path stays free of SDK calls. A nil receiver records nothing,
// which keeps disabled channels and direct worker tests instrument-free.
type engineMetrics struct {
	swaps    metric.Int64Counter
	drained  metric.Int64Counter
	queries  metric.Int64Counter
	drainDur metric.Float64Histogram
	blockDur metric.Float64Histogram
}

// newEngineMetrics creates the instrument set. Creation failures degrade
// observability, never the engine: failed instruments stay nil and are
// skipped at record time.
func newEngineMetrics(logger *slog.Logger) *engineMetrics {
	em := &engineMetrics{}
	var initErrors []string

	var err error
	em.swaps, err = meter.Int64Counter("depgraph_swaps_total",
		metric.WithDescription("Buffer handoffs from producer to worker"),
	)
	if err != nil {
		initErrors = append(initErrors, "swaps: "+err.Error())
	}

	em.drained, err = meter.Int64Counter("depgraph_messages_drained_total",
		metric.WithDescription("Messages the worker has applied to the builder"),
	)
	if err != nil {
		initErrors = append(initErrors, "drained: "+err.Error())
	}

	em.queries, err = meter.Int64Counter("depgraph_queries_total",
		metric.WithDescription("Snapshot queries answered"),
	)
	if err != nil {
		initErrors = append(initErrors, "queries: "+err.Error())
	}

	em.drainDur, err = meter.Float64Histogram("depgraph_drain_duration_seconds",
		metric.WithDescription("Time the worker spent draining one buffer"),
		metric.WithUnit("s"),
	)
	if err != nil {
		initErrors = append(initErrors, "drain_duration: "+err.Error())
	}

	em.blockDur, err = meter.Float64Histogram("depgraph_swap_blocked_seconds",
		metric.WithDescription("Time the producer waited for an empty buffer"),
		metric.WithUnit("s"),
	)
	if err != nil {
		initErrors = append(initErrors, "swap_blocked: "+err.Error())
	}

	if len(initErrors) > 0 {
		logger.Error("failed to initialize some depgraph metrics (observability degraded)",
			slog.Int("failed_count", len(initErrors)),
			slog.Any("errors", initErrors),
		)
	}
	return em
}

func (em *engineMetrics) recordSwap(cause SwapCause, blocked time.Duration) {
	if em == nil {
		return
	}
	ctx := context.Background()
	if em.swaps != nil {
		em.swaps.Add(ctx, 1,
			metric.WithAttributes(attribute.String("cause", cause.String())))
	}
	if em.blockDur != nil {
		em.blockDur.Record(ctx, blocked.Seconds())
	}
}

func (em *engineMetrics) recordDrain(count int, d time.Duration) {
	if em == nil {
		return
	}
	ctx := context.Background()
	if em.drained != nil {
		em.drained.Add(ctx, int64(count))
	}
	if em.drainDur != nil {
		em.drainDur.Record(ctx, d.Seconds())
	}
}

func (em *engineMetrics) recordQuery() {
	if em == nil || em.queries == nil {
		return
	}
	em.queries.Add(context.Background(), 1)
}
