// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/deptrace/depgraph"
	"github.com/AleutianAI/deptrace/depgraph/edges"
	"github.com/AleutianAI/deptrace/depgraph/shadow"
)

var tracer = otel.Tracer("deptrace.tracker")

// Stats are producer-side session counters.
type Stats struct {
	// SessionID names the session.
	SessionID string

	// Messages is the number of messages actually enqueued. Disabled
	// sessions stay at zero no matter how often the recording methods
	// are called.
	Messages int

	// Swaps is the number of buffer handoffs.
	Swaps int

	// Queries is the number of snapshots taken.
	Queries int

	// Violations is the shadow validator's count. Zero unless the
	// session runs a non-panicking shadow.
	Violations int
}

// Tracker is a recording session over the dependency engine.
//
// Description:
//
//	Tracker wires the engine channel to an edge builder and, when
//	configured, a shadow validator, and exposes guarded recording
//	methods: with tracking disabled they cost one branch and do
//	nothing, so call sites stay free of mode checks. WithTask and
//	WithScope pair the push/pop markers for well-nested sections.
//
// Thread Safety:
//
//	Bound to one producer goroutine, like the channel it wraps.
type Tracker struct {
	sessionID string
	logger    *slog.Logger

	ch      *depgraph.Channel[*edges.Snapshot]
	shadowV *shadow.Validator
	history *swapLog

	messages int
	swaps    int
	queries  int
	closed   bool
}

// New creates a session from the config.
//
// Inputs:
//
//	cfg - Session configuration. Zero fields fall back to defaults
//	      where documented on Config.
//
// Outputs:
//
//	*Tracker - The running session; its worker (if enabled) is live.
//	error - Non-nil if the config fails validation.
func New(cfg Config) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Capacity == 0 {
		cfg.Capacity = depgraph.DefaultCapacity
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()[:12]
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	t := &Tracker{
		sessionID: cfg.SessionID,
		logger:    cfg.Logger,
	}

	opts := []depgraph.Option{
		depgraph.WithCapacity(cfg.Capacity),
		depgraph.WithLogger(cfg.Logger),
	}
	if cfg.Shadow {
		t.shadowV = shadow.New(
			shadow.WithPanicOnViolation(cfg.PanicOnViolation),
			shadow.WithLogger(cfg.Logger),
		)
		opts = append(opts, depgraph.WithShadow(t.shadowV))
	}
	if cfg.HistorySize > 0 {
		t.history = newSwapLog(cfg.HistorySize)
		opts = append(opts, depgraph.WithSwapObserver(t.observeSwap))
	} else {
		opts = append(opts, depgraph.WithSwapObserver(t.countSwap))
	}

	var builder depgraph.Builder[*edges.Snapshot]
	if cfg.Enabled {
		builder = edges.NewBuilder(edges.WithStrict(cfg.Strict))
	}
	t.ch = depgraph.New[*edges.Snapshot](cfg.Enabled, builder, opts...)

	t.logger.Info("tracking session started",
		slog.String("session_id", t.sessionID),
		slog.Bool("enabled", cfg.Enabled),
		slog.Bool("shadow", cfg.Shadow),
		slog.Int("capacity", cfg.Capacity),
	)
	return t, nil
}

// SessionID returns the session's identifier.
func (t *Tracker) SessionID() string { return t.sessionID }

// Enabled reports whether the session builds a graph.
func (t *Tracker) Enabled() bool { return t.ch.FullyEnabled() }

// ShadowActive reports whether a validator observes the stream.
func (t *Tracker) ShadowActive() bool { return t.ch.ShadowActive() }

// Read records a read of node n. A no-op when tracking is off.
func (t *Tracker) Read(n depgraph.NodeID) { t.enqueue(depgraph.Read(n)) }

// Write records a write of node n. A no-op when tracking is off.
func (t *Tracker) Write(n depgraph.NodeID) { t.enqueue(depgraph.Write(n)) }

// PushTask opens a task context for node n. Prefer WithTask, which cannot
// leave the context open.
func (t *Tracker) PushTask(n depgraph.NodeID) { t.enqueue(depgraph.PushTask(n)) }

// PopTask closes the task context for node n.
func (t *Tracker) PopTask(n depgraph.NodeID) { t.enqueue(depgraph.PopTask(n)) }

// PushScope opens a suppression scope. Prefer WithScope.
func (t *Tracker) PushScope() { t.enqueue(depgraph.PushScope()) }

// PopScope closes the innermost suppression scope.
func (t *Tracker) PopScope() { t.enqueue(depgraph.PopScope()) }

// WithTask runs fn inside a task context for node n. The pop is emitted
// even when fn panics, so the stream stays balanced while the panic
// unwinds. fn always runs, tracking or not.
func (t *Tracker) WithTask(n depgraph.NodeID, fn func()) {
	if !t.enqueue(depgraph.PushTask(n)) {
		fn()
		return
	}
	defer t.enqueue(depgraph.PopTask(n))
	fn()
}

// WithScope runs fn inside a suppression scope: reads and writes it
// records are deliberately dropped. fn always runs, tracking or not.
func (t *Tracker) WithScope(fn func()) {
	if !t.enqueue(depgraph.PushScope()) {
		fn()
		return
	}
	defer t.enqueue(depgraph.PopScope())
	fn()
}

// Query flushes the stream and returns a snapshot reflecting every
// message recorded before the call.
//
// The context carries the tracing span only; the flush itself is not
// cancellable, it is bounded by the worker draining at most two buffers.
func (t *Tracker) Query(ctx context.Context) (*edges.Snapshot, error) {
	if t.closed {
		return nil, ErrSessionClosed
	}
	if !t.ch.FullyEnabled() {
		return nil, ErrNotEnabled
	}

	_, span := tracer.Start(ctx, "tracker.Query",
		trace.WithAttributes(attribute.String("session_id", t.sessionID)),
	)
	defer span.End()

	start := time.Now()
	snap := t.ch.Query()
	t.messages++ // the barrier marker is part of the stream
	t.queries++

	stats := snap.Stats()
	span.SetAttributes(
		attribute.Int("graph.edges", stats.Edges),
		attribute.Int("graph.nodes", stats.Nodes),
	)
	t.logger.Debug("graph snapshot taken",
		slog.String("session_id", t.sessionID),
		slog.Int("edges", stats.Edges),
		slog.Int("nodes", stats.Nodes),
		slog.Duration("took", time.Since(start)),
	)
	return snap, nil
}

// History returns the retained handoff records, oldest first. Empty when
// the session was configured without a history.
func (t *Tracker) History() []SwapRecord {
	if t.history == nil {
		return nil
	}
	return t.history.slice()
}

// Stats returns the session's producer-side counters.
func (t *Tracker) Stats() Stats {
	s := Stats{
		SessionID: t.sessionID,
		Messages:  t.messages,
		Swaps:     t.swaps,
		Queries:   t.queries,
	}
	if t.shadowV != nil {
		s.Violations = t.shadowV.Violations()
	}
	return s
}

// Close ends the session and joins the engine worker. Messages recorded
// since the last handoff are discarded; query first when the final graph
// matters. Close is idempotent.
func (t *Tracker) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	err := t.ch.Close()

	t.logger.Info("tracking session closed",
		slog.String("session_id", t.sessionID),
		slog.Int("messages", t.messages),
		slog.Int("swaps", t.swaps),
		slog.Int("queries", t.queries),
	)
	return err
}

// enqueue is the guarded path behind every recording method.
func (t *Tracker) enqueue(m depgraph.Message) bool {
	if !t.ch.EnqueueEnabled() {
		return false
	}
	t.ch.Enqueue(m)
	t.messages++
	return true
}

// observeSwap feeds the history ring and the swap counter.
func (t *Tracker) observeSwap(s depgraph.SwapStats) {
	t.swaps++
	t.history.push(SwapRecord{
		Seq:     t.swaps,
		Sent:    s.Sent,
		Blocked: s.Blocked,
		Cause:   s.Cause,
		At:      time.Now(),
	})
}

// countSwap only counts; sessions without a history still report Swaps.
func (t *Tracker) countSwap(depgraph.SwapStats) {
	t.swaps++
}
