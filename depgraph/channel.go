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
	"log/slog"
	"sync"
	"time"
)

// Validator observes the message stream synchronously on the producer
// goroutine, before each message is committed to a buffer. Implementations
// replay the stream cheaply and assert its legality; they build nothing.
type Validator interface {
	// Enabled reports whether the validator wants the stream at all.
	// New consults it once, at construction.
	Enabled() bool

	// Enqueue is called for every message before it is committed, in
	// stream order. It must be safe to call for every message variant.
	Enqueue(Message)
}

// Channel is the producer-side handle of the engine, generic over the
// snapshot type S its Builder produces.
//
// Description:
//
//	Channel batches graph events into a pre-allocated buffer and trades
//	full buffers for empty ones with a single worker goroutine. The
//	per-event cost on the producer is one slice append; the producer
//	blocks only while the worker finishes draining, which is the
//	engine's backpressure.
//
// Thread Safety:
//
//	NOT safe for concurrent use. All methods, Close included, must be
//	called from the one producer goroutine. The worker goroutine is
//	internal and reached only through buffer handoffs.
type Channel[S any] struct {
	capacity int
	logger   *slog.Logger

	fullyEnabled bool
	shadow       Validator

	// current is the producer-owned buffer. Its backing array and the
	// one the worker allocates are the only two the channel ever uses.
	current []Message

	empty chan []Message
	full  chan []Message
	query chan S

	// done is closed by the worker on exit; Close joins on it.
	done chan struct{}

	observer func(SwapStats)
	metrics  *engineMetrics

	closeOnce sync.Once
	closed    bool
}

// New creates a channel and, when enabled, starts its worker goroutine.
//
// Inputs:
//
//	enabled - Whether the graph is actually built. When false, the
//	          channel is shadow-only or inert depending on Options.Shadow.
//	builder - Receives the event stream on the worker goroutine. Must be
//	          non-nil when enabled; ignored otherwise.
//	opts    - Functional options; see Options.
//
// New panics with ErrBadCapacity or ErrNilBuilder on misconfiguration.
// Both are programming errors, not runtime conditions.
func New[S any](enabled bool, builder Builder[S], opts ...Option) *Channel[S] {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Capacity < 1 {
		panic(ErrBadCapacity)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	c := &Channel[S]{
		capacity:     o.Capacity,
		logger:       o.Logger,
		fullyEnabled: enabled,
		observer:     o.SwapObserver,
	}
	if o.Shadow != nil && o.Shadow.Enabled() {
		c.shadow = o.Shadow
	}
	if !enabled {
		return c
	}
	if builder == nil {
		panic(ErrNilBuilder)
	}

	c.metrics = newEngineMetrics(c.logger)
	c.current = make([]Message, 0, o.Capacity)
	c.empty = make(chan []Message, 1)
	c.full = make(chan []Message, 1)
	c.query = make(chan S, 1)
	c.done = make(chan struct{})

	go runWorker(builder, o.Capacity, c.full, c.empty, c.query, c.done, c.metrics, c.logger)

	c.logger.Debug("dependency channel opened",
		slog.Int("capacity", o.Capacity),
		slog.Bool("shadow", c.shadow != nil),
	)
	return c
}

// FullyEnabled reports whether a worker goroutine is building the graph.
func (c *Channel[S]) FullyEnabled() bool { return c.fullyEnabled }

// ShadowActive reports whether a validator observes the stream.
func (c *Channel[S]) ShadowActive() bool { return c.shadow != nil }

// EnqueueEnabled reports whether Enqueue may be called. Hot paths gate on
// this before paying for message construction.
func (c *Channel[S]) EnqueueEnabled() bool { return c.fullyEnabled || c.shadow != nil }

// Enqueue appends one message to the stream.
//
// Description:
//
//	The shadow validator, when active, sees the message before it is
//	committed, so a validation panic fires before an invalid message
//	can reach the graph. When the buffer reaches capacity the producer
//	trades it for the worker's empty one; that trade is the only point
//	where this call can block.
//
// Enqueue panics with ErrEnqueueDisabled when neither mode is on, and
// with ErrClosed after Close.
func (c *Channel[S]) Enqueue(m Message) {
	if c.closed {
		panic(ErrClosed)
	}
	if c.shadow == nil && !c.fullyEnabled {
		panic(ErrEnqueueDisabled)
	}
	if c.shadow != nil {
		c.shadow.Enqueue(m)
	}
	if !c.fullyEnabled {
		return
	}

	c.current = append(c.current, m)
	if len(c.current) == c.capacity {
		c.swap(SwapCapacity)
	}
}

// Query flushes every pending message and returns the builder's snapshot.
//
// Description:
//
//	Query is a full barrier: the snapshot reflects every message
//	enqueued on this channel before the call and none after. It rides
//	the normal buffer ring; a marker message is enqueued, the current
//	buffer is handed over even if nearly empty, and the call blocks
//	until the worker answers. If the marker itself fills the buffer,
//	the explicit flush ships an empty one; the worker returns it
//	untouched and the ordering still holds.
//
// Query panics with ErrNotFullyEnabled on a channel without a worker
// (shadow-only included), and with ErrClosed after Close.
func (c *Channel[S]) Query() S {
	if c.closed {
		panic(ErrClosed)
	}
	if !c.fullyEnabled {
		panic(ErrNotFullyEnabled)
	}

	c.Enqueue(queryMessage())
	c.swap(SwapQuery)

	snap := <-c.query
	c.metrics.recordQuery()
	return snap
}

// Close shuts the channel down and joins the worker.
//
// Description:
//
//	Close closes the outbound buffer channel; the worker finishes the
//	buffer it already holds, recycles it, and exits. Close returns only
//	after the worker goroutine has terminated, so callers may assume
//	the builder is quiescent. Messages enqueued since the last handoff
//	are discarded with the session; call Query first when the final
//	state matters.
//
// Close is idempotent. On channels that never had a worker it only marks
// the handle closed.
func (c *Channel[S]) Close() error {
	c.closeOnce.Do(func() {
		c.closed = true
		if !c.fullyEnabled {
			return
		}
		dropped := len(c.current)
		close(c.full)
		<-c.done
		c.logger.Debug("dependency channel closed", slog.Int("dropped", dropped))
	})
	return nil
}

// swap trades the producer's buffer for the worker's empty one.
//
// The receive is the producer's single blocking point. A non-empty buffer
// coming back means the two-buffer ownership was violated somewhere, and
// the engine panics rather than keep building on a corrupt stream.
func (c *Channel[S]) swap(cause SwapCause) {
	start := time.Now()
	fresh := <-c.empty
	blocked := time.Since(start)
	if len(fresh) != 0 {
		panic(ErrDirtyBuffer)
	}

	out := c.current
	c.current = fresh
	c.full <- out

	c.metrics.recordSwap(cause, blocked)
	if c.observer != nil {
		c.observer(SwapStats{Sent: len(out), Blocked: blocked, Cause: cause})
	}
}
