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
	"time"
)

// DefaultCapacity is the number of messages a buffer holds before the
// producer hands it to the worker. Large enough that handoffs are rare,
// small enough that a stalled worker backpressures the producer before
// memory grows.
const DefaultCapacity = 2048

// SwapCause identifies what forced a buffer handoff.
type SwapCause int

const (
	// SwapCapacity marks a handoff forced by a buffer reaching capacity.
	SwapCapacity SwapCause = iota

	// SwapQuery marks an early flush forced by a snapshot request.
	SwapQuery
)

// String returns the string representation of the SwapCause.
func (c SwapCause) String() string {
	switch c {
	case SwapCapacity:
		return "capacity"
	case SwapQuery:
		return "query"
	default:
		return "unknown"
	}
}

// SwapStats describes one buffer handoff as seen from the producer side.
type SwapStats struct {
	// Sent is the number of messages in the buffer given to the worker.
	// Query flushes may hand over buffers that are nearly or fully empty.
	Sent int

	// Blocked is how long the producer waited for the worker to return
	// an empty buffer. Sustained growth means the worker cannot keep up
	// with the producer.
	Blocked time.Duration

	// Cause is what forced the handoff.
	Cause SwapCause
}

// Options configures a Channel.
type Options struct {
	// Capacity is the per-buffer message count that triggers a handoff.
	// Must be at least one; New panics otherwise.
	Capacity int

	// Shadow observes every message synchronously before it is
	// committed. A nil or disabled validator leaves shadow mode off.
	Shadow Validator

	// Logger receives lifecycle events. If nil, slog.Default() is used.
	Logger *slog.Logger

	// SwapObserver, when non-nil, runs on the producer goroutine after
	// every handoff. It must be cheap; the producer waits for it.
	SwapObserver func(SwapStats)
}

// DefaultOptions returns the configuration New starts from.
func DefaultOptions() Options {
	return Options{Capacity: DefaultCapacity}
}

// Option is a functional option for configuring a Channel.
type Option func(*Options)

// WithCapacity sets the buffer capacity that triggers a handoff.
func WithCapacity(n int) Option {
	return func(o *Options) {
		o.Capacity = n
	}
}

// WithShadow installs a validator that sees every message before commit.
func WithShadow(v Validator) Option {
	return func(o *Options) {
		o.Shadow = v
	}
}

// WithLogger sets the logger for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithSwapObserver sets a callback invoked after every buffer handoff.
func WithSwapObserver(fn func(SwapStats)) Option {
	return func(o *Options) {
		o.SwapObserver = fn
	}
}
