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

import "errors"

// Sentinel errors for channel protocol violations. These are carried by
// panics rather than returned: each one reports a bug in the calling code,
// and the engine fails fast instead of continuing with a corrupt event
// stream. The only error the engine tolerates silently is the closed
// outbound channel the worker observes during a normal shutdown.
var (
	// ErrEnqueueDisabled reports an Enqueue call on a channel with both
	// full tracking and shadow validation switched off. Callers on hot
	// paths gate on EnqueueEnabled() before building messages.
	ErrEnqueueDisabled = errors.New("enqueue called while enqueueing is disabled")

	// ErrNotFullyEnabled reports a Query on a channel without a worker,
	// which includes shadow-only channels: they validate the stream but
	// build no graph to snapshot.
	ErrNotFullyEnabled = errors.New("operation requires a fully enabled channel")

	// ErrDirtyBuffer reports that the producer received a non-empty
	// buffer back from the worker. The two buffers are owned, never
	// shared; a dirty one means that ownership was violated.
	ErrDirtyBuffer = errors.New("recycled buffer is not empty")

	// ErrClosed reports any use of a channel after Close.
	ErrClosed = errors.New("channel is closed")

	// ErrNilBuilder reports construction of a fully enabled channel
	// without a builder to receive the stream.
	ErrNilBuilder = errors.New("builder must not be nil on an enabled channel")

	// ErrBadCapacity reports a configured buffer capacity below one
	// message.
	ErrBadCapacity = errors.New("buffer capacity must be at least one message")
)
