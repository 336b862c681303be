// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package depgraph moves incremental dependency-graph construction off the
// hot path.
//
// A latency-critical producer goroutine records graph events (node reads,
// node writes, task and scope boundaries) as plain messages. Messages are
// batched into a buffer and handed to a single worker goroutine, which feeds
// them to a Builder in the exact order they were produced. The producer pays
// one slice append per event; everything expensive happens on the worker.
//
// # Ownership Model
//
// A fully enabled channel uses exactly two message buffers for its whole
// lifetime. The producer allocates one at construction; the worker allocates
// the other and immediately hands it over. From then on the pair cycles:
//
//   - the producer fills its buffer and, when full, trades it for the empty
//     one the worker sent back
//   - the worker drains the full buffer, truncates it, and returns it
//
// Buffers move between goroutines over capacity-one channels; they are never
// shared, so neither side takes a lock. A buffer the producer receives must
// be empty; anything else means ownership was violated and the engine
// panics rather than build on a corrupt stream.
//
// # Thread Safety
//
// All Channel methods must be called from one producer goroutine. The
// Builder runs only on the worker goroutine and needs no locking. The
// Validator, when active, runs inline on the producer goroutine.
//
// # Modes
//
// Construction fixes two independent switches: fully enabled (worker plus
// buffer ring, graph actually built) and shadow (a Validator sees every
// message synchronously before it is committed). Enqueueing is legal when
// either is on. Query requires fully enabled. With both off the channel is
// inert and only Close and the mode getters may be called.
//
// # Lifecycle
//
//  1. Create with New; the worker (if enabled) starts immediately.
//  2. Enqueue messages; buffer handoffs happen transparently.
//  3. Query at any point for a snapshot that reflects every message
//     enqueued so far and none after; queries flush early, so a buffer
//     may be handed over almost empty.
//  4. Close; the worker finishes the buffer it holds and exits before
//     Close returns. Messages not yet handed off are discarded, so callers
//     that need the final state query first.
//
// Protocol violations (enqueueing while disabled, querying a shadow-only
// channel, using a closed channel) are programming errors and panic with
// the package's sentinel errors.
package depgraph
