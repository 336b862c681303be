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
	"fmt"
	"log/slog"
	"time"
)

// Builder consumes the event stream and materializes the dependency graph.
//
// Thread Safety:
//
//	Exactly one goroutine calls a Builder for the lifetime of its
//	channel, always in enqueue order, so implementations need no
//	locking.
//
// A Builder that panics takes the process down. That is deliberate: the
// stream is the single source of truth for the graph, and a builder that
// cannot apply it has nothing sound to fall back to.
type Builder[S any] interface {
	// Read records a read of the named node under the open task, if any.
	Read(NodeID)

	// Write records a write of the named node.
	Write(NodeID)

	// PushTask opens a task context attributed to the named node.
	PushTask(NodeID)

	// PopTask closes the innermost task context. The node is repeated
	// so the builder can detect unbalanced pairs.
	PopTask(NodeID)

	// PushScope opens a suppression scope.
	PushScope()

	// PopScope closes the innermost suppression scope.
	PopScope()

	// Query returns a snapshot of everything built so far.
	Query() S
}

// runWorker is the drain loop behind a fully enabled channel.
//
// It allocates the second of the channel's two buffers, hands it to the
// producer, then drains full buffers in arrival order, dispatching each
// message to the builder. Snapshot markers are answered on the query
// channel in stream position, which is what makes Query a barrier.
//
// Sends on empty can never block: the producer always owns one of the two
// buffers, so the capacity-one channel always has room for the other. The
// loop ends when full is closed and drained, which is the normal
// shutdown path.
func runWorker[S any](
	b Builder[S],
	capacity int,
	full <-chan []Message,
	empty chan<- []Message,
	query chan<- S,
	done chan<- struct{},
	em *engineMetrics,
	logger *slog.Logger,
) {
	defer close(done)

	empty <- make([]Message, 0, capacity)
	logger.Debug("graph worker started", slog.Int("capacity", capacity))

	for buf := range full {
		start := time.Now()
		for _, m := range buf {
			switch m.Op {
			case OpRead:
				b.Read(m.Node)
			case OpWrite:
				b.Write(m.Node)
			case OpPushTask:
				b.PushTask(m.Node)
			case OpPopTask:
				b.PopTask(m.Node)
			case OpPushScope:
				b.PushScope()
			case OpPopScope:
				b.PopScope()
			case OpQuery:
				query <- b.Query()
			default:
				panic(fmt.Sprintf("unhandled message %q in graph worker", m))
			}
		}
		em.recordDrain(len(buf), time.Since(start))
		empty <- buf[:0]
	}

	logger.Debug("graph worker stopped")
}
