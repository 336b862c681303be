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
	"time"

	"github.com/AleutianAI/deptrace/depgraph"
)

// SwapRecord is one buffer handoff as seen from the producer side.
type SwapRecord struct {
	// Seq is the 1-based handoff index within the session.
	Seq int

	// Sent is the number of messages in the handed-off buffer.
	Sent int

	// Blocked is how long the producer waited on the worker. The
	// first place to look when the recorded workload stutters.
	Blocked time.Duration

	// Cause is what forced the handoff.
	Cause depgraph.SwapCause

	// At is when the handoff completed.
	At time.Time
}

// swapLog keeps the last N handoffs in a fixed ring.
//
// # Thread Safety
//
// NOT safe for concurrent use. It is fed by the engine's swap observer,
// which runs on the producer goroutine, and read by History on the same
// goroutine.
type swapLog struct {
	records []SwapRecord
	head    int // next write position
	count   int
}

func newSwapLog(size int) *swapLog {
	return &swapLog{records: make([]SwapRecord, size)}
}

// push adds a record, overwriting the oldest once the ring is full.
func (l *swapLog) push(r SwapRecord) {
	l.records[l.head] = r
	l.head = (l.head + 1) % len(l.records)
	if l.count < len(l.records) {
		l.count++
	}
}

// slice returns the retained records from oldest to newest. The returned
// slice is a copy.
func (l *swapLog) slice() []SwapRecord {
	if l.count == 0 {
		return nil
	}
	out := make([]SwapRecord, l.count)
	if l.count < len(l.records) {
		copy(out, l.records[:l.count])
		return out
	}
	// Ring has wrapped: oldest sits at head.
	n := copy(out, l.records[l.head:])
	copy(out[n:], l.records[:l.head])
	return out
}

func (l *swapLog) len() int {
	return l.count
}
