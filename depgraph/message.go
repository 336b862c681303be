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

import "fmt"

// NodeID identifies a node in the dependency graph. The engine treats IDs
// as opaque values; producers pick the naming scheme.
type NodeID string

// Op selects the variant of a Message. The set is closed: the worker
// dispatches with an exhaustive switch and panics on anything else.
type Op uint8

const (
	// OpInvalid is the zero value. It never appears in a well-formed
	// stream; the worker treats it as a programming error.
	OpInvalid Op = iota

	// OpRead records a read of the named node.
	OpRead

	// OpWrite records a write of the named node.
	OpWrite

	// OpPushTask opens a task context attributed to the named node.
	OpPushTask

	// OpPopTask closes the innermost task context. The node is repeated
	// so builders can detect unbalanced pairs.
	OpPopTask

	// OpPushScope opens a suppression scope. Reads and writes inside a
	// scope are intentionally untracked.
	OpPushScope

	// OpPopScope closes the innermost suppression scope.
	OpPopScope

	// OpQuery demands a snapshot of the graph built so far. Only
	// Channel.Query constructs it; it never carries a node.
	OpQuery
)

// opNames maps Op values to their string representations.
var opNames = map[Op]string{
	OpInvalid:   "invalid",
	OpRead:      "read",
	OpWrite:     "write",
	OpPushTask:  "push_task",
	OpPopTask:   "pop_task",
	OpPushScope: "push_scope",
	OpPopScope:  "pop_scope",
	OpQuery:     "query",
}

// String returns the string representation of the Op.
func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "invalid"
}

// Message is one element of the event stream handed from the producer to
// the worker. Messages are plain values; copying one into a buffer is the
// transfer, there is no shared state behind it.
//
// Clients construct messages through Read, Write, PushTask, PopTask,
// PushScope and PopScope rather than composite literals, which keeps
// illegal combinations (a scope marker carrying a node) out of the stream.
type Message struct {
	// Op selects the variant.
	Op Op

	// Node is the subject for OpRead, OpWrite, OpPushTask and OpPopTask.
	// It is empty for the remaining variants.
	Node NodeID
}

// Read builds a message recording a read of node n.
func Read(n NodeID) Message { return Message{Op: OpRead, Node: n} }

// Write builds a message recording a write of node n.
func Write(n NodeID) Message { return Message{Op: OpWrite, Node: n} }

// PushTask builds a message opening a task context for node n.
func PushTask(n NodeID) Message { return Message{Op: OpPushTask, Node: n} }

// PopTask builds a message closing the task context for node n.
func PopTask(n NodeID) Message { return Message{Op: OpPopTask, Node: n} }

// PushScope builds a message opening a suppression scope.
func PushScope() Message { return Message{Op: OpPushScope} }

// PopScope builds a message closing a suppression scope.
func PopScope() Message { return Message{Op: OpPopScope} }

// queryMessage builds the snapshot marker. Internal: clients go through
// Channel.Query, which also performs the flush and the result wait.
func queryMessage() Message { return Message{Op: OpQuery} }

// String renders the message for logs and panic diagnostics,
// e.g. "read(crate.foo)" or "push_scope".
func (m Message) String() string {
	switch m.Op {
	case OpPushScope, OpPopScope, OpQuery, OpInvalid:
		return m.Op.String()
	default:
		return fmt.Sprintf("%s(%s)", m.Op, m.Node)
	}
}
