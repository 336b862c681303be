// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package edges

import (
	"fmt"

	"github.com/AleutianAI/deptrace/depgraph"
)

// frameKind distinguishes the two entries that share the frame stack.
type frameKind uint8

const (
	frameTask frameKind = iota
	frameScope
)

// frame is one open task or scope.
type frame struct {
	kind frameKind
	node depgraph.NodeID // task frames only
}

// Edge is a directed dependency between two nodes.
//
// Direction follows the data: a read of n under task t produces n -> t
// (t depends on n), a write of n under task t produces t -> n (n is
// produced by t).
type Edge struct {
	// From is the source node.
	From depgraph.NodeID

	// To is the target node.
	To depgraph.NodeID
}

// String renders the edge as "from -> to".
func (e Edge) String() string {
	return fmt.Sprintf("%s -> %s", e.From, e.To)
}

// Options configures a Builder.
type Options struct {
	// Strict makes reads and writes with no open frame panic. When
	// false they are counted and dropped, which suits exploratory
	// embeddings where not every call path opens tasks yet.
	Strict bool
}

// DefaultOptions returns the configuration NewBuilder starts from.
func DefaultOptions() Options {
	return Options{Strict: true}
}

// Option is a functional option for configuring a Builder.
type Option func(*Options)

// WithStrict sets whether orphan reads and writes are fatal.
func WithStrict(strict bool) Option {
	return func(o *Options) {
		o.Strict = strict
	}
}

// Builder accumulates task-attributed edges. It implements
// depgraph.Builder[*Snapshot].
type Builder struct {
	strict bool

	stack []frame

	edges   []Edge
	edgeSet map[Edge]struct{}
	nodes   map[depgraph.NodeID]struct{}

	messages     int
	suppressed   int
	orphanReads  int
	orphanWrites int
}

// NewBuilder creates an empty edge accumulator.
func NewBuilder(opts ...Option) *Builder {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Builder{
		strict:  o.Strict,
		edgeSet: make(map[Edge]struct{}),
		nodes:   make(map[depgraph.NodeID]struct{}),
	}
}

// Read records a read of node n under the innermost open task.
// Inside a scope the read is suppressed. With no open frame, strict
// builders panic with ErrReadOutsideTask; lenient ones count and drop.
func (b *Builder) Read(n depgraph.NodeID) {
	b.messages++
	task, ok := b.innermostTask()
	if !ok {
		return // suppressed by a scope
	}
	if task == "" {
		if b.strict {
			panic(fmt.Errorf("%w: read(%s)", ErrReadOutsideTask, n))
		}
		b.orphanReads++
		return
	}
	b.addEdge(Edge{From: n, To: task})
}

// Write records a write of node n under the innermost open task, with the
// same scope and orphan handling as Read.
func (b *Builder) Write(n depgraph.NodeID) {
	b.messages++
	task, ok := b.innermostTask()
	if !ok {
		return
	}
	if task == "" {
		if b.strict {
			panic(fmt.Errorf("%w: write(%s)", ErrWriteOutsideTask, n))
		}
		b.orphanWrites++
		return
	}
	b.addEdge(Edge{From: task, To: n})
}

// PushTask opens a task frame for node n. The node joins the graph even
// if the task never reads or writes.
func (b *Builder) PushTask(n depgraph.NodeID) {
	b.messages++
	b.stack = append(b.stack, frame{kind: frameTask, node: n})
	b.nodes[n] = struct{}{}
}

// PopTask closes the innermost frame, which must be a task for node n.
func (b *Builder) PopTask(n depgraph.NodeID) {
	b.messages++
	if len(b.stack) == 0 {
		panic(fmt.Errorf("%w: pop_task(%s)", ErrTaskUnderflow, n))
	}
	top := b.stack[len(b.stack)-1]
	if top.kind != frameTask {
		panic(fmt.Errorf("%w: pop_task(%s) while a scope is open", ErrTaskMismatch, n))
	}
	if top.node != n {
		panic(fmt.Errorf("%w: pop_task(%s) but task %s is open", ErrTaskMismatch, n, top.node))
	}
	b.stack = b.stack[:len(b.stack)-1]
}

// PushScope opens a suppression scope frame.
func (b *Builder) PushScope() {
	b.messages++
	b.stack = append(b.stack, frame{kind: frameScope})
}

// PopScope closes the innermost frame, which must be a scope.
func (b *Builder) PopScope() {
	b.messages++
	if len(b.stack) == 0 {
		panic(ErrScopeUnderflow)
	}
	if b.stack[len(b.stack)-1].kind != frameScope {
		panic(fmt.Errorf("%w: task %s is open",
			ErrScopeMismatch, b.stack[len(b.stack)-1].node))
	}
	b.stack = b.stack[:len(b.stack)-1]
}

// Query returns an immutable snapshot of the graph built so far.
func (b *Builder) Query() *Snapshot {
	b.messages++
	return newSnapshot(b)
}

// innermostTask resolves the frame that governs a read or write. The
// second return is false when a scope suppresses the message; an empty
// node with true means no frame is open at all.
func (b *Builder) innermostTask() (depgraph.NodeID, bool) {
	if len(b.stack) == 0 {
		return "", true
	}
	top := b.stack[len(b.stack)-1]
	if top.kind == frameScope {
		b.suppressed++
		return "", false
	}
	return top.node, true
}

// addEdge registers the edge and both endpoints, deduplicating repeats.
func (b *Builder) addEdge(e Edge) {
	if _, dup := b.edgeSet[e]; dup {
		return
	}
	b.edgeSet[e] = struct{}{}
	b.edges = append(b.edges, e)
	b.nodes[e.From] = struct{}{}
	b.nodes[e.To] = struct{}{}
}
