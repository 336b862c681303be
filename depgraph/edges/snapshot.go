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
	"sort"

	"github.com/AleutianAI/deptrace/depgraph"
)

// Stats are the counters accumulated alongside the graph.
type Stats struct {
	// Messages is the number of stream messages the builder has applied,
	// snapshot markers included.
	Messages int

	// Edges and Nodes are the graph size at snapshot time.
	Edges int
	Nodes int

	// Suppressed counts reads and writes dropped inside scopes.
	Suppressed int

	// OrphanReads and OrphanWrites count messages seen with no open
	// frame. Always zero on strict builders, which panic instead.
	OrphanReads  int
	OrphanWrites int

	// OpenFrames is the task/scope stack depth at snapshot time. A
	// snapshot taken between a push and its pop reports the imbalance
	// here rather than failing.
	OpenFrames int
}

// Snapshot is a point-in-time copy of the accumulated graph. It is
// immutable: the builder keeps building after Query and never touches a
// snapshot again.
type Snapshot struct {
	edges   []Edge
	edgeSet map[Edge]struct{}
	nodes   []depgraph.NodeID
	nodeSet map[depgraph.NodeID]struct{}
	stats   Stats
}

// newSnapshot copies the builder's state.
func newSnapshot(b *Builder) *Snapshot {
	s := &Snapshot{
		edges:   append([]Edge(nil), b.edges...),
		edgeSet: make(map[Edge]struct{}, len(b.edgeSet)),
		nodes:   make([]depgraph.NodeID, 0, len(b.nodes)),
		nodeSet: make(map[depgraph.NodeID]struct{}, len(b.nodes)),
		stats: Stats{
			Messages:     b.messages,
			Edges:        len(b.edges),
			Nodes:        len(b.nodes),
			Suppressed:   b.suppressed,
			OrphanReads:  b.orphanReads,
			OrphanWrites: b.orphanWrites,
			OpenFrames:   len(b.stack),
		},
	}
	for e := range b.edgeSet {
		s.edgeSet[e] = struct{}{}
	}
	for n := range b.nodes {
		s.nodes = append(s.nodes, n)
		s.nodeSet[n] = struct{}{}
	}
	sort.Slice(s.nodes, func(i, j int) bool { return s.nodes[i] < s.nodes[j] })
	return s
}

// Len returns the number of edges in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.edges)
}

// Edges returns the edges in insertion order. The slice is a copy.
func (s *Snapshot) Edges() []Edge {
	return append([]Edge(nil), s.edges...)
}

// Nodes returns every node in the snapshot, sorted. The slice is a copy.
func (s *Snapshot) Nodes() []depgraph.NodeID {
	return append([]depgraph.NodeID(nil), s.nodes...)
}

// HasEdge reports whether the snapshot contains the edge from -> to.
func (s *Snapshot) HasEdge(from, to depgraph.NodeID) bool {
	_, ok := s.edgeSet[Edge{From: from, To: to}]
	return ok
}

// ContainsNode reports whether the node appears in the snapshot.
func (s *Snapshot) ContainsNode(n depgraph.NodeID) bool {
	_, ok := s.nodeSet[n]
	return ok
}

// Stats returns the snapshot's counters.
func (s *Snapshot) Stats() Stats {
	return s.stats
}
