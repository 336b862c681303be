// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/deptrace/depgraph"
	"github.com/AleutianAI/deptrace/depgraph/edges"
)

// runBench sweeps buffer capacities over the same message count and
// reports producer-side throughput. It drives the engine channel
// directly rather than through a tracker: the point is the cost of
// Enqueue plus handoffs, without session counters in the way.
func runBench(cmd *cobra.Command, args []string) error {
	logger := appLogger.Slog()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "capacity\tmessages\tswaps\telapsed\tthroughput\t")

	for _, capacity := range benchCapacities {
		if capacity < 1 {
			return fmt.Errorf("capacity must be positive, got %d", capacity)
		}
		swaps, elapsed := benchOne(capacity, benchMessages, logger)
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%.0f msg/s\t\n",
			capacity, benchMessages, swaps,
			elapsed.Round(time.Millisecond),
			float64(benchMessages)/elapsed.Seconds(),
		)
	}
	return tw.Flush()
}

// benchOne records msgs read/write pairs under one long-lived task and
// returns the handoff count and wall time for the recording phase. The
// final query is taken outside the timed window; it flushes the tail so
// every run drains the same number of messages.
func benchOne(capacity, msgs int, logger *slog.Logger) (swaps int, elapsed time.Duration) {
	ch := depgraph.New[*edges.Snapshot](true, edges.NewBuilder(),
		depgraph.WithCapacity(capacity),
		depgraph.WithLogger(logger),
		depgraph.WithSwapObserver(func(depgraph.SwapStats) { swaps++ }),
	)
	defer ch.Close()

	ch.Enqueue(depgraph.PushTask("bench/root"))

	// A small node vocabulary keeps the builder's maps hot and the
	// measurement dominated by the channel, not map growth.
	nodes := make([]depgraph.NodeID, 512)
	for i := range nodes {
		nodes[i] = depgraph.NodeID(fmt.Sprintf("node/%03d", i))
	}

	start := time.Now()
	for i := 0; i < msgs/2; i++ {
		ch.Enqueue(depgraph.Read(nodes[i%len(nodes)]))
		ch.Enqueue(depgraph.Write(nodes[(i+7)%len(nodes)]))
	}
	elapsed = time.Since(start)

	ch.Enqueue(depgraph.PopTask("bench/root"))
	ch.Query()
	return swaps, elapsed
}
