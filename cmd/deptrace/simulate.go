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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/deptrace/depgraph"
	"github.com/AleutianAI/deptrace/depgraph/edges"
	"github.com/AleutianAI/deptrace/pkg/telemetry"
	"github.com/AleutianAI/deptrace/tracker"
)

// workload describes the synthetic recording pattern: a stream of tasks,
// each reading a sliding window of data nodes and writing a few back.
// The shape gives the graph real structure (shared reads between
// neighboring tasks) instead of random noise.
type workload struct {
	Tasks      int
	Reads      int
	Writes     int
	ScopeEvery int // every Nth task records inside a suppression scope
	QueryEvery int // snapshot every N tasks; 0 = only at the end
	Rate       float64
}

func runSimulate(cmd *cobra.Command, args []string) error {
	logger := appLogger.Slog()
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// File config provides defaults; explicit flags win.
	if !cmd.Flags().Changed("capacity") && globalConfig.Capacity > 0 {
		simCapacity = globalConfig.Capacity
	}
	if !cmd.Flags().Changed("shadow") {
		simShadow = simShadow || globalConfig.Shadow
	}
	if !cmd.Flags().Changed("strict") {
		simStrict = simStrict || globalConfig.Strict
	}
	if !cmd.Flags().Changed("history") && globalConfig.History > 0 {
		simHistory = globalConfig.History
	}

	if simMetricsAddr != "" {
		tcfg := telemetry.DefaultConfig()
		tcfg.ServiceVersion = version
		tcfg.MetricExporter = "prometheus"
		shutdown, err := telemetry.Init(ctx, tcfg)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				logger.Warn("telemetry shutdown", slog.Any("error", err))
			}
		}()
	}

	tr, err := tracker.New(tracker.Config{
		Enabled:          true,
		Shadow:           simShadow,
		PanicOnViolation: simShadow,
		Strict:           simStrict,
		Capacity:         simCapacity,
		HistorySize:      simHistory,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("create tracker: %w", err)
	}
	defer tr.Close()

	w := workload{
		Tasks:      simTasks,
		Reads:      simReads,
		Writes:     simWrites,
		ScopeEvery: simScopeEvery,
		QueryEvery: simQueryEvery,
		Rate:       simRate,
	}

	g, gctx := errgroup.WithContext(ctx)

	if simMetricsAddr != "" {
		srv := &http.Server{Addr: simMetricsAddr, Handler: metricsMux()}
		g.Go(func() error {
			logger.Info("metrics endpoint up", slog.String("addr", simMetricsAddr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	var snap *edges.Snapshot
	g.Go(func() error {
		defer stop() // workload done: release the metrics server
		var err error
		snap, err = runWorkload(gctx, tr, w)
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	printReport(cmd, tr, snap)
	return nil
}

// runWorkload drives the tracker from one goroutine, as the engine
// requires, and returns the final snapshot. Cancellation between tasks
// stops early; the snapshot then covers what was recorded so far.
func runWorkload(ctx context.Context, tr *tracker.Tracker, w workload) (*edges.Snapshot, error) {
	var limiter *rate.Limiter
	if w.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(w.Rate), 1)
	}

	for i := 0; i < w.Tasks; i++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break // context cancelled
			}
		} else if ctx.Err() != nil {
			break
		}

		task := depgraph.NodeID(fmt.Sprintf("task/%05d", i))
		record := func() {
			// Sliding read window: neighboring tasks share inputs.
			for r := 0; r < w.Reads; r++ {
				tr.Read(depgraph.NodeID(fmt.Sprintf("data/%05d", (i+r)%(w.Tasks+w.Reads))))
			}
			for wr := 0; wr < w.Writes; wr++ {
				tr.Write(depgraph.NodeID(fmt.Sprintf("out/%05d_%d", i, wr)))
			}
		}

		tr.WithTask(task, func() {
			if w.ScopeEvery > 0 && i%w.ScopeEvery == w.ScopeEvery-1 {
				tr.WithScope(record)
			} else {
				record()
			}
		})

		if w.QueryEvery > 0 && i%w.QueryEvery == w.QueryEvery-1 {
			if _, err := tr.Query(ctx); err != nil {
				return nil, fmt.Errorf("mid-run snapshot: %w", err)
			}
		}
	}

	snap, err := tr.Query(ctx)
	if err != nil {
		return nil, fmt.Errorf("final snapshot: %w", err)
	}
	return snap, nil
}

// metricsMux serves the Prometheus scrape endpoint. The handler is nil
// until telemetry.Init ran with the prometheus exporter; a 503 then tells
// the operator what is miswired.
func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		h := telemetry.MetricsHandler()
		if h == nil {
			http.Error(rw, "prometheus exporter not configured", http.StatusServiceUnavailable)
			return
		}
		h.ServeHTTP(rw, r)
	})
	return mux
}

// printReport writes the human summary to the command's stdout.
func printReport(cmd *cobra.Command, tr *tracker.Tracker, snap *edges.Snapshot) {
	out := cmd.OutOrStdout()
	gs := snap.Stats()
	ts := tr.Stats()

	fmt.Fprintf(out, "session %s\n", ts.SessionID)
	fmt.Fprintf(out, "  graph:    %d nodes, %d edges\n", gs.Nodes, gs.Edges)
	fmt.Fprintf(out, "  stream:   %d messages, %d suppressed in scopes\n", gs.Messages, gs.Suppressed)
	fmt.Fprintf(out, "  engine:   %d swaps, %d queries\n", ts.Swaps, ts.Queries)
	if ts.Violations > 0 {
		fmt.Fprintf(out, "  shadow:   %d violations\n", ts.Violations)
	}

	history := tr.History()
	if len(history) == 0 {
		return
	}
	fmt.Fprintf(out, "  last %d handoffs:\n", len(history))
	for _, rec := range history {
		fmt.Fprintf(out, "    #%-4d %6d msgs  blocked %-12s %s\n",
			rec.Seq, rec.Sent, rec.Blocked.Round(time.Microsecond), rec.Cause)
	}
}
