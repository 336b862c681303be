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
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/deptrace/tracker"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRunWorkload_BuildsGraph(t *testing.T) {
	tr, err := tracker.New(tracker.Config{
		Enabled:  true,
		Capacity: 32,
		Logger:   quietLogger(),
	})
	require.NoError(t, err)
	defer tr.Close()

	snap, err := runWorkload(context.Background(), tr, workload{
		Tasks:  20,
		Reads:  4,
		Writes: 2,
	})
	require.NoError(t, err)

	gs := snap.Stats()
	assert.Greater(t, gs.Edges, 20*2, "read edges on top of write edges")
	assert.True(t, snap.ContainsNode("task/00000"))
	assert.True(t, snap.ContainsNode("task/00019"))
	assert.True(t, snap.HasEdge("task/00004", "out/00004_0"), "write edge task -> out node")
	assert.True(t, snap.HasEdge("data/00000", "task/00000"), "read edge data -> task")
	assert.Zero(t, gs.OpenFrames, "every task closed")
}

func TestRunWorkload_ScopesSuppress(t *testing.T) {
	tr, err := tracker.New(tracker.Config{
		Enabled:  true,
		Capacity: 16,
		Logger:   quietLogger(),
	})
	require.NoError(t, err)
	defer tr.Close()

	// Every task inside a scope: nothing but task nodes should appear.
	snap, err := runWorkload(context.Background(), tr, workload{
		Tasks:      10,
		Reads:      3,
		Writes:     1,
		ScopeEvery: 1,
	})
	require.NoError(t, err)

	gs := snap.Stats()
	assert.Zero(t, gs.Edges, "scoped reads and writes build no edges")
	assert.Equal(t, 10*4, gs.Suppressed)
}

func TestRunWorkload_PeriodicQueries(t *testing.T) {
	tr, err := tracker.New(tracker.Config{
		Enabled:  true,
		Capacity: 64,
		Logger:   quietLogger(),
	})
	require.NoError(t, err)
	defer tr.Close()

	_, err = runWorkload(context.Background(), tr, workload{
		Tasks:      12,
		Reads:      2,
		Writes:     1,
		QueryEvery: 4,
	})
	require.NoError(t, err)

	// 12/4 mid-run snapshots plus the final one.
	assert.Equal(t, 4, tr.Stats().Queries)
}

func TestRunWorkload_CancelledContext(t *testing.T) {
	tr, err := tracker.New(tracker.Config{
		Enabled:  true,
		Capacity: 16,
		Logger:   quietLogger(),
	})
	require.NoError(t, err)
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A dead context skips the recording loop but still delivers the
	// final snapshot of whatever (nothing) was recorded.
	snap, err := runWorkload(ctx, tr, workload{Tasks: 1000, Reads: 8, Writes: 2})
	require.NoError(t, err)
	assert.Zero(t, snap.Stats().Edges)
}

func TestBenchOne(t *testing.T) {
	swaps, elapsed := benchOne(64, 10_000, quietLogger())

	// 10k messages plus the task bracket across capacity-64 buffers.
	assert.GreaterOrEqual(t, swaps, 10_000/64)
	assert.Greater(t, elapsed.Nanoseconds(), int64(0))
}

func TestMetricsMux_NotConfigured(t *testing.T) {
	// Without telemetry.Init the scrape endpoint must answer, not panic.
	srv := httptest.NewServer(metricsMux())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 503, resp.StatusCode)
}

func TestLoadConfigInternal(t *testing.T) {
	t.Run("empty path keeps defaults", func(t *testing.T) {
		globalConfig = CLIConfig{}
		require.NoError(t, loadConfigInternal(""))
		assert.Zero(t, globalConfig.Capacity)
	})

	t.Run("valid file", func(t *testing.T) {
		globalConfig = CLIConfig{}
		path := filepath.Join(t.TempDir(), "deptrace.yaml")
		require.NoError(t, os.WriteFile(path, []byte("capacity: 512\nshadow: true\nhistory: 8\n"), 0644))

		require.NoError(t, loadConfigInternal(path))
		assert.Equal(t, 512, globalConfig.Capacity)
		assert.True(t, globalConfig.Shadow)
		assert.Equal(t, 8, globalConfig.History)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		globalConfig = CLIConfig{}
		err := loadConfigInternal(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("negative capacity rejected", func(t *testing.T) {
		globalConfig = CLIConfig{}
		path := filepath.Join(t.TempDir(), "deptrace.yaml")
		require.NoError(t, os.WriteFile(path, []byte("capacity: -1\n"), 0644))
		assert.Error(t, loadConfigInternal(path))
	})
}
