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
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/deptrace/depgraph"
	"github.com/AleutianAI/deptrace/depgraph/shadow"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTracker(t *testing.T, mutate func(*Config)) *Tracker {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Capacity = 8
	cfg.Logger = quietLogger()
	if mutate != nil {
		mutate(&cfg)
	}
	tr, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

// -----------------------------------------------------------------------------
// Config
// -----------------------------------------------------------------------------

func TestConfig_Validate(t *testing.T) {
	t.Run("default config is valid", func(t *testing.T) {
		assert.NoError(t, DefaultConfig().Validate())
	})

	t.Run("zero config is valid", func(t *testing.T) {
		assert.NoError(t, Config{}.Validate())
	})

	t.Run("negative capacity", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Capacity = -1
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Capacity")
	})

	t.Run("negative history size", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.HistorySize = -5
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "HistorySize")
	})
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capacity = -1
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestNew_SessionIDs(t *testing.T) {
	t.Run("generated when empty", func(t *testing.T) {
		tr := newTestTracker(t, nil)
		assert.Len(t, tr.SessionID(), 12)
	})

	t.Run("caller-provided is kept", func(t *testing.T) {
		tr := newTestTracker(t, func(c *Config) { c.SessionID = "build-77" })
		assert.Equal(t, "build-77", tr.SessionID())
	})
}

// -----------------------------------------------------------------------------
// Recording and querying
// -----------------------------------------------------------------------------

func TestTracker_RecordsThroughToSnapshot(t *testing.T) {
	tr := newTestTracker(t, nil)

	tr.WithTask("compile", func() {
		tr.Read("lexer")
		tr.Read("parser")
		tr.Write("object")
	})

	snap, err := tr.Query(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Len())
	assert.True(t, snap.HasEdge("lexer", "compile"))
	assert.True(t, snap.HasEdge("parser", "compile"))
	assert.True(t, snap.HasEdge("compile", "object"))
	assert.Equal(t, 0, snap.Stats().OpenFrames)
}

func TestTracker_QueryIsABarrier(t *testing.T) {
	tr := newTestTracker(t, nil)
	ctx := context.Background()

	tr.PushTask("t")
	tr.Write("a")
	tr.Write("b")

	first, err := tr.Query(ctx)
	require.NoError(t, err)
	assert.True(t, first.ContainsNode("a"))
	assert.True(t, first.ContainsNode("b"))
	assert.False(t, first.ContainsNode("c"))

	tr.Write("c")

	second, err := tr.Query(ctx)
	require.NoError(t, err)
	assert.True(t, second.ContainsNode("c"))
	assert.False(t, first.ContainsNode("c"), "earlier snapshot must not move")
}

func TestTracker_WithScopeSuppresses(t *testing.T) {
	tr := newTestTracker(t, nil)

	tr.WithTask("task", func() {
		tr.Read("tracked")
		tr.WithScope(func() {
			tr.Read("untracked")
			tr.Write("untracked")
		})
	})

	snap, err := tr.Query(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Len())
	assert.False(t, snap.ContainsNode("untracked"))
	assert.Equal(t, 2, snap.Stats().Suppressed)
}

func TestTracker_WithTaskBalancesWhilePanicking(t *testing.T) {
	tr := newTestTracker(t, nil)

	func() {
		defer func() { _ = recover() }()
		tr.WithTask("doomed", func() {
			tr.Read("input")
			panic("task body failed")
		})
	}()

	// The pop was emitted during unwinding, so the stream stays legal.
	snap, err := tr.Query(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Stats().OpenFrames)
	assert.True(t, snap.HasEdge("input", "doomed"))
}

// -----------------------------------------------------------------------------
// Modes
// -----------------------------------------------------------------------------

func TestTracker_DisabledIsNoOp(t *testing.T) {
	tr := newTestTracker(t, func(c *Config) {
		c.Enabled = false
	})

	assert.False(t, tr.Enabled())
	assert.False(t, tr.ShadowActive())

	ran := false
	tr.WithTask("t", func() {
		tr.Read("a")
		tr.Write("b")
		ran = true
	})
	tr.PushScope()
	tr.PopScope()

	assert.True(t, ran, "the body must run even with tracking off")
	assert.Zero(t, tr.Stats().Messages)

	_, err := tr.Query(context.Background())
	assert.ErrorIs(t, err, ErrNotEnabled)
}

func TestTracker_ShadowOnly(t *testing.T) {
	tr := newTestTracker(t, func(c *Config) {
		c.Enabled = false
		c.Shadow = true
	})

	assert.False(t, tr.Enabled())
	assert.True(t, tr.ShadowActive())

	// Balanced discipline passes through the validator.
	tr.WithTask("t", func() { tr.Read("a") })
	assert.Equal(t, 3, tr.Stats().Messages)

	// No graph to snapshot.
	_, err := tr.Query(context.Background())
	assert.ErrorIs(t, err, ErrNotEnabled)

	// Broken discipline dies at the call site.
	assert.Panics(t, func() { tr.PopTask("never-pushed") })
}

func TestTracker_ShadowViolationIdentifiesTheMessage(t *testing.T) {
	tr := newTestTracker(t, func(c *Config) {
		c.Enabled = false
		c.Shadow = true
	})

	defer func() {
		r := recover()
		require.NotNil(t, r)
		verr, ok := r.(*shadow.ViolationError)
		require.True(t, ok, "expected *shadow.ViolationError, got %T", r)
		assert.ErrorIs(t, verr, shadow.ErrReadOutsideTask)
	}()
	tr.Read("orphan")
}

func TestTracker_NonPanickingShadowCounts(t *testing.T) {
	tr := newTestTracker(t, func(c *Config) {
		c.Shadow = true
		c.PanicOnViolation = false
		c.Strict = false // keep the worker-side builder tolerant too
	})

	tr.Read("orphan") // violation: no open task
	tr.WithTask("t", func() { tr.Read("fine") })

	snap, err := tr.Query(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Len())
	assert.Equal(t, 1, snap.Stats().OrphanReads)
	assert.Equal(t, 1, tr.Stats().Violations)
}

// -----------------------------------------------------------------------------
// History and stats
// -----------------------------------------------------------------------------

func TestTracker_History(t *testing.T) {
	tr := newTestTracker(t, func(c *Config) {
		c.Capacity = 4
		c.HistorySize = 2
	})

	tr.PushTask("t")
	for i := 0; i < 11; i++ {
		tr.Write(depgraph.NodeID(rune('a' + i)))
	}
	// 12 messages over capacity 4: handoffs after messages 4, 8 and 12.

	recs := tr.History()
	require.Len(t, recs, 2, "ring keeps only the newest two")
	assert.Equal(t, 2, recs[0].Seq)
	assert.Equal(t, 3, recs[1].Seq)
	for _, r := range recs {
		assert.Equal(t, 4, r.Sent)
		assert.Equal(t, depgraph.SwapCapacity, r.Cause)
		assert.False(t, r.At.IsZero())
	}
	assert.Equal(t, 3, tr.Stats().Swaps)
}

func TestTracker_HistoryDisabled(t *testing.T) {
	tr := newTestTracker(t, func(c *Config) {
		c.Capacity = 2
		c.HistorySize = 0
	})

	tr.PushTask("t")
	tr.Write("a")
	tr.Write("b")
	tr.Write("c")

	assert.Nil(t, tr.History())
	assert.Equal(t, 2, tr.Stats().Swaps, "swaps are counted even without history")
}

func TestTracker_StatsCountEnqueuedMessages(t *testing.T) {
	tr := newTestTracker(t, nil)

	tr.WithTask("t", func() {
		tr.Read("a")
		tr.Write("b")
	})
	_, err := tr.Query(context.Background())
	require.NoError(t, err)

	s := tr.Stats()
	assert.Equal(t, tr.SessionID(), s.SessionID)
	assert.Equal(t, 5, s.Messages, "push + read + write + pop + query marker")
	assert.Equal(t, 1, s.Queries)
}

// -----------------------------------------------------------------------------
// Shutdown
// -----------------------------------------------------------------------------

func TestTracker_Close(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		tr := newTestTracker(t, nil)
		require.NoError(t, tr.Close())
		require.NoError(t, tr.Close())
	})

	t.Run("query after close", func(t *testing.T) {
		tr := newTestTracker(t, nil)
		require.NoError(t, tr.Close())
		_, err := tr.Query(context.Background())
		assert.ErrorIs(t, err, ErrSessionClosed)
	})

	t.Run("unflushed tail is discarded", func(t *testing.T) {
		tr := newTestTracker(t, func(c *Config) { c.Capacity = 1024 })
		tr.PushTask("t")
		tr.Write("a")
		require.NoError(t, tr.Close())
		// Nothing to assert through the graph; the session is gone.
		// The stats still name what the producer handed in.
		assert.Equal(t, 2, tr.Stats().Messages)
		assert.Zero(t, tr.Stats().Swaps)
	})
}
