// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tracker is the session façade over the dependency engine.
//
// A Tracker owns one engine channel, the edge builder behind it and the
// optional shadow validator in front of it, and exposes guarded recording
// methods: when tracking is disabled they are silent no-ops, so call sites
// never need their own mode checks. Sessions get an ID, structured logs
// and OpenTelemetry spans around snapshots.
//
// # Thread Safety
//
// A Tracker is bound to one producer goroutine, exactly like the channel
// it wraps. Snapshots it returns are immutable and may be shared.
package tracker

import "errors"

// Sentinel errors returned by session-level operations. Unlike the
// engine's protocol panics, these are ordinary conditions a config-driven
// caller is expected to handle.
var (
	// ErrNotEnabled is returned by Query when the session does not build
	// a graph, which covers both disabled and shadow-only trackers.
	ErrNotEnabled = errors.New("tracker is not fully enabled")

	// ErrSessionClosed is returned by Query after Close.
	ErrSessionClosed = errors.New("tracker session is closed")
)
