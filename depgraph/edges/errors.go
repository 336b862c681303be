// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package edges accumulates task-attributed dependency edges from a
// depgraph event stream.
//
// The builder keeps one stack of open frames. A task frame attributes the
// reads and writes under it; a scope frame suppresses them. Only the
// innermost frame decides: a task opened inside a scope tracks normally,
// which lets deliberately-untracked code still run tracked subtasks.
//
// # Thread Safety
//
// Builder is NOT safe for concurrent use. It is written for the engine's
// worker goroutine, which is the only caller for the builder's lifetime.
// Snapshots returned by Query are immutable copies and may be shared
// freely.
package edges

import "errors"

// Sentinel errors for stream violations. The builder panics with them
// (wrapped with the offending message) instead of returning them: by the
// time an unbalanced frame reaches the builder the producer has already
// committed a broken stream, and there is nothing sound to build.
var (
	// ErrReadOutsideTask reports a read with no open frame in strict mode.
	ErrReadOutsideTask = errors.New("read outside any task")

	// ErrWriteOutsideTask reports a write with no open frame in strict mode.
	ErrWriteOutsideTask = errors.New("write outside any task")

	// ErrTaskUnderflow reports a pop_task with no open frame.
	ErrTaskUnderflow = errors.New("pop_task with no open task")

	// ErrTaskMismatch reports a pop_task whose innermost frame is a scope
	// or a task with a different node.
	ErrTaskMismatch = errors.New("pop_task does not match the innermost frame")

	// ErrScopeUnderflow reports a pop_scope with no open frame.
	ErrScopeUnderflow = errors.New("pop_scope with no open scope")

	// ErrScopeMismatch reports a pop_scope whose innermost frame is a task.
	ErrScopeMismatch = errors.New("pop_scope does not match the innermost frame")
)
