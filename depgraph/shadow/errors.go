// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package shadow

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/deptrace/depgraph"
)

// Sentinel reasons carried inside a ViolationError. They mirror the rules
// the edge builder enforces but are defined here independently: the shadow
// is a second implementation of the stream's legality, and sharing code
// with the layer it cross-checks would defeat it.
var (
	// ErrReadOutsideTask reports a read with no open frame.
	ErrReadOutsideTask = errors.New("read outside any task")

	// ErrWriteOutsideTask reports a write with no open frame.
	ErrWriteOutsideTask = errors.New("write outside any task")

	// ErrTaskUnderflow reports a pop_task with no open frame.
	ErrTaskUnderflow = errors.New("pop_task with no open task")

	// ErrTaskMismatch reports a pop_task that does not match the
	// innermost frame.
	ErrTaskMismatch = errors.New("pop_task does not match the innermost frame")

	// ErrScopeUnderflow reports a pop_scope with no open frame.
	ErrScopeUnderflow = errors.New("pop_scope with no open scope")

	// ErrScopeMismatch reports a pop_scope whose innermost frame is a task.
	ErrScopeMismatch = errors.New("pop_scope does not match the innermost frame")

	// ErrInvalidOp reports a message variant the validator does not know.
	ErrInvalidOp = errors.New("invalid message op")
)

// ViolationError describes one illegal message, with the message itself
// for the diagnostic. It wraps the sentinel reason for errors.Is.
type ViolationError struct {
	// Message is the offending message.
	Message depgraph.Message

	// Err is the sentinel reason.
	Err error
}

// Error renders the violation with the offending message.
func (e *ViolationError) Error() string {
	return fmt.Sprintf("shadow validation: %s: %v", e.Message, e.Err)
}

// Unwrap returns the sentinel reason.
func (e *ViolationError) Unwrap() error {
	return e.Err
}
