// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package shadow validates the dependency event stream on the producer
// goroutine, before messages are committed.
//
// The real builder runs on the worker, so by the time it rejects a broken
// stream the producer has long moved on and the panic's stack trace points
// into the drain loop. The shadow replays the same legality rules inline
// at the enqueue site: when it trips, the trace points at the producer
// code that emitted the bad message. It builds nothing and keeps only a
// frame stack, so it is cheap enough to leave on outside hot production
// paths.
package shadow

import (
	"log/slog"

	"github.com/AleutianAI/deptrace/depgraph"
)

// frameKind distinguishes task and scope entries on the stack.
type frameKind uint8

const (
	frameTask frameKind = iota
	frameScope
)

type frame struct {
	kind frameKind
	node depgraph.NodeID
}

// Options configures a Validator.
type Options struct {
	// PanicOnViolation makes every violation fatal, which is the mode
	// meant for development and tests. When false, violations are
	// logged and counted and the stream keeps flowing.
	PanicOnViolation bool

	// Logger receives violations in non-panicking mode. If nil,
	// slog.Default() is used.
	Logger *slog.Logger
}

// DefaultOptions returns the configuration New starts from.
func DefaultOptions() Options {
	return Options{PanicOnViolation: true}
}

// Option is a functional option for configuring a Validator.
type Option func(*Options)

// WithPanicOnViolation sets whether violations are fatal.
func WithPanicOnViolation(fatal bool) Option {
	return func(o *Options) {
		o.PanicOnViolation = fatal
	}
}

// WithLogger sets the logger used in non-panicking mode.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// Validator replays stream legality inline. It implements
// depgraph.Validator.
//
// Thread Safety:
//
//	Not safe for concurrent use. The engine calls it only from the
//	producer goroutine, which is the contract it is written for.
type Validator struct {
	enabled    bool
	panicOn    bool
	logger     *slog.Logger
	stack      []frame
	violations int
}

// New creates an enabled validator.
func New(opts ...Option) *Validator {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return &Validator{
		enabled: true,
		panicOn: o.PanicOnViolation,
		logger:  o.Logger,
	}
}

// Disabled returns a validator that reports Enabled() false and ignores
// every message. Handing it to a channel leaves shadow mode off.
func Disabled() *Validator {
	return &Validator{}
}

// Enabled reports whether the validator wants the stream.
func (v *Validator) Enabled() bool {
	return v.enabled
}

// Violations returns the number of illegal messages seen. Always zero in
// panicking mode, which dies on the first one.
func (v *Validator) Violations() int {
	return v.violations
}

// Enqueue checks one message against the frame stack. Safe to call for
// every message variant; snapshot markers pass through untouched.
func (v *Validator) Enqueue(m depgraph.Message) {
	if !v.enabled {
		return
	}
	switch m.Op {
	case depgraph.OpRead:
		if v.unframed() {
			v.violation(m, ErrReadOutsideTask)
		}
	case depgraph.OpWrite:
		if v.unframed() {
			v.violation(m, ErrWriteOutsideTask)
		}
	case depgraph.OpPushTask:
		v.stack = append(v.stack, frame{kind: frameTask, node: m.Node})
	case depgraph.OpPopTask:
		v.popTask(m)
	case depgraph.OpPushScope:
		v.stack = append(v.stack, frame{kind: frameScope})
	case depgraph.OpPopScope:
		v.popScope(m)
	case depgraph.OpQuery:
		// Barrier marker; carries no frame semantics.
	default:
		v.violation(m, ErrInvalidOp)
	}
}

// unframed reports whether a read or write has no frame to govern it.
// Scope frames count: a suppressed message is legal.
func (v *Validator) unframed() bool {
	return len(v.stack) == 0
}

func (v *Validator) popTask(m depgraph.Message) {
	if len(v.stack) == 0 {
		v.violation(m, ErrTaskUnderflow)
		return
	}
	top := v.stack[len(v.stack)-1]
	if top.kind != frameTask || top.node != m.Node {
		v.violation(m, ErrTaskMismatch)
		return
	}
	v.stack = v.stack[:len(v.stack)-1]
}

func (v *Validator) popScope(m depgraph.Message) {
	if len(v.stack) == 0 {
		v.violation(m, ErrScopeUnderflow)
		return
	}
	if v.stack[len(v.stack)-1].kind != frameScope {
		v.violation(m, ErrScopeMismatch)
		return
	}
	v.stack = v.stack[:len(v.stack)-1]
}

// violation records or escalates one illegal message.
func (v *Validator) violation(m depgraph.Message, reason error) {
	err := &ViolationError{Message: m, Err: reason}
	if v.panicOn {
		panic(err)
	}
	v.violations++
	v.logger.Error("shadow validation failed",
		slog.String("message", m.String()),
		slog.String("error", err.Error()),
	)
}
