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
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/deptrace/depgraph"
)

// configValidate is the validator instance for tracker configs.
var configValidate = validator.New()

// Config describes one tracking session.
//
// The zero value is a disabled session; DefaultConfig returns the usual
// starting point for an enabled one.
type Config struct {
	// Enabled switches the full engine on: worker goroutine, buffer
	// ring and edge builder.
	Enabled bool

	// Shadow switches on inline stream validation on the producer
	// goroutine. Independent of Enabled; a shadow-only session
	// validates call discipline without building anything.
	Shadow bool

	// PanicOnViolation makes shadow violations fatal. Ignored unless
	// Shadow is set.
	PanicOnViolation bool

	// Strict makes reads and writes outside any task fatal in the edge
	// builder. Ignored unless Enabled is set.
	Strict bool

	// Capacity is the engine buffer capacity. Zero means
	// depgraph.DefaultCapacity; negative is invalid.
	Capacity int `validate:"gte=0"`

	// HistorySize bounds the in-memory log of recent buffer handoffs.
	// Zero disables the log; negative is invalid.
	HistorySize int `validate:"gte=0"`

	// SessionID names the session in logs and spans. Empty means a
	// generated ID.
	SessionID string

	// Logger receives session lifecycle events. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// DefaultConfig returns a fully enabled session configuration with strict
// builder checks and a short handoff history.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		PanicOnViolation: true,
		Strict:           true,
		Capacity:         depgraph.DefaultCapacity,
		HistorySize:      64,
	}
}

// Validate checks the configuration against its struct tags.
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid tracker config: %w", err)
	}
	return nil
}
