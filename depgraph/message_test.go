// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package depgraph

import "testing"

func TestOp_String(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{OpInvalid, "invalid"},
		{OpRead, "read"},
		{OpWrite, "write"},
		{OpPushTask, "push_task"},
		{OpPopTask, "pop_task"},
		{OpPushScope, "push_scope"},
		{OpPopScope, "pop_scope"},
		{OpQuery, "query"},
		{Op(99), "invalid"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Op(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestMessageConstructors(t *testing.T) {
	tests := []struct {
		name     string
		msg      Message
		wantOp   Op
		wantNode NodeID
	}{
		{"read", Read("a"), OpRead, "a"},
		{"write", Write("b"), OpWrite, "b"},
		{"push task", PushTask("c"), OpPushTask, "c"},
		{"pop task", PopTask("c"), OpPopTask, "c"},
		{"push scope", PushScope(), OpPushScope, ""},
		{"pop scope", PopScope(), OpPopScope, ""},
		{"query marker", queryMessage(), OpQuery, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.msg.Op != tt.wantOp {
				t.Errorf("expected op=%v, got %v", tt.wantOp, tt.msg.Op)
			}
			if tt.msg.Node != tt.wantNode {
				t.Errorf("expected node=%q, got %q", tt.wantNode, tt.msg.Node)
			}
		})
	}
}

func TestMessage_String(t *testing.T) {
	tests := []struct {
		msg  Message
		want string
	}{
		{Read("crate.foo"), "read(crate.foo)"},
		{Write("x"), "write(x)"},
		{PushTask("t"), "push_task(t)"},
		{PopTask("t"), "pop_task(t)"},
		{PushScope(), "push_scope"},
		{PopScope(), "pop_scope"},
		{queryMessage(), "query"},
		{Message{}, "invalid"},
	}
	for _, tt := range tests {
		if got := tt.msg.String(); got != tt.want {
			t.Errorf("Message.String() = %q, want %q", got, tt.want)
		}
	}
}
