// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package faulthandler

import (
	"bytes"
	"strings"
	"testing"
)

type fakeFrame struct {
	name   string
	caller *fakeFrame
}

func (f *fakeFrame) Name() string { return f.name }
func (f *fakeFrame) Caller() Frame {
	if f.caller == nil {
		return nil
	}
	return f.caller
}

func TestDumpWritesMessageAndFrameChain(t *testing.T) {
	outer := &fakeFrame{name: "main"}
	inner := &fakeFrame{name: "buildType", caller: outer}

	var buf bytes.Buffer
	Dump(&buf, "layout invariant violated", inner)

	out := buf.String()
	if !strings.HasPrefix(out, "Fatal error: layout invariant violated\n\n") {
		t.Fatalf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "#0 buildType") {
		t.Errorf("missing innermost frame: %q", out)
	}
	if !strings.Contains(out, "#1 main") {
		t.Errorf("missing outer frame: %q", out)
	}
	if strings.Index(out, "buildType") > strings.Index(out, "main") {
		t.Errorf("frames not printed innermost-first: %q", out)
	}
}

func TestDumpWithNilChainWritesOnlyMessage(t *testing.T) {
	var buf bytes.Buffer
	Dump(&buf, "out of memory", nil)
	if got, want := buf.String(), "Fatal error: out of memory\n\n"; got != want {
		t.Errorf("Dump() = %q, want %q", got, want)
	}
}
