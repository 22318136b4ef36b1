// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nativebridge

import (
	"testing"

	"github.com/pyrt-lang/pyrt/internal/handle"
	"github.com/pyrt-lang/pyrt/internal/objval"
	"github.com/pyrt-lang/pyrt/internal/trampoline"
)

func echoEntry() trampoline.Entry {
	return trampoline.Entry{
		Name:       "echo",
		Convention: trampoline.OneArg,
		Impl: func(self *handle.Handle, call *trampoline.Call) (*handle.Handle, error) {
			return call.One, nil
		},
	}
}

func TestNewHandleThenDisposeHandle(t *testing.T) {
	table := handle.NewTable()
	s := NewServer(table, nil)

	resp := &NewHandleResponse{}
	if err := s.NewHandle(&NewHandleRequest{Ref: 42}, resp); err != nil {
		t.Fatalf("NewHandle: %v", err)
	}
	if resp.HandleID != 42 {
		t.Errorf("HandleID = %d, want 42", resp.HandleID)
	}
	if _, ok := table.Lookup(objval.Ref(42)); !ok {
		t.Fatalf("handle not registered in table")
	}

	if err := s.DisposeHandle(&DisposeHandleRequest{HandleID: 42}, &DisposeHandleResponse{}); err != nil {
		t.Fatalf("DisposeHandle: %v", err)
	}
	if _, ok := table.Lookup(objval.Ref(42)); ok {
		t.Errorf("handle still registered after DisposeHandle")
	}
}

func TestDisposeUnknownHandleErrors(t *testing.T) {
	s := NewServer(handle.NewTable(), nil)
	if err := s.DisposeHandle(&DisposeHandleRequest{HandleID: 99}, &DisposeHandleResponse{}); err == nil {
		t.Errorf("expected error disposing unknown handle")
	}
}

func TestCallDispatchesRegisteredEntry(t *testing.T) {
	table := handle.NewTable()
	table.NewReference(objval.Ref(7))
	entries := map[string]trampoline.Entry{"echo": echoEntry()}
	s := NewServer(table, entries)

	resp := &CallResponse{}
	req := &CallRequest{FuncName: "echo", ArgIDs: []uint64{7}}
	if err := s.Call(req, resp); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.ResultID != 7 {
		t.Errorf("ResultID = %d, want 7", resp.ResultID)
	}
	if resp.HasPendingException {
		t.Errorf("HasPendingException = true, want false")
	}
}

func TestCallUnknownFunctionErrors(t *testing.T) {
	s := NewServer(handle.NewTable(), map[string]trampoline.Entry{})
	err := s.Call(&CallRequest{FuncName: "missing"}, &CallResponse{})
	if err == nil {
		t.Errorf("expected error for unknown function")
	}
}

func TestCallMismatchedKwargLengthsErrors(t *testing.T) {
	entries := map[string]trampoline.Entry{"echo": echoEntry()}
	s := NewServer(handle.NewTable(), entries)
	req := &CallRequest{FuncName: "echo", KwargNames: []string{"x"}}
	if err := s.Call(req, &CallResponse{}); err == nil {
		t.Errorf("expected error for mismatched kwarg slices")
	}
}
