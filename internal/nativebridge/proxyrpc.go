// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nativebridge defines the net/rpc request/response types and
// server used to reach the handle table (internal/handle) and
// trampoline dispatch (internal/trampoline) from a separate OS process.
// The in-process fast path never uses this package; it exists so a C
// extension can, in principle, run out-of-process behind the same
// narrow interface the teacher's ogleproxy used for a remote debuggee.
package nativebridge

// For regularity, each method has a unique Request and Response type
// even when not strictly necessary, matching proxyrpc's own convention.

// NewHandleRequest asks the far side to create (or incref) a handle for
// a Ref it already knows about — e.g. a Ref returned by a previous Call.
type NewHandleRequest struct {
	Ref uint64
}

type NewHandleResponse struct {
	HandleID uint64
}

// DisposeHandleRequest is a decref on a handle this side no longer
// needs, the RPC analogue of Py_DECREF crossing the process boundary.
type DisposeHandleRequest struct {
	HandleID uint64
}

type DisposeHandleResponse struct {
}

// CallRequest invokes a named trampoline entry with already-registered
// handle arguments; handle contents never cross the wire directly, only
// the opaque IDs the far side's handle.Table assigned them.
type CallRequest struct {
	FuncName   string
	SelfID     uint64 // 0 means no self
	DefiningID uint64 // 0 means no defining class
	ArgIDs     []uint64
	KwargNames []string
	KwargIDs   []uint64
}

type CallResponse struct {
	ResultID            uint64 // 0 if no result
	HasPendingException bool
}
