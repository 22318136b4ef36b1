// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package faulthandler writes a best-effort diagnostic dump of the
// current call-frame chain when an internal invariant is violated, the
// situation CPython's faulthandler module exists to survive: by the
// time it runs, the heap or the handle table may already be in an
// inconsistent state, so it must not allocate.
//
// There is no OS signal plumbing here (spec.md excludes it from the
// interpreter proper) — Dump is called directly by whatever detected
// the fatal condition, the same way Skybison's handleFatalError is
// called directly by its SIGSEGV/SIGABRT/... handlers rather than by
// anything in this package.
package faulthandler

import (
	"io"
	"strconv"
)

// Frame is one entry in a call-frame chain: a name and the frame that
// called it. Callers supply their own chain (there is no bytecode
// interpreter in this core to walk) — a native call stack, a
// trampoline.Dispatch chain, or a test fixture can all satisfy it.
type Frame interface {
	Name() string
	Caller() Frame // nil at the outermost frame
}

// Dump writes msg and the frame chain starting at top to w, using a
// small fixed scratch buffer for the frame index rather than fmt.Sprintf
// or string concatenation, so the only allocations left are the ones
// Go's own io.WriteString(w, string) performs internally when w is not
// an io.StringWriter — no slice growth, no map, no formatting driven by
// user-controlled width/verb strings.
func Dump(w io.Writer, msg string, top Frame) {
	io.WriteString(w, "Fatal error: ")
	io.WriteString(w, msg)
	io.WriteString(w, "\n\n")

	var scratch [20]byte
	depth := 0
	for f := top; f != nil; f = f.Caller() {
		io.WriteString(w, "  #")
		w.Write(strconv.AppendInt(scratch[:0], int64(depth), 10))
		io.WriteString(w, " ")
		io.WriteString(w, f.Name())
		io.WriteString(w, "\n")
		depth++
	}
}
