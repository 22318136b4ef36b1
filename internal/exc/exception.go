// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package exc implements exception identity, chaining (__context__ and
// __cause__), normalization, and traceback-chain printing, the ambient
// error-reporting layer every other component raises into.
package exc

import (
	"github.com/pyrt-lang/pyrt/internal/handle"
	"github.com/pyrt-lang/pyrt/internal/pytype"
)

// Exception is one raised (or about to be raised) exception instance:
// its type, its args, and the chain links CPython attaches automatically
// when one exception is raised while another is being handled.
type Exception struct {
	Type  *pytype.Type
	Value *handle.Handle
	Args  []*handle.Handle

	Traceback *handle.Handle

	// Context is the exception that was being handled when this one was
	// raised (set implicitly); Cause is the explicit "raise X from Y"
	// chain link. SuppressContext corresponds to "raise X from None".
	Context         *Exception
	Cause           *Exception
	SuppressContext bool
}

// State tracks the currently-handled exception for a thread of
// execution, the source Context links are captured from.
type State struct {
	Current *Exception
}

// Raise records exc as newly raised: if another exception is currently
// being handled, it becomes exc's Context, even when exc already has an
// explicit Cause (CPython's "raise ... from cause" still records the
// implicit context alongside the cause).
func (s *State) Raise(exc *Exception) {
	if s.Current != nil && s.Current != exc {
		exc.Context = s.Current
	}
	s.Current = exc
}

// Clear ends handling of the current exception, restoring prev as
// current (the same nested-except restore CPython's SETUP_FINALLY/
// POP_EXCEPT machinery performs).
func (s *State) Clear(prev *Exception) {
	s.Current = prev
}
