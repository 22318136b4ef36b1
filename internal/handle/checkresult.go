// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handle

import "fmt"

// ResultError reports a native call whose result/exception-state pair
// violated the calling invariant (CPython's _Py_CheckFunctionResult): a
// native function must return either a null handle with a pending
// exception, or a non-null handle with no pending exception. Any other
// combination is a bug in the extension, surfaced as a SystemError by the
// caller.
type ResultError struct {
	FuncName   string
	HadResult  bool
	HadPending bool
}

func (e *ResultError) Error() string {
	switch {
	case e.HadResult && e.HadPending:
		return fmt.Sprintf("%s returned a result with an exception set", e.FuncName)
	case !e.HadResult && !e.HadPending:
		return fmt.Sprintf("%s returned NULL without setting an exception", e.FuncName)
	default:
		return fmt.Sprintf("%s: inconsistent result/exception state", e.FuncName)
	}
}

// CheckFunctionResult validates the (result, pending-exception) pair
// returned by a native call. It returns nil only for the two consistent
// cases: (non-nil result, no pending exception) or (nil result, pending
// exception). Any other combination is reported as a *ResultError, which
// the caller converts into a SystemError exception — the same fallback
// CPython uses when a C function violates its own contract.
func CheckFunctionResult(funcName string, result *Handle, hasPendingException bool) error {
	hadResult := result != nil
	if hadResult != hasPendingException {
		return nil
	}
	return &ResultError{FuncName: funcName, HadResult: hadResult, HadPending: hasPendingException}
}
