// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package exc

import (
	"errors"

	"github.com/pyrt-lang/pyrt/internal/pytype"
)

// normalizeLimit bounds retries when normalizing a (type, value) pair
// into a bona fide exception instance: if constructing the instance
// itself keeps raising, give up rather than recurse forever (CPython's
// own normalize_limit in exception-builtins.cpp).
const normalizeLimit = 32

// ErrNormalizationFailed is returned when an exception could not be
// normalized within normalizeLimit attempts, matching CPython's fallback
// to a RecursionError when even *that* fails to normalize.
var ErrNormalizationFailed = errors.New("exc: exception failed to normalize")

// Instantiate constructs value as an instance of typ given the raw
// arguments a raise statement supplied, returning an error if
// construction itself raised (e.g. the exception class's __init__
// rejected the arguments).
type Instantiate func(typ *pytype.Type, args []interface{}) (*Exception, error)

// Normalize ensures value is an instance of typ, re-attempting
// construction if it raises, up to normalizeLimit times. If typ itself
// changes on a retry (the instantiation raised a *different* exception
// type), normalization continues against the newly raised type — exactly
// as CPython's normalize() loop re-reads *exc/*val after each attempt.
func Normalize(typ *pytype.Type, args []interface{}, instantiate Instantiate) (*Exception, error) {
	for i := 0; i < normalizeLimit; i++ {
		exc, err := instantiate(typ, args)
		if err == nil {
			return exc, nil
		}
		var failure *Exception
		if fe, ok := err.(*normalizationError); ok {
			failure = fe.exc
		}
		if failure == nil {
			return nil, err
		}
		// Retry normalizing whatever new exception the failed attempt
		// itself raised.
		typ = failure.Type
		args = nil
	}
	return nil, ErrNormalizationFailed
}

// normalizationError lets Instantiate report a secondary exception
// raised during construction, so Normalize can retry against it.
type normalizationError struct {
	exc *Exception
}

func (e *normalizationError) Error() string { return "exc: exception raised during normalization" }

// NewNormalizationError wraps exc so Normalize recognizes it as a
// retry-worthy secondary failure rather than a terminal Go error.
func NewNormalizationError(exc *Exception) error {
	return &normalizationError{exc: exc}
}
