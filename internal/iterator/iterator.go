// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package iterator implements the two iterator-protocol adapters that
// build a real iterator out of something that isn't one: a sequence
// exposing only indexed access (__getitem__), and a zero-argument
// callable paired with a sentinel value.
package iterator

import (
	"errors"

	"github.com/pyrt-lang/pyrt/internal/handle"
	"github.com/pyrt-lang/pyrt/internal/objval"
)

// ErrStopIteration is returned by Next once an iterator is exhausted,
// the Go-side signal for what CPython raises as the StopIteration
// exception.
var ErrStopIteration = errors.New("iterator: exhausted")

// GetItemFunc is the __getitem__ shape a SeqIterator drives: ok=false
// signals an IndexError at this position, ending iteration cleanly;
// err is reserved for every other failure, which propagates instead.
type GetItemFunc func(self *handle.Handle, index int64) (value *handle.Handle, ok bool, err error)

// SeqIterator is the index-based fallback iterator built for a sequence
// that implements __getitem__ but not __iter__: it counts up from zero
// until __getitem__ reports an out-of-range read, exactly the adapter
// PySeqIter_New constructs.
type SeqIterator struct {
	self    *handle.Handle
	getItem GetItemFunc
	index   int64
	done    bool
}

// NewSeqIterator returns a SeqIterator over self, reading elements via
// getItem starting at index 0.
func NewSeqIterator(self *handle.Handle, getItem GetItemFunc) *SeqIterator {
	return &SeqIterator{self: self, getItem: getItem}
}

// Next returns the next element, or ErrStopIteration once getItem first
// reports ok=false.
func (it *SeqIterator) Next() (*handle.Handle, error) {
	if it.done {
		return nil, ErrStopIteration
	}
	v, ok, err := it.getItem(it.self, it.index)
	if err != nil {
		it.done = true
		return nil, err
	}
	if !ok {
		it.done = true
		return nil, ErrStopIteration
	}
	it.index++
	return v, nil
}

// CallableFunc invokes a zero-argument native callable, the call a
// CallIterator drives once per Next.
type CallableFunc func() (*handle.Handle, error)

// CallIterator repeatedly calls a callable until its result is the same
// object as sentinel (compared by Ref identity, not equality), the
// adapter behind the two-argument iter(callable, sentinel) builtin form
// and PyCallIter_New.
type CallIterator struct {
	call     CallableFunc
	sentinel objval.Ref
	done     bool
}

// NewCallIterator returns a CallIterator that stops the first time call
// returns a handle referencing the same object as sentinel.
func NewCallIterator(call CallableFunc, sentinel *handle.Handle) *CallIterator {
	return &CallIterator{call: call, sentinel: sentinel.Ref()}
}

// Next invokes the callable once, returning ErrStopIteration if the
// result matches the sentinel.
func (it *CallIterator) Next() (*handle.Handle, error) {
	if it.done {
		return nil, ErrStopIteration
	}
	v, err := it.call()
	if err != nil {
		it.done = true
		return nil, err
	}
	if v.Ref() == it.sentinel {
		it.done = true
		return nil, ErrStopIteration
	}
	return v, nil
}
