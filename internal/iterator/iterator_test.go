// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iterator

import (
	"errors"
	"testing"

	"github.com/pyrt-lang/pyrt/internal/handle"
	"github.com/pyrt-lang/pyrt/internal/objval"
)

func TestSeqIteratorYieldsUntilOutOfRange(t *testing.T) {
	table := handle.NewTable()
	self := table.NewReference(1)
	backing := []objval.Ref{10, 11, 12}

	it := NewSeqIterator(self, func(s *handle.Handle, index int64) (*handle.Handle, bool, error) {
		if s != self {
			t.Fatalf("getItem called with wrong self")
		}
		if index < 0 || int(index) >= len(backing) {
			return nil, false, nil
		}
		return table.NewReference(backing[index]), true, nil
	})

	var got []objval.Ref
	for {
		h, err := it.Next()
		if errors.Is(err, ErrStopIteration) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, h.Ref())
	}
	if len(got) != 3 || got[0] != 10 || got[1] != 11 || got[2] != 12 {
		t.Errorf("got %v, want [10 11 12]", got)
	}

	if _, err := it.Next(); !errors.Is(err, ErrStopIteration) {
		t.Error("iterator should stay exhausted once StopIteration is reached")
	}
}

func TestSeqIteratorPropagatesNonIndexErrors(t *testing.T) {
	table := handle.NewTable()
	self := table.NewReference(1)
	boom := errors.New("boom")

	it := NewSeqIterator(self, func(*handle.Handle, int64) (*handle.Handle, bool, error) {
		return nil, false, boom
	})
	if _, err := it.Next(); !errors.Is(err, boom) {
		t.Errorf("Next() error = %v, want %v", err, boom)
	}
}

func TestCallIteratorStopsAtSentinel(t *testing.T) {
	table := handle.NewTable()
	sentinel := table.NewReference(99)
	values := []objval.Ref{1, 2, 99}
	i := 0

	it := NewCallIterator(func() (*handle.Handle, error) {
		v := table.NewReference(values[i])
		i++
		return v, nil
	}, sentinel)

	var got []objval.Ref
	for {
		h, err := it.Next()
		if errors.Is(err, ErrStopIteration) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, h.Ref())
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("got %v, want [1 2]", got)
	}
}
