// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arch

import "testing"

func TestUintptrRoundTrip(t *testing.T) {
	buf := make([]byte, AMD64.PointerSize)
	AMD64.PutUintptr(buf, 0xdeadbeef)
	if got := AMD64.Uintptr(buf); got != 0xdeadbeef {
		t.Errorf("Uintptr round trip = %#x, want 0xdeadbeef", got)
	}
}

func TestMaxSizeMatchesPointerWidth(t *testing.T) {
	if got, want := AMD64.MaxSize(), int64(1<<63-1); got != want {
		t.Errorf("AMD64.MaxSize() = %d, want %d", got, want)
	}
	if got, want := X86.MaxSize(), int64(1<<31-1); got != want {
		t.Errorf("X86.MaxSize() = %d, want %d", got, want)
	}
}

func TestUintptrWrongLengthPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on mismatched buffer length")
		}
	}()
	AMD64.Uintptr(make([]byte, 4))
}
