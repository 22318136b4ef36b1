// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import (
	"testing"

	"github.com/pyrt-lang/pyrt/internal/objval"
)

func newTestHeap(t *testing.T) *Heap {
	t.Helper()
	h, err := New(Config{RegionSize: 1 << 16})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

// sliceRoots is the simplest possible Roots implementation: a fixed list
// of slots.
type sliceRoots []*objval.Ref

func (s sliceRoots) Scan(visit func(*objval.Ref)) {
	for _, p := range s {
		visit(p)
	}
}

func TestAllocateAndReadBack(t *testing.T) {
	h := newTestHeap(t)
	elems := []objval.Ref{objval.SmallInt(1), objval.SmallInt(2), objval.SmallInt(3)}
	ref, err := h.AllocateObjectArray(objval.FirstHeapLayoutID, elems)
	if err != nil {
		t.Fatalf("AllocateObjectArray: %v", err)
	}
	if !ref.IsHeapObject() {
		t.Fatalf("allocated ref is not a heap object: %v", ref)
	}
	if got := h.HeaderLayoutID(ref.HeapAddress()); got != objval.FirstHeapLayoutID {
		t.Errorf("LayoutID = %d, want %d", got, objval.FirstHeapLayoutID)
	}
	if got := h.Count(ref.HeapAddress()); got != len(elems) {
		t.Errorf("Count = %d, want %d", got, len(elems))
	}
	for i, want := range elems {
		if got := h.ReadWord(ref.HeapAddress(), i); got != want {
			t.Errorf("ReadWord(%d) = %v, want %v", i, got, want)
		}
	}
}

func TestAllocateDataArray(t *testing.T) {
	h := newTestHeap(t)
	data := []byte("hello, world")
	ref, err := h.AllocateDataArray(objval.FirstHeapLayoutID+1, data)
	if err != nil {
		t.Fatalf("AllocateDataArray: %v", err)
	}
	got := h.ReadBytes(ref.HeapAddress(), len(data))
	if string(got) != string(data) {
		t.Errorf("ReadBytes = %q, want %q", got, data)
	}
}

func TestOverflowCount(t *testing.T) {
	h := newTestHeap(t)
	elems := make([]objval.Ref, 300) // forces the 8-bit count field to overflow
	for i := range elems {
		elems[i] = objval.SmallInt(int64(i))
	}
	ref, err := h.AllocateObjectArray(objval.FirstHeapLayoutID, elems)
	if err != nil {
		t.Fatalf("AllocateObjectArray: %v", err)
	}
	if got := h.Count(ref.HeapAddress()); got != len(elems) {
		t.Errorf("Count = %d, want %d", got, len(elems))
	}
	for i, want := range elems {
		if got := h.ReadWord(ref.HeapAddress(), i); got != want {
			t.Fatalf("ReadWord(%d) = %v, want %v", i, got, want)
		}
	}
}

// TestCollectPreservesReachable is the S1/G1 style scenario: an object
// reachable only through a nested chain of pointers survives collection
// and its contents remain correct, while no live object is ever left
// pointing into from-space.
func TestCollectPreservesReachable(t *testing.T) {
	h := newTestHeap(t)

	leaf, err := h.AllocateObjectArray(objval.FirstHeapLayoutID, []objval.Ref{objval.SmallInt(42)})
	if err != nil {
		t.Fatal(err)
	}
	mid, err := h.AllocateObjectArray(objval.FirstHeapLayoutID, []objval.Ref{leaf, objval.SmallInt(7)})
	if err != nil {
		t.Fatal(err)
	}
	root := mid

	roots := sliceRoots{&root}
	h.SetRoots(roots)

	h.Collect()

	if !root.IsHeapObject() {
		t.Fatalf("root was not relocated to a valid heap ref: %v", root)
	}
	if got := h.ReadWord(root.HeapAddress(), 1); got != objval.SmallInt(7) {
		t.Errorf("mid[1] = %v, want SmallInt(7)", got)
	}
	newLeaf := h.ReadWord(root.HeapAddress(), 0)
	if !newLeaf.IsHeapObject() {
		t.Fatalf("mid[0] did not survive as a heap ref: %v", newLeaf)
	}
	if got := h.ReadWord(newLeaf.HeapAddress(), 0); got != objval.SmallInt(42) {
		t.Errorf("leaf[0] = %v, want SmallInt(42)", got)
	}
}

func TestCollectDropsUnreachable(t *testing.T) {
	h := newTestHeap(t)
	garbage, err := h.AllocateObjectArray(objval.FirstHeapLayoutID, []objval.Ref{objval.SmallInt(99)})
	if err != nil {
		t.Fatal(err)
	}
	_ = garbage

	beforeAllocPtr := h.allocPtr
	h.SetRoots(sliceRoots{}) // nothing reachable
	stats := h.Collect()
	if stats.LiveObjects != 0 {
		t.Errorf("LiveObjects = %d, want 0", stats.LiveObjects)
	}
	if h.allocPtr == beforeAllocPtr {
		t.Errorf("alloc pointer unchanged across collection; spaces did not swap")
	}
}

func TestIdentityHashStableAcrossGC(t *testing.T) {
	h := newTestHeap(t)
	ref, err := h.AllocateObjectArray(objval.FirstHeapLayoutID, []objval.Ref{objval.None})
	if err != nil {
		t.Fatal(err)
	}
	root := ref
	h.SetRoots(sliceRoots{&root})

	before := h.IdentityHash(root)
	h.Collect()
	after := h.IdentityHash(root)
	if before != after {
		t.Errorf("identity hash changed across GC: %d -> %d", before, after)
	}
	if before == 0 {
		t.Errorf("identity hash was 0, want nonzero once assigned")
	}
}

func TestWeakRefClearedAndCallbackRuns(t *testing.T) {
	h := newTestHeap(t)
	target, err := h.AllocateObjectArray(objval.FirstHeapLayoutID, []objval.Ref{objval.SmallInt(1)})
	if err != nil {
		t.Fatal(err)
	}

	calls := 0
	var sawNone bool
	w := h.NewWeakRef(target, func(w *WeakRef) {
		calls++
		sawNone = w.Referent().IsNone()
	})

	h.SetRoots(sliceRoots{}) // target is not rooted
	h.Collect()

	if !w.Referent().IsNone() {
		t.Errorf("Referent() = %v, want None", w.Referent())
	}
	if calls != 1 {
		t.Errorf("callback ran %d times, want exactly 1", calls)
	}
	if !sawNone {
		t.Errorf("callback observed non-cleared referent")
	}
}

func TestWeakRefSurvivesWhenStronglyReachable(t *testing.T) {
	h := newTestHeap(t)
	target, err := h.AllocateObjectArray(objval.FirstHeapLayoutID, []objval.Ref{objval.SmallInt(1)})
	if err != nil {
		t.Fatal(err)
	}
	root := target
	calls := 0
	w := h.NewWeakRef(target, func(w *WeakRef) { calls++ })

	h.SetRoots(sliceRoots{&root})
	h.Collect()

	if w.Referent().IsNone() {
		t.Errorf("Referent() cleared even though strongly reachable")
	}
	if calls != 0 {
		t.Errorf("callback ran %d times, want 0", calls)
	}
}

func TestWeakRefCallbackPanicSuppressed(t *testing.T) {
	h := newTestHeap(t)
	target, err := h.AllocateObjectArray(objval.FirstHeapLayoutID, nil)
	if err != nil {
		t.Fatal(err)
	}
	h.NewWeakRef(target, func(*WeakRef) { panic("boom") })
	h.SetRoots(sliceRoots{})

	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("panic from weakref callback propagated to caller: %v", r)
			}
		}()
		h.Collect()
	}()
}

func TestWeakRefClusterFinalizesInLinkOrder(t *testing.T) {
	h := newTestHeap(t)
	a, err := h.AllocateObjectArray(objval.FirstHeapLayoutID, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.AllocateObjectArray(objval.FirstHeapLayoutID, nil)
	if err != nil {
		t.Fatal(err)
	}
	c, err := h.AllocateObjectArray(objval.FirstHeapLayoutID, nil)
	if err != nil {
		t.Fatal(err)
	}

	var order []string
	wc := h.NewWeakRef(c, func(*WeakRef) { order = append(order, "c") })
	wa := h.NewWeakRef(a, func(*WeakRef) { order = append(order, "a") })
	wb := h.NewWeakRef(b, func(*WeakRef) { order = append(order, "b") })

	// Registered c, a, b but linked as a -> b -> c; the cluster must
	// finalize a, b, c regardless of registration order.
	wb.Link(wa)
	wc.Link(wb)

	h.SetRoots(sliceRoots{})
	h.Collect()

	want := []string{"a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order = %v, want %v", order, want)
			break
		}
	}
}

func TestForwardedObjectNeverRevisited(t *testing.T) {
	h := newTestHeap(t)
	shared, err := h.AllocateObjectArray(objval.FirstHeapLayoutID, []objval.Ref{objval.SmallInt(5)})
	if err != nil {
		t.Fatal(err)
	}
	a, err := h.AllocateObjectArray(objval.FirstHeapLayoutID, []objval.Ref{shared})
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.AllocateObjectArray(objval.FirstHeapLayoutID, []objval.Ref{shared})
	if err != nil {
		t.Fatal(err)
	}
	h.SetRoots(sliceRoots{&a, &b})
	h.Collect()

	sharedFromA := h.ReadWord(a.HeapAddress(), 0)
	sharedFromB := h.ReadWord(b.HeapAddress(), 0)
	if sharedFromA != sharedFromB {
		t.Errorf("shared object forwarded to two different addresses: %v vs %v", sharedFromA, sharedFromB)
	}
}
