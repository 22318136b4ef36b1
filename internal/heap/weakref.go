// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import "github.com/pyrt-lang/pyrt/internal/objval"

// WeakRef is a reference that does not keep its referent alive. After a
// collection in which the referent was not independently reachable, its
// Referent reads as objval.None and, if a callback was registered, the
// callback runs exactly once (spec.md §8 property 5).
type WeakRef struct {
	referent objval.Ref
	callback func(*WeakRef)

	// next/prev link same-cluster weakrefs so a group of objects that
	// died together can be finalized in a stable order, mirroring the
	// "weak-link variant" of spec.md §4.B.
	next, prev *WeakRef
}

// NewWeakRef registers a new weak reference to target. callback, if
// non-nil, is invoked (with this WeakRef) after a collection clears the
// referent.
func (h *Heap) NewWeakRef(target objval.Ref, callback func(*WeakRef)) *WeakRef {
	w := &WeakRef{referent: target, callback: callback}
	h.weakRefs = append(h.weakRefs, w)
	return w
}

// Link chains w after prev, forming a cluster that finalizes in a stable
// order.
func (w *WeakRef) Link(prev *WeakRef) {
	w.prev = prev
	prev.next = w
}

// Next returns the next weakref in w's cluster, if any.
func (w *WeakRef) Next() *WeakRef { return w.next }

// Referent returns the current referent, or objval.None once cleared.
func (w *WeakRef) Referent() objval.Ref {
	return w.referent
}

func (w *WeakRef) setReferent(r objval.Ref) {
	w.referent = r
}
