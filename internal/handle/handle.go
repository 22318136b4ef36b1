// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package handle implements the C-extension handle table: a refcounted
// indirection between native code's opaque object pointers and managed
// heap objects, so a C extension can hold a stable address across
// collections without the collector needing to understand native frames.
package handle

import (
	"github.com/pyrt-lang/pyrt/internal/objval"
)

// refcount packs a reference count together with a borrow flag in the top
// bit, mirroring how a single machine word carries both pieces of
// information in the native handle representation this is modeled on.
type refcount uint64

const borrowBit refcount = 1 << 63

func (c refcount) count() uint64   { return uint64(c &^ borrowBit) }
func (c refcount) borrowed() bool  { return c&borrowBit != 0 }
func withCount(n uint64) refcount  { return refcount(n) }
func (c refcount) withBorrow() refcount {
	return c | borrowBit
}

// Handle is the native-visible cell for one managed object: extension code
// only ever sees a *Handle, never the managed Ref directly, so the
// collector can relocate the referent underneath it freely.
type Handle struct {
	ref   objval.Ref
	rc    refcount
	cache interface{} // single native ancillary-allocation cache slot
}

// Ref returns the managed object this handle stands for.
func (h *Handle) Ref() objval.Ref { return h.ref }

// Cache returns the handle's single ancillary cache slot, used by native
// code paths that need to stash one piece of derived state alongside the
// handle (e.g. a cached buffer view) without a second table lookup.
func (h *Handle) Cache() interface{} { return h.cache }

// SetCache overwrites the handle's ancillary cache slot.
func (h *Handle) SetCache(v interface{}) { h.cache = v }

// IsBorrowed reports whether this handle was vended as a borrowed
// reference: borrowed handles are never freed by Decref, only by the
// table owner explicitly retiring them.
func (h *Handle) IsBorrowed() bool { return h.rc.borrowed() }

// Table is the process-wide managed-object-to-Handle mapping. Every
// managed Ref that has ever crossed into native code has exactly one
// Handle here for as long as any native reference to it is outstanding.
type Table struct {
	byRef map[objval.Ref]*Handle
}

// NewTable returns an empty handle Table.
func NewTable() *Table {
	return &Table{byRef: make(map[objval.Ref]*Handle)}
}

// NewReference returns the Handle for ref, creating one with a refcount of
// 1 if this is the first native reference to ref, or incrementing the
// existing handle's refcount otherwise. This is the handle-table
// equivalent of returning a "new reference" to native code.
func (t *Table) NewReference(ref objval.Ref) *Handle {
	if h, ok := t.byRef[ref]; ok {
		h.rc = withCount(h.rc.count() + 1)
		return h
	}
	h := &Handle{ref: ref, rc: withCount(1)}
	t.byRef[ref] = h
	return h
}

// Borrow returns a Handle for ref without affecting its refcount,
// creating the entry with a zero count marked borrowed if none exists
// yet. A borrowed entry is kept alive by the borrow bit alone and is
// never collected by Decref underflow.
func (t *Table) Borrow(ref objval.Ref) *Handle {
	if h, ok := t.byRef[ref]; ok {
		return h
	}
	h := &Handle{ref: ref, rc: withCount(0).withBorrow()}
	t.byRef[ref] = h
	return h
}

// Incref increments h's refcount, converting a borrowed-only handle into
// an owned one.
func (t *Table) Incref(h *Handle) {
	h.rc = withCount(h.rc.count() + 1)
}

// Decref decrements h's refcount and, once it reaches zero and the handle
// is not separately borrowed, removes it from the table. Decref on an
// already-retired handle is a programming error in native code and
// panics, matching CPython's fatal "negative ref count" abort.
func (t *Table) Decref(h *Handle) {
	n := h.rc.count()
	if n == 0 {
		panic("handle: Decref on a handle with a zero refcount")
	}
	n--
	borrowed := h.rc.borrowed()
	if n == 0 && !borrowed {
		h.rc = withCount(0)
		delete(t.byRef, h.ref)
		return
	}
	rc := withCount(n)
	if borrowed {
		rc = rc.withBorrow()
	}
	h.rc = rc
}

// Release retires a borrowed handle explicitly, regardless of its count.
// Used when the table owner (not native code) knows the borrow's lifetime
// has ended, e.g. a stack-scoped fast-call argument handle.
func (t *Table) Release(h *Handle) {
	delete(t.byRef, h.ref)
}

// Lookup returns the live handle for ref, if one is currently outstanding.
func (t *Table) Lookup(ref objval.Ref) (*Handle, bool) {
	h, ok := t.byRef[ref]
	return h, ok
}

// Len reports the number of outstanding handles, for diagnostics.
func (t *Table) Len() int { return len(t.byRef) }

// Scan visits every Ref kept alive by an outstanding handle: a refcount
// greater than zero, or the borrow bit set, both count as a GC root
// (§4.E "every live handle, owned or borrowed, roots its referent").
func (t *Table) Scan(visit func(p *objval.Ref)) {
	var live []*Handle
	for _, h := range t.byRef {
		if h.rc.count() > 0 || h.rc.borrowed() {
			live = append(live, h)
		}
	}
	for _, h := range live {
		ref := h.ref
		r := ref
		visit(&r)
		if r != ref {
			delete(t.byRef, ref)
			h.ref = r
			t.byRef[r] = h
		}
	}
}
