// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import "github.com/pyrt-lang/pyrt/internal/objval"

// forward copies the object at obj (a from-space address) into to-space
// if it hasn't been copied yet, and returns its (possibly new) address in
// to-space. It never visits an already-forwarded object twice
// (invariant G3): the from-space header is replaced with forwardedMarker
// and the forwarding address is stashed in the object's first payload
// word, exactly as spec.md §4.B describes.
func (h *Heap) forward(obj uintptr, queue *[]uintptr) uintptr {
	hAddr := obj - headerWordSize
	w := h.from.readUint64(hAddr)
	if isForwardedWord(w) {
		return uintptr(h.from.readUint64(obj))
	}
	hdr, ok := unpackHeader(w)
	if !ok {
		panic("heap: forward of a non-header word; GC scan is inconsistent")
	}
	overflow := hdr.count == countOverflow
	count := h.countAt(obj, hdr)

	headerWords := 1
	srcBase := hAddr
	if overflow {
		headerWords = 2
		srcBase -= headerWordSize
	}
	total := align8(int64(headerWords)*headerWordSize + sizeInBytes(hdr.format, count))

	dstBase := h.toAllocPtr
	if !h.to.contains(dstBase, total) {
		panic("heap: to-space exhausted mid-collection (region too small)")
	}
	h.toAllocPtr += uintptr(total)
	h.to.copyFrom(dstBase, h.from, srcBase, total)

	newHeaderAddr := dstBase
	if overflow {
		newHeaderAddr += headerWordSize
	}
	newObj := newHeaderAddr + headerWordSize

	h.from.writeUint64(hAddr, forwardedMarker)
	h.from.writeUint64(obj, uint64(newObj))

	if hdr.format == FormatObjectArray || hdr.format == FormatObjectInstance {
		*queue = append(*queue, newObj)
	}
	return newObj
}

// Collect runs one stop-the-world collection: every root is forwarded,
// then every scannable (object-format) object reachable from a root is
// forwarded transitively, weak references are resolved, and the two
// semispaces swap roles.
func (h *Heap) Collect() Stats {
	h.toAllocPtr = h.to.base

	var candidates []*WeakRef
	for _, w := range h.weakRefs {
		if r := w.Referent(); r.IsHeapObject() {
			addr := r.HeapAddress()
			if h.from.contains(addr-headerWordSize, headerWordSize) {
				candidates = append(candidates, w)
			}
		}
	}

	var queue []uintptr
	live := 0
	forwardObj := func(obj uintptr) uintptr {
		if !isForwardedWord(h.from.readUint64(obj - headerWordSize)) {
			live++
		}
		return h.forward(obj, &queue)
	}
	forwardSlot := func(p *objval.Ref) {
		r := *p
		if !r.IsHeapObject() {
			return
		}
		*p = objval.FromHeapAddress(forwardObj(r.HeapAddress()))
	}

	if h.roots != nil {
		h.roots.Scan(forwardSlot)
	}
	for i := 0; i < len(queue); i++ {
		obj := queue[i]
		hdr, ok := unpackHeader(h.to.readUint64(obj - headerWordSize))
		if !ok {
			panic("heap: to-space object has no valid header")
		}
		count := h.toCountAt(obj, hdr)
		for k := 0; k < count; k++ {
			addr := obj + uintptr(k*8)
			r := objval.Ref(h.to.readUint64(addr))
			if !r.IsHeapObject() {
				continue
			}
			h.to.writeUint64(addr, uint64(objval.FromHeapAddress(forwardObj(r.HeapAddress()))))
		}
	}

	for _, w := range candidates {
		addr := w.Referent().HeapAddress()
		hAddr := addr - headerWordSize
		word := h.from.readUint64(hAddr)
		if isForwardedWord(word) {
			newObj := uintptr(h.from.readUint64(addr))
			w.setReferent(objval.FromHeapAddress(newObj))
			continue
		}
		w.setReferent(objval.None)
		if w.callback != nil {
			h.pendingWeakRuns = append(h.pendingWeakRuns, w)
		}
	}

	stats := Stats{LiveObjects: live, LiveBytes: int64(h.toAllocPtr - h.to.base)}

	h.from, h.to = h.to, h.from
	h.allocPtr = h.toAllocPtr

	h.runPendingWeakCallbacks()
	return stats
}

// toCountAt mirrors countAt but reads from to-space, used while scanning
// objects that have already been relocated there.
func (h *Heap) toCountAt(obj uintptr, hdr header) int {
	if hdr.count != countOverflow {
		return int(hdr.count)
	}
	return int(h.to.readUint64(obj - 2*headerWordSize))
}

// runPendingWeakCallbacks runs each due weakref callback, suppressing any
// panic the way spec.md §4.B requires unhandled exceptions from a weakref
// callback to be suppressed rather than propagated to the GC caller.
func (h *Heap) runPendingWeakCallbacks() {
	pending := h.pendingWeakRuns
	h.pendingWeakRuns = nil
	for _, w := range orderWeakRefClusters(pending) {
		h.runOneWeakCallback(w)
	}
}

// orderWeakRefClusters reorders pending so that weakrefs chained together
// with WeakRef.Link run contiguously in prev-to-next order, instead of in
// whatever order they happened to be registered or die in. Clusters (and
// unlinked singletons) otherwise keep the relative order they first appear
// in pending, so a group of weakrefs over objects that died together
// always finalizes in the same stable order across collections.
func orderWeakRefClusters(pending []*WeakRef) []*WeakRef {
	due := make(map[*WeakRef]bool, len(pending))
	for _, w := range pending {
		due[w] = true
	}
	visited := make(map[*WeakRef]bool, len(pending))
	ordered := make([]*WeakRef, 0, len(pending))
	for _, w := range pending {
		if visited[w] {
			continue
		}
		head := w
		for head.prev != nil && due[head.prev] {
			head = head.prev
		}
		for cur := head; cur != nil && due[cur]; cur = cur.next {
			if visited[cur] {
				continue
			}
			visited[cur] = true
			ordered = append(ordered, cur)
		}
	}
	return ordered
}

func (h *Heap) runOneWeakCallback(w *WeakRef) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Printf("exception in weakref callback suppressed: %v", r)
		}
	}()
	w.callback(w)
}
