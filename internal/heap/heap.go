// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package heap implements the managed heap: a two-space semi-space copying
// collector. Allocation is bump-pointer in the active ("from") space; a
// collection forwards every reachable object into the other ("to") space
// and swaps the roles of the two spaces.
//
// The collector is precise, not conservative: every allocation declares a
// Format (see header.go) up front, so the scavenger knows exactly which
// words of an object's payload are tagged Refs worth following and which
// are raw bytes that must never be mistaken for pointers.
package heap

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/pyrt-lang/pyrt/internal/objval"
)

// Config controls the size of each semispace.
type Config struct {
	// RegionSize is the size, in bytes, of each of the two semispaces.
	RegionSize int
}

// DefaultConfig is a small heap suitable for tests and the demo CLI.
var DefaultConfig = Config{RegionSize: 4 << 20}

var ErrOutOfMemory = errors.New("heap: region exhausted")

// Roots is implemented by anything that holds Refs the collector must
// treat as live: the interpreter's value stack, the handle table (§4.E),
// module dicts (§4.H), and intern tables. Scan must call visit once per
// root slot; visit may rewrite the slot in place to point at the
// post-collection address.
type Roots interface {
	Scan(visit func(p *objval.Ref))
}

// Stats summarizes one collection.
type Stats struct {
	LiveObjects int
	LiveBytes   int64
}

// FinalizerFunc runs when a native-proxied object becomes unreachable.
type FinalizerFunc func(addr uintptr)

// Heap is one managed heap. Multiple Heaps may coexist in one process,
// each fully isolated (spec.md §5: "multiple runtime instances may
// coexist").
type Heap struct {
	cfg Config

	from, to    *region
	allocPtr    uintptr
	toAllocPtr  uintptr

	roots Roots

	weakRefs        []*WeakRef
	pendingWeakRuns []*WeakRef

	identitySeed uint32

	nativeTracked map[uintptr]bool
	finalizers    map[uintptr]FinalizerFunc

	logger *log.Logger
}

// New allocates the two semispaces and returns an empty Heap.
func New(cfg Config) (*Heap, error) {
	if cfg.RegionSize <= 0 {
		cfg = DefaultConfig
	}
	from, err := newRegion(cfg.RegionSize)
	if err != nil {
		return nil, err
	}
	to, err := newRegion(cfg.RegionSize)
	if err != nil {
		from.close()
		return nil, err
	}
	return &Heap{
		cfg:           cfg,
		from:          from,
		to:            to,
		allocPtr:      from.base,
		nativeTracked: make(map[uintptr]bool),
		finalizers:    make(map[uintptr]FinalizerFunc),
		logger:        log.New(os.Stderr, "heap: ", log.LstdFlags),
	}, nil
}

// Close releases both semispaces' backing memory.
func (h *Heap) Close() error {
	err1 := h.from.close()
	err2 := h.to.close()
	if err1 != nil {
		return err1
	}
	return err2
}

// SetRoots installs the root set scanned on every collection. Callers
// typically wire this to a small adapter that scans the handle table, the
// module registry, and the interpreter's value stacks.
func (h *Heap) SetRoots(r Roots) {
	h.roots = r
}

// SetLogger overrides the default stderr logger.
func (h *Heap) SetLogger(l *log.Logger) {
	h.logger = l
}

const headerWordSize = 8

func sizeInBytes(format Format, count int) int64 {
	switch format {
	case FormatObjectArray, FormatObjectInstance:
		return int64(count) * 8
	default:
		return int64(count)
	}
}

func align8(n int64) int64 {
	if rem := n % 8; rem != 0 {
		n += 8 - rem
	}
	return n
}

// alloc bump-allocates one object in r, writing its header (and, if
// needed, its overflow count word) but not its payload.
func alloc(r *region, allocPtr *uintptr, format Format, layoutID objval.LayoutID, count int) (uintptr, error) {
	overflow := count >= countOverflow
	headerWords := 1
	if overflow {
		headerWords = 2
	}
	total := align8(int64(headerWords)*headerWordSize + sizeInBytes(format, count))

	base := *allocPtr
	if !r.contains(base, total) {
		return 0, ErrOutOfMemory
	}
	*allocPtr += uintptr(total)

	headerAddr := base
	if overflow {
		r.writeUint64(headerAddr, uint64(count))
		headerAddr += headerWordSize
	}
	hdr := header{format: format, layoutID: layoutID, count: uint32(count)}
	r.writeUint64(headerAddr, hdr.pack())
	return headerAddr + headerWordSize, nil
}

func (h *Heap) allocate(format Format, layoutID objval.LayoutID, count int) (objval.Ref, error) {
	obj, err := alloc(h.from, &h.allocPtr, format, layoutID, count)
	if err == ErrOutOfMemory {
		h.Collect()
		obj, err = alloc(h.from, &h.allocPtr, format, layoutID, count)
	}
	if err != nil {
		return 0, fmt.Errorf("heap: allocation of %d words failed after collection: %w", count, err)
	}
	return objval.FromHeapAddress(obj), nil
}

// AllocateObjectArray allocates a flat array of Refs, e.g. a tuple or a
// list's backing store.
func (h *Heap) AllocateObjectArray(layoutID objval.LayoutID, elems []objval.Ref) (objval.Ref, error) {
	ref, err := h.allocate(FormatObjectArray, layoutID, len(elems))
	if err != nil {
		return 0, err
	}
	obj := ref.HeapAddress()
	for i, e := range elems {
		h.from.writeUint64(obj+uintptr(i*8), uint64(e))
	}
	return ref, nil
}

// AllocateDataArray allocates a raw byte payload, e.g. a str or bytes
// object's backing store. Its contents are never scanned for pointers.
func (h *Heap) AllocateDataArray(layoutID objval.LayoutID, data []byte) (objval.Ref, error) {
	ref, err := h.allocate(FormatDataArray, layoutID, len(data))
	if err != nil {
		return 0, err
	}
	h.from.writeBytes(ref.HeapAddress(), data)
	return ref, nil
}

// AllocateObjectInstance allocates an instance whose every slot (in-object
// attributes followed by the overflow-array pointer) is a Ref, addressed
// through a Layout (package layout).
func (h *Heap) AllocateObjectInstance(layoutID objval.LayoutID, slots []objval.Ref) (objval.Ref, error) {
	ref, err := h.allocate(FormatObjectInstance, layoutID, len(slots))
	if err != nil {
		return 0, err
	}
	obj := ref.HeapAddress()
	for i, s := range slots {
		h.from.writeUint64(obj+uintptr(i*8), uint64(s))
	}
	return ref, nil
}

// AllocateDataInstance allocates an instance whose in-object slots are raw
// bytes, used for builtin types whose fields are not Layout attributes
// (e.g. an int's digit array).
func (h *Heap) AllocateDataInstance(layoutID objval.LayoutID, data []byte) (objval.Ref, error) {
	ref, err := h.allocate(FormatDataInstance, layoutID, len(data))
	if err != nil {
		return 0, err
	}
	h.from.writeBytes(ref.HeapAddress(), data)
	return ref, nil
}

func (h *Heap) readHeaderAt(obj uintptr) (header, bool) {
	w := h.from.readUint64(obj - headerWordSize)
	return unpackHeader(w)
}

func (h *Heap) countAt(obj uintptr, hdr header) int {
	if hdr.count != countOverflow {
		return int(hdr.count)
	}
	return int(h.from.readUint64(obj - 2*headerWordSize))
}

// HeaderLayoutID implements objval.HeaderReader.
func (h *Heap) HeaderLayoutID(addr uintptr) objval.LayoutID {
	hdr, ok := h.readHeaderAt(addr)
	if !ok {
		panic(fmt.Sprintf("heap: no valid header at %#x", addr))
	}
	return hdr.layoutID
}

// Format reports the object's allocation format.
func (h *Heap) Format(addr uintptr) Format {
	hdr, ok := h.readHeaderAt(addr)
	if !ok {
		panic(fmt.Sprintf("heap: no valid header at %#x", addr))
	}
	return hdr.format
}

// Count reports the object's element/attribute count (words for the
// object formats, bytes for the data formats).
func (h *Heap) Count(addr uintptr) int {
	hdr, ok := h.readHeaderAt(addr)
	if !ok {
		panic(fmt.Sprintf("heap: no valid header at %#x", addr))
	}
	return h.countAt(addr, hdr)
}

// ReadWord reads the i'th Ref-sized slot of an object-format object.
func (h *Heap) ReadWord(addr uintptr, i int) objval.Ref {
	return objval.Ref(h.from.readUint64(addr + uintptr(i*8)))
}

// WriteWord writes the i'th Ref-sized slot of an object-format object.
func (h *Heap) WriteWord(addr uintptr, i int, v objval.Ref) {
	h.from.writeUint64(addr+uintptr(i*8), uint64(v))
}

// ReadBytes reads n bytes of a data-format object's payload.
func (h *Heap) ReadBytes(addr uintptr, n int) []byte {
	return h.from.readBytes(addr, int64(n))
}

// WriteBytes overwrites a data-format object's payload in place; len(b)
// must not exceed the object's allocated size.
func (h *Heap) WriteBytes(addr uintptr, b []byte) {
	h.from.writeBytes(addr, b)
}

// IdentityHash returns a stable, lazily-assigned 30-bit hash for a heap
// object, persisted in its header so it survives collection (invariant
// G2).
func (h *Heap) IdentityHash(r objval.Ref) uint32 {
	obj := r.HeapAddress()
	hAddr := obj - headerWordSize
	w := h.from.readUint64(hAddr)
	hdr, ok := unpackHeader(w)
	if !ok {
		panic(fmt.Sprintf("heap: no valid header at %#x", obj))
	}
	if hdr.hash != 0 {
		return hdr.hash
	}
	h.identitySeed++
	seed := h.identitySeed & headerHashMask
	if seed == 0 {
		h.identitySeed++
		seed = h.identitySeed & headerHashMask
	}
	hdr.hash = seed
	h.from.writeUint64(hAddr, hdr.pack())
	return seed
}

// TrackNativeProxy marks addr as backed by a live C-extension instance;
// fn, if non-nil, runs once the managed side becomes unreachable with the
// native refcount already at zero (spec.md §4.B "Native-proxy dealloc").
func (h *Heap) TrackNativeProxy(addr uintptr, fn FinalizerFunc) {
	h.nativeTracked[addr] = true
	if fn != nil {
		h.finalizers[addr] = fn
	}
}

// UntrackNativeProxy is called from tp_dealloc to release the tracked bit
// before the next collection runs.
func (h *Heap) UntrackNativeProxy(addr uintptr) {
	delete(h.nativeTracked, addr)
	delete(h.finalizers, addr)
}

// IsNativeTracked reports whether addr is still backed by a tracked
// native proxy.
func (h *Heap) IsNativeTracked(addr uintptr) bool {
	return h.nativeTracked[addr]
}
