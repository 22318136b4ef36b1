// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package objval defines the uniform, tagged representation of a Python
// value: a single machine word that is either an immediate (small integer,
// bool, None, an error sentinel, or a short packed string) or the address
// of a heap object. Dispatch on the tag bits is O(1) and never allocates.
package objval

import "fmt"

// Ref is one tagged machine word. It is the currency of the whole runtime:
// every interpreter stack slot, every Layout slot, every argument passed
// through a trampoline is a Ref.
type Ref uint64

const (
	tagMask3 = 0x7  // low 3 bits
	tagMask5 = 0x1f // low 5 bits

	tagHeap   = 0x1 // 001: heap object address
	tagHeader = 0x3 // 011: in-heap header word, never a valid Ref on its own

	immBool     = 0x07 // 00111
	immNone     = 0x0f // 01111
	immError    = 0x17 // 10111
	immSmallStr = 0x1f // 11111
)

// LayoutID globally identifies a Layout (see package layout). Immediate
// kinds occupy the reserved low range so that the 5-bit immediate tag
// doubles as the LayoutID with no table lookup; heap-object LayoutIDs are
// assigned starting at FirstHeapLayoutID.
type LayoutID uint32

const (
	LayoutSmallInt      LayoutID = 0
	LayoutBool          LayoutID = immBool
	LayoutNone          LayoutID = immNone
	LayoutErrorSentinel LayoutID = immError
	LayoutSmallStr      LayoutID = immSmallStr

	// KLastBuiltinID is the highest LayoutID reserved for immediate kinds.
	KLastBuiltinID LayoutID = 31
	// FirstHeapLayoutID is the first LayoutID available to heap-object types.
	FirstHeapLayoutID LayoutID = KLastBuiltinID + 1
)

// None is the singleton None value.
const None Ref = Ref(immNone)

// True and False are the two Bool values.
const (
	False Ref = Ref(immBool)
	True  Ref = Ref(immBool | 1<<5)
)

// ErrorKind distinguishes the four error-sentinel shapes.
type ErrorKind uint8

const (
	ErrorNotFound ErrorKind = iota
	ErrorException
	ErrorUnbound
	ErrorNoMoreItems
)

var errorKindNames = [...]string{"not-found", "exception", "unbound", "no-more-items"}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// ErrorSentinel builds the immediate error-sentinel Ref of the given kind.
func ErrorSentinel(k ErrorKind) Ref {
	return Ref(immError) | Ref(k)<<5
}

// NotFound, Unbound and NoMoreItems are the non-exception error sentinels;
// an "exception" sentinel additionally requires a pending exception on the
// thread (see package exc), so it has no standalone constant here.
var (
	NotFound    = ErrorSentinel(ErrorNotFound)
	Unbound     = ErrorSentinel(ErrorUnbound)
	NoMoreItems = ErrorSentinel(ErrorNoMoreItems)
)

// SmallInt packs a signed integer into the tagged representation. Values
// must fit in 63 bits; callers with a bignum fall back to a heap object
// (the builtin int type's concern, not this package's).
func SmallInt(v int64) Ref {
	return Ref(uint64(v) << 1)
}

// IsSmallInt reports whether r's tag marks it a small integer: the low bit
// is clear, aliasing all even-valued words so raw arithmetic works.
func (r Ref) IsSmallInt() bool {
	return r&1 == 0
}

// SmallIntValue returns the packed integer. Only valid if IsSmallInt.
func (r Ref) SmallIntValue() int64 {
	return int64(r) >> 1
}

// Bool packs a boolean.
func Bool(v bool) Ref {
	if v {
		return True
	}
	return False
}

// IsBool reports whether r is one of the two Bool immediates.
func (r Ref) IsBool() bool {
	return r&tagMask5 == immBool
}

// BoolValue returns the packed boolean. Only valid if IsBool.
func (r Ref) BoolValue() bool {
	return r&(1<<5) != 0
}

// IsNone reports whether r is the None immediate.
func (r Ref) IsNone() bool {
	return r&tagMask5 == immNone
}

// IsErrorSentinel reports whether r is one of the four error sentinels.
func (r Ref) IsErrorSentinel() bool {
	return r&tagMask5 == immError
}

// Kind returns the sentinel's kind. Only valid if IsErrorSentinel.
func (r Ref) Kind() ErrorKind {
	return ErrorKind((r >> 5) & 0x3)
}

// maxSmallStringLen is the number of payload bytes a SmallString can hold:
// 64 bits minus 5 tag bits minus 3 length bits, rounded down to bytes.
const maxSmallStringLen = 7

// SmallString packs up to 7 bytes into the tagged representation. It
// reports false if b is too long to pack.
func SmallString(b []byte) (Ref, bool) {
	if len(b) > maxSmallStringLen {
		return 0, false
	}
	w := uint64(immSmallStr) | uint64(len(b))<<5
	for i, c := range b {
		w |= uint64(c) << (8 + 8*i)
	}
	return Ref(w), true
}

// IsSmallString reports whether r is a packed short string.
func (r Ref) IsSmallString() bool {
	return r&tagMask5 == immSmallStr
}

// SmallStringLen returns the packed string's length. Only valid if
// IsSmallString.
func (r Ref) SmallStringLen() int {
	return int((r >> 5) & 0x7)
}

// SmallStringBytes unpacks the string's bytes. Only valid if IsSmallString.
func (r Ref) SmallStringBytes() []byte {
	n := r.SmallStringLen()
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = byte(r >> (8 + 8*i))
	}
	return out
}

// IsHeapObject reports whether r addresses a heap object.
func (r Ref) IsHeapObject() bool {
	return r&tagMask3 == tagHeap
}

// IsHeaderWord reports whether r has the shape of an in-heap header word.
// A header is never itself a valid Ref; this is used only by the heap
// package to validate invariant (i) of the data model.
func (r Ref) IsHeaderWord() bool {
	return r&tagMask3 == tagHeader
}

// HeapAddress returns the address of the object's first slot. Only valid
// if IsHeapObject; heap objects are at least 8-byte aligned so the 3 tag
// bits can be cleared losslessly.
func (r Ref) HeapAddress() uintptr {
	return uintptr(r &^ tagMask3)
}

// FromHeapAddress builds the Ref for the heap object whose first slot is
// at addr.
func FromHeapAddress(addr uintptr) Ref {
	return Ref(addr) | tagHeap
}

// HeaderReader reads the LayoutID stored in the header word immediately
// preceding the heap object at addr. Implemented by package heap.
type HeaderReader func(addr uintptr) LayoutID

// LayoutID is total and constant time: for immediates it is read off the
// low bits directly, for heap objects it defers to header.
func (r Ref) LayoutID(header HeaderReader) LayoutID {
	if r.IsSmallInt() {
		return LayoutSmallInt
	}
	switch r & tagMask5 {
	case immBool:
		return LayoutBool
	case immNone:
		return LayoutNone
	case immError:
		return LayoutErrorSentinel
	case immSmallStr:
		return LayoutSmallStr
	}
	if r.IsHeapObject() {
		return header(r.HeapAddress())
	}
	panic(fmt.Sprintf("objval: malformed ref %#x", uint64(r)))
}

// Equals is reference equality: a bitwise word compare. Immediates are
// fully encoded in the word so this is also value equality for them;
// heap-object string interning (so short strings compare bitwise too) is
// the allocator's job, not this package's — by the time two Refs exist for
// equal short strings they are already bit-identical. Every other notion
// of equality (e.g. float NaN, user __eq__) belongs to the type.
func Equals(a, b Ref) bool {
	return a == b
}

func (r Ref) String() string {
	switch {
	case r.IsSmallInt():
		return fmt.Sprintf("int(%d)", r.SmallIntValue())
	case r.IsBool():
		return fmt.Sprintf("bool(%v)", r.BoolValue())
	case r.IsNone():
		return "None"
	case r.IsErrorSentinel():
		return fmt.Sprintf("error(%s)", r.Kind())
	case r.IsSmallString():
		return fmt.Sprintf("str(%q)", r.SmallStringBytes())
	case r.IsHeapObject():
		return fmt.Sprintf("heap(%#x)", r.HeapAddress())
	default:
		return fmt.Sprintf("ref(%#x)", uint64(r))
	}
}
