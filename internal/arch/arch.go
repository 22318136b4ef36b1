// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package arch contains the host word-size/byte-order tables that back
// sys.maxsize/sys.byteorder and the native-buffer marshaling trampoline
// calls may need when a C-extension argument arrives as raw bytes rather
// than an already-tagged objval.Ref.
package arch

import (
	"encoding/binary"
)

// Word describes one target machine's pointer width and byte order, the
// two host facts a tagged-pointer runtime and its C-extension trampolines
// must agree with the platform on.
type Word struct {
	// IntSize is the size of a native C "long", in bytes.
	IntSize int
	// PointerSize is the size of a pointer, in bytes — objval.Ref's
	// tagged words are this wide.
	PointerSize int
	// ByteOrder is the byte order for ints and pointers.
	ByteOrder binary.ByteOrder
}

// Int decodes buf as a native-width signed integer.
func (w *Word) Int(buf []byte) int64 {
	v := w.Uint(buf)
	if w.IntSize == 4 {
		return int64(int32(v))
	}
	return int64(v)
}

// Uint decodes buf as a native-width unsigned integer.
func (w *Word) Uint(buf []byte) uint64 {
	if len(buf) != w.IntSize {
		panic("bad IntSize")
	}
	switch w.IntSize {
	case 4:
		return uint64(w.ByteOrder.Uint32(buf[:4]))
	case 8:
		return w.ByteOrder.Uint64(buf[:8])
	}
	panic("no IntSize")
}

// Uintptr decodes buf as a native pointer-width value, the shape a
// trampoline.Func sees when a C extension hands it a raw PyObject* word
// instead of a Go objval.Ref.
func (w *Word) Uintptr(buf []byte) uint64 {
	if len(buf) != w.PointerSize {
		panic("bad PointerSize")
	}
	switch w.PointerSize {
	case 4:
		return uint64(w.ByteOrder.Uint32(buf[:4]))
	case 8:
		return w.ByteOrder.Uint64(buf[:8])
	}
	panic("no PointerSize")
}

// PutUintptr encodes v in buf at native pointer width, the reverse of
// Uintptr — used when handing a Ref back across the native boundary as
// raw bytes.
func (w *Word) PutUintptr(buf []byte, v uint64) {
	switch w.PointerSize {
	case 4:
		w.ByteOrder.PutUint32(buf[:4], uint32(v))
	case 8:
		w.ByteOrder.PutUint64(buf[:8], v)
	default:
		panic("no PointerSize")
	}
}

// MaxSize is the largest index a sequence of this word width can address,
// sys.maxsize's definition: 2**(8*PointerSize-1) - 1.
func (w *Word) MaxSize() int64 {
	return int64(uint64(1)<<(uint(w.PointerSize)*8-1)) - 1
}

var AMD64 = Word{
	IntSize:     8,
	PointerSize: 8,
	ByteOrder:   binary.LittleEndian,
}

var X86 = Word{
	IntSize:     4,
	PointerSize: 4,
	ByteOrder:   binary.LittleEndian,
}

var ARM64 = Word{
	IntSize:     8,
	PointerSize: 8,
	ByteOrder:   binary.LittleEndian,
}
