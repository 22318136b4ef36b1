// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import "github.com/pyrt-lang/pyrt/internal/objval"

// Format describes the shape of a heap object's payload, which in turn
// tells the scavenger whether the payload holds scannable Refs.
type Format uint8

const (
	// FormatDataArray holds raw, non-pointer bytes of variable width
	// (e.g. a str or bytes payload).
	FormatDataArray Format = iota
	// FormatObjectArray holds a flat array of Refs (e.g. a tuple or list
	// backing store).
	FormatObjectArray
	// FormatDataInstance holds an instance whose in-object slots are raw
	// bytes (no Layout attributes reference the GC).
	FormatDataInstance
	// FormatObjectInstance holds an instance addressed through a Layout:
	// every word is a Ref (in-object attributes followed by the overflow
	// pointer slot).
	FormatObjectInstance
)

const (
	headerTag        = 0x3 // 011, matches objval's tagHeader
	headerTagMask    = 0x7
	headerFormatBits = 2
	headerFormatMask = 1<<headerFormatBits - 1
	headerFormatShift = 3

	headerLayoutBits  = 20
	headerLayoutMask  = 1<<headerLayoutBits - 1
	headerLayoutShift = headerFormatShift + headerFormatBits

	headerHashBits  = 30
	headerHashMask  = 1<<headerHashBits - 1
	headerHashShift = headerLayoutShift + headerLayoutBits

	headerCountBits  = 8
	headerCountMask  = 1<<headerCountBits - 1
	headerCountShift = headerHashShift + headerHashBits

	// countOverflow marks that the real count doesn't fit in 8 bits and is
	// instead stored in the word immediately preceding the header.
	countOverflow = headerCountMask

	// forwardedMarker replaces the header word in from-space once an
	// object has been relocated to to-space; it can never collide with a
	// valid header because its low 3 bits (0b111) differ from headerTag
	// (0b011).
	forwardedMarker uint64 = ^uint64(0)
)

type header struct {
	format   Format
	layoutID objval.LayoutID
	hash     uint32 // 0 means "not yet assigned"
	count    uint32
}

func (h header) pack() uint64 {
	count := h.count
	if count >= countOverflow {
		count = countOverflow
	}
	return uint64(headerTag) |
		uint64(h.format&headerFormatMask)<<headerFormatShift |
		uint64(uint32(h.layoutID)&headerLayoutMask)<<headerLayoutShift |
		uint64(h.hash&headerHashMask)<<headerHashShift |
		uint64(count)<<headerCountShift
}

func unpackHeader(w uint64) (header, bool) {
	if w&headerTagMask != headerTag {
		return header{}, false
	}
	return header{
		format:   Format((w >> headerFormatShift) & headerFormatMask),
		layoutID: objval.LayoutID((w >> headerLayoutShift) & headerLayoutMask),
		hash:     uint32((w >> headerHashShift) & headerHashMask),
		count:    uint32((w >> headerCountShift) & headerCountMask),
	}, true
}

func isForwardedWord(w uint64) bool {
	return w == forwardedMarker
}
