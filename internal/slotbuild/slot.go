// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package slotbuild implements the slot-table type builder: constructing
// a runtime Type from a native extension's declarative PyType_Spec/
// PyType_Slot-style description, the way CPython's PyType_FromSpec does.
package slotbuild

import (
	"errors"
	"fmt"

	"github.com/pyrt-lang/pyrt/internal/handle"
	"github.com/pyrt-lang/pyrt/internal/trampoline"
)

// SlotID names one of the type's overridable native behaviors, covering
// the tp_ slots spec.md §4.G step 1 lists plus the nb_/sq_/mp_/am_
// sub-slot families. A handful of less commonly overridden number/
// sequence/mapping/async slots are left out (documented in DESIGN.md);
// any left out would be added to this table the same way.
type SlotID int

const (
	TPNew SlotID = iota + 1
	TPInit
	TPDealloc
	TPFinalize
	TPFree
	TPAlloc
	TPTraverse
	TPClear
	TPRichcompare
	TPHash
	TPRepr
	TPStr
	TPCall
	TPGetattr  // legacy two-argument getattr
	TPGetattro // new-style getattr, takes a name object
	TPSetattr  // legacy two-argument setattr
	TPSetattro // new-style setattr, takes a name object
	TPIter
	TPIterNext
	TPDescrGet
	TPDescrSet
	TPDel
	TPMethods
	TPMembers
	TPGetset
	TPBase
	TPDoc

	// Number protocol (nb_*), the slots CPython's numeric coercion and
	// arithmetic dispatch consult.
	NBAdd
	NBSubtract
	NBMultiply
	NBNegative
	NBBool
	NBInt
	NBFloat
	NBIndex

	// Sequence protocol (sq_*).
	SQLength
	SQConcat
	SQRepeat
	SQItem
	SQAssItem
	SQContains

	// Mapping protocol (mp_*).
	MPLength
	MPSubscript
	MPAssSubscript

	// Async protocol (am_*), the coroutine/awaitable slots.
	AMAwait
	AMAiter
	AMAnext
)

// Slot is one (id, native pointer) pair from a PyType_Spec's slot array.
// Pointer's concrete type depends on ID: TPMethods carries []MethodDef,
// TPMembers carries []MemberDef, TPGetset carries []GetSetDef, TPBase
// carries a *pytype.Type, TPDoc carries a string, and the tp_* function slots carry a trampoline.Func.
type Slot struct {
	ID      SlotID
	Pointer interface{}
}

// Py_TPFLAGS, the subset this builder consults.
const (
	FlagBaseType uint64 = 1 << iota
	FlagHaveGC
	FlagIsAbstract
)

// Spec mirrors PyType_Spec: a name, fixed/variable instance sizing, a
// flag word, and the slot array.
type Spec struct {
	Name      string
	BasicSize int32
	ItemSize  int32
	Flags     uint64
	Slots     []Slot
}

// ErrNegativeSlotID is returned for any slot with ID <= 0 (CPython:
// "PyType_FromSpec: slot ... has negative id", a RuntimeError).
var ErrNegativeSlotID = errors.New("slotbuild: slot id must be positive")

// MethFlags mirrors the METH_* flag bits relevant to method installation.
type MethFlags uint32

const (
	MethClass MethFlags = 1 << iota
	MethStatic
	MethCoexist
)

// ErrClassAndStatic is returned, wrapped with the method's name, when a
// method declares both METH_CLASS and METH_STATIC (CPython: "static method cannot be classmethod", a
// ValueError).
var ErrClassAndStatic = errors.New("slotbuild: method cannot be both a classmethod and a staticmethod")

// MethodDef is one entry of a TPMethods slot's method table.
type MethodDef struct {
	Name       string
	Convention trampoline.Convention
	Impl       trampoline.Func
	Flags      MethFlags
	Doc        string
}

// MemberType mirrors the PyMemberDef T_* type tags relevant to the two
// divergent null-read behaviors spec.md §9 calls out.
type MemberType uint8

const (
	// TObject reads as None when the underlying slot is unset/null.
	TObject MemberType = iota
	// TObjectEx raises AttributeError when the underlying slot is
	// unset/null, instead of silently reading as None. This is the
	// deliberately preserved divergence from TObject: both behaviors are
	// kept, not unified, because extension code depends on each.
	TObjectEx
	TInt
	TBool
	TString
)

// MemberDef is one entry of a TPMembers slot's member table: a fixed
// in-object attribute exposed directly, without going through the
// Layout overflow path.
type MemberDef struct {
	Name     string
	Type     MemberType
	Offset   int
	ReadOnly bool
	Doc      string
}

// GetSetDef is one entry of a TPGetset slot's descriptor table: a native
// getter, and an optional native setter (nil for a read-only attribute,
// CPython's "attribute '...' of '...' objects is not writable" case).
// Both operate on handles, the same currency every other native entry
// point in this runtime uses, so a getset pair composes with the
// trampoline dispatcher exactly like a tp_getattro call would.
type GetSetDef struct {
	Name    string
	Get     func(self *handle.Handle) (*handle.Handle, error)
	Set     func(self *handle.Handle, value *handle.Handle) error
	Doc     string
	Closure interface{}
}

func validateSlots(slots []Slot) error {
	for _, s := range slots {
		if s.ID <= 0 {
			return fmt.Errorf("%w: id %d", ErrNegativeSlotID, s.ID)
		}
	}
	return nil
}

func validateMethods(methods []MethodDef) error {
	for _, m := range methods {
		if m.Flags&MethClass != 0 && m.Flags&MethStatic != 0 {
			return fmt.Errorf("%s: %w", m.Name, ErrClassAndStatic)
		}
	}
	return nil
}
