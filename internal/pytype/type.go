// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pytype implements the Type object: method resolution order via
// C3 linearization, metaclass resolution, and the instance Layout a new
// type's instances are built from.
package pytype

import (
	"github.com/pyrt-lang/pyrt/internal/layout"
	"github.com/pyrt-lang/pyrt/internal/objval"
	"github.com/pyrt-lang/pyrt/internal/trampoline"
)

// Flag bits describe fixed, never-recomputed facts about a Type, set once
// at construction time.
type Flag uint32

const (
	// FlagBaseType means instances of this type may be used as a base
	// class (the slot-table equivalent of Py_TPFLAGS_BASETYPE).
	FlagBaseType Flag = 1 << iota
	// FlagHasDict means instances carry overflow attribute storage.
	FlagHasDict
	// FlagIsAbstract means the type cannot be instantiated directly.
	FlagIsAbstract
	// FlagHeapType means the type itself was allocated on the managed
	// heap (as opposed to a static builtin type descriptor).
	FlagHeapType
	// FlagReady means construction finished successfully and the Type is
	// safe to use for MRO lookup and instantiation.
	FlagReady
	// FlagHaveGC means instances of this type are tracked by the cyclic
	// collector's root-scan pass (the slot-table analogue of
	// Py_TPFLAGS_HAVE_GC), which constrains which base's tp_free a
	// subtype may inherit.
	FlagHaveGC
)

func (f Flag) Has(bit Flag) bool { return f&bit != 0 }

// inheritableFlags are the "subclass-of-X" bits spec.md §4.D says propagate
// from bases via bitwise OR. FlagBaseType and FlagReady describe this
// type's own construction, not anything inherited, and are excluded.
const inheritableFlags = FlagHasDict | FlagIsAbstract | FlagHeapType | FlagHaveGC

// Type is the runtime representation of a Python class: its name, bases,
// linearized MRO, instance Layout, and owning metaclass.
type Type struct {
	Name      string
	Ref       objval.Ref // this Type's own heap identity, once allocated
	Metaclass *Type

	Bases []*Type
	MRO   []*Type // linearized, most-derived first, ending in object

	// Module and QualName back __module__ and __qualname__; BasicSize
	// and ItemSize mirror tp_basicsize/tp_itemsize, the fixed and
	// per-element instance sizes a slot-table-built type declares.
	Module    string
	QualName  string
	BasicSize int32
	ItemSize  int32

	// Instance is the root Layout new instances of this type start from.
	Instance *Layout
	// BuiltinBase is the LayoutID of the most-derived ancestor that
	// supplies a native representation (e.g. the int, list, or dict
	// storage shape); instances share that representation even though
	// they may add arbitrary further Python-level attributes.
	BuiltinBase objval.LayoutID

	Flags Flag

	// NativeSlots holds this type's effective tp_*-style native function
	// pointers, keyed by the defining package's own slot-id space (an
	// int so package pytype need not depend on package slotbuild).
	// Populated by whichever builder constructed the type; nil for types
	// with no native behaviors of their own.
	NativeSlots map[int]trampoline.Func

	// Dict holds the type's own class-level attributes (methods,
	// classmethods, descriptors), keyed by name. Shared across all
	// instances, unlike per-instance overflow storage.
	Dict map[string]objval.Ref
}

// Layout is a local alias kept for readability in this package's exported
// surface; the type itself lives in package layout.
type Layout = layout.Layout

// IsSubtypeOf reports whether base appears in sub's MRO, i.e. whether base
// is sub or one of sub's ancestors — the direction matches CPython's
// PyType_IsSubtype(a, b): "is a a subtype of b".
func IsSubtypeOf(sub, base *Type) bool {
	for _, t := range sub.MRO {
		if t == base {
			return true
		}
	}
	return false
}

// LookupAttribute walks the MRO in order and returns the first class-level
// attribute named name, implementing ordinary (non-instance) attribute
// lookup for the type itself.
func (t *Type) LookupAttribute(name string) (objval.Ref, bool) {
	for _, cls := range t.MRO {
		if v, ok := cls.Dict[name]; ok {
			return v, true
		}
	}
	return 0, false
}
