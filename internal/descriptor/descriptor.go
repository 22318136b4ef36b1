// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package descriptor implements the descriptor protocol (tp_descr_get /
// tp_descr_set) over the handles every native entry point already
// operates on, wiring a type's TPGetset slot table (internal/slotbuild)
// into ordinary attribute lookup instead of leaving it an inert table
// of function pointers.
package descriptor

import (
	"fmt"

	"github.com/pyrt-lang/pyrt/internal/handle"
	"github.com/pyrt-lang/pyrt/internal/objval"
	"github.com/pyrt-lang/pyrt/internal/slotbuild"
)

// Descriptor is the runtime object one TPGetset entry installs in a
// type's class dict: a getter, an optional setter, and the identity
// (Ref) it was installed under, so attribute lookup can tell a
// descriptor apart from an ordinary stored value.
type Descriptor struct {
	Ref  objval.Ref
	Name string
	Get  func(self *handle.Handle) (*handle.Handle, error)
	Set  func(self, value *handle.Handle) error
	Doc  string
}

// FromGetSet adapts one slotbuild.GetSetDef into a Descriptor under the
// heap identity ref, the same "give the native table entry a real Ref so
// it can live in a type's Dict" step PyDescr_NewGetSet performs for a
// PyGetSetDef (UNIMPLEMENTED in the source this spec was distilled from,
// hence this fills in concrete behavior rather than adapting existing
// logic).
func FromGetSet(ref objval.Ref, gs slotbuild.GetSetDef) *Descriptor {
	return &Descriptor{Ref: ref, Name: gs.Name, Get: gs.Get, Set: gs.Set, Doc: gs.Doc}
}

// IsDataDescriptor reports whether d has a setter. CPython's attribute
// lookup consults a type's MRO before an instance's own dict only for
// data descriptors (get+set, or set-only); a get-only ("non-data")
// descriptor is instead shadowed by an equally-named instance attribute.
func (d *Descriptor) IsDataDescriptor() bool { return d.Set != nil }

// ErrNotWritable is returned by Set on a descriptor with no setter,
// CPython's "attribute '...' of '...' objects is not writable"
// AttributeError.
type ErrNotWritable struct{ Name string }

func (e *ErrNotWritable) Error() string {
	return fmt.Sprintf("attribute %q is read-only", e.Name)
}

// Registry maps a descriptor's heap identity to its native behavior,
// the side table a type's Dict entries point into — mirroring how
// pytype.Type.NativeSlots keeps native function pointers in a side table
// keyed by an int rather than inside the tagged object representation
// itself.
type Registry struct {
	byRef map[objval.Ref]*Descriptor
}

// NewRegistry returns an empty descriptor Registry.
func NewRegistry() *Registry {
	return &Registry{byRef: make(map[objval.Ref]*Descriptor)}
}

// Register installs d under its own Ref.
func (r *Registry) Register(d *Descriptor) {
	r.byRef[d.Ref] = d
}

// Lookup returns the Descriptor previously registered under ref, if any.
func (r *Registry) Lookup(ref objval.Ref) (*Descriptor, bool) {
	d, ok := r.byRef[ref]
	return d, ok
}

// Get invokes d's getter on self, the tp_descr_get call CPython's
// attribute lookup makes once it has found a descriptor in the MRO.
func Get(d *Descriptor, self *handle.Handle) (*handle.Handle, error) {
	if d.Get == nil {
		return nil, fmt.Errorf("descriptor: %q has no getter", d.Name)
	}
	return d.Get(self)
}

// Set invokes d's setter on self, the tp_descr_set call ordinary
// attribute assignment makes once it has found a data descriptor in the
// MRO. A nil value models the "del obj.attr" deletion form, exactly as
// CPython passes a nullptr value through PyObject_GenericSetAttr's
// tp_descr_set path for delattr.
func Set(d *Descriptor, self, value *handle.Handle) error {
	if d.Set == nil {
		return &ErrNotWritable{Name: d.Name}
	}
	return d.Set(self, value)
}
