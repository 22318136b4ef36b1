// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package layout implements the hidden-class (Layout) attribute system:
// an immutable, shared DAG of instance shapes reached by append-only
// add/delete transitions, giving O(number of attributes) — in practice
// O(1) amortized, since the chain is short — attribute lookup without a
// per-instance dictionary.
//
// Add/delete edges are kept as small, linearly-scanned slices rather than
// maps (spec.md §9 "Design Notes": most types have very few distinct
// successor shapes, so a flat vector wins on locality over a hash map).
package layout

import (
	"errors"

	"github.com/pyrt-lang/pyrt/internal/objval"
)

// Kind distinguishes where an attribute's value is stored.
type Kind uint8

const (
	InObject Kind = iota
	Overflow
)

func (k Kind) String() string {
	if k == InObject {
		return "in-object"
	}
	return "overflow"
}

// AttributeInfo describes one named slot in a Layout.
type AttributeInfo struct {
	Name     string
	Offset   int
	Kind     Kind
	Mutable  bool
	ReadOnly bool
	// Deleted marks an in-object slot as tombstoned: its offset is kept
	// (so older Layouts' cached offsets stay valid) but the name no
	// longer resolves.
	Deleted bool
}

type edge struct {
	name string
	to   *Layout
}

// Layout is one immutable hidden class. Layouts form a persistent DAG:
// once created a Layout is never mutated except to append new outgoing
// add/delete edges (the edge target itself is never altered).
type Layout struct {
	id    objval.LayoutID
	owner objval.Ref // the owning Type, a heap object (package pytype)

	inObject []AttributeInfo
	overflow []AttributeInfo

	additions []edge
	deletions []edge
}

// ID returns the Layout's global identifier.
func (l *Layout) ID() objval.LayoutID { return l.id }

// Owner returns the Type this Layout was built for.
func (l *Layout) Owner() objval.Ref { return l.owner }

// InObjectAttributes returns the Layout's in-object attribute list, most
// recently appended last. The returned slice must not be mutated.
func (l *Layout) InObjectAttributes() []AttributeInfo { return l.inObject }

// OverflowAttributes returns the Layout's overflow attribute list. The
// returned slice must not be mutated.
func (l *Layout) OverflowAttributes() []AttributeInfo { return l.overflow }

// NumInObjectAttributes is the number of in-object slots, including
// tombstoned ones (their storage is never reclaimed).
func (l *Layout) NumInObjectAttributes() int { return len(l.inObject) }

// OverflowSlotOffset is the in-object offset at which the overflow tail
// pointer itself is stored, i.e. one past the last in-object attribute.
func (l *Layout) OverflowSlotOffset() int { return len(l.inObject) }

// InstanceWordSize is the number of Ref-sized in-object slots an instance
// of this Layout needs, including the overflow pointer slot if any
// overflow attribute has ever existed.
func (l *Layout) InstanceWordSize() int {
	n := len(l.inObject)
	if len(l.overflow) > 0 || hasOverflowEdge(l) {
		n++
	}
	return n
}

func hasOverflowEdge(l *Layout) bool {
	// Even a Layout with no overflow attributes of its own reserves the
	// overflow slot once any sibling transition has used it, so that an
	// instance can always acquire one without being re-imaged (L3).
	return len(l.additions) > 0 || len(l.overflow) > 0
}

// Lookup implements spec.md §4.C attribute lookup: in-object attributes
// first, then overflow, first match wins.
func (l *Layout) Lookup(name string) (AttributeInfo, bool) {
	for _, a := range l.inObject {
		if a.Name == name && !a.Deleted {
			return a, true
		}
	}
	for _, a := range l.overflow {
		if a.Name == name {
			return a, true
		}
	}
	return AttributeInfo{}, false
}

// Registry owns LayoutID assignment: every Layout is created through it,
// but it keeps no record of the Layouts it has created, so a Layout stays
// alive only while its Type or module reaches it (invariant L4 is not
// enforced by this package).
type Registry struct {
	nextID objval.LayoutID
}

// NewRegistry returns a Registry whose LayoutIDs start at
// objval.FirstHeapLayoutID, immediately after the reserved immediate
// range.
func NewRegistry() *Registry {
	return &Registry{nextID: objval.FirstHeapLayoutID}
}

func (r *Registry) alloc() objval.LayoutID {
	id := r.nextID
	r.nextID++
	return id
}

// NewRootLayout creates a fresh Layout with no attributes, owned by
// owner. Used by package pytype when building a new Type's base shape.
func (r *Registry) NewRootLayout(owner objval.Ref) *Layout {
	return &Layout{id: r.alloc(), owner: owner}
}

// WithInObjectAttributes returns a new root-equivalent Layout that starts
// with the given in-object attributes already declared (used when a type
// is built from a slot table's member list, package slotbuild). The
// attributes are assumed fixed and non-overflowing.
func (r *Registry) WithInObjectAttributes(owner objval.Ref, attrs []AttributeInfo) *Layout {
	cp := append([]AttributeInfo(nil), attrs...)
	return &Layout{id: r.alloc(), owner: owner, inObject: cp}
}

// ErrAttributeNotFound is returned by Delete when name isn't present.
var ErrAttributeNotFound = errors.New("layout: attribute not found")

// Add returns the Layout reached by adding name to l's overflow list,
// reusing a cached edge if this exact addition has been performed before
// from l (invariants L1/L2: DAG sharing and determinism). The caller must
// already know name is absent from l (spec.md §4.C: the add transition is
// only taken when instance attribute-set lookup misses).
func (r *Registry) Add(l *Layout, name string) *Layout {
	for _, e := range l.additions {
		if e.name == name {
			return e.to
		}
	}
	next := &Layout{
		id:       r.alloc(),
		owner:    l.owner,
		inObject: l.inObject,
		overflow: append(append([]AttributeInfo(nil), l.overflow...), AttributeInfo{
			Name:    name,
			Offset:  len(l.overflow),
			Kind:    Overflow,
			Mutable: true,
		}),
	}
	l.additions = append(l.additions, edge{name, next})
	return next
}

// SetTransition implements the full "attribute set" operation of
// spec.md §4.C: if name already resolves on l, the instance stays on l and
// the caller writes in place at the returned slot; otherwise l transitions
// to a new Layout with name appended to overflow.
func (r *Registry) SetTransition(l *Layout, name string) (next *Layout, slot AttributeInfo, created bool) {
	if info, ok := l.Lookup(name); ok {
		return l, info, false
	}
	next = r.Add(l, name)
	slot, _ = next.Lookup(name)
	return next, slot, true
}

// Delete returns the Layout reached by deleting name from l, per
// spec.md §4.C: in-object attributes are tombstoned in place (their slot
// offset is preserved so older cache sites stay valid, invariant L3);
// overflow attributes are removed and the remaining overflow entries
// compact down to stay contiguous.
func (r *Registry) Delete(l *Layout, name string) (*Layout, error) {
	info, ok := l.Lookup(name)
	if !ok {
		return nil, ErrAttributeNotFound
	}
	for _, e := range l.deletions {
		if e.name == name {
			return e.to, nil
		}
	}

	var next *Layout
	if info.Kind == InObject {
		newInObject := append([]AttributeInfo(nil), l.inObject...)
		for i := range newInObject {
			if newInObject[i].Name == name {
				newInObject[i] = AttributeInfo{
					Offset:  newInObject[i].Offset,
					Kind:    InObject,
					Deleted: true,
				}
				break
			}
		}
		next = &Layout{id: r.alloc(), owner: l.owner, inObject: newInObject, overflow: l.overflow}
	} else {
		newOverflow := make([]AttributeInfo, 0, len(l.overflow))
		for _, a := range l.overflow {
			if a.Name == name {
				continue
			}
			if a.Offset > info.Offset {
				a.Offset--
			}
			newOverflow = append(newOverflow, a)
		}
		next = &Layout{id: r.alloc(), owner: l.owner, inObject: l.inObject, overflow: newOverflow}
	}

	l.deletions = append(l.deletions, edge{name, next})
	return next, nil
}
