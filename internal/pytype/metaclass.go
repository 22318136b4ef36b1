// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pytype

import "errors"

// ErrMetaclassConflict is returned by ResolveMetaclass when no single
// candidate metaclass is a subtype of every other candidate (CPython:
// "metaclass conflict: the metaclass of a derived class must be a
// (non-strict) subclass of the metaclasses of all its bases").
var ErrMetaclassConflict = errors.New("pytype: metaclass conflict")

// ResolveMetaclass picks the winning metaclass for a new class statement,
// given an explicitly requested metaclass (nil if none was given) and the
// direct bases' own metaclasses. The winner is the most derived type among
// the candidate set; it is an error if the candidates are not totally
// ordered by subtyping.
func ResolveMetaclass(explicit *Type, bases []*Type, typeType *Type) (*Type, error) {
	candidates := make([]*Type, 0, len(bases)+1)
	if explicit != nil {
		candidates = append(candidates, explicit)
	}
	for _, b := range bases {
		mc := b.Metaclass
		if mc == nil {
			mc = typeType
		}
		candidates = append(candidates, mc)
	}
	if len(candidates) == 0 {
		return typeType, nil
	}

	winner := candidates[0]
	for _, c := range candidates[1:] {
		switch {
		case IsSubtypeOf(c, winner):
			// c is at least as derived; keep exploring with it as the
			// new tentative winner only if it's strictly more derived.
			if c != winner {
				winner = c
			}
		case IsSubtypeOf(winner, c):
			// winner already dominates c; nothing changes.
		default:
			return nil, ErrMetaclassConflict
		}
	}

	// Final check: winner must dominate every candidate (catches the case
	// where an earlier pairwise comparison succeeded only locally).
	for _, c := range candidates {
		if !IsSubtypeOf(winner, c) {
			return nil, ErrMetaclassConflict
		}
	}
	return winner, nil
}
