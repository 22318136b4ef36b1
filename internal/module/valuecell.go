// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package module implements module globals as ValueCells: one boxed slot
// per name, shared by every inline cache site that has ever resolved
// through it, with a placeholder state standing in for "this name falls
// through to builtins" so that shadowing or deleting a global can
// invalidate exactly the cache sites that assumed otherwise.
package module

import "github.com/pyrt-lang/pyrt/internal/objval"

// CacheSite is anything that cached a resolution through a ValueCell and
// needs to be told when that resolution is no longer valid (e.g. an
// inline cache in the not-yet-built bytecode interpreter).
type CacheSite interface {
	Invalidate()
}

// dependent is one node in a ValueCell's doubly-linked list of
// registered cache sites, letting Unregister remove a single site in
// O(1) without walking the list.
type dependent struct {
	site       CacheSite
	prev, next *dependent
}

// ValueCell is the one-slot box a module global's name is bound to. The
// cell's identity, not its value, is what a cache site depends on:
// rebinding the same cell's value never invalidates anything, but
// swapping what the cell *means* (placeholder <-> real) does.
type ValueCell struct {
	value objval.Ref
	// placeholder marks a cell that exists only to be watched: its name
	// has no binding in this module, and lookups must fall through to
	// builtins. Created lazily the first time a cache site asks to be
	// notified if that ever changes.
	placeholder bool
	dependents  *dependent
}

// NewValueCell returns a bound cell holding v.
func NewValueCell(v objval.Ref) *ValueCell {
	return &ValueCell{value: v}
}

// Get returns the cell's value and whether the cell is actually bound
// (false for a placeholder, which carries no usable value).
func (c *ValueCell) Get() (objval.Ref, bool) {
	if c.placeholder {
		return 0, false
	}
	return c.value, true
}

// IsPlaceholder reports whether the cell stands in for "no binding here,
// fall through to builtins".
func (c *ValueCell) IsPlaceholder() bool { return c.placeholder }

// Register adds site to c's dependent list, returning a token that
// Unregister can later use to remove exactly this registration.
func (c *ValueCell) Register(site CacheSite) *dependent {
	d := &dependent{site: site, next: c.dependents}
	if c.dependents != nil {
		c.dependents.prev = d
	}
	c.dependents = d
	return d
}

// Unregister removes a previously registered dependent, e.g. when its
// owning cache site is itself discarded before ever being invalidated.
func (c *ValueCell) Unregister(d *dependent) {
	if d.prev != nil {
		d.prev.next = d.next
	} else if c.dependents == d {
		c.dependents = d.next
	}
	if d.next != nil {
		d.next.prev = d.prev
	}
	d.prev, d.next = nil, nil
}

// invalidate notifies every registered dependent that this cell's
// meaning has changed, then clears the list: each site gets notified
// exactly once per transition.
func (c *ValueCell) invalidate() {
	for d := c.dependents; d != nil; d = d.next {
		d.site.Invalidate()
	}
	c.dependents = nil
}
