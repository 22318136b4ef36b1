// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package module

import (
	"errors"

	"github.com/pyrt-lang/pyrt/internal/objval"
)

// ErrNotFound is returned by DeleteGlobal for a name with no real
// binding (a missing entry, or one that is only a placeholder).
var ErrNotFound = errors.New("module: name not found")

// Module is one namespace of global ValueCells, falling through to
// Builtins for names it has no binding for.
type Module struct {
	Name     string
	Builtins *Module
	cells    map[string]*ValueCell
}

// New returns an empty Module. builtins may be nil only for the builtins
// module itself, which has nowhere further to fall through to.
func New(name string, builtins *Module) *Module {
	return &Module{Name: name, Builtins: builtins, cells: make(map[string]*ValueCell)}
}

// Get resolves name: first against this module's own real bindings, then
// (if unset or only a placeholder) against Builtins, recursively.
func (m *Module) Get(name string) (objval.Ref, bool) {
	if cell, ok := m.cells[name]; ok {
		if v, bound := cell.Get(); bound {
			return v, true
		}
	}
	if m.Builtins != nil {
		return m.Builtins.Get(name)
	}
	return 0, false
}

// Cell returns the raw ValueCell for name if one exists — bound or
// placeholder — without falling through to Builtins. A cache site that
// wants to be notified of shadowing/deletion registers against this
// cell directly.
func (m *Module) Cell(name string) (*ValueCell, bool) {
	c, ok := m.cells[name]
	return c, ok
}

// EnsurePlaceholder returns the cell for name, creating an unbound
// placeholder cell if none exists yet. Called by a cache site that
// resolved name through Builtins and wants to be invalidated the moment
// this module starts answering for name itself.
func (m *Module) EnsurePlaceholder(name string) *ValueCell {
	if c, ok := m.cells[name]; ok {
		return c
	}
	c := &ValueCell{placeholder: true}
	m.cells[name] = c
	return c
}

// SetGlobal binds name to v. If name previously resolved to this exact
// cell with a real value, the cell's value is simply overwritten and no
// dependent is invalidated (§4.H: rebinding a name within the same
// module never invalidates caches that already hold that cell, since
// they read its current value on every use). If name was only a
// placeholder — a cache had been watching it in case this module ever
// shadowed builtins — the transition to a real binding invalidates every
// watcher, since the resolution path they assumed (fall through to
// builtins) no longer holds.
func (m *Module) SetGlobal(name string, v objval.Ref) {
	cell, ok := m.cells[name]
	if !ok {
		m.cells[name] = NewValueCell(v)
		return
	}
	wasPlaceholder := cell.placeholder
	cell.value = v
	cell.placeholder = false
	if wasPlaceholder {
		cell.invalidate()
	}
}

// DeleteGlobal removes name's real binding. The cell is downgraded to a
// placeholder rather than dropped outright, so any cache site already
// watching it keeps a valid cell to watch, and invalidated: lookups must
// now fall through to builtins where they previously didn't.
func (m *Module) DeleteGlobal(name string) error {
	cell, ok := m.cells[name]
	if !ok || cell.placeholder {
		return ErrNotFound
	}
	cell.value = 0
	cell.placeholder = true
	cell.invalidate()
	return nil
}

// Len reports the number of real (non-placeholder) bindings, matching
// Python's len(module.__dict__): watcher placeholders are an
// implementation detail invisible to iteration.
func (m *Module) Len() int {
	n := 0
	for _, c := range m.cells {
		if !c.placeholder {
			n++
		}
	}
	return n
}

// Names returns the module's real binding names in no particular order,
// skipping placeholders for the same reason Len does.
func (m *Module) Names() []string {
	names := make([]string, 0, len(m.cells))
	for name, c := range m.cells {
		if !c.placeholder {
			names = append(names, name)
		}
	}
	return names
}
