// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package module

import (
	"testing"

	"github.com/pyrt-lang/pyrt/internal/objval"
)

type countingSite struct{ calls int }

func (s *countingSite) Invalidate() { s.calls++ }

func TestGetFallsThroughToBuiltins(t *testing.T) {
	builtins := New("builtins", nil)
	builtins.SetGlobal("len", objval.SmallInt(1))

	m := New("mymod", builtins)
	v, ok := m.Get("len")
	if !ok || v != objval.SmallInt(1) {
		t.Fatalf("Get(len) = %v, %v, want SmallInt(1), true", v, ok)
	}
}

func TestOwnBindingShadowsBuiltins(t *testing.T) {
	builtins := New("builtins", nil)
	builtins.SetGlobal("x", objval.SmallInt(1))

	m := New("mymod", builtins)
	m.SetGlobal("x", objval.SmallInt(2))

	v, ok := m.Get("x")
	if !ok || v != objval.SmallInt(2) {
		t.Errorf("Get(x) = %v, %v, want SmallInt(2), true", v, ok)
	}
}

func TestSameModuleRebindDoesNotInvalidate(t *testing.T) {
	m := New("mymod", nil)
	m.SetGlobal("x", objval.SmallInt(1))
	cell, _ := m.Cell("x")

	site := &countingSite{}
	cell.Register(site)

	m.SetGlobal("x", objval.SmallInt(2))
	if site.calls != 0 {
		t.Errorf("rebinding an already-real cell invalidated %d dependents, want 0", site.calls)
	}
	v, _ := m.Get("x")
	if v != objval.SmallInt(2) {
		t.Errorf("Get(x) after rebind = %v, want SmallInt(2)", v)
	}
}

func TestPlaceholderShadowingInvalidates(t *testing.T) {
	m := New("mymod", New("builtins", nil))
	cell := m.EnsurePlaceholder("x") // a cache watched x resolve via builtins
	site := &countingSite{}
	cell.Register(site)

	m.SetGlobal("x", objval.SmallInt(5)) // module now shadows builtins for x
	if site.calls != 1 {
		t.Errorf("shadowing a watched placeholder invalidated %d dependents, want 1", site.calls)
	}
	v, ok := m.Get("x")
	if !ok || v != objval.SmallInt(5) {
		t.Errorf("Get(x) after shadowing = %v, %v, want SmallInt(5), true", v, ok)
	}
}

func TestDeleteInvalidatesAndFallsThrough(t *testing.T) {
	builtins := New("builtins", nil)
	builtins.SetGlobal("x", objval.SmallInt(9))
	m := New("mymod", builtins)
	m.SetGlobal("x", objval.SmallInt(1))

	cell, _ := m.Cell("x")
	site := &countingSite{}
	cell.Register(site)

	if err := m.DeleteGlobal("x"); err != nil {
		t.Fatalf("DeleteGlobal: %v", err)
	}
	if site.calls != 1 {
		t.Errorf("delete invalidated %d dependents, want 1", site.calls)
	}
	v, ok := m.Get("x")
	if !ok || v != objval.SmallInt(9) {
		t.Errorf("Get(x) after delete = %v, %v, want fallthrough to builtins SmallInt(9), true", v, ok)
	}
}

func TestDeleteUnknownNameErrors(t *testing.T) {
	m := New("mymod", nil)
	if err := m.DeleteGlobal("nope"); err != ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDeleteOfPlaceholderErrors(t *testing.T) {
	m := New("mymod", nil)
	m.EnsurePlaceholder("x")
	if err := m.DeleteGlobal("x"); err != ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestLenAndNamesSkipPlaceholders(t *testing.T) {
	m := New("mymod", nil)
	m.SetGlobal("a", objval.SmallInt(1))
	m.SetGlobal("b", objval.SmallInt(2))
	m.EnsurePlaceholder("c") // watched but unbound

	if got := m.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}
	names := m.Names()
	if len(names) != 2 {
		t.Errorf("Names = %v, want 2 entries", names)
	}
	for _, n := range names {
		if n == "c" {
			t.Errorf("Names included placeholder %q", n)
		}
	}
}

func TestUnregisterStopsFutureInvalidation(t *testing.T) {
	m := New("mymod", nil)
	cell := m.EnsurePlaceholder("x")
	site := &countingSite{}
	token := cell.Register(site)
	cell.Unregister(token)

	m.SetGlobal("x", objval.SmallInt(1))
	if site.calls != 0 {
		t.Errorf("unregistered site was invalidated %d times, want 0", site.calls)
	}
}
