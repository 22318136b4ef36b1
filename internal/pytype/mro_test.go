// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pytype

import (
	"errors"
	"testing"

	"github.com/pyrt-lang/pyrt/internal/layout"
)

func newBuilder() *Builder {
	b := NewBuilder(layout.NewRegistry())
	b.BootstrapObjectType(1)
	b.BootstrapTypeType(2)
	return b
}

func mustBuild(t *testing.T, b *Builder, name string, bases []*Type) *Type {
	t.Helper()
	typ, err := b.Build(Spec{Name: name, Ref: 100, Bases: bases, BaseType: true})
	if err != nil {
		t.Fatalf("Build(%s): %v", name, err)
	}
	return typ
}

// TestDiamondInheritanceMRO mirrors Python's classic diamond:
//
//	object
//	  /  \
//	 B    C
//	  \  /
//	   D
//
// MRO(D) = [D, B, C, object].
func TestDiamondInheritanceMRO(t *testing.T) {
	b := newBuilder()
	bType := mustBuild(t, b, "B", []*Type{b.ObjectType})
	cType := mustBuild(t, b, "C", []*Type{b.ObjectType})
	dType := mustBuild(t, b, "D", []*Type{bType, cType})

	want := []*Type{dType, bType, cType, b.ObjectType}
	if len(dType.MRO) != len(want) {
		t.Fatalf("MRO length = %d, want %d (%v)", len(dType.MRO), len(want), dType.MRO)
	}
	for i, typ := range want {
		if dType.MRO[i] != typ {
			t.Errorf("MRO[%d] = %s, want %s", i, dType.MRO[i].Name, typ.Name)
		}
	}
}

// TestInconsistentMROFails is CPython's canonical unresolvable case:
// class X(A, C), class Y(C, A), class Z(X, Y) — bases list A/C in
// contradictory order.
func TestInconsistentMROFails(t *testing.T) {
	b := newBuilder()
	aType := mustBuild(t, b, "A", []*Type{b.ObjectType})
	cType := mustBuild(t, b, "C", []*Type{b.ObjectType})

	xType := mustBuild(t, b, "X", []*Type{aType, cType})
	yType := mustBuild(t, b, "Y", []*Type{cType, aType})

	_, err := b.Build(Spec{Name: "Z", Ref: 200, Bases: []*Type{xType, yType}, BaseType: true})
	if err == nil {
		t.Fatalf("Build(Z) succeeded, want an inconsistent-MRO error")
	}
	var mroErr *MROError
	if !errors.As(err, &mroErr) {
		t.Errorf("error = %v, want *MROError", err)
	}
}

func TestLinearMROSingleInheritance(t *testing.T) {
	b := newBuilder()
	aType := mustBuild(t, b, "A", []*Type{b.ObjectType})
	bbType := mustBuild(t, b, "B", []*Type{aType})

	want := []*Type{bbType, aType, b.ObjectType}
	for i, typ := range want {
		if bbType.MRO[i] != typ {
			t.Errorf("MRO[%d] = %s, want %s", i, bbType.MRO[i].Name, typ.Name)
		}
	}
}

func TestIsSubtypeOf(t *testing.T) {
	b := newBuilder()
	aType := mustBuild(t, b, "A", []*Type{b.ObjectType})
	bbType := mustBuild(t, b, "B", []*Type{aType})

	if !IsSubtypeOf(bbType, aType) {
		t.Errorf("B is not reported as a subtype of A")
	}
	if !IsSubtypeOf(bbType, b.ObjectType) {
		t.Errorf("B is not reported as a subtype of object")
	}
	if IsSubtypeOf(aType, bbType) {
		t.Errorf("A is reported as a subtype of B")
	}
}
