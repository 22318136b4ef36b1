// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slotbuild

import (
	"errors"
	"testing"

	"github.com/pyrt-lang/pyrt/internal/handle"
	"github.com/pyrt-lang/pyrt/internal/layout"
	"github.com/pyrt-lang/pyrt/internal/pytype"
	"github.com/pyrt-lang/pyrt/internal/trampoline"
)

func newTestBuilder() *pytype.Builder {
	b := pytype.NewBuilder(layout.NewRegistry())
	b.BootstrapObjectType(1)
	b.BootstrapTypeType(2)
	return b
}

func dummyFunc(self *handle.Handle, call *trampoline.Call) (*handle.Handle, error) {
	return &handle.Handle{}, nil
}

func TestFromSpecBuildsReadyType(t *testing.T) {
	b := newTestBuilder()
	built, err := FromSpec(b, 10, Spec{
		Name:      "Point",
		BasicSize: 16,
		Slots: []Slot{
			{ID: TPMembers, Pointer: []MemberDef{
				{Name: "x", Type: TObject, Offset: 0},
				{Name: "y", Type: TObjectEx, Offset: 1},
			}},
		},
	}, nil, nil)
	if err != nil {
		t.Fatalf("FromSpec: %v", err)
	}
	if !built.Type.Flags.Has(pytype.FlagReady) {
		t.Errorf("built type is not marked ready")
	}
	if got, ok := built.Type.Instance.Lookup("x"); !ok || got.Offset != 0 {
		t.Errorf("member x not installed at offset 0: %v, %v", got, ok)
	}
	if got, ok := built.Type.Instance.Lookup("y"); !ok || got.Offset != 1 {
		t.Errorf("member y not installed at offset 1: %v, %v", got, ok)
	}
}

func TestDottedSpecNameSplitsModuleAndName(t *testing.T) {
	b := newTestBuilder()
	built, err := FromSpec(b, 13, Spec{Name: "mymodule.Widget"}, nil, nil)
	if err != nil {
		t.Fatalf("FromSpec: %v", err)
	}
	if built.Type.Name != "Widget" {
		t.Errorf("Name = %q, want %q", built.Type.Name, "Widget")
	}
	if built.Type.Module != "mymodule" {
		t.Errorf("Module = %q, want %q", built.Type.Module, "mymodule")
	}
}

func TestNegativeSlotIDRejected(t *testing.T) {
	b := newTestBuilder()
	_, err := FromSpec(b, 11, Spec{Name: "Bad", Slots: []Slot{{ID: -1, Pointer: trampoline.Func(dummyFunc)}}}, nil, nil)
	if err == nil {
		t.Fatalf("negative slot id: want an error")
	}
}

func TestMethodClassAndStaticRejected(t *testing.T) {
	b := newTestBuilder()
	_, err := FromSpec(b, 12, Spec{
		Name: "Bad",
		Slots: []Slot{{ID: TPMethods, Pointer: []MethodDef{
			{Name: "m", Flags: MethClass | MethStatic, Impl: dummyFunc},
		}}},
	}, nil, nil)
	if !errors.Is(err, ErrClassAndStatic) {
		t.Errorf("error = %v, want ErrClassAndStatic", err)
	}
}

func TestRichcompareHashPairInheritedTogether(t *testing.T) {
	b := newTestBuilder()
	base, err := FromSpec(b, 20, Spec{
		Name: "Base",
		Flags: FlagBaseType,
		Slots: []Slot{
			{ID: TPRichcompare, Pointer: trampoline.Func(dummyFunc)},
			{ID: TPHash, Pointer: trampoline.Func(dummyFunc)},
		},
	}, nil, nil)
	if err != nil {
		t.Fatalf("FromSpec(Base): %v", err)
	}

	sub, err := FromSpec(b, 21, Spec{
		Name: "Sub",
		Slots: []Slot{
			{ID: TPRichcompare, Pointer: trampoline.Func(dummyFunc)},
			// tp_hash deliberately omitted: defining tp_richcompare alone
			// keeps Base's tp_hash from being inherited.
		},
	}, []*pytype.Type{base.Type}, nil)
	if err != nil {
		t.Fatalf("FromSpec(Sub): %v", err)
	}
	if _, ok := sub.Type.NativeSlots[int(TPHash)]; ok {
		t.Errorf("Sub inherited tp_hash even though it defines its own tp_richcompare")
	}
}

func TestTPFreeNotInheritedAcrossGCMismatch(t *testing.T) {
	b := newTestBuilder()
	base, err := FromSpec(b, 30, Spec{
		Name:  "GCBase",
		Flags: FlagBaseType | FlagHaveGC,
		Slots: []Slot{{ID: TPFree, Pointer: trampoline.Func(dummyFunc)}},
	}, nil, nil)
	if err != nil {
		t.Fatalf("FromSpec(GCBase): %v", err)
	}

	sub, err := FromSpec(b, 31, Spec{Name: "NonGCSub"}, []*pytype.Type{base.Type}, nil)
	if err != nil {
		t.Fatalf("FromSpec(NonGCSub): %v", err)
	}
	if _, ok := sub.Type.NativeSlots[int(TPFree)]; ok {
		t.Errorf("non-GC subtype inherited a GC base's tp_free")
	}
}

func TestTPFreeInheritedWhenGCMatches(t *testing.T) {
	b := newTestBuilder()
	base, err := FromSpec(b, 40, Spec{
		Name:  "GCBase2",
		Flags: FlagBaseType | FlagHaveGC,
		Slots: []Slot{{ID: TPFree, Pointer: trampoline.Func(dummyFunc)}},
	}, nil, nil)
	if err != nil {
		t.Fatalf("FromSpec(GCBase2): %v", err)
	}

	sub, err := FromSpec(b, 41, Spec{Name: "GCSub", Flags: FlagHaveGC}, []*pytype.Type{base.Type}, nil)
	if err != nil {
		t.Fatalf("FromSpec(GCSub): %v", err)
	}
	if _, ok := sub.Type.NativeSlots[int(TPFree)]; !ok {
		t.Errorf("GC subtype did not inherit GC base's tp_free")
	}
}
