// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package descriptor

import (
	"errors"
	"testing"

	"github.com/pyrt-lang/pyrt/internal/handle"
	"github.com/pyrt-lang/pyrt/internal/slotbuild"
)

func TestFromGetSetCarriesFieldsAcross(t *testing.T) {
	gs := slotbuild.GetSetDef{
		Name: "x",
		Get:  func(self *handle.Handle) (*handle.Handle, error) { return self, nil },
		Doc:  "the x coordinate",
	}
	d := FromGetSet(7, gs)
	if d.Ref != 7 || d.Name != "x" || d.Doc != "the x coordinate" {
		t.Errorf("FromGetSet did not carry fields across: %+v", d)
	}
	if d.IsDataDescriptor() {
		t.Error("a getter-only descriptor must not be a data descriptor")
	}
}

func TestIsDataDescriptorTrueWithSetter(t *testing.T) {
	d := &Descriptor{
		Name: "x",
		Get:  func(self *handle.Handle) (*handle.Handle, error) { return self, nil },
		Set:  func(self, value *handle.Handle) error { return nil },
	}
	if !d.IsDataDescriptor() {
		t.Error("a descriptor with a setter must be a data descriptor")
	}
}

func TestGetInvokesGetter(t *testing.T) {
	table := handle.NewTable()
	self := table.NewReference(1)
	want := table.NewReference(2)
	d := &Descriptor{Name: "x", Get: func(*handle.Handle) (*handle.Handle, error) { return want, nil }}

	got, err := Get(d, self)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != want {
		t.Errorf("Get returned %v, want %v", got, want)
	}
}

func TestSetOnReadOnlyDescriptorErrors(t *testing.T) {
	table := handle.NewTable()
	self := table.NewReference(1)
	value := table.NewReference(2)
	d := &Descriptor{Name: "x", Get: func(*handle.Handle) (*handle.Handle, error) { return self, nil }}

	err := Set(d, self, value)
	var notWritable *ErrNotWritable
	if !errors.As(err, &notWritable) {
		t.Fatalf("Set on read-only descriptor: got %v, want *ErrNotWritable", err)
	}
}

func TestSetInvokesSetter(t *testing.T) {
	table := handle.NewTable()
	self := table.NewReference(1)
	value := table.NewReference(2)

	var gotSelf, gotValue *handle.Handle
	d := &Descriptor{
		Name: "x",
		Get:  func(*handle.Handle) (*handle.Handle, error) { return self, nil },
		Set: func(s, v *handle.Handle) error {
			gotSelf, gotValue = s, v
			return nil
		},
	}
	if err := Set(d, self, value); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if gotSelf != self || gotValue != value {
		t.Errorf("Set called with (%v, %v), want (%v, %v)", gotSelf, gotValue, self, value)
	}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	d := &Descriptor{Ref: 42, Name: "x"}
	r.Register(d)

	got, ok := r.Lookup(42)
	if !ok || got != d {
		t.Errorf("Lookup(42) = (%v, %v), want (%v, true)", got, ok, d)
	}
	if _, ok := r.Lookup(99); ok {
		t.Error("Lookup(99) should not find anything")
	}
}
