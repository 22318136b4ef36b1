// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package structseq implements a named-tuple-like fixed-layout sequence
// type: a small, fixed number of fields addressable both positionally
// (as a tuple) and by name (as an attribute), the representation
// sys.exc_info() and similar builtins return without paying for a full
// dict-backed instance.
package structseq

import (
	"fmt"

	"github.com/pyrt-lang/pyrt/internal/objval"
	"github.com/pyrt-lang/pyrt/internal/pytype"
	"github.com/pyrt-lang/pyrt/internal/slotbuild"
)

// Desc describes one structseq type: its field names, in declaration
// order. NumVisible is the count of leading fields that participate in
// len() and positional indexing (CPython's "n_in_sequence"); the
// remaining fields are attribute-only, reachable by name but not by
// index or length — the same split PyStructSequence_Desc encodes with
// n_in_sequence versus n_fields. Type is nil until NewType builds it.
type Desc struct {
	TypeName   string
	Fields     []string
	NumVisible int
	Type       *pytype.Type
}

// NewType builds the pytype.Type backing desc through the slot-table
// builder (internal/slotbuild.FromSpec) — the same construction path any
// other native extension type goes through — and records the result on
// desc.Type. A structseq type declares one read-only TObject member per
// field and no TPGetset/dict slot, so the resulting type never gets
// FlagHasDict: PyStructSequence_NewType's documented contract is
// instances that carry no __dict__, and this construction path is what
// demonstrates the slot-table builder can produce exactly that kind of
// type, not just heap-dict-backed ones.
func NewType(b *pytype.Builder, ref objval.Ref, desc *Desc, bases []*pytype.Type, metaclass *pytype.Type) (*slotbuild.Built, error) {
	members := make([]slotbuild.MemberDef, len(desc.Fields))
	for i, name := range desc.Fields {
		members[i] = slotbuild.MemberDef{Name: name, Type: slotbuild.TObject, Offset: i, ReadOnly: true}
	}
	built, err := slotbuild.FromSpec(b, ref, slotbuild.Spec{
		Name:      desc.TypeName,
		BasicSize: int32(len(desc.Fields)),
		Slots: []slotbuild.Slot{
			{ID: slotbuild.TPMembers, Pointer: members},
			{ID: slotbuild.TPDoc, Pointer: fmt.Sprintf("a structseq with %d fields (%d visible)", len(desc.Fields), desc.NumVisible)},
		},
	}, bases, metaclass)
	if err != nil {
		return nil, err
	}
	desc.Type = built.Type
	return built, nil
}

// Instance is one value of a structseq type: a fixed-size, fully
// populated field vector addressed through its Desc.
type Instance struct {
	Desc   *Desc
	Values []objval.Ref
}

// New builds an Instance from values, one per field in Desc.Fields
// order. Passing the wrong number of values is a construction-time
// programming error, not a runtime-recoverable one, matching how a
// structseq type's builder always supplies every field at once.
func New(desc *Desc, values []objval.Ref) (*Instance, error) {
	if len(values) != len(desc.Fields) {
		return nil, fmt.Errorf("structseq: %s expects %d fields, got %d",
			desc.TypeName, len(desc.Fields), len(values))
	}
	return &Instance{Desc: desc, Values: append([]objval.Ref(nil), values...)}, nil
}

// Len reports the sequence length exposed to len() and positional
// indexing: only the visible fields count, mirroring
// PyStructSequence_GetItem's num_in_sequence.
func (in *Instance) Len() int { return in.Desc.NumVisible }

// GetItem returns the field at position idx within the full field
// vector (visible fields followed by attribute-only ones), the same
// combined index space PyStructSequence_GetItem indexes into.
func (in *Instance) GetItem(idx int) (objval.Ref, error) {
	if idx < 0 || idx >= len(in.Values) {
		return 0, fmt.Errorf("structseq: index %d out of range for %s (len %d)",
			idx, in.Desc.TypeName, len(in.Values))
	}
	return in.Values[idx], nil
}

// SetItem overwrites the field at position idx, the Go analogue of
// PyStructSequence_SetItem — used only while a structseq value is being
// built, never by user-visible mutation (these types are immutable once
// constructed, like every CPython structseq instance).
func (in *Instance) SetItem(idx int, value objval.Ref) error {
	if idx < 0 || idx >= len(in.Values) {
		return fmt.Errorf("structseq: index %d out of range for %s (len %d)",
			idx, in.Desc.TypeName, len(in.Values))
	}
	in.Values[idx] = value
	return nil
}

// GetAttr looks a field up by name, covering both visible and
// attribute-only fields — the descriptor each named field installs on
// the structseq's type, modeled here directly rather than by going
// through a separate descriptor object per field.
func (in *Instance) GetAttr(name string) (objval.Ref, bool) {
	for i, f := range in.Desc.Fields {
		if f == name {
			return in.Values[i], true
		}
	}
	return 0, false
}
