// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slotbuild

import (
	"fmt"
	"strings"

	"github.com/pyrt-lang/pyrt/internal/layout"
	"github.com/pyrt-lang/pyrt/internal/objval"
	"github.com/pyrt-lang/pyrt/internal/pytype"
	"github.com/pyrt-lang/pyrt/internal/trampoline"
)

// NativeBehaviors holds the tp_* function-pointer slots extracted from a
// Spec, indexed by SlotID, for the caller (the not-yet-built bytecode/call
// layer) to invoke when dispatching special methods. This package only
// validates and stores them; it never calls them.
type NativeBehaviors map[SlotID]trampoline.Func

// Built is the result of building a type from a Spec: the constructed
// Type plus its extracted native behaviors and descriptor tables, kept
// separate from pytype.Type itself so package pytype stays free of any
// slot-table-specific vocabulary.
type Built struct {
	Type      *pytype.Type
	Behaviors NativeBehaviors
	Members   []MemberDef
	GetSets   []GetSetDef
	Doc       string
}

// richcompareHashPair lists the two slots CPython inherits only together:
// a type that defines either one inherits neither from its bases, so a
// type with a custom tp_richcompare but no tp_hash never silently picks
// up a base's tp_hash. A type that defines neither inherits both.
var richcompareHashPair = [2]SlotID{TPRichcompare, TPHash}

// shadowGroups lists slot pairs where defining either member means the
// type owns that dunder group outright: the other slot is never filled in
// from a base. When the type defines neither, only the first member a
// base supplies is inherited, unlike richcompareHashPair, which inherits
// both.
// Mirrors CPython's tp_getattr/tp_getattro (and tp_setattr/tp_setattro)
// pairing: a type with a custom two-argument tp_getattr never inherits a
// base's tp_getattro, and vice versa.
var shadowGroups = [][2]SlotID{
	{TPGetattr, TPGetattro},
	{TPSetattr, TPSetattro},
}

// specialCasedSlots lists every slot a more specific inheritance rule
// already decides (filled or deliberately left unset); inheritRemainingSlots
// must not second-guess them.
var specialCasedSlots = func() map[SlotID]bool {
	m := map[SlotID]bool{TPRichcompare: true, TPHash: true, TPFinalize: true, TPFree: true}
	for _, pair := range shadowGroups {
		m[pair[0]], m[pair[1]] = true, true
	}
	return m
}()

// FromSpec builds a new Type from spec, linked into builder's Layout
// registry and MRO graph as a child of bases (defaulting to []Type{object}
// when empty, via pytype.Builder.Build).
func FromSpec(b *pytype.Builder, ref objval.Ref, spec Spec, bases []*pytype.Type, metaclass *pytype.Type) (*Built, error) {
	if err := validateSlots(spec.Slots); err != nil {
		return nil, err
	}

	behaviors := make(NativeBehaviors)
	var methods []MethodDef
	var members []MemberDef
	var getsets []GetSetDef
	var explicitBase *pytype.Type
	var doc string

	for _, s := range spec.Slots {
		switch s.ID {
		case TPMethods:
			ms, ok := s.Pointer.([]MethodDef)
			if !ok {
				return nil, fmt.Errorf("slotbuild: TPMethods slot pointer has wrong type %T", s.Pointer)
			}
			methods = ms
		case TPMembers:
			ms, ok := s.Pointer.([]MemberDef)
			if !ok {
				return nil, fmt.Errorf("slotbuild: TPMembers slot pointer has wrong type %T", s.Pointer)
			}
			members = ms
		case TPGetset:
			gs, ok := s.Pointer.([]GetSetDef)
			if !ok {
				return nil, fmt.Errorf("slotbuild: TPGetset slot pointer has wrong type %T", s.Pointer)
			}
			getsets = gs
		case TPBase:
			base, ok := s.Pointer.(*pytype.Type)
			if !ok {
				return nil, fmt.Errorf("slotbuild: TPBase slot pointer has wrong type %T", s.Pointer)
			}
			explicitBase = base
		case TPDoc:
			d, ok := s.Pointer.(string)
			if !ok {
				return nil, fmt.Errorf("slotbuild: TPDoc slot pointer has wrong type %T", s.Pointer)
			}
			doc = d
		default:
			fn, ok := s.Pointer.(trampoline.Func)
			if !ok {
				return nil, fmt.Errorf("slotbuild: slot %v pointer has wrong type %T", s.ID, s.Pointer)
			}
			behaviors[s.ID] = fn
		}
	}

	if err := validateMethods(methods); err != nil {
		return nil, err
	}
	if explicitBase != nil {
		bases = append(append([]*pytype.Type(nil), bases...), explicitBase)
	}

	haveGC := spec.Flags&FlagHaveGC != 0
	inheritSubSlotPair(behaviors, bases, richcompareHashPair)
	for _, pair := range shadowGroups {
		inheritShadowGroup(behaviors, bases, pair)
	}
	inheritUnconditional(behaviors, bases, TPFinalize)
	inheritTPFreeRespectingGC(behaviors, bases, haveGC)
	inheritRemainingSlots(behaviors, bases)

	dict := make(map[string]objval.Ref)

	inObject := memberLayoutAttributes(members)

	// A dotted spec name splits into (module, qualname), mirroring
	// PyType_FromModuleAndSpec's own convention for where a slot-table
	// type's __module__ comes from when no explicit module is passed.
	module, name := "", spec.Name
	if i := strings.LastIndexByte(spec.Name, '.'); i >= 0 {
		module, name = spec.Name[:i], spec.Name[i+1:]
	}

	typ, err := b.Build(pytype.Spec{
		Name:      name,
		Ref:       ref,
		Bases:     bases,
		Metaclass: metaclass,
		Dict:      dict,
		BaseType:  spec.Flags&FlagBaseType != 0,
		HaveGC:    haveGC,
		BasicSize: spec.BasicSize,
		ItemSize:  spec.ItemSize,
		Module:    module,
		QualName:  name,
	})
	if err != nil {
		return nil, err
	}
	if len(inObject) > 0 {
		typ.Instance = b.Layouts.WithInObjectAttributes(ref, inObject)
	}
	typ.NativeSlots = toNativeSlots(behaviors)

	return &Built{Type: typ, Behaviors: behaviors, Members: members, GetSets: getsets, Doc: doc}, nil
}

func toNativeSlots(behaviors NativeBehaviors) map[int]trampoline.Func {
	if len(behaviors) == 0 {
		return nil
	}
	out := make(map[int]trampoline.Func, len(behaviors))
	for id, fn := range behaviors {
		out[int(id)] = fn
	}
	return out
}

func memberLayoutAttributes(members []MemberDef) []layout.AttributeInfo {
	if len(members) == 0 {
		return nil
	}
	attrs := make([]layout.AttributeInfo, len(members))
	for i, m := range members {
		attrs[i] = layout.AttributeInfo{
			Name:    m.Name,
			Offset:  m.Offset,
			Kind:    layout.InObject,
			Mutable: !m.ReadOnly,
		}
	}
	return attrs
}

// lookupInherited returns the first defined native behavior for id found
// by walking each base's MRO (most-derived first), the same order normal
// attribute lookup uses.
func lookupInherited(bases []*pytype.Type, id SlotID) (trampoline.Func, bool) {
	for _, base := range bases {
		for _, ancestor := range base.MRO {
			if fn, ok := ancestor.NativeSlots[int(id)]; ok {
				return fn, true
			}
		}
	}
	return nil, false
}

// inheritSubSlotPair implements the rule that richcompare and hash are
// inherited as a unit: only a type that defines neither slot inherits
// them, each from the nearest base that defines it; a type that defines
// either one leaves the other unset (CPython: a type with a custom
// tp_richcompare and no tp_hash becomes unhashable, not
// hashable-by-identity).
func inheritSubSlotPair(behaviors NativeBehaviors, bases []*pytype.Type, pair [2]SlotID) {
	_, hasA := behaviors[pair[0]]
	_, hasB := behaviors[pair[1]]
	if hasA || hasB {
		return
	}
	for _, id := range pair {
		if fn, ok := lookupInherited(bases, id); ok {
			behaviors[id] = fn
		}
	}
}

// inheritUnconditional implements the tp_finalize inheritance rule: a
// subtype that doesn't define it always inherits the base's, unlike the
// richcompare/hash pair, which is inherited only when both are unset.
func inheritUnconditional(behaviors NativeBehaviors, bases []*pytype.Type, id SlotID) {
	if _, ok := behaviors[id]; ok {
		return
	}
	if fn, ok := lookupInherited(bases, id); ok {
		behaviors[id] = fn
	}
}

// inheritShadowGroup implements the rule that a pair of old/new-style
// slots are mutually exclusive inheritance units: if the type defines
// either member itself, the group is considered resolved and the other
// member is never pulled from a base (CPython: setting a two-argument
// tp_getattr suppresses the inherited tp_getattro wrapper entirely). Only
// when the type defines neither is the first one a base supplies used.
func inheritShadowGroup(behaviors NativeBehaviors, bases []*pytype.Type, pair [2]SlotID) {
	_, hasA := behaviors[pair[0]]
	_, hasB := behaviors[pair[1]]
	if hasA || hasB {
		return
	}
	for _, id := range pair {
		if fn, ok := lookupInherited(bases, id); ok {
			behaviors[id] = fn
			return
		}
	}
}

// inheritRemainingSlots fills every native slot a subtype neither
// overrides nor has a more specific inheritance rule for: any tp_/nb_/
// sq_/mp_/am_ slot a base defines and the subtype doesn't is inherited
// verbatim from the nearest defining ancestor, the default CPython rule
// (type_new's inherit_slots) underneath the richcompare/hash,
// getattr/setattr, tp_finalize, and tp_free special cases above.
func inheritRemainingSlots(behaviors NativeBehaviors, bases []*pytype.Type) {
	seen := make(map[SlotID]bool)
	for _, base := range bases {
		for _, ancestor := range base.MRO {
			for id := range ancestor.NativeSlots {
				sid := SlotID(id)
				if seen[sid] || specialCasedSlots[sid] {
					continue
				}
				seen[sid] = true
				if _, ok := behaviors[sid]; ok {
					continue
				}
				if fn, ok := lookupInherited(bases, sid); ok {
					behaviors[sid] = fn
				}
			}
		}
	}
}

// inheritTPFreeRespectingGC inherits tp_free only from a base whose
// FlagHaveGC matches the new type's own: a GC-tracked instance must be
// freed by a GC-aware deallocator and vice versa, so a base's tp_free
// that disagrees on HAVE_GC is skipped rather than inherited.
func inheritTPFreeRespectingGC(behaviors NativeBehaviors, bases []*pytype.Type, haveGC bool) {
	if _, ok := behaviors[TPFree]; ok {
		return
	}
	for _, base := range bases {
		for _, ancestor := range base.MRO {
			if ancestor.Flags.Has(pytype.FlagHaveGC) != haveGC {
				continue
			}
			if fn, ok := ancestor.NativeSlots[int(TPFree)]; ok {
				behaviors[TPFree] = fn
				return
			}
		}
	}
}
