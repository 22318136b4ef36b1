// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pytype

import (
	"errors"

	"github.com/pyrt-lang/pyrt/internal/layout"
	"github.com/pyrt-lang/pyrt/internal/objval"
)

// ErrNotBaseType is returned when a requested base has FlagBaseType unset
// (CPython: "type 'X' is not an acceptable base type").
var ErrNotBaseType = errors.New("pytype: base is not an acceptable base type")

// ErrLayoutConflict is returned when two or more bases supply incompatible
// native storage layouts (CPython: "multiple bases have instance lay-out
// conflict").
var ErrLayoutConflict = errors.New("pytype: multiple bases have instance lay-out conflict")

// Builder constructs new Types against a shared Layout Registry, so that
// instance Layouts across every Type in a running program form one DAG.
type Builder struct {
	Layouts    *layout.Registry
	ObjectType *Type
	TypeType   *Type
}

// NewBuilder returns a Builder that will allocate instance Layouts from
// layouts. Call BootstrapObjectType and BootstrapTypeType once on it
// before building any ordinary type.
func NewBuilder(layouts *layout.Registry) *Builder {
	return &Builder{Layouts: layouts}
}

// BootstrapObjectType creates the root "object" type: no bases, an empty
// instance Layout, and a trivial single-element MRO.
func (b *Builder) BootstrapObjectType(ref objval.Ref) *Type {
	t := &Type{
		Name:     "object",
		Ref:      ref,
		Flags:    FlagBaseType | FlagReady,
		Dict:     map[string]objval.Ref{},
		Instance: b.Layouts.NewRootLayout(ref),
	}
	t.MRO = []*Type{t}
	b.ObjectType = t
	return t
}

// BootstrapTypeType creates the "type" metatype: object is its only base,
// and it is its own metaclass (CPython's type(type) is type).
func (b *Builder) BootstrapTypeType(ref objval.Ref) *Type {
	t := &Type{
		Name:     "type",
		Ref:      ref,
		Bases:    []*Type{b.ObjectType},
		Flags:    FlagBaseType | FlagReady,
		Dict:     map[string]objval.Ref{},
		Instance: b.Layouts.NewRootLayout(ref),
	}
	t.MRO = []*Type{t, b.ObjectType}
	t.Metaclass = t
	b.TypeType = t
	return t
}

// Spec describes a class statement's inputs to Build.
type Spec struct {
	Name      string
	Ref       objval.Ref
	Bases     []*Type
	Metaclass *Type // explicit metaclass argument, or nil
	Dict      map[string]objval.Ref
	BaseType  bool // whether instances of this new type may themselves be subclassed
	HaveGC    bool // whether instances are tracked by the cyclic collector
	HeapType  bool // whether this type itself lives on the managed heap
	HasDict   bool // whether this type's own instances add overflow attribute storage
	IsAbstract bool // whether this type declares itself uninstantiable

	Module    string
	QualName  string
	BasicSize int32
	ItemSize  int32
}

// Build constructs a fully linearized, ready Type from spec: it resolves
// the winning metaclass, computes the C3 MRO with the new type prepended,
// checks that the bases' native storage layouts are compatible, and
// allocates the new type's instance Layout.
func (b *Builder) Build(spec Spec) (*Type, error) {
	bases := spec.Bases
	if len(bases) == 0 {
		bases = []*Type{b.ObjectType}
	}
	for _, base := range bases {
		if !base.Flags.Has(FlagBaseType) {
			return nil, ErrNotBaseType
		}
	}

	metaclass, err := ResolveMetaclass(spec.Metaclass, bases, b.TypeType)
	if err != nil {
		return nil, err
	}

	solidBase, err := resolveSolidBase(bases)
	if err != nil {
		return nil, err
	}

	qualName := spec.QualName
	if qualName == "" {
		qualName = spec.Name
	}
	t := &Type{
		Name:        spec.Name,
		Ref:         spec.Ref,
		Metaclass:   metaclass,
		Bases:       bases,
		BuiltinBase: solidBase,
		Dict:        spec.Dict,
		Module:      spec.Module,
		QualName:    qualName,
		BasicSize:   spec.BasicSize,
		ItemSize:    spec.ItemSize,
	}
	if t.Dict == nil {
		t.Dict = map[string]objval.Ref{}
	}
	// Flags propagate from bases via bitwise OR of the subclass-of-X
	// flags (spec.md §4.D); FlagBaseType and FlagReady describe only
	// this type's own state and are never inherited. Mirrors CPython's
	// inherit_special: each inheritable bit is the OR of that bit across
	// every direct base (each base's Flags already folds in its own
	// ancestors) combined with whatever this type's own spec adds.
	for _, base := range bases {
		t.Flags |= base.Flags & inheritableFlags
	}
	if spec.HasDict {
		t.Flags |= FlagHasDict
	}
	if spec.IsAbstract {
		t.Flags |= FlagIsAbstract
	}
	if spec.HeapType {
		t.Flags |= FlagHeapType
	}
	if spec.BaseType {
		t.Flags |= FlagBaseType
	}
	if spec.HaveGC {
		t.Flags |= FlagHaveGC
	}

	rest, err := Linearize(bases)
	if err != nil {
		return nil, err
	}
	t.MRO = append([]*Type{t}, rest...)

	t.Instance = b.Layouts.NewRootLayout(spec.Ref)
	t.Flags |= FlagReady
	return t, nil
}

// resolveSolidBase finds the single native storage layout the new type's
// instances must be compatible with: the most derived nonzero
// BuiltinBase among the direct bases. Two bases with different nonzero
// BuiltinBases can never be combined (their instances have incompatible
// fixed-size native representations).
func resolveSolidBase(bases []*Type) (objval.LayoutID, error) {
	var found objval.LayoutID
	var have bool
	for _, base := range bases {
		// Walk each base's own MRO so a grandparent's solid base is
		// compared too, not just the direct base's.
		for _, ancestor := range base.MRO {
			if ancestor.BuiltinBase == 0 {
				continue
			}
			if !have {
				found, have = ancestor.BuiltinBase, true
				break
			}
			if ancestor.BuiltinBase != found {
				return 0, ErrLayoutConflict
			}
			break
		}
	}
	return found, nil
}
