// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sysmod exposes the sys module surface that sits on top of
// the module registry (internal/module) and the per-thread exception
// state (internal/exc): sys.modules, sys.maxsize, sys.byteorder, and
// sys.exc_info().
package sysmod

import (
	"github.com/pyrt-lang/pyrt/internal/arch"
	"github.com/pyrt-lang/pyrt/internal/exc"
	"github.com/pyrt-lang/pyrt/internal/handle"
	"github.com/pyrt-lang/pyrt/internal/module"
	"github.com/pyrt-lang/pyrt/internal/objval"
	"github.com/pyrt-lang/pyrt/internal/pytype"
	"github.com/pyrt-lang/pyrt/internal/structseq"
)

// Registry is sys.modules: every module import has registered, keyed by
// its dotted name. Grounded on internal/gocore.Process.Globals()'s
// "walk every known module" shape, here as a by-name map rather than a
// slice since sys.modules is itself dict-shaped.
type Registry struct {
	modules map[string]*module.Module
}

// NewRegistry returns an empty module registry.
func NewRegistry() *Registry {
	return &Registry{modules: map[string]*module.Module{}}
}

// Set records m under name, replacing any previously registered module
// of that name (re-import semantics: the last import wins).
func (r *Registry) Set(name string, m *module.Module) {
	r.modules[name] = m
}

// Get returns the module registered under name, if any.
func (r *Registry) Get(name string) (*module.Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// Delete removes name from the registry (del sys.modules[name]).
func (r *Registry) Delete(name string) {
	delete(r.modules, name)
}

// Names returns every registered module name; order is unspecified, the
// way dict key order is unspecified over Go's own map iteration.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	return names
}

// Len reports how many modules are currently registered.
func (r *Registry) Len() int {
	return len(r.modules)
}

// Info is the fixed word-size/byte-order facts sys.maxsize and
// sys.byteorder report, derived from the host's arch.Word rather than
// hardcoded, so a 32-bit build reports 32-bit limits.
type Info struct {
	word arch.Word
}

// NewInfo returns the sys-module word-size surface for the given host
// architecture (arch.AMD64, arch.X86, ...).
func NewInfo(word arch.Word) Info {
	return Info{word: word}
}

// MaxSize is sys.maxsize: the largest index a native-width sequence can
// address, 2**(8*PointerSize-1) - 1.
func (i Info) MaxSize() int64 {
	return i.word.MaxSize()
}

// ByteOrder is sys.byteorder: "little" or "big".
func (i Info) ByteOrder() string {
	if i.word.ByteOrder == nil {
		return "little"
	}
	// arch.Word carries a binary.ByteOrder, which only ever names two
	// concrete instances in this codebase (LittleEndian/BigEndian); String()
	// on each literally returns "LittleEndian"/"BigEndian".
	if i.word.ByteOrder.String() == "BigEndian" {
		return "big"
	}
	return "little"
}

// ExcInfo is sys.exc_info(): the currently-handled exception's
// (type, value, traceback), or (nil, nil, nil) if nothing is being
// handled. Go has no tuple type, so it returns the three parts
// directly rather than packing them into a structseq the way CPython's
// excInfo builds a 3-tuple.
func ExcInfo(state *exc.State) (typ *pytype.Type, value *handle.Handle, traceback *handle.Handle) {
	cur := state.Current
	if cur == nil {
		return nil, nil, nil
	}
	return cur.Type, cur.Value, cur.Traceback
}

// excInfoDesc is the structseq shape CPython's sys.exc_info() actually
// returns: a plain 3-tuple, all three fields visible positionally.
var excInfoDesc = &structseq.Desc{
	TypeName:   "exc_info",
	Fields:     []string{"type", "value", "traceback"},
	NumVisible: 3,
}

// BuildExcInfoType builds the pytype.Type backing sys.exc_info()'s
// structseq shape through the slot-table builder (structseq.NewType),
// the construction path a real sys module takes at startup rather than
// leaving the structseq type purely notional.
func BuildExcInfoType(b *pytype.Builder, ref objval.Ref, objectType *pytype.Type) (*pytype.Type, error) {
	built, err := structseq.NewType(b, ref, excInfoDesc, []*pytype.Type{objectType}, nil)
	if err != nil {
		return nil, err
	}
	return built.Type, nil
}

// ExcInfoTuple is ExcInfo packed into the fixed-layout structseq a real
// sys.exc_info() call returns, rather than three separate Go return
// values. A handle-less field (nothing currently being handled) is
// represented by objval.None, matching what sys.exc_info() reports
// outside of an except block: (None, None, None), never a bare zero
// Ref.
func ExcInfoTuple(state *exc.State) (*structseq.Instance, error) {
	typ, value, traceback := ExcInfo(state)

	values := []objval.Ref{objval.None, objval.None, objval.None}
	if typ != nil {
		values[0] = typ.Ref
	}
	if value != nil {
		values[1] = value.Ref()
	}
	if traceback != nil {
		values[2] = traceback.Ref()
	}
	return structseq.New(excInfoDesc, values)
}
