// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trampoline adapts native extension functions, each written
// against one of a small set of fixed calling conventions, to the
// runtime's uniform call path. Every convention is validated and
// dispatched from one table (spec.md §9 Design Notes: generate the
// handful of entry points from a table rather than by hand) instead of a
// hand-written switch per convention.
package trampoline

import (
	"fmt"
	"sort"

	"github.com/pyrt-lang/pyrt/internal/handle"
)

// Convention identifies one of the six fixed native calling shapes a
// trampoline can adapt.
type Convention uint8

const (
	// NoArgs takes only self; any argument is an arity TypeError.
	NoArgs Convention = iota
	// OneArg takes self plus exactly one positional argument.
	OneArg
	// VarArgs takes self plus any number of positional arguments,
	// packed as a tuple; no keyword arguments.
	VarArgs
	// Keywords takes self, positional arguments packed as a tuple, and a
	// keyword dict.
	Keywords
	// FastCall takes self plus positional arguments passed as a raw
	// argument vector (no tuple packing), and no keywords.
	FastCall
	// Method is FastCall plus keywords plus the defining class, used for
	// methods that need to know which class in the MRO they were found
	// on (e.g. for super() resolution inside a native method). Keyword
	// values trail the positional arguments in the same vector, with
	// KwNames naming them, mirroring vectorcall's argv/kwnames split.
	Method
)

func (c Convention) String() string {
	switch c {
	case NoArgs:
		return "NoArgs"
	case OneArg:
		return "OneArg"
	case VarArgs:
		return "VarArgs"
	case Keywords:
		return "Keywords"
	case FastCall:
		return "FastCall"
	case Method:
		return "Method"
	default:
		return fmt.Sprintf("Convention(%d)", c)
	}
}

// Tuple is the packed, ordered positional-argument container a
// VarArgs/Keywords native function receives in place of a raw slice,
// mirroring the PyObject* args tuple a real C extension's METH_VARARGS
// function is handed.
type Tuple struct {
	items []*handle.Handle
}

// NewTuple packs items into a Tuple, copying the slice so the caller's
// backing array can't alias it afterward.
func NewTuple(items []*handle.Handle) *Tuple {
	return &Tuple{items: append([]*handle.Handle(nil), items...)}
}

// Len reports the tuple's length; a nil Tuple has length 0.
func (t *Tuple) Len() int {
	if t == nil {
		return 0
	}
	return len(t.items)
}

// At returns the i'th element.
func (t *Tuple) At(i int) *handle.Handle { return t.items[i] }

// Dict is the packed keyword-argument container a Keywords native
// function receives in place of a raw map, mirroring the PyObject*
// kwargs dict a real C extension's METH_VARARGS|METH_KEYWORDS function
// is handed.
type Dict struct {
	byName map[string]*handle.Handle
}

// NewDict packs m into a Dict, copying it so the caller's map can't
// alias it afterward.
func NewDict(m map[string]*handle.Handle) *Dict {
	d := &Dict{byName: make(map[string]*handle.Handle, len(m))}
	for k, v := range m {
		d.byName[k] = v
	}
	return d
}

// Len reports the dict's size; a nil Dict has length 0.
func (d *Dict) Len() int {
	if d == nil {
		return 0
	}
	return len(d.byName)
}

// Get looks up a keyword by name.
func (d *Dict) Get(name string) (*handle.Handle, bool) {
	if d == nil {
		return nil, false
	}
	h, ok := d.byName[name]
	return h, ok
}

// Call carries the convention-specific argument shape a native Func
// actually receives: only the fields its Entry.Convention specifies are
// populated, mirroring which parameters each C calling convention's
// function signature declares. A Func for a NoArgs entry sees an empty
// Call; a VarArgs entry sees only Args; a FastCall/Method entry sees
// Argv/NArgs (and KwNames for Method) instead of a Tuple, since
// vectorcall-style conventions exist specifically to avoid allocating
// one.
type Call struct {
	One      *handle.Handle   // OneArg: the single positional argument
	Args     *Tuple           // VarArgs, Keywords: packed positional tuple
	Kwargs   *Dict            // Keywords: packed keyword dict
	Argv     []*handle.Handle // FastCall, Method: raw positional vector, never tuple-packed
	NArgs    int64            // FastCall, Method: number of positional entries in Argv
	KwNames  []string         // Method: names for the keyword values trailing Argv's positional prefix
	Defining *handle.Handle   // Method: the class a super() call should resolve from
}

// Func is the single underlying native function shape every convention
// trampolines down to; Dispatch marshals the raw call arguments into the
// Call shape e.Convention specifies before invoking it.
type Func func(self *handle.Handle, call *Call) (*handle.Handle, error)

// Entry binds one native Func to the calling convention it was written
// for. Params, when non-nil, is the callee's declared keyword-eligible
// parameter names; Dispatch rejects any keyword argument not in this
// list with an UnexpectedKeywordError, the way CPython's argument
// clinic validates **kwargs-less signatures. A nil Params leaves keyword
// names unchecked (an Impl that itself accepts arbitrary keywords).
type Entry struct {
	Name       string
	Convention Convention
	Impl       Func
	Params     []string
}

// ArityError reports a convention/argument mismatch, the trampoline
// equivalent of CPython's "takes no arguments", "takes exactly one
// argument", and "takes no keyword arguments" TypeErrors.
type ArityError struct {
	FuncName   string
	Convention Convention
	Detail     string
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%s() %s", e.FuncName, e.Detail)
}

// UnexpectedKeywordError reports a keyword argument name absent from the
// callee's declared parameter list (CPython: "f() got an unexpected
// keyword argument 'x'").
type UnexpectedKeywordError struct {
	FuncName string
	Keyword  string
}

func (e *UnexpectedKeywordError) Error() string {
	return fmt.Sprintf("%s() got an unexpected keyword argument %q", e.FuncName, e.Keyword)
}

// validator checks an (args, kwargs) call shape against one convention,
// returning a human-readable violation or "" if the shape is acceptable.
// Keeping this as a table of functions is what lets Dispatch stay a single
// lookup instead of a six-way hand-written switch.
var validators = map[Convention]func(args []*handle.Handle, kwargs map[string]*handle.Handle) string{
	NoArgs: func(args []*handle.Handle, kwargs map[string]*handle.Handle) string {
		if len(args) != 0 {
			return "takes no arguments"
		}
		if len(kwargs) != 0 {
			return "takes no keyword arguments"
		}
		return ""
	},
	OneArg: func(args []*handle.Handle, kwargs map[string]*handle.Handle) string {
		if len(args) != 1 {
			return "takes exactly one argument"
		}
		if len(kwargs) != 0 {
			return "takes no keyword arguments"
		}
		return ""
	},
	VarArgs: func(args []*handle.Handle, kwargs map[string]*handle.Handle) string {
		if len(kwargs) != 0 {
			return "takes no keyword arguments"
		}
		return ""
	},
	Keywords: func(args []*handle.Handle, kwargs map[string]*handle.Handle) string {
		return ""
	},
	FastCall: func(args []*handle.Handle, kwargs map[string]*handle.Handle) string {
		if len(kwargs) != 0 {
			return "takes no keyword arguments"
		}
		return ""
	},
	Method: func(args []*handle.Handle, kwargs map[string]*handle.Handle) string {
		return ""
	},
}

// sortedKwargNames returns kwargs' keys in a fixed order, so that
// Method's Argv/KwNames marshaling (and any error message naming the
// first bad keyword) is deterministic despite map iteration order.
func sortedKwargNames(kwargs map[string]*handle.Handle) []string {
	names := make([]string, 0, len(kwargs))
	for name := range kwargs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// checkKeywordNames validates every kwargs key against e.Params, in
// sorted order so the reported violation is deterministic.
func checkKeywordNames(e Entry, kwargs map[string]*handle.Handle) error {
	if e.Params == nil || len(kwargs) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(e.Params))
	for _, p := range e.Params {
		allowed[p] = true
	}
	for _, name := range sortedKwargNames(kwargs) {
		if !allowed[name] {
			return &UnexpectedKeywordError{FuncName: e.Name, Keyword: name}
		}
	}
	return nil
}

// marshal builds the Call e.Convention expects out of the raw args/kwargs,
// copying nothing it doesn't need to (e.g. FastCall/Method take args
// itself as Argv, never allocating a Tuple).
func marshal(e Entry, args []*handle.Handle, kwargs map[string]*handle.Handle, definingClass *handle.Handle) *Call {
	switch e.Convention {
	case OneArg:
		return &Call{One: args[0]}
	case VarArgs:
		return &Call{Args: NewTuple(args)}
	case Keywords:
		return &Call{Args: NewTuple(args), Kwargs: NewDict(kwargs)}
	case FastCall:
		return &Call{Argv: args, NArgs: int64(len(args))}
	case Method:
		names := sortedKwargNames(kwargs)
		argv := append([]*handle.Handle(nil), args...)
		for _, name := range names {
			argv = append(argv, kwargs[name])
		}
		return &Call{Argv: argv, NArgs: int64(len(args)), KwNames: names, Defining: definingClass}
	default: // NoArgs
		return &Call{}
	}
}

// increfAll increfs self, definingClass, and every argument for the
// duration of the call, the handle-table analogue of a C callee
// receiving only borrowed references and the caller guaranteeing each
// stays alive until the call returns.
func increfAll(table *handle.Table, self, definingClass *handle.Handle, args []*handle.Handle, kwargs map[string]*handle.Handle) {
	if table == nil {
		return
	}
	if self != nil {
		table.Incref(self)
	}
	if definingClass != nil {
		table.Incref(definingClass)
	}
	for _, a := range args {
		if a != nil {
			table.Incref(a)
		}
	}
	for _, v := range kwargs {
		if v != nil {
			table.Incref(v)
		}
	}
}

// decrefAll releases exactly what increfAll acquired.
func decrefAll(table *handle.Table, self, definingClass *handle.Handle, args []*handle.Handle, kwargs map[string]*handle.Handle) {
	if table == nil {
		return
	}
	if self != nil {
		table.Decref(self)
	}
	if definingClass != nil {
		table.Decref(definingClass)
	}
	for _, a := range args {
		if a != nil {
			table.Decref(a)
		}
	}
	for _, v := range kwargs {
		if v != nil {
			table.Decref(v)
		}
	}
}

// Dispatch validates args/kwargs against e's convention, marshals them
// into the Call shape e.Convention specifies, increfs every argument for
// the duration of the native call (decrefing them again once it
// returns), and enforces the result/exception invariant (§4.E) before
// returning. table may be nil (e.g. in tests with no live handle table),
// in which case the incref/decref bracketing is skipped.
func Dispatch(e Entry, table *handle.Table, self, definingClass *handle.Handle, args []*handle.Handle, kwargs map[string]*handle.Handle, hasPendingException func() bool) (*handle.Handle, error) {
	validate, ok := validators[e.Convention]
	if !ok {
		return nil, fmt.Errorf("trampoline: unknown calling convention %v for %s", e.Convention, e.Name)
	}
	if detail := validate(args, kwargs); detail != "" {
		return nil, &ArityError{FuncName: e.Name, Convention: e.Convention, Detail: detail}
	}
	if err := checkKeywordNames(e, kwargs); err != nil {
		return nil, err
	}

	increfAll(table, self, definingClass, args, kwargs)
	defer decrefAll(table, self, definingClass, args, kwargs)

	call := marshal(e, args, kwargs, definingClass)
	result, err := e.Impl(self, call)
	if err != nil {
		return result, err
	}
	if checkErr := handle.CheckFunctionResult(e.Name, result, hasPendingException()); checkErr != nil {
		return nil, checkErr
	}
	return result, nil
}
