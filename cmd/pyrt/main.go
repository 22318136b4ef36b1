// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pyrt is a small inspection and demo shell for the runtime
// core: it boots a heap, the object/type/module machinery, and a
// handle table, then lets a user run a scripted demo, inspect the
// resulting layouts and types, force a collection, and poke at the
// handle table — either as one-shot subcommands or from an
// interactive repl.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pyrt-lang/pyrt/internal/exc"
	"github.com/pyrt-lang/pyrt/internal/handle"
	"github.com/pyrt-lang/pyrt/internal/heap"
	"github.com/pyrt-lang/pyrt/internal/layout"
	"github.com/pyrt-lang/pyrt/internal/module"
	"github.com/pyrt-lang/pyrt/internal/objval"
	"github.com/pyrt-lang/pyrt/internal/pytype"
	"github.com/pyrt-lang/pyrt/internal/sysmod"
)

// session bundles the runtime state every subcommand operates on. It is
// built fresh for each pyrt invocation (the repl keeps one session for its
// whole run) rather than persisted to disk — pyrt is an
// inspection tool, not the interpreter's production embedding.
type session struct {
	Heap        *heap.Heap
	Layouts     *layout.Registry
	Builder     *pytype.Builder
	Handles     *handle.Table
	Modules     *sysmod.Registry
	Builtins    *module.Module
	Except      *exc.State
	ExcInfoType *pytype.Type

	nextRef objval.Ref
}

func newSession(regionSize int) (*session, error) {
	h, err := heap.New(heap.Config{RegionSize: regionSize})
	if err != nil {
		return nil, fmt.Errorf("allocating heap: %w", err)
	}
	layouts := layout.NewRegistry()
	builder := pytype.NewBuilder(layouts)
	handles := handle.NewTable()
	h.SetRoots(handles)

	s := &session{
		Heap:     h,
		Layouts:  layouts,
		Builder:  builder,
		Handles:  handles,
		Modules:  sysmod.NewRegistry(),
		Builtins: module.New("builtins", nil),
		Except:   &exc.State{},
		nextRef:  1000, // low refs are reserved for bootstrap types
	}

	s.Builder.BootstrapObjectType(s.allocRef())
	s.Builder.BootstrapTypeType(s.allocRef())
	s.Modules.Set("builtins", s.Builtins)

	excInfoType, err := sysmod.BuildExcInfoType(s.Builder, s.allocRef(), s.Builder.ObjectType)
	if err != nil {
		return nil, fmt.Errorf("building sys.exc_info structseq type: %w", err)
	}
	s.ExcInfoType = excInfoType

	return s, nil
}

// allocRef hands out a fresh identity for a bootstrap type. Real heap
// objects get their Ref from heap.Heap.Allocate*; this is only for the
// handful of types pyrt constructs without a backing heap allocation.
func (s *session) allocRef() objval.Ref {
	s.nextRef++
	return s.nextRef
}

func main() {
	root := &cobra.Command{
		Use:   "pyrt",
		Short: "Inspect and exercise the pyrt runtime core",
	}

	var regionSize int
	root.PersistentFlags().IntVar(&regionSize, "heap-size", 4<<20, "bytes per semispace")

	root.AddCommand(newRunCommand(&regionSize))
	root.AddCommand(newInspectCommand(&regionSize))
	root.AddCommand(newReplCommand(&regionSize))
	root.AddCommand(newGCCommand(&regionSize))
	root.AddCommand(newHandlesCommand(&regionSize))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
