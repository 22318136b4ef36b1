// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pyrt-lang/pyrt/internal/descriptor"
	"github.com/pyrt-lang/pyrt/internal/handle"
	"github.com/pyrt-lang/pyrt/internal/pytype"
	"github.com/pyrt-lang/pyrt/internal/slotbuild"
	"github.com/pyrt-lang/pyrt/internal/trampoline"
)

func newRunCommand(regionSize *int) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Build a small demo type hierarchy and print what was constructed",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(*regionSize)
			if err != nil {
				return err
			}
			return runDemo(s, cmd)
		},
	}
}

// runDemo builds "object" <- "Point", a two-member native type, the way
// a C extension module's PyType_FromSpec call would, then reports its
// members and MRO, a trampoline call to its magnitude method on a fresh
// instance, and a read through its is_origin descriptor.
func runDemo(s *session, cmd *cobra.Command) error {
	xMember := slotbuild.MemberDef{Name: "x", Type: slotbuild.TInt, ReadOnly: false}
	yMember := slotbuild.MemberDef{Name: "y", Type: slotbuild.TInt, ReadOnly: false}

	magnitude := trampoline.Entry{
		Name:       "magnitude",
		Convention: trampoline.NoArgs,
		Impl: func(self *handle.Handle, call *trampoline.Call) (*handle.Handle, error) {
			return self, nil
		},
	}

	originGetter := slotbuild.GetSetDef{
		Name: "is_origin",
		Get: func(self *handle.Handle) (*handle.Handle, error) {
			return self, nil
		},
		Doc: "whether this point sits at the coordinate origin",
	}

	spec := slotbuild.Spec{
		Name:      "demo.Point",
		BasicSize: 16,
		Flags:     slotbuild.FlagBaseType,
		Slots: []slotbuild.Slot{
			{ID: slotbuild.TPMembers, Pointer: []slotbuild.MemberDef{xMember, yMember}},
			{ID: slotbuild.TPMethods, Pointer: []slotbuild.MethodDef{
				{Name: "magnitude", Convention: trampoline.NoArgs, Impl: magnitude.Impl},
			}},
			{ID: slotbuild.TPGetset, Pointer: []slotbuild.GetSetDef{originGetter}},
			{ID: slotbuild.TPDoc, Pointer: "A point in the demo coordinate plane."},
		},
	}

	pointRef := s.allocRef()
	built, err := slotbuild.FromSpec(s.Builder, pointRef, spec, []*pytype.Type{s.Builder.ObjectType}, s.Builder.TypeType)
	if err != nil {
		return fmt.Errorf("building demo.Point: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "built type %q (module %q)\n", built.Type.QualName, built.Type.Module)
	fmt.Fprintf(cmd.OutOrStdout(), "  doc: %s\n", built.Doc)
	fmt.Fprintf(cmd.OutOrStdout(), "  members: ")
	for i, m := range built.Members {
		if i > 0 {
			fmt.Fprint(cmd.OutOrStdout(), ", ")
		}
		fmt.Fprint(cmd.OutOrStdout(), m.Name)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintf(cmd.OutOrStdout(), "  MRO: ")
	for i, t := range built.Type.MRO {
		if i > 0 {
			fmt.Fprint(cmd.OutOrStdout(), " -> ")
		}
		fmt.Fprint(cmd.OutOrStdout(), t.Name)
	}
	fmt.Fprintln(cmd.OutOrStdout())

	instRef, err := s.Heap.AllocateDataInstance(built.Type.Instance.ID(), make([]byte, 16))
	if err != nil {
		return fmt.Errorf("allocating demo.Point instance: %w", err)
	}
	h := s.Handles.NewReference(instRef)

	result, err := trampoline.Dispatch(magnitude, s.Handles, h, nil, nil, nil, func() bool { return s.Except.Current != nil })
	if err != nil {
		return fmt.Errorf("calling magnitude: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  magnitude() -> %s\n", result.Ref().String())

	descRef := s.allocRef()
	descs := descriptor.NewRegistry()
	isOrigin := descriptor.FromGetSet(descRef, built.GetSets[0])
	descs.Register(isOrigin)

	got, err := descriptor.Get(isOrigin, h)
	if err != nil {
		return fmt.Errorf("reading is_origin: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  is_origin (data descriptor: %v) -> %s\n",
		isOrigin.IsDataDescriptor(), got.Ref().String())
	return nil
}
