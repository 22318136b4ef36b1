// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pyrt-lang/pyrt/internal/pytype"
	"github.com/pyrt-lang/pyrt/internal/sysmod"
)

func newInspectCommand(regionSize *int) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the bootstrap object/type graph and module registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(*regionSize)
			if err != nil {
				return err
			}
			return inspectSession(s, cmd.OutOrStdout())
		},
	}
}

func inspectSession(s *session, out io.Writer) error {
	fmt.Fprintln(out, "types:")
	printType(out, s.Builder.ObjectType)
	printType(out, s.Builder.TypeType)
	printType(out, s.ExcInfoType)

	fmt.Fprintln(out, "modules:")
	for _, name := range s.Modules.Names() {
		fmt.Fprintf(out, "  %s\n", name)
	}
	fmt.Fprintf(out, "  (%d total)\n", s.Modules.Len())

	excInfo, err := sysmod.ExcInfoTuple(s.Except)
	if err != nil {
		return fmt.Errorf("building sys.exc_info(): %w", err)
	}
	typ, _ := excInfo.GetItem(0)
	fmt.Fprintf(out, "sys.exc_info(): type=%s\n", typ.String())
	return nil
}

func printType(out io.Writer, t *pytype.Type) {
	fmt.Fprintf(out, "  %s  (layout id %d, %d in-object attrs)\n",
		t.Name, t.Instance.ID(), t.Instance.NumInObjectAttributes())
}
