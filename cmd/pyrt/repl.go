// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

func newReplCommand(regionSize *int) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive shell for live heap/layout/handle inspection",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(*regionSize)
			if err != nil {
				return err
			}
			return runRepl(s, cmd)
		},
	}
}

func runRepl(s *session, cmd *cobra.Command) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "pyrt> ",
		HistoryFile: "",
	})
	if err != nil {
		return fmt.Errorf("starting readline: %w", err)
	}
	defer rl.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, `pyrt repl — type "help" for commands, "quit" to exit`)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprintln(out, "commands: types, modules, gc, alloc, help, quit")
		case "types":
			printType(out, s.Builder.ObjectType)
			printType(out, s.Builder.TypeType)
		case "modules":
			for _, name := range s.Modules.Names() {
				fmt.Fprintf(out, "  %s\n", name)
			}
		case "gc":
			stats := s.Heap.Collect()
			fmt.Fprintf(out, "live objects: %d, live bytes: %d\n", stats.LiveObjects, stats.LiveBytes)
		case "alloc":
			ref, err := s.Heap.AllocateDataInstance(s.Builder.ObjectType.Instance.ID(), []byte{0})
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			h := s.Handles.NewReference(ref)
			fmt.Fprintf(out, "allocated and rooted %s\n", h.Ref().String())
		default:
			fmt.Fprintf(out, "unknown command %q (try \"help\")\n", fields[0])
		}
	}
}
