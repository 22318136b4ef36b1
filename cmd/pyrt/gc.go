// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pyrt-lang/pyrt/internal/objval"
)

func newGCCommand(regionSize *int) *cobra.Command {
	var allocations int
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Allocate a batch of garbage data objects, then force a collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(*regionSize)
			if err != nil {
				return err
			}
			defer s.Heap.Close()
			return runGCDemo(s, cmd, allocations)
		},
	}
	cmd.Flags().IntVar(&allocations, "allocations", 1000, "number of throwaway objects to allocate before collecting")
	return cmd
}

func runGCDemo(s *session, cmd *cobra.Command, allocations int) error {
	layoutID := s.Builder.ObjectType.Instance.ID()
	var kept objval.Ref
	for i := 0; i < allocations; i++ {
		ref, err := s.Heap.AllocateDataInstance(layoutID, []byte{byte(i)})
		if err != nil {
			return fmt.Errorf("allocating object %d: %w", i, err)
		}
		if i == allocations-1 {
			kept = ref
		}
	}
	// Root only the last allocation, via a handle, so everything else is
	// garbage by the time Collect runs.
	s.Handles.NewReference(kept)

	before := s.Heap.Collect()
	fmt.Fprintf(cmd.OutOrStdout(), "collected: %d live objects, %d live bytes\n", before.LiveObjects, before.LiveBytes)
	return nil
}
