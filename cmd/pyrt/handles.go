// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pyrt-lang/pyrt/internal/handle"
	"github.com/pyrt-lang/pyrt/internal/nativebridge"
	"github.com/pyrt-lang/pyrt/internal/trampoline"
)

func newHandlesCommand(regionSize *int) *cobra.Command {
	return &cobra.Command{
		Use:   "handles",
		Short: "Exercise the handle table through the nativebridge RPC surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(*regionSize)
			if err != nil {
				return err
			}
			return runHandlesDemo(s, cmd)
		},
	}
}

// runHandlesDemo drives internal/nativebridge's Server methods directly
// (in-process, no TCP listener) to show the same request/response shapes
// a real out-of-process extension would exchange over net/rpc.
func runHandlesDemo(s *session, cmd *cobra.Command) error {
	identity := trampoline.Entry{
		Name:       "identity",
		Convention: trampoline.OneArg,
		Impl: func(self *handle.Handle, call *trampoline.Call) (*handle.Handle, error) {
			return call.One, nil
		},
	}
	bridge := nativebridge.NewServer(s.Handles, map[string]trampoline.Entry{"identity": identity})

	ref := s.allocRef()
	newResp := &nativebridge.NewHandleResponse{}
	if err := bridge.NewHandle(&nativebridge.NewHandleRequest{Ref: uint64(ref)}, newResp); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created handle %d\n", newResp.HandleID)

	callResp := &nativebridge.CallResponse{}
	callReq := &nativebridge.CallRequest{FuncName: "identity", ArgIDs: []uint64{newResp.HandleID}}
	if err := bridge.Call(callReq, callResp); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "identity(%d) -> %d (pending exception: %v)\n",
		newResp.HandleID, callResp.ResultID, callResp.HasPendingException)

	disposeResp := &nativebridge.DisposeHandleResponse{}
	if err := bridge.DisposeHandle(&nativebridge.DisposeHandleRequest{HandleID: newResp.HandleID}, disposeResp); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "disposed handle %d\n", newResp.HandleID)
	return nil
}
