// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nativebridge

import (
	"net/rpc"

	"github.com/pyrt-lang/pyrt/internal/objval"
)

// Client is the near side of the bridge: a thin net/rpc wrapper so the
// caller deals in Refs and function names rather than *rpc.Client,
// mirroring how program/client.Program wrapped its *rpc.Client behind
// a Program-shaped API.
type Client struct {
	rpc *rpc.Client
}

// NewClient wraps an already-dialed net/rpc client. Establishing the
// connection itself (over TCP, over an SSH-piped stdin/stdout the way
// program/client.Run does, or in-process via net/rpc's Pipe) is the
// caller's concern.
func NewClient(c *rpc.Client) *Client {
	return &Client{rpc: c}
}

// NewHandle asks the far side to create or incref a handle for ref.
func (c *Client) NewHandle(ref objval.Ref) (objval.Ref, error) {
	req := &NewHandleRequest{Ref: uint64(ref)}
	resp := &NewHandleResponse{}
	if err := c.rpc.Call("Server.NewHandle", req, resp); err != nil {
		return 0, err
	}
	return objval.Ref(resp.HandleID), nil
}

// DisposeHandle decrefs the far side's handle for id.
func (c *Client) DisposeHandle(id objval.Ref) error {
	req := &DisposeHandleRequest{HandleID: uint64(id)}
	return c.rpc.Call("Server.DisposeHandle", req, &DisposeHandleResponse{})
}

// Call invokes funcName on the far side with the given handle IDs as
// positional arguments and no keyword arguments; see CallKeywords for
// the full form.
func (c *Client) Call(funcName string, self, definingClass objval.Ref, args []objval.Ref) (result objval.Ref, hasPendingException bool, err error) {
	return c.CallKeywords(funcName, self, definingClass, args, nil)
}

// CallKeywords invokes funcName on the far side with both positional
// and keyword handle-ID arguments.
func (c *Client) CallKeywords(funcName string, self, definingClass objval.Ref, args []objval.Ref, kwargs map[string]objval.Ref) (result objval.Ref, hasPendingException bool, err error) {
	req := &CallRequest{
		FuncName:   funcName,
		SelfID:     uint64(self),
		DefiningID: uint64(definingClass),
		ArgIDs:     refsToIDs(args),
	}
	if len(kwargs) > 0 {
		req.KwargNames = make([]string, 0, len(kwargs))
		req.KwargIDs = make([]uint64, 0, len(kwargs))
		for name, ref := range kwargs {
			req.KwargNames = append(req.KwargNames, name)
			req.KwargIDs = append(req.KwargIDs, uint64(ref))
		}
	}

	resp := &CallResponse{}
	if err := c.rpc.Call("Server.Call", req, resp); err != nil {
		return 0, false, err
	}
	return objval.Ref(resp.ResultID), resp.HasPendingException, nil
}

func refsToIDs(refs []objval.Ref) []uint64 {
	if len(refs) == 0 {
		return nil
	}
	ids := make([]uint64, len(refs))
	for i, r := range refs {
		ids[i] = uint64(r)
	}
	return ids
}
