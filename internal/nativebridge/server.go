// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nativebridge

import (
	"errors"
	"fmt"

	"github.com/pyrt-lang/pyrt/internal/exc"
	"github.com/pyrt-lang/pyrt/internal/handle"
	"github.com/pyrt-lang/pyrt/internal/objval"
	"github.com/pyrt-lang/pyrt/internal/trampoline"
)

// Server is the RPC-reachable half of the bridge: it owns a handle
// table and a registry of callable trampoline entries, and answers
// NewHandle/DisposeHandle/Call the way program/server.Server answered
// Open/ReadAt/Close for a remote debuggee.
type Server struct {
	Handles *handle.Table
	Entries map[string]trampoline.Entry
	Except  *exc.State
}

// NewServer returns a bridge server backed by t, serving the named
// entries.
func NewServer(t *handle.Table, entries map[string]trampoline.Entry) *Server {
	return &Server{Handles: t, Entries: entries, Except: &exc.State{}}
}

// NewHandle creates (or increfs) a handle for req.Ref, the HandleID the
// caller uses in subsequent CallRequest.ArgIDs. HandleID is simply the
// Ref itself — internal/handle.Table is already keyed by Ref, so no
// separate ID space is needed.
func (s *Server) NewHandle(req *NewHandleRequest, resp *NewHandleResponse) error {
	h := s.Handles.NewReference(objval.Ref(req.Ref))
	resp.HandleID = uint64(h.Ref())
	return nil
}

// DisposeHandle decrefs the handle for req.HandleID.
func (s *Server) DisposeHandle(req *DisposeHandleRequest, resp *DisposeHandleResponse) error {
	h, ok := s.Handles.Lookup(objval.Ref(req.HandleID))
	if !ok {
		return fmt.Errorf("nativebridge: no such handle %d", req.HandleID)
	}
	s.Handles.Decref(h)
	return nil
}

// Call dispatches req.FuncName with handle arguments already registered
// on this side's table, the RPC analogue of an in-process
// trampoline.Dispatch call.
func (s *Server) Call(req *CallRequest, resp *CallResponse) error {
	entry, ok := s.Entries[req.FuncName]
	if !ok {
		return fmt.Errorf("nativebridge: no such function %q", req.FuncName)
	}

	self, err := s.resolveOptional(req.SelfID)
	if err != nil {
		return err
	}
	definingClass, err := s.resolveOptional(req.DefiningID)
	if err != nil {
		return err
	}
	args, err := s.resolveAll(req.ArgIDs)
	if err != nil {
		return err
	}
	if len(req.KwargNames) != len(req.KwargIDs) {
		return errors.New("nativebridge: KwargNames/KwargIDs length mismatch")
	}
	var kwargs map[string]*handle.Handle
	if len(req.KwargNames) > 0 {
		kwargs = make(map[string]*handle.Handle, len(req.KwargNames))
		for i, name := range req.KwargNames {
			h, err := s.resolveOptional(req.KwargIDs[i])
			if err != nil {
				return err
			}
			kwargs[name] = h
		}
	}

	result, callErr := trampoline.Dispatch(entry, s.Handles, self, definingClass, args, kwargs, func() bool {
		return s.Except.Current != nil
	})
	if callErr != nil {
		return callErr
	}
	if result != nil {
		resp.ResultID = uint64(result.Ref())
	}
	resp.HasPendingException = s.Except.Current != nil
	return nil
}

func (s *Server) resolveOptional(id uint64) (*handle.Handle, error) {
	if id == 0 {
		return nil, nil
	}
	h, ok := s.Handles.Lookup(objval.Ref(id))
	if !ok {
		return nil, fmt.Errorf("nativebridge: no such handle %d", id)
	}
	return h, nil
}

func (s *Server) resolveAll(ids []uint64) ([]*handle.Handle, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	handles := make([]*handle.Handle, len(ids))
	for i, id := range ids {
		h, err := s.resolveOptional(id)
		if err != nil {
			return nil, err
		}
		handles[i] = h
	}
	return handles, nil
}
