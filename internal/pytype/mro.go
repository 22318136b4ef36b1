// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pytype

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInconsistentMRO is returned by Linearize when the requested base
// class order cannot be merged into a single consistent precedence list
// (CPython raises TypeError("Cannot create a consistent method resolution
// order (MRO) for bases ...") in this situation).
var ErrInconsistentMRO = errors.New("pytype: cannot create a consistent method resolution order")

// MROError carries the base names that could not be linearized, for a
// caller that wants to format a precise TypeError message.
type MROError struct {
	BaseNames []string
}

func (e *MROError) Error() string {
	return fmt.Sprintf("pytype: cannot create a consistent method resolution order (MRO) for bases %s",
		strings.Join(e.BaseNames, ", "))
}

func (e *MROError) Unwrap() error { return ErrInconsistentMRO }

// Linearize computes the C3 MRO for a new type with the given direct
// bases, in the order they were listed. It returns only the merged bases'
// linearization; the caller (Builder.Build) prepends the new type itself.
func Linearize(bases []*Type) ([]*Type, error) {
	if len(bases) == 0 {
		return nil, nil
	}

	sequences := make([][]*Type, 0, len(bases)+1)
	for _, b := range bases {
		sequences = append(sequences, append([]*Type(nil), b.MRO...))
	}
	sequences = append(sequences, append([]*Type(nil), bases...))

	merged, err := c3Merge(sequences)
	if err != nil {
		names := make([]string, len(bases))
		for i, b := range bases {
			names[i] = b.Name
		}
		return nil, &MROError{BaseNames: names}
	}
	return merged, nil
}

// c3Merge implements the merge step of C3 linearization: repeatedly take
// the head of the first sequence whose head does not occur in the tail of
// any sequence, append it to the result, and remove it everywhere.
func c3Merge(sequences [][]*Type) ([]*Type, error) {
	var result []*Type
	for {
		sequences = dropEmpty(sequences)
		if len(sequences) == 0 {
			return result, nil
		}

		var candidate *Type
		for _, seq := range sequences {
			head := seq[0]
			if !inAnyTail(head, sequences) {
				candidate = head
				break
			}
		}
		if candidate == nil {
			return nil, ErrInconsistentMRO
		}

		result = append(result, candidate)
		for i, seq := range sequences {
			sequences[i] = removeHead(seq, candidate)
		}
	}
}

func dropEmpty(sequences [][]*Type) [][]*Type {
	out := sequences[:0]
	for _, s := range sequences {
		if len(s) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func inAnyTail(t *Type, sequences [][]*Type) bool {
	for _, seq := range sequences {
		for _, other := range seq[1:] {
			if other == t {
				return true
			}
		}
	}
	return false
}

func removeHead(seq []*Type, t *Type) []*Type {
	if len(seq) > 0 && seq[0] == t {
		return seq[1:]
	}
	return seq
}
