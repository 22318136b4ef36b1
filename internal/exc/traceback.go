// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package exc

import "io"

// Printer formats a single exception's type/message/traceback; the
// bytecode/traceback-object layer that would supply real frame text is
// out of scope here, so Printer is an injected callback rather than a
// concrete formatter.
type Printer func(w io.Writer, e *Exception) error

// PrintChain writes e and every exception it chains to (via __cause__ or
// __context__, whichever applies) in the order a human reads a traceback:
// oldest cause first, down to e itself, with the connecting banner
// CPython prints between links. A seen set guards against a cycle in a
// pathologically self-referential chain — Python itself permits
// exc.__context__ = exc — so the same exception is never printed twice.
func PrintChain(w io.Writer, e *Exception, print Printer) error {
	return printChain(w, e, print, make(map[*Exception]bool))
}

func printChain(w io.Writer, e *Exception, print Printer, seen map[*Exception]bool) error {
	seen[e] = true

	switch {
	case e.Cause != nil:
		if !seen[e.Cause] {
			if err := printChain(w, e.Cause, print, seen); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "\nThe above exception was the direct cause of the following exception:\n\n"); err != nil {
				return err
			}
		}
	case e.Context != nil && !e.SuppressContext:
		if !seen[e.Context] {
			if err := printChain(w, e.Context, print, seen); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "\nDuring handling of the above exception, another exception occurred:\n\n"); err != nil {
				return err
			}
		}
	}

	return print(w, e)
}
