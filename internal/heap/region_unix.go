// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux || darwin

package heap

import "golang.org/x/sys/unix"

// mmapAnon and munmapAnon back each semispace with an anonymous mapping,
// the same way internal/core maps file-backed regions of an inferior's
// address space, except here the mapping is private, writable memory we
// allocate rather than a read-only view of someone else's process.
func mmapAnon(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
}

func munmapAnon(buf []byte) error {
	return unix.Munmap(buf)
}
