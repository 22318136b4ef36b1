// Copyright 2024 The Pyrt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux && !darwin

package heap

// mmapAnon falls back to a plain Go allocation on platforms where
// golang.org/x/sys/unix's mmap wrapper isn't available (e.g. Windows).
func mmapAnon(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func munmapAnon(buf []byte) error {
	return nil
}
