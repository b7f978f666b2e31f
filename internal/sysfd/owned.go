// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sysfd provides scoped ownership of kernel file descriptors and
// directory stream handles, plus the thin typed syscall wrappers the
// filesystem core builds on. Every wrapper here returns an
// fserrors.Status rather than a bare error, so callers never have to
// re-derive the error Kind from a raw errno.
package sysfd

import (
	"fmt"
	"log"

	"golang.org/x/sys/unix"
)

// FD is a move-only owner of a numeric file descriptor: exactly one owner
// closes it. Copying an FD value would require duplicating the descriptor at
// the OS level, so FD is always passed and stored by pointer or by explicit
// Release.
type FD struct {
	fd     int
	closed bool
}

// NewFD takes ownership of an already-open descriptor.
func NewFD(fd int) *FD {
	return &FD{fd: fd}
}

// Int returns the underlying numeric descriptor. The caller must not close
// it directly; use Close or Release.
func (f *FD) Int() int {
	return f.fd
}

// ProcPath returns the /proc/self/fd/<n> path used to re-open this
// descriptor with different flags (spec §3, "File handle").
func (f *FD) ProcPath() string {
	return fmt.Sprintf("/proc/self/fd/%d", f.fd)
}

// Close releases the descriptor. Per spec §4.1 and §7, a close failure is
// unrecoverable: it is logged and the descriptor is leaked rather than
// propagated or retried.
func (f *FD) Close() {
	if f == nil || f.closed {
		return
	}
	f.closed = true
	if err := unix.Close(f.fd); err != nil {
		log.Printf("sysfd: close(fd=%d) failed, leaking descriptor: %v", f.fd, err)
	}
}

// Release hands ownership of the descriptor to the caller (e.g. to the
// kernel, via fi.Fh), returning the raw number without closing it.
func (f *FD) Release() int {
	f.closed = true
	return f.fd
}
