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

package sysfd

import (
	"encoding/binary"
	"log"

	"github.com/jacobsa/passthroughfuse/internal/fserrors"
	"golang.org/x/sys/unix"
)

// DirEntry is one raw directory entry, as returned by getdents64(2). Off is
// the kernel's own seek cookie for the entry immediately following this one;
// seeking the stream to it (via lseek) resumes iteration right after this
// entry, which is how ReadDir honors the kernel-supplied offset
// (spec §4.4, "Seek the stream to off").
type DirEntry struct {
	Ino  uint64
	Off  int64
	Type uint8
	Name string
}

// DirStream is a directory stream wrapping an open, directory-typed FD. It
// is the Go analogue of fdopendir(3): the descriptor is owned by the
// stream for its lifetime and closed on Close.
type DirStream struct {
	fd  *FD
	buf [8192]byte
	n   int // valid bytes remaining in buf
	pos int // read cursor within buf
}

// NewDirStream wraps fd (which must refer to a directory) as a DirStream.
// Ownership of fd passes to the DirStream.
func NewDirStream(fd *FD) *DirStream {
	return &DirStream{fd: fd}
}

// Fd returns the stream's underlying descriptor (dirfd(3)).
func (d *DirStream) Fd() *FD { return d.fd }

// Seek repositions the stream to the given offset, a cookie previously
// observed as a DirEntry.Off (or 0 for the beginning of the stream).
func (d *DirStream) Seek(off int64) fserrors.Status {
	d.n, d.pos = 0, 0
	if _, err := unix.Seek(d.fd.Int(), off, 0 /* SEEK_SET */); err != nil {
		return fserrors.Wrap("lseek", err)
	}
	return fserrors.OK
}

// linux_dirent64 layout (see getdents64(2)):
//
//	u64 d_ino
//	s64 d_off
//	u16 d_reclen
//	u8  d_type
//	char d_name[]
const direntHeaderSize = 19 // 8 + 8 + 2 + 1

// Next returns the next directory entry, or ok=false at end of stream.
func (d *DirStream) Next() (entry DirEntry, ok bool, st fserrors.Status) {
	if d.pos >= d.n {
		n, err := unix.Getdents(d.fd.Int(), d.buf[:])
		if err != nil {
			st = fserrors.Wrap("getdents64", err)
			return
		}
		if n == 0 {
			return // end of stream
		}
		d.n, d.pos = n, 0
	}

	rec := d.buf[d.pos:d.n]
	if len(rec) < direntHeaderSize {
		st = fserrors.New(fserrors.KindInternal, "short getdents64 record")
		return
	}
	ino := binary.LittleEndian.Uint64(rec[0:8])
	off := int64(binary.LittleEndian.Uint64(rec[8:16]))
	reclen := binary.LittleEndian.Uint16(rec[16:18])
	typ := rec[18]
	if int(reclen) > len(rec) || reclen < direntHeaderSize {
		st = fserrors.New(fserrors.KindInternal, "corrupt getdents64 reclen")
		return
	}
	nameBytes := rec[direntHeaderSize:reclen]
	if i := indexByte(nameBytes, 0); i >= 0 {
		nameBytes = nameBytes[:i]
	}
	name := string(nameBytes)

	d.pos += int(reclen)

	entry = DirEntry{Ino: ino, Off: off, Type: typ, Name: name}
	ok = true
	return
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// Close releases the directory stream's descriptor.
func (d *DirStream) Close() {
	if d == nil {
		return
	}
	d.fd.Close()
}

func init() {
	// Sanity check that our hand-rolled header size tracks the kernel's
	// linux_dirent64 layout; a mismatch here would silently corrupt name
	// parsing.
	if direntHeaderSize != 19 {
		log.Panicf("sysfd: direntHeaderSize drifted from linux_dirent64 layout")
	}
}
