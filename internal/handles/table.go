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

// Package handles vends the opaque HandleID values a filesystem hands the
// kernel from OpenFile/OpenDir/CreateFile, and maps them back to the real
// resource (an open file descriptor or directory stream) on every
// follow-up op that names that handle (spec §3, "File handle").
package handles

import (
	"sync"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/passthroughfuse/internal/sysfd"
)

// File is an open file handle: an owned, readable/writable descriptor
// distinct from the path-only descriptor its inode.Record holds, since
// O_PATH descriptors cannot be read, written, or fsynced directly.
type File struct {
	FD *sysfd.FD
}

// Dir is an open directory handle: an owned directory stream.
type Dir struct {
	Stream *sysfd.DirStream
}

// Table hands out HandleIDs and maps them back to the File or Dir they
// name. It is the single owner of every handle it holds; Close (via
// ReleaseFileHandle/ReleaseDirHandle) is the only way a handle's
// descriptor is ever closed.
type Table struct {
	mu    sync.Mutex
	next  uint64
	files map[fuseops.HandleID]*File
	dirs  map[fuseops.HandleID]*Dir
}

// NewTable returns an empty handle table. Handle 0 is never issued so
// that a zero-value HandleID reliably means "no handle."
func NewTable() *Table {
	return &Table{next: 1, files: make(map[fuseops.HandleID]*File), dirs: make(map[fuseops.HandleID]*Dir)}
}

func (t *Table) allocate() fuseops.HandleID {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := fuseops.HandleID(t.next)
	t.next++
	return id
}

// PutFile registers fd as a new open file handle and returns its ID.
func (t *Table) PutFile(fd *sysfd.FD) fuseops.HandleID {
	id := t.allocate()
	t.mu.Lock()
	t.files[id] = &File{FD: fd}
	t.mu.Unlock()
	return id
}

// PutDir registers stream as a new open directory handle and returns its
// ID.
func (t *Table) PutDir(stream *sysfd.DirStream) fuseops.HandleID {
	id := t.allocate()
	t.mu.Lock()
	t.dirs[id] = &Dir{Stream: stream}
	t.mu.Unlock()
	return id
}

// File returns the File registered under id, or nil if there isn't one.
func (t *Table) File(id fuseops.HandleID) *File {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.files[id]
}

// Dir returns the Dir registered under id, or nil if there isn't one.
func (t *Table) Dir(id fuseops.HandleID) *Dir {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dirs[id]
}

// ReleaseFile removes and closes the file handle registered under id.
func (t *Table) ReleaseFile(id fuseops.HandleID) {
	t.mu.Lock()
	f, ok := t.files[id]
	delete(t.files, id)
	t.mu.Unlock()
	if ok {
		f.FD.Close()
	}
}

// ReleaseDir removes and closes the directory handle registered under id.
func (t *Table) ReleaseDir(id fuseops.HandleID) {
	t.mu.Lock()
	d, ok := t.dirs[id]
	delete(t.dirs, id)
	t.mu.Unlock()
	if ok {
		d.Stream.Close()
	}
}
