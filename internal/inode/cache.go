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

package inode

import (
	"sync"
	"unsafe"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/passthroughfuse/internal/sysfd"
)

type key struct {
	dev uint64
	ino uint64
}

// Cache maps (device, inode) identity to the single live Record for that
// object, and separately maps the FUSE InodeID the kernel was handed back
// to that same Record (spec §3: "the kernel's InodeID for a non-root
// inode is the address of its Record"). It is the sole owner of every
// Record it holds; Records are only ever created and destroyed through
// Cache methods.
type Cache struct {
	mu      sync.Mutex
	byKey   map[key]*Record
	rootDev uint64
	rootRec *Record
}

// New constructs a Cache whose root entry is backed by rootFD, which must
// be an already-open path-only descriptor onto the mount's source
// directory.
func New(rootFD *sysfd.FD, rootDev, rootIno uint64) *Cache {
	root := NewRecord(rootDev, rootIno, rootFD)
	c := &Cache{
		byKey:   make(map[key]*Record),
		rootDev: rootDev,
		rootRec: root,
	}
	c.byKey[key{rootDev, rootIno}] = root
	return c
}

// Root returns the Record backing the mount root, whose FUSE InodeID is
// always fuseops.RootInodeID regardless of the address trick used for
// every other inode.
func (c *Cache) Root() *Record { return c.rootRec }

// RootDev returns the device number of the mount root, used to detect
// attempts to cross a device boundary the passthrough filesystem refuses
// to span (spec §5, "Non-goals": multi-device source trees).
func (c *Cache) RootDev() uint64 { return c.rootDev }

// SameDevice reports whether dev matches the root's device. Any object
// outside of the root device cannot be assigned a Record: spec requires
// a multi-device-spanning lookup to fail its precondition rather than
// silently produce aliasing (dev, ino) collisions across filesystems.
func (c *Cache) SameDevice(dev uint64) bool {
	return dev == c.rootDev
}

// Insert records a reference to the object identified by (dev, ino),
// backed by fd if this is the first time the Cache has seen it. If a
// Record already exists for (dev, ino), fd is redundant (we already hold
// an equivalent path-only descriptor) and is closed; the existing
// Record's reference count is incremented by one instead.
//
// The returned Record's FUSE-visible InodeID is HandleFor(record) unless
// it is the Cache's root, in which case the kernel already knows it as
// fuseops.RootInodeID.
func (c *Cache) Insert(dev, ino uint64, fd *sysfd.FD) *Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key{dev, ino}
	if existing, ok := c.byKey[k]; ok {
		fd.Close()
		existing.addRef(1)
		return existing
	}

	r := NewRecord(dev, ino, fd)
	c.byKey[k] = r
	return r
}

// Ref increments rec's reference count by n without creating a new
// Record, for replies (e.g. ReadDirPlus) that hand the kernel additional
// references to an object the Cache already tracks.
func (c *Cache) Ref(rec *Record, n uint64) {
	if n == 0 {
		return
	}
	rec.addRef(n)
}

// Unref applies a ForgetInode of n references to rec. If the reference
// count reaches zero, rec is removed from the Cache and its descriptor is
// closed; the caller must not use rec again afterward. n exceeding rec's
// current count panics rather than underflow it -- see Record.forget.
func (c *Cache) Unref(rec *Record, n uint64) {
	if !rec.forget(n) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byKey, key{rec.Dev(), rec.Ino()})
	rec.close()
}

// Lookup returns the Record for (dev, ino) if the Cache already holds one,
// without affecting its reference count.
func (c *Cache) Lookup(dev, ino uint64) (*Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.byKey[key{dev, ino}]
	return r, ok
}

// HandleFor returns the FUSE InodeID for rec. Per spec §3, every
// non-root Record's InodeID is the address of the Record itself, so that
// RecordFromHandle is a pure pointer cast with no lookup required; the
// Cache's (dev, ino) map exists purely to deduplicate concurrent lookups
// of the same underlying object, not to resolve InodeIDs back to Records.
func HandleFor(rec *Record) fuseops.InodeID {
	return fuseops.InodeID(uintptr(unsafe.Pointer(rec)))
}

// RecordFromHandle recovers the Record a FUSE InodeID was minted from.
// The root Record is special-cased since fuseops.RootInodeID (1) is a
// kernel-reserved constant, not a real address.
func (c *Cache) RecordFromHandle(id fuseops.InodeID) *Record {
	if id == fuseops.RootInodeID {
		return c.rootRec
	}
	return (*Record)(unsafe.Pointer(uintptr(id)))
}
