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

// Package inode tracks the filesystem objects the kernel currently holds a
// dentry/inode cache reference to. Each Record pins a path-only (O_PATH)
// descriptor onto a real inode, identified by (device, inode number) so
// that two lookups reaching the same underlying object -- by different
// paths, or the same path twice -- are recognized as the same Record
// instead of producing two independent, inconsistent handles (spec §3,
// "Inode record").
package inode

import (
	"fmt"
	"sync"

	"github.com/jacobsa/passthroughfuse/internal/sysfd"
	"golang.org/x/sys/unix"
)

// Record is one entry in the inode Cache: a kept-alive reference to an
// underlying filesystem object, plus the kernel's lookup-count-derived
// reference count that says when it's safe to let go of it.
//
// A Record's (Dev, Ino) pair never changes for the lifetime of the Record;
// the kernel is the one place that can tell us an object has been replaced
// (a new Lookup returning a path that now resolves to a different inode),
// and that always produces a new Record rather than mutating this one.
type Record struct {
	mu sync.Mutex

	dev uint64
	ino uint64

	fd *sysfd.FD // owned path-only descriptor

	// refcount mirrors the kernel's accumulated lookup count for this
	// inode: incremented on every Lookup/Create/Mknod/Mkdir/Symlink/Link
	// reply that hands the kernel a new reference, decremented by the
	// N in each ForgetInode. It reaches zero exactly when the kernel has
	// forgotten every reference it was ever given (spec §3, "Reference
	// count").
	refcount uint64

	// generation is lazily populated from FS_IOC_GETVERSION on first
	// access and cached, since the ioctl is only meaningful -- and only
	// cheap to assume stable -- for the lifetime of one Record (spec §3,
	// "Generation number").
	generationLoaded bool
	generation       uint64

	// poll is the single outstanding poll handle a client may have
	// registered against this inode's open file, if any (spec §4.4,
	// Poll). Only one can be outstanding per open file handle; a second
	// Poll call on the same handle replaces it.
	poll *sysfd.FD
}

// NewRecord constructs a Record with an initial reference count of 1,
// taking ownership of fd.
func NewRecord(dev, ino uint64, fd *sysfd.FD) *Record {
	return &Record{dev: dev, ino: ino, fd: fd, refcount: 1}
}

// Dev and Ino return the (device, inode) identity this Record was created
// with.
func (r *Record) Dev() uint64 { return r.dev }
func (r *Record) Ino() uint64 { return r.ino }

// FD returns the owned path-only descriptor for this object. Callers must
// not close it directly.
func (r *Record) FD() *sysfd.FD {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fd
}

// Generation returns this object's generation number, reading it from the
// kernel via ioctl on first use and caching the result thereafter. The
// ioctl is issued on a read-only descriptor reopened through the path-only
// descriptor's /proc/self/fd/<n> path, since an O_PATH descriptor does not
// accept it. An object that cannot be reopened that way, or a filesystem
// that doesn't support FS_IOC_GETVERSION (st not Ok), yields generation 0,
// which is the FUSE convention for "don't care."
func (r *Record) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generationLoaded {
		return r.generation
	}
	r.generationLoaded = true
	f, st := sysfd.OpenAt(nil, r.fd.ProcPath(), unix.O_RDONLY|unix.O_NONBLOCK|unix.O_NOCTTY, 0)
	if !st.Ok() {
		return r.generation
	}
	defer f.Close()
	if version, st := sysfd.IoctlGetVersion(f); st.Ok() {
		r.generation = uint64(version)
	}
	return r.generation
}

// RefCount returns the current kernel-visible reference count.
func (r *Record) RefCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refcount
}

// addRef increments the reference count by n, as when the kernel is handed
// n additional references to this inode in a single reply (spec allows
// ReadDirPlus to hand out many at once).
func (r *Record) addRef(n uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refcount += n
}

// forget decrements the reference count by n and reports whether it
// reached zero. n exceeding the current count means the kernel reported
// more references than we ever handed out -- an internal bookkeeping bug
// with no safe recovery, so it panics rather than let the count underflow
// (spec §7, "Cache underflow (Unref below count) is a bug and terminates
// the process via assertion"), matching the teacher's own
// lookupCount.Dec.
func (r *Record) forget(n uint64) (zero bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > r.refcount {
		panic(fmt.Sprintf("forget count exceeds reference count: %d vs. %d", n, r.refcount))
	}
	r.refcount -= n
	return r.refcount == 0
}

// SetPoll installs fd as the outstanding poll handle, closing and
// replacing any previous one.
func (r *Record) SetPoll(fd *sysfd.FD) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.poll != nil {
		r.poll.Close()
	}
	r.poll = fd
}

// Poll returns the currently outstanding poll handle, if any.
func (r *Record) Poll() *sysfd.FD {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.poll
}

// close releases the owned descriptor (and any outstanding poll handle).
// Called by the Cache exactly once, when the reference count reaches
// zero.
func (r *Record) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.poll != nil {
		r.poll.Close()
		r.poll = nil
	}
	r.fd.Close()
}
