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

package fs

import (
	"context"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/passthroughfuse/internal/fserrors"
	"github.com/jacobsa/passthroughfuse/internal/inode"
	"github.com/jacobsa/passthroughfuse/internal/sysfd"
)

// childEntry opens name under parent, verifies it stays on the root
// device (spec's multi-device-spanning precondition), inserts or
// refreshes its inode.Record, and fills out the ChildInodeEntry the
// kernel expects from Lookup/MkDir/CreateFile/CreateSymlink/CreateLink.
func (fs *FileSystem) childEntry(parent *inode.Record, name string) (fuseops.ChildInodeEntry, fserrors.Status) {
	var entry fuseops.ChildInodeEntry

	fd, st := sysfd.OpenPathOnly(parent.FD(), name)
	if !st.Ok() {
		return entry, st
	}

	stat, st := sysfd.Stat(fd)
	if !st.Ok() {
		fd.Close()
		return entry, st
	}

	if !fs.cache.SameDevice(stat.Dev) {
		fd.Close()
		return entry, fserrors.New(fserrors.KindFailedPrecondition, "child is on a different device than the mount root")
	}

	rec := fs.cache.Insert(stat.Dev, stat.Ino, fd)
	entry.Child = inode.HandleFor(rec)
	entry.Generation = fuseops.GenerationNumber(rec.Generation())
	entry.Attributes = fs.attributesFromStat(stat, rec.Generation())
	entry.AttributesExpiration = fs.attrExpiration()
	entry.EntryExpiration = fs.entryExpiration()
	return entry, fserrors.OK
}

func (fs *FileSystem) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	tok := fs.token("LookUpInode")
	parent := fs.cache.RecordFromHandle(op.Parent)

	entry, st := fs.childEntry(parent, op.Name)
	if !st.Ok() {
		return tok.Fail(st)
	}
	op.Entry = entry
	return tok.Success()
}

func (fs *FileSystem) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	tok := fs.token("GetInodeAttributes")
	rec := fs.cache.RecordFromHandle(op.Inode)

	stat, st := sysfd.Stat(rec.FD())
	if !st.Ok() {
		return tok.Fail(st)
	}

	op.Attributes = fs.attributesFromStat(stat, rec.Generation())
	op.AttributesExpiration = fs.attrExpiration()
	return tok.Success()
}

func (fs *FileSystem) SetInodeAttributes(ctx context.Context, op *fuseops.SetInodeAttributesOp) error {
	tok := fs.token("SetInodeAttributes")
	rec := fs.cache.RecordFromHandle(op.Inode)
	fd := rec.FD()

	if op.Mode != nil {
		if st := sysfd.ChmodViaProc(fd, uint32(*op.Mode)); !st.Ok() {
			return tok.Fail(st)
		}
	}
	if op.Size != nil {
		if st := sysfd.TruncateViaProc(fd, int64(*op.Size)); !st.Ok() {
			return tok.Fail(st)
		}
	}
	if op.Atime != nil || op.Mtime != nil {
		atime := sysfd.TimeSpec{Omit: true}
		if op.Atime != nil {
			atime = sysfd.TimeSpec{Time: *op.Atime}
		}
		mtime := sysfd.TimeSpec{Omit: true}
		if op.Mtime != nil {
			mtime = sysfd.TimeSpec{Time: *op.Mtime}
		}
		if st := sysfd.UtimesViaProc(fd, atime, mtime); !st.Ok() {
			return tok.Fail(st)
		}
	}

	stat, st := sysfd.Stat(fd)
	if !st.Ok() {
		return tok.Fail(st)
	}
	op.Attributes = fs.attributesFromStat(stat, rec.Generation())
	op.AttributesExpiration = fs.attrExpiration()
	return tok.Success()
}

func (fs *FileSystem) ForgetInode(ctx context.Context, op *fuseops.ForgetInodeOp) error {
	tok := fs.token("ForgetInode")
	rec := fs.cache.RecordFromHandle(op.Inode)
	fs.cache.Unref(rec, op.N)
	return tok.None()
}

func (fs *FileSystem) BatchForget(ctx context.Context, op *fuseops.BatchForgetOp) error {
	tok := fs.token("BatchForget")
	for _, e := range op.Entries {
		rec := fs.cache.RecordFromHandle(e.Inode)
		fs.cache.Unref(rec, e.N)
	}
	return tok.None()
}
