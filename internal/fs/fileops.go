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
	"github.com/jacobsa/passthroughfuse/internal/sysfd"
	"golang.org/x/sys/unix"
)

// OpenFile re-opens the already-resolved inode through its
// /proc/self/fd/<n> magic symlink with the flags the kernel asked for,
// since the Record's own descriptor is path-only and cannot be read from
// or written to directly (spec §3, "File handle").
func (fs *FileSystem) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	tok := fs.token("OpenFile")
	rec := fs.cache.RecordFromHandle(op.Inode)

	fd, st := sysfd.OpenAt(nil, rec.FD().ProcPath(), int(op.Flags)&^unix.O_NOFOLLOW, 0)
	if !st.Ok() {
		return tok.Fail(st)
	}
	op.Handle = fs.handles.PutFile(fd)
	op.KeepPageCache = true
	return tok.Success()
}

func (fs *FileSystem) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	tok := fs.token("ReadFile")
	f := fs.handles.File(op.Handle)
	if f == nil {
		return tok.Fail(fserrors.New(fserrors.KindInternal, "unknown file handle"))
	}

	buf := make([]byte, op.Size)
	n, err := unix.Pread(f.FD.Int(), buf, op.Offset)
	if err != nil {
		return tok.Fail(fserrors.Wrap("pread", err))
	}
	op.Data = buf[:n]
	op.BytesRead = n
	return tok.Success()
}

func (fs *FileSystem) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) error {
	tok := fs.token("WriteFile")
	f := fs.handles.File(op.Handle)
	if f == nil {
		return tok.Fail(fserrors.New(fserrors.KindInternal, "unknown file handle"))
	}

	if _, err := unix.Pwrite(f.FD.Int(), op.Data, op.Offset); err != nil {
		return tok.Fail(fserrors.Wrap("pwrite", err))
	}
	return tok.Success()
}

func (fs *FileSystem) SyncFile(ctx context.Context, op *fuseops.SyncFileOp) error {
	tok := fs.token("SyncFile")
	f := fs.handles.File(op.Handle)
	if f == nil {
		return tok.Fail(fserrors.New(fserrors.KindInternal, "unknown file handle"))
	}
	return tok.ReplyFailureOrLog(fs.logger, sysfd.Fsync(f.FD, false))
}

// FlushFile is sent on every close(2), not just the last one for an
// inode (spec: "not necessarily one to one with opens"). A passthrough
// filesystem has no write-back cache of its own to flush, but some backing
// stores only report a failed write at close(2) time; per spec §4.4 we
// duplicate the handle's fd and close the duplicate, so any such error
// surfaces in our reply without closing the fd the kernel still holds open
// (original_source/pafs/page_align_fs.cc's Flush does the same dup+close).
func (fs *FileSystem) FlushFile(ctx context.Context, op *fuseops.FlushFileOp) error {
	tok := fs.token("FlushFile")
	f := fs.handles.File(op.Handle)
	if f == nil {
		return tok.Fail(fserrors.New(fserrors.KindInternal, "unknown file handle"))
	}

	dup, st := sysfd.Dup(f.FD)
	if !st.Ok() {
		return tok.Fail(st)
	}
	if err := unix.Close(dup.Release()); err != nil {
		return tok.Fail(fserrors.Wrap("close", err))
	}
	return tok.Success()
}

func (fs *FileSystem) ReleaseFileHandle(ctx context.Context, op *fuseops.ReleaseFileHandleOp) error {
	tok := fs.token("ReleaseFileHandle")
	fs.handles.ReleaseFile(op.Handle)
	return tok.None()
}
