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
	"syscall"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/passthroughfuse/internal/fserrors"
	"github.com/jacobsa/passthroughfuse/internal/sysfd"
)

func (fs *FileSystem) ReadSymlink(ctx context.Context, op *fuseops.ReadSymlinkOp) error {
	tok := fs.token("ReadSymlink")
	rec := fs.cache.RecordFromHandle(op.Inode)

	target, ok, st := sysfd.ReadlinkAt(rec.FD())
	if !st.Ok() {
		return tok.Fail(st)
	}
	if !ok {
		return tok.Fail(fserrors.FromErrno(syscall.ENAMETOOLONG))
	}
	op.Target = target
	return tok.Success()
}

func (fs *FileSystem) StatFS(ctx context.Context, op *fuseops.StatFSOp) error {
	tok := fs.token("StatFS")
	rec := fs.cache.Root()

	st, status := sysfd.Statfs(rec.FD())
	if !status.Ok() {
		return tok.Fail(status)
	}

	op.BlockSize = uint32(st.Bsize)
	op.Blocks = st.Blocks
	op.BlocksFree = st.Bfree
	op.BlocksAvailable = st.Bavail
	op.IoSize = uint32(st.Bsize)
	op.Inodes = st.Files
	op.InodesFree = st.Ffree
	return tok.Success()
}

func (fs *FileSystem) Fallocate(ctx context.Context, op *fuseops.FallocateOp) error {
	tok := fs.token("Fallocate")
	f := fs.handles.File(op.Handle)
	if f == nil {
		return tok.Fail(fserrors.New(fserrors.KindInternal, "unknown file handle"))
	}

	st := sysfd.Fallocate(f.FD, op.Mode, int64(op.Offset), int64(op.Length))
	if !st.Ok() {
		return tok.Fail(st)
	}
	return tok.Success()
}
