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
	"os"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/passthroughfuse/internal/sysfd"
	"golang.org/x/sys/unix"
)

func (fs *FileSystem) MkDir(ctx context.Context, op *fuseops.MkDirOp) error {
	tok := fs.token("MkDir")
	parent := fs.cache.RecordFromHandle(op.Parent)

	if st := sysfd.MkdirAt(parent.FD(), op.Name, uint32(op.Mode.Perm())); !st.Ok() {
		return tok.Fail(st)
	}
	entry, st := fs.childEntry(parent, op.Name)
	if !st.Ok() {
		return tok.Fail(st)
	}
	op.Entry = entry
	return tok.Success()
}

func (fs *FileSystem) MkNode(ctx context.Context, op *fuseops.MkNodeOp) error {
	tok := fs.token("MkNode")
	parent := fs.cache.RecordFromHandle(op.Parent)

	mode := uint32(unix.S_IFREG) | uint32(op.Mode.Perm())
	switch {
	case op.Mode&os.ModeNamedPipe != 0:
		mode = uint32(unix.S_IFIFO) | uint32(op.Mode.Perm())
	case op.Mode&os.ModeSocket != 0:
		mode = uint32(unix.S_IFSOCK) | uint32(op.Mode.Perm())
	}

	if st := sysfd.MknodAt(parent.FD(), op.Name, mode, 0); !st.Ok() {
		return tok.Fail(st)
	}
	entry, st := fs.childEntry(parent, op.Name)
	if !st.Ok() {
		return tok.Fail(st)
	}
	op.Entry = entry
	return tok.Success()
}

func (fs *FileSystem) CreateFile(ctx context.Context, op *fuseops.CreateFileOp) error {
	tok := fs.token("CreateFile")
	parent := fs.cache.RecordFromHandle(op.Parent)

	flags := int(op.Flags) | unix.O_CREAT | unix.O_EXCL
	fd, st := sysfd.OpenAt(parent.FD(), op.Name, flags, uint32(op.Mode.Perm()))
	if !st.Ok() {
		return tok.Fail(st)
	}

	entry, st := fs.childEntry(parent, op.Name)
	if !st.Ok() {
		fd.Close()
		return tok.Fail(st)
	}

	op.Entry = entry
	op.Handle = fs.handles.PutFile(fd)
	return tok.Success()
}

func (fs *FileSystem) CreateLink(ctx context.Context, op *fuseops.CreateLinkOp) error {
	tok := fs.token("CreateLink")
	parent := fs.cache.RecordFromHandle(op.Parent)
	target := fs.cache.RecordFromHandle(op.Target)

	if st := sysfd.LinkAt(target.FD(), parent.FD(), op.Name); !st.Ok() {
		return tok.Fail(st)
	}
	entry, st := fs.childEntry(parent, op.Name)
	if !st.Ok() {
		return tok.Fail(st)
	}
	op.Entry = entry
	return tok.Success()
}

func (fs *FileSystem) CreateSymlink(ctx context.Context, op *fuseops.CreateSymlinkOp) error {
	tok := fs.token("CreateSymlink")
	parent := fs.cache.RecordFromHandle(op.Parent)

	if st := sysfd.SymlinkAt(op.Target, parent.FD(), op.Name); !st.Ok() {
		return tok.Fail(st)
	}
	entry, st := fs.childEntry(parent, op.Name)
	if !st.Ok() {
		return tok.Fail(st)
	}
	op.Entry = entry
	return tok.Success()
}

func (fs *FileSystem) Rename(ctx context.Context, op *fuseops.RenameOp) error {
	tok := fs.token("Rename")
	oldParent := fs.cache.RecordFromHandle(op.OldParent)
	newParent := fs.cache.RecordFromHandle(op.NewParent)

	st := sysfd.RenameAt2(oldParent.FD(), op.OldName, newParent.FD(), op.NewName, 0)
	if !st.Ok() {
		return tok.Fail(st)
	}
	return tok.Success()
}

func (fs *FileSystem) RmDir(ctx context.Context, op *fuseops.RmDirOp) error {
	tok := fs.token("RmDir")
	parent := fs.cache.RecordFromHandle(op.Parent)

	st := sysfd.UnlinkAt(parent.FD(), op.Name, true)
	if !st.Ok() {
		return tok.Fail(st)
	}
	return tok.Success()
}

func (fs *FileSystem) Unlink(ctx context.Context, op *fuseops.UnlinkOp) error {
	tok := fs.token("Unlink")
	parent := fs.cache.RecordFromHandle(op.Parent)

	st := sysfd.UnlinkAt(parent.FD(), op.Name, false)
	if !st.Ok() {
		return tok.Fail(st)
	}
	return tok.Success()
}
