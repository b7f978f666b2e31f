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
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/jacobsa/passthroughfuse/internal/fserrors"
	"github.com/jacobsa/passthroughfuse/internal/sysfd"
	"golang.org/x/sys/unix"
)

func (fs *FileSystem) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	tok := fs.token("OpenDir")
	rec := fs.cache.RecordFromHandle(op.Inode)

	fd, st := sysfd.OpenAt(nil, rec.FD().ProcPath(), unix.O_RDONLY|unix.O_DIRECTORY, 0)
	if !st.Ok() {
		return tok.Fail(st)
	}
	op.Handle = fs.handles.PutDir(sysfd.NewDirStream(fd))
	return tok.Success()
}

// direntType maps a getdents64 d_type byte to the fuseops.DirentType the
// kernel expects in a formatted directory entry.
func direntType(t uint8) fuseops.DirentType {
	switch t {
	case unix.DT_DIR:
		return fuseops.DT_Directory
	case unix.DT_REG:
		return fuseops.DT_File
	case unix.DT_LNK:
		return fuseops.DT_Link
	case unix.DT_FIFO:
		return fuseops.DT_FIFO
	case unix.DT_SOCK:
		return fuseops.DT_Socket
	case unix.DT_CHR:
		return fuseops.DT_Char
	case unix.DT_BLK:
		return fuseops.DT_Block
	default:
		return fuseops.DT_Unknown
	}
}

// ReadDir streams raw directory entries straight from the source
// directory's own getdents64 stream, preserving the kernel's d_off
// values as FUSE directory offsets so that seekdir/telldir/rewinddir
// semantics line up exactly (spec §4.4, "ReadDir").
func (fs *FileSystem) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	tok := fs.token("ReadDir")
	dir := fs.handles.Dir(op.Handle)
	if dir == nil {
		return tok.Fail(fserrors.New(fserrors.KindInternal, "unknown directory handle"))
	}

	if st := dir.Stream.Seek(int64(op.Offset)); !st.Ok() {
		return tok.Fail(st)
	}

	buf := make([]byte, op.Size)
	written := 0
	// resumeOffset is the seek cookie that would re-read the entry we're
	// about to consume; getdents64 only gives us the offset of the entry
	// *after* the one just read (entry.Off), so we must remember it one
	// step behind to be able to rewind onto a truncated entry.
	resumeOffset := int64(op.Offset)
	for {
		entry, ok, st := dir.Stream.Next()
		if !st.Ok() {
			return tok.Fail(st)
		}
		if !ok {
			break
		}

		n := fuseutil.WriteDirent(buf[written:], fuseops.Dirent{
			Offset: fuseops.DirOffset(entry.Off),
			Inode:  fuseops.InodeID(entry.Ino),
			Name:   entry.Name,
			Type:   direntType(entry.Type),
		})
		if n == 0 {
			// Didn't fit; rewind the stream to re-offer this entry on the
			// next ReadDir call with a fresh buffer.
			if st := dir.Stream.Seek(resumeOffset); !st.Ok() {
				return tok.Fail(st)
			}
			break
		}
		written += n
		resumeOffset = entry.Off
	}

	op.Data = buf[:written]
	return tok.Success()
}

func (fs *FileSystem) ReleaseDirHandle(ctx context.Context, op *fuseops.ReleaseDirHandleOp) error {
	tok := fs.token("ReleaseDirHandle")
	fs.handles.ReleaseDir(op.Handle)
	return tok.None()
}
