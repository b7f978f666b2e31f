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
	"bytes"
	"context"
	"syscall"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/passthroughfuse/internal/fserrors"
	"github.com/jacobsa/passthroughfuse/internal/sysfd"
)

func (fs *FileSystem) GetXattr(ctx context.Context, op *fuseops.GetXattrOp) error {
	tok := fs.token("GetXattr")
	rec := fs.cache.RecordFromHandle(op.Inode)

	value, st := sysfd.GetXattrViaProc(rec.FD(), op.Name)
	if !st.Ok() {
		return tok.Fail(st)
	}

	// Length == 0 is the kernel's "just tell me the size" probe (the
	// convention getfattr/rsync -X use); it always succeeds, reporting the
	// required size via Dst's length rather than tripping ERANGE (spec §8).
	if op.Length != 0 && uint32(len(value)) > op.Length {
		return tok.Fail(fserrors.FromErrno(syscall.ERANGE))
	}
	op.Dst = value
	return tok.Success()
}

func (fs *FileSystem) ListXattr(ctx context.Context, op *fuseops.ListXattrOp) error {
	tok := fs.token("ListXattr")
	rec := fs.cache.RecordFromHandle(op.Inode)

	names, st := sysfd.ListXattrViaProc(rec.FD())
	if !st.Ok() {
		return tok.Fail(st)
	}

	var buf bytes.Buffer
	for _, name := range names {
		buf.WriteString(name)
		buf.WriteByte(0)
	}

	// Length == 0 is the kernel's "just tell me the size" probe; it always
	// succeeds, reporting the required size via Dst's length rather than
	// tripping ERANGE (spec §8).
	if op.Length != 0 && uint32(buf.Len()) > op.Length {
		return tok.Fail(fserrors.FromErrno(syscall.ERANGE))
	}
	op.Dst = buf.Bytes()
	return tok.Success()
}

func (fs *FileSystem) SetXattr(ctx context.Context, op *fuseops.SetXattrOp) error {
	tok := fs.token("SetXattr")
	rec := fs.cache.RecordFromHandle(op.Inode)

	st := sysfd.SetXattrViaProc(rec.FD(), op.Name, op.Value, int(op.Flags))
	if !st.Ok() {
		return tok.Fail(st)
	}
	return tok.Success()
}

func (fs *FileSystem) RemoveXattr(ctx context.Context, op *fuseops.RemoveXattrOp) error {
	tok := fs.token("RemoveXattr")
	rec := fs.cache.RecordFromHandle(op.Inode)

	st := sysfd.RemoveXattrViaProc(rec.FD(), op.Name)
	if !st.Ok() {
		return tok.Fail(st)
	}
	return tok.Success()
}
