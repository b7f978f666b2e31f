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
	"github.com/jacobsa/passthroughfuse/internal/fserrors"
	"github.com/pkg/xattr"
	"golang.org/x/sys/unix"
)

// A handful of operations -- chmod, truncate, utimes, xattrs -- have no
// AT_EMPTY_PATH form against an O_PATH descriptor on Linux. The
// /proc/self/fd/<n> magic-symlink trick (FD.ProcPath) lets us perform them
// anyway, by path, without ever re-resolving the caller-visible name (spec
// §3, "File handle").

// ChmodViaProc changes the mode of the object fd refers to.
func ChmodViaProc(fd *FD, mode uint32) fserrors.Status {
	if err := unix.Chmod(fd.ProcPath(), mode); err != nil {
		return fserrors.Wrap("chmod", err)
	}
	return fserrors.OK
}

// TruncateViaProc resizes the object fd refers to.
func TruncateViaProc(fd *FD, size int64) fserrors.Status {
	if err := unix.Truncate(fd.ProcPath(), size); err != nil {
		return fserrors.Wrap("truncate", err)
	}
	return fserrors.OK
}

// UtimesViaProc sets atime/mtime on the object fd refers to.
func UtimesViaProc(fd *FD, atime, mtime TimeSpec) fserrors.Status {
	ts := []unix.Timespec{atime.toUnix(), mtime.toUnix()}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, fd.ProcPath(), ts, 0); err != nil {
		return fserrors.Wrap("utimensat", err)
	}
	return fserrors.OK
}

// SetXattrViaProc sets an extended attribute on the object fd refers to.
func SetXattrViaProc(fd *FD, name string, value []byte, flags int) fserrors.Status {
	var err error
	switch {
	case flags&unix.XATTR_CREATE != 0:
		err = xattr.SetWithFlags(fd.ProcPath(), name, value, xattr.XATTR_CREATE)
	case flags&unix.XATTR_REPLACE != 0:
		err = xattr.SetWithFlags(fd.ProcPath(), name, value, xattr.XATTR_REPLACE)
	default:
		err = xattr.Set(fd.ProcPath(), name, value)
	}
	if err != nil {
		return fserrors.Wrap("setxattr", err)
	}
	return fserrors.OK
}

// GetXattrViaProc reads the named extended attribute of the object fd
// refers to.
func GetXattrViaProc(fd *FD, name string) ([]byte, fserrors.Status) {
	value, err := xattr.Get(fd.ProcPath(), name)
	if err != nil {
		return nil, fserrors.Wrap("getxattr", err)
	}
	return value, fserrors.OK
}

// ListXattrViaProc lists the extended attribute names of the object fd
// refers to.
func ListXattrViaProc(fd *FD) ([]string, fserrors.Status) {
	names, err := xattr.List(fd.ProcPath())
	if err != nil {
		return nil, fserrors.Wrap("listxattr", err)
	}
	return names, fserrors.OK
}

// RemoveXattrViaProc removes the named extended attribute of the object
// fd refers to.
func RemoveXattrViaProc(fd *FD, name string) fserrors.Status {
	if err := xattr.Remove(fd.ProcPath(), name); err != nil {
		return fserrors.Wrap("removexattr", err)
	}
	return fserrors.OK
}
