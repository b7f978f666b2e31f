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
	"time"
	"unsafe"

	"github.com/jacobsa/passthroughfuse/internal/fserrors"
	"golang.org/x/sys/unix"
)

// PathOnlyFlags are the flags used to open a stable, non-readable,
// non-writable reference to a filesystem object: O_PATH keeps the
// descriptor usable with the *at syscall family without granting read or
// write access, and O_NOFOLLOW ensures we never silently cross a symlink
// planted by a racing actor in the source tree (spec §1, "immune to
// symlink and rename races").
const PathOnlyFlags = unix.O_PATH | unix.O_NOFOLLOW | unix.O_CLOEXEC

// OpenAt opens name relative to dir.Int() (or AT_FDCWD-relative if dir is
// nil) with the given flags and mode.
func OpenAt(dir *FD, name string, flags int, mode uint32) (*FD, fserrors.Status) {
	dirfd := unix.AT_FDCWD
	if dir != nil {
		dirfd = dir.Int()
	}
	fd, err := unix.Openat(dirfd, name, flags|unix.O_CLOEXEC, mode)
	if err != nil {
		return nil, fserrors.Wrap("openat", err)
	}
	return NewFD(fd), fserrors.OK
}

// OpenPathOnly opens name relative to dir as a path-only, no-follow,
// close-on-exec descriptor (spec §3, "path-only descriptor").
func OpenPathOnly(dir *FD, name string) (*FD, fserrors.Status) {
	return OpenAt(dir, name, PathOnlyFlags, 0)
}

// Stat performs fstatat with AT_EMPTY_PATH against fd, i.e. an fstat of the
// descriptor itself without re-walking any path.
func Stat(fd *FD) (unix.Stat_t, fserrors.Status) {
	var st unix.Stat_t
	if err := unix.Fstatat(fd.Int(), "", &st, unix.AT_EMPTY_PATH); err != nil {
		return st, fserrors.Wrap("fstatat", err)
	}
	return st, fserrors.OK
}

// StatAt stats name relative to dir without following a trailing symlink.
func StatAt(dir *FD, name string) (unix.Stat_t, fserrors.Status) {
	var st unix.Stat_t
	if err := unix.Fstatat(dir.Int(), name, &st, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return st, fserrors.Wrap("fstatat", err)
	}
	return st, fserrors.OK
}

// Fchmod changes the mode of an open file descriptor.
func Fchmod(fd *FD, mode uint32) fserrors.Status {
	if err := unix.Fchmod(fd.Int(), mode); err != nil {
		return fserrors.Wrap("fchmod", err)
	}
	return fserrors.OK
}

// FchownEmptyPath changes ownership of fd via fchownat(fd, "", uid, gid,
// AT_EMPTY_PATH), matching spec's "fchownat empty-path no-follow". -1
// leaves a field unchanged.
func FchownEmptyPath(fd *FD, uid, gid int) fserrors.Status {
	if err := unix.Fchownat(fd.Int(), "", uid, gid, unix.AT_EMPTY_PATH|unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return fserrors.Wrap("fchownat", err)
	}
	return fserrors.OK
}

// Ftruncate sets the size of an open file descriptor.
func Ftruncate(fd *FD, size int64) fserrors.Status {
	if err := unix.Ftruncate(fd.Int(), size); err != nil {
		return fserrors.Wrap("ftruncate", err)
	}
	return fserrors.OK
}

// TimeSpec mirrors the three outcomes futimens accepts for each of atime
// and mtime: a concrete time, "now", or "leave unchanged".
type TimeSpec struct {
	Omit bool
	Now  bool
	Time time.Time
}

func (t TimeSpec) toUnix() unix.Timespec {
	switch {
	case t.Omit:
		return unix.Timespec{Sec: 0, Nsec: unix.UTIME_OMIT}
	case t.Now:
		return unix.Timespec{Sec: 0, Nsec: unix.UTIME_NOW}
	default:
		return unix.NsecToTimespec(t.Time.UnixNano())
	}
}

// Futimens sets atime/mtime on an open file descriptor.
func Futimens(fd *FD, atime, mtime TimeSpec) fserrors.Status {
	ts := []unix.Timespec{atime.toUnix(), mtime.toUnix()}
	if err := unix.UtimesNanoAt(fd.Int(), "", ts, unix.AT_EMPTY_PATH); err != nil {
		return fserrors.Wrap("futimens", err)
	}
	return fserrors.OK
}

// ReadlinkAt reads the target of the symlink at fd (AT_EMPTY_PATH). If the
// target exactly fills the read buffer, the result is ambiguous (it may
// have been truncated) and ok is false so the caller can reply
// name-too-long rather than silently truncate (spec §8).
func ReadlinkAt(fd *FD) (target string, ok bool, st fserrors.Status) {
	buf := make([]byte, 4096)
	n, err := unix.Readlinkat(fd.Int(), "", buf)
	if err != nil {
		st = fserrors.Wrap("readlinkat", err)
		return
	}
	if n == len(buf) {
		ok = false
		return
	}
	target = string(buf[:n])
	ok = true
	return
}

// MknodAt creates a device/special file node relative to dir.
func MknodAt(dir *FD, name string, mode uint32, dev int) fserrors.Status {
	if err := unix.Mknodat(dir.Int(), name, mode, dev); err != nil {
		return fserrors.Wrap("mknodat", err)
	}
	return fserrors.OK
}

// MkdirAt creates a directory relative to dir.
func MkdirAt(dir *FD, name string, mode uint32) fserrors.Status {
	if err := unix.Mkdirat(dir.Int(), name, mode); err != nil {
		return fserrors.Wrap("mkdirat", err)
	}
	return fserrors.OK
}

// UnlinkAt removes name relative to dir; rmdir selects AT_REMOVEDIR.
func UnlinkAt(dir *FD, name string, rmdir bool) fserrors.Status {
	var flags int
	if rmdir {
		flags = unix.AT_REMOVEDIR
	}
	if err := unix.Unlinkat(dir.Int(), name, flags); err != nil {
		return fserrors.Wrap("unlinkat", err)
	}
	return fserrors.OK
}

// SymlinkAt creates a symlink named name, relative to dir, pointing at target.
func SymlinkAt(target string, dir *FD, name string) fserrors.Status {
	if err := unix.Symlinkat(target, dir.Int(), name); err != nil {
		return fserrors.Wrap("symlinkat", err)
	}
	return fserrors.OK
}

// RenameAt2 moves (oldDir, oldName) to (newDir, newName) using renameat2,
// preserving the caller's RENAME_* flags (e.g. RENAME_NOREPLACE).
func RenameAt2(oldDir *FD, oldName string, newDir *FD, newName string, flags uint32) fserrors.Status {
	if err := unix.Renameat2(oldDir.Int(), oldName, newDir.Int(), newName, flags); err != nil {
		return fserrors.Wrap("renameat2", err)
	}
	return fserrors.OK
}

// LinkAt creates a new hard link named newName under newDir pointing at the
// object referenced by fd (AT_EMPTY_PATH source).
func LinkAt(fd *FD, newDir *FD, newName string) fserrors.Status {
	if err := unix.Linkat(fd.Int(), "", newDir.Int(), newName, unix.AT_EMPTY_PATH); err != nil {
		return fserrors.Wrap("linkat", err)
	}
	return fserrors.OK
}

// Dup duplicates fd; used by Flush to close a private copy of a file
// descriptor so close-time errors surface without closing the handle the
// kernel still holds open (spec §4.4, Flush).
func Dup(fd *FD) (*FD, fserrors.Status) {
	newfd, err := unix.Dup(fd.Int())
	if err != nil {
		return nil, fserrors.Wrap("dup", err)
	}
	return NewFD(newfd), fserrors.OK
}

// Fsync flushes fd's data and metadata (or just data, for datasync) to
// stable storage.
func Fsync(fd *FD, dataOnly bool) fserrors.Status {
	var err error
	if dataOnly {
		err = unix.Fdatasync(fd.Int())
	} else {
		err = unix.Fsync(fd.Int())
	}
	if err != nil {
		name := "fsync"
		if dataOnly {
			name = "fdatasync"
		}
		return fserrors.Wrap(name, err)
	}
	return fserrors.OK
}

// Statfs returns filesystem-wide statistics for fd (fstatvfs equivalent).
func Statfs(fd *FD) (unix.Statfs_t, fserrors.Status) {
	var st unix.Statfs_t
	if err := unix.Fstatfs(fd.Int(), &st); err != nil {
		return st, fserrors.Wrap("fstatfs", err)
	}
	return st, fserrors.OK
}

// Access checks path against mask using the real (not effective) uid/gid of
// the calling process, matching access(2) semantics. faccessat has no
// AT_EMPTY_PATH form, so callers pass the /proc/self/fd/<n> path.
func Access(path string, mask uint32) fserrors.Status {
	if err := unix.Access(path, mask); err != nil {
		return fserrors.Wrap("access", err)
	}
	return fserrors.OK
}

// Flock applies or releases an advisory whole-file lock.
func Flock(fd *FD, op int) fserrors.Status {
	if err := unix.Flock(fd.Int(), op); err != nil {
		return fserrors.Wrap("flock", err)
	}
	return fserrors.OK
}

// Fallocate preallocates [off, off+size) of fd.
func Fallocate(fd *FD, mode uint32, off, size int64) fserrors.Status {
	if err := unix.Fallocate(fd.Int(), mode, off, size); err != nil {
		return fserrors.Wrap("fallocate", err)
	}
	return fserrors.OK
}

// CopyFileRange copies up to length bytes from (srcFD, *srcOff) to
// (dstFD, *dstOff), advancing both offsets, and returns the number of bytes
// actually copied.
func CopyFileRange(srcFD *FD, srcOff *int64, dstFD *FD, dstOff *int64, length int, flags int) (int, fserrors.Status) {
	n, err := unix.CopyFileRange(srcFD.Int(), srcOff, dstFD.Int(), dstOff, length, flags)
	if err != nil {
		return 0, fserrors.Wrap("copy_file_range", err)
	}
	return n, fserrors.OK
}

// Lseek repositions fd and returns the new offset.
func Lseek(fd *FD, offset int64, whence int) (int64, fserrors.Status) {
	off, err := unix.Seek(fd.Int(), offset, whence)
	if err != nil {
		return 0, fserrors.Wrap("lseek", err)
	}
	return off, fserrors.OK
}

// FcntlGetlk fills lk with a lock that would conflict with the caller's
// requested lock, or leaves it as F_UNLCK if none would.
func FcntlGetlk(fd *FD, lk *unix.Flock_t) fserrors.Status {
	if err := unix.FcntlFlock(uintptr(fd.Int()), unix.F_GETLK, lk); err != nil {
		return fserrors.Wrap("fcntl(F_GETLK)", err)
	}
	return fserrors.OK
}

// FcntlSetlk applies lk, waiting for conflicting locks to clear iff wait is
// set (F_SETLKW vs F_SETLK).
func FcntlSetlk(fd *FD, lk *unix.Flock_t, wait bool) fserrors.Status {
	cmd := unix.F_SETLK
	name := "fcntl(F_SETLK)"
	if wait {
		cmd = unix.F_SETLKW
		name = "fcntl(F_SETLKW)"
	}
	if err := unix.FcntlFlock(uintptr(fd.Int()), cmd, lk); err != nil {
		return fserrors.Wrap(name, err)
	}
	return fserrors.OK
}

// Poll runs a non-blocking poll for the requested events on fd and returns
// the observed revents.
func Poll(fd *FD, events int16) (int16, fserrors.Status) {
	fds := []unix.PollFd{{Fd: int32(fd.Int()), Events: events}}
	_, err := unix.Poll(fds, 0)
	if err != nil {
		return 0, fserrors.Wrap("poll", err)
	}
	return fds[0].Revents, fserrors.OK
}

// fsIOCGetVersion is FS_IOC_GETVERSION, used to read the generation number
// of a file for NFS-style export support (spec §3, "generation").
const fsIOCGetVersion = unix.FS_IOC_GETVERSION

// IoctlGetVersion reads the inode generation number via the filesystem
// version ioctl.
func IoctlGetVersion(fd *FD) (uint32, fserrors.Status) {
	var version uint32
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd.Int()), fsIOCGetVersion, uintptr(unsafe.Pointer(&version)))
	if errno != 0 {
		return 0, fserrors.Wrap("ioctl(FS_IOC_GETVERSION)", errno)
	}
	return version, fserrors.OK
}
