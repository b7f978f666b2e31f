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
	"os"
	"time"

	"github.com/jacobsa/fuse/fuseops"
	"golang.org/x/sys/unix"
)

// fileModeFromStat converts a raw stat mode word into the os.FileMode the
// fuseops API expects, preserving the permission bits and translating the
// type bits (spec §3, "Attributes").
func fileModeFromStat(mode uint32) os.FileMode {
	perm := os.FileMode(mode & 0777)
	switch mode & unix.S_IFMT {
	case unix.S_IFDIR:
		return perm | os.ModeDir
	case unix.S_IFLNK:
		return perm | os.ModeSymlink
	case unix.S_IFIFO:
		return perm | os.ModeNamedPipe
	case unix.S_IFSOCK:
		return perm | os.ModeSocket
	case unix.S_IFCHR:
		return perm | os.ModeDevice | os.ModeCharDevice
	case unix.S_IFBLK:
		return perm | os.ModeDevice
	default: // S_IFREG
		return perm
	}
}

// attributesFromStat builds the fuseops.InodeAttributes the kernel expects
// for an inode, from a raw stat_t plus this filesystem's uid/gid override
// policy and cached generation number.
func (fs *FileSystem) attributesFromStat(st unix.Stat_t, generation uint64) fuseops.InodeAttributes {
	uid := st.Uid
	if fs.cfg.Uid != nil {
		uid = *fs.cfg.Uid
	}
	gid := st.Gid
	if fs.cfg.Gid != nil {
		gid = *fs.cfg.Gid
	}

	return fuseops.InodeAttributes{
		Size:   uint64(st.Size),
		Nlink:  uint32(st.Nlink),
		Mode:   fileModeFromStat(st.Mode),
		Atime:  time.Unix(st.Atim.Sec, st.Atim.Nsec),
		Mtime:  time.Unix(st.Mtim.Sec, st.Mtim.Nsec),
		Ctime:  time.Unix(st.Ctim.Sec, st.Ctim.Nsec),
		Crtime: time.Unix(st.Ctim.Sec, st.Ctim.Nsec),
		Uid:    uid,
		Gid:    gid,
	}
}

func (fs *FileSystem) attrExpiration() time.Time {
	return fs.clock.Now().Add(fs.cfg.AttrTimeout)
}

func (fs *FileSystem) entryExpiration() time.Time {
	return fs.clock.Now().Add(fs.cfg.EntryTimeout)
}
