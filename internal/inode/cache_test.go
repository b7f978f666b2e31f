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

package inode_test

import (
	"testing"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/passthroughfuse/internal/inode"
	"github.com/jacobsa/passthroughfuse/internal/sysfd"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sys/unix"
)

func TestCache(t *testing.T) { suite.Run(t, new(CacheTest)) }

type CacheTest struct {
	suite.Suite
	dir   string
	dirFD *sysfd.FD
	cache *inode.Cache
}

func (t *CacheTest) SetupTest() {
	t.dir = t.T().TempDir()
	fd, st := sysfd.OpenPathOnly(nil, t.dir)
	t.Require().True(st.Ok())
	stat, st := sysfd.Stat(fd)
	t.Require().True(st.Ok())
	t.dirFD = fd
	t.cache = inode.New(fd, stat.Dev, stat.Ino)
}

func (t *CacheTest) openChild(name string) *sysfd.FD {
	fd, st := sysfd.OpenAt(t.dirFD, name, unix.O_RDWR|unix.O_CREAT, 0644)
	t.Require().True(st.Ok())
	return fd
}

func (t *CacheTest) TestRootHandleIsReservedConstant() {
	root := t.cache.Root()
	t.Require().NotNil(root)
	t.Same(root, t.cache.RecordFromHandle(fuseops.RootInodeID))
}

func (t *CacheTest) TestInsertThenLookupReturnsSameRecord() {
	st := sysfd.MknodAt(t.dirFD, "f", unix.S_IFREG|0644, 0)
	t.Require().True(st.Ok())
	stat, st := sysfd.StatAt(t.dirFD, "f")
	t.Require().True(st.Ok())

	fd, st := sysfd.OpenPathOnly(t.dirFD, "f")
	t.Require().True(st.Ok())
	rec := t.cache.Insert(stat.Dev, stat.Ino, fd)
	t.EqualValues(1, rec.RefCount())

	found, ok := t.cache.Lookup(stat.Dev, stat.Ino)
	t.Require().True(ok)
	t.Same(rec, found)
}

func (t *CacheTest) TestRepeatedInsertIncrementsRefCountAndClosesDuplicateFD() {
	st := sysfd.MknodAt(t.dirFD, "g", unix.S_IFREG|0644, 0)
	t.Require().True(st.Ok())
	stat, st := sysfd.StatAt(t.dirFD, "g")
	t.Require().True(st.Ok())

	fd1, st := sysfd.OpenPathOnly(t.dirFD, "g")
	t.Require().True(st.Ok())
	rec1 := t.cache.Insert(stat.Dev, stat.Ino, fd1)

	fd2, st := sysfd.OpenPathOnly(t.dirFD, "g")
	t.Require().True(st.Ok())
	rec2 := t.cache.Insert(stat.Dev, stat.Ino, fd2)

	t.Same(rec1, rec2)
	t.EqualValues(2, rec1.RefCount())
}

func (t *CacheTest) TestHandleForRoundTripsThroughRecordFromHandle() {
	st := sysfd.MknodAt(t.dirFD, "h", unix.S_IFREG|0644, 0)
	t.Require().True(st.Ok())
	stat, st := sysfd.StatAt(t.dirFD, "h")
	t.Require().True(st.Ok())
	fd, st := sysfd.OpenPathOnly(t.dirFD, "h")
	t.Require().True(st.Ok())
	rec := t.cache.Insert(stat.Dev, stat.Ino, fd)

	id := inode.HandleFor(rec)
	t.NotEqual(fuseops.RootInodeID, id)
	t.Same(rec, t.cache.RecordFromHandle(id))
}

func (t *CacheTest) TestUnrefToZeroRemovesFromCache() {
	st := sysfd.MknodAt(t.dirFD, "i", unix.S_IFREG|0644, 0)
	t.Require().True(st.Ok())
	stat, st := sysfd.StatAt(t.dirFD, "i")
	t.Require().True(st.Ok())
	fd, st := sysfd.OpenPathOnly(t.dirFD, "i")
	t.Require().True(st.Ok())
	rec := t.cache.Insert(stat.Dev, stat.Ino, fd)

	t.cache.Ref(rec, 1)
	t.EqualValues(2, rec.RefCount())

	t.cache.Unref(rec, 1)
	_, ok := t.cache.Lookup(stat.Dev, stat.Ino)
	t.True(ok, "still referenced once, should remain cached")

	t.cache.Unref(rec, 1)
	_, ok = t.cache.Lookup(stat.Dev, stat.Ino)
	t.False(ok, "reference count reached zero, should be evicted")
}

func (t *CacheTest) TestUnrefBelowCountPanics() {
	st := sysfd.MknodAt(t.dirFD, "underflow", unix.S_IFREG|0644, 0)
	t.Require().True(st.Ok())
	stat, st := sysfd.StatAt(t.dirFD, "underflow")
	t.Require().True(st.Ok())
	fd, st := sysfd.OpenPathOnly(t.dirFD, "underflow")
	t.Require().True(st.Ok())
	rec := t.cache.Insert(stat.Dev, stat.Ino, fd)

	t.Panics(func() { t.cache.Unref(rec, 2) }, "forgetting more references than were ever handed out is a bookkeeping bug")
}

func (t *CacheTest) TestSameDeviceRejectsForeignDevice() {
	t.True(t.cache.SameDevice(t.cache.RootDev()))
	t.False(t.cache.SameDevice(t.cache.RootDev() + 1))
}

func (t *CacheTest) TestGenerationDoesNotPanicWhenUnsupported() {
	fd := t.openChild("j")
	rec := inode.NewRecord(1, 2, fd)
	// FS_IOC_GETVERSION is not implemented by most local filesystems
	// backing a throwaway tmp dir (e.g. tmpfs, overlayfs); either it
	// returns some uint32 or the ioctl fails and we fall back to 0. Both
	// are valid generations; the call must not panic or hang.
	_ = rec.Generation()
}
