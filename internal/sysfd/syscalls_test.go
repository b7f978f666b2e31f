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

package sysfd_test

import (
	"testing"

	"github.com/jacobsa/passthroughfuse/internal/sysfd"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sys/unix"
)

func TestSysfd(t *testing.T) { suite.Run(t, new(SysfdTest)) }

////////////////////////////////////////////////////////////////////////
// Boilerplate
////////////////////////////////////////////////////////////////////////

type SysfdTest struct {
	suite.Suite
	dir   string
	dirFD *sysfd.FD
}

func (t *SysfdTest) SetupTest() {
	t.dir = t.T().TempDir()
	fd, st := sysfd.OpenPathOnly(nil, t.dir)
	t.Require().True(st.Ok())
	t.dirFD = fd
}

func (t *SysfdTest) TearDownTest() {
	t.dirFD.Close()
}

////////////////////////////////////////////////////////////////////////
// Tests
////////////////////////////////////////////////////////////////////////

func (t *SysfdTest) TestMkdirAndStatAt() {
	st := sysfd.MkdirAt(t.dirFD, "child", 0755)
	t.Require().True(st.Ok())

	stat, st := sysfd.StatAt(t.dirFD, "child")
	t.Require().True(st.Ok())
	t.True(stat.Mode&unix.S_IFDIR != 0)
}

func (t *SysfdTest) TestOpenAtCreateWriteReadBack() {
	fd, st := sysfd.OpenAt(t.dirFD, "file", unix.O_RDWR|unix.O_CREAT, 0644)
	t.Require().True(st.Ok())
	defer fd.Close()

	n, err := unix.Write(fd.Int(), []byte("hello"))
	t.Require().NoError(err)
	t.Equal(5, n)

	stat, st := sysfd.Stat(fd)
	t.Require().True(st.Ok())
	t.EqualValues(5, stat.Size)
}

func (t *SysfdTest) TestSymlinkAndReadlinkAt() {
	st := sysfd.SymlinkAt("target-value", t.dirFD, "link")
	t.Require().True(st.Ok())

	linkFD, st := sysfd.OpenPathOnly(t.dirFD, "link")
	t.Require().True(st.Ok())
	defer linkFD.Close()

	target, ok, st := sysfd.ReadlinkAt(linkFD)
	t.Require().True(st.Ok())
	t.True(ok)
	t.Equal("target-value", target)
}

func (t *SysfdTest) TestRenameAt2() {
	st := sysfd.MkdirAt(t.dirFD, "old-name", 0755)
	t.Require().True(st.Ok())

	st = sysfd.RenameAt2(t.dirFD, "old-name", t.dirFD, "new-name", 0)
	t.Require().True(st.Ok())

	_, st = sysfd.StatAt(t.dirFD, "old-name")
	t.False(st.Ok())

	_, st = sysfd.StatAt(t.dirFD, "new-name")
	t.True(st.Ok())
}

func (t *SysfdTest) TestUnlinkAtAndRmdir() {
	st := sysfd.MknodAt(t.dirFD, "plain", unix.S_IFREG|0644, 0)
	t.Require().True(st.Ok())
	st = sysfd.UnlinkAt(t.dirFD, "plain", false)
	t.Require().True(st.Ok())

	st = sysfd.MkdirAt(t.dirFD, "subdir", 0755)
	t.Require().True(st.Ok())
	st = sysfd.UnlinkAt(t.dirFD, "subdir", true)
	t.Require().True(st.Ok())
}

func (t *SysfdTest) TestLinkAtCreatesHardLink() {
	fd, st := sysfd.OpenAt(t.dirFD, "src", unix.O_RDWR|unix.O_CREAT, 0644)
	t.Require().True(st.Ok())
	defer fd.Close()

	pathOnly, st := sysfd.OpenPathOnly(t.dirFD, "src")
	t.Require().True(st.Ok())
	defer pathOnly.Close()

	st = sysfd.LinkAt(pathOnly, t.dirFD, "dst")
	t.Require().True(st.Ok())

	srcStat, st := sysfd.StatAt(t.dirFD, "src")
	t.Require().True(st.Ok())
	dstStat, st := sysfd.StatAt(t.dirFD, "dst")
	t.Require().True(st.Ok())
	t.Equal(srcStat.Ino, dstStat.Ino)
	t.EqualValues(2, dstStat.Nlink)
}

func (t *SysfdTest) TestFtruncateAndLseek() {
	fd, st := sysfd.OpenAt(t.dirFD, "trunc", unix.O_RDWR|unix.O_CREAT, 0644)
	t.Require().True(st.Ok())
	defer fd.Close()

	st = sysfd.Ftruncate(fd, 100)
	t.Require().True(st.Ok())

	off, st := sysfd.Lseek(fd, 0, unix.SEEK_END)
	t.Require().True(st.Ok())
	t.EqualValues(100, off)
}

func (t *SysfdTest) TestDirStreamListsEntries() {
	for _, name := range []string{"a", "b", "c"} {
		st := sysfd.MknodAt(t.dirFD, name, unix.S_IFREG|0644, 0)
		t.Require().True(st.Ok())
	}

	dirFD, st := sysfd.OpenAt(t.dirFD, ".", unix.O_RDONLY|unix.O_DIRECTORY, 0)
	t.Require().True(st.Ok())
	stream := sysfd.NewDirStream(dirFD)
	defer stream.Close()

	seen := map[string]bool{}
	for {
		entry, ok, st := stream.Next()
		t.Require().True(st.Ok())
		if !ok {
			break
		}
		seen[entry.Name] = true
	}
	for _, name := range []string{"a", "b", "c", ".", ".."} {
		t.True(seen[name], "missing entry %q", name)
	}
}

func (t *SysfdTest) TestDirStreamSeekResumesAfterEntry() {
	for _, name := range []string{"a", "b", "c"} {
		st := sysfd.MknodAt(t.dirFD, name, unix.S_IFREG|0644, 0)
		t.Require().True(st.Ok())
	}

	dirFD, st := sysfd.OpenAt(t.dirFD, ".", unix.O_RDONLY|unix.O_DIRECTORY, 0)
	t.Require().True(st.Ok())
	stream := sysfd.NewDirStream(dirFD)
	defer stream.Close()

	first, ok, st := stream.Next()
	t.Require().True(st.Ok())
	t.Require().True(ok)

	st = stream.Seek(first.Off)
	t.Require().True(st.Ok())

	second, ok, st := stream.Next()
	t.Require().True(st.Ok())
	t.Require().True(ok)
	t.NotEqual(first.Name, second.Name)
}

func (t *SysfdTest) TestCopyFileRange() {
	src, st := sysfd.OpenAt(t.dirFD, "src2", unix.O_RDWR|unix.O_CREAT, 0644)
	t.Require().True(st.Ok())
	defer src.Close()
	_, err := unix.Write(src.Int(), []byte("abcdef"))
	t.Require().NoError(err)

	dst, st := sysfd.OpenAt(t.dirFD, "dst2", unix.O_RDWR|unix.O_CREAT, 0644)
	t.Require().True(st.Ok())
	defer dst.Close()

	var srcOff, dstOff int64
	n, st := sysfd.CopyFileRange(src, &srcOff, dst, &dstOff, 6, 0)
	t.Require().True(st.Ok())
	t.Equal(6, n)

	stat, st := sysfd.Stat(dst)
	t.Require().True(st.Ok())
	t.EqualValues(6, stat.Size)
}

func (t *SysfdTest) TestAccessUsesProcPath() {
	fd, st := sysfd.OpenAt(t.dirFD, "accessible", unix.O_RDWR|unix.O_CREAT, 0644)
	t.Require().True(st.Ok())
	defer fd.Close()

	st = sysfd.Access(fd.ProcPath(), unix.R_OK)
	t.True(st.Ok())
}

func (t *SysfdTest) TestDupProducesIndependentDescriptor() {
	fd, st := sysfd.OpenAt(t.dirFD, "dupme", unix.O_RDWR|unix.O_CREAT, 0644)
	t.Require().True(st.Ok())
	defer fd.Close()

	dup, st := sysfd.Dup(fd)
	t.Require().True(st.Ok())
	t.NotEqual(fd.Int(), dup.Int())
	dup.Close()

	// The original remains usable after the dup is closed.
	stat, st := sysfd.Stat(fd)
	t.Require().True(st.Ok())
	t.EqualValues(0, stat.Size)
}
