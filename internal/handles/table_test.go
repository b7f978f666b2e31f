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

package handles

import (
	"testing"

	"github.com/jacobsa/passthroughfuse/internal/sysfd"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func openTempFD(t *testing.T) *sysfd.FD {
	t.Helper()
	fd, st := sysfd.OpenAt(nil, t.TempDir(), unix.O_PATH|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	require.True(t, st.Ok())
	return fd
}

func TestPutFileThenFileReturnsSameHandle(t *testing.T) {
	table := NewTable()
	fd := openTempFD(t)

	id := table.PutFile(fd)
	require.NotZero(t, id)

	f := table.File(id)
	require.NotNil(t, f)
	require.Same(t, fd, f.FD)
}

func TestUnknownHandleReturnsNil(t *testing.T) {
	table := NewTable()
	require.Nil(t, table.File(42))
	require.Nil(t, table.Dir(42))
}

func TestReleaseFileRemovesHandle(t *testing.T) {
	table := NewTable()
	id := table.PutFile(openTempFD(t))

	table.ReleaseFile(id)
	require.Nil(t, table.File(id))
}

func TestHandleIDsAreNeverZero(t *testing.T) {
	table := NewTable()
	for i := 0; i < 5; i++ {
		id := table.PutFile(openTempFD(t))
		require.NotZero(t, id)
	}
}

func TestPutDirThenDirReturnsSameHandle(t *testing.T) {
	table := NewTable()
	fd := openTempFD(t)
	stream := sysfd.NewDirStream(fd)

	id := table.PutDir(stream)
	d := table.Dir(id)
	require.NotNil(t, d)
	require.Same(t, stream, d.Stream)
}

func TestReleaseDirRemovesHandle(t *testing.T) {
	table := NewTable()
	fd := openTempFD(t)
	id := table.PutDir(sysfd.NewDirStream(fd))

	table.ReleaseDir(id)
	require.Nil(t, table.Dir(id))
}
