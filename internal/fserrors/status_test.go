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

package fserrors_test

import (
	"syscall"
	"testing"

	"github.com/jacobsa/passthroughfuse/internal/fserrors"
	"github.com/stretchr/testify/assert"
)

func TestKindToErrnoMapping(t *testing.T) {
	cases := []struct {
		kind  fserrors.Kind
		errno syscall.Errno
	}{
		{fserrors.KindInvalidArgument, syscall.EINVAL},
		{fserrors.KindDeadlineExceeded, syscall.ETIMEDOUT},
		{fserrors.KindNotFound, syscall.ENOENT},
		{fserrors.KindAlreadyExists, syscall.EEXIST},
		{fserrors.KindPermissionDenied, syscall.EPERM},
		{fserrors.KindUnauthenticated, syscall.EPERM},
		{fserrors.KindOutOfRange, syscall.ERANGE},
		{fserrors.KindFailedPrecondition, syscall.EBUSY},
		{fserrors.KindResourceExhausted, syscall.ENOSPC},
		{fserrors.KindCancelled, syscall.ECANCELED},
		{fserrors.KindAborted, syscall.EDEADLK},
		{fserrors.KindUnimplemented, syscall.ENOSYS},
		{fserrors.KindUnavailable, syscall.EAGAIN},
		{fserrors.KindDataLoss, syscall.ENOTRECOVERABLE},
		{fserrors.KindInternal, syscall.ELIBBAD},
		{fserrors.KindUnknown, syscall.EPROTO},
	}
	for _, tc := range cases {
		st := fserrors.New(tc.kind, "boom")
		assert.Equal(t, tc.errno, st.Errno(), tc.kind.String())
	}
}

func TestFromErrnoPreservesExactErrno(t *testing.T) {
	st := fserrors.FromErrno(syscall.ENOTEMPTY)
	assert.Equal(t, syscall.ENOTEMPTY, st.Errno())
	assert.False(t, st.Ok())
}

func TestOKIsZeroValue(t *testing.T) {
	var st fserrors.Status
	assert.True(t, st.Ok())
	assert.Equal(t, fserrors.KindOK, st.Kind())
}

func TestWrapNilIsOK(t *testing.T) {
	assert.True(t, fserrors.Wrap("openat", nil).Ok())
}

func TestErrnoNameRoundTrip(t *testing.T) {
	for _, errno := range []syscall.Errno{
		syscall.ENOENT, syscall.EEXIST, syscall.EIO, syscall.ENOTEMPTY,
		syscall.ERANGE, syscall.ENAMETOOLONG, syscall.ENODATA,
	} {
		name := fserrors.ErrnoName(errno)
		got, ok := fserrors.ParseErrnoName(name)
		assert.True(t, ok)
		assert.Equal(t, errno, got)
	}
}

func TestErrnoNameUnknownRoundTrip(t *testing.T) {
	const weird = syscall.Errno(12345)
	name := fserrors.ErrnoName(weird)
	assert.Equal(t, "UNKNOWN (12345)", name)

	got, ok := fserrors.ParseErrnoName(name)
	assert.True(t, ok)
	assert.Equal(t, weird, got)
}
