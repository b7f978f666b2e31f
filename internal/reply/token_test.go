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

package reply_test

import (
	"bytes"
	"log/slog"
	"syscall"
	"testing"

	"github.com/jacobsa/passthroughfuse/internal/fserrors"
	"github.com/jacobsa/passthroughfuse/internal/reply"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestSuccessReplyIsNilError(t *testing.T) {
	tok := reply.New("LookUpInode")
	err := tok.Success()
	require.NoError(t, err)
	assert.True(t, tok.Replied())
}

func TestFailReplyMapsErrno(t *testing.T) {
	tok := reply.New("GetInodeAttributes")
	err := tok.Fail(fserrors.FromErrno(syscall.ENOENT))
	assert.Equal(t, syscall.ENOENT, err)
}

func TestNoneIsSuccessAlias(t *testing.T) {
	tok := reply.New("ForgetInode")
	assert.NoError(t, tok.None())
}

func TestDoubleReplyPanics(t *testing.T) {
	tok := reply.New("Unlink")
	_ = tok.Success()
	assert.Panics(t, func() { _ = tok.Success() })
}

func TestFinalizeOrDropIsNoopAfterReply(t *testing.T) {
	var buf bytes.Buffer
	tok := reply.New("FlushFile")
	_ = tok.Success()
	err := tok.FinalizeOrDrop(testLogger(&buf), nil)
	assert.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestFinalizeOrDropSynthesizesECOMMOnDrop(t *testing.T) {
	var buf bytes.Buffer
	tok := reply.New("ReadFile")
	err := tok.FinalizeOrDrop(testLogger(&buf), nil)
	assert.Equal(t, syscall.ECOMM, err)
	assert.Contains(t, buf.String(), "dropped reply")
	assert.True(t, tok.Replied())
}

func TestReplyFailureOrLogOnlyLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	tok := reply.New("Open")
	err := tok.ReplyFailureOrLog(testLogger(&buf), fserrors.OK)
	assert.NoError(t, err)
	assert.Empty(t, buf.String())

	var buf2 bytes.Buffer
	tok2 := reply.New("Open")
	err = tok2.ReplyFailureOrLog(testLogger(&buf2), fserrors.FromErrno(syscall.EACCES))
	assert.Equal(t, syscall.EACCES, err)
	assert.Contains(t, buf2.String(), "operation failed")
}

func TestReplyAlwaysOrLogLogsBothOutcomes(t *testing.T) {
	var buf bytes.Buffer
	tok := reply.New("Release")
	_ = tok.ReplyAlwaysOrLog(testLogger(&buf), fserrors.OK)
	assert.Contains(t, buf.String(), "operation completed")

	var buf2 bytes.Buffer
	tok2 := reply.New("Release")
	_ = tok2.ReplyAlwaysOrLog(testLogger(&buf2), fserrors.FromErrno(syscall.EIO))
	assert.Contains(t, buf2.String(), "operation failed")
}
