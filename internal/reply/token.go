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

// Package reply implements the one-shot reply discipline every filesystem
// operation must follow: exactly one reply, ever, whether success or
// failure (spec §4.2). The jacobsa/fuse dispatch loop already enforces
// "exactly one reply" at the wire level by construction (a
// fuseutil.FileSystem method replies by returning a single error value),
// but that alone doesn't stop a handler from having a bug that returns
// along a path which forgot to classify its outcome, or from being
// refactored into multiple goroutines that race to reply. Token makes the
// discipline explicit and enforced: callers construct one Token per
// incoming op and thread it through handler logic, and a deferred
// FinalizeOrDrop guard answers a request whose handler returned without
// ever calling a Reply method. The handlers in internal/fs do not install
// that guard.
package reply

import (
	"fmt"
	"log/slog"
	"syscall"

	"github.com/jacobsa/passthroughfuse/internal/fserrors"
)

// Token tracks whether the single reply for one FUSE request has been
// produced yet. It is not safe for concurrent use by multiple goroutines
// replying to the same request; a single request should only ever be
// replied to from the goroutine the kernel dispatcher handed it to.
type Token struct {
	op      string
	replied bool
	status  fserrors.Status
}

// New returns a fresh, unreplied Token for the named operation (e.g.
// "LookUpInode"), used only for log messages.
func New(op string) *Token {
	return &Token{op: op}
}

// Op returns the operation name the Token was created for.
func (t *Token) Op() string { return t.op }

// Replied reports whether a Reply method has already fired.
func (t *Token) Replied() bool { return t.replied }

// Success records a successful reply. The caller is responsible for having
// already written any response payload (attributes, entry, handle, byte
// counts, ...) into the op struct before calling Success; Token only
// tracks that exactly one reply happened, not its payload.
func (t *Token) Success() error {
	return t.reply(fserrors.OK)
}

// None is Success under another name, for operations with no response
// payload at all (ForgetInode, FlushFile, ReleaseFileHandle, ...).
func (t *Token) None() error {
	return t.Success()
}

// Fail records a failed reply, mapping st to the syscall.Errno the kernel
// will see. Calling Fail with an Ok status is a programmer error; it is
// still honored as Success so a confused caller doesn't double-reply by
// retrying with the "right" call.
func (t *Token) Fail(st fserrors.Status) error {
	return t.reply(st)
}

func (t *Token) reply(st fserrors.Status) error {
	if t.replied {
		panic(fmt.Sprintf("reply: %s already replied (was %s, now %s)", t.op, t.status, st))
	}
	t.replied = true
	t.status = st
	if st.Ok() {
		return nil
	}
	return st.Errno()
}

// FinalizeOrDrop is a deferred guard around a handler invocation (no
// handler in internal/fs installs it):
//
//	tok := reply.New("LookUpInode")
//	defer func() { err = tok.FinalizeOrDrop(logger, err) }()
//
// If the handler replied through tok, FinalizeOrDrop is a no-op that
// returns err unchanged. If it did not -- a handler bug, an unclassified
// early return, a panic recovered upstream -- the request would otherwise
// hang forever waiting on a reply the kernel never receives. FinalizeOrDrop
// detects that, logs it loudly, and manufactures an ECOMM reply so the
// kernel at least unblocks the caller instead of wedging a FUSE request
// slot permanently.
func (t *Token) FinalizeOrDrop(logger *slog.Logger, err error) error {
	if t.replied {
		return err
	}
	logger.Error("dropped reply, synthesizing ECOMM", "op", t.op)
	t.replied = true
	t.status = fserrors.FromErrno(syscall.ECOMM)
	return t.status.Errno()
}

// ReplyFailureOrLog replies with st and, only if st is a failure, logs it
// at warn level. Use this for the common case: the kernel cares about the
// errno, and a failure is worth a line in the log, but success is routine
// and not worth logging (spec's policy helpers, §4.2).
func (t *Token) ReplyFailureOrLog(logger *slog.Logger, st fserrors.Status) error {
	if !st.Ok() {
		logger.Warn("operation failed", "op", t.op, "error", st.Error())
	}
	return t.reply(st)
}

// ReplyAlwaysOrLog replies with st and always logs the outcome, at debug
// level on success and warn on failure. Use this for operations whose
// return value the kernel mostly ignores (Release, Forget, FSync on
// close) where the only way anyone will ever learn about a failure is the
// log.
func (t *Token) ReplyAlwaysOrLog(logger *slog.Logger, st fserrors.Status) error {
	if st.Ok() {
		logger.Debug("operation completed", "op", t.op)
	} else {
		logger.Warn("operation failed", "op", t.op, "error", st.Error())
	}
	return t.reply(st)
}
