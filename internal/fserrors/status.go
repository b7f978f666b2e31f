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

// Package fserrors implements the error model shared by every layer of the
// passthrough filesystem core: an abstract error Kind plus an optional
// concrete syscall.Errno payload, so that a syscall failure can be carried
// from the point it occurred all the way to the reply sent to the kernel
// without losing the exact errno.
package fserrors

import (
	"fmt"
	"syscall"
)

// Kind is an abstract error classification, isomorphic to a small set of
// well-known outcomes a filesystem operation can have. It is independent of
// any particular OS error number so that callers that don't care about the
// concrete errno can still branch on Kind.
type Kind int

const (
	// KindOK is the zero value: no error.
	KindOK Kind = iota
	KindInvalidArgument
	KindDeadlineExceeded
	KindNotFound
	KindAlreadyExists
	KindPermissionDenied
	KindUnauthenticated
	KindOutOfRange
	KindFailedPrecondition
	KindResourceExhausted
	KindCancelled
	KindAborted
	KindUnimplemented
	KindUnavailable
	KindDataLoss
	KindInternal
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "OK"
	case KindInvalidArgument:
		return "INVALID_ARGUMENT"
	case KindDeadlineExceeded:
		return "DEADLINE_EXCEEDED"
	case KindNotFound:
		return "NOT_FOUND"
	case KindAlreadyExists:
		return "ALREADY_EXISTS"
	case KindPermissionDenied:
		return "PERMISSION_DENIED"
	case KindUnauthenticated:
		return "UNAUTHENTICATED"
	case KindOutOfRange:
		return "OUT_OF_RANGE"
	case KindFailedPrecondition:
		return "FAILED_PRECONDITION"
	case KindResourceExhausted:
		return "RESOURCE_EXHAUSTED"
	case KindCancelled:
		return "CANCELLED"
	case KindAborted:
		return "ABORTED"
	case KindUnimplemented:
		return "UNIMPLEMENTED"
	case KindUnavailable:
		return "UNAVAILABLE"
	case KindDataLoss:
		return "DATA_LOSS"
	case KindInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// kindErrno is the mapping used when a Status carries no explicit errno
// payload and one must be synthesized from the Kind alone. See spec §4.2.
var kindErrno = map[Kind]syscall.Errno{
	KindInvalidArgument:    syscall.EINVAL,
	KindDeadlineExceeded:   syscall.ETIMEDOUT,
	KindNotFound:           syscall.ENOENT,
	KindAlreadyExists:      syscall.EEXIST,
	KindPermissionDenied:   syscall.EPERM,
	KindUnauthenticated:    syscall.EPERM,
	KindOutOfRange:         syscall.ERANGE,
	KindFailedPrecondition: syscall.EBUSY,
	KindResourceExhausted:  syscall.ENOSPC,
	KindCancelled:          syscall.ECANCELED,
	KindAborted:            syscall.EDEADLK,
	KindUnimplemented:      syscall.ENOSYS,
	KindUnavailable:        syscall.EAGAIN,
	KindDataLoss:           syscall.ENOTRECOVERABLE,
	KindInternal:           syscall.ELIBBAD,
	KindUnknown:            syscall.EPROTO,
}

// errnoKind is the reverse mapping, used by FromErrno to classify a raw
// syscall failure.
var errnoKind = map[syscall.Errno]Kind{
	syscall.EINVAL:         KindInvalidArgument,
	syscall.ETIMEDOUT:      KindDeadlineExceeded,
	syscall.ENOENT:         KindNotFound,
	syscall.EEXIST:         KindAlreadyExists,
	syscall.EPERM:          KindPermissionDenied,
	syscall.EACCES:         KindPermissionDenied,
	syscall.ERANGE:         KindOutOfRange,
	syscall.EBUSY:          KindFailedPrecondition,
	syscall.EXDEV:          KindFailedPrecondition,
	syscall.ENOSPC:         KindResourceExhausted,
	syscall.ECANCELED:      KindCancelled,
	syscall.EDEADLK:        KindAborted,
	syscall.ENOSYS:         KindUnimplemented,
	syscall.EAGAIN:         KindUnavailable,
	syscall.ENOTRECOVERABLE: KindDataLoss,
}

// Status is the error value threaded through the filesystem core. The zero
// Status is OK.
type Status struct {
	kind  Kind
	errno syscall.Errno
	// hasErrno records whether errno is a meaningful payload, distinct from
	// the zero value syscall.Errno(0) which would otherwise be indistinguishable
	// from "no payload".
	hasErrno bool
	msg      string
}

// OK is the zero Status, representing success.
var OK = Status{}

// Kind returns the Status's abstract classification.
func (s Status) Kind() Kind { return s.kind }

// Ok reports whether the Status represents success.
func (s Status) Ok() bool { return s.kind == KindOK }

// Error implements the error interface so that Status can be returned and
// compared like any other Go error.
func (s Status) Error() string {
	if s.Ok() {
		return "OK"
	}
	if s.msg != "" {
		return fmt.Sprintf("%s: %s (%s)", s.kind, s.msg, s.Errno())
	}
	return fmt.Sprintf("%s (%s)", s.kind, s.Errno())
}

// Errno returns the concrete system error number to report for this Status,
// reconstructing it from the Kind-to-errno table when no explicit payload
// was attached at construction time.
func (s Status) Errno() syscall.Errno {
	if !s.Ok() && s.hasErrno {
		return s.errno
	}
	if errno, ok := kindErrno[s.kind]; ok {
		return errno
	}
	return syscall.EPROTO
}

// New builds a Status of the given Kind with a human-readable message and no
// explicit errno payload; Errno() will fall back to the Kind-to-errno table.
func New(kind Kind, format string, args ...interface{}) Status {
	return Status{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// FromErrno classifies a raw errno into a Status, preserving the exact errno
// as the reply payload regardless of which Kind it was classified under.
func FromErrno(errno syscall.Errno) Status {
	if errno == 0 {
		return OK
	}
	kind, ok := errnoKind[errno]
	if !ok {
		kind = KindUnknown
	}
	return Status{kind: kind, errno: errno, hasErrno: true}
}

// Wrap classifies the failure of a named syscall, preserving the originating
// errno as the reply payload and recording the syscall name for diagnostics.
// Non-errno errors are classified as KindInternal.
func Wrap(syscallName string, err error) Status {
	if err == nil {
		return OK
	}
	var errno syscall.Errno
	if e, ok := err.(syscall.Errno); ok {
		errno = e
	} else {
		return Status{kind: KindInternal, msg: fmt.Sprintf("%s: %v", syscallName, err)}
	}
	st := FromErrno(errno)
	st.msg = syscallName
	return st
}

// ErrnoName returns the canonical textual name of errno (e.g. "ENOENT"), or
// "UNKNOWN (<n>)" if the number is not one we recognize. This is the
// textual form of the rus.har.mn/pafs/status/errno error payload (spec §6).
func ErrnoName(errno syscall.Errno) string {
	if name, ok := errnoNames[errno]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN (%d)", int(errno))
}

// ParseErrnoName is the inverse of ErrnoName: it recovers the syscall.Errno
// for a name previously produced by ErrnoName, including the "UNKNOWN (<n>)"
// form for numbers with no canonical name.
func ParseErrnoName(name string) (syscall.Errno, bool) {
	if errno, ok := nameErrnos[name]; ok {
		return errno, true
	}
	var n int
	if k, err := fmt.Sscanf(name, "UNKNOWN (%d)", &n); err == nil && k == 1 {
		return syscall.Errno(n), true
	}
	return 0, false
}
