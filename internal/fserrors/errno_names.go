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

package fserrors

import "syscall"

// errnoNames covers the errno values this filesystem can plausibly produce;
// it need not be exhaustive over every errno the kernel defines, only those
// the core's syscall wrappers and error mapping (spec §4.2) can emit.
var errnoNames = map[syscall.Errno]string{
	syscall.EPERM:           "EPERM",
	syscall.ENOENT:          "ENOENT",
	syscall.EIO:             "EIO",
	syscall.ENXIO:           "ENXIO",
	syscall.EAGAIN:          "EAGAIN",
	syscall.ENOMEM:          "ENOMEM",
	syscall.EACCES:          "EACCES",
	syscall.EEXIST:          "EEXIST",
	syscall.EXDEV:           "EXDEV",
	syscall.ENODEV:          "ENODEV",
	syscall.ENOTDIR:         "ENOTDIR",
	syscall.EISDIR:          "EISDIR",
	syscall.EINVAL:          "EINVAL",
	syscall.ENFILE:          "ENFILE",
	syscall.EMFILE:          "EMFILE",
	syscall.EFBIG:           "EFBIG",
	syscall.ENOSPC:          "ENOSPC",
	syscall.EROFS:           "EROFS",
	syscall.EMLINK:          "EMLINK",
	syscall.EPIPE:           "EPIPE",
	syscall.ERANGE:          "ERANGE",
	syscall.ENAMETOOLONG:    "ENAMETOOLONG",
	syscall.ENOLCK:          "ENOLCK",
	syscall.ENOSYS:          "ENOSYS",
	syscall.ENOTEMPTY:       "ENOTEMPTY",
	syscall.ELOOP:           "ELOOP",
	syscall.ENOMSG:          "ENOMSG",
	syscall.EOVERFLOW:       "EOVERFLOW",
	syscall.ENODATA:         "ENODATA",
	syscall.EBUSY:           "EBUSY",
	syscall.ETIMEDOUT:       "ETIMEDOUT",
	syscall.ECANCELED:       "ECANCELED",
	syscall.EDEADLK:         "EDEADLK",
	syscall.ENOTRECOVERABLE: "ENOTRECOVERABLE",
	syscall.ELIBBAD:         "ELIBBAD",
	syscall.EPROTO:          "EPROTO",
	syscall.ECOMM:           "ECOMM",
	syscall.ESTALE:          "ESTALE",
	syscall.EOPNOTSUPP:      "EOPNOTSUPP",
	syscall.EINTR:           "EINTR",
}

// nameErrnos is the reverse of errnoNames, built once at init time.
var nameErrnos = func() map[string]syscall.Errno {
	m := make(map[string]syscall.Errno, len(errnoNames))
	for errno, name := range errnoNames {
		m[name] = errno
	}
	return m
}()
