// Copyright 2015 Google Inc. All Rights Reserved.
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

// Package perms reports the identity of the process invoking the mount,
// for the warning printed when the mount runs as root without --uid.
package perms

import "os"

// MyUserAndGroup returns the real UID and GID of the calling process.
func MyUserAndGroup() (uid uint32, gid uint32, err error) {
	return uint32(os.Getuid()), uint32(os.Getgid()), nil
}
