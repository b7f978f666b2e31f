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

package cfg

import "fmt"

func isValidLogRotateConfig(c *LogRotateConfig) error {
	if c.MaxFileSizeMB <= 0 {
		return fmt.Errorf("max-file-size-mb should be at least 1")
	}
	if c.BackupFileCount < 0 {
		return fmt.Errorf("backup-file-count should be 0 (retain all backups) or positive")
	}
	return nil
}

func isValidFileSystemConfig(c *FileSystemConfig) error {
	if c.EntryTimeout < 0 {
		return fmt.Errorf("entry-timeout cannot be negative")
	}
	if c.AttrTimeout < 0 {
		return fmt.Errorf("attr-timeout cannot be negative")
	}
	if c.RenameDirLimit < 0 {
		return fmt.Errorf("rename-dir-limit cannot be negative")
	}
	if c.RenameDirLimit > MaxSupportedRenameDirLimit {
		return fmt.Errorf("rename-dir-limit is too high; max supported is %d", MaxSupportedRenameDirLimit)
	}
	return nil
}

// ValidateConfig returns a non-nil error if config holds a value that
// cannot be acted on.
func ValidateConfig(config *Config) error {
	if err := isValidLogRotateConfig(&config.Logging.LogRotate); err != nil {
		return fmt.Errorf("logging.log-rotate: %w", err)
	}
	if err := isValidFileSystemConfig(&config.FileSystem); err != nil {
		return fmt.Errorf("file-system: %w", err)
	}
	return nil
}
