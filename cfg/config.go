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

// Package cfg is the viper/pflag-backed configuration surface for the
// passthrough filesystem: every setting is registered once via
// BindFlags and decoded into a typed Config through viper.Unmarshal,
// rather than threaded through the program as loose flag variables.
package cfg

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully decoded configuration for one mount.
type Config struct {
	AppName string `yaml:"app-name"`

	FileSystem FileSystemConfig `yaml:"file-system"`

	Logging LoggingConfig `yaml:"logging"`

	Debug DebugConfig `yaml:"debug"`
}

// FileSystemConfig controls inode ownership, permission overrides, and
// kernel-side caching behavior.
type FileSystemConfig struct {
	// EntryTimeout and AttrTimeout bound how long the kernel may cache a
	// directory entry or an inode's attributes before re-validating them
	// with us.
	EntryTimeout time.Duration `yaml:"entry-timeout"`
	AttrTimeout  time.Duration `yaml:"attr-timeout"`

	// Uid and Gid, when >= 0, override the on-disk owner reported for
	// every inode.
	Uid int `yaml:"uid"`
	Gid int `yaml:"gid"`

	// DirMode and FileMode are accepted as configuration but are not passed
	// to the filesystem server: reported attributes always carry the source
	// tree's own mode bits.
	DirMode  Octal `yaml:"dir-mode"`
	FileMode Octal `yaml:"file-mode"`

	// RenameDirLimit is checked against MaxSupportedRenameDirLimit by
	// ValidateConfig but is not passed to the filesystem server; Rename
	// applies no entry limit.
	RenameDirLimit int64 `yaml:"rename-dir-limit"`
}

// LoggingConfig controls where and how log output is written.
type LoggingConfig struct {
	Severity LogSeverity  `yaml:"severity"`
	Format   string       `yaml:"format"`
	FilePath ResolvedPath `yaml:"file-path"`

	LogRotate LogRotateConfig `yaml:"log-rotate"`
}

// LogRotateConfig mirrors lumberjack.Logger's rotation knobs.
type LogRotateConfig struct {
	MaxFileSizeMB   int  `yaml:"max-file-size-mb"`
	BackupFileCount int  `yaml:"backup-file-count"`
	Compress        bool `yaml:"compress"`
}

// DebugConfig turns on verbose, performance-costly diagnostics.
type DebugConfig struct {
	Fuse                     bool `yaml:"fuse"`
	ExitOnInvariantViolation bool `yaml:"exit-on-invariant-violation"`

	// MetricsAddr, when non-empty, serves Prometheus metrics at
	// http://<addr>/metrics for the lifetime of the mount.
	MetricsAddr string `yaml:"metrics-addr"`
}

// BindFlags registers every --flag the mount command accepts and binds
// it to its dotted viper key, so viper.Unmarshal can populate a Config
// regardless of whether a value came from a flag, an env var, or a
// config file.
func BindFlags(flagSet *pflag.FlagSet) error {
	bind := func(flag, key string) error {
		return viper.BindPFlag(key, flagSet.Lookup(flag))
	}

	flagSet.StringP("app-name", "", "", "The application name of this mount.")
	if err := bind("app-name", "app-name"); err != nil {
		return err
	}

	flagSet.Duration("entry-timeout", 0, "How long the kernel may cache a directory entry.")
	if err := bind("entry-timeout", "file-system.entry-timeout"); err != nil {
		return err
	}

	flagSet.Duration("attr-timeout", 0, "How long the kernel may cache an inode's attributes.")
	if err := bind("attr-timeout", "file-system.attr-timeout"); err != nil {
		return err
	}

	flagSet.IntP("uid", "", -1, "UID that will own every inode; -1 preserves the source tree's owner.")
	if err := bind("uid", "file-system.uid"); err != nil {
		return err
	}

	flagSet.Int("gid", -1, "GID that will own every inode; -1 preserves the source tree's owner.")
	if err := bind("gid", "file-system.gid"); err != nil {
		return err
	}

	flagSet.Int("dir-mode", 0, "Permission bits for directories, in octal; accepted but not applied to reported attributes.")
	if err := bind("dir-mode", "file-system.dir-mode"); err != nil {
		return err
	}

	flagSet.IntP("file-mode", "", 0, "Permission bits for files, in octal; accepted but not applied to reported attributes.")
	if err := bind("file-mode", "file-system.file-mode"); err != nil {
		return err
	}

	flagSet.Int64("rename-dir-limit", 0, "Maximum entries a directory may hold to still be renamed; validated but not enforced by Rename.")
	if err := bind("rename-dir-limit", "file-system.rename-dir-limit"); err != nil {
		return err
	}

	flagSet.String("log-severity", string(InfoLogSeverity), "Minimum severity to log: one of "+severityUsage())
	if err := bind("log-severity", "logging.severity"); err != nil {
		return err
	}

	flagSet.String("log-format", "text", "Log output format: text or json.")
	if err := bind("log-format", "logging.format"); err != nil {
		return err
	}

	flagSet.String("log-file", "", "Path to write logs to; empty logs to stderr.")
	if err := bind("log-file", "logging.file-path"); err != nil {
		return err
	}

	flagSet.BoolP("debug_fuse", "", false, "Log every FUSE request and reply at trace level.")
	if err := bind("debug_fuse", "debug.fuse"); err != nil {
		return err
	}

	flagSet.BoolP("debug_invariants", "", false, "Exit the process when an internal invariant is violated.")
	if err := bind("debug_invariants", "debug.exit-on-invariant-violation"); err != nil {
		return err
	}

	flagSet.String("metrics-addr", "", "Address to serve Prometheus metrics on (e.g. :9400); empty disables it.")
	if err := bind("metrics-addr", "debug.metrics-addr"); err != nil {
		return err
	}

	return nil
}

func severityUsage() string {
	s := ""
	for i, v := range validSeverities {
		if i > 0 {
			s += ", "
		}
		s += v
	}
	return s
}
