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

// Package fs implements the FUSE passthrough filesystem: a
// fuseutil.FileSystem whose every operation resolves directly to the
// equivalent syscall against a source directory tree, rather than against
// any synthesized or remote view of the world (spec §1).
package fs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/jacobsa/passthroughfuse/clock"
	"github.com/jacobsa/passthroughfuse/internal/handles"
	"github.com/jacobsa/passthroughfuse/internal/inode"
	"github.com/jacobsa/passthroughfuse/internal/metrics"
	"github.com/jacobsa/passthroughfuse/internal/sysfd"
	"golang.org/x/sys/unix"
)

// Config carries everything NewServer needs to stand up a FileSystem.
type Config struct {
	// SourceDir is the real directory this filesystem passes operations
	// through to.
	SourceDir string

	// EntryTimeout and AttrTimeout bound how long the kernel may cache a
	// directory entry or an inode's attributes before re-validating them
	// with us (spec §3, "cache timeouts").
	EntryTimeout time.Duration
	AttrTimeout  time.Duration

	// Uid and Gid, if non-nil, override the on-disk owner reported to the
	// kernel for every inode (spec's expansion of GCSFuse's --uid/--gid).
	Uid, Gid *uint32

	Logger  *slog.Logger
	Metrics *metrics.Handle

	// Clock sources the timestamps used for cache expirations; a nil Clock
	// uses clock.RealClock{}. Tests inject clock.NewSimulatedClock to
	// assert expiry behavior without sleeping.
	Clock clock.Clock
}

// FileSystem implements fuseutil.FileSystem as a passthrough onto a real
// directory tree, identified by descriptor rather than by path so that
// renames and races elsewhere in the tree can never redirect an operation
// to the wrong object (spec §1).
type FileSystem struct {
	fuseutil.NotImplementedFileSystem

	cfg     Config
	cache   *inode.Cache
	handles *handles.Table
	logger  *slog.Logger
	metrics *metrics.Handle
	clock   clock.Clock

	mu sync.Mutex // guards nothing beyond what Cache/Table already guard; reserved for cross-cutting invariants
}

var _ fuseutil.FileSystem = (*FileSystem)(nil)

// NewServer opens cfg.SourceDir and returns a FileSystem ready to be
// passed to fuseutil.NewFileSystemServer and fuse.Mount.
func NewServer(ctx context.Context, cfg Config) (*FileSystem, error) {
	rootFD, st := sysfd.OpenPathOnly(nil, cfg.SourceDir)
	if !st.Ok() {
		return nil, fmt.Errorf("opening source dir %q: %w", cfg.SourceDir, st.Errno())
	}

	stat, st := sysfd.Stat(rootFD)
	if !st.Ok() {
		rootFD.Close()
		return nil, fmt.Errorf("statting source dir %q: %w", cfg.SourceDir, st.Errno())
	}
	if stat.Mode&unix.S_IFMT != unix.S_IFDIR {
		rootFD.Close()
		return nil, fmt.Errorf("source dir %q is not a directory", cfg.SourceDir)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metricsHandle := cfg.Metrics
	if metricsHandle == nil {
		metricsHandle = metrics.NewHandle(nil)
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	fs := &FileSystem{
		cfg:     cfg,
		cache:   inode.New(rootFD, stat.Dev, stat.Ino),
		handles: handles.NewTable(),
		logger:  logger,
		metrics: metricsHandle,
		clock:   clk,
	}
	return fs, nil
}

// Init is invoked once when the mount is established; the passthrough
// filesystem needs no negotiation of its own beyond what jacobsa/fuse
// already does against the kernel, so this is a no-op reply (spec's
// expansion, "Supplemented from original_source/pafs": log the session
// at debug for operational visibility).
func (fs *FileSystem) Init(ctx context.Context, op *fuseops.InitOp) error {
	tok := fs.token("Init")
	fs.logger.Debug("mount initialized", "source", fs.cfg.SourceDir)
	return tok.Success()
}

// Destroy is invoked once when the filesystem is being unmounted.
func (fs *FileSystem) Destroy() {
	fs.logger.Info("unmounting", "source", fs.cfg.SourceDir)
}

func (fs *FileSystem) token(op string) *reqToken {
	return newReqToken(op, fs.logger, fs.metrics)
}
