// Copyright 2024 Google LLC
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

package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/jacobsa/passthroughfuse/cfg"
	"github.com/jacobsa/passthroughfuse/internal/fs"
	"github.com/jacobsa/passthroughfuse/internal/logger"
	"github.com/jacobsa/passthroughfuse/internal/metrics"
	"github.com/jacobsa/passthroughfuse/internal/perms"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// uidGidOverride returns nil unless the config value is non-negative,
// matching the teacher's "--uid/--gid default to -1, meaning preserve the
// source tree's owner" convention.
func uidGidOverride(v int) *uint32 {
	if v < 0 {
		return nil
	}
	u := uint32(v)
	return &u
}

func runMount(ctx context.Context, sourceDir, mountPoint string, config *cfg.Config) error {
	if err := logger.InitLogFile(config.Logging); err != nil {
		return fmt.Errorf("initializing log file: %w", err)
	}
	logger.SetLogFormat(config.Logging.Format)

	metricsHandle := metrics.NewHandle(prometheus.DefaultRegisterer)
	if config.Debug.MetricsAddr != "" {
		go serveMetrics(config.Debug.MetricsAddr)
	}

	if uid, _, err := perms.MyUserAndGroup(); err == nil && uid == 0 && config.FileSystem.Uid < 0 {
		fmt.Fprintln(os.Stderr, `WARNING: passthroughfuse invoked as root. Every operation on the mount
runs against the source tree with root's privileges, and files created
through the mount will be owned by root. If that is not what you intended,
invoke passthroughfuse as the user that will be interacting with the mount.`)
	}

	serverCfg := fs.Config{
		SourceDir:    sourceDir,
		EntryTimeout: config.FileSystem.EntryTimeout,
		AttrTimeout:  config.FileSystem.AttrTimeout,
		Uid:          uidGidOverride(config.FileSystem.Uid),
		Gid:          uidGidOverride(config.FileSystem.Gid),
		Logger:       logger.Default(),
		Metrics:      metricsHandle,
	}

	logger.Infof("creating filesystem server for %q", sourceDir)
	server, err := fs.NewServer(ctx, serverCfg)
	if err != nil {
		return fmt.Errorf("fs.NewServer: %w", err)
	}

	mountCfg := fuseMountConfig(config)
	logger.Infof("mounting %q at %q", sourceDir, mountPoint)
	mfs, err := fuse.Mount(mountPoint, fuseutil.NewFileSystemServer(server), mountCfg)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	go waitForUnmountSignal(mountPoint)

	if err := mfs.Join(ctx); err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}

// waitForUnmountSignal blocks ignoring SIGPIPE (so a write into a closed
// pipe on the far side of the mount never kills the process, per
// pafs/signal.cc) and unmounts cleanly on SIGINT/SIGTERM.
func waitForUnmountSignal(mountPoint string) {
	signal.Ignore(syscall.SIGPIPE)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("received shutdown signal, unmounting %q", mountPoint)
	if err := fuse.Unmount(mountPoint); err != nil {
		logger.Errorf("unmount failed: %v", err)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Infof("serving metrics on %q", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Errorf("metrics server: %v", err)
	}
}

func fuseMountConfig(config *cfg.Config) *fuse.MountConfig {
	mountCfg := &fuse.MountConfig{
		FSName:     "passthroughfuse",
		Subtype:    "passthroughfuse",
		VolumeName: "passthroughfuse",
	}

	mountCfg.ErrorLogger = log.New(os.Stderr, "fuse: ", log.LstdFlags)

	// Only TRACE (or --debug_fuse) pays for the kernel-protocol-level debug
	// logger, mirroring the teacher's getFuseMountConfig severity mapping.
	if config.Debug.Fuse || config.Logging.Severity == cfg.TraceLogSeverity {
		mountCfg.DebugLogger = log.New(os.Stderr, "fuse_debug: ", log.LstdFlags)
	}

	return mountCfg
}
