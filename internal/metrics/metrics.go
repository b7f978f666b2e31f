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

// Package metrics exposes per-operation counters and latency histograms
// for the passthrough filesystem, grounded on gcsfuse's per-op monitoring
// wrapper (internal/fs/wrappers/monitoring.go in the teacher), but backed
// directly by prometheus/client_golang rather than OpenCensus/OpenTelemetry,
// since this filesystem has no distributed trace to propagate -- only a
// single local process worth reporting on.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Handle owns the registered collectors for one filesystem instance.
type Handle struct {
	opsTotal   *prometheus.CounterVec
	opErrors   *prometheus.CounterVec
	opDuration *prometheus.HistogramVec
}

// NewHandle constructs a Handle and registers its collectors with reg. A
// nil reg uses prometheus.NewRegistry() (convenient for tests that don't
// want to pollute the default global registry).
func NewHandle(reg prometheus.Registerer) *Handle {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	h := &Handle{
		opsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "passthroughfuse",
			Name:      "ops_total",
			Help:      "Number of FUSE operations handled, by operation name.",
		}, []string{"op"}),
		opErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "passthroughfuse",
			Name:      "op_errors_total",
			Help:      "Number of FUSE operations that replied with a failure, by operation name and errno.",
		}, []string{"op", "errno"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "passthroughfuse",
			Name:      "op_duration_seconds",
			Help:      "Latency of FUSE operations, by operation name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}

	reg.MustRegister(h.opsTotal, h.opErrors, h.opDuration)
	return h
}

// Observe records one completed operation: op is the operation name
// (e.g. "LookUpInode"), start is when it began, and errno is the empty
// string on success or the ErrnoName-formatted name of the failure.
func (h *Handle) Observe(op string, start time.Time, errno string) {
	if h == nil {
		return
	}
	h.opsTotal.WithLabelValues(op).Inc()
	h.opDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if errno != "" {
		h.opErrors.WithLabelValues(op, errno).Inc()
	}
}
