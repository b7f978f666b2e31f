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

package fs

import (
	"log/slog"
	"time"

	"github.com/jacobsa/passthroughfuse/internal/fserrors"
	"github.com/jacobsa/passthroughfuse/internal/metrics"
	"github.com/jacobsa/passthroughfuse/internal/reply"
)

// reqToken pairs a reply.Token with the per-request bookkeeping this
// filesystem wants on every operation: a start time for latency metrics,
// and a handle on where to record them.
type reqToken struct {
	*reply.Token
	start   time.Time
	metrics *metrics.Handle
}

func newReqToken(op string, logger *slog.Logger, m *metrics.Handle) *reqToken {
	return &reqToken{Token: reply.New(op), start: time.Now(), metrics: m}
}

// Success overrides reply.Token.Success to also record the metrics
// observation.
func (t *reqToken) Success() error {
	err := t.Token.Success()
	t.metrics.Observe(t.Op(), t.start, "")
	return err
}

// Fail overrides reply.Token.Fail to also record the metrics observation,
// tagged with the errno that was returned to the kernel.
func (t *reqToken) Fail(st fserrors.Status) error {
	err := t.Token.Fail(st)
	t.metrics.Observe(t.Op(), t.start, fserrors.ErrnoName(st.Errno()))
	return err
}
