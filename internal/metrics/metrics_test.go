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

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 8)
	c.Collect(ch)
	close(ch)
	var total float64
	for m := range ch {
		var pb dto.Metric
		require.NoError(t, m.Write(&pb))
		total += pb.GetCounter().GetValue()
	}
	return total
}

func TestObserveSuccessIncrementsOpsTotalOnly(t *testing.T) {
	h := NewHandle(nil)
	h.Observe("LookUpInode", time.Now(), "")

	require.Equal(t, float64(1), counterValue(t, h.opsTotal))
	require.Equal(t, float64(0), counterValue(t, h.opErrors))
}

func TestObserveFailureIncrementsBothCounters(t *testing.T) {
	h := NewHandle(nil)
	h.Observe("ReadFile", time.Now(), "ENOENT")

	require.Equal(t, float64(1), counterValue(t, h.opsTotal))
	require.Equal(t, float64(1), counterValue(t, h.opErrors))
}

func TestObserveOnNilHandleIsNoop(t *testing.T) {
	var h *Handle
	require.NotPanics(t, func() {
		h.Observe("WriteFile", time.Now(), "")
	})
}

func TestNewHandleRegistersWithGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	// Metric vectors with no children gather nothing, so record one
	// observation before checking what the registry exposes.
	NewHandle(reg).Observe("LookUpInode", time.Now(), "")

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}
