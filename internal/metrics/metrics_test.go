/*
 *
 * Copyright 2025 The Fluorescence Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSessionCounters(t *testing.T) {
	s := NewSession("metrics-test")

	s.Tick("success", 2*time.Millisecond)
	s.Tick("success", 3*time.Millisecond)
	s.Tick("reinit", time.Millisecond)
	s.Overflow()
	s.FrameBytes(40, 100)
	s.Reinit()
	s.CatalogSize("buffer", 3)

	require.Equal(t, 2.0, testutil.ToFloat64(tickResults.WithLabelValues("metrics-test", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(tickResults.WithLabelValues("metrics-test", "reinit")))
	require.Equal(t, 1.0, testutil.ToFloat64(overflows.WithLabelValues("metrics-test")))
	require.Equal(t, 40.0, testutil.ToFloat64(frameBytes.WithLabelValues("metrics-test", "command")))
	require.Equal(t, 100.0, testutil.ToFloat64(frameBytes.WithLabelValues("metrics-test", "payload")))
	require.Equal(t, 1.0, testutil.ToFloat64(reinits.WithLabelValues("metrics-test")))
	require.Equal(t, 3.0, testutil.ToFloat64(catalogSize.WithLabelValues("metrics-test", "buffer")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	NewSession("handler-test").Overflow()

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), `flr_session_frame_overflows_total{arena="handler-test"} 1`))
}
