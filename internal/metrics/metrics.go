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

// Package metrics exports session counters to Prometheus. All metrics are
// labelled by arena name so that several sessions in one process stay
// distinguishable.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const subsystem = "flr_session"

var (
	tickLatencies = promauto.NewSummaryVec(prometheus.SummaryOpts{
		Subsystem:  subsystem,
		Name:       "tick_latency_seconds",
		Help:       "Time from handing a frame to the host until its update packet is parsed.",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	}, []string{"arena"})
	tickResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "ticks_total",
		Help:      "Ticks by outcome.",
	}, []string{"arena", "result"})
	overflows = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "frame_overflows_total",
		Help:      "Frames whose command list overflowed the arena.",
	}, []string{"arena"})
	frameBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "frame_bytes_total",
		Help:      "Bytes written into the arena by the command encoder.",
	}, []string{"arena", "area"})
	reinits = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "reinits_total",
		Help:      "Host project reinitializations.",
	}, []string{"arena"})
	catalogSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: subsystem,
		Name:      "catalog_resources",
		Help:      "Resources in the current project generation.",
	}, []string{"arena", "class"})
)

// Session records metrics for one arena.
type Session struct {
	arena   string
	latency prometheus.Observer
	over    prometheus.Counter
	cmd     prometheus.Counter
	payload prometheus.Counter
	reinit  prometheus.Counter
}

func NewSession(arena string) *Session {
	return &Session{
		arena:   arena,
		latency: tickLatencies.WithLabelValues(arena),
		over:    overflows.WithLabelValues(arena),
		cmd:     frameBytes.WithLabelValues(arena, "command"),
		payload: frameBytes.WithLabelValues(arena, "payload"),
		reinit:  reinits.WithLabelValues(arena),
	}
}

// Tick records one completed tick.
func (s *Session) Tick(result string, d time.Duration) {
	tickResults.WithLabelValues(s.arena, result).Inc()
	s.latency.Observe(d.Seconds())
}

func (s *Session) Overflow() { s.over.Inc() }

// FrameBytes records the bytes a submitted frame used in each region.
func (s *Session) FrameBytes(cmd, payload int) {
	s.cmd.Add(float64(cmd))
	s.payload.Add(float64(payload))
}

func (s *Session) Reinit() { s.reinit.Inc() }

// CatalogSize sets the resource count for class.
func (s *Session) CatalogSize(class string, n int) {
	catalogSize.WithLabelValues(s.arena, class).Set(float64(n))
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
