// Copyright 2026 Esteban Alvarez. All Rights Reserved.
//
// Created: August 2026
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

// Package telemetry exposes Prometheus metrics about the daemon itself, as
// opposed to the metrics the daemon aggregates on behalf of clients. All
// public functions are cheap enough to call from hot paths.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	receivedLinesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "statagg_received_lines_total",
		Help: "Total metric lines received on the listening sockets",
	})
	malformedLinesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "statagg_malformed_lines_total",
		Help: "Total received lines that failed to parse",
	})
	droppedLinesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "statagg_dropped_lines_total",
		Help: "Total lines dropped by routing rules",
	})
	flushedSamplesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "statagg_flushed_samples_total",
		Help: "Total samples emitted to publishers across all flush cycles",
	})
	flushErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "statagg_flush_errors_total",
		Help: "Total flush cycles that failed to publish",
	})
	samplesPerFlush = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "statagg_samples_per_flush",
		Help:    "Distribution of samples per flush batch",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024, 4096},
	})
	liveReporters = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "statagg_live_reporters",
		Help: "Number of metric reporters currently held in memory",
	})
	evictedReportersTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "statagg_evicted_reporters_total",
		Help: "Total idle reporters evicted from memory",
	})
)

func init() {
	// Register eagerly. If no Prometheus endpoint is exposed, the
	// registration is harmless.
	prometheus.MustRegister(
		receivedLinesTotal, malformedLinesTotal, droppedLinesTotal,
		flushedSamplesTotal, flushErrorsTotal, samplesPerFlush,
		liveReporters, evictedReportersTotal,
	)
}

// ObserveLine records one received metric line.
func ObserveLine() { receivedLinesTotal.Inc() }

// ObserveMalformed records one line that failed to parse.
func ObserveMalformed() { malformedLinesTotal.Inc() }

// ObserveDropped records one line discarded by a routing rule.
func ObserveDropped() { droppedLinesTotal.Inc() }

// ObserveFlush records one published flush batch of the given size.
func ObserveFlush(size int) {
	if size < 0 {
		return
	}
	samplesPerFlush.Observe(float64(size))
	flushedSamplesTotal.Add(float64(size))
}

// ObserveFlushError records one flush cycle that failed to publish.
func ObserveFlushError() { flushErrorsTotal.Inc() }

// SetLiveReporters records the current reporter population.
func SetLiveReporters(n int) { liveReporters.Set(float64(n)) }

// ObserveEvictions records n reporters dropped by the eviction scan.
func ObserveEvictions(n int) {
	if n > 0 {
		evictedReportersTotal.Add(float64(n))
	}
}
