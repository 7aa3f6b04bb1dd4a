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

package core

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"statagg"
)

// Kind identifies which reporter a metric line feeds.
type Kind int

const (
	KindCounter Kind = iota
	KindGauge
	KindTimer
	KindHistogram
	KindMeter
	KindDistinct
)

// String returns the wire token for the kind.
func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "c"
	case KindGauge:
		return "g"
	case KindTimer:
		return "ms"
	case KindHistogram:
		return "h"
	case KindMeter:
		return "m"
	case KindDistinct:
		return "d"
	}
	return "?"
}

// KindFromToken maps a wire type token to a Kind. Distinct counts answer to
// both "d" and the legacy "pd" token older clients emit.
func KindFromToken(tok string) (Kind, bool) {
	switch tok {
	case "c":
		return KindCounter, true
	case "g":
		return KindGauge, true
	case "ms":
		return KindTimer, true
	case "h":
		return KindHistogram, true
	case "m":
		return KindMeter, true
	case "d", "pd":
		return KindDistinct, true
	}
	return 0, false
}

// newReporter constructs the reporter backing the kind. Timers get the
// decaying reservoir so percentiles track recent latency; explicit
// histograms sample the whole stream uniformly.
func (k Kind) newReporter(name, prefix string, clk clock.Clock) statagg.Reporter {
	switch k {
	case KindCounter:
		return statagg.NewCounterReporter(name, prefix)
	case KindGauge:
		return statagg.NewGaugeReporter(name, prefix)
	case KindTimer:
		return statagg.NewDecayingHistogramReporter(name, prefix, clk)
	case KindHistogram:
		return statagg.NewUniformHistogramReporter(name, prefix)
	case KindMeter:
		return statagg.NewMeterReporter(name, prefix, clk)
	case KindDistinct:
		return statagg.NewDistinctReporter(name, prefix, clk)
	}
	return nil
}

// ManagedReporter wraps a reporter with the metadata needed to manage its
// lifecycle: its kind, last access time for eviction, and the mutex that
// serializes Process and Flush.
//
// lastAccessed stores UnixNano to allow atomic access across goroutines.
type ManagedReporter struct {
	mu       sync.Mutex
	reporter statagg.Reporter
	kind     Kind
	// lastAccessed stores the last access time in UnixNano to allow atomic
	// access across goroutines.
	lastAccessed int64
}

// Registry manages the collection of live metric reporters in memory.
// It is thread-safe and designed for high-performance concurrent access.
type Registry struct {
	reporters sync.Map
	prefix    string
	clk       clock.Clock
	size      atomic.Int64
}

// NewRegistry creates a registry whose reporters emit names under prefix.
// A nil clk falls back to the real clock.
func NewRegistry(prefix string, clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.New()
	}
	return &Registry{prefix: prefix, clk: clk}
}

// GetOrCreate returns the managed reporter for a metric name, creating it
// with the right kind on first sight. It also updates the lastAccessed
// timestamp.
//
// Optimization: avoid allocating on the common case where the name already
// exists. We first try a plain Load (no allocation). Only on a miss do we
// allocate the managed wrapper and attempt a LoadOrStore; in a race the
// extra allocation is rare and immediately discarded.
//
// A line whose type token disagrees with the reporter already registered
// under the name is rejected, matching how the original daemon refuses to
// silently retype a metric.
func (r *Registry) GetOrCreate(name string, kind Kind) (*ManagedReporter, error) {
	// Fast path: name already present.
	if actual, ok := r.reporters.Load(name); ok {
		managed := actual.(*ManagedReporter)
		if managed.kind != kind {
			return nil, fmt.Errorf("core: metric %q is a %s, got a %s line", name, managed.kind, kind)
		}
		atomic.StoreInt64(&managed.lastAccessed, r.clk.Now().UnixNano())
		return managed, nil
	}

	// Miss: lazily allocate only now.
	now := r.clk.Now().UnixNano()
	newManaged := &ManagedReporter{
		reporter:     kind.newReporter(name, r.prefix, r.clk),
		kind:         kind,
		lastAccessed: now,
	}

	if actual, loaded := r.reporters.LoadOrStore(name, newManaged); loaded {
		managed := actual.(*ManagedReporter)
		if managed.kind != kind {
			return nil, fmt.Errorf("core: metric %q is a %s, got a %s line", name, managed.kind, kind)
		}
		atomic.StoreInt64(&managed.lastAccessed, now)
		return managed, nil
	}
	r.size.Add(1)
	return newManaged, nil
}

// Process serializes one reporter's ingestion under its lock.
func (m *ManagedReporter) Process(fields []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reporter.Process(fields)
}

// Flush serializes one reporter's flush under its lock.
func (m *ManagedReporter) Flush(interval time.Duration, timestamp int64) []statagg.Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reporter.Flush(interval, timestamp)
}

// ForEach iterates over all managed reporters in the registry.
func (r *Registry) ForEach(f func(name string, m *ManagedReporter)) {
	r.reporters.Range(func(key, value interface{}) bool {
		f(key.(string), value.(*ManagedReporter))
		return true
	})
}

// Delete removes a metric from the registry. Used by the eviction scan.
func (r *Registry) Delete(name string) {
	if _, ok := r.reporters.LoadAndDelete(name); ok {
		r.size.Add(-1)
	}
}

// Len reports the number of live reporters.
func (r *Registry) Len() int {
	return int(r.size.Load())
}

// Names returns the registered metric names in unspecified order.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.Len())
	r.reporters.Range(func(key, _ interface{}) bool {
		names = append(names, key.(string))
		return true
	})
	return names
}
