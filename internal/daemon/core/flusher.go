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
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"

	"statagg"
	"statagg/internal/daemon/publish"
	"statagg/internal/daemon/telemetry"
)

// Flusher runs the background tasks of the daemon: periodically collecting
// samples from every live reporter and handing the batch to the publisher,
// and evicting reporters that have sat idle too long.
type Flusher struct {
	registry         *Registry
	publisher        publish.Publisher
	clk              clock.Clock
	flushInterval    time.Duration
	evictionAge      time.Duration
	evictionInterval time.Duration
	publishTimeout   time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  uint32
}

// NewFlusher creates and configures a flusher.
//
// flushInterval: how often reporters are drained and published.
// evictionAge: how long a reporter may go without traffic before being
// dropped from memory; 0 disables eviction.
// evictionInterval: how often to scan for idle reporters.
func NewFlusher(registry *Registry, publisher publish.Publisher, clk clock.Clock,
	flushInterval, evictionAge, evictionInterval time.Duration) *Flusher {
	if clk == nil {
		clk = clock.New()
	}
	return &Flusher{
		registry:         registry,
		publisher:        publisher,
		clk:              clk,
		flushInterval:    flushInterval,
		evictionAge:      evictionAge,
		evictionInterval: evictionInterval,
		publishTimeout:   flushInterval,
		stopChan:         make(chan struct{}),
	}
}

// Start launches the background goroutines.
func (f *Flusher) Start() {
	log.WithField("interval", f.flushInterval).Info("starting flusher")
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.flushLoop()
	}()
	if f.evictionAge > 0 {
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			f.evictionLoop()
		}()
	}
}

// Stop gracefully stops the flusher, running one final flush so samples
// accumulated since the last tick are not lost.
func (f *Flusher) Stop() {
	if !atomic.CompareAndSwapUint32(&f.stopped, 0, 1) {
		return
	}
	log.Info("stopping flusher")
	close(f.stopChan)
	f.wg.Wait()
}

func (f *Flusher) flushLoop() {
	ticker := f.clk.Ticker(f.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.runFlushCycle()
		case <-f.stopChan:
			f.runFlushCycle()
			return
		}
	}
}

// runFlushCycle drains every reporter and publishes the batch.
func (f *Flusher) runFlushCycle() {
	timestamp := f.clk.Now().Unix()
	var batch []statagg.Sample
	f.registry.ForEach(func(_ string, m *ManagedReporter) {
		batch = append(batch, m.Flush(f.flushInterval, timestamp)...)
	})
	telemetry.SetLiveReporters(f.registry.Len())

	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.publishTimeout)
	defer cancel()
	if err := f.publisher.PublishBatch(ctx, batch); err != nil {
		telemetry.ObserveFlushError()
		log.WithError(err).WithField("samples", len(batch)).Error("flush publish failed")
		return
	}
	RecordFlushed(int64(len(batch)))
	telemetry.ObserveFlush(len(batch))
}

func (f *Flusher) evictionLoop() {
	ticker := f.clk.Ticker(f.evictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.runEvictionCycle()
		case <-f.stopChan:
			return
		}
	}
}

// runEvictionCycle drops reporters that have not been touched for
// evictionAge. A reporter touched between the scan and the delete is
// re-checked and skipped.
func (f *Flusher) runEvictionCycle() {
	var stale []string
	now := f.clk.Now()

	f.registry.ForEach(func(name string, m *ManagedReporter) {
		last := atomic.LoadInt64(&m.lastAccessed)
		if now.Sub(time.Unix(0, last)) > f.evictionAge {
			stale = append(stale, name)
		}
	})

	if len(stale) == 0 {
		return
	}

	evicted := 0
	for _, name := range stale {
		if actual, ok := f.registry.reporters.Load(name); ok {
			m := actual.(*ManagedReporter)
			last := atomic.LoadInt64(&m.lastAccessed)
			if now.Sub(time.Unix(0, last)) <= f.evictionAge {
				continue
			}
			f.registry.Delete(name)
			evicted++
		}
	}
	if evicted > 0 {
		log.WithField("reporters", evicted).Info("evicted idle reporters")
		telemetry.ObserveEvictions(evicted)
		telemetry.SetLiveReporters(f.registry.Len())
	}
}
