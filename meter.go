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

package statagg

import (
	"time"

	"github.com/benbjohnson/clock"

	"statagg/stats"
)

// ewmaTick is the interval the load-average EWMAs expect between ticks.
const ewmaTick = 5 * time.Second

// MeterReporter measures the rate of events: a cumulative count, the
// instantaneous rate since the last flush, and 1/5/15-minute moving
// averages. The averages are ticked lazily on read, folding in however many
// 5-second intervals have elapsed since the previous tick.
type MeterReporter struct {
	name   string
	prefix string
	clk    clock.Clock

	count     float64
	lastCount float64
	lastFlush time.Time
	lastTick  time.Time

	m1  *stats.EWMA
	m5  *stats.EWMA
	m15 *stats.EWMA
}

var _ Reporter = (*MeterReporter)(nil)

// NewMeterReporter creates a meter for the named metric. A nil clk falls
// back to the real clock.
func NewMeterReporter(name, prefix string, clk clock.Clock) *MeterReporter {
	if clk == nil {
		clk = clock.New()
	}
	now := clk.Now()
	return &MeterReporter{
		name:      name,
		prefix:    prefix,
		clk:       clk,
		lastFlush: now,
		lastTick:  now,
		m1:        stats.OneMinuteEWMA(),
		m5:        stats.FiveMinuteEWMA(),
		m15:       stats.FifteenMinuteEWMA(),
	}
}

// Mark records value events.
func (m *MeterReporter) Mark(value float64) {
	m.count += value
	m.m1.Update(value)
	m.m5.Update(value)
	m.m15.Update(value)
}

// Process ingests one parsed message: the first field is the event count.
func (m *MeterReporter) Process(fields []string) error {
	v, err := parseValue(fields)
	if err != nil {
		return err
	}
	m.Mark(v)
	return nil
}

// tickIfNecessary folds the elapsed 5-second intervals into the EWMAs.
func (m *MeterReporter) tickIfNecessary() {
	now := m.clk.Now()
	for !m.lastTick.Add(ewmaTick).After(now) {
		m.m1.Tick()
		m.m5.Tick()
		m.m15.Tick()
		m.lastTick = m.lastTick.Add(ewmaTick)
	}
}

// Rate1Min returns the one-minute moving average rate, per second.
func (m *MeterReporter) Rate1Min() float64 {
	m.tickIfNecessary()
	return m.m1.Rate()
}

// Rate5Min returns the five-minute moving average rate, per second.
func (m *MeterReporter) Rate5Min() float64 {
	m.tickIfNecessary()
	return m.m5.Rate()
}

// Rate15Min returns the fifteen-minute moving average rate, per second.
func (m *MeterReporter) Rate15Min() float64 {
	m.tickIfNecessary()
	return m.m15.Rate()
}

// Flush emits the cumulative count, the instantaneous rate since the last
// flush, and the moving averages, ordered by suffix name.
func (m *MeterReporter) Flush(interval time.Duration, timestamp int64) []Sample {
	m.tickIfNecessary()
	now := m.clk.Now()
	elapsed := now.Sub(m.lastFlush).Seconds()
	instant := 0.0
	if elapsed > 0 {
		instant = (m.count - m.lastCount) / elapsed
	}
	m.lastCount = m.count
	m.lastFlush = now

	items := map[string]float64{
		".count":      m.count,
		".rate":       instant,
		".1min_rate":  m.m1.Rate(),
		".5min_rate":  m.m5.Rate(),
		".15min_rate": m.m15.Rate(),
	}
	return sortedSamples(joinPrefix(m.prefix, m.name), items, timestamp)
}
