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

import "time"

// CounterReporter accumulates increments between flushes. Every flush emits
// the interval's total and resets it.
type CounterReporter struct {
	name   string
	prefix string
	count  float64
}

var _ Reporter = (*CounterReporter)(nil)

// NewCounterReporter creates a counter for the named metric.
func NewCounterReporter(name, prefix string) *CounterReporter {
	return &CounterReporter{name: name, prefix: prefix}
}

// Mark adds value to the interval count.
func (c *CounterReporter) Mark(value float64) {
	c.count += value
}

// Process ingests one parsed message: the first field is the increment.
func (c *CounterReporter) Process(fields []string) error {
	v, err := parseValue(fields)
	if err != nil {
		return err
	}
	c.Mark(v)
	return nil
}

// Flush emits the interval count and resets it.
func (c *CounterReporter) Flush(interval time.Duration, timestamp int64) []Sample {
	count := c.count
	c.count = 0
	return []Sample{{
		Name:      joinPrefix(c.prefix, c.name) + ".count",
		Value:     count,
		Timestamp: timestamp,
	}}
}

// GaugeReporter reports an instantaneous reading of a value.
type GaugeReporter struct {
	name   string
	prefix string
	value  float64
}

var _ Reporter = (*GaugeReporter)(nil)

// NewGaugeReporter creates a gauge for the named metric.
func NewGaugeReporter(name, prefix string) *GaugeReporter {
	return &GaugeReporter{name: name, prefix: prefix}
}

// Mark records the latest reading.
func (g *GaugeReporter) Mark(value float64) {
	g.value = value
}

// Process ingests one parsed message: the first field is the reading.
func (g *GaugeReporter) Process(fields []string) error {
	v, err := parseValue(fields)
	if err != nil {
		return err
	}
	g.Mark(v)
	return nil
}

// Flush emits the latest reading.
func (g *GaugeReporter) Flush(interval time.Duration, timestamp int64) []Sample {
	return []Sample{{
		Name:      joinPrefix(g.prefix, g.name) + ".value",
		Value:     g.value,
		Timestamp: timestamp,
	}}
}
