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
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"statagg/stats"
)

// Grid dimensions for the distinct counter. 32 hash rows put the expected
// relative error around 0.78/sqrt(32) ~ 14%.
const (
	distinctHashes  = 32
	distinctBuckets = 32
)

// Window cutoffs, in seconds, for the windowed distinct counts.
const (
	oneMinute = 60
	oneHour   = 60 * 60
	oneDay    = 60 * 60 * 24
)

// DistinctReporter estimates the number of distinct items seen on various
// sliding windows of time.
type DistinctReporter struct {
	name    string
	prefix  string
	clk     clock.Clock
	counter *stats.SlidingDistinctCounter
}

var _ Reporter = (*DistinctReporter)(nil)

// NewDistinctReporter creates a reporter for the named metric. A nil clk
// falls back to the real clock.
func NewDistinctReporter(name, prefix string, clk clock.Clock) *DistinctReporter {
	if clk == nil {
		clk = clock.New()
	}
	return &DistinctReporter{
		name:    name,
		prefix:  prefix,
		clk:     clk,
		counter: stats.NewSlidingDistinctCounter(distinctHashes, distinctBuckets),
	}
}

// Update records that item was seen now.
func (r *DistinctReporter) Update(item string) {
	r.counter.Add(r.now(), item)
}

// Count estimates the distinct items seen over the reporter's lifetime.
func (r *DistinctReporter) Count() int { return r.counter.Distinct(0) }

// Count1Min estimates the distinct items seen in the minute before now.
func (r *DistinctReporter) Count1Min(now float64) int { return r.counter.Distinct(now - oneMinute) }

// Count1Hour estimates the distinct items seen in the hour before now.
func (r *DistinctReporter) Count1Hour(now float64) int { return r.counter.Distinct(now - oneHour) }

// Count1Day estimates the distinct items seen in the day before now.
func (r *DistinctReporter) Count1Day(now float64) int { return r.counter.Distinct(now - oneDay) }

// Process ingests one parsed message: the first field is the item.
func (r *DistinctReporter) Process(fields []string) error {
	if len(fields) == 0 {
		return fmt.Errorf("statagg: distinct message has no item field")
	}
	r.Update(fields[0])
	return nil
}

// Flush emits the lifetime and windowed counts, ordered by suffix name.
func (r *DistinctReporter) Flush(interval time.Duration, timestamp int64) []Sample {
	now := r.now()
	items := map[string]float64{
		".count":       float64(r.Count()),
		".count_1min":  float64(r.Count1Min(now)),
		".count_1hour": float64(r.Count1Hour(now)),
		".count_1day":  float64(r.Count1Day(now)),
	}
	return sortedSamples(joinPrefix(r.prefix, r.name), items, timestamp)
}

func (r *DistinctReporter) now() float64 {
	return float64(r.clk.Now().UnixNano()) / float64(time.Second)
}
