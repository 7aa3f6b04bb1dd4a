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

package stats

import (
	"math"
	mrand "math/rand"
	"sort"
	"time"

	"github.com/benbjohnson/clock"
)

// rescaleThreshold is how long stored priorities may age before being
// renormalized against a fresh landmark time. exp(alpha*(t-t0)) grows without
// bound, so long-running processes must periodically fold the landmark
// forward to keep priorities inside float64 range.
const rescaleThreshold = 10 * time.Minute

// weightedValue pairs a retained value with its forward-decay priority.
type weightedValue struct {
	priority float64
	value    float64
}

// ExponentiallyDecayingSample is a bounded random sample exponentially
// biased towards newer values, using Cormode et al's forward-decaying
// priority reservoir. Each observation gets priority
// exp(alpha*(t-t0))/u with u uniform in (0,1); the reservoir keeps the
// highest-priority values, so recent observations dominate while memory
// stays fixed.
//
// An alpha of 0.015 heavily biases the sample towards the past five minutes
// of measurements.
type ExponentiallyDecayingSample struct {
	size  int
	alpha float64
	clk   clock.Clock
	rnd   *mrand.Rand

	// values is kept sorted ascending by priority; index 0 is the eviction
	// candidate.
	values        []weightedValue
	count         int
	startTime     float64
	nextScaleTime float64
}

var _ Sample = (*ExponentiallyDecayingSample)(nil)

// NewExponentiallyDecayingSample creates a decaying reservoir of at most
// size values. A nil clk falls back to the real clock.
func NewExponentiallyDecayingSample(size int, alpha float64, clk clock.Clock) *ExponentiallyDecayingSample {
	if clk == nil {
		clk = clock.New()
	}
	s := &ExponentiallyDecayingSample{
		size:  size,
		alpha: alpha,
		clk:   clk,
		rnd:   newPrivateRand(),
	}
	s.Clear()
	return s
}

// Clear resets the reservoir and advances the landmark to the present.
func (s *ExponentiallyDecayingSample) Clear() {
	s.values = s.values[:0]
	s.count = 0
	s.startTime = s.tick()
	s.nextScaleTime = s.startTime + rescaleThreshold.Seconds()
}

// Size reports how many values the reservoir currently retains.
func (s *ExponentiallyDecayingSample) Size() int {
	if s.count > s.size {
		return s.size
	}
	return s.count
}

// Update admits value with the current wall time.
func (s *ExponentiallyDecayingSample) Update(value float64) {
	s.UpdateAt(value, s.tick())
}

// UpdateAt admits a value observed at a fixed timestamp (epoch seconds).
func (s *ExponentiallyDecayingSample) UpdateAt(value float64, timestamp float64) {
	if timestamp >= s.nextScaleTime {
		s.rescale(timestamp)
	}

	priority := math.Exp(s.alpha*(timestamp-s.startTime)) / s.rnd.Float64()
	if s.count < s.size {
		s.count++
		s.insert(weightedValue{priority, value})
		return
	}
	if s.values[0].priority < priority {
		s.insert(weightedValue{priority, value})
		s.values = s.values[1:]
	}
}

// Values returns a copy of the current sample, lowest priority first.
func (s *ExponentiallyDecayingSample) Values() []float64 {
	out := make([]float64, len(s.values))
	for i, wv := range s.values {
		out[i] = wv.value
	}
	return out
}

// insert places wv keeping values sorted ascending by priority.
func (s *ExponentiallyDecayingSample) insert(wv weightedValue) {
	i := sort.Search(len(s.values), func(i int) bool {
		return s.values[i].priority >= wv.priority
	})
	s.values = append(s.values, weightedValue{})
	copy(s.values[i+1:], s.values[i:])
	s.values[i] = wv
}

// rescale renormalizes every stored priority against a new landmark. Scaling
// by exp(-alpha*(L'-L)) leaves the relative ordering intact while pulling
// the magnitudes back towards 1, exactly as if the sample had been built
// against the new landmark from the start.
func (s *ExponentiallyDecayingSample) rescale(now float64) {
	s.nextScaleTime = now + rescaleThreshold.Seconds()
	oldStartTime := s.startTime
	s.startTime = now

	factor := math.Exp(-s.alpha * (s.startTime - oldStartTime))
	for i := range s.values {
		s.values[i].priority *= factor
	}
}

// tick returns the clock's current time as epoch seconds.
func (s *ExponentiallyDecayingSample) tick() float64 {
	return float64(s.clk.Now().UnixNano()) / float64(time.Second)
}
