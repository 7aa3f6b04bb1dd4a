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
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
)

// Sample is a bounded-size sample of a stream of values. It is the tail
// estimation substrate for the histogram reporter: percentiles and bucketed
// histograms are computed from whatever the sample currently retains.
//
// Values returns the retained sample in no meaningful order; callers that
// need order statistics sort a copy themselves.
type Sample interface {
	Update(value float64)
	Values() []float64
	Size() int
	Clear()
}

// UniformSample keeps a statistically representative sample of the entire
// observed stream using Vitter's Algorithm R: once the reservoir is full,
// the n-th item replaces a uniformly random slot with probability size/n.
type UniformSample struct {
	values []float64
	count  int
	rnd    *mrand.Rand
}

var _ Sample = (*UniformSample)(nil)

// NewUniformSample creates a reservoir retaining at most size values.
func NewUniformSample(size int) *UniformSample {
	return &UniformSample{
		values: make([]float64, size),
		rnd:    newPrivateRand(),
	}
}

// Update admits value into the reservoir.
func (s *UniformSample) Update(value float64) {
	s.count++
	if s.count <= len(s.values) {
		s.values[s.count-1] = value
		return
	}
	if r := s.rnd.Intn(s.count); r < len(s.values) {
		s.values[r] = value
	}
}

// Size reports how many values the reservoir currently retains.
func (s *UniformSample) Size() int {
	if s.count > len(s.values) {
		return len(s.values)
	}
	return s.count
}

// Values returns a copy of the current sample.
func (s *UniformSample) Values() []float64 {
	out := make([]float64, s.Size())
	copy(out, s.values)
	return out
}

// Clear resets the reservoir to the empty state.
func (s *UniformSample) Clear() {
	for i := range s.values {
		s.values[i] = 0
	}
	s.count = 0
}

// newPrivateRand builds a math/rand source seeded from crypto/rand so
// instances never share a sequence with each other or with the global rand.
func newPrivateRand() *mrand.Rand {
	var seed [8]byte
	_, _ = rand.Read(seed[:])
	return mrand.New(mrand.NewSource(int64(binary.LittleEndian.Uint64(seed[:]))))
}
