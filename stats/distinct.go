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

import "math"

// fmCorrection is the Flajolet-Martin bias-correction constant phi.
const fmCorrection = 0.77351

// SlidingDistinctCounter estimates COUNT(DISTINCT item) over sliding time
// windows. It is a Flajolet-Martin probabilistic counter where each bucket
// stores the timestamp of its most recent hit instead of a boolean, so a
// single grid answers "how many distinct items since t" for any cutoff t
// without re-hashing history.
//
// Caller contract: Add must be called with non-decreasing timestamps. An
// out-of-order timestamp regresses a bucket to an earlier time and silently
// makes older evidence look fresher; the structure does not defend against
// that because the sliding-window accuracy depends on last-write-wins.
//
// Expected relative error is roughly 0.78/sqrt(nHashes); with a 32x32 grid
// that lands in the 10-15% range, so consumers must treat estimates with
// tolerance rather than compare for equality.
type SlidingDistinctCounter struct {
	nHashes  int
	nBuckets int

	hashes  []*SBoxHash
	buckets [][]float64
}

// NewSlidingDistinctCounter creates a counter with nHashes independent hash
// instances and nBuckets timestamp buckets per hash row.
func NewSlidingDistinctCounter(nHashes, nBuckets int) *SlidingDistinctCounter {
	c := &SlidingDistinctCounter{
		nHashes:  nHashes,
		nBuckets: nBuckets,
		hashes:   make([]*SBoxHash, nHashes),
		buckets:  make([][]float64, nHashes),
	}
	for i := range c.hashes {
		c.hashes[i] = NewSBoxHash()
		c.buckets[i] = make([]float64, nBuckets)
	}
	return c
}

// Add records an observation of item at the given wall time (seconds).
// For every hash row the trailing-zero run of the item's hash selects a
// bucket (runs past the grid saturate into the last bucket) and the bucket's
// timestamp is overwritten with when.
func (c *SlidingDistinctCounter) Add(when float64, item string) {
	for i, h := range c.hashes {
		b := trailingZeros(h.HashString(item))
		if b > c.nBuckets-1 {
			b = c.nBuckets - 1
		}
		c.buckets[i][b] = when
	}
}

// Distinct estimates the number of distinct items seen strictly after since.
// Pass 0 to estimate over the counter's whole lifetime.
func (c *SlidingDistinctCounter) Distinct(since float64) int {
	total := 0.0
	for i := 0; i < c.nHashes; i++ {
		run := 0
		for b := 0; b < c.nBuckets; b++ {
			if c.buckets[i][b] <= since {
				break
			}
			run++
		}
		total += float64(run)
	}
	mean := total / float64(c.nHashes)
	return int(math.Round(math.Pow(2, mean) / fmCorrection))
}
