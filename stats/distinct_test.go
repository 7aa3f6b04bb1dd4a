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
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSlidingDistinctCounter_Estimate inserts known numbers of distinct
// items and checks the lifetime estimate stays inside the expected
// Flajolet-Martin error band (15% for a 32x32 grid). The estimator is
// probabilistic; never tighten these to equality checks.
func TestSlidingDistinctCounter_Estimate(t *testing.T) {
	for _, r := range []int{1000, 10000} {
		t.Run(strconv.Itoa(r), func(t *testing.T) {
			c := NewSlidingDistinctCounter(32, 32)
			for i := 0; i < r; i++ {
				c.Add(1, strconv.Itoa(i))
			}
			got := c.Distinct(0)
			require.Less(t, math.Abs(float64(got-r)), 0.15*float64(r),
				"estimate %d for %d distinct items", got, r)
		})
	}
}

// TestSlidingDistinctCounter_Empty verifies a fresh counter estimates
// (close to) zero: every leading run is empty, so the estimate is
// round(2^0/phi) = 1 at most.
func TestSlidingDistinctCounter_Empty(t *testing.T) {
	c := NewSlidingDistinctCounter(32, 32)
	require.LessOrEqual(t, c.Distinct(0), 1)
}

// TestSlidingDistinctCounter_WindowCutoff checks the since parameter: items
// recorded at or before the cutoff stop counting, items after it keep
// counting.
func TestSlidingDistinctCounter_WindowCutoff(t *testing.T) {
	c := NewSlidingDistinctCounter(32, 32)
	for i := 0; i < 500; i++ {
		c.Add(100, "old-"+strconv.Itoa(i))
	}
	for i := 0; i < 500; i++ {
		c.Add(200, "new-"+strconv.Itoa(i))
	}

	whole := c.Distinct(0)
	recent := c.Distinct(100) // strictly-greater cutoff excludes the old batch
	require.Less(t, math.Abs(float64(whole-1000)), 300.0, "lifetime estimate %d", whole)
	require.LessOrEqual(t, recent, whole, "windowed estimate can never exceed lifetime")
	require.Less(t, math.Abs(float64(recent-500)), 250.0, "windowed estimate %d", recent)
}

func BenchmarkSlidingDistinctCounterAdd(b *testing.B) {
	c := NewSlidingDistinctCounter(32, 32)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Add(float64(i), "user-"+strconv.Itoa(i&1023))
	}
}
