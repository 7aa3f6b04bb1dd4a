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
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSBoxHash_Deterministic verifies the fixed-instance contract: the same
// instance always hashes the same input to the same value.
func TestSBoxHash_Deterministic(t *testing.T) {
	h := NewSBoxHash()
	for _, in := range []string{"", "a", "some.metric.name", "\x00\xff"} {
		first := h.HashString(in)
		for i := 0; i < 5; i++ {
			require.Equal(t, first, h.HashString(in), "input %q", in)
		}
	}
	require.Equal(t, h.HashString("abc"), h.Hash([]byte("abc")))
}

// TestSBoxHash_InstancesDiffer verifies that independently constructed
// instances hash the same inputs differently: the tables are per-instance.
// A disagreement on at least one of a handful of inputs is overwhelmingly
// likely; total agreement would mean shared random state.
func TestSBoxHash_InstancesDiffer(t *testing.T) {
	a, b := NewSBoxHash(), NewSBoxHash()
	differ := false
	for i := 0; i < 16; i++ {
		in := "probe-" + strconv.Itoa(i)
		if a.HashString(in) != b.HashString(in) {
			differ = true
			break
		}
	}
	require.True(t, differ, "two instances produced identical hashes; table is not per-instance")
}

// TestSBoxHash_SingleBytesDistinct checks that for one table all 256
// single-byte inputs map to distinct outputs.
func TestSBoxHash_SingleBytesDistinct(t *testing.T) {
	h := NewSBoxHash()
	seen := make(map[uint32]struct{}, 256)
	for c := 0; c < 256; c++ {
		seen[h.Hash([]byte{byte(c)})] = struct{}{}
	}
	require.Len(t, seen, 256)
}

// TestSBoxHash_Distribution runs a coarse chi-square check over the top
// byte of 10000 hashed keys. The statistic for 256 uniform bins has mean
// 255; anything over 400 signals a badly skewed table.
func TestSBoxHash_Distribution(t *testing.T) {
	const n = 10000
	const buckets = 256

	h := NewSBoxHash()
	bins := make([]int, buckets)
	for i := 0; i < n; i++ {
		bins[h.HashString(strconv.Itoa(i))>>24]++
	}

	expected := float64(n) / buckets
	chi2 := 0.0
	for _, x := range bins {
		d := float64(x) - expected
		chi2 += d * d / expected
	}
	require.Less(t, chi2, 400.0, "hash output is not evenly distributed")
}

// TestTrailingZeros pins the trailing-zero-run definition used to index
// counter buckets.
func TestTrailingZeros(t *testing.T) {
	cases := []struct {
		n    uint32
		want int
	}{
		{1, 0}, {2, 1}, {4, 2}, {5, 0}, {8, 3}, {9, 0}, {0, 0}, {1 << 31, 31},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, trailingZeros(tc.n), "trailingZeros(%d)", tc.n)
	}
}

func BenchmarkSBoxHash(b *testing.B) {
	h := NewSBoxHash()
	key := []byte("gorets.some.subsystem.requests")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.Hash(key)
	}
}
