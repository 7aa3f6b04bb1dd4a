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

// Package stats provides the streaming estimation substrate for the
// aggregation daemon: a fast keyed hash, a sliding-window distinct counter,
// uniform and forward-decaying reservoir samples, and an exponentially
// weighted moving average. Every structure here is a plain single-owner
// value object; callers serialize writes (see the daemon's flusher).
package stats

import "math/bits"

// SBoxHash is a very fast keyed hash over byte strings. Each instance owns a
// table of 256 random 32-bit values, so two instances hash the same input
// differently. The randomization defends against adversarial key clustering
// and must stay per-instance; the table is never shared or derived from a
// process-global generator.
//
// Not cryptographically strong. Its only contracts are determinism for a
// fixed instance and an even spread over the 32-bit output space.
type SBoxHash struct {
	table [256]uint32
}

// NewSBoxHash creates a hash instance with a freshly generated random table.
func NewSBoxHash() *SBoxHash {
	src := newPrivateRand()
	h := &SBoxHash{}
	for i := range h.table {
		h.table[i] = src.Uint32()
	}
	return h
}

// Hash folds data through the substitution table: each byte XORs its table
// entry into the accumulator, which is then multiplied by 3 modulo 2^32.
func (h *SBoxHash) Hash(data []byte) uint32 {
	var value uint32
	for _, c := range data {
		value = (value ^ h.table[c]) * 3
	}
	return value
}

// HashString is Hash for a string key without forcing callers to convert.
func (h *SBoxHash) HashString(s string) uint32 {
	var value uint32
	for i := 0; i < len(s); i++ {
		value = (value ^ h.table[s[i]]) * 3
	}
	return value
}

// trailingZeros counts the low-order zero bits before the first set bit.
// It is defined as 0 for n == 0; the distinct counter only uses the result
// to index a bucket row, never to reconstruct the hash.
func trailingZeros(n uint32) int {
	if n == 0 {
		return 0
	}
	return bits.TrailingZeros32(n)
}
