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

package hashring

import (
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRing_EmptyLookupsFail(t *testing.T) {
	r := New()
	_, err := r.GetNode("gorets.requests")
	require.ErrorIs(t, err, ErrEmptyRing)
	_, err = r.GetNodes("gorets.requests")
	require.ErrorIs(t, err, ErrEmptyRing)
}

func TestRing_SizeTracksReplicas(t *testing.T) {
	r := New("a", "b", "c")
	require.Equal(t, 3*DefaultReplicaCount, r.Size())

	r.RemoveNode("b")
	require.Equal(t, 2*DefaultReplicaCount, r.Size())
	require.ElementsMatch(t, []string{"a", "c"}, r.Nodes())
}

func TestRing_AddIsIdempotent(t *testing.T) {
	r := NewWithReplicas(16, "a")
	r.AddNode("a")
	require.Equal(t, 16, r.Size())
	require.ElementsMatch(t, []string{"a"}, r.Nodes())
}

func TestRing_RemoveUnknownIsNoop(t *testing.T) {
	r := NewWithReplicas(16, "a")
	r.RemoveNode("b")
	require.Equal(t, 16, r.Size())
}

func TestRing_PositionsSorted(t *testing.T) {
	r := NewWithReplicas(64, "a", "b", "c")
	require.True(t, sort.SliceIsSorted(r.ring, func(i, j int) bool {
		if r.ring[i].position != r.ring[j].position {
			return r.ring[i].position < r.ring[j].position
		}
		return r.ring[i].node < r.ring[j].node
	}))
}

func TestRing_LookupIsStable(t *testing.T) {
	r := New("10.0.0.1:2003", "10.0.0.2:2003", "10.0.0.3:2003")
	for i := 0; i < 50; i++ {
		key := "gorets.requests." + strconv.Itoa(i)
		first, err := r.GetNode(key)
		require.NoError(t, err)
		again, err := r.GetNode(key)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

// TestRing_GetNodesDistinct verifies the fan-out walk yields every member
// exactly once, primary first.
func TestRing_GetNodesDistinct(t *testing.T) {
	members := []string{"a", "b", "c", "d"}
	r := New(members...)
	for i := 0; i < 20; i++ {
		key := "key-" + strconv.Itoa(i)
		nodes, err := r.GetNodes(key)
		require.NoError(t, err)
		require.ElementsMatch(t, members, nodes)

		primary, err := r.GetNode(key)
		require.NoError(t, err)
		require.Equal(t, primary, nodes[0])
	}
}

// TestRing_RemovalOnlyMovesOwnedKeys checks the consistent-hashing
// guarantee: removing a node never reassigns a key that node did not own.
func TestRing_RemovalOnlyMovesOwnedKeys(t *testing.T) {
	r := New("a", "b", "c")

	before := make(map[string]string)
	for i := 0; i < 500; i++ {
		key := "metric." + strconv.Itoa(i)
		node, err := r.GetNode(key)
		require.NoError(t, err)
		before[key] = node
	}

	r.RemoveNode("b")
	for key, owner := range before {
		node, err := r.GetNode(key)
		require.NoError(t, err)
		if owner != "b" {
			require.Equal(t, owner, node, "key %s moved off a surviving node", key)
		} else {
			require.NotEqual(t, "b", node)
		}
	}
}

// TestRing_Distribution checks virtual replication spreads keys roughly
// evenly: each of 3 nodes should own 33% of 30000 keys give or take a third.
func TestRing_Distribution(t *testing.T) {
	r := New("a", "b", "c")
	counts := make(map[string]int)
	const total = 30000
	for i := 0; i < total; i++ {
		node, err := r.GetNode("stats.timers.metric." + strconv.Itoa(i))
		require.NoError(t, err)
		counts[node]++
	}
	for node, n := range counts {
		share := float64(n) / total
		require.InDelta(t, 1.0/3, share, 0.11, "node %s owns %d keys", node, n)
	}
}

func TestRing_ConcurrentLookups(t *testing.T) {
	r := New("a", "b")
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if _, err := r.GetNode("k" + strconv.Itoa(w*1000+i)); err != nil {
					t.Error(err)
					return
				}
			}
		}(w)
	}
	r.AddNode("c")
	r.RemoveNode("a")
	wg.Wait()
}

func BenchmarkRingGetNode(b *testing.B) {
	r := New("10.0.0.1:2003", "10.0.0.2:2003", "10.0.0.3:2003")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.GetNode("gorets.some.subsystem.requests")
	}
}
