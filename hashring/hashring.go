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

// Package hashring maps metric keys to backend nodes with consistent
// hashing. Each node is assigned many virtual positions on a 32-bit ring
// (one per replica, keyed "node:i"), which evens out the load and keeps key
// remapping minimal under membership churn: only keys between the changed
// node's virtual positions move.
package hashring

import (
	"crypto/md5"
	"encoding/binary"
	"errors"
	"sort"
	"strconv"
	"sync"
)

// DefaultReplicaCount is the number of virtual nodes per physical node.
// High replication trades ring memory for a more even key distribution.
const DefaultReplicaCount = 1024

// ErrEmptyRing is returned by lookups on a ring with no nodes. Callers must
// add at least one node before routing keys.
var ErrEmptyRing = errors.New("hashring: ring has no nodes")

// entry is one virtual node: a ring position bound to a physical node.
type entry struct {
	position uint32
	node     string
}

// Ring is a consistent-hashing ring. Membership changes are expected to be
// rare (configuration time); the internal RWMutex lets lookups interleave
// safely with a concurrent rebuild, so readers never observe a partially
// filtered ring.
type Ring struct {
	mu           sync.RWMutex
	ring         []entry // sorted by (position, node)
	nodes        map[string]struct{}
	replicaCount int
}

// New creates a ring containing the given nodes with DefaultReplicaCount
// replicas each.
func New(nodes ...string) *Ring {
	return NewWithReplicas(DefaultReplicaCount, nodes...)
}

// NewWithReplicas creates a ring with an explicit replica count.
func NewWithReplicas(replicaCount int, nodes ...string) *Ring {
	if replicaCount <= 0 {
		replicaCount = DefaultReplicaCount
	}
	r := &Ring{
		nodes:        make(map[string]struct{}),
		replicaCount: replicaCount,
	}
	for _, node := range nodes {
		r.AddNode(node)
	}
	return r
}

// position computes a key's ring position: the first 32 bits (8 hex digits)
// of the MD5 digest of the key, as an unsigned integer. Carbon-compatible.
func position(key string) uint32 {
	sum := md5.Sum([]byte(key))
	return binary.BigEndian.Uint32(sum[:4])
}

// AddNode inserts replicaCount virtual entries for node, one per replica
// index i at position("node:i"). Adding a node that is already a member is
// a no-op.
func (r *Ring) AddNode(node string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nodes[node]; ok {
		return
	}
	r.nodes[node] = struct{}{}
	for i := 0; i < r.replicaCount; i++ {
		e := entry{position: position(node + ":" + strconv.Itoa(i)), node: node}
		idx := sort.Search(len(r.ring), func(j int) bool {
			if r.ring[j].position != e.position {
				return r.ring[j].position > e.position
			}
			return r.ring[j].node >= e.node
		})
		r.ring = append(r.ring, entry{})
		copy(r.ring[idx+1:], r.ring[idx:])
		r.ring[idx] = e
	}
}

// RemoveNode discards node from the member set and rebuilds the ring
// without its entries. Removing a non-member is a no-op.
func (r *Ring) RemoveNode(node string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nodes[node]; !ok {
		return
	}
	delete(r.nodes, node)
	kept := r.ring[:0]
	for _, e := range r.ring {
		if e.node != node {
			kept = append(kept, e)
		}
	}
	r.ring = kept
}

// GetNode returns the node owning key: the first ring entry at or clockwise
// after the key's position, wrapping to the start of the ring.
func (r *Ring) GetNode(key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.ring) == 0 {
		return "", ErrEmptyRing
	}
	return r.ring[r.search(key)].node, nil
}

// GetNodes returns the distinct nodes encountered walking clockwise from
// the key's position, primary first. It is used for replicated fan-out: the
// result has no duplicates and at most one entry per member node.
func (r *Ring) GetNodes(key string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.ring) == 0 {
		return nil, ErrEmptyRing
	}

	idx := r.search(key)
	last := (idx - 1 + len(r.ring)) % len(r.ring)

	var nodes []string
	seen := make(map[string]struct{})
	// Stop once every member appears or the walk comes back around; the
	// second guard keeps a degenerate ring from looping forever.
	for len(nodes) < len(r.nodes) && idx != last {
		if _, ok := seen[r.ring[idx].node]; !ok {
			seen[r.ring[idx].node] = struct{}{}
			nodes = append(nodes, r.ring[idx].node)
		}
		idx = (idx + 1) % len(r.ring)
	}
	return nodes, nil
}

// Nodes returns the current member set in unspecified order.
func (r *Ring) Nodes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.nodes))
	for n := range r.nodes {
		out = append(out, n)
	}
	return out
}

// Size returns the number of virtual entries on the ring.
func (r *Ring) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ring)
}

// search finds the index of the first entry with position >= the key's
// position, wrapping to 0 past the end. Callers hold at least a read lock
// and have checked the ring is non-empty.
func (r *Ring) search(key string) int {
	pos := position(key)
	idx := sort.Search(len(r.ring), func(i int) bool {
		return r.ring[i].position >= pos
	})
	return idx % len(r.ring)
}
