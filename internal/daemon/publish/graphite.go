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

package publish

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"statagg"
	"statagg/hashring"
)

// GraphitePublisher ships flushed samples to one or more carbon hosts as
// plaintext "<name> <value> <timestamp>" lines over TCP. With several hosts
// configured, each sample is sharded by metric name through a consistent
// hash ring, so a given metric always lands on the same carbon instance and
// membership changes move as few metrics as possible. With Replicate set,
// every sample is additionally fanned out to all distinct ring nodes.
type GraphitePublisher struct {
	ring        *hashring.Ring
	dialTimeout time.Duration
	replicate   bool

	mu    sync.Mutex
	conns map[string]net.Conn
}

// GraphiteOptions configures the publisher beyond its host list.
type GraphiteOptions struct {
	// ReplicaCount is the virtual node count per host; 0 means the ring
	// default.
	ReplicaCount int
	// DialTimeout bounds connection establishment; 0 means 5 seconds.
	DialTimeout time.Duration
	// Replicate sends every sample to all hosts instead of sharding.
	Replicate bool
}

// NewGraphitePublisher creates a publisher sharding over the given
// "host:port" carbon endpoints.
func NewGraphitePublisher(hosts []string, opts GraphiteOptions) (*GraphitePublisher, error) {
	if len(hosts) == 0 {
		return nil, fmt.Errorf("publish: graphite needs at least one host")
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return &GraphitePublisher{
		ring:        hashring.NewWithReplicas(opts.ReplicaCount, hosts...),
		dialTimeout: opts.DialTimeout,
		replicate:   opts.Replicate,
		conns:       make(map[string]net.Conn),
	}, nil
}

// PublishBatch groups the batch per carbon host and writes each group as a
// single payload. A write failure drops the cached connection so the next
// flush redials; the error is returned after all groups are attempted.
func (g *GraphitePublisher) PublishBatch(ctx context.Context, samples []statagg.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	groups := make(map[string][]string)
	for _, s := range samples {
		hosts, err := g.route(s.Name)
		if err != nil {
			return err
		}
		line := FormatLine(s)
		for _, host := range hosts {
			groups[host] = append(groups[host], line)
		}
	}

	var firstErr error
	for host, lines := range groups {
		if err := g.send(ctx, host, lines); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close shuts down all cached carbon connections.
func (g *GraphitePublisher) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for host, conn := range g.conns {
		_ = conn.Close()
		delete(g.conns, host)
	}
}

func (g *GraphitePublisher) route(name string) ([]string, error) {
	if g.replicate {
		nodes, err := g.ring.GetNodes(name)
		if err != nil {
			return nil, fmt.Errorf("publish: route %s: %w", name, err)
		}
		return nodes, nil
	}
	node, err := g.ring.GetNode(name)
	if err != nil {
		return nil, fmt.Errorf("publish: route %s: %w", name, err)
	}
	return []string{node}, nil
}

func (g *GraphitePublisher) send(ctx context.Context, host string, lines []string) error {
	conn, err := g.conn(ctx, host)
	if err != nil {
		return err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	payload := strings.Join(lines, "\n") + "\n"
	if _, err := conn.Write([]byte(payload)); err != nil {
		g.drop(host)
		return fmt.Errorf("publish: write to %s: %w", host, err)
	}
	return nil
}

// conn returns the cached connection for host, dialing on first use.
func (g *GraphitePublisher) conn(ctx context.Context, host string) (net.Conn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if conn, ok := g.conns[host]; ok {
		return conn, nil
	}
	d := net.Dialer{Timeout: g.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return nil, fmt.Errorf("publish: dial %s: %w", host, err)
	}
	g.conns[host] = conn
	return conn, nil
}

func (g *GraphitePublisher) drop(host string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if conn, ok := g.conns[host]; ok {
		_ = conn.Close()
		delete(g.conns, host)
	}
}
