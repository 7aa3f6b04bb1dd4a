//go:build e2e

// Package e2e contains end-to-end tests that run the daemon pipeline over
// real sockets: statsd lines in over UDP, routed, aggregated, and flushed
// out through a publisher.
package e2e

import (
	"context"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"statagg"
	"statagg/internal/daemon/core"
	"statagg/internal/daemon/publish"
)

// capturePublisher records every flushed batch.
type capturePublisher struct {
	mu      sync.Mutex
	samples []statagg.Sample
}

func (c *capturePublisher) PublishBatch(_ context.Context, samples []statagg.Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, samples...)
	return nil
}

func (c *capturePublisher) byName() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]float64, len(c.samples))
	for _, s := range c.samples {
		out[s.Name] = s.Value
	}
	return out
}

type pipeline struct {
	listener *core.Listener
	flusher  *core.Flusher
	registry *core.Registry
	sink     *capturePublisher
	conn     net.Conn
}

// startPipeline wires listener, router, registry and flusher on loopback
// UDP and returns a connected client socket.
func startPipeline(t *testing.T, rules ...string) *pipeline {
	t.Helper()

	registry := core.NewRegistry("stats", nil)
	processor := core.NewProcessor(registry)
	router, err := core.NewRouter(rules)
	require.NoError(t, err)

	sink := &capturePublisher{}
	// A long interval keeps the ticker quiet; tests trigger the final
	// flush through Stop.
	flusher := core.NewFlusher(registry, sink, clock.New(), time.Hour, 0, 0)
	flusher.Start()

	listener, err := core.NewListener(processor, router, "127.0.0.1:0", "")
	require.NoError(t, err)
	listener.Start()

	conn, err := net.Dial("udp", listener.UDPAddr().String())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		listener.Stop()
		flusher.Stop()
		router.Close()
	})
	return &pipeline{listener: listener, flusher: flusher, registry: registry, sink: sink, conn: conn}
}

// waitForReporters polls until the registry holds n reporters, failing
// after a deadline. UDP delivery on loopback is fast but asynchronous.
func (p *pipeline) waitForReporters(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.registry.Len() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d reporters, have %d", n, p.registry.Len())
}

func TestE2E_UDPToFlush(t *testing.T) {
	p := startPipeline(t)

	_, err := p.conn.Write([]byte("gorets.requests:3|c\ngorets.requests:4|c\nqueue.depth:17|g"))
	require.NoError(t, err)
	p.waitForReporters(t, 2)

	p.listener.Stop()
	p.flusher.Stop()

	samples := p.sink.byName()
	require.Equal(t, 7.0, samples["stats.gorets.requests.count"])
	require.Equal(t, 17.0, samples["stats.queue.depth.value"])
}

func TestE2E_TimerPercentilesOnTheWire(t *testing.T) {
	p := startPipeline(t)

	before := core.GetEventTotals().ReceivedLines
	for i := 1; i <= 100; i++ {
		_, err := p.conn.Write([]byte("response.time:" + strconv.Itoa(i) + "|ms"))
		require.NoError(t, err)
	}
	p.waitForReporters(t, 1)

	// Wait until all 100 datagrams are ingested.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if core.GetEventTotals().ReceivedLines-before >= 100 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	p.listener.Stop()
	p.flusher.Stop()

	samples := p.sink.byName()
	require.InDelta(t, 50.5, samples["stats.response.time.mean"], 0.01)
	require.Equal(t, 1.0, samples["stats.response.time.min"])
	require.Equal(t, 100.0, samples["stats.response.time.max"])
	require.Greater(t, samples["stats.response.time.99percentile"], samples["stats.response.time.median"])
}

func TestE2E_RouterDropsBeforeAggregation(t *testing.T) {
	p := startPipeline(t, "path_like devel.* => drop")

	_, err := p.conn.Write([]byte("devel.gorets:1|c\nprod.gorets:2|c"))
	require.NoError(t, err)
	p.waitForReporters(t, 1)

	p.listener.Stop()
	p.flusher.Stop()

	samples := p.sink.byName()
	require.NotContains(t, samples, "stats.devel.gorets.count")
	require.Equal(t, 2.0, samples["stats.prod.gorets.count"])
}

func TestE2E_GraphiteDownstream(t *testing.T) {
	// Full path: UDP in, graphite lines out over TCP.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan string, 16)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				received <- string(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()

	graphite, err := publish.NewGraphitePublisher([]string{ln.Addr().String()}, publish.GraphiteOptions{})
	require.NoError(t, err)
	defer graphite.Close()

	registry := core.NewRegistry("stats", nil)
	processor := core.NewProcessor(registry)
	router, err := core.NewRouter(nil)
	require.NoError(t, err)
	defer router.Close()

	flusher := core.NewFlusher(registry, graphite, clock.New(), time.Hour, 0, 0)
	flusher.Start()

	listener, err := core.NewListener(processor, router, "127.0.0.1:0", "")
	require.NoError(t, err)
	listener.Start()

	conn, err := net.Dial("udp", listener.UDPAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("gorets:5|c"))
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for registry.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	listener.Stop()
	flusher.Stop()

	select {
	case payload := <-received:
		require.Contains(t, payload, "stats.gorets.count 5 ")
	case <-time.After(2 * time.Second):
		t.Fatal("no graphite payload received")
	}
}
