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

package core

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startTCPListener(t *testing.T) (*Listener, *Registry) {
	t.Helper()
	p, registry := newTestProcessor()
	router, err := NewRouter(nil)
	require.NoError(t, err)
	t.Cleanup(router.Close)

	l, err := NewListener(p, router, "", "127.0.0.1:0")
	require.NoError(t, err)
	l.Start()
	t.Cleanup(l.Stop)
	return l, registry
}

func waitForReporters(t *testing.T, registry *Registry, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if registry.Len() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d reporters, have %d", n, registry.Len())
}

func TestListener_TCPIngest(t *testing.T) {
	l, registry := startTCPListener(t)

	conn, err := net.Dial("tcp", l.TCPAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("gorets:3|c\ngorets:4|c\n"))
	require.NoError(t, err)
	waitForReporters(t, registry, 1)

	l.Stop()
	samples := flushAll(registry)
	require.Equal(t, 7.0, samples["gorets.count"])
}

// TestListener_StopClosesIdleTCPConns holds a TCP connection open without
// ever hanging up and checks that Stop still returns; the listener must
// close accepted connections itself rather than wait for the client.
func TestListener_StopClosesIdleTCPConns(t *testing.T) {
	l, registry := startTCPListener(t)

	conn, err := net.Dial("tcp", l.TCPAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	// One line proves the connection is being served before Stop.
	_, err = conn.Write([]byte("gorets:1|c\n"))
	require.NoError(t, err)
	waitForReporters(t, registry, 1)

	done := make(chan struct{})
	go func() {
		l.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return with an idle TCP connection open")
	}
}
