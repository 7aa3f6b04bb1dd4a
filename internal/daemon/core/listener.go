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
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// maxDatagram bounds a single UDP read. Metric datagrams are tiny; 64 KiB
// covers the largest the transport can deliver.
const maxDatagram = 64 * 1024

// Listener accepts metric lines over UDP datagrams and TCP streams and
// feeds them through the router into the processor. Datagrams may carry
// multiple newline-separated lines.
type Listener struct {
	processor *Processor
	router    *Router

	udpConn net.PacketConn
	tcpLn   net.Listener

	// connMu guards conns, the accepted TCP connections still being read.
	// Stop closes them so their scan loops unblock instead of waiting for
	// the client to hang up.
	connMu sync.Mutex
	conns  map[net.Conn]struct{}

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  uint32
}

// NewListener creates a listener. Either address may be empty to disable
// that transport.
func NewListener(processor *Processor, router *Router, udpAddr, tcpAddr string) (*Listener, error) {
	l := &Listener{
		processor: processor,
		router:    router,
		conns:     make(map[net.Conn]struct{}),
		stopChan:  make(chan struct{}),
	}

	if udpAddr != "" {
		conn, err := net.ListenPacket("udp", udpAddr)
		if err != nil {
			return nil, fmt.Errorf("core: listen udp %s: %w", udpAddr, err)
		}
		l.udpConn = conn
	}
	if tcpAddr != "" {
		ln, err := net.Listen("tcp", tcpAddr)
		if err != nil {
			if l.udpConn != nil {
				_ = l.udpConn.Close()
			}
			return nil, fmt.Errorf("core: listen tcp %s: %w", tcpAddr, err)
		}
		l.tcpLn = ln
	}
	return l, nil
}

// UDPAddr returns the bound UDP address, or nil if UDP is disabled.
func (l *Listener) UDPAddr() net.Addr {
	if l.udpConn == nil {
		return nil
	}
	return l.udpConn.LocalAddr()
}

// TCPAddr returns the bound TCP address, or nil if TCP is disabled.
func (l *Listener) TCPAddr() net.Addr {
	if l.tcpLn == nil {
		return nil
	}
	return l.tcpLn.Addr()
}

// Start launches the receive goroutines.
func (l *Listener) Start() {
	if l.udpConn != nil {
		log.WithField("addr", l.udpConn.LocalAddr()).Info("listening for metrics on udp")
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.udpLoop()
		}()
	}
	if l.tcpLn != nil {
		log.WithField("addr", l.tcpLn.Addr()).Info("listening for metrics on tcp")
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.acceptLoop()
		}()
	}
}

// Stop closes the sockets, including accepted TCP connections, and waits
// for the receive goroutines to drain.
func (l *Listener) Stop() {
	if !atomic.CompareAndSwapUint32(&l.stopped, 0, 1) {
		return
	}
	close(l.stopChan)
	if l.udpConn != nil {
		_ = l.udpConn.Close()
	}
	if l.tcpLn != nil {
		_ = l.tcpLn.Close()
	}
	l.connMu.Lock()
	for conn := range l.conns {
		_ = conn.Close()
	}
	l.connMu.Unlock()
	l.wg.Wait()
}

func (l *Listener) trackConn(conn net.Conn) {
	l.connMu.Lock()
	l.conns[conn] = struct{}{}
	l.connMu.Unlock()
}

func (l *Listener) untrackConn(conn net.Conn) {
	l.connMu.Lock()
	delete(l.conns, conn)
	l.connMu.Unlock()
	_ = conn.Close()
}

func (l *Listener) udpLoop() {
	buf := make([]byte, maxDatagram)
	for {
		n, _, err := l.udpConn.ReadFrom(buf)
		if err != nil {
			select {
			case <-l.stopChan:
				return
			default:
				log.WithError(err).Warn("udp read failed")
				continue
			}
		}
		l.ingest(string(buf[:n]))
	}
}

func (l *Listener) acceptLoop() {
	for {
		conn, err := l.tcpLn.Accept()
		if err != nil {
			select {
			case <-l.stopChan:
				return
			default:
				log.WithError(err).Warn("tcp accept failed")
				continue
			}
		}
		l.trackConn(conn)
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			defer l.untrackConn(conn)
			scanner := bufio.NewScanner(conn)
			for scanner.Scan() {
				l.ingest(scanner.Text())
			}
		}()
	}
}

// ingest splits a payload into lines, routes each, and processes whatever
// the router lets through. Parse errors are already counted by the
// processor; nothing stops the loop.
func (l *Listener) ingest(payload string) {
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, routed := range l.router.Route(line) {
			_ = l.processor.ProcessLine(routed)
		}
	}
}
