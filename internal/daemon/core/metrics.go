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

// Package core contains the in-memory machinery of the aggregation daemon.
// This file holds shared, process-level counters used by the status
// endpoint. They are atomic to avoid allocation and locks on the hot path.
package core

import "sync/atomic"

var (
	receivedLines  atomic.Int64
	malformedLines atomic.Int64
	flushedSamples atomic.Int64
)

// RecordReceived increments the number of received metric lines.
func RecordReceived(n int64) {
	if n > 0 {
		receivedLines.Add(n)
	}
}

// RecordMalformed increments the number of unparseable lines.
func RecordMalformed(n int64) {
	if n > 0 {
		malformedLines.Add(n)
	}
}

// RecordFlushed increments the number of samples handed to publishers.
func RecordFlushed(n int64) {
	if n > 0 {
		flushedSamples.Add(n)
	}
}

// EventTotals is a snapshot of the process counters.
type EventTotals struct {
	ReceivedLines  int64 `json:"received_lines"`
	MalformedLines int64 `json:"malformed_lines"`
	FlushedSamples int64 `json:"flushed_samples"`
}

// GetEventTotals returns a snapshot of the current counters.
func GetEventTotals() EventTotals {
	return EventTotals{
		ReceivedLines:  receivedLines.Load(),
		MalformedLines: malformedLines.Load(),
		FlushedSamples: flushedSamples.Load(),
	}
}

// resetEventTotals resets counters to zero. Intended for tests only.
func resetEventTotals() {
	receivedLines.Store(0)
	malformedLines.Store(0)
	flushedSamples.Store(0)
}
