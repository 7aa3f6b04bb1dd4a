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

// Package statagg provides streaming metric reporters for a statsd-style
// aggregation daemon. Each reporter binds a metric name to a compact
// estimator from the stats package, accepts a stream of observations, and
// emits (name, value, timestamp) samples on every flush without retaining
// the observation history.
//
// Reporters are single-writer: the daemon serializes Process/Flush calls
// per reporter, and no internal locking is provided.
package statagg

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Sample is one flushed data point, published downstream as the plaintext
// line "<name> <value> <timestamp>".
type Sample struct {
	Name      string
	Value     float64
	Timestamp int64
}

// Reporter is the capability every metric kind implements: ingest the value
// fields of one parsed message, and emit samples for a flush interval.
// Dispatch is always through this interface, never by inspecting the
// concrete type.
type Reporter interface {
	Process(fields []string) error
	Flush(interval time.Duration, timestamp int64) []Sample
}

// joinPrefix composes the emitted metric name base. A non-empty prefix gets
// a dot separator, matching the wire naming of the original deployments.
func joinPrefix(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// sortedSamples turns a suffix->value map into samples ordered by suffix
// name, so flush output is deterministic across runs.
func sortedSamples(base string, items map[string]float64, timestamp int64) []Sample {
	suffixes := make([]string, 0, len(items))
	for s := range items {
		suffixes = append(suffixes, s)
	}
	sort.Strings(suffixes)

	out := make([]Sample, 0, len(items))
	for _, s := range suffixes {
		out = append(out, Sample{Name: base + s, Value: items[s], Timestamp: timestamp})
	}
	return out
}

// parseValue reads the leading numeric field of a message.
func parseValue(fields []string) (float64, error) {
	if len(fields) == 0 {
		return 0, fmt.Errorf("statagg: message has no value field")
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("statagg: bad value %q: %w", fields[0], err)
	}
	return v, nil
}
