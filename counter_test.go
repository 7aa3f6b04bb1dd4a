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

package statagg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCounterReporter_FlushResets(t *testing.T) {
	c := NewCounterReporter("requests", "statagg")
	c.Mark(3)
	c.Mark(4)

	samples := c.Flush(10*time.Second, 100)
	require.Equal(t, []Sample{{Name: "statagg.requests.count", Value: 7, Timestamp: 100}}, samples)

	samples = c.Flush(10*time.Second, 110)
	require.Equal(t, 0.0, samples[0].Value)
}

func TestCounterReporter_Process(t *testing.T) {
	c := NewCounterReporter("requests", "")
	require.NoError(t, c.Process([]string{"2"}))
	require.NoError(t, c.Process([]string{"0.5"}))
	require.Error(t, c.Process([]string{"x"}))
	require.Error(t, c.Process(nil))

	samples := c.Flush(10*time.Second, 100)
	require.Equal(t, "requests.count", samples[0].Name)
	require.Equal(t, 2.5, samples[0].Value)
}

func TestGaugeReporter_LastValueWins(t *testing.T) {
	g := NewGaugeReporter("queue_depth", "")
	g.Mark(3)
	g.Mark(9)

	samples := g.Flush(10*time.Second, 100)
	require.Equal(t, []Sample{{Name: "queue_depth.value", Value: 9, Timestamp: 100}}, samples)

	// Gauges hold their reading across flushes.
	samples = g.Flush(10*time.Second, 110)
	require.Equal(t, 9.0, samples[0].Value)
}

func TestGaugeReporter_Process(t *testing.T) {
	g := NewGaugeReporter("queue_depth", "statagg")
	require.NoError(t, g.Process([]string{"17"}))
	require.Error(t, g.Process([]string{""}))

	samples := g.Flush(10*time.Second, 100)
	require.Equal(t, "statagg.queue_depth.value", samples[0].Name)
	require.Equal(t, 17.0, samples[0].Value)
}
