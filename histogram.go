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
	"math"
	"sort"
	"time"

	"github.com/benbjohnson/clock"

	"statagg/stats"
)

// defaultReservoirSize is 1028 elements, which offers a 99.9% confidence
// level with a 5% margin of error assuming a normal distribution.
const defaultReservoirSize = 1028

// defaultDecayAlpha heavily biases the decaying sample towards the past
// five minutes of measurements.
const defaultDecayAlpha = 0.015

// emptyHistogramBins is the canonical shape returned for a histogram with
// no observations.
const emptyHistogramBins = 10

// HistogramReporter calculates the distribution of a value. Count, sum,
// min, max, mean and variance are exact over the whole stream (variance via
// Welford's single-pass method); percentiles and bucketed histograms are
// approximate, computed from the reservoir sample.
type HistogramReporter struct {
	name   string
	prefix string
	sample stats.Sample

	count int64
	sum   float64
	min   float64
	max   float64

	// Welford accumulator: m is the running mean, s the accumulated
	// squared deviations.
	m float64
	s float64
}

var _ Reporter = (*HistogramReporter)(nil)

// NewHistogramReporter creates a histogram over the given sample.
func NewHistogramReporter(name, prefix string, sample stats.Sample) *HistogramReporter {
	return &HistogramReporter{name: name, prefix: prefix, sample: sample}
}

// NewUniformHistogramReporter creates a histogram over a uniform sample of
// the entire stream.
func NewUniformHistogramReporter(name, prefix string) *HistogramReporter {
	return NewHistogramReporter(name, prefix, stats.NewUniformSample(defaultReservoirSize))
}

// NewDecayingHistogramReporter creates a histogram biased towards roughly
// the last five minutes of measurements.
func NewDecayingHistogramReporter(name, prefix string, clk clock.Clock) *HistogramReporter {
	sample := stats.NewExponentiallyDecayingSample(defaultReservoirSize, defaultDecayAlpha, clk)
	return NewHistogramReporter(name, prefix, sample)
}

// Clear discards all recorded values.
func (h *HistogramReporter) Clear() {
	h.sample.Clear()
	h.count = 0
	h.sum = 0
	h.min = 0
	h.max = 0
	h.m = 0
	h.s = 0
}

// Update adds one recorded value.
func (h *HistogramReporter) Update(value float64) {
	h.count++
	h.sample.Update(value)
	h.sum += value

	if h.count == 1 {
		h.min = value
		h.max = value
		h.m = value
		h.s = 0
		return
	}
	if value < h.min {
		h.min = value
	}
	if value > h.max {
		h.max = value
	}
	oldM := h.m
	h.m = oldM + (value-oldM)/float64(h.count)
	h.s += (value - oldM) * (value - h.m)
}

// Count returns the number of recorded values.
func (h *HistogramReporter) Count() int64 { return h.count }

// Min returns the smallest recorded value, or 0 with no data.
func (h *HistogramReporter) Min() float64 {
	if h.count == 0 {
		return 0
	}
	return h.min
}

// Max returns the largest recorded value, or 0 with no data.
func (h *HistogramReporter) Max() float64 {
	if h.count == 0 {
		return 0
	}
	return h.max
}

// Mean returns the arithmetic mean of all recorded values, or 0 with no data.
func (h *HistogramReporter) Mean() float64 {
	if h.count == 0 {
		return 0
	}
	return h.sum / float64(h.count)
}

// Variance returns the sample variance. With one or fewer observations the
// variance is 0, never NaN.
func (h *HistogramReporter) Variance() float64 {
	if h.count <= 1 {
		return 0
	}
	return h.s / float64(h.count-1)
}

// StdDev returns the standard deviation of all recorded values.
func (h *HistogramReporter) StdDev() float64 {
	if h.count == 0 {
		return 0
	}
	return math.Sqrt(h.Variance())
}

// Percentiles returns the value at each requested percentile, linearly
// interpolated between the order statistics of the current sample. With no
// data every percentile is 0.
func (h *HistogramReporter) Percentiles(percentiles ...float64) []float64 {
	scores := make([]float64, len(percentiles))
	if h.count == 0 {
		return scores
	}

	values := h.sample.Values()
	sort.Float64s(values)
	n := len(values)

	for i, p := range percentiles {
		pos := p * float64(n+1)
		switch {
		case pos < 1:
			scores[i] = values[0]
		case pos >= float64(n):
			scores[i] = values[n-1]
		default:
			lower := values[int(pos)-1]
			upper := values[int(pos)]
			scores[i] = lower + (pos-math.Floor(pos))*(upper-lower)
		}
	}
	return scores
}

// HistogramBuckets returns a bucketed histogram of the current sample. The
// bin count follows Sturges' rule on the stream count; bin edges span the
// sample's own min and max, not the all-time extremes. With no data it
// returns the canonical ten zero buckets.
func (h *HistogramReporter) HistogramBuckets() []float64 {
	if h.count == 0 {
		return make([]float64, emptyHistogramBins)
	}

	nBins := int(math.Ceil(1 + math.Log2(float64(h.count))))
	scores := make([]float64, nBins)

	values := h.sample.Values()
	minValue, maxValue := values[0], values[0]
	for _, v := range values {
		if v < minValue {
			minValue = v
		}
		if v > maxValue {
			maxValue = v
		}
	}
	valueRange := maxValue - minValue

	for _, v := range values {
		pos := 0
		if valueRange > 0 {
			pos = int((v - minValue) / valueRange * float64(nBins))
			if pos == nBins {
				pos--
			}
		}
		scores[pos]++
	}
	return scores
}

// SampleValues returns the values currently retained by the sample.
func (h *HistogramReporter) SampleValues() []float64 {
	return h.sample.Values()
}

// Process ingests one parsed message: the first field is the value.
func (h *HistogramReporter) Process(fields []string) error {
	v, err := parseValue(fields)
	if err != nil {
		return err
	}
	h.Update(v)
	return nil
}

// Flush emits the summary statistics and the standard percentile set,
// ordered by suffix name. The suffix spelling is wire compatibility; do not
// change it.
func (h *HistogramReporter) Flush(interval time.Duration, timestamp int64) []Sample {
	p := h.Percentiles(0.5, 0.75, 0.95, 0.98, 0.99, 0.999)
	items := map[string]float64{
		".min":           h.Min(),
		".max":           h.Max(),
		".mean":          h.Mean(),
		".stddev":        h.StdDev(),
		".median":        p[0],
		".75percentile":  p[1],
		".95percentile":  p[2],
		".98percentile":  p[3],
		".99percentile":  p[4],
		".999percentile": p[5],
	}
	return sortedSamples(joinPrefix(h.prefix, h.name), items, timestamp)
}
