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

package stats

import (
	"math"
	"time"
)

// EWMA smoothing constants matching the UNIX 1/5/15-minute load averages
// when ticked every 5 seconds.
var (
	m1Alpha  = 1 - math.Exp(-5.0/60)
	m5Alpha  = 1 - math.Exp(-5.0/60/5)
	m15Alpha = 1 - math.Exp(-5.0/60/15)
)

// EWMA is an exponentially weighted moving average of an event rate.
// Events are accumulated with Update; Tick must be called once per expected
// interval to fold the accumulated count into the rate.
type EWMA struct {
	alpha    float64
	interval float64 // seconds

	initialized bool
	rate        float64 // events per second
	uncounted   float64
}

// NewEWMA creates a moving average with the given smoothing constant and
// expected tick interval.
func NewEWMA(alpha float64, interval time.Duration) *EWMA {
	return &EWMA{alpha: alpha, interval: interval.Seconds()}
}

// OneMinuteEWMA is the UNIX one-minute load average, ticked every 5 seconds.
func OneMinuteEWMA() *EWMA { return NewEWMA(m1Alpha, 5*time.Second) }

// FiveMinuteEWMA is the UNIX five-minute load average, ticked every 5 seconds.
func FiveMinuteEWMA() *EWMA { return NewEWMA(m5Alpha, 5*time.Second) }

// FifteenMinuteEWMA is the UNIX fifteen-minute load average, ticked every 5 seconds.
func FifteenMinuteEWMA() *EWMA { return NewEWMA(m15Alpha, 5*time.Second) }

// Update records n new events. Fractional counts are legal and accumulate
// exactly.
func (e *EWMA) Update(n float64) {
	e.uncounted += n
}

// Tick marks the passage of one interval and decays the rate accordingly.
func (e *EWMA) Tick() {
	count := e.uncounted
	e.uncounted = 0
	instantRate := count / e.interval
	if e.initialized {
		e.rate += e.alpha * (instantRate - e.rate)
	} else {
		e.rate = instantRate
		e.initialized = true
	}
}

// Rate returns the current smoothed rate in events per second.
func (e *EWMA) Rate() float64 {
	return e.rate
}
