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
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"statagg/internal/daemon/telemetry"
)

// Processor parses statsd-style metric lines and feeds them to the right
// reporter. The wire format is
//
//	<key>:<value>|<type>[|@<rate>]
//
// with types c (counter), g (gauge), ms (timer), h (histogram), m (meter)
// and d or pd (distinct). The optional @rate applies client-side sampling
// compensation to counters.
type Processor struct {
	registry *Registry
}

// NewProcessor creates a processor feeding the given registry.
func NewProcessor(registry *Registry) *Processor {
	return &Processor{registry: registry}
}

// ProcessLine ingests one metric line. Malformed lines are counted and
// returned as errors; the caller decides whether to log them.
func (p *Processor) ProcessLine(line string) error {
	RecordReceived(1)
	telemetry.ObserveLine()

	if err := p.processLine(line); err != nil {
		RecordMalformed(1)
		telemetry.ObserveMalformed()
		log.WithField("line", line).WithError(err).Debug("dropping malformed line")
		return err
	}
	return nil
}

func (p *Processor) processLine(line string) error {
	colon := strings.IndexByte(line, ':')
	if colon <= 0 {
		return fmt.Errorf("core: line has no key: %q", line)
	}
	key := NormalizeKey(line[:colon])
	if key == "" {
		return fmt.Errorf("core: key normalizes to nothing: %q", line[:colon])
	}

	parts := strings.Split(line[colon+1:], "|")
	if len(parts) < 2 || parts[0] == "" {
		return fmt.Errorf("core: line has no type: %q", line)
	}
	value, token := parts[0], parts[1]

	kind, ok := KindFromToken(token)
	if !ok {
		return fmt.Errorf("core: unknown metric type %q", token)
	}

	if len(parts) >= 3 {
		scaled, err := applySampleRate(kind, value, parts[2])
		if err != nil {
			return err
		}
		value = scaled
	}

	managed, err := p.registry.GetOrCreate(key, kind)
	if err != nil {
		return err
	}
	return managed.Process([]string{value})
}

// applySampleRate compensates a counter value for client-side sampling. A
// counter sampled at 10% arrives as "1|c|@0.1" and counts as 10. Rates on
// other kinds are accepted and ignored, matching the original daemon.
func applySampleRate(kind Kind, value, rateField string) (string, error) {
	if !strings.HasPrefix(rateField, "@") {
		return "", fmt.Errorf("core: bad sample rate field %q", rateField)
	}
	if kind != KindCounter {
		return value, nil
	}
	rate, err := strconv.ParseFloat(rateField[1:], 64)
	if err != nil || rate <= 0 || rate > 1 {
		return "", fmt.Errorf("core: bad sample rate %q", rateField)
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return "", fmt.Errorf("core: bad counter value %q: %w", value, err)
	}
	return strconv.FormatFloat(v/rate, 'g', -1, 64), nil
}

// NormalizeKey rewrites a metric key into the emitted character set: spaces
// become underscores, slashes become dashes, and anything outside
// [A-Za-z0-9._-] is dropped.
func NormalizeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c == ' ':
			b.WriteByte('_')
		case c == '/':
			b.WriteByte('-')
		case c >= 'a' && c <= 'z',
			c >= 'A' && c <= 'Z',
			c >= '0' && c <= '9',
			c == '.', c == '_', c == '-':
			b.WriteByte(c)
		}
	}
	return b.String()
}
