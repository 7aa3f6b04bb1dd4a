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

// Package publish provides the downstream delivery adapters for flushed
// samples: carbon-style plaintext over TCP, Redis, and logging, plus a
// fan-out combinator. Adapters are stateless with respect to the samples
// themselves; retrying a failed batch re-sends the same lines.
package publish

import (
	"context"
	"strconv"

	"statagg"
)

// Publisher delivers one flush batch downstream. Implementations should
// honor ctx for timeouts and cancellation and batch efficiently where the
// backend supports it.
type Publisher interface {
	PublishBatch(ctx context.Context, samples []statagg.Sample) error
}

// FormatLine renders a sample as the plaintext carbon line without the
// trailing newline.
func FormatLine(s statagg.Sample) string {
	return s.Name + " " +
		strconv.FormatFloat(s.Value, 'g', -1, 64) + " " +
		strconv.FormatInt(s.Timestamp, 10)
}
