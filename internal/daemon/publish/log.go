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

package publish

import (
	"context"

	log "github.com/sirupsen/logrus"

	"statagg"
)

// LogPublisher prints each flushed sample as its carbon line. Useful for
// dry runs and local debugging; not meant as a durable sink.
type LogPublisher struct{}

func (LogPublisher) PublishBatch(ctx context.Context, samples []statagg.Sample) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	for _, s := range samples {
		log.Info(FormatLine(s))
	}
	return nil
}
