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
	"errors"

	"statagg"
)

// MultiPublisher fans a batch out to several publishers. Every publisher
// sees the batch even when an earlier one fails; the errors are joined.
type MultiPublisher struct {
	publishers []Publisher
}

// NewMultiPublisher combines publishers. A single element is returned
// as-is; an empty list yields a no-op publisher.
func NewMultiPublisher(publishers ...Publisher) Publisher {
	if len(publishers) == 1 {
		return publishers[0]
	}
	return &MultiPublisher{publishers: publishers}
}

func (m *MultiPublisher) PublishBatch(ctx context.Context, samples []statagg.Sample) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.PublishBatch(ctx, samples); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
