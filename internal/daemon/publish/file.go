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
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"statagg"
)

// FilePublisher appends flushed samples to a plaintext log file, one carbon
// line per sample. It is safe for concurrent use and optimized for
// append-only workloads; useful for archival and for replaying a flush
// history into a fresh carbon cluster.
type FilePublisher struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string

	lastSync time.Time
}

// NewFilePublisher opens (or creates) the file at path in append mode with
// a buffered writer. Call Close when done.
func NewFilePublisher(path string) (*FilePublisher, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("publish: open %s: %w", path, err)
	}
	return &FilePublisher{
		f:        f,
		w:        bufio.NewWriterSize(f, 1<<20 /*1MiB*/),
		path:     path,
		lastSync: time.Now(),
	}, nil
}

// PublishBatch appends the batch. The buffer is flushed periodically to
// bound data loss on crash without paying a syscall per batch.
func (p *FilePublisher) PublishBatch(ctx context.Context, samples []statagg.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range samples {
		if _, err := p.w.WriteString(FormatLine(s) + "\n"); err != nil {
			return fmt.Errorf("publish: append to %s: %w", p.path, err)
		}
	}
	if time.Since(p.lastSync) > 100*time.Millisecond {
		if err := p.w.Flush(); err != nil {
			return fmt.Errorf("publish: flush %s: %w", p.path, err)
		}
		p.lastSync = time.Now()
	}
	return nil
}

// Flush forces buffered data to be written to disk.
func (p *FilePublisher) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastSync = time.Now()
	return p.w.Flush()
}

// Close flushes and closes the underlying file.
func (p *FilePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.w.Flush()
	return p.f.Close()
}
