// Copyright 2026 tinyai Authors
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

package tensor

import (
	"fmt"

	"github.com/TheLakeMan/tinyai/errdefs"
)

// PoolStats counts pool activity.
type PoolStats struct {
	AllocCount int
	FreeCount  int
	ReuseCount int
	InUseBytes int
}

type poolBlock struct {
	off  int
	size int
	free bool
}

// Pool is a fixed-capacity byte arena for pooled tensors. Freed blocks
// are reused by later allocations of equal or smaller size.
type Pool struct {
	backing []byte
	blocks  []poolBlock
	high    int
	stats   PoolStats
}

// NewPool allocates a pool of the given byte capacity.
func NewPool(capacity int) (*Pool, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("pool capacity %d: %w", capacity, errdefs.ErrInvalidArgument)
	}
	return &Pool{backing: make([]byte, capacity)}, nil
}

// Capacity returns the pool's byte capacity.
func (p *Pool) Capacity() int { return len(p.backing) }

// Stats returns a copy of the activity counters.
func (p *Pool) Stats() PoolStats { return p.stats }

// Alloc reserves size bytes and returns the block offset. Freed blocks
// are reused first-fit before the high-water mark grows.
func (p *Pool) Alloc(size int) (int, error) {
	if size <= 0 {
		return 0, fmt.Errorf("pool alloc %d: %w", size, errdefs.ErrInvalidArgument)
	}
	for i := range p.blocks {
		b := &p.blocks[i]
		if b.free && b.size >= size {
			b.free = false
			p.stats.AllocCount++
			p.stats.ReuseCount++
			p.stats.InUseBytes += b.size
			return b.off, nil
		}
	}
	if p.high+size > len(p.backing) {
		return 0, fmt.Errorf("pool alloc %d of %d free: %w", size, len(p.backing)-p.high, errdefs.ErrOutOfMemory)
	}
	off := p.high
	p.high += size
	p.blocks = append(p.blocks, poolBlock{off: off, size: size})
	p.stats.AllocCount++
	p.stats.InUseBytes += size
	return off, nil
}

// Free releases the block at off for reuse.
func (p *Pool) Free(off int) error {
	for i := range p.blocks {
		b := &p.blocks[i]
		if b.off == off && !b.free {
			b.free = true
			p.stats.FreeCount++
			p.stats.InUseBytes -= b.size
			return nil
		}
	}
	return fmt.Errorf("pool free at %d: %w", off, errdefs.ErrInvalidArgument)
}

// Bytes returns the backing slice for a block.
func (p *Pool) Bytes(off, size int) []byte {
	return p.backing[off : off+size : off+size]
}

// Resize grows or shrinks the pool while preserving live allocations.
// Shrinking below the current high-water mark fails with no mutation.
func (p *Pool) Resize(capacity int) error {
	if capacity <= 0 {
		return fmt.Errorf("pool resize %d: %w", capacity, errdefs.ErrInvalidArgument)
	}
	if capacity < p.high {
		return fmt.Errorf("pool resize %d below live %d: %w", capacity, p.high, errdefs.ErrOutOfMemory)
	}
	next := make([]byte, capacity)
	copy(next, p.backing[:p.high])
	p.backing = next
	return nil
}
