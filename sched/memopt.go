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

package sched

import (
	"fmt"

	"github.com/TheLakeMan/tinyai/errdefs"
)

// OptimizerConfig tunes the memory optimizer.
type OptimizerConfig struct {
	MaxMemoryBudget      int64
	EnableCheckpointing  bool
	MemorySpeedTradeoff  float64 // 0 = all speed, 1 = all memory
	RecomputeActivations bool
	MaxActivationMemory  int64
}

// OptimizerStats counts optimizer-managed buffer traffic.
type OptimizerStats struct {
	TotalAllocated   int64
	CurrentAllocated int64
	PeakAllocated    int64
	AllocationCount  int
	FreeCount        int
	TensorReuseCount int
	MemorySaved      int64
}

// MemoryOptimizer converts a memory/speed trade-off into scheduler
// policy and recycles activation buffers across allocations.
type MemoryOptimizer struct {
	cfg     OptimizerConfig
	free    [][]float32
	stats   OptimizerStats
	inPlace bool
}

// NewOptimizer validates the trade-off and builds an optimizer.
func NewOptimizer(cfg OptimizerConfig) (*MemoryOptimizer, error) {
	if cfg.MemorySpeedTradeoff < 0 || cfg.MemorySpeedTradeoff > 1 {
		return nil, fmt.Errorf("memory/speed tradeoff %v: %w", cfg.MemorySpeedTradeoff, errdefs.ErrInvalidArgument)
	}
	m := &MemoryOptimizer{cfg: cfg}
	m.inPlace = cfg.MemorySpeedTradeoff > 0.7
	return m, nil
}

// SchedulerConfig derives the scheduler configuration from the
// trade-off:
//
//	t < 0.3          speed-first, no checkpointing
//	0.3 <= t <= 0.7  selective checkpointing
//	t > 0.7          memory-first, checkpoint everything eligible,
//	                 in-place ops mandatory, recomputation allowed
func (m *MemoryOptimizer) SchedulerConfig() Config {
	cfg := Config{
		MaxMemoryBudget:      m.cfg.MaxMemoryBudget,
		RecomputeActivations: m.cfg.RecomputeActivations,
		MaxActivationMemory:  m.cfg.MaxActivationMemory,
	}
	t := m.cfg.MemorySpeedTradeoff
	switch {
	case t < 0.3:
		cfg.Policy = PolicyNone
	case t <= 0.7:
		cfg.Policy = PolicySelective
	default:
		cfg.Policy = PolicyAllEligible
		cfg.MemoryMin = true
		cfg.RecomputeActivations = true
	}
	if !m.cfg.EnableCheckpointing {
		cfg.Policy = PolicyNone
	}
	return cfg
}

// InPlaceRequired reports whether element-wise layers must alias their
// output onto their input buffer.
func (m *MemoryOptimizer) InPlaceRequired() bool { return m.inPlace }

// Alloc hands out a float32 buffer, reusing a freed one when large
// enough.
func (m *MemoryOptimizer) Alloc(n int) ([]float32, error) {
	if n <= 0 {
		return nil, fmt.Errorf("alloc %d: %w", n, errdefs.ErrInvalidArgument)
	}
	bytes := int64(n) * floatBytes
	if m.cfg.MaxMemoryBudget > 0 && m.stats.CurrentAllocated+bytes > m.cfg.MaxMemoryBudget {
		return nil, fmt.Errorf("alloc %d bytes over budget %d: %w", bytes, m.cfg.MaxMemoryBudget, errdefs.ErrBudgetExceeded)
	}
	for i, buf := range m.free {
		if cap(buf) >= n {
			m.free = append(m.free[:i], m.free[i+1:]...)
			m.stats.AllocationCount++
			m.stats.TensorReuseCount++
			m.stats.MemorySaved += bytes
			m.stats.CurrentAllocated += bytes
			if m.stats.CurrentAllocated > m.stats.PeakAllocated {
				m.stats.PeakAllocated = m.stats.CurrentAllocated
			}
			return buf[:n], nil
		}
	}
	m.stats.AllocationCount++
	m.stats.TotalAllocated += bytes
	m.stats.CurrentAllocated += bytes
	if m.stats.CurrentAllocated > m.stats.PeakAllocated {
		m.stats.PeakAllocated = m.stats.CurrentAllocated
	}
	return make([]float32, n), nil
}

// Free returns a buffer to the reuse list.
func (m *MemoryOptimizer) Free(buf []float32) {
	if buf == nil {
		return
	}
	m.stats.FreeCount++
	m.stats.CurrentAllocated -= int64(len(buf)) * floatBytes
	m.free = append(m.free, buf)
}

// Stats returns a copy of the counters.
func (m *MemoryOptimizer) Stats() OptimizerStats { return m.stats }
