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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheLakeMan/tinyai/errdefs"
)

func TestTradeoffMapping(t *testing.T) {
	tests := []struct {
		tradeoff float64
		policy   CheckpointPolicy
		inPlace  bool
	}{
		{0.0, PolicyNone, false},
		{0.2, PolicyNone, false},
		{0.3, PolicySelective, false},
		{0.5, PolicySelective, false},
		{0.7, PolicySelective, false},
		{0.8, PolicyAllEligible, true},
		{1.0, PolicyAllEligible, true},
	}
	for _, tt := range tests {
		m, err := NewOptimizer(OptimizerConfig{
			EnableCheckpointing: true,
			MemorySpeedTradeoff: tt.tradeoff,
		})
		require.NoError(t, err)
		cfg := m.SchedulerConfig()
		assert.Equal(t, tt.policy, cfg.Policy, "tradeoff %v", tt.tradeoff)
		assert.Equal(t, tt.inPlace, m.InPlaceRequired(), "tradeoff %v", tt.tradeoff)
	}
}

func TestTradeoffDisabledCheckpointing(t *testing.T) {
	m, err := NewOptimizer(OptimizerConfig{MemorySpeedTradeoff: 0.9})
	require.NoError(t, err)
	assert.Equal(t, PolicyNone, m.SchedulerConfig().Policy)
}

func TestTradeoffValidation(t *testing.T) {
	_, err := NewOptimizer(OptimizerConfig{MemorySpeedTradeoff: 1.5})
	assert.ErrorIs(t, err, errdefs.ErrInvalidArgument)
	_, err = NewOptimizer(OptimizerConfig{MemorySpeedTradeoff: -0.1})
	assert.ErrorIs(t, err, errdefs.ErrInvalidArgument)
}

func TestOptimizerBufferReuse(t *testing.T) {
	m, err := NewOptimizer(OptimizerConfig{})
	require.NoError(t, err)

	a, err := m.Alloc(128)
	require.NoError(t, err)
	m.Free(a)

	b, err := m.Alloc(100)
	require.NoError(t, err)
	assert.Len(t, b, 100)

	st := m.Stats()
	assert.Equal(t, 2, st.AllocationCount)
	assert.Equal(t, 1, st.FreeCount)
	assert.Equal(t, 1, st.TensorReuseCount)
	assert.Positive(t, st.MemorySaved)
}

func TestOptimizerBudget(t *testing.T) {
	m, err := NewOptimizer(OptimizerConfig{MaxMemoryBudget: 1024})
	require.NoError(t, err)

	_, err = m.Alloc(128) // 512 bytes
	require.NoError(t, err)
	_, err = m.Alloc(512) // would exceed 1024 bytes total
	assert.ErrorIs(t, err, errdefs.ErrBudgetExceeded)
}

func TestOptimizerPeakTracking(t *testing.T) {
	m, err := NewOptimizer(OptimizerConfig{})
	require.NoError(t, err)
	a, _ := m.Alloc(64)
	b, _ := m.Alloc(64)
	m.Free(a)
	m.Free(b)
	st := m.Stats()
	assert.Equal(t, int64(512), st.PeakAllocated)
	assert.Equal(t, int64(0), st.CurrentAllocated)
}
