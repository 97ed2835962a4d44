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

package loader

import (
	"bytes"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/TheLakeMan/tinyai/errdefs"
	"github.com/TheLakeMan/tinyai/logger"
)

// EvictionStrategy orders layers for eviction when loading would exceed
// the budget.
type EvictionStrategy int

const (
	// EvictSequential evicts the lowest-index loaded layer first.
	EvictSequential EvictionStrategy = iota
	// EvictAccessPattern evicts the least recently accessed layer first.
	EvictAccessPattern
)

// PrefetchThreshold is the expected next-access probability at which a
// hint triggers a preload.
const PrefetchThreshold = 0.7

type layerState struct {
	offset     int64
	size       int64
	loaded     bool
	lastAccess uint64
	weights    *LayerWeights
}

// Progressive pages layer weights from a memory-mapped weights file
// under a byte budget. It is the sole owner of the per-layer loaded
// bits and the loaded-byte total; the invariant that loaded bytes never
// exceed the budget holds after every call.
type Progressive struct {
	arch     *Arch
	file     *os.File
	window   mmap.MMap
	layers   []layerState
	strategy EvictionStrategy

	budget      int64
	loadedBytes int64
	tick        uint64
}

// OpenProgressive maps the weights file and indexes the layer records
// without loading any of them. A zero budget means unlimited.
func OpenProgressive(path string, arch *Arch, budget int64, strategy EvictionStrategy) (*Progressive, error) {
	if arch == nil {
		return nil, fmt.Errorf("progressive: nil arch: %w", errdefs.ErrInvalidArgument)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, errdefs.ErrIO)
	}
	window, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %s: %w", path, errdefs.ErrIO)
	}

	p := &Progressive{
		arch:     arch,
		file:     f,
		window:   window,
		layers:   make([]layerState, len(arch.Layers)),
		strategy: strategy,
		budget:   budget,
	}

	// Validate the header against the architecture, then index record
	// offsets.
	if _, err := readWeightsHeader(bytes.NewReader(window), arch); err != nil {
		p.Close()
		return nil, err
	}
	off := int64(12)
	for i, al := range arch.Layers {
		size := weightsRecordSize(int(al.InputSize), int(al.OutputSize))
		if off+size > int64(len(window)) {
			p.Close()
			return nil, fmt.Errorf("weights file truncated at layer %d: %w", i, errdefs.ErrSchemaMismatch)
		}
		p.layers[i] = layerState{offset: off, size: size}
		off += size
	}
	return p, nil
}

// Close unmaps the window and closes the file. Loaded layers stay
// usable; only the mapping is released.
func (p *Progressive) Close() error {
	var first error
	if p.window != nil {
		if err := p.window.Unmap(); err != nil && first == nil {
			first = fmt.Errorf("unmap: %w", errdefs.ErrIO)
		}
		p.window = nil
	}
	if p.file != nil {
		if err := p.file.Close(); err != nil && first == nil {
			first = fmt.Errorf("close: %w", errdefs.ErrIO)
		}
		p.file = nil
	}
	return first
}

// LayerCount returns the number of indexed layers.
func (p *Progressive) LayerCount() int { return len(p.layers) }

// RecordSize returns the on-disk byte size of layer i's record, or zero
// when out of range.
func (p *Progressive) RecordSize(i int) int64 {
	if i < 0 || i >= len(p.layers) {
		return 0
	}
	return p.layers[i].size
}

// Loaded reports whether layer i is resident.
func (p *Progressive) Loaded(i int) bool {
	return i >= 0 && i < len(p.layers) && p.layers[i].loaded
}

// LoadedBytes returns the resident weight byte total.
func (p *Progressive) LoadedBytes() int64 { return p.loadedBytes }

// LoadLayer brings layer i's weights in, evicting other layers as
// needed to stay under the budget, and returns the decoded record.
// Loading a resident layer refreshes its access time only.
func (p *Progressive) LoadLayer(i int) (*LayerWeights, error) {
	if i < 0 || i >= len(p.layers) {
		return nil, fmt.Errorf("layer %d of %d: %w", i, len(p.layers), errdefs.ErrInvalidArgument)
	}
	st := &p.layers[i]
	p.tick++
	if st.loaded {
		st.lastAccess = p.tick
		return st.weights, nil
	}

	if p.budget > 0 {
		if st.size > p.budget {
			return nil, fmt.Errorf("layer %d needs %d of %d budget: %w", i, st.size, p.budget, errdefs.ErrBudgetExceeded)
		}
		for p.loadedBytes+st.size > p.budget {
			victim := p.pickVictim(i)
			if victim < 0 {
				return nil, fmt.Errorf("layer %d: nothing evictable: %w", i, errdefs.ErrBudgetExceeded)
			}
			if err := p.UnloadLayer(victim); err != nil {
				return nil, err
			}
		}
	}

	lw, err := readWeightsRecord(bytes.NewReader(p.window[st.offset:st.offset+st.size]), p.arch.Layers[i])
	if err != nil {
		return nil, fmt.Errorf("layer %d: %w", i, err)
	}
	st.weights = lw
	st.loaded = true
	st.lastAccess = p.tick
	p.loadedBytes += st.size
	logger.Log.Debug().Int("layer", i).Int64("bytes", st.size).Int64("resident", p.loadedBytes).Msg("layer loaded")
	return lw, nil
}

// UnloadLayer frees layer i's weight bytes. Metadata remains so the
// layer can be reloaded.
func (p *Progressive) UnloadLayer(i int) error {
	if i < 0 || i >= len(p.layers) {
		return fmt.Errorf("layer %d of %d: %w", i, len(p.layers), errdefs.ErrInvalidArgument)
	}
	st := &p.layers[i]
	if !st.loaded {
		return fmt.Errorf("layer %d not loaded: %w", i, errdefs.ErrInvalidArgument)
	}
	st.loaded = false
	st.weights = nil
	p.loadedBytes -= st.size
	logger.Log.Debug().Int("layer", i).Int64("resident", p.loadedBytes).Msg("layer evicted")
	return nil
}

// Hint schedules a preload of layer i when the expected next-access
// probability reaches the prefetch threshold.
func (p *Progressive) Hint(i int, probability float64) error {
	if probability < PrefetchThreshold {
		return nil
	}
	_, err := p.LoadLayer(i)
	return err
}

// pickVictim chooses the next layer to evict, never the one being
// loaded.
func (p *Progressive) pickVictim(loading int) int {
	victim := -1
	for i := range p.layers {
		if i == loading || !p.layers[i].loaded {
			continue
		}
		if victim < 0 {
			victim = i
			continue
		}
		switch p.strategy {
		case EvictAccessPattern:
			if p.layers[i].lastAccess < p.layers[victim].lastAccess {
				victim = i
			}
		default:
			// Sequential strategy keeps the lowest index found first.
		}
	}
	return victim
}
