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
	"time"

	"github.com/TheLakeMan/tinyai/errdefs"
	"github.com/TheLakeMan/tinyai/logger"
)

const (
	// checkpointOverhead models the bookkeeping cost of an owned
	// checkpoint copy relative to the raw output bytes.
	checkpointOverhead = 1.1
	// selectiveSizeThreshold is the output size above which the
	// selective policy checkpoints a layer under the memory-min
	// strategy.
	selectiveSizeThreshold = 1 << 20
	floatBytes             = 4
)

// Config controls planning and execution.
type Config struct {
	// MaxMemoryBudget bounds simulated peak bytes; zero is unlimited.
	MaxMemoryBudget int64
	// Policy is the initial checkpoint policy. Planning escalates it to
	// PolicyAllEligible once if the budget is exceeded.
	Policy CheckpointPolicy
	// MemoryMin enables the large-output rule of the selective policy.
	MemoryMin bool
	// RecomputeActivations permits re-running a producer layer when its
	// output was not retained.
	RecomputeActivations bool
	// MaxActivationMemory bounds retained (non-checkpoint) output bytes
	// when recomputation is permitted; zero is unlimited.
	MaxActivationMemory int64
	// WorkspaceElems overrides the derived workspace size (in float32
	// elements) when non-zero.
	WorkspaceElems int
}

type record struct {
	desc  *LayerDesc
	state execState
	ckpt  bool
}

// Scheduler owns the layer graph, the execution plan, the workspace,
// and all checkpoints.
type Scheduler struct {
	cfg     Config
	layers  []*record
	byID    map[int]*record
	deps    map[int][]int // dependency ids in edge order
	users   map[int][]int // dependent ids in edge order
	order   []int
	lastUse map[int]int // order position of a layer's final consumer

	workspace   []float32
	checkpoints map[int]*checkpoint
	retained    map[int][]float32
	retainedLen int64

	planned bool
	stats   Stats
}

// New creates an empty scheduler.
func New(cfg Config) *Scheduler {
	return &Scheduler{
		cfg:         cfg,
		byID:        make(map[int]*record),
		deps:        make(map[int][]int),
		users:       make(map[int][]int),
		checkpoints: make(map[int]*checkpoint),
		retained:    make(map[int][]float32),
	}
}

// AddLayer registers a layer description. IDs must be unique.
func (s *Scheduler) AddLayer(desc LayerDesc) error {
	if desc.Forward == nil && desc.Aggregate == nil {
		return fmt.Errorf("layer %d: no forward function: %w", desc.ID, errdefs.ErrInvalidArgument)
	}
	if desc.InputSize <= 0 || desc.OutputSize <= 0 {
		return fmt.Errorf("layer %d: sizes %d/%d: %w", desc.ID, desc.InputSize, desc.OutputSize, errdefs.ErrInvalidShape)
	}
	if _, ok := s.byID[desc.ID]; ok {
		return fmt.Errorf("layer %d: duplicate id: %w", desc.ID, errdefs.ErrInvalidArgument)
	}
	d := desc
	rec := &record{desc: &d}
	s.layers = append(s.layers, rec)
	s.byID[desc.ID] = rec
	s.planned = false
	return nil
}

// AddDependency declares that src produces input for dst.
func (s *Scheduler) AddDependency(src, dst int) error {
	if _, ok := s.byID[src]; !ok {
		return fmt.Errorf("dependency source %d unknown: %w", src, errdefs.ErrInvalidArgument)
	}
	if _, ok := s.byID[dst]; !ok {
		return fmt.Errorf("dependency target %d unknown: %w", dst, errdefs.ErrInvalidArgument)
	}
	s.deps[dst] = append(s.deps[dst], src)
	s.users[src] = append(s.users[src], dst)
	s.planned = false
	return nil
}

// Order returns the planned execution order of layer ids.
func (s *Scheduler) Order() []int {
	return append([]int(nil), s.order...)
}

// Checkpointed reports whether the plan flags the layer for
// checkpointing.
func (s *Scheduler) Checkpointed(id int) bool {
	rec, ok := s.byID[id]
	return ok && rec.ckpt
}

// Stats returns a copy of the accumulated statistics.
func (s *Scheduler) Stats() Stats {
	st := s.stats
	st.PerLayerRuns = make(map[int]int, len(s.stats.PerLayerRuns))
	for k, v := range s.stats.PerLayerRuns {
		st.PerLayerRuns[k] = v
	}
	return st
}

// Plan sorts the graph, places checkpoints, verifies the memory budget
// (escalating the checkpoint policy once if needed), and sizes the
// workspace.
func (s *Scheduler) Plan() error {
	if len(s.layers) == 0 {
		return fmt.Errorf("plan: no layers: %w", errdefs.ErrInvalidArgument)
	}
	for id, d := range s.deps {
		if len(d) > 1 && s.byID[id].desc.Aggregate == nil {
			return fmt.Errorf("layer %d has %d dependencies and no aggregate function: %w",
				id, len(d), errdefs.ErrInvalidArgument)
		}
	}

	order, err := s.topoSort()
	if err != nil {
		return err
	}
	s.order = order

	s.lastUse = make(map[int]int, len(order))
	pos := make(map[int]int, len(order))
	for p, id := range order {
		pos[id] = p
	}
	for src, dsts := range s.users {
		for _, dst := range dsts {
			if p := pos[dst]; p > s.lastUse[src] {
				s.lastUse[src] = p
			}
		}
	}

	policy := s.cfg.Policy
	s.applyPolicy(policy)
	peak := s.simulatePeak()
	if s.cfg.MaxMemoryBudget > 0 && peak > s.cfg.MaxMemoryBudget && policy != PolicyAllEligible {
		logger.Log.Debug().
			Int64("peak", peak).
			Int64("budget", s.cfg.MaxMemoryBudget).
			Str("policy", policy.String()).
			Msg("plan exceeds budget, escalating checkpoint policy")
		policy = PolicyAllEligible
		s.applyPolicy(policy)
		peak = s.simulatePeak()
	}
	if s.cfg.MaxMemoryBudget > 0 && peak > s.cfg.MaxMemoryBudget {
		return fmt.Errorf("plan: peak %d over budget %d: %w", peak, s.cfg.MaxMemoryBudget, errdefs.ErrBudgetExceeded)
	}
	s.stats.PeakBytes = peak

	wsElems := s.cfg.WorkspaceElems
	if wsElems == 0 {
		for p, id := range s.order {
			d := s.byID[id].desc
			if p != len(s.order)-1 && d.OutputSize > wsElems {
				wsElems = d.OutputSize
			}
			if d.WorkspaceSize > wsElems {
				wsElems = d.WorkspaceSize
			}
		}
		if wsElems == 0 {
			wsElems = 1
		}
	}
	if s.cfg.MaxMemoryBudget > 0 && int64(wsElems)*floatBytes > s.cfg.MaxMemoryBudget {
		return fmt.Errorf("plan: workspace %d bytes over budget: %w", wsElems*floatBytes, errdefs.ErrOutOfMemory)
	}
	s.workspace = make([]float32, wsElems)
	s.stats.TotalAllocated += int64(wsElems) * floatBytes
	s.planned = true
	return nil
}

// topoSort orders the graph by DFS coloring, visiting layers in
// insertion order and successors in edge order.
func (s *Scheduler) topoSort() ([]int, error) {
	const (
		unvisited = iota
		visiting
		visited
	)
	color := make(map[int]int, len(s.layers))
	post := make([]int, 0, len(s.layers))

	var visit func(id int) error
	visit = func(id int) error {
		switch color[id] {
		case visiting:
			return fmt.Errorf("layer %d: %w", id, errdefs.ErrCycleDetected)
		case visited:
			return nil
		}
		color[id] = visiting
		for _, next := range s.users[id] {
			if err := visit(next); err != nil {
				return err
			}
		}
		color[id] = visited
		post = append(post, id)
		return nil
	}

	for _, rec := range s.layers {
		if err := visit(rec.desc.ID); err != nil {
			return nil, err
		}
	}

	order := make([]int, len(post))
	for i, id := range post {
		order[len(post)-1-i] = id
	}
	return order, nil
}

func (s *Scheduler) applyPolicy(policy CheckpointPolicy) {
	for _, rec := range s.layers {
		rec.ckpt = false
		if !rec.desc.CheckpointEligible {
			continue
		}
		switch policy {
		case PolicyAllEligible:
			rec.ckpt = true
		case PolicySelective:
			if len(s.users[rec.desc.ID]) > 1 {
				rec.ckpt = true
			} else if s.cfg.MemoryMin && int64(rec.desc.OutputSize)*floatBytes > selectiveSizeThreshold {
				rec.ckpt = true
			}
		}
	}
}

// simulatePeak walks the planned order tracking live output, workspace,
// and checkpoint bytes.
func (s *Scheduler) simulatePeak() int64 {
	var retained, ckpt, peak int64
	for p, id := range s.order {
		d := s.byID[id].desc
		outBytes := int64(d.OutputSize) * floatBytes
		wsBytes := int64(d.WorkspaceSize) * floatBytes
		cur := retained + ckpt + outBytes + wsBytes
		if cur > peak {
			peak = cur
		}
		if s.byID[id].ckpt {
			ckpt += int64(float64(outBytes) * checkpointOverhead)
		} else if s.lastUse[id] > p {
			retained += outBytes
		}
		// Release retained outputs consumed for the last time here.
		for _, dep := range s.deps[id] {
			if s.lastUse[dep] == p && !s.byID[dep].ckpt {
				retained -= int64(s.byID[dep].desc.OutputSize) * floatBytes
			}
		}
	}
	return peak
}

// Execute runs the plan. The caller input feeds every layer without
// dependencies; the final layer in the order writes into out.
func (s *Scheduler) Execute(in, out []float32) error {
	if !s.planned {
		if err := s.Plan(); err != nil {
			return err
		}
	}
	start := time.Now()
	if s.stats.PerLayerRuns == nil {
		s.stats.PerLayerRuns = make(map[int]int)
	}

	final := s.order[len(s.order)-1]
	if finalDesc := s.byID[final].desc; len(out) < finalDesc.OutputSize {
		return fmt.Errorf("execute: out %d < %d: %w", len(out), finalDesc.OutputSize, errdefs.ErrInvalidShape)
	}

	for _, rec := range s.layers {
		rec.state = statePending
	}
	// Retained copies are scoped to one pass; checkpoints live until
	// Reset.
	s.retained = make(map[int][]float32)
	s.retainedLen = 0

	for p, id := range s.order {
		rec := s.byID[id]
		d := rec.desc
		rec.state = stateRunning

		var dst []float32
		if p == len(s.order)-1 {
			dst = out[:d.OutputSize]
		} else {
			if d.OutputSize > len(s.workspace) {
				return fmt.Errorf("execute: layer %d output %d > workspace %d: %w",
					id, d.OutputSize, len(s.workspace), errdefs.ErrWorkspaceTooSmall)
			}
			dst = s.workspace[:d.OutputSize]
		}

		if err := s.runLayer(d, in, dst); err != nil {
			return err
		}
		rec.state = stateCompleted
		s.stats.PerLayerRuns[id]++

		if p == len(s.order)-1 {
			break
		}
		if rec.ckpt {
			cp := &checkpoint{layerID: id, data: append([]float32(nil), dst...), active: true}
			s.checkpoints[id] = cp
			s.stats.CheckpointCount++
			s.stats.TotalAllocated += int64(len(cp.data)) * floatBytes
		} else if s.lastUse[id] > p {
			if !s.retain(id, dst) {
				logger.Log.Debug().Int("layer", id).Msg("activation retention skipped, will recompute")
			}
		}
	}

	s.stats.ElapsedNanos += time.Since(start).Nanoseconds()
	return nil
}

// runLayer resolves inputs and invokes the layer's forward function.
func (s *Scheduler) runLayer(d *LayerDesc, callerIn, dst []float32) error {
	deps := s.deps[d.ID]
	if len(deps) == 0 {
		if err := d.Forward(d.Data, callerIn, dst); err != nil {
			return fmt.Errorf("layer %d (%s): %w: %v", d.ID, d.Name, errdefs.ErrLayerFailure, err)
		}
		return nil
	}

	ins := make([][]float32, len(deps))
	for i, dep := range deps {
		src, err := s.resolveOutput(dep, callerIn)
		if err != nil {
			return err
		}
		ins[i] = src
	}

	if len(ins) == 1 && d.Forward != nil {
		if err := d.Forward(d.Data, ins[0], dst); err != nil {
			return fmt.Errorf("layer %d (%s): %w: %v", d.ID, d.Name, errdefs.ErrLayerFailure, err)
		}
		return nil
	}
	if err := d.Aggregate(d.Data, ins, dst); err != nil {
		return fmt.Errorf("layer %d (%s): %w: %v", d.ID, d.Name, errdefs.ErrLayerFailure, err)
	}
	return nil
}

// resolveOutput finds a dependency's output: an active checkpoint, a
// retained copy, or a recomputation when the config permits it.
func (s *Scheduler) resolveOutput(id int, callerIn []float32) ([]float32, error) {
	if cp, ok := s.checkpoints[id]; ok && cp.active {
		return cp.data, nil
	}
	if buf, ok := s.retained[id]; ok {
		return buf, nil
	}
	if !s.cfg.RecomputeActivations {
		return nil, fmt.Errorf("layer %d output unavailable: %w", id, errdefs.ErrLayerFailure)
	}
	d := s.byID[id].desc
	buf := make([]float32, d.OutputSize)
	if err := s.runLayer(d, callerIn, buf); err != nil {
		return nil, err
	}
	s.stats.RecomputeCount++
	s.stats.TotalAllocated += int64(len(buf)) * floatBytes
	return buf, nil
}

// retain stores a copy of a layer output for later consumers, honoring
// the activation-memory cap when recomputation can stand in.
func (s *Scheduler) retain(id int, data []float32) bool {
	bytes := int64(len(data)) * floatBytes
	if s.cfg.RecomputeActivations && s.cfg.MaxActivationMemory > 0 &&
		s.retainedLen+bytes > s.cfg.MaxActivationMemory {
		return false
	}
	s.retained[id] = append([]float32(nil), data...)
	s.retainedLen += bytes
	s.stats.TotalAllocated += bytes
	return true
}

// Reset clears execution state, retained outputs, checkpoints, and
// statistics. The plan itself is kept.
func (s *Scheduler) Reset() {
	for _, rec := range s.layers {
		rec.state = statePending
	}
	s.checkpoints = make(map[int]*checkpoint)
	s.retained = make(map[int][]float32)
	s.retainedLen = 0
	peak := s.stats.PeakBytes
	s.stats = Stats{PeakBytes: peak}
}
