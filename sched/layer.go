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

// Package sched executes a layer dependency graph in topological order
// with activation checkpointing, output retention, and a single reusable
// workspace under a memory budget.
package sched

// ForwardFunc runs a layer over one logical input.
type ForwardFunc func(data any, in, out []float32) error

// AggregateFunc runs a layer over the outputs of all its dependencies,
// in dependency edge order. Layers with more than one dependency must
// provide one.
type AggregateFunc func(data any, ins [][]float32, out []float32) error

// LayerDesc describes one layer to the scheduler. Sizes are in float32
// elements.
type LayerDesc struct {
	ID                 int
	Name               string
	Kind               string
	InputSize          int
	OutputSize         int
	WorkspaceSize      int
	CheckpointEligible bool
	Forward            ForwardFunc
	Aggregate          AggregateFunc
	Data               any
}

// CheckpointPolicy selects which eligible layers get their outputs
// checkpointed during execution.
type CheckpointPolicy int

const (
	// PolicyNone checkpoints nothing.
	PolicyNone CheckpointPolicy = iota
	// PolicySelective checkpoints eligible layers with more than one
	// dependent, plus large outputs under the memory-min strategy.
	PolicySelective
	// PolicyAllEligible checkpoints every eligible layer.
	PolicyAllEligible
)

func (p CheckpointPolicy) String() string {
	switch p {
	case PolicyNone:
		return "none"
	case PolicySelective:
		return "selective"
	case PolicyAllEligible:
		return "all-eligible"
	}
	return "unknown"
}

// execState tracks a record through one execution pass.
type execState int

const (
	statePending execState = iota
	stateRunning
	stateCompleted
)

// checkpoint is an owned copy of a layer's output.
type checkpoint struct {
	layerID int
	data    []float32
	active  bool
}

// Stats accumulates across Execute calls until Reset.
type Stats struct {
	PeakBytes       int64
	TotalAllocated  int64
	CheckpointCount int
	RecomputeCount  int
	PerLayerRuns    map[int]int
	ElapsedNanos    int64
}
