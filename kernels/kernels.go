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

// Package kernels is the compute kernel bank: quantized matmul, vector
// ops, softmax, activations, and convolution. Each kernel has a scalar
// reference implementation and a wide implementation built on the simd
// lane abstraction; the backend is chosen once at init from the detected
// dispatch tier. All tiers agree with the scalar reference within 1e-4
// absolute for normalized inputs (1e-2 for softmax and GELU).
package kernels

import (
	"github.com/TheLakeMan/tinyai/simd"
)

// Activation identifies a position-wise activation function.
type Activation uint8

const (
	ActivationNone Activation = iota
	ActivationReLU
	ActivationSigmoid
	ActivationTanh
	ActivationGELU
)

func (a Activation) String() string {
	switch a {
	case ActivationNone:
		return "none"
	case ActivationReLU:
		return "relu"
	case ActivationSigmoid:
		return "sigmoid"
	case ActivationTanh:
		return "tanh"
	case ActivationGELU:
		return "gelu"
	}
	return "unknown"
}

// backend bundles the implementation chosen for the current dispatch tier.
type backend struct {
	name       string
	dotF32     func(a, b []float32) float32
	axpy       func(dst []float32, s float32, x []float32)
	vecAdd     func(out, a, b []float32)
	softmaxRow func(x []float32)
}

var active backend

func init() {
	selectBackend()
}

// selectBackend installs the implementation set for the current simd
// tier. Called once at init; tests that override the tier with
// simd.SetLevel call it again through ReselectBackend.
func selectBackend() {
	if simd.CurrentLevel() == simd.LevelScalar {
		active = backend{
			name:       "scalar",
			dotF32:     dotScalar,
			axpy:       axpyScalar,
			vecAdd:     vecAddScalar,
			softmaxRow: softmaxRowScalar,
		}
		return
	}
	active = backend{
		name:       simd.CurrentName(),
		dotF32:     dotWide,
		axpy:       axpyWide,
		vecAdd:     vecAddWide,
		softmaxRow: softmaxRowWide,
	}
}

// ReselectBackend re-runs backend selection against the current simd
// tier. Intended for tests exercising cross-tier agreement.
func ReselectBackend() {
	selectBackend()
}

// BackendName returns the name of the active kernel backend.
func BackendName() string {
	return active.name
}
