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

package kernels

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/TheLakeMan/tinyai/errdefs"
	"github.com/TheLakeMan/tinyai/simd"
)

// geluCoeff is sqrt(2/pi) for the tanh GELU approximation.
var geluCoeff = math32.Sqrt(2 / math32.Pi)

// ActivateInPlace applies the activation position-wise. ReLU runs on the
// wide path; sigmoid, tanh, and GELU use the scalar transcendental forms
// at every tier (no accurate vector approximation is carried).
func ActivateInPlace(vec []float32, kind Activation) error {
	if vec == nil {
		return fmt.Errorf("activate: nil slice: %w", errdefs.ErrInvalidArgument)
	}
	switch kind {
	case ActivationNone:
		return nil
	case ActivationReLU:
		reluInPlace(vec)
	case ActivationSigmoid:
		for i, x := range vec {
			vec[i] = Sigmoid(x)
		}
	case ActivationTanh:
		for i, x := range vec {
			vec[i] = math32.Tanh(x)
		}
	case ActivationGELU:
		for i, x := range vec {
			vec[i] = GELU(x)
		}
	default:
		return fmt.Errorf("activate: kind %d: %w", kind, errdefs.ErrInvalidArgument)
	}
	return nil
}

// Sigmoid computes 1/(1+exp(-x)).
func Sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

// GELU computes the tanh approximation
//
//	0.5 * x * (1 + tanh(sqrt(2/pi) * (x + 0.044715*x^3)))
func GELU(x float32) float32 {
	return 0.5 * x * (1 + math32.Tanh(geluCoeff*(x+0.044715*x*x*x)))
}

func reluInPlace(vec []float32) {
	if simd.CurrentLevel() == simd.LevelScalar {
		for i, x := range vec {
			if x < 0 {
				vec[i] = 0
			}
		}
		return
	}
	lanes := simd.MaxLanes[float32]()
	zero := simd.Zero[float32]()
	i := 0
	for ; i+lanes <= len(vec); i += lanes {
		v := simd.Load(vec[i:])
		simd.Store(simd.Max(v, zero), vec[i:])
	}
	for ; i < len(vec); i++ {
		if vec[i] < 0 {
			vec[i] = 0
		}
	}
}
