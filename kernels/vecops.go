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

	"github.com/TheLakeMan/tinyai/errdefs"
	"github.com/TheLakeMan/tinyai/simd"
)

// VecAdd computes out = a + b element-wise. out may alias a or b.
func VecAdd(out, a, b []float32) error {
	if out == nil || a == nil || b == nil {
		return fmt.Errorf("vec add: nil slice: %w", errdefs.ErrInvalidArgument)
	}
	if len(a) != len(b) || len(out) < len(a) {
		return fmt.Errorf("vec add: %d/%d/%d: %w", len(out), len(a), len(b), errdefs.ErrInvalidShape)
	}
	active.vecAdd(out, a, b)
	return nil
}

// BiasAddInPlace adds bias to vec element-wise.
func BiasAddInPlace(vec, bias []float32) error {
	if vec == nil || bias == nil {
		return fmt.Errorf("bias add: nil slice: %w", errdefs.ErrInvalidArgument)
	}
	if len(bias) < len(vec) {
		return fmt.Errorf("bias add: bias %d < %d: %w", len(bias), len(vec), errdefs.ErrInvalidShape)
	}
	active.vecAdd(vec, vec, bias[:len(vec)])
	return nil
}

func vecAddScalar(out, a, b []float32) {
	for i := range a {
		out[i] = a[i] + b[i]
	}
}

func vecAddWide(out, a, b []float32) {
	lanes := simd.MaxLanes[float32]()
	i := 0
	for ; i+lanes <= len(a); i += lanes {
		va := simd.Load(a[i:])
		vb := simd.Load(b[i:])
		simd.Store(simd.Add(va, vb), out[i:])
	}
	for ; i < len(a); i++ {
		out[i] = a[i] + b[i]
	}
}

// dotScalar is the reference dot product.
func dotScalar(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// dotWide accumulates lanes-wide partial sums, scalar tail last.
func dotWide(a, b []float32) float32 {
	lanes := simd.MaxLanes[float32]()
	acc := simd.Zero[float32]()
	i := 0
	for ; i+lanes <= len(a); i += lanes {
		va := simd.Load(a[i:])
		vb := simd.Load(b[i:])
		acc = simd.MulAdd(va, vb, acc)
	}
	sum := simd.ReduceSum(acc)
	for ; i < len(a); i++ {
		sum += a[i] * b[i]
	}
	return sum
}
