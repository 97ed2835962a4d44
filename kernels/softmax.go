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
	"math"

	"github.com/TheLakeMan/tinyai/errdefs"
	"github.com/TheLakeMan/tinyai/simd"
)

// SoftmaxRow applies a numerically stable softmax in place:
//
//	x_i = exp(x_i - max(x)) / sum_j exp(x_j - max(x))
//
// Entries equal to -Inf contribute zero mass. A row whose exponential
// sum is zero (every entry masked) is left as all zeros rather than
// divided.
func SoftmaxRow(x []float32) error {
	if x == nil {
		return fmt.Errorf("softmax: nil slice: %w", errdefs.ErrInvalidArgument)
	}
	if len(x) == 0 {
		return nil
	}
	active.softmaxRow(x)
	return nil
}

func softmaxRowScalar(x []float32) {
	maxVal := x[0]
	for _, v := range x[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	if math.IsInf(float64(maxVal), -1) {
		zeroRow(x)
		return
	}

	var sum float32
	for i, v := range x {
		e := float32(math.Exp(float64(v - maxVal)))
		x[i] = e
		sum += e
	}
	if sum == 0 {
		zeroRow(x)
		return
	}
	inv := 1 / sum
	for i := range x {
		x[i] *= inv
	}
}

func softmaxRowWide(x []float32) {
	maxVal := x[0]
	for _, v := range x[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	if math.IsInf(float64(maxVal), -1) {
		zeroRow(x)
		return
	}

	lanes := simd.MaxLanes[float32]()
	vMax := simd.Set(maxVal)
	sumAcc := simd.Zero[float32]()
	i := 0
	for ; i+lanes <= len(x); i += lanes {
		v := simd.Load(x[i:])
		e := simd.ExpVec(simd.Sub(v, vMax))
		simd.Store(e, x[i:])
		sumAcc = simd.Add(sumAcc, e)
	}
	sum := simd.ReduceSum(sumAcc)
	for ; i < len(x); i++ {
		e := float32(math.Exp(float64(x[i] - maxVal)))
		x[i] = e
		sum += e
	}
	if sum == 0 {
		zeroRow(x)
		return
	}

	inv := 1 / sum
	vInv := simd.Set(inv)
	i = 0
	for ; i+lanes <= len(x); i += lanes {
		v := simd.Load(x[i:])
		simd.Store(simd.Mul(v, vInv), x[i:])
	}
	for ; i < len(x); i++ {
		x[i] *= inv
	}
}

func zeroRow(x []float32) {
	for i := range x {
		x[i] = 0
	}
}
