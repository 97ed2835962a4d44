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

package simd

import "math"

// This file provides the portable implementations of all vector
// operations. They are the reference semantics for every dispatch tier;
// higher tiers change lane count in the kernels, not the per-lane
// arithmetic.

// Load creates a vector by loading data from a slice.
func Load[T Lanes](src []T) Vec[T] {
	n := MaxLanes[T]()
	if len(src) < n {
		n = len(src)
	}
	data := make([]T, n)
	copy(data, src[:n])
	return Vec[T]{data: data}
}

// Store writes a vector's data to a slice.
func Store[T Lanes](v Vec[T], dst []T) {
	n := len(v.data)
	if len(dst) < n {
		n = len(dst)
	}
	copy(dst[:n], v.data[:n])
}

// Set creates a vector with all lanes set to the same value.
func Set[T Lanes](value T) Vec[T] {
	n := MaxLanes[T]()
	data := make([]T, n)
	for i := range data {
		data[i] = value
	}
	return Vec[T]{data: data}
}

// Zero creates a vector with all lanes set to zero.
func Zero[T Lanes]() Vec[T] {
	n := MaxLanes[T]()
	data := make([]T, n)
	return Vec[T]{data: data}
}

// Add performs element-wise addition.
func Add[T Lanes](a, b Vec[T]) Vec[T] {
	n := minLen(a, b)
	result := make([]T, n)
	for i := 0; i < n; i++ {
		result[i] = a.data[i] + b.data[i]
	}
	return Vec[T]{data: result}
}

// Sub performs element-wise subtraction.
func Sub[T Lanes](a, b Vec[T]) Vec[T] {
	n := minLen(a, b)
	result := make([]T, n)
	for i := 0; i < n; i++ {
		result[i] = a.data[i] - b.data[i]
	}
	return Vec[T]{data: result}
}

// Mul performs element-wise multiplication.
func Mul[T Lanes](a, b Vec[T]) Vec[T] {
	n := minLen(a, b)
	result := make([]T, n)
	for i := 0; i < n; i++ {
		result[i] = a.data[i] * b.data[i]
	}
	return Vec[T]{data: result}
}

// Div performs element-wise division.
func Div[T Floats](a, b Vec[T]) Vec[T] {
	n := minLen(a, b)
	result := make([]T, n)
	for i := 0; i < n; i++ {
		result[i] = a.data[i] / b.data[i]
	}
	return Vec[T]{data: result}
}

// Neg negates all lanes.
func Neg[T Lanes](v Vec[T]) Vec[T] {
	result := make([]T, len(v.data))
	for i := 0; i < len(v.data); i++ {
		result[i] = -v.data[i]
	}
	return Vec[T]{data: result}
}

// Abs computes absolute value.
func Abs[T Lanes](v Vec[T]) Vec[T] {
	result := make([]T, len(v.data))
	for i := 0; i < len(v.data); i++ {
		val := v.data[i]
		if val < 0 {
			result[i] = -val
		} else {
			result[i] = val
		}
	}
	return Vec[T]{data: result}
}

// Min returns element-wise minimum.
func Min[T Lanes](a, b Vec[T]) Vec[T] {
	n := minLen(a, b)
	result := make([]T, n)
	for i := 0; i < n; i++ {
		if a.data[i] < b.data[i] {
			result[i] = a.data[i]
		} else {
			result[i] = b.data[i]
		}
	}
	return Vec[T]{data: result}
}

// Max returns element-wise maximum.
func Max[T Lanes](a, b Vec[T]) Vec[T] {
	n := minLen(a, b)
	result := make([]T, n)
	for i := 0; i < n; i++ {
		if a.data[i] > b.data[i] {
			result[i] = a.data[i]
		} else {
			result[i] = b.data[i]
		}
	}
	return Vec[T]{data: result}
}

// MulAdd computes a*b + c per lane.
func MulAdd[T Floats](a, b, c Vec[T]) Vec[T] {
	n := minLen(a, b)
	if len(c.data) < n {
		n = len(c.data)
	}
	result := make([]T, n)
	for i := 0; i < n; i++ {
		result[i] = a.data[i]*b.data[i] + c.data[i]
	}
	return Vec[T]{data: result}
}

// Sqrt computes square root per lane.
func Sqrt[T Floats](v Vec[T]) Vec[T] {
	result := make([]T, len(v.data))
	for i := 0; i < len(v.data); i++ {
		result[i] = T(math.Sqrt(float64(v.data[i])))
	}
	return Vec[T]{data: result}
}

// ReduceSum sums all lanes.
func ReduceSum[T Lanes](v Vec[T]) T {
	var sum T
	for i := 0; i < len(v.data); i++ {
		sum += v.data[i]
	}
	return sum
}

// ReduceMax returns the maximum lane value. The vector must be non-empty.
func ReduceMax[T Lanes](v Vec[T]) T {
	m := v.data[0]
	for i := 1; i < len(v.data); i++ {
		if v.data[i] > m {
			m = v.data[i]
		}
	}
	return m
}

// GreaterThan performs element-wise greater-than comparison.
func GreaterThan[T Lanes](a, b Vec[T]) Mask[T] {
	n := minLen(a, b)
	bits := make([]bool, n)
	for i := 0; i < n; i++ {
		bits[i] = a.data[i] > b.data[i]
	}
	return Mask[T]{bits: bits}
}

// IfThenElse performs conditional selection.
func IfThenElse[T Lanes](mask Mask[T], a, b Vec[T]) Vec[T] {
	n := len(mask.bits)
	if len(a.data) < n {
		n = len(a.data)
	}
	if len(b.data) < n {
		n = len(b.data)
	}
	result := make([]T, n)
	for i := 0; i < n; i++ {
		if mask.bits[i] {
			result[i] = a.data[i]
		} else {
			result[i] = b.data[i]
		}
	}
	return Vec[T]{data: result}
}

func minLen[T Lanes](a, b Vec[T]) int {
	n := len(a.data)
	if len(b.data) < n {
		n = len(b.data)
	}
	return n
}
