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

// Package simd provides a portable lane abstraction for the tinyai compute
// kernels. A vector is a short slice of lanes whose width follows the
// dispatch tier selected at process start; kernels written against this
// package produce identical results at every tier up to float
// re-association.
package simd

import "unsafe"

// Lanes is the set of element types a vector can carry.
type Lanes interface {
	~float32 | ~float64 | ~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Floats is the floating-point subset of Lanes.
type Floats interface {
	~float32 | ~float64
}

// Vec is a fixed-width vector of lanes. The zero value is unusable; create
// vectors with Load, Set, or Zero.
type Vec[T Lanes] struct {
	data []T
}

// Mask is a per-lane boolean produced by comparisons.
type Mask[T Lanes] struct {
	bits []bool
}

// MaxLanes returns the number of lanes of type T in a vector at the
// current dispatch width.
func MaxLanes[T Lanes]() int {
	var z T
	n := CurrentWidth() / int(unsafe.Sizeof(z))
	if n < 1 {
		return 1
	}
	return n
}

// NumLanes is an alias for MaxLanes.
func NumLanes[T Lanes]() int {
	return MaxLanes[T]()
}
