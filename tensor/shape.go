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

// Package tensor provides shape and stride utilities and a
// memory-efficient tensor with static, pooled, and streamed storage
// strategies.
package tensor

import (
	"fmt"

	"github.com/TheLakeMan/tinyai/errdefs"
)

// Shape is an ordered dimension list.
type Shape struct {
	dims  []int
	elems int
}

// NewShape builds a shape from positive dimensions.
func NewShape(dims ...int) (Shape, error) {
	if len(dims) == 0 {
		return Shape{}, fmt.Errorf("shape: no dims: %w", errdefs.ErrInvalidShape)
	}
	elems := 1
	for _, d := range dims {
		if d <= 0 {
			return Shape{}, fmt.Errorf("shape: dim %d: %w", d, errdefs.ErrInvalidShape)
		}
		elems *= d
	}
	return Shape{dims: append([]int(nil), dims...), elems: elems}, nil
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int { return len(s.dims) }

// Dim returns dimension i.
func (s Shape) Dim(i int) int { return s.dims[i] }

// Dims returns a copy of the dimension list.
func (s Shape) Dims() []int { return append([]int(nil), s.dims...) }

// Elems returns the total element count.
func (s Shape) Elems() int { return s.elems }

// Strides returns the canonical row-major strides: the product of
// trailing dimensions.
func (s Shape) Strides() []int {
	strides := make([]int, len(s.dims))
	acc := 1
	for i := len(s.dims) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= s.dims[i]
	}
	return strides
}

// Equal reports whether two shapes have identical dimensions.
func (s Shape) Equal(o Shape) bool {
	if len(s.dims) != len(o.dims) {
		return false
	}
	for i := range s.dims {
		if s.dims[i] != o.dims[i] {
			return false
		}
	}
	return true
}

// IsContiguous reports whether the given strides are the canonical
// row-major strides for the shape.
func (s Shape) IsContiguous(strides []int) bool {
	want := s.Strides()
	if len(strides) != len(want) {
		return false
	}
	for i := range want {
		if strides[i] != want[i] {
			return false
		}
	}
	return true
}
