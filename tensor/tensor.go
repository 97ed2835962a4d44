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

package tensor

import (
	"fmt"
	"math"

	"github.com/TheLakeMan/tinyai/errdefs"
)

// DType enumerates tensor element types.
type DType uint8

const (
	F32 DType = iota
	F16
	I8
	I16
	I32
)

// Size returns the element size in bytes.
func (d DType) Size() int {
	switch d {
	case F32, I32:
		return 4
	case F16, I16:
		return 2
	case I8:
		return 1
	}
	return 0
}

func (d DType) String() string {
	switch d {
	case F32:
		return "f32"
	case F16:
		return "f16"
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	}
	return "unknown"
}

// Strategy selects where a tensor's storage lives.
type Strategy uint8

const (
	// Static tensors own a private heap buffer.
	Static Strategy = iota
	// Pooled tensors borrow a block from a Pool.
	Pooled
	// Streamed tensors process data in fixed-size chunks to bound
	// auxiliary memory.
	Streamed
)

// Tensor is a shaped, typed buffer with an explicit storage strategy.
type Tensor struct {
	shape    Shape
	strides  []int
	dtype    DType
	strategy Strategy

	// Static storage; pooled tensors resolve their bytes through the
	// pool so a pool resize cannot orphan them.
	data []byte
	pool *Pool
	off  int
	size int
}

// New allocates a static tensor.
func New(dtype DType, shape Shape) (*Tensor, error) {
	if shape.Elems() == 0 {
		return nil, fmt.Errorf("tensor: empty shape: %w", errdefs.ErrInvalidShape)
	}
	if dtype.Size() == 0 {
		return nil, fmt.Errorf("tensor: dtype %d: %w", dtype, errdefs.ErrInvalidArgument)
	}
	size := shape.Elems() * dtype.Size()
	return &Tensor{
		shape:    shape,
		strides:  shape.Strides(),
		dtype:    dtype,
		strategy: Static,
		data:     make([]byte, size),
		size:     size,
	}, nil
}

// NewPooled allocates a tensor backed by a pool block. Freeing the
// tensor returns the block.
func NewPooled(pool *Pool, dtype DType, shape Shape) (*Tensor, error) {
	if pool == nil {
		return nil, fmt.Errorf("tensor: nil pool: %w", errdefs.ErrInvalidArgument)
	}
	if shape.Elems() == 0 {
		return nil, fmt.Errorf("tensor: empty shape: %w", errdefs.ErrInvalidShape)
	}
	size := shape.Elems() * dtype.Size()
	off, err := pool.Alloc(size)
	if err != nil {
		return nil, err
	}
	return &Tensor{
		shape:    shape,
		strides:  shape.Strides(),
		dtype:    dtype,
		strategy: Pooled,
		pool:     pool,
		off:      off,
		size:     size,
	}, nil
}

// Release returns pooled storage to the pool. Static tensors drop their
// buffer reference.
func (t *Tensor) Release() error {
	if t.strategy == Pooled && t.pool != nil {
		if err := t.pool.Free(t.off); err != nil {
			return err
		}
		t.pool = nil
	}
	t.data = nil
	t.size = 0
	return nil
}

// Shape returns the tensor shape.
func (t *Tensor) Shape() Shape { return t.shape }

// DType returns the element type.
func (t *Tensor) DType() DType { return t.dtype }

// Strategy returns the storage strategy.
func (t *Tensor) Strategy() Strategy { return t.strategy }

// MemoryUsage returns the resident byte count.
func (t *Tensor) MemoryUsage() int { return t.size }

// storage resolves the backing bytes; pooled tensors look through the
// pool so resizes stay visible.
func (t *Tensor) storage() []byte {
	if t.strategy == Pooled {
		if t.pool == nil {
			return nil
		}
		return t.pool.Bytes(t.off, t.size)
	}
	return t.data
}

// IsContiguous reports whether the tensor's strides are canonical.
func (t *Tensor) IsContiguous() bool { return t.shape.IsContiguous(t.strides) }

// Float32s returns the storage viewed as float32 elements. Only valid
// for F32 tensors.
func (t *Tensor) Float32s() ([]float32, error) {
	if t.dtype != F32 {
		return nil, fmt.Errorf("float32 view of %v tensor: %w", t.dtype, errdefs.ErrInvalidArgument)
	}
	buf := t.storage()
	if buf == nil {
		return nil, fmt.Errorf("released tensor: %w", errdefs.ErrInvalidArgument)
	}
	out := make([]float32, t.shape.Elems())
	for i := range out {
		out[i] = math.Float32frombits(leU32(buf[i*4:]))
	}
	return out, nil
}

// SetFloat32s copies values into F32 storage.
func (t *Tensor) SetFloat32s(values []float32) error {
	if t.dtype != F32 {
		return fmt.Errorf("float32 store to %v tensor: %w", t.dtype, errdefs.ErrInvalidArgument)
	}
	if len(values) != t.shape.Elems() {
		return fmt.Errorf("store %d into %d elems: %w", len(values), t.shape.Elems(), errdefs.ErrInvalidShape)
	}
	buf := t.storage()
	if buf == nil {
		return fmt.Errorf("released tensor: %w", errdefs.ErrInvalidArgument)
	}
	for i, v := range values {
		putLeU32(buf[i*4:], math.Float32bits(v))
	}
	return nil
}

// AddInPlace accumulates o into t element-wise. Shapes and dtypes must
// match and both tensors must be stride-iterable (contiguous).
func (t *Tensor) AddInPlace(o *Tensor) error {
	return t.zipInPlace(o, func(a, b float32) float32 { return a + b })
}

// MulInPlace multiplies t by o element-wise under the same constraints
// as AddInPlace.
func (t *Tensor) MulInPlace(o *Tensor) error {
	return t.zipInPlace(o, func(a, b float32) float32 { return a * b })
}

func (t *Tensor) zipInPlace(o *Tensor, fn func(a, b float32) float32) error {
	if o == nil {
		return fmt.Errorf("in-place op: nil operand: %w", errdefs.ErrInvalidArgument)
	}
	if t.dtype != o.dtype {
		return fmt.Errorf("in-place op: %v vs %v: %w", t.dtype, o.dtype, errdefs.ErrInvalidArgument)
	}
	if !t.shape.Equal(o.shape) {
		return fmt.Errorf("in-place op: shape mismatch: %w", errdefs.ErrInvalidShape)
	}
	if !t.IsContiguous() || !o.IsContiguous() {
		return fmt.Errorf("in-place op: non-contiguous layout: %w", errdefs.ErrInvalidArgument)
	}
	if t.dtype != F32 {
		return fmt.Errorf("in-place op on %v: %w", t.dtype, errdefs.ErrNotImplemented)
	}
	dst, src := t.storage(), o.storage()
	if dst == nil || src == nil {
		return fmt.Errorf("released tensor: %w", errdefs.ErrInvalidArgument)
	}
	n := t.shape.Elems()
	for i := 0; i < n; i++ {
		a := math.Float32frombits(leU32(dst[i*4:]))
		b := math.Float32frombits(leU32(src[i*4:]))
		putLeU32(dst[i*4:], math.Float32bits(fn(a, b)))
	}
	return nil
}

// Stream applies fn to the tensor's elements in fixed-size chunks. The
// chunk buffer is the only auxiliary allocation, so chunk size bounds
// peak extra memory. fn sees and may rewrite each chunk.
func (t *Tensor) Stream(chunk int, fn func([]float32)) error {
	if fn == nil {
		return fmt.Errorf("stream: nil fn: %w", errdefs.ErrInvalidArgument)
	}
	if chunk <= 0 {
		return fmt.Errorf("stream: chunk %d: %w", chunk, errdefs.ErrInvalidArgument)
	}
	if t.dtype != F32 {
		return fmt.Errorf("stream on %v: %w", t.dtype, errdefs.ErrNotImplemented)
	}
	store := t.storage()
	if store == nil {
		return fmt.Errorf("released tensor: %w", errdefs.ErrInvalidArgument)
	}
	n := t.shape.Elems()
	buf := make([]float32, chunk)
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		span := buf[:end-start]
		for i := range span {
			span[i] = math.Float32frombits(leU32(store[(start+i)*4:]))
		}
		fn(span)
		for i := range span {
			putLeU32(store[(start+i)*4:], math.Float32bits(span[i]))
		}
	}
	return nil
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLeU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
