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
	"errors"
	"testing"

	"github.com/TheLakeMan/tinyai/errdefs"
)

func TestShape(t *testing.T) {
	s, err := NewShape(2, 3, 4)
	if err != nil {
		t.Fatalf("NewShape: %v", err)
	}
	if s.Elems() != 24 {
		t.Errorf("Elems = %d, want 24", s.Elems())
	}
	want := []int{12, 4, 1}
	got := s.Strides()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stride %d = %d, want %d", i, got[i], want[i])
		}
	}
	if !s.IsContiguous(got) {
		t.Error("canonical strides reported non-contiguous")
	}
	if s.IsContiguous([]int{12, 4, 2}) {
		t.Error("non-canonical strides reported contiguous")
	}

	if _, err := NewShape(2, 0); !errors.Is(err, errdefs.ErrInvalidShape) {
		t.Errorf("zero dim: %v, want ErrInvalidShape", err)
	}
	if _, err := NewShape(); !errors.Is(err, errdefs.ErrInvalidShape) {
		t.Errorf("empty dims: %v, want ErrInvalidShape", err)
	}
}

func TestTensorFloat32RoundTrip(t *testing.T) {
	s, _ := NewShape(2, 3)
	tn, err := New(F32, s)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	vals := []float32{1, -2, 3.5, 0, 1e-3, -7}
	if err := tn.SetFloat32s(vals); err != nil {
		t.Fatalf("SetFloat32s: %v", err)
	}
	got, err := tn.Float32s()
	if err != nil {
		t.Fatalf("Float32s: %v", err)
	}
	for i := range vals {
		if got[i] != vals[i] {
			t.Errorf("elem %d: %v != %v", i, got[i], vals[i])
		}
	}
	if tn.MemoryUsage() != 24 {
		t.Errorf("MemoryUsage = %d, want 24", tn.MemoryUsage())
	}
	if !tn.IsContiguous() {
		t.Error("fresh tensor not contiguous")
	}
}

func TestAddMulInPlace(t *testing.T) {
	s, _ := NewShape(4)
	a, _ := New(F32, s)
	b, _ := New(F32, s)
	_ = a.SetFloat32s([]float32{1, 2, 3, 4})
	_ = b.SetFloat32s([]float32{10, 20, 30, 40})

	if err := a.AddInPlace(b); err != nil {
		t.Fatalf("AddInPlace: %v", err)
	}
	got, _ := a.Float32s()
	for i, want := range []float32{11, 22, 33, 44} {
		if got[i] != want {
			t.Errorf("add elem %d: %v, want %v", i, got[i], want)
		}
	}

	if err := a.MulInPlace(b); err != nil {
		t.Fatalf("MulInPlace: %v", err)
	}
	got, _ = a.Float32s()
	for i, want := range []float32{110, 440, 990, 1760} {
		if got[i] != want {
			t.Errorf("mul elem %d: %v, want %v", i, got[i], want)
		}
	}
}

func TestInPlaceConstraints(t *testing.T) {
	s4, _ := NewShape(4)
	s5, _ := NewShape(5)
	a, _ := New(F32, s4)
	b, _ := New(F32, s5)
	if err := a.AddInPlace(b); !errors.Is(err, errdefs.ErrInvalidShape) {
		t.Errorf("shape mismatch: %v, want ErrInvalidShape", err)
	}

	c, _ := New(I8, s4)
	if err := a.AddInPlace(c); err == nil {
		t.Error("dtype mismatch accepted")
	}
}

func TestStream(t *testing.T) {
	s, _ := NewShape(10)
	tn, _ := New(F32, s)
	vals := make([]float32, 10)
	for i := range vals {
		vals[i] = float32(i)
	}
	_ = tn.SetFloat32s(vals)

	var chunks int
	err := tn.Stream(3, func(span []float32) {
		chunks++
		for i := range span {
			span[i] *= 2
		}
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if chunks != 4 {
		t.Errorf("chunks = %d, want 4", chunks)
	}
	got, _ := tn.Float32s()
	for i := range vals {
		if got[i] != vals[i]*2 {
			t.Errorf("elem %d: %v, want %v", i, got[i], vals[i]*2)
		}
	}
}

func TestPoolAllocReuse(t *testing.T) {
	p, err := NewPool(64)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	off1, err := p.Alloc(16)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := p.Free(off1); err != nil {
		t.Fatalf("Free: %v", err)
	}
	off2, err := p.Alloc(16)
	if err != nil {
		t.Fatalf("Alloc after free: %v", err)
	}
	if off2 != off1 {
		t.Errorf("second alloc at %d, want reuse of %d", off2, off1)
	}
	if p.Stats().ReuseCount != 1 {
		t.Errorf("ReuseCount = %d, want 1", p.Stats().ReuseCount)
	}

	if _, err := p.Alloc(128); !errors.Is(err, errdefs.ErrOutOfMemory) {
		t.Errorf("oversized alloc: %v, want ErrOutOfMemory", err)
	}
}

func TestPoolResizePreservesLive(t *testing.T) {
	p, _ := NewPool(32)
	s, _ := NewShape(4)
	tn, err := NewPooled(p, F32, s)
	if err != nil {
		t.Fatalf("NewPooled: %v", err)
	}
	_ = tn.SetFloat32s([]float32{1, 2, 3, 4})

	// Shrinking below live data fails without mutation.
	if err := p.Resize(8); !errors.Is(err, errdefs.ErrOutOfMemory) {
		t.Fatalf("Resize(8) = %v, want ErrOutOfMemory", err)
	}
	if p.Capacity() != 32 {
		t.Errorf("capacity changed to %d after failed resize", p.Capacity())
	}

	if err := p.Resize(128); err != nil {
		t.Fatalf("Resize(128): %v", err)
	}
	if p.Capacity() != 128 {
		t.Errorf("capacity = %d, want 128", p.Capacity())
	}
}

func TestPooledTensorRelease(t *testing.T) {
	p, _ := NewPool(64)
	s, _ := NewShape(2, 2)
	tn, err := NewPooled(p, F32, s)
	if err != nil {
		t.Fatalf("NewPooled: %v", err)
	}
	if tn.Strategy() != Pooled {
		t.Errorf("strategy = %v, want Pooled", tn.Strategy())
	}
	if err := tn.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if p.Stats().FreeCount != 1 {
		t.Errorf("FreeCount = %d, want 1", p.Stats().FreeCount)
	}
}
