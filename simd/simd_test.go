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

import (
	"math"
	"testing"
)

func TestLoadStoreRoundTrip(t *testing.T) {
	src := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	v := Load(src)
	dst := make([]float32, len(src))
	Store(v, dst)

	n := MaxLanes[float32]()
	if n > len(src) {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		if dst[i] != src[i] {
			t.Errorf("lane %d: got %v, want %v", i, dst[i], src[i])
		}
	}
}

func TestArithmetic(t *testing.T) {
	a := Load([]float32{1, 2, 3, 4, 5, 6, 7, 8})
	b := Load([]float32{8, 7, 6, 5, 4, 3, 2, 1})

	tests := []struct {
		name string
		got  Vec[float32]
		want func(x, y float32) float32
	}{
		{"add", Add(a, b), func(x, y float32) float32 { return x + y }},
		{"sub", Sub(a, b), func(x, y float32) float32 { return x - y }},
		{"mul", Mul(a, b), func(x, y float32) float32 { return x * y }},
		{"min", Min(a, b), func(x, y float32) float32 {
			if x < y {
				return x
			}
			return y
		}},
		{"max", Max(a, b), func(x, y float32) float32 {
			if x > y {
				return x
			}
			return y
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := make([]float32, MaxLanes[float32]())
			Store(tt.got, out)
			for i := 0; i < len(a.data); i++ {
				want := tt.want(a.data[i], b.data[i])
				if out[i] != want {
					t.Errorf("lane %d: got %v, want %v", i, out[i], want)
				}
			}
		})
	}
}

func TestMulAddReduce(t *testing.T) {
	a := Load([]float32{1, 2, 3, 4})
	b := Load([]float32{5, 6, 7, 8})
	acc := Zero[float32]()
	acc = MulAdd(a, b, acc)

	var want float32
	for i := 0; i < len(acc.data); i++ {
		want += a.data[i] * b.data[i]
	}
	if got := ReduceSum(acc); got != want {
		t.Errorf("ReduceSum = %v, want %v", got, want)
	}
}

func TestReduceMax(t *testing.T) {
	v := Load([]float32{-3, 7, 2, -9})
	want := v.data[0]
	for _, x := range v.data {
		if x > want {
			want = x
		}
	}
	if got := ReduceMax(v); got != want {
		t.Errorf("ReduceMax = %v, want %v", got, want)
	}
}

func TestExpVec(t *testing.T) {
	in := []float32{-2, -1, 0, 1}
	v := ExpVec(Load(in))
	out := make([]float32, MaxLanes[float32]())
	Store(v, out)
	for i := 0; i < len(v.data); i++ {
		want := float32(math.Exp(float64(in[i])))
		if diff := math.Abs(float64(out[i] - want)); diff > 1e-6 {
			t.Errorf("exp(%v) = %v, want %v", in[i], out[i], want)
		}
	}
}

func TestSetLevel(t *testing.T) {
	saved := CurrentLevel()
	defer SetLevel(saved)

	SetLevel(Level256Int)
	if CurrentWidth() != 32 {
		t.Errorf("width at 256bit tier = %d, want 32", CurrentWidth())
	}
	SetLevel(LevelScalar)
	if CurrentWidth() != 16 {
		t.Errorf("width at scalar tier = %d, want 16", CurrentWidth())
	}
	if MaxLanes[float32]() != 4 {
		t.Errorf("float32 lanes at scalar tier = %d, want 4", MaxLanes[float32]())
	}
}
