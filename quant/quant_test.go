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

package quant

import (
	"math"
	"testing"
)

func TestQuantizeAffine4RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		rows int
		cols int
		data []float32
	}{
		{
			name: "three element vector",
			rows: 1, cols: 3,
			data: []float32{-1.0, 0.0, 1.0},
		},
		{
			name: "ascending",
			rows: 2, cols: 8,
			data: func() []float32 {
				v := make([]float32, 16)
				for i := range v {
					v[i] = float32(i-8) * 0.25
				}
				return v
			}(),
		},
		{
			name: "mixed signs",
			rows: 3, cols: 5,
			data: []float32{2.5, -1.25, 0, 3.75, -4, 1, 1, -1, 0.5, -0.5, 2, -2, 3, -3, 0.1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &DenseMatrixF32{Rows: tt.rows, Cols: tt.cols, Data: tt.data}
			q, err := QuantizeAffine4(m)
			if err != nil {
				t.Fatalf("QuantizeAffine4: %v", err)
			}
			back, err := q.Dequantize()
			if err != nil {
				t.Fatalf("Dequantize: %v", err)
			}

			minVal, maxVal := rangeOf(tt.data)
			tol := float64(maxVal-minVal) / 15
			for i := range tt.data {
				diff := math.Abs(float64(back.Data[i] - tt.data[i]))
				if diff > tol+1e-6 {
					t.Errorf("elem %d: round-trip error %v exceeds %v", i, diff, tol)
				}
			}
		})
	}
}

func TestQuantizeAffine4KnownScale(t *testing.T) {
	// [-1, 0, 1] quantizes with scale 2/15 and zero point -1.
	m := &DenseMatrixF32{Rows: 1, Cols: 3, Data: []float32{-1, 0, 1}}
	q, err := QuantizeAffine4(m)
	if err != nil {
		t.Fatalf("QuantizeAffine4: %v", err)
	}
	if math.Abs(float64(q.Scale-2.0/15)) > 1e-7 {
		t.Errorf("scale = %v, want %v", q.Scale, 2.0/15)
	}
	if q.ZeroPoint != -1 {
		t.Errorf("zero point = %v, want -1", q.ZeroPoint)
	}
	back, err := q.Dequantize()
	if err != nil {
		t.Fatalf("Dequantize: %v", err)
	}
	for i, want := range []float32{-1, 0, 1} {
		if diff := math.Abs(float64(back.Data[i] - want)); diff > 2.0/15 {
			t.Errorf("elem %d: %v, want %v within 2/15", i, back.Data[i], want)
		}
	}
}

func TestQuantizeAffine4OddCount(t *testing.T) {
	m := &DenseMatrixF32{Rows: 1, Cols: 3, Data: []float32{1, 2, 3}}
	q, err := QuantizeAffine4(m)
	if err != nil {
		t.Fatalf("QuantizeAffine4: %v", err)
	}
	if len(q.Data) != 2 {
		t.Fatalf("packed length = %d, want 2", len(q.Data))
	}
	if q.Data[1]>>4 != 0 {
		t.Errorf("final high nibble = %d, want 0", q.Data[1]>>4)
	}
}

func TestQuantizeAffine4Constant(t *testing.T) {
	m := &DenseMatrixF32{Rows: 2, Cols: 2, Data: []float32{3.5, 3.5, 3.5, 3.5}}
	q, err := QuantizeAffine4(m)
	if err != nil {
		t.Fatalf("QuantizeAffine4: %v", err)
	}
	if q.Scale != 1 {
		t.Errorf("constant-input scale = %v, want 1", q.Scale)
	}
	for i, b := range q.Data {
		if b != 0 {
			t.Errorf("byte %d = %#x, want 0", i, b)
		}
	}
	back, err := q.Dequantize()
	if err != nil {
		t.Fatalf("Dequantize: %v", err)
	}
	for i, x := range back.Data {
		if x != 3.5 {
			t.Errorf("elem %d = %v, want exactly 3.5", i, x)
		}
	}
}

func TestQuantizeAffine4InvalidShape(t *testing.T) {
	tests := []struct {
		name string
		m    *DenseMatrixF32
	}{
		{"nil", nil},
		{"zero rows", &DenseMatrixF32{Rows: 0, Cols: 4}},
		{"zero cols", &DenseMatrixF32{Rows: 4, Cols: 0}},
		{"short data", &DenseMatrixF32{Rows: 2, Cols: 2, Data: []float32{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := QuantizeAffine4(tt.m); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestQuantizeAffine8RoundTrip(t *testing.T) {
	data := make([]float32, 64)
	for i := range data {
		data[i] = float32(math.Sin(float64(i))) * 10
	}
	m := &DenseMatrixF32{Rows: 8, Cols: 8, Data: data}
	q, err := QuantizeAffine8(m)
	if err != nil {
		t.Fatalf("QuantizeAffine8: %v", err)
	}
	back, err := q.Dequantize()
	if err != nil {
		t.Fatalf("Dequantize: %v", err)
	}
	minVal, maxVal := rangeOf(data)
	tol := float64(maxVal-minVal) / 254
	for i := range data {
		if diff := math.Abs(float64(back.Data[i] - data[i])); diff > tol+1e-6 {
			t.Errorf("elem %d: round-trip error %v exceeds %v", i, diff, tol)
		}
	}
}

func TestDequantizeRow(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5, 6}
	m := &DenseMatrixF32{Rows: 2, Cols: 3, Data: data}
	q, err := QuantizeAffine4(m)
	if err != nil {
		t.Fatalf("QuantizeAffine4: %v", err)
	}

	row := make([]float32, 3)
	if err := q.DequantizeRow(1, row); err != nil {
		t.Fatalf("DequantizeRow: %v", err)
	}
	tol := float64(5.0 / 15)
	for c, want := range []float32{4, 5, 6} {
		if diff := math.Abs(float64(row[c] - want)); diff > tol+1e-6 {
			t.Errorf("row 1 col %d: %v, want %v", c, row[c], want)
		}
	}

	if err := q.DequantizeRow(2, row); err == nil {
		t.Error("expected error for out-of-range row")
	}
}
