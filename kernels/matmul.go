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
	"github.com/TheLakeMan/tinyai/quant"
	"github.com/TheLakeMan/tinyai/simd"
)

// MatMulQ4Vec computes out = W @ in where W is a quantized (rows, cols)
// matrix and in has cols elements. Weight rows are dequantized on the
// fly into a reused scratch row; per-block scales are honored through
// the matrix scheme tag.
func MatMulQ4Vec(out []float32, w *quant.Matrix4, in []float32) error {
	if out == nil || w == nil || in == nil {
		return fmt.Errorf("matmul q4 vec: nil argument: %w", errdefs.ErrInvalidArgument)
	}
	if len(in) < w.Cols || len(out) < w.Rows {
		return fmt.Errorf("matmul q4 vec: out %d in %d for %dx%d: %w",
			len(out), len(in), w.Rows, w.Cols, errdefs.ErrInvalidShape)
	}

	row := make([]float32, w.Cols)
	x := in[:w.Cols]
	for r := 0; r < w.Rows; r++ {
		if err := w.DequantizeRow(r, row); err != nil {
			return fmt.Errorf("matmul q4 vec row %d: %w", r, err)
		}
		out[r] = active.dotF32(row, x)
	}
	return nil
}

// MatMulQ4Mat computes out = A @ B where A is a quantized (rowsA, colsA)
// matrix and B is a dense row-major (colsA, colsB) matrix. The product
// is accumulated row by row in axpy form so B is walked contiguously.
func MatMulQ4Mat(out []float32, a *quant.Matrix4, b []float32, rowsA, colsA, colsB int) error {
	if out == nil || a == nil || b == nil {
		return fmt.Errorf("matmul q4 mat: nil argument: %w", errdefs.ErrInvalidArgument)
	}
	if a.Rows != rowsA || a.Cols != colsA {
		return fmt.Errorf("matmul q4 mat: A is %dx%d, declared %dx%d: %w",
			a.Rows, a.Cols, rowsA, colsA, errdefs.ErrInvalidShape)
	}
	if len(b) < colsA*colsB || len(out) < rowsA*colsB {
		return fmt.Errorf("matmul q4 mat: buffers %d/%d for %dx%dx%d: %w",
			len(out), len(b), rowsA, colsA, colsB, errdefs.ErrInvalidShape)
	}

	aRow := make([]float32, colsA)
	for i := 0; i < rowsA; i++ {
		if err := a.DequantizeRow(i, aRow); err != nil {
			return fmt.Errorf("matmul q4 mat row %d: %w", i, err)
		}
		outRow := out[i*colsB : (i+1)*colsB]
		for j := range outRow {
			outRow[j] = 0
		}
		for k := 0; k < colsA; k++ {
			s := aRow[k]
			if s == 0 {
				continue
			}
			active.axpy(outRow, s, b[k*colsB:(k+1)*colsB])
		}
	}
	return nil
}

// axpyScalar computes dst += s * x.
func axpyScalar(dst []float32, s float32, x []float32) {
	for i := range dst {
		dst[i] += s * x[i]
	}
}

func axpyWide(dst []float32, s float32, x []float32) {
	lanes := simd.MaxLanes[float32]()
	vs := simd.Set(s)
	i := 0
	for ; i+lanes <= len(dst); i += lanes {
		vx := simd.Load(x[i:])
		vd := simd.Load(dst[i:])
		simd.Store(simd.MulAdd(vx, vs, vd), dst[i:])
	}
	for ; i < len(dst); i++ {
		dst[i] += s * x[i]
	}
}
