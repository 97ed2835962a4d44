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
	"fmt"

	"github.com/chewxy/math32"

	"github.com/TheLakeMan/tinyai/errdefs"
)

// QuantizeAffine4 packs a float32 matrix into 4-bit affine codes.
//
// The scale is (max-min)/15 with zero point min, so codes span the full
// [0, 15] range. Constant input gets scale 1 and all-zero codes; dequant
// then reproduces the zero point exactly. Rounding is half away from
// zero. The first element of each pair lands in the low nibble; an odd
// element count leaves the final high nibble zero.
func QuantizeAffine4(m *DenseMatrixF32) (*Matrix4, error) {
	if m == nil || m.Rows <= 0 || m.Cols <= 0 {
		return nil, fmt.Errorf("quantize 4-bit: %w", errdefs.ErrInvalidShape)
	}
	if len(m.Data) != m.Rows*m.Cols {
		return nil, fmt.Errorf("quantize 4-bit: data %d != %dx%d: %w",
			len(m.Data), m.Rows, m.Cols, errdefs.ErrInvalidShape)
	}

	minVal, maxVal := rangeOf(m.Data)
	scale := (maxVal - minVal) / 15
	if maxVal == minVal {
		scale = 1
	}

	n := m.Rows * m.Cols
	out := &Matrix4{
		Rows:      m.Rows,
		Cols:      m.Cols,
		Scheme:    SchemeAffine,
		Data:      make([]byte, PackedLen(n)),
		Scale:     scale,
		ZeroPoint: minVal,
	}

	if maxVal == minVal {
		// All codes stay zero.
		return out, nil
	}

	invScale := 1 / scale
	for i := 0; i < n; i++ {
		q := math32.Round((m.Data[i] - minVal) * invScale)
		if q < 0 {
			q = 0
		} else if q > 15 {
			q = 15
		}
		code := byte(q)
		if i%2 == 0 {
			out.Data[i/2] |= code
		} else {
			out.Data[i/2] |= code << 4
		}
	}
	return out, nil
}

// Dequantize expands the matrix back to float32 honoring its scheme.
func (q *Matrix4) Dequantize() (*DenseMatrixF32, error) {
	if q.Rows <= 0 || q.Cols <= 0 {
		return nil, fmt.Errorf("dequantize 4-bit: %w", errdefs.ErrInvalidShape)
	}
	m, err := NewDense(q.Rows, q.Cols)
	if err != nil {
		return nil, err
	}
	for r := 0; r < q.Rows; r++ {
		if err := q.DequantizeRow(r, m.Data[r*q.Cols:]); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// QuantizeAffine8 packs a float32 matrix into signed 8-bit codes in
// [-127, 127] with scale (max-min)/254 and zero point min.
func QuantizeAffine8(m *DenseMatrixF32) (*Matrix8, error) {
	if m == nil || m.Rows <= 0 || m.Cols <= 0 {
		return nil, fmt.Errorf("quantize 8-bit: %w", errdefs.ErrInvalidShape)
	}
	if len(m.Data) != m.Rows*m.Cols {
		return nil, fmt.Errorf("quantize 8-bit: data %d != %dx%d: %w",
			len(m.Data), m.Rows, m.Cols, errdefs.ErrInvalidShape)
	}

	minVal, maxVal := rangeOf(m.Data)
	scale := (maxVal - minVal) / 254
	if maxVal == minVal {
		scale = 1
	}

	n := m.Rows * m.Cols
	out := &Matrix8{
		Rows:      m.Rows,
		Cols:      m.Cols,
		Data:      make([]int8, n),
		Scale:     scale,
		ZeroPoint: minVal,
	}

	if maxVal == minVal {
		for i := range out.Data {
			out.Data[i] = -127
		}
		return out, nil
	}

	invScale := 1 / scale
	for i := 0; i < n; i++ {
		q := math32.Round((m.Data[i]-minVal)*invScale) - 127
		if q < -127 {
			q = -127
		} else if q > 127 {
			q = 127
		}
		out.Data[i] = int8(q)
	}
	return out, nil
}

// Dequantize expands the 8-bit matrix back to float32.
func (q *Matrix8) Dequantize() (*DenseMatrixF32, error) {
	if q.Rows <= 0 || q.Cols <= 0 {
		return nil, fmt.Errorf("dequantize 8-bit: %w", errdefs.ErrInvalidShape)
	}
	m, err := NewDense(q.Rows, q.Cols)
	if err != nil {
		return nil, err
	}
	for i, code := range q.Data {
		m.Data[i] = float32(int(code)+127)*q.Scale + q.ZeroPoint
	}
	return m, nil
}

func rangeOf(data []float32) (minVal, maxVal float32) {
	minVal, maxVal = data[0], data[0]
	for _, x := range data[1:] {
		if x < minVal {
			minVal = x
		}
		if x > maxVal {
			maxVal = x
		}
	}
	return minVal, maxVal
}
