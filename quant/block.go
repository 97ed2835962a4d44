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

// QuantizeBlocked packs a flat float32 sequence into signed 4-bit block
// codes. Each block of blockSize elements carries one scale max(|x|)/7;
// codes are clamped to [-8, 7] and biased by 8 for packing. The last
// block may be short. A zero blockSize selects DefaultBlockSize.
func QuantizeBlocked(in []float32, blockSize int) (packed []byte, scales []float32, err error) {
	if len(in) == 0 {
		return nil, nil, fmt.Errorf("quantize blocked: empty input: %w", errdefs.ErrInvalidShape)
	}
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	if blockSize < 0 {
		return nil, nil, fmt.Errorf("quantize blocked: block size %d: %w", blockSize, errdefs.ErrInvalidArgument)
	}

	n := len(in)
	nblocks := (n + blockSize - 1) / blockSize
	packed = make([]byte, PackedLen(n))
	scales = make([]float32, nblocks)

	for b := 0; b < nblocks; b++ {
		start := b * blockSize
		end := start + blockSize
		if end > n {
			end = n
		}

		var amax float32
		for _, x := range in[start:end] {
			if a := math32.Abs(x); a > amax {
				amax = a
			}
		}
		scale := amax / 7
		if amax == 0 {
			scale = 1
		}
		scales[b] = scale

		invScale := 1 / scale
		for i := start; i < end; i++ {
			q := math32.Round(in[i] * invScale)
			if q < -8 {
				q = -8
			} else if q > 7 {
				q = 7
			}
			code := byte(int(q) + 8)
			if i%2 == 0 {
				packed[i/2] |= code
			} else {
				packed[i/2] |= code << 4
			}
		}
	}
	return packed, scales, nil
}

// DequantizeBlocked expands n block codes from packed into out. The
// scales slice must cover ceil(n/blockSize) blocks.
func DequantizeBlocked(out []float32, packed []byte, n, blockSize int, scales []float32) error {
	if n <= 0 {
		return fmt.Errorf("dequantize blocked: n=%d: %w", n, errdefs.ErrInvalidShape)
	}
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	if len(out) < n {
		return fmt.Errorf("dequantize blocked: out %d < %d: %w", len(out), n, errdefs.ErrInvalidShape)
	}
	if len(packed) < PackedLen(n) {
		return fmt.Errorf("dequantize blocked: packed %d < %d: %w", len(packed), PackedLen(n), errdefs.ErrInvalidShape)
	}
	nblocks := (n + blockSize - 1) / blockSize
	if len(scales) < nblocks {
		return fmt.Errorf("dequantize blocked: %d scales for %d blocks: %w", len(scales), nblocks, errdefs.ErrInvalidShape)
	}

	for i := 0; i < n; i++ {
		b := packed[i/2]
		var code uint8
		if i%2 == 0 {
			code = b & 0x0F
		} else {
			code = b >> 4
		}
		out[i] = float32(int(code)-8) * scales[i/blockSize]
	}
	return nil
}

// QuantizeBlocked4 packs a float32 matrix under the block scheme.
func QuantizeBlocked4(m *DenseMatrixF32, blockSize int) (*Matrix4, error) {
	if m == nil || m.Rows <= 0 || m.Cols <= 0 {
		return nil, fmt.Errorf("quantize blocked 4-bit: %w", errdefs.ErrInvalidShape)
	}
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	packed, scales, err := QuantizeBlocked(m.Data, blockSize)
	if err != nil {
		return nil, err
	}
	return &Matrix4{
		Rows:        m.Rows,
		Cols:        m.Cols,
		Scheme:      SchemeBlock,
		Data:        packed,
		BlockSize:   blockSize,
		BlockScales: scales,
	}, nil
}
