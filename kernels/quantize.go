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
	"github.com/TheLakeMan/tinyai/quant"
)

// QuantizeBlocked is the kernel-bank surface for the block codec. The
// packing loops live in package quant; re-exporting them here keeps the
// whole kernel bank reachable from one import.
func QuantizeBlocked(in []float32, blockSize int) (packed []byte, scales []float32, err error) {
	return quant.QuantizeBlocked(in, blockSize)
}

// DequantizeBlocked expands n block codes from packed into out.
func DequantizeBlocked(out []float32, packed []byte, n, blockSize int, scales []float32) error {
	return quant.DequantizeBlocked(out, packed, n, blockSize, scales)
}
