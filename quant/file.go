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
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/TheLakeMan/tinyai/errdefs"
)

// MatrixMagic identifies the standalone quantized-matrix layout ("NTQM"
// little-endian).
const MatrixMagic uint32 = 0x4D51544E

// Precision tags in the standalone matrix header.
const (
	PrecisionF32  uint32 = 0
	PrecisionInt8 uint32 = 1
	PrecisionInt4 uint32 = 2
)

type matrixHeader struct {
	Magic     uint32
	Precision uint32
	Rows      uint32
	Cols      uint32
}

// WriteMatrix4 serializes an affine 4-bit matrix. Block-scheme matrices
// have no slot for their scale vector in this layout.
func WriteMatrix4(w io.Writer, q *Matrix4) error {
	if q == nil || q.Rows <= 0 || q.Cols <= 0 {
		return fmt.Errorf("write matrix: %w", errdefs.ErrInvalidShape)
	}
	if q.Scheme != SchemeAffine {
		return fmt.Errorf("write matrix: %v scheme: %w", q.Scheme, errdefs.ErrNotImplemented)
	}
	hdr := matrixHeader{Magic: MatrixMagic, Precision: PrecisionInt4, Rows: uint32(q.Rows), Cols: uint32(q.Cols)}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("write matrix header: %w", errdefs.ErrIO)
	}
	if err := binary.Write(w, binary.LittleEndian, [2]float32{q.Scale, q.ZeroPoint}); err != nil {
		return fmt.Errorf("write matrix params: %w", errdefs.ErrIO)
	}
	if _, err := w.Write(q.Data); err != nil {
		return fmt.Errorf("write matrix data: %w", errdefs.ErrIO)
	}
	return nil
}

// ReadMatrix4 deserializes an affine 4-bit matrix.
func ReadMatrix4(r io.Reader) (*Matrix4, error) {
	var hdr matrixHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read matrix header: %w", errdefs.ErrIO)
	}
	if hdr.Magic != MatrixMagic {
		return nil, fmt.Errorf("read matrix: magic %#x: %w", hdr.Magic, errdefs.ErrSchemaMismatch)
	}
	if hdr.Precision != PrecisionInt4 {
		return nil, fmt.Errorf("read matrix: precision %d: %w", hdr.Precision, errdefs.ErrSchemaMismatch)
	}
	if hdr.Rows == 0 || hdr.Cols == 0 {
		return nil, fmt.Errorf("read matrix: %dx%d: %w", hdr.Rows, hdr.Cols, errdefs.ErrInvalidShape)
	}
	var params [2]float32
	if err := binary.Read(r, binary.LittleEndian, &params); err != nil {
		return nil, fmt.Errorf("read matrix params: %w", errdefs.ErrIO)
	}
	q := &Matrix4{
		Rows:      int(hdr.Rows),
		Cols:      int(hdr.Cols),
		Scheme:    SchemeAffine,
		Data:      make([]byte, PackedLen(int(hdr.Rows)*int(hdr.Cols))),
		Scale:     params[0],
		ZeroPoint: params[1],
	}
	if _, err := io.ReadFull(r, q.Data); err != nil {
		return nil, fmt.Errorf("read matrix data: %w", errdefs.ErrIO)
	}
	return q, nil
}

// SaveMatrix4 writes an affine 4-bit matrix to path.
func SaveMatrix4(path string, q *Matrix4) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, errdefs.ErrIO)
	}
	defer f.Close()
	return WriteMatrix4(f, q)
}

// LoadMatrix4 reads an affine 4-bit matrix from path.
func LoadMatrix4(path string) (*Matrix4, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, errdefs.ErrIO)
	}
	defer f.Close()
	return ReadMatrix4(f)
}

// WriteDense serializes a float32 matrix with precision tag 0.
func WriteDense(w io.Writer, m *DenseMatrixF32) error {
	if m == nil || m.Rows <= 0 || m.Cols <= 0 {
		return fmt.Errorf("write dense: %w", errdefs.ErrInvalidShape)
	}
	hdr := matrixHeader{Magic: MatrixMagic, Precision: PrecisionF32, Rows: uint32(m.Rows), Cols: uint32(m.Cols)}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("write dense header: %w", errdefs.ErrIO)
	}
	if err := binary.Write(w, binary.LittleEndian, m.Data); err != nil {
		return fmt.Errorf("write dense data: %w", errdefs.ErrIO)
	}
	return nil
}

// ReadDense deserializes a float32 matrix.
func ReadDense(r io.Reader) (*DenseMatrixF32, error) {
	var hdr matrixHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read dense header: %w", errdefs.ErrIO)
	}
	if hdr.Magic != MatrixMagic {
		return nil, fmt.Errorf("read dense: magic %#x: %w", hdr.Magic, errdefs.ErrSchemaMismatch)
	}
	if hdr.Precision != PrecisionF32 {
		return nil, fmt.Errorf("read dense: precision %d: %w", hdr.Precision, errdefs.ErrSchemaMismatch)
	}
	if hdr.Rows == 0 || hdr.Cols == 0 {
		return nil, fmt.Errorf("read dense: %dx%d: %w", hdr.Rows, hdr.Cols, errdefs.ErrInvalidShape)
	}
	m := &DenseMatrixF32{
		Rows: int(hdr.Rows),
		Cols: int(hdr.Cols),
		Data: make([]float32, int(hdr.Rows)*int(hdr.Cols)),
	}
	if err := binary.Read(r, binary.LittleEndian, m.Data); err != nil {
		return nil, fmt.Errorf("read dense data: %w", errdefs.ErrIO)
	}
	return m, nil
}

// WriteMatrix8 serializes an 8-bit matrix with precision tag 1.
func WriteMatrix8(w io.Writer, q *Matrix8) error {
	if q == nil || q.Rows <= 0 || q.Cols <= 0 {
		return fmt.Errorf("write matrix8: %w", errdefs.ErrInvalidShape)
	}
	hdr := matrixHeader{Magic: MatrixMagic, Precision: PrecisionInt8, Rows: uint32(q.Rows), Cols: uint32(q.Cols)}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("write matrix8 header: %w", errdefs.ErrIO)
	}
	if err := binary.Write(w, binary.LittleEndian, [2]float32{q.Scale, q.ZeroPoint}); err != nil {
		return fmt.Errorf("write matrix8 params: %w", errdefs.ErrIO)
	}
	if err := binary.Write(w, binary.LittleEndian, q.Data); err != nil {
		return fmt.Errorf("write matrix8 data: %w", errdefs.ErrIO)
	}
	return nil
}

// ReadMatrix8 deserializes an 8-bit matrix.
func ReadMatrix8(r io.Reader) (*Matrix8, error) {
	var hdr matrixHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read matrix8 header: %w", errdefs.ErrIO)
	}
	if hdr.Magic != MatrixMagic {
		return nil, fmt.Errorf("read matrix8: magic %#x: %w", hdr.Magic, errdefs.ErrSchemaMismatch)
	}
	if hdr.Precision != PrecisionInt8 {
		return nil, fmt.Errorf("read matrix8: precision %d: %w", hdr.Precision, errdefs.ErrSchemaMismatch)
	}
	if hdr.Rows == 0 || hdr.Cols == 0 {
		return nil, fmt.Errorf("read matrix8: %dx%d: %w", hdr.Rows, hdr.Cols, errdefs.ErrInvalidShape)
	}
	var params [2]float32
	if err := binary.Read(r, binary.LittleEndian, &params); err != nil {
		return nil, fmt.Errorf("read matrix8 params: %w", errdefs.ErrIO)
	}
	q := &Matrix8{
		Rows:      int(hdr.Rows),
		Cols:      int(hdr.Cols),
		Data:      make([]int8, int(hdr.Rows)*int(hdr.Cols)),
		Scale:     params[0],
		ZeroPoint: params[1],
	}
	if err := binary.Read(r, binary.LittleEndian, q.Data); err != nil {
		return nil, fmt.Errorf("read matrix8 data: %w", errdefs.ErrIO)
	}
	return q, nil
}
