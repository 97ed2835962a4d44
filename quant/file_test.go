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
	"bytes"
	"errors"
	"testing"

	"github.com/TheLakeMan/tinyai/errdefs"
)

func TestMatrix4FileRoundTrip(t *testing.T) {
	m := &DenseMatrixF32{Rows: 3, Cols: 5, Data: make([]float32, 15)}
	for i := range m.Data {
		m.Data[i] = float32(i)*0.5 - 3
	}
	q, err := QuantizeAffine4(m)
	if err != nil {
		t.Fatalf("QuantizeAffine4: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteMatrix4(&buf, q); err != nil {
		t.Fatalf("WriteMatrix4: %v", err)
	}
	first := append([]byte(nil), buf.Bytes()...)

	back, err := ReadMatrix4(bytes.NewReader(first))
	if err != nil {
		t.Fatalf("ReadMatrix4: %v", err)
	}
	if back.Rows != q.Rows || back.Cols != q.Cols || back.Scale != q.Scale || back.ZeroPoint != q.ZeroPoint {
		t.Fatalf("header mismatch after round trip: %+v vs %+v", back, q)
	}
	if !bytes.Equal(back.Data, q.Data) {
		t.Fatal("packed data mismatch after round trip")
	}

	// Re-serialization is byte-for-byte identical.
	var buf2 bytes.Buffer
	if err := WriteMatrix4(&buf2, back); err != nil {
		t.Fatalf("WriteMatrix4 (second): %v", err)
	}
	if !bytes.Equal(first, buf2.Bytes()) {
		t.Fatal("serialized bytes differ after round trip")
	}
}

func TestMatrix4FileRejectsBlockScheme(t *testing.T) {
	m := &DenseMatrixF32{Rows: 2, Cols: 4, Data: []float32{1, 2, 3, 4, 5, 6, 7, 8}}
	q, err := QuantizeBlocked4(m, 4)
	if err != nil {
		t.Fatalf("QuantizeBlocked4: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteMatrix4(&buf, q); !errors.Is(err, errdefs.ErrNotImplemented) {
		t.Errorf("WriteMatrix4(block) = %v, want ErrNotImplemented", err)
	}
}

func TestReadMatrix4BadMagic(t *testing.T) {
	data := []byte{0xde, 0xad, 0xbe, 0xef, 2, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0}
	if _, err := ReadMatrix4(bytes.NewReader(data)); !errors.Is(err, errdefs.ErrSchemaMismatch) {
		t.Errorf("bad magic: %v, want ErrSchemaMismatch", err)
	}
}

func TestDenseFileRoundTrip(t *testing.T) {
	m := &DenseMatrixF32{Rows: 2, Cols: 3, Data: []float32{1.5, -2.5, 0, 4, 5.25, -6}}
	var buf bytes.Buffer
	if err := WriteDense(&buf, m); err != nil {
		t.Fatalf("WriteDense: %v", err)
	}
	back, err := ReadDense(&buf)
	if err != nil {
		t.Fatalf("ReadDense: %v", err)
	}
	if back.Rows != m.Rows || back.Cols != m.Cols {
		t.Fatalf("shape mismatch: %dx%d", back.Rows, back.Cols)
	}
	for i := range m.Data {
		if back.Data[i] != m.Data[i] {
			t.Errorf("elem %d: %v != %v", i, back.Data[i], m.Data[i])
		}
	}
}

func TestMatrix8FileRoundTrip(t *testing.T) {
	m := &DenseMatrixF32{Rows: 4, Cols: 4, Data: make([]float32, 16)}
	for i := range m.Data {
		m.Data[i] = float32(i * i)
	}
	q, err := QuantizeAffine8(m)
	if err != nil {
		t.Fatalf("QuantizeAffine8: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteMatrix8(&buf, q); err != nil {
		t.Fatalf("WriteMatrix8: %v", err)
	}
	back, err := ReadMatrix8(&buf)
	if err != nil {
		t.Fatalf("ReadMatrix8: %v", err)
	}
	if back.Scale != q.Scale || back.ZeroPoint != q.ZeroPoint {
		t.Fatal("params mismatch after round trip")
	}
	for i := range q.Data {
		if back.Data[i] != q.Data[i] {
			t.Errorf("code %d: %v != %v", i, back.Data[i], q.Data[i])
		}
	}
}
