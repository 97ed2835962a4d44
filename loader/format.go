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

// Package loader reads the two-file persisted model layout: an
// architecture file describing layer geometry and a weights file with
// the 4-bit packed matrices, plus a progressive loader that pages layer
// weights in and out under a byte budget.
package loader

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/TheLakeMan/tinyai/errdefs"
	"github.com/TheLakeMan/tinyai/quant"
)

// ModelMagic identifies both model files ("TNIM" little-endian).
const ModelMagic uint32 = 0x4D494E54

// FormatVersion is written into new files.
const FormatVersion uint32 = 1

// Model kinds in the architecture header.
const (
	KindRNN         uint32 = 0
	KindTransformer uint32 = 1
)

// ArchLayer is one layer record in the architecture file.
type ArchLayer struct {
	Kind       uint32
	InputSize  uint32
	OutputSize uint32
	Activation uint32
}

// Arch is the decoded architecture file.
type Arch struct {
	Version     uint32
	ModelKind   uint32
	HiddenSize  uint32
	ContextSize uint32
	Layers      []ArchLayer
}

// ReadArch decodes an architecture file.
func ReadArch(r io.Reader) (*Arch, error) {
	var hdr struct {
		Magic       uint32
		Version     uint32
		ModelKind   uint32
		HiddenSize  uint32
		ContextSize uint32
		LayerCount  uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read arch header: %w", errdefs.ErrIO)
	}
	if hdr.Magic != ModelMagic {
		return nil, fmt.Errorf("arch magic %#x: %w", hdr.Magic, errdefs.ErrSchemaMismatch)
	}
	a := &Arch{
		Version:     hdr.Version,
		ModelKind:   hdr.ModelKind,
		HiddenSize:  hdr.HiddenSize,
		ContextSize: hdr.ContextSize,
		Layers:      make([]ArchLayer, hdr.LayerCount),
	}
	if err := binary.Read(r, binary.LittleEndian, a.Layers); err != nil {
		return nil, fmt.Errorf("read arch layers: %w", errdefs.ErrIO)
	}
	return a, nil
}

// WriteArch encodes an architecture file.
func WriteArch(w io.Writer, a *Arch) error {
	if a == nil {
		return fmt.Errorf("write arch: %w", errdefs.ErrInvalidArgument)
	}
	hdr := struct {
		Magic       uint32
		Version     uint32
		ModelKind   uint32
		HiddenSize  uint32
		ContextSize uint32
		LayerCount  uint32
	}{ModelMagic, a.Version, a.ModelKind, a.HiddenSize, a.ContextSize, uint32(len(a.Layers))}
	if hdr.Version == 0 {
		hdr.Version = FormatVersion
	}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("write arch header: %w", errdefs.ErrIO)
	}
	if err := binary.Write(w, binary.LittleEndian, a.Layers); err != nil {
		return fmt.Errorf("write arch layers: %w", errdefs.ErrIO)
	}
	return nil
}

// LoadArch reads an architecture file from disk.
func LoadArch(path string) (*Arch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, errdefs.ErrIO)
	}
	defer f.Close()
	return ReadArch(f)
}

// LayerWeights is one decoded weights-file record: an affine 4-bit
// matrix of (OutputSize, InputSize) plus a bias vector.
type LayerWeights struct {
	Kind    uint32
	Weights *quant.Matrix4
	Bias    []float32
}

type weightsLayerHeader struct {
	Kind       uint32
	InputSize  uint32
	OutputSize uint32
}

// weightsRecordSize returns the encoded byte count of one layer record.
func weightsRecordSize(inputSize, outputSize int) int64 {
	return 12 + 8 + int64(quant.PackedLen(inputSize*outputSize)) + 4*int64(outputSize)
}

// ReadWeights decodes a weights file, cross-checking every layer record
// against the architecture.
func ReadWeights(r io.Reader, arch *Arch) ([]LayerWeights, error) {
	count, err := readWeightsHeader(r, arch)
	if err != nil {
		return nil, err
	}
	layers := make([]LayerWeights, count)
	for i := 0; i < count; i++ {
		lw, err := readWeightsRecord(r, arch.Layers[i])
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		layers[i] = *lw
	}
	return layers, nil
}

// readWeightsHeader validates the weights file header and returns the
// layer count.
func readWeightsHeader(r io.Reader, arch *Arch) (int, error) {
	var hdr struct {
		Magic      uint32
		Version    uint32
		LayerCount uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return 0, fmt.Errorf("read weights header: %w", errdefs.ErrIO)
	}
	if hdr.Magic != ModelMagic {
		return 0, fmt.Errorf("weights magic %#x: %w", hdr.Magic, errdefs.ErrSchemaMismatch)
	}
	if int(hdr.LayerCount) != len(arch.Layers) {
		return 0, fmt.Errorf("weights layer count %d, arch has %d: %w",
			hdr.LayerCount, len(arch.Layers), errdefs.ErrSchemaMismatch)
	}
	return int(hdr.LayerCount), nil
}

// readWeightsRecord decodes one layer record and checks it against the
// architecture entry.
func readWeightsRecord(r io.Reader, al ArchLayer) (*LayerWeights, error) {
	var lh weightsLayerHeader
	if err := binary.Read(r, binary.LittleEndian, &lh); err != nil {
		return nil, fmt.Errorf("read layer header: %w", errdefs.ErrIO)
	}
	if lh.Kind != al.Kind || lh.InputSize != al.InputSize || lh.OutputSize != al.OutputSize {
		return nil, fmt.Errorf("weights record %+v vs arch %+v: %w", lh, al, errdefs.ErrSchemaMismatch)
	}
	var params [2]float32
	if err := binary.Read(r, binary.LittleEndian, &params); err != nil {
		return nil, fmt.Errorf("read layer params: %w", errdefs.ErrIO)
	}
	in, out := int(lh.InputSize), int(lh.OutputSize)
	m := &quant.Matrix4{
		Rows:      out,
		Cols:      in,
		Scheme:    quant.SchemeAffine,
		Data:      make([]byte, quant.PackedLen(in*out)),
		Scale:     params[0],
		ZeroPoint: params[1],
	}
	if _, err := io.ReadFull(r, m.Data); err != nil {
		return nil, fmt.Errorf("read packed weights: %w", errdefs.ErrIO)
	}
	bias := make([]float32, out)
	if err := binary.Read(r, binary.LittleEndian, bias); err != nil {
		return nil, fmt.Errorf("read biases: %w", errdefs.ErrIO)
	}
	return &LayerWeights{Kind: lh.Kind, Weights: m, Bias: bias}, nil
}

// WriteWeights encodes a weights file for the architecture.
func WriteWeights(w io.Writer, arch *Arch, layers []LayerWeights) error {
	if arch == nil || len(layers) != len(arch.Layers) {
		return fmt.Errorf("write weights: %d layers for %d arch entries: %w",
			len(layers), len(arch.Layers), errdefs.ErrInvalidArgument)
	}
	hdr := struct {
		Magic      uint32
		Version    uint32
		LayerCount uint32
	}{ModelMagic, FormatVersion, uint32(len(layers))}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("write weights header: %w", errdefs.ErrIO)
	}
	for i, lw := range layers {
		al := arch.Layers[i]
		if lw.Weights == nil || lw.Weights.Rows != int(al.OutputSize) || lw.Weights.Cols != int(al.InputSize) {
			return fmt.Errorf("layer %d weights do not match arch: %w", i, errdefs.ErrInvalidShape)
		}
		if len(lw.Bias) != int(al.OutputSize) {
			return fmt.Errorf("layer %d bias %d, want %d: %w", i, len(lw.Bias), al.OutputSize, errdefs.ErrInvalidShape)
		}
		lh := weightsLayerHeader{Kind: al.Kind, InputSize: al.InputSize, OutputSize: al.OutputSize}
		if err := binary.Write(w, binary.LittleEndian, lh); err != nil {
			return fmt.Errorf("write layer %d header: %w", i, errdefs.ErrIO)
		}
		if err := binary.Write(w, binary.LittleEndian, [2]float32{lw.Weights.Scale, lw.Weights.ZeroPoint}); err != nil {
			return fmt.Errorf("write layer %d params: %w", i, errdefs.ErrIO)
		}
		if _, err := w.Write(lw.Weights.Data); err != nil {
			return fmt.Errorf("write layer %d weights: %w", i, errdefs.ErrIO)
		}
		if err := binary.Write(w, binary.LittleEndian, lw.Bias); err != nil {
			return fmt.Errorf("write layer %d bias: %w", i, errdefs.ErrIO)
		}
	}
	return nil
}
