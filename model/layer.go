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

// Package model wires tokens through embeddings, the layer loop, and
// the output projection, and samples the next token from the resulting
// logits.
package model

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/TheLakeMan/tinyai/attention"
	"github.com/TheLakeMan/tinyai/errdefs"
	"github.com/TheLakeMan/tinyai/kernels"
	"github.com/TheLakeMan/tinyai/quant"
)

// LayerKind enumerates the supported layer variants.
type LayerKind uint32

const (
	LayerEmbedding LayerKind = iota
	LayerDense
	LayerRNN
	LayerAttention
	LayerLayerNorm
	LayerOutput
)

func (k LayerKind) String() string {
	switch k {
	case LayerEmbedding:
		return "embedding"
	case LayerDense:
		return "dense"
	case LayerRNN:
		return "rnn"
	case LayerAttention:
		return "attention"
	case LayerLayerNorm:
		return "layernorm"
	case LayerOutput:
		return "output"
	}
	return "unknown"
}

const layerNormEpsilon = 1e-5

// Layer is one model layer. Each variant uses only the fields its kind
// needs:
//
//   - embedding: Weights as a (vocab, hidden) row gather table
//   - dense/output: Weights (out, in) plus optional Bias and Activation
//   - rnn: dense recurrence with a hidden state of OutputSize elements
//   - attention: Attn, built from a (4*hidden, hidden) stacked record
//   - layernorm: Bias packs scale then shift, hidden elements each
type Layer struct {
	Kind       LayerKind
	InputSize  int
	OutputSize int
	Activation kernels.Activation

	Weights *quant.Matrix4
	Bias    []float32

	Attn  *attention.SelfAttention
	state []float32      // rnn hidden state
	table *kernels.Table // optional table-driven activation
}

// forwardPos applies the layer to a single position vector. Attention
// layers are handled at the block level by the model loop and reject
// per-position application.
func (l *Layer) forwardPos(in, out []float32) error {
	switch l.Kind {
	case LayerDense, LayerOutput:
		if err := kernels.MatMulQ4Vec(out, l.Weights, in); err != nil {
			return err
		}
		if l.Bias != nil {
			if err := kernels.BiasAddInPlace(out, l.Bias); err != nil {
				return err
			}
		}
		return l.activate(out)

	case LayerRNN:
		if err := kernels.MatMulQ4Vec(out, l.Weights, in); err != nil {
			return err
		}
		if l.Bias != nil {
			if err := kernels.BiasAddInPlace(out, l.Bias); err != nil {
				return err
			}
		}
		if l.state == nil {
			l.state = make([]float32, l.OutputSize)
		}
		if err := kernels.VecAdd(out, out, l.state); err != nil {
			return err
		}
		if err := l.activate(out); err != nil {
			return err
		}
		copy(l.state, out)
		return nil

	case LayerLayerNorm:
		return l.layerNorm(in, out)

	default:
		return fmt.Errorf("layer %v per-position forward: %w", l.Kind, errdefs.ErrNotImplemented)
	}
}

// layerNorm normalizes over the last dimension with epsilon 1e-5 and
// applies the learned scale and shift packed into the bias field (first
// half scale, second half shift).
func (l *Layer) layerNorm(in, out []float32) error {
	n := l.OutputSize
	if len(l.Bias) != 2*n {
		return fmt.Errorf("layernorm bias %d, want %d: %w", len(l.Bias), 2*n, errdefs.ErrInvalidShape)
	}
	var mean float32
	for _, x := range in[:n] {
		mean += x
	}
	mean /= float32(n)
	var variance float32
	for _, x := range in[:n] {
		d := x - mean
		variance += d * d
	}
	variance /= float32(n)

	inv := 1 / math32.Sqrt(variance+layerNormEpsilon)
	scale, shift := l.Bias[:n], l.Bias[n:2*n]
	for i := 0; i < n; i++ {
		out[i] = (in[i]-mean)*inv*scale[i] + shift[i]
	}
	return nil
}

// activate applies the layer activation, through the lookup table when
// one is installed.
func (l *Layer) activate(vec []float32) error {
	if l.table != nil {
		return l.table.ActivateInPlaceTable(vec)
	}
	return kernels.ActivateInPlace(vec, l.Activation)
}

// ResetState clears recurrent state.
func (l *Layer) ResetState() {
	for i := range l.state {
		l.state[i] = 0
	}
}
