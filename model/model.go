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

package model

import (
	"fmt"

	"github.com/TheLakeMan/tinyai/attention"
	"github.com/TheLakeMan/tinyai/errdefs"
	"github.com/TheLakeMan/tinyai/kernels"
	"github.com/TheLakeMan/tinyai/loader"
	"github.com/TheLakeMan/tinyai/logger"
	"github.com/TheLakeMan/tinyai/quant"
	"github.com/TheLakeMan/tinyai/vocab"
)

// Kind selects the model family.
type Kind uint32

const (
	KindRNN Kind = iota
	KindTransformer
)

func (k Kind) String() string {
	if k == KindRNN {
		return "rnn"
	}
	return "transformer"
}

// Model owns its layers and two ping-pong activation buffers; it does
// not own the tokenizer.
type Model struct {
	Kind        Kind
	HiddenSize  int
	ContextSize int
	Layers      []*Layer

	Vocab *vocab.Vocab

	buffers [2][]float32
	active  int
}

// New assembles a model from decoded architecture and weight records.
// The vocabulary is a non-owning reference and may be nil until
// generation. On any layer error the partially built model is
// discarded.
func New(arch *loader.Arch, weights []loader.LayerWeights, vb *vocab.Vocab) (*Model, error) {
	if arch == nil {
		return nil, fmt.Errorf("model: nil arch: %w", errdefs.ErrInvalidArgument)
	}
	if len(weights) != len(arch.Layers) {
		return nil, fmt.Errorf("model: %d weight records for %d layers: %w",
			len(weights), len(arch.Layers), errdefs.ErrSchemaMismatch)
	}
	if arch.HiddenSize == 0 || arch.ContextSize == 0 {
		return nil, fmt.Errorf("model: hidden %d context %d: %w",
			arch.HiddenSize, arch.ContextSize, errdefs.ErrInvalidShape)
	}

	m := &Model{
		Kind:        Kind(arch.ModelKind),
		HiddenSize:  int(arch.HiddenSize),
		ContextSize: int(arch.ContextSize),
		Vocab:       vb,
	}
	for i := range m.buffers {
		m.buffers[i] = make([]float32, m.ContextSize*m.HiddenSize)
	}

	for i, al := range arch.Layers {
		l, err := buildLayer(al, weights[i], m.HiddenSize, m.ContextSize)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		m.Layers = append(m.Layers, l)
	}
	logger.Log.Debug().
		Str("kind", m.Kind.String()).
		Int("layers", len(m.Layers)).
		Int("hidden", m.HiddenSize).
		Int("context", m.ContextSize).
		Msg("model assembled")
	return m, nil
}

// buildLayer converts one architecture/weights record pair.
func buildLayer(al loader.ArchLayer, lw loader.LayerWeights, hidden, context int) (*Layer, error) {
	kind := LayerKind(al.Kind)
	l := &Layer{
		Kind:       kind,
		InputSize:  int(al.InputSize),
		OutputSize: int(al.OutputSize),
		Activation: kernels.Activation(al.Activation),
		Weights:    lw.Weights,
		Bias:       lw.Bias,
	}

	switch kind {
	case LayerEmbedding:
		// The embedding table is stored in gather orientation: one row
		// per token id, hidden columns.
		l.Weights = &quant.Matrix4{
			Rows:      int(al.InputSize),
			Cols:      int(al.OutputSize),
			Scheme:    lw.Weights.Scheme,
			Data:      lw.Weights.Data,
			Scale:     lw.Weights.Scale,
			ZeroPoint: lw.Weights.ZeroPoint,
		}
		if l.OutputSize != hidden {
			return nil, fmt.Errorf("embedding width %d, hidden %d: %w", l.OutputSize, hidden, errdefs.ErrInvalidShape)
		}

	case LayerAttention:
		// Attention records stack the four projections (Q, K, V, output)
		// vertically into one (4*hidden, hidden) matrix; biases stack
		// the same way.
		if lw.Weights.Rows != 4*hidden || lw.Weights.Cols != hidden {
			return nil, fmt.Errorf("attention weights %dx%d, want %dx%d: %w",
				lw.Weights.Rows, lw.Weights.Cols, 4*hidden, hidden, errdefs.ErrInvalidShape)
		}
		attn, err := attention.New(attention.Params{
			SeqLen:   context,
			NumHeads: headsFor(hidden),
			HeadDim:  hidden / headsFor(hidden),
			Causal:   true,
		})
		if err != nil {
			return nil, err
		}
		mats := make([]*quant.Matrix4, 4)
		for i := range mats {
			mats[i], err = lw.Weights.SliceRows(i*hidden, hidden)
			if err != nil {
				return nil, err
			}
		}
		biases := make([][]float32, 4)
		if len(lw.Bias) == 4*hidden {
			for i := range biases {
				biases[i] = lw.Bias[i*hidden : (i+1)*hidden]
			}
		}
		if err := attn.SetWeights(mats[0], mats[1], mats[2], mats[3],
			biases[0], biases[1], biases[2], biases[3]); err != nil {
			return nil, err
		}
		l.Attn = attn

	case LayerDense, LayerRNN, LayerOutput:
		if lw.Weights.Rows != l.OutputSize || lw.Weights.Cols != l.InputSize {
			return nil, fmt.Errorf("%v weights %dx%d, want %dx%d: %w",
				kind, lw.Weights.Rows, lw.Weights.Cols, l.OutputSize, l.InputSize, errdefs.ErrInvalidShape)
		}

	case LayerLayerNorm:
		if len(lw.Bias) != 2*l.OutputSize {
			return nil, fmt.Errorf("layernorm bias %d, want %d: %w",
				len(lw.Bias), 2*l.OutputSize, errdefs.ErrInvalidShape)
		}

	default:
		return nil, fmt.Errorf("layer kind %d: %w", al.Kind, errdefs.ErrNotImplemented)
	}
	return l, nil
}

// headsFor picks the head count for a hidden size: the largest power of
// two up to 8 that divides it.
func headsFor(hidden int) int {
	for h := 8; h > 1; h /= 2 {
		if hidden%h == 0 && hidden/h > 0 {
			return h
		}
	}
	return 1
}

// VocabSize returns the output layer's logit width.
func (m *Model) VocabSize() int {
	for i := len(m.Layers) - 1; i >= 0; i-- {
		if m.Layers[i].Kind == LayerOutput {
			return m.Layers[i].OutputSize
		}
	}
	return 0
}

// Forward computes logits for the last position of ids (transformer) or
// for one step over the final id (rnn).
func (m *Model) Forward(ids []int, logits []float32) error {
	if len(ids) == 0 {
		return fmt.Errorf("forward: no input ids: %w", errdefs.ErrInvalidArgument)
	}
	vocabSize := m.VocabSize()
	if vocabSize == 0 {
		return fmt.Errorf("forward: model has no output layer: %w", errdefs.ErrInvalidShape)
	}
	if len(logits) < vocabSize {
		return fmt.Errorf("forward: logits %d, want %d: %w", len(logits), vocabSize, errdefs.ErrInvalidShape)
	}

	if m.Kind == KindRNN {
		return m.forwardStep(ids[len(ids)-1], logits)
	}
	return m.forwardBlock(ids, logits)
}

// forwardBlock is the transformer path: embed the window, run every
// middle layer over the block, then project the last position.
func (m *Model) forwardBlock(ids []int, logits []float32) error {
	s := len(ids)
	if s > m.ContextSize {
		ids = ids[s-m.ContextSize:]
		s = m.ContextSize
	}
	hidden := m.HiddenSize

	if len(m.Layers) == 0 || m.Layers[0].Kind != LayerEmbedding {
		return fmt.Errorf("forward: first layer must embed tokens: %w", errdefs.ErrInvalidShape)
	}
	embed := m.Layers[0]
	cur := m.buffers[m.active]
	for p, id := range ids {
		if id < 0 || id >= embed.Weights.Rows {
			return fmt.Errorf("forward: token id %d of %d: %w", id, embed.Weights.Rows, errdefs.ErrInvalidArgument)
		}
		if err := embed.Weights.DequantizeRow(id, cur[p*hidden:(p+1)*hidden]); err != nil {
			return fmt.Errorf("embedding gather: %w", err)
		}
	}

	for li := 1; li < len(m.Layers); li++ {
		l := m.Layers[li]
		if l.Kind == LayerOutput {
			// Logits come from the output projection of the final
			// position only.
			last := cur[(s-1)*hidden : s*hidden]
			if err := l.forwardPos(last, logits[:l.OutputSize]); err != nil {
				return fmt.Errorf("output layer: %w: %v", errdefs.ErrLayerFailure, err)
			}
			return nil
		}

		next := m.buffers[1-m.active]
		var err error
		switch l.Kind {
		case LayerAttention:
			err = l.Attn.ForwardSeq(cur, next, s)
		default:
			for p := 0; p < s; p++ {
				if err = l.forwardPos(cur[p*hidden:(p+1)*hidden], next[p*hidden:(p+1)*hidden]); err != nil {
					break
				}
			}
		}
		if err != nil {
			return fmt.Errorf("layer %d (%v): %w: %v", li, l.Kind, errdefs.ErrLayerFailure, err)
		}
		m.active = 1 - m.active
		cur = next
	}
	return fmt.Errorf("forward: no output layer reached: %w", errdefs.ErrInvalidShape)
}

// forwardStep is the rnn path: one token in, one logits vector out.
func (m *Model) forwardStep(id int, logits []float32) error {
	hidden := m.HiddenSize
	if len(m.Layers) == 0 || m.Layers[0].Kind != LayerEmbedding {
		return fmt.Errorf("forward: first layer must embed tokens: %w", errdefs.ErrInvalidShape)
	}
	embed := m.Layers[0]
	if id < 0 || id >= embed.Weights.Rows {
		return fmt.Errorf("forward: token id %d of %d: %w", id, embed.Weights.Rows, errdefs.ErrInvalidArgument)
	}

	cur := m.buffers[m.active][:hidden]
	if err := embed.Weights.DequantizeRow(id, cur); err != nil {
		return fmt.Errorf("embedding gather: %w", err)
	}

	for li := 1; li < len(m.Layers); li++ {
		l := m.Layers[li]
		if l.Kind == LayerOutput {
			if err := l.forwardPos(cur, logits[:l.OutputSize]); err != nil {
				return fmt.Errorf("output layer: %w: %v", errdefs.ErrLayerFailure, err)
			}
			return nil
		}
		if l.Kind == LayerAttention {
			return fmt.Errorf("attention in rnn model: %w", errdefs.ErrNotImplemented)
		}
		next := m.buffers[1-m.active][:l.OutputSize]
		if err := l.forwardPos(cur, next); err != nil {
			return fmt.Errorf("layer %d (%v): %w: %v", li, l.Kind, errdefs.ErrLayerFailure, err)
		}
		m.active = 1 - m.active
		cur = next
	}
	return fmt.Errorf("forward: no output layer reached: %w", errdefs.ErrInvalidShape)
}

// EnableActivationTables switches sigmoid, tanh, and GELU layers to
// table-driven evaluation over [-8, 8].
func (m *Model) EnableActivationTables() error {
	for _, l := range m.Layers {
		switch l.Activation {
		case kernels.ActivationSigmoid, kernels.ActivationTanh, kernels.ActivationGELU:
			tab, err := kernels.NewTable(l.Activation)
			if err != nil {
				return err
			}
			l.table = tab
		}
	}
	return nil
}

// ResetState clears recurrent layer state.
func (m *Model) ResetState() {
	for _, l := range m.Layers {
		l.ResetState()
	}
}
