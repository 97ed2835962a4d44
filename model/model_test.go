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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheLakeMan/tinyai/loader"
	"github.com/TheLakeMan/tinyai/quant"
	"github.com/TheLakeMan/tinyai/vocab"
)

const (
	testVocab  = 8
	testHidden = 4
)

func quantized(t *testing.T, rows, cols int, seed int) *quant.Matrix4 {
	t.Helper()
	m := &quant.DenseMatrixF32{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}
	for i := range m.Data {
		m.Data[i] = float32(math.Sin(float64(i+seed)*0.9)) * 0.5
	}
	q, err := quant.QuantizeAffine4(m)
	require.NoError(t, err)
	return q
}

// testTransformer builds embedding -> attention -> layernorm -> output.
func testTransformer(t *testing.T) *Model {
	t.Helper()
	arch := &loader.Arch{
		Version:     loader.FormatVersion,
		ModelKind:   uint32(KindTransformer),
		HiddenSize:  testHidden,
		ContextSize: 6,
		Layers: []loader.ArchLayer{
			{Kind: uint32(LayerEmbedding), InputSize: testVocab, OutputSize: testHidden},
			{Kind: uint32(LayerAttention), InputSize: testHidden, OutputSize: 4 * testHidden},
			{Kind: uint32(LayerLayerNorm), InputSize: testHidden, OutputSize: testHidden},
			{Kind: uint32(LayerOutput), InputSize: testHidden, OutputSize: testVocab},
		},
	}

	lnBias := make([]float32, 2*testHidden)
	for i := 0; i < testHidden; i++ {
		lnBias[i] = 1 // scale
	}
	weights := []loader.LayerWeights{
		{Kind: arch.Layers[0].Kind, Weights: quantized(t, testHidden, testVocab, 1), Bias: make([]float32, testHidden)},
		{Kind: arch.Layers[1].Kind, Weights: quantized(t, 4*testHidden, testHidden, 2), Bias: make([]float32, 4*testHidden)},
		{Kind: arch.Layers[2].Kind, Weights: quantized(t, testHidden, testHidden, 3), Bias: lnBias},
		{Kind: arch.Layers[3].Kind, Weights: quantized(t, testVocab, testHidden, 4), Bias: make([]float32, testVocab)},
	}

	vb := vocab.New()
	for _, tok := range []string{"a", "b", "c", "d"} {
		vb.Add(tok, 1)
	}

	m, err := New(arch, weights, vb)
	require.NoError(t, err)
	return m
}

func TestForwardDeterministic(t *testing.T) {
	m := testTransformer(t)
	ids := []int{4, 5, 6}

	a := make([]float32, testVocab)
	require.NoError(t, m.Forward(ids, a))

	b := make([]float32, testVocab)
	require.NoError(t, m.Forward(ids, b))
	assert.Equal(t, a, b, "same prompt must give identical logits")
}

func TestForwardRejectsBadToken(t *testing.T) {
	m := testTransformer(t)
	err := m.Forward([]int{testVocab + 1}, make([]float32, testVocab))
	assert.Error(t, err)
}

func TestForwardWindowsLongPrompt(t *testing.T) {
	m := testTransformer(t)
	long := make([]int, 20)
	for i := range long {
		long[i] = i % testVocab
	}
	logits := make([]float32, testVocab)
	require.NoError(t, m.Forward(long, logits))

	// Only the trailing context window matters.
	windowed := long[len(long)-m.ContextSize:]
	logits2 := make([]float32, testVocab)
	require.NoError(t, m.Forward(windowed, logits2))
	assert.Equal(t, logits2, logits)
}

func TestGenerateGreedyDeterministic(t *testing.T) {
	m := testTransformer(t)
	params := GenerationParams{MaxTokens: 8, Method: SampleGreedy, Seed: 9}

	a, err := m.Generate([]int{4, 5}, params)
	require.NoError(t, err)
	b, err := m.Generate([]int{4, 5}, params)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.LessOrEqual(t, len(a), params.MaxTokens)
	assert.Equal(t, []int{4, 5}, a[:2], "prompt must be preserved")
}

func TestGenerateEmptyPromptStartsWithBOS(t *testing.T) {
	m := testTransformer(t)
	out, err := m.Generate(nil, GenerationParams{MaxTokens: 4, Method: SampleGreedy, Seed: 1})
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, vocab.BOS, out[0])
}

// testRNN builds embedding -> rnn -> output.
func testRNN(t *testing.T) *Model {
	t.Helper()
	arch := &loader.Arch{
		Version:     loader.FormatVersion,
		ModelKind:   uint32(KindRNN),
		HiddenSize:  testHidden,
		ContextSize: 6,
		Layers: []loader.ArchLayer{
			{Kind: uint32(LayerEmbedding), InputSize: testVocab, OutputSize: testHidden},
			{Kind: uint32(LayerRNN), InputSize: testHidden, OutputSize: testHidden, Activation: 3},
			{Kind: uint32(LayerOutput), InputSize: testHidden, OutputSize: testVocab},
		},
	}
	weights := []loader.LayerWeights{
		{Kind: arch.Layers[0].Kind, Weights: quantized(t, testHidden, testVocab, 5), Bias: make([]float32, testHidden)},
		{Kind: arch.Layers[1].Kind, Weights: quantized(t, testHidden, testHidden, 6), Bias: make([]float32, testHidden)},
		{Kind: arch.Layers[2].Kind, Weights: quantized(t, testVocab, testHidden, 7), Bias: make([]float32, testVocab)},
	}
	m, err := New(arch, weights, nil)
	require.NoError(t, err)
	return m
}

func TestRNNStateAdvances(t *testing.T) {
	m := testRNN(t)
	a := make([]float32, testVocab)
	require.NoError(t, m.Forward([]int{4}, a))

	b := make([]float32, testVocab)
	require.NoError(t, m.Forward([]int{4}, b))
	assert.NotEqual(t, a, b, "recurrent state should change the second step")

	m.ResetState()
	c := make([]float32, testVocab)
	require.NoError(t, m.Forward([]int{4}, c))
	assert.Equal(t, a, c, "reset must restore the initial step")
}

func TestNewRejectsMismatchedWeights(t *testing.T) {
	arch := &loader.Arch{
		ModelKind:   uint32(KindTransformer),
		HiddenSize:  testHidden,
		ContextSize: 4,
		Layers: []loader.ArchLayer{
			{Kind: uint32(LayerEmbedding), InputSize: testVocab, OutputSize: testHidden},
		},
	}
	_, err := New(arch, nil, nil)
	assert.Error(t, err)
}
