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

// Package attention implements multi-head self-attention over the
// quantized kernel bank: Q/K/V projection, scaled dot-product scores,
// row softmax, context accumulation, and output projection.
package attention

import (
	"fmt"
	"math"

	"github.com/chewxy/math32"

	"github.com/TheLakeMan/tinyai/errdefs"
	"github.com/TheLakeMan/tinyai/kernels"
	"github.com/TheLakeMan/tinyai/quant"
)

// Params fixes the attention geometry for one SelfAttention instance.
type Params struct {
	Batch     int
	SeqLen    int
	NumHeads  int
	HeadDim   int
	HiddenDim int
	Causal    bool
	// Scale multiplies every score; zero selects 1/sqrt(HeadDim).
	Scale float32
}

func (p *Params) validate() error {
	if p.SeqLen <= 0 || p.NumHeads <= 0 || p.HeadDim <= 0 {
		return fmt.Errorf("attention params %+v: %w", *p, errdefs.ErrInvalidArgument)
	}
	if p.Batch <= 0 {
		p.Batch = 1
	}
	if p.HiddenDim == 0 {
		p.HiddenDim = p.NumHeads * p.HeadDim
	}
	if p.HiddenDim != p.NumHeads*p.HeadDim {
		return fmt.Errorf("hidden %d != heads %d * dim %d: %w",
			p.HiddenDim, p.NumHeads, p.HeadDim, errdefs.ErrInvalidShape)
	}
	if p.Scale == 0 {
		p.Scale = 1 / math32.Sqrt(float32(p.HeadDim))
	}
	return nil
}

// SelfAttention owns four quantized projection matrices, their optional
// biases, and a scratch arena partitioned into six regions in the fixed
// order Q, K, V, scores, softmax, context. The arena is allocated once
// at construction; between Forward calls its contents are undefined.
type SelfAttention struct {
	params Params

	wq, wk, wv, wo *quant.Matrix4
	bq, bk, bv, bo []float32

	arena []float32
	// Region views into arena.
	q, k, v []float32
	scores  []float32
	softmax []float32
	context []float32
}

// New allocates a SelfAttention with its scratch arena sized
// 3*S*hidden + 2*H*S*S + S*hidden float32 elements.
func New(params Params) (*SelfAttention, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	s, h, hidden := params.SeqLen, params.NumHeads, params.HiddenDim
	total := 3*s*hidden + 2*h*s*s + s*hidden
	arena := make([]float32, total)

	a := &SelfAttention{params: params, arena: arena}
	off := 0
	cut := func(n int) []float32 {
		region := arena[off : off+n : off+n]
		off += n
		return region
	}
	a.q = cut(s * hidden)
	a.k = cut(s * hidden)
	a.v = cut(s * hidden)
	a.scores = cut(h * s * s)
	a.softmax = cut(h * s * s)
	a.context = cut(s * hidden)
	return a, nil
}

// Params returns the geometry the instance was built with.
func (a *SelfAttention) Params() Params { return a.params }

// SetWeights installs the four projection matrices and optional biases.
// Every matrix must be (hidden, hidden) and every non-nil bias must have
// hidden elements; on any mismatch nothing is retained.
func (a *SelfAttention) SetWeights(wq, wk, wv, wo *quant.Matrix4, bq, bk, bv, bo []float32) error {
	hidden := a.params.HiddenDim
	check := func(name string, w *quant.Matrix4, b []float32) error {
		if w == nil {
			return fmt.Errorf("%s projection missing: %w", name, errdefs.ErrInvalidArgument)
		}
		if w.Rows != hidden || w.Cols != hidden {
			return fmt.Errorf("%s projection %dx%d, want %dx%d: %w",
				name, w.Rows, w.Cols, hidden, hidden, errdefs.ErrInvalidShape)
		}
		if b != nil && len(b) != hidden {
			return fmt.Errorf("%s bias %d, want %d: %w", name, len(b), hidden, errdefs.ErrInvalidShape)
		}
		return nil
	}

	for _, c := range []struct {
		name string
		w    *quant.Matrix4
		b    []float32
	}{{"query", wq, bq}, {"key", wk, bk}, {"value", wv, bv}, {"output", wo, bo}} {
		if err := check(c.name, c.w, c.b); err != nil {
			a.wq, a.wk, a.wv, a.wo = nil, nil, nil, nil
			a.bq, a.bk, a.bv, a.bo = nil, nil, nil, nil
			return err
		}
	}

	a.wq, a.wk, a.wv, a.wo = wq, wk, wv, wo
	a.bq, a.bk, a.bv, a.bo = bq, bk, bv, bo
	return nil
}

// Forward runs attention over x, an (S, hidden) row-major activation
// block, writing an (S, hidden) result into out.
func (a *SelfAttention) Forward(x, out []float32) error {
	return a.ForwardSeq(x, out, a.params.SeqLen)
}

// ForwardSeq runs attention over the first s positions only. s must not
// exceed the sequence length the arena was sized for.
func (a *SelfAttention) ForwardSeq(x, out []float32, s int) error {
	if a.wq == nil {
		return fmt.Errorf("attention forward: weights not set: %w", errdefs.ErrInvalidArgument)
	}
	h, d, hidden := a.params.NumHeads, a.params.HeadDim, a.params.HiddenDim
	if s <= 0 || s > a.params.SeqLen {
		return fmt.Errorf("attention forward: seq %d of %d: %w", s, a.params.SeqLen, errdefs.ErrInvalidShape)
	}
	if len(x) < s*hidden || len(out) < s*hidden {
		return fmt.Errorf("attention forward: x %d out %d, want %d: %w",
			len(x), len(out), s*hidden, errdefs.ErrInvalidShape)
	}

	// Projection into the first three arena regions.
	if err := a.project(x, a.wq, a.bq, a.q, s); err != nil {
		return fmt.Errorf("query projection: %w", err)
	}
	if err := a.project(x, a.wk, a.bk, a.k, s); err != nil {
		return fmt.Errorf("key projection: %w", err)
	}
	if err := a.project(x, a.wv, a.bv, a.v, s); err != nil {
		return fmt.Errorf("value projection: %w", err)
	}

	// Scores: scale * <Q[i,h,:], K[j,h,:]>, causal slots skipped.
	negInf := float32(math.Inf(-1))
	scale := a.params.Scale
	for head := 0; head < h; head++ {
		base := head * s * s
		hOff := head * d
		for i := 0; i < s; i++ {
			qRow := a.q[i*hidden+hOff : i*hidden+hOff+d]
			for j := 0; j < s; j++ {
				if a.params.Causal && j > i {
					a.scores[base+i*s+j] = negInf
					continue
				}
				kRow := a.k[j*hidden+hOff : j*hidden+hOff+d]
				var sum float32
				for p := 0; p < d; p++ {
					sum += qRow[p] * kRow[p]
				}
				a.scores[base+i*s+j] = scale * sum
			}
		}
	}

	// Row softmax into the softmax region.
	copy(a.softmax[:h*s*s], a.scores[:h*s*s])
	for head := 0; head < h; head++ {
		base := head * s * s
		for i := 0; i < s; i++ {
			if err := kernels.SoftmaxRow(a.softmax[base+i*s : base+(i+1)*s]); err != nil {
				return fmt.Errorf("softmax head %d row %d: %w: %v", head, i, errdefs.ErrKernelFailure, err)
			}
		}
	}

	// Context: weighted sum of value rows.
	for i := 0; i < s*hidden; i++ {
		a.context[i] = 0
	}
	for head := 0; head < h; head++ {
		base := head * s * s
		hOff := head * d
		for i := 0; i < s; i++ {
			ctx := a.context[i*hidden+hOff : i*hidden+hOff+d]
			for j := 0; j < s; j++ {
				p := a.softmax[base+i*s+j]
				if p == 0 {
					continue
				}
				vRow := a.v[j*hidden+hOff : j*hidden+hOff+d]
				for q := 0; q < d; q++ {
					ctx[q] += p * vRow[q]
				}
			}
		}
	}

	// Output projection.
	for i := 0; i < s; i++ {
		row := out[i*hidden : (i+1)*hidden]
		if err := kernels.MatMulQ4Vec(row, a.wo, a.context[i*hidden:(i+1)*hidden]); err != nil {
			return fmt.Errorf("output projection row %d: %w: %v", i, errdefs.ErrKernelFailure, err)
		}
		if a.bo != nil {
			if err := kernels.BiasAddInPlace(row, a.bo); err != nil {
				return fmt.Errorf("output bias row %d: %w: %v", i, errdefs.ErrKernelFailure, err)
			}
		}
	}
	return nil
}

// project applies one quantized projection per sequence position.
func (a *SelfAttention) project(x []float32, w *quant.Matrix4, bias, dst []float32, s int) error {
	hidden := a.params.HiddenDim
	for i := 0; i < s; i++ {
		row := dst[i*hidden : (i+1)*hidden]
		if err := kernels.MatMulQ4Vec(row, w, x[i*hidden:(i+1)*hidden]); err != nil {
			return fmt.Errorf("%w: %v", errdefs.ErrKernelFailure, err)
		}
		if bias != nil {
			if err := kernels.BiasAddInPlace(row, bias); err != nil {
				return fmt.Errorf("%w: %v", errdefs.ErrKernelFailure, err)
			}
		}
	}
	return nil
}
