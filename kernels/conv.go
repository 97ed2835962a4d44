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
	"fmt"

	"github.com/TheLakeMan/tinyai/errdefs"
	"github.com/TheLakeMan/tinyai/quant"
)

// ConvParams describes a 2D convolution. Input is (CIn, H, W) row-major,
// output is (COut, HOut, WOut).
type ConvParams struct {
	CIn, H, W        int
	COut, KH, KW     int
	StrideH, StrideW int
	PadH, PadW       int
}

// OutSize returns (HOut, WOut) for the parameters.
func (p ConvParams) OutSize() (int, int) {
	hout := (p.H+2*p.PadH-p.KH)/p.StrideH + 1
	wout := (p.W+2*p.PadW-p.KW)/p.StrideW + 1
	return hout, wout
}

func (p ConvParams) validate(depthwise bool) error {
	if p.CIn <= 0 || p.H <= 0 || p.W <= 0 || p.KH <= 0 || p.KW <= 0 {
		return fmt.Errorf("conv: dims %+v: %w", p, errdefs.ErrInvalidShape)
	}
	if p.StrideH <= 0 || p.StrideW <= 0 || p.PadH < 0 || p.PadW < 0 {
		return fmt.Errorf("conv: stride/pad %+v: %w", p, errdefs.ErrInvalidArgument)
	}
	if !depthwise && p.COut <= 0 {
		return fmt.Errorf("conv: cout %d: %w", p.COut, errdefs.ErrInvalidShape)
	}
	hout, wout := p.OutSize()
	if hout <= 0 || wout <= 0 {
		return fmt.Errorf("conv: empty output %dx%d: %w", hout, wout, errdefs.ErrInvalidShape)
	}
	return nil
}

// Conv2DQ4 computes a 2D convolution with 4-bit quantized weights. The
// weight matrix is (COut, CIn*KH*KW): one dequantized row per output
// channel, laid out (cin, kh, kw). Out-of-bounds taps read zero.
func Conv2DQ4(out, in []float32, w *quant.Matrix4, p ConvParams) error {
	if out == nil || in == nil || w == nil {
		return fmt.Errorf("conv2d q4: nil argument: %w", errdefs.ErrInvalidArgument)
	}
	if err := p.validate(false); err != nil {
		return err
	}
	patch := p.CIn * p.KH * p.KW
	if w.Rows != p.COut || w.Cols != patch {
		return fmt.Errorf("conv2d q4: weights %dx%d, want %dx%d: %w",
			w.Rows, w.Cols, p.COut, patch, errdefs.ErrInvalidShape)
	}
	hout, wout := p.OutSize()
	if len(in) < p.CIn*p.H*p.W || len(out) < p.COut*hout*wout {
		return fmt.Errorf("conv2d q4: buffers %d/%d: %w", len(in), len(out), errdefs.ErrInvalidShape)
	}

	kRow := make([]float32, patch)
	for oc := 0; oc < p.COut; oc++ {
		if err := w.DequantizeRow(oc, kRow); err != nil {
			return fmt.Errorf("conv2d q4 channel %d: %w", oc, err)
		}
		outBase := oc * hout * wout
		for oy := 0; oy < hout; oy++ {
			iy0 := oy*p.StrideH - p.PadH
			for ox := 0; ox < wout; ox++ {
				ix0 := ox*p.StrideW - p.PadW
				var acc float32
				for ic := 0; ic < p.CIn; ic++ {
					inBase := ic * p.H * p.W
					kBase := ic * p.KH * p.KW
					for ky := 0; ky < p.KH; ky++ {
						iy := iy0 + ky
						if iy < 0 || iy >= p.H {
							continue
						}
						for kx := 0; kx < p.KW; kx++ {
							ix := ix0 + kx
							if ix < 0 || ix >= p.W {
								continue
							}
							acc += kRow[kBase+ky*p.KW+kx] * in[inBase+iy*p.W+ix]
						}
					}
				}
				out[outBase+oy*wout+ox] = acc
			}
		}
	}
	return nil
}

// DepthwiseConv2DQ4 convolves each channel with its own (KH, KW) kernel.
// The weight matrix is (CIn, KH*KW); COut in the params is ignored and
// treated as CIn.
func DepthwiseConv2DQ4(out, in []float32, w *quant.Matrix4, p ConvParams) error {
	if out == nil || in == nil || w == nil {
		return fmt.Errorf("depthwise conv2d q4: nil argument: %w", errdefs.ErrInvalidArgument)
	}
	if err := p.validate(true); err != nil {
		return err
	}
	if w.Rows != p.CIn || w.Cols != p.KH*p.KW {
		return fmt.Errorf("depthwise conv2d q4: weights %dx%d, want %dx%d: %w",
			w.Rows, w.Cols, p.CIn, p.KH*p.KW, errdefs.ErrInvalidShape)
	}
	hout, wout := p.OutSize()
	if len(in) < p.CIn*p.H*p.W || len(out) < p.CIn*hout*wout {
		return fmt.Errorf("depthwise conv2d q4: buffers %d/%d: %w", len(in), len(out), errdefs.ErrInvalidShape)
	}

	kRow := make([]float32, p.KH*p.KW)
	for c := 0; c < p.CIn; c++ {
		if err := w.DequantizeRow(c, kRow); err != nil {
			return fmt.Errorf("depthwise conv2d q4 channel %d: %w", c, err)
		}
		inBase := c * p.H * p.W
		outBase := c * hout * wout
		for oy := 0; oy < hout; oy++ {
			iy0 := oy*p.StrideH - p.PadH
			for ox := 0; ox < wout; ox++ {
				ix0 := ox*p.StrideW - p.PadW
				var acc float32
				for ky := 0; ky < p.KH; ky++ {
					iy := iy0 + ky
					if iy < 0 || iy >= p.H {
						continue
					}
					for kx := 0; kx < p.KW; kx++ {
						ix := ix0 + kx
						if ix < 0 || ix >= p.W {
							continue
						}
						acc += kRow[ky*p.KW+kx] * in[inBase+iy*p.W+ix]
					}
				}
				out[outBase+oy*wout+ox] = acc
			}
		}
	}
	return nil
}
