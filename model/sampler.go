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
	"math"
	"sort"
	"time"

	"github.com/TheLakeMan/tinyai/errdefs"
)

// SamplingMethod selects how the next token is drawn from the logits.
type SamplingMethod uint8

const (
	SampleGreedy SamplingMethod = iota
	SampleTemperature
	SampleTopK
	SampleTopP
)

func (s SamplingMethod) String() string {
	switch s {
	case SampleGreedy:
		return "greedy"
	case SampleTemperature:
		return "temperature"
	case SampleTopK:
		return "top-k"
	case SampleTopP:
		return "top-p"
	}
	return "unknown"
}

// ParseSamplingMethod maps a CLI name to a method.
func ParseSamplingMethod(name string) (SamplingMethod, error) {
	switch name {
	case "greedy":
		return SampleGreedy, nil
	case "temperature":
		return SampleTemperature, nil
	case "top-k", "topk":
		return SampleTopK, nil
	case "top-p", "topp":
		return SampleTopP, nil
	}
	return 0, fmt.Errorf("sampling method %q: %w", name, errdefs.ErrInvalidArgument)
}

// GenerationParams bundles everything the generation loop needs.
type GenerationParams struct {
	MaxTokens   int
	Method      SamplingMethod
	Temperature float32
	TopK        int
	TopP        float32
	Seed        uint32
}

const (
	lcgMultiplier          = 1664525
	lcgIncrement           = 1013904223
	temperatureEps float32 = 1e-6
)

// SamplerState is a deterministic linear congruential generator threaded
// explicitly through sampling.
type SamplerState struct {
	state uint32
}

// NewSampler seeds the generator. A zero seed draws from the wall
// clock.
func NewSampler(seed uint32) *SamplerState {
	if seed == 0 {
		seed = uint32(time.Now().UnixNano())
	}
	return &SamplerState{state: seed}
}

// Next returns the next value in [0, 1).
func (s *SamplerState) Next() float32 {
	s.state = s.state*lcgMultiplier + lcgIncrement
	return float32(s.state&0x7FFFFFFF) / float32(1<<31)
}

// Sample draws a token index from logits according to the params. The
// logits slice is not modified.
func Sample(logits []float32, params GenerationParams, st *SamplerState) (int, error) {
	if len(logits) == 0 {
		return 0, fmt.Errorf("sample: empty logits: %w", errdefs.ErrInvalidArgument)
	}
	if st == nil {
		return 0, fmt.Errorf("sample: nil sampler state: %w", errdefs.ErrInvalidArgument)
	}

	probs := softmaxWithTemperature(logits, params.Temperature)

	switch params.Method {
	case SampleGreedy:
		return argmax(probs), nil

	case SampleTemperature:
		return inverseCDF(probs, st.Next()), nil

	case SampleTopK:
		k := params.TopK
		if k <= 0 {
			return 0, fmt.Errorf("sample: top-k %d: %w", k, errdefs.ErrInvalidArgument)
		}
		if k >= len(probs) {
			return inverseCDF(probs, st.Next()), nil
		}
		idx := sortedByProb(probs)
		kept := idx[:k]
		return sampleSubset(probs, kept, st), nil

	case SampleTopP:
		p := params.TopP
		if p < 0 || p > 1 {
			return 0, fmt.Errorf("sample: top-p %v: %w", p, errdefs.ErrInvalidArgument)
		}
		idx := sortedByProb(probs)
		if p >= 1 {
			return inverseCDF(probs, st.Next()), nil
		}
		// Keep the smallest prefix reaching cumulative mass p; the top
		// token alone always qualifies when it exceeds p.
		var cum float64
		cut := len(idx)
		for i, id := range idx {
			cum += probs[id]
			if cum >= float64(p) {
				cut = i + 1
				break
			}
		}
		return sampleSubset(probs, idx[:cut], st), nil
	}
	return 0, fmt.Errorf("sample: method %d: %w", params.Method, errdefs.ErrInvalidArgument)
}

// softmaxWithTemperature returns stable softmax probabilities of
// logits/T. Non-positive temperatures are forced to 1.
func softmaxWithTemperature(logits []float32, temperature float32) []float64 {
	t := temperature
	if t <= 0 {
		t = 1
	}
	if t < temperatureEps {
		t = temperatureEps
	}

	scaled := make([]float64, len(logits))
	maxVal := math.Inf(-1)
	for i, l := range logits {
		scaled[i] = float64(l) / float64(t)
		if scaled[i] > maxVal {
			maxVal = scaled[i]
		}
	}
	var sum float64
	for i := range scaled {
		scaled[i] = math.Exp(scaled[i] - maxVal)
		sum += scaled[i]
	}
	for i := range scaled {
		scaled[i] /= sum
	}
	return scaled
}

// argmax returns the first index of the maximum probability.
func argmax(probs []float64) int {
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return best
}

// inverseCDF walks the cumulative distribution to r.
func inverseCDF(probs []float64, r float32) int {
	var cum float64
	for i, p := range probs {
		cum += p
		if float64(r) < cum {
			return i
		}
	}
	return len(probs) - 1
}

// sortedByProb returns indices ordered by descending probability,
// breaking ties by ascending index.
func sortedByProb(probs []float64) []int {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return probs[idx[a]] > probs[idx[b]]
	})
	return idx
}

// sampleSubset renormalizes the kept indices and samples among them.
func sampleSubset(probs []float64, kept []int, st *SamplerState) int {
	var total float64
	for _, id := range kept {
		total += probs[id]
	}
	if total == 0 {
		return kept[0]
	}
	r := float64(st.Next()) * total
	var cum float64
	for _, id := range kept {
		cum += probs[id]
		if r < cum {
			return id
		}
	}
	return kept[len(kept)-1]
}
