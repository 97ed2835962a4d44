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

	"github.com/TheLakeMan/tinyai/errdefs"
	"github.com/TheLakeMan/tinyai/logger"
	"github.com/TheLakeMan/tinyai/vocab"
)

// Generate extends the prompt until MaxTokens tokens exist or the model
// emits EOS. An empty prompt starts from BOS. The returned slice holds
// the prompt followed by the generated ids.
func (m *Model) Generate(prompt []int, params GenerationParams) ([]int, error) {
	if params.MaxTokens <= 0 {
		return nil, fmt.Errorf("generate: max tokens %d: %w", params.MaxTokens, errdefs.ErrInvalidArgument)
	}
	vocabSize := m.VocabSize()
	if vocabSize == 0 {
		return nil, fmt.Errorf("generate: model has no output layer: %w", errdefs.ErrInvalidShape)
	}

	st := NewSampler(params.Seed)
	tokens := make([]int, 0, params.MaxTokens)
	if len(prompt) == 0 {
		tokens = append(tokens, vocab.BOS)
	} else {
		tokens = append(tokens, prompt...)
	}

	logits := make([]float32, vocabSize)
	for len(tokens) < params.MaxTokens {
		window := tokens
		if len(window) > m.ContextSize {
			window = window[len(window)-m.ContextSize:]
		}
		if err := m.Forward(window, logits); err != nil {
			return tokens, err
		}
		next, err := Sample(logits, params, st)
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, next)
		if next == vocab.EOS {
			break
		}
	}
	logger.Log.Debug().
		Int("prompt", len(prompt)).
		Int("total", len(tokens)).
		Str("method", params.Method.String()).
		Msg("generation finished")
	return tokens, nil
}
