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

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TheLakeMan/tinyai/config"
	"github.com/TheLakeMan/tinyai/errdefs"
	"github.com/TheLakeMan/tinyai/hybrid"
	"github.com/TheLakeMan/tinyai/loader"
	"github.com/TheLakeMan/tinyai/logger"
	"github.com/TheLakeMan/tinyai/model"
	"github.com/TheLakeMan/tinyai/vocab"
)

func newGenerateCmd() *cobra.Command {
	var (
		modelPath     string
		weightsPath   string
		tokenizerPath string
		maxTokens     int
		temperature   float32
		topK          int
		topP          float32
		seed          uint32
		sampling      string
		interactive   bool
	)

	cmd := &cobra.Command{
		Use:   "generate [prompt...]",
		Short: "Generate text from a prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if modelPath == "" || weightsPath == "" || tokenizerPath == "" {
				return fmt.Errorf("--model, --weights, and --tokenizer are required: %w", errdefs.ErrInvalidArgument)
			}

			if !cmd.Flags().Changed("sampling") {
				sampling = cfg.Generation.Method
			}
			if !cmd.Flags().Changed("temperature") {
				temperature = cfg.Generation.Temperature
			}
			if !cmd.Flags().Changed("top-k") {
				topK = cfg.Generation.TopK
			}
			if !cmd.Flags().Changed("top-p") {
				topP = cfg.Generation.TopP
			}
			if !cmd.Flags().Changed("seed") {
				seed = cfg.Generation.Seed
			}
			method, err := model.ParseSamplingMethod(sampling)
			if err != nil {
				return err
			}
			params := model.GenerationParams{
				MaxTokens:   maxTokens,
				Method:      method,
				Temperature: temperature,
				TopK:        topK,
				TopP:        topP,
				Seed:        seed,
			}
			if params.MaxTokens == 0 {
				params.MaxTokens = cfg.Generation.MaxTokens
			}

			arch, err := loader.LoadArch(modelPath)
			if err != nil {
				return err
			}
			weights, err := readWeights(weightsPath, arch, cfg)
			if err != nil {
				return err
			}
			vb, err := vocab.Load(tokenizerPath)
			if err != nil {
				return err
			}
			m, err := model.New(arch, weights, vb)
			if err != nil {
				return err
			}
			if cfg.ActivationTables {
				if err := m.EnableActivationTables(); err != nil {
					return err
				}
			}
			logger.Log.Info().
				Str("kind", m.Kind.String()).
				Int("layers", len(m.Layers)).
				Int("vocab", vb.Size()).
				Msg("model loaded")

			if interactive {
				return runInteractive(m, vb, params)
			}
			return runOnce(m, vb, params, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "architecture file")
	cmd.Flags().StringVar(&weightsPath, "weights", "", "weights file")
	cmd.Flags().StringVar(&tokenizerPath, "tokenizer", "", "vocabulary file")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "maximum sequence length in tokens, prompt included (0 = config default)")
	cmd.Flags().Float32Var(&temperature, "temperature", 1.0, "sampling temperature")
	cmd.Flags().IntVar(&topK, "top-k", 40, "top-k cutoff")
	cmd.Flags().Float32Var(&topP, "top-p", 0.9, "top-p cumulative mass")
	cmd.Flags().Uint32Var(&seed, "seed", 0, "PRNG seed (0 = wall clock)")
	cmd.Flags().StringVar(&sampling, "sampling", "greedy", "sampling method: greedy, temperature, top-k, top-p")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "read prompts from stdin")
	return cmd
}

// readWeights decodes every layer record, streaming them through the
// progressive loader when a budget is configured.
func readWeights(path string, arch *loader.Arch, cfg config.Engine) ([]loader.LayerWeights, error) {
	if cfg.Loader.BudgetBytes <= 0 {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, errdefs.ErrIO)
		}
		defer f.Close()
		return loader.ReadWeights(f, arch)
	}

	strategy := loader.EvictAccessPattern
	if cfg.Loader.Strategy == "sequential" {
		strategy = loader.EvictSequential
	}
	p, err := loader.OpenProgressive(path, arch, cfg.Loader.BudgetBytes, strategy)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	weights := make([]loader.LayerWeights, p.LayerCount())
	for i := 0; i < p.LayerCount(); i++ {
		lw, err := p.LoadLayer(i)
		if err != nil {
			return nil, err
		}
		weights[i] = *lw
	}
	return weights, nil
}

func runOnce(m *model.Model, vb *vocab.Vocab, params model.GenerationParams, prompt string) error {
	policy := hybrid.Policy{ContextSize: m.ContextSize}
	ids := tokenize(vb, prompt)
	if policy.Decide(len(ids), params.MaxTokens) == hybrid.Remote {
		logger.Log.Warn().Msg("request sized for remote inference; no remote endpoint configured, running locally")
	}
	out, err := m.Generate(ids, params)
	if err != nil {
		return err
	}
	fmt.Println(detokenize(vb, out))
	return nil
}

func runInteractive(m *model.Model, vb *vocab.Vocab, params model.GenerationParams) error {
	sc := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "quit" || line == "exit" {
			return nil
		}
		if line != "" {
			out, err := m.Generate(tokenize(vb, line), params)
			if err != nil {
				return err
			}
			fmt.Println(detokenize(vb, out))
		}
		fmt.Print("> ")
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("stdin: %w", errdefs.ErrIO)
	}
	return nil
}

// tokenize maps whitespace-separated tokens to vocabulary ids.
func tokenize(vb *vocab.Vocab, text string) []int {
	fields := strings.Fields(text)
	ids := make([]int, 0, len(fields))
	for _, f := range fields {
		ids = append(ids, vb.ID(f))
	}
	return ids
}

// detokenize renders ids as space-joined tokens, dropping specials.
func detokenize(vb *vocab.Vocab, ids []int) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == vocab.BOS || id == vocab.EOS || id == vocab.PAD {
			continue
		}
		parts = append(parts, vb.Token(id))
	}
	return strings.Join(parts, " ")
}
