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

// Package config holds the YAML engine configuration shared by the CLI
// and embedding applications.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/TheLakeMan/tinyai/errdefs"
)

// Memory tunes the optimizer and scheduler.
type Memory struct {
	// BudgetBytes bounds weights plus activations; zero is unlimited.
	BudgetBytes int64 `yaml:"budget_bytes"`
	// Tradeoff is the memory/speed dial in [0, 1].
	Tradeoff float64 `yaml:"tradeoff"`
	// Checkpointing toggles activation checkpoints.
	Checkpointing bool `yaml:"checkpointing"`
	// Recompute permits recomputing evicted activations.
	Recompute bool `yaml:"recompute"`
	// MaxActivationBytes caps retained activations; zero is unlimited.
	MaxActivationBytes int64 `yaml:"max_activation_bytes"`
}

// Loader tunes progressive weight loading.
type Loader struct {
	// BudgetBytes caps resident layer weights; zero is unlimited.
	BudgetBytes int64 `yaml:"budget_bytes"`
	// Strategy is "sequential" or "access-pattern".
	Strategy string `yaml:"strategy"`
}

// Generation holds default sampling parameters.
type Generation struct {
	MaxTokens   int     `yaml:"max_tokens"`
	Method      string  `yaml:"method"`
	Temperature float32 `yaml:"temperature"`
	TopK        int     `yaml:"top_k"`
	TopP        float32 `yaml:"top_p"`
	Seed        uint32  `yaml:"seed"`
}

// Engine is the root configuration document.
type Engine struct {
	Memory     Memory     `yaml:"memory"`
	Loader     Loader     `yaml:"loader"`
	Generation Generation `yaml:"generation"`
	// ActivationTables enables table-driven sigmoid/tanh/GELU.
	ActivationTables bool `yaml:"activation_tables"`
}

// Default returns the configuration used when no file is given.
func Default() Engine {
	return Engine{
		Memory: Memory{
			Tradeoff:      0.5,
			Checkpointing: true,
		},
		Loader: Loader{
			Strategy: "access-pattern",
		},
		Generation: Generation{
			MaxTokens:   128,
			Method:      "greedy",
			Temperature: 1.0,
			TopK:        40,
			TopP:        0.9,
		},
	}
}

// Load reads a YAML engine configuration, rejecting unknown fields.
func Load(path string) (Engine, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, errdefs.ErrIO)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Default(), fmt.Errorf("parse %s: %v: %w", path, err, errdefs.ErrSchemaMismatch)
	}
	if err := cfg.validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

func (e Engine) validate() error {
	if e.Memory.Tradeoff < 0 || e.Memory.Tradeoff > 1 {
		return fmt.Errorf("memory tradeoff %v: %w", e.Memory.Tradeoff, errdefs.ErrInvalidArgument)
	}
	switch e.Loader.Strategy {
	case "", "sequential", "access-pattern":
	default:
		return fmt.Errorf("loader strategy %q: %w", e.Loader.Strategy, errdefs.ErrInvalidArgument)
	}
	return nil
}
