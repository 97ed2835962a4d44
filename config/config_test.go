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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheLakeMan/tinyai/errdefs"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
memory:
  budget_bytes: 1048576
  tradeoff: 0.8
  checkpointing: true
loader:
  budget_bytes: 4096
  strategy: sequential
generation:
  max_tokens: 32
  method: top-p
  top_p: 0.95
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.EqualValues(t, 1048576, cfg.Memory.BudgetBytes)
	assert.Equal(t, 0.8, cfg.Memory.Tradeoff)
	assert.Equal(t, "sequential", cfg.Loader.Strategy)
	assert.Equal(t, 32, cfg.Generation.MaxTokens)
	assert.Equal(t, "top-p", cfg.Generation.Method)
	// Untouched fields keep their defaults.
	assert.Equal(t, 40, cfg.Generation.TopK)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "memory:\n  budget_mb: 10\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, errdefs.ErrSchemaMismatch)
}

func TestLoadRejectsBadTradeoff(t *testing.T) {
	path := writeConfig(t, "memory:\n  tradeoff: 1.5\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, errdefs.ErrInvalidArgument)
}

func TestLoadRejectsBadStrategy(t *testing.T) {
	path := writeConfig(t, "loader:\n  strategy: round-robin\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, errdefs.ErrInvalidArgument)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, errdefs.ErrIO)
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 0.5, cfg.Memory.Tradeoff)
	assert.True(t, cfg.Memory.Checkpointing)
	assert.Equal(t, "greedy", cfg.Generation.Method)
	assert.Equal(t, "access-pattern", cfg.Loader.Strategy)
}
