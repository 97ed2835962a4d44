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

package simd

import "os"

// Level identifies a dispatch tier. The 256-bit tiers use 32-byte vectors,
// the others 16-byte vectors; no tier unrolls kernel loops. Every tier
// computes the same values as LevelScalar within the documented kernel
// tolerances.
type Level int

const (
	// LevelScalar is the pure reference tier (T0).
	LevelScalar Level = iota
	// Level128 uses 128-bit vectors (T1, SSE2/NEON class).
	Level128
	// Level256 uses 256-bit vectors (T2, AVX class).
	Level256
	// Level256Int uses 256-bit vectors with integer lane ops (T3, AVX2 class).
	Level256Int
)

func (l Level) String() string {
	switch l {
	case LevelScalar:
		return "scalar"
	case Level128:
		return "128bit"
	case Level256:
		return "256bit"
	case Level256Int:
		return "256bit+int"
	}
	return "unknown"
}

var (
	currentLevel Level
	currentWidth int
	currentName  string
)

// CurrentLevel returns the dispatch tier selected at init.
func CurrentLevel() Level { return currentLevel }

// CurrentWidth returns the vector width in bytes for the current tier.
func CurrentWidth() int { return currentWidth }

// CurrentName returns a human-readable name for the current tier.
func CurrentName() string { return currentName }

// NoSimdEnv reports whether TINYAI_NO_SIMD requests the scalar tier.
func NoSimdEnv() bool {
	v := os.Getenv("TINYAI_NO_SIMD")
	return v == "1" || v == "true"
}

// SetLevel overrides the dispatch tier. Intended for tests and the
// cpuinfo diagnostic; kernels cache their backend at package init, so
// callers that need the override to take effect must also reselect the
// kernel backend.
func SetLevel(l Level) {
	currentLevel = l
	switch l {
	case LevelScalar, Level128:
		currentWidth = 16
	case Level256, Level256Int:
		currentWidth = 32
	}
	currentName = l.String()
}

func setScalarMode() {
	currentLevel = LevelScalar
	currentWidth = 16 // 16-byte vectors even in scalar mode for consistency
	currentName = "scalar"
}
