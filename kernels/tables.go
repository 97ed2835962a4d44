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

	"github.com/chewxy/math32"

	"github.com/TheLakeMan/tinyai/errdefs"
)

// Table bounds and resolution. 4096 entries over [-8, 8] keep linear
// interpolation well inside the 1e-3 accuracy contract for sigmoid,
// tanh, and GELU.
const (
	tableMin  float32 = -8
	tableMax  float32 = 8
	tableSize         = 4096
)

// Table is a precomputed activation lookup over [-8, 8]. Inputs outside
// the range clamp to the endpoint values.
type Table struct {
	kind    Activation
	values  [tableSize + 1]float32
	step    float32
	invStep float32
}

// NewTable tabulates the given activation. Only sigmoid, tanh, and GELU
// are table-eligible.
func NewTable(kind Activation) (*Table, error) {
	var fn func(float32) float32
	switch kind {
	case ActivationSigmoid:
		fn = Sigmoid
	case ActivationTanh:
		fn = math32.Tanh
	case ActivationGELU:
		fn = GELU
	default:
		return nil, fmt.Errorf("table for %v: %w", kind, errdefs.ErrInvalidArgument)
	}

	t := &Table{kind: kind}
	t.step = (tableMax - tableMin) / tableSize
	t.invStep = 1 / t.step
	for i := 0; i <= tableSize; i++ {
		t.values[i] = fn(tableMin + float32(i)*t.step)
	}
	return t, nil
}

// Kind returns the tabulated activation.
func (t *Table) Kind() Activation { return t.kind }

// Lookup evaluates the activation with linear interpolation, clamping to
// the table endpoints outside [-8, 8].
func (t *Table) Lookup(x float32) float32 {
	if x <= tableMin {
		return t.values[0]
	}
	if x >= tableMax {
		return t.values[tableSize]
	}
	pos := (x - tableMin) * t.invStep
	i := int(pos)
	frac := pos - float32(i)
	return t.values[i] + frac*(t.values[i+1]-t.values[i])
}

// ActivateInPlaceTable applies the tabulated activation position-wise.
func (t *Table) ActivateInPlaceTable(vec []float32) error {
	if vec == nil {
		return fmt.Errorf("table activate: nil slice: %w", errdefs.ErrInvalidArgument)
	}
	for i, x := range vec {
		vec[i] = t.Lookup(x)
	}
	return nil
}
