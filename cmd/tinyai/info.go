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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheLakeMan/tinyai/errdefs"
	"github.com/TheLakeMan/tinyai/loader"
	"github.com/TheLakeMan/tinyai/model"
)

func newInfoCmd() *cobra.Command {
	var (
		modelPath   string
		weightsPath string
	)

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Inspect model files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelPath == "" {
				return fmt.Errorf("--model is required: %w", errdefs.ErrInvalidArgument)
			}
			arch, err := loader.LoadArch(modelPath)
			if err != nil {
				return err
			}
			kind := "rnn"
			if arch.ModelKind == loader.KindTransformer {
				kind = "transformer"
			}
			fmt.Printf("model: %s v%d\n", kind, arch.Version)
			fmt.Printf("hidden size: %d\n", arch.HiddenSize)
			fmt.Printf("context size: %d\n", arch.ContextSize)
			fmt.Printf("layers: %d\n", len(arch.Layers))
			for i, l := range arch.Layers {
				fmt.Printf("  %2d %-10s %5d -> %-5d activation=%d\n",
					i, model.LayerKind(l.Kind), l.InputSize, l.OutputSize, l.Activation)
			}

			if weightsPath == "" {
				return nil
			}
			// Index the weights file without loading any layer.
			p, err := loader.OpenProgressive(weightsPath, arch, 0, loader.EvictSequential)
			if err != nil {
				return err
			}
			defer p.Close()
			var total int64
			for i := 0; i < p.LayerCount(); i++ {
				sz := p.RecordSize(i)
				total += sz
				fmt.Printf("  layer %2d weights: %d bytes\n", i, sz)
			}
			fmt.Printf("total weight bytes: %d\n", total)
			return nil
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "architecture file")
	cmd.Flags().StringVar(&weightsPath, "weights", "", "weights file (optional)")
	return cmd
}
