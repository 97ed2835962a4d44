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
	"os"

	"github.com/spf13/cobra"

	"github.com/TheLakeMan/tinyai/errdefs"
	"github.com/TheLakeMan/tinyai/logger"
	"github.com/TheLakeMan/tinyai/quant"
)

func newQuantizeCmd() *cobra.Command {
	var (
		inPath   string
		outPath  string
		eightBit bool
	)

	cmd := &cobra.Command{
		Use:   "quantize",
		Short: "Quantize a float32 matrix file to 4-bit (or 8-bit)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inPath == "" || outPath == "" {
				return fmt.Errorf("--input and --output are required: %w", errdefs.ErrInvalidArgument)
			}
			f, err := os.Open(inPath)
			if err != nil {
				return fmt.Errorf("open %s: %w", inPath, errdefs.ErrIO)
			}
			dense, err := quant.ReadDense(f)
			f.Close()
			if err != nil {
				return err
			}

			out, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", outPath, errdefs.ErrIO)
			}
			defer out.Close()

			if eightBit {
				q, err := quant.QuantizeAffine8(dense)
				if err != nil {
					return err
				}
				if err := quant.WriteMatrix8(out, q); err != nil {
					return err
				}
				logger.Log.Info().Int("rows", q.Rows).Int("cols", q.Cols).Msg("wrote 8-bit matrix")
				return nil
			}

			q, err := quant.QuantizeAffine4(dense)
			if err != nil {
				return err
			}
			if err := quant.WriteMatrix4(out, q); err != nil {
				return err
			}
			logger.Log.Info().
				Int("rows", q.Rows).
				Int("cols", q.Cols).
				Float32("scale", q.Scale).
				Float32("zero_point", q.ZeroPoint).
				Msg("wrote 4-bit matrix")
			return nil
		},
	}

	cmd.Flags().StringVar(&inPath, "input", "", "float32 matrix file")
	cmd.Flags().StringVar(&outPath, "output", "", "quantized matrix file")
	cmd.Flags().BoolVar(&eightBit, "int8", false, "use 8-bit precision instead of 4-bit")
	return cmd
}
