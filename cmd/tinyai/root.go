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

	"github.com/TheLakeMan/tinyai/config"
	"github.com/TheLakeMan/tinyai/errdefs"
	"github.com/TheLakeMan/tinyai/logger"
)

var (
	flagVerbose    bool
	flagConfigPath string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tinyai",
		Short:         "On-device quantized inference engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetVerbose(flagVerbose)
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%v: %w", err, errdefs.ErrInvalidArgument)
	})
	root.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")
	root.PersistentFlags().StringVar(&flagConfigPath, "config", "", "engine configuration file (YAML)")

	root.AddCommand(newGenerateCmd())
	root.AddCommand(newQuantizeCmd())
	root.AddCommand(newInfoCmd())
	root.AddCommand(newCPUInfoCmd())
	return root
}

// loadConfig resolves the engine configuration from --config or the
// defaults.
func loadConfig() (config.Engine, error) {
	if flagConfigPath == "" {
		return config.Default(), nil
	}
	return config.Load(flagConfigPath)
}
