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
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sys/cpu"

	"github.com/TheLakeMan/tinyai/kernels"
	"github.com/TheLakeMan/tinyai/simd"
)

func newCPUInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cpuinfo",
		Short: "Print detected CPU features and the selected kernel tier",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("GOOS: %s\n", runtime.GOOS)
			fmt.Printf("GOARCH: %s\n", runtime.GOARCH)
			fmt.Printf("NumCPU: %d\n", runtime.NumCPU())
			fmt.Println()

			fmt.Printf("dispatch level: %s\n", simd.CurrentLevel())
			fmt.Printf("dispatch width: %d bytes\n", simd.CurrentWidth())
			fmt.Printf("dispatch name: %s\n", simd.CurrentName())
			fmt.Printf("kernel backend: %s\n", kernels.BackendName())
			fmt.Println()

			switch runtime.GOARCH {
			case "amd64":
				printAMD64Features()
			case "arm64":
				printARM64Features()
			}
		},
	}
}

func printAMD64Features() {
	fmt.Println("=== golang.org/x/sys/cpu.X86 ===")
	fmt.Printf("  HasSSE2:   %v\n", cpu.X86.HasSSE2)
	fmt.Printf("  HasSSE41:  %v\n", cpu.X86.HasSSE41)
	fmt.Printf("  HasSSE42:  %v\n", cpu.X86.HasSSE42)
	fmt.Printf("  HasAVX:    %v\n", cpu.X86.HasAVX)
	fmt.Printf("  HasAVX2:   %v\n", cpu.X86.HasAVX2)
	fmt.Printf("  HasFMA:    %v\n", cpu.X86.HasFMA)
	fmt.Printf("  HasAVX512F: %v\n", cpu.X86.HasAVX512F)
}

func printARM64Features() {
	fmt.Println("=== golang.org/x/sys/cpu.ARM64 ===")
	fmt.Printf("  HasASIMD: %v (NEON baseline)\n", cpu.ARM64.HasASIMD)
	fmt.Printf("  HasFP:    %v\n", cpu.ARM64.HasFP)
	fmt.Printf("  HasFPHP:  %v (FP16 scalar)\n", cpu.ARM64.HasFPHP)
	fmt.Printf("  HasSVE:   %v\n", cpu.ARM64.HasSVE)
}
