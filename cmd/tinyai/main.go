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

// Command tinyai is the engine front end: text generation, offline
// matrix quantization, and model file inspection.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/TheLakeMan/tinyai/errdefs"
)

// Exit codes: 0 success, 1 initialization or runtime failure, 2
// argument error.
const (
	exitOK   = 0
	exitFail = 1
	exitArgs = 2
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tinyai: %v\n", err)
		if errors.Is(err, errdefs.ErrInvalidArgument) {
			os.Exit(exitArgs)
		}
		os.Exit(exitFail)
	}
	os.Exit(exitOK)
}
