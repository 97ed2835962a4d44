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

// Package errdefs defines the error taxonomy shared by every tinyai
// component. Callers classify failures with errors.Is against these
// sentinels; components attach context by wrapping with fmt.Errorf.
package errdefs

import "errors"

var (
	// ErrInvalidArgument reports a nil slice, out-of-range enum value, or
	// otherwise malformed parameter.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidShape reports a dimensional mismatch between tensors,
	// weights, or declared layer sizes.
	ErrInvalidShape = errors.New("invalid shape")

	// ErrSchemaMismatch reports a file header inconsistent with the
	// expected layout or with a companion file.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrOutOfMemory reports a failed buffer, arena, or pool allocation.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrBudgetExceeded reports that no execution plan fits the configured
	// memory budget even after checkpoint policy escalation.
	ErrBudgetExceeded = errors.New("memory budget exceeded")

	// ErrWorkspaceTooSmall reports a layer output larger than the
	// scheduler workspace.
	ErrWorkspaceTooSmall = errors.New("workspace too small")

	// ErrCycleDetected reports a dependency cycle in the layer graph.
	ErrCycleDetected = errors.New("cycle detected")

	// ErrLayerFailure reports a layer forward function returning an error.
	ErrLayerFailure = errors.New("layer failure")

	// ErrKernelFailure reports a compute kernel rejecting its inputs.
	ErrKernelFailure = errors.New("kernel failure")

	// ErrIO reports a disk read or write failure.
	ErrIO = errors.New("i/o failure")

	// ErrNotImplemented reports an unsupported layer kind or precision.
	ErrNotImplemented = errors.New("not implemented")
)
