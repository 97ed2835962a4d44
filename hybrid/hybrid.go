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

// Package hybrid decides whether a generation request should run on the
// local engine or be forwarded to a remote service. It is a pure policy
// object; the engine core only ever executes the local path.
package hybrid

// Decision is the outcome of a routing check.
type Decision int

const (
	// Local runs the request on the on-device engine.
	Local Decision = iota
	// Remote forwards the request to a network service.
	Remote
)

func (d Decision) String() string {
	if d == Local {
		return "local"
	}
	return "remote"
}

// Thresholds relative to the model context size.
const (
	promptRatio    = 0.8
	maxTokensRatio = 0.5
)

// Policy routes requests based on how much of the context they would
// consume.
type Policy struct {
	ContextSize int
}

// Decide routes to the remote service when the prompt or the requested
// generation length crowds the local context window.
func (p Policy) Decide(promptLen, maxTokens int) Decision {
	if p.ContextSize <= 0 {
		return Local
	}
	if float64(promptLen) > promptRatio*float64(p.ContextSize) {
		return Remote
	}
	if float64(maxTokens) > maxTokensRatio*float64(p.ContextSize) {
		return Remote
	}
	return Local
}
