// Copyright 2010-2025 Google LLC
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

package oracle

import (
	"errors"
	"fmt"

	lp "github.com/ortools-benders/benders/ortools/linear_solver/go"
)

var (
	// ErrInvalidNodeCount is returned by New when fewer than two nodes are given.
	ErrInvalidNodeCount = errors.New("oracle: node count must be at least 2")

	// ErrBackendInit is returned by New when the LP backend cannot be created or
	// refuses part of the worker model.
	ErrBackendInit = errors.New("oracle: backend initialization failed")

	// ErrOracleFailure is matched by every *FailureError. The caller may continue
	// without a cut for that point, but must not read it as "no cut".
	ErrOracleFailure = errors.New("oracle: worker LP solve ended without a decision")

	// ErrInconsistentRay means the backend returned a ray over a variable the
	// oracle never created. It is a bookkeeping bug and callers should abort.
	ErrInconsistentRay = errors.New("oracle: ray refers to an unknown worker variable")

	// ErrInvalidPoint is returned by Separate for a point of the wrong shape or
	// with non-finite entries.
	ErrInvalidPoint = errors.New("oracle: invalid master point")
)

// FailureError reports a worker solve that was neither optimal nor unbounded.
type FailureError struct {
	Status lp.Status
	// Err is set when the solve was unbounded but the ray could not be read.
	Err error
}

func (e *FailureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oracle: worker LP status %v: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("oracle: worker LP status %v", e.Status)
}

// Is makes errors.Is(err, ErrOracleFailure) hold for every FailureError.
func (e *FailureError) Is(target error) bool { return target == ErrOracleFailure }

func (e *FailureError) Unwrap() error { return e.Err }
