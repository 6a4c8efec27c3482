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

package master

import (
	"math"
	"sort"
)

// SeparationContext says where a master point comes from.
type SeparationContext int

const (
	// Candidate is an integral point, a potential solution that must be
	// rejected by a lazy constraint if it is infeasible.
	Candidate SeparationContext = iota
	// Relaxation is a fractional point; cuts for it only tighten the bound.
	Relaxation
)

func (c SeparationContext) String() string {
	switch c {
	case Candidate:
		return "candidate"
	case Relaxation:
		return "relaxation"
	}
	return "unknown"
}

// CutKind tells how a cut is added to the master.
type CutKind int

const (
	// LazyConstraint is required for correctness.
	LazyConstraint CutKind = iota
	// UserCut only strengthens the relaxation.
	UserCut
)

func (k CutKind) String() string {
	switch k {
	case LazyConstraint:
		return "lazy"
	case UserCut:
		return "user"
	}
	return "unknown"
}

// CutKind returns the kind a cut separated in context c is added as.
func (c SeparationContext) CutKind() CutKind {
	if c == Candidate {
		return LazyConstraint
	}
	return UserCut
}

// Classify returns Candidate when every entry of point is within tol of 0 or 1,
// and Relaxation otherwise.
func Classify(point [][]float64, tol float64) SeparationContext {
	for _, row := range point {
		for _, x := range row {
			if math.Abs(x) > tol && math.Abs(x-1) > tol {
				return Relaxation
			}
		}
	}
	return Candidate
}

// RoundSuccessors greedily rounds a fractional point to an assignment without
// self loops, taking arcs by decreasing value. It returns nil when the greedy
// choice gets stuck.
func RoundSuccessors(point [][]float64) []int {
	n := len(point)
	type arc struct {
		i, j int
		x    float64
	}
	var arcs []arc
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				arcs = append(arcs, arc{i, j, point[i][j]})
			}
		}
	}
	sort.SliceStable(arcs, func(a, b int) bool { return arcs[a].x > arcs[b].x })

	succ := make([]int, n)
	for i := range succ {
		succ[i] = -1
	}
	hasPred := make([]bool, n)
	assigned := 0
	for _, a := range arcs {
		if succ[a.i] >= 0 || hasPred[a.j] {
			continue
		}
		succ[a.i] = a.j
		hasPred[a.j] = true
		assigned++
	}
	if assigned != n {
		return nil
	}
	return succ
}
