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
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrNotIntegral is returned for a point with fractional entries or rows
	// without exactly one selected arc.
	ErrNotIntegral = errors.New("master: point is not an integral assignment")

	// ErrNotTour is returned for successors that do not form one Hamiltonian
	// circuit.
	ErrNotTour = errors.New("master: successors do not form a tour")
)

// SuccessorsFromPoint reads the successor of every node from a 0/1 point.
func SuccessorsFromPoint(point [][]float64, tol float64) ([]int, error) {
	succ := make([]int, len(point))
	for i, row := range point {
		succ[i] = -1
		for j, x := range row {
			switch {
			case math.Abs(x) <= tol:
			case math.Abs(x-1) <= tol && succ[i] < 0:
				succ[i] = j
			default:
				return nil, fmt.Errorf("%w: x[%d][%d] = %g", ErrNotIntegral, i, j, x)
			}
		}
		if succ[i] < 0 {
			return nil, fmt.Errorf("%w: node %d has no successor", ErrNotIntegral, i)
		}
	}
	return succ, nil
}

// TourFromSuccessors follows succ from node 0 and returns the visiting order.
func TourFromSuccessors(succ []int) ([]int, error) {
	n := len(succ)
	if n == 0 {
		return nil, fmt.Errorf("%w: no nodes", ErrNotTour)
	}
	seen := make([]bool, n)
	tour := make([]int, 0, n)
	for node := 0; !seen[node]; node = succ[node] {
		seen[node] = true
		tour = append(tour, node)
		if succ[node] < 0 || succ[node] >= n {
			return nil, fmt.Errorf("%w: node %d has successor %d", ErrNotTour, node, succ[node])
		}
	}
	if len(tour) != n {
		return nil, fmt.Errorf("%w: cycle through node 0 visits %d of %d nodes", ErrNotTour, len(tour), n)
	}
	return tour, nil
}

// IsTour reports whether succ is a single Hamiltonian circuit.
func IsTour(succ []int) bool {
	_, err := TourFromSuccessors(succ)
	return err == nil
}

// IncidenceMatrix returns the 0/1 point with x[i][succ[i]] = 1.
func IncidenceMatrix(succ []int) [][]float64 {
	point := make([][]float64, len(succ))
	for i := range point {
		point[i] = make([]float64, len(succ))
		if s := succ[i]; s >= 0 && s < len(succ) {
			point[i][s] = 1
		}
	}
	return point
}

// Subtours splits the permutation succ into its cycles, smallest first, each
// starting at its lowest node. Ties keep the order of their lowest node.
func Subtours(succ []int) ([][]int, error) {
	n := len(succ)
	hasPred := make([]bool, n)
	for i, s := range succ {
		if s < 0 || s >= n || hasPred[s] {
			return nil, fmt.Errorf("%w: successor %d of node %d", ErrNotIntegral, s, i)
		}
		hasPred[s] = true
	}
	seen := make([]bool, n)
	var cycles [][]int
	for start := 0; start < n; start++ {
		if seen[start] {
			continue
		}
		var cycle []int
		for node := start; !seen[node]; node = succ[node] {
			seen[node] = true
			cycle = append(cycle, node)
		}
		cycles = append(cycles, cycle)
	}
	sort.SliceStable(cycles, func(a, b int) bool { return len(cycles[a]) < len(cycles[b]) })
	return cycles, nil
}
