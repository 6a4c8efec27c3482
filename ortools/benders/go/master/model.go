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

// Package master holds the caller side of the Benders decomposition for the
// asymmetric travelling salesman problem: the master LP over arc variables, the
// classification of master points into separation contexts, and a root
// cutting-plane loop that asks an oracle.Pool for cuts.
package master

import (
	"context"
	"errors"
	"fmt"
	"math"

	log "github.com/golang/glog"
	lp "github.com/ortools-benders/benders/ortools/linear_solver/go"
	"github.com/ortools-benders/benders/ortools/benders/go/oracle"
)

var (
	// ErrInvalidCosts is returned by NewModel for a cost matrix that is not
	// square or has fewer than two nodes.
	ErrInvalidCosts = errors.New("master: invalid cost matrix")

	// ErrMasterSolve is returned when the master LP is neither optimal nor
	// interrupted.
	ErrMasterSolve = errors.New("master: LP solve failed")
)

// Model is the master LP: x[i][j] in [0,1], x[i][i] = 0, one arc out of and
// one arc into every node, minimum total cost, plus the cuts added so far.
type Model struct {
	n      int
	costs  [][]float64
	solver *lp.LinearSolver
	params lp.Parameters
	x      [][]*lp.Variable

	lazyCuts int
	userCuts int
}

// Solution is an optimal point of the master LP.
type Solution struct {
	Point     [][]float64
	Objective float64
}

// NewModel builds the degree-constrained master LP for costs.
func NewModel(costs [][]float64, params lp.Parameters) (*Model, error) {
	n := len(costs)
	if n < 2 {
		return nil, fmt.Errorf("%w: %d nodes", ErrInvalidCosts, n)
	}
	for i, row := range costs {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d entries, want %d", ErrInvalidCosts, i, len(row), n)
		}
	}
	solver, err := lp.New(fmt.Sprintf("atsp_master_%d", n), lp.SIMPLEX_LINEAR_PROGRAMMING)
	if err != nil {
		return nil, err
	}
	m := &Model{n: n, costs: costs, solver: solver, params: params, x: make([][]*lp.Variable, n)}

	obj := lp.NewLinearExpr()
	for i := 0; i < n; i++ {
		m.x[i] = make([]*lp.Variable, n)
		for j := 0; j < n; j++ {
			ub := 1.0
			if i == j {
				ub = 0
			}
			v, err := solver.MakeNumVar(0, ub, fmt.Sprintf("x.%d.%d", i, j))
			if err != nil {
				return nil, err
			}
			m.x[i][j] = v
			if i != j {
				obj.AddTerm(v, costs[i][j])
			}
		}
	}
	solver.Objective().SetExpr(obj)

	for i := 0; i < n; i++ {
		out, in := lp.NewLinearExpr(), lp.NewLinearExpr()
		for j := 0; j < n; j++ {
			if i != j {
				out.Add(m.x[i][j])
				in.Add(m.x[j][i])
			}
		}
		if _, err := solver.AddConstraint(out, 1, 1, fmt.Sprintf("out.%d", i)); err != nil {
			return nil, err
		}
		if _, err := solver.AddConstraint(in, 1, 1, fmt.Sprintf("in.%d", i)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NumNodes returns the number of nodes.
func (m *Model) NumNodes() int { return m.n }

// NumCuts returns the number of lazy constraints and user cuts added so far.
func (m *Model) NumCuts() (lazy, user int) { return m.lazyCuts, m.userCuts }

// Solve solves the master LP. Cancelling ctx interrupts the solve.
func (m *Model) Solve(ctx context.Context) (*Solution, error) {
	status := m.solver.SolveInterruptible(m.params, ctx.Done())
	switch status {
	case lp.OPTIMAL:
	case lp.INTERRUPTED:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: interrupted", ErrMasterSolve)
	default:
		return nil, fmt.Errorf("%w: status %v", ErrMasterSolve, status)
	}
	sol := &Solution{Point: make([][]float64, m.n), Objective: m.solver.Objective().Value()}
	for i := range sol.Point {
		sol.Point[i] = make([]float64, m.n)
		for j := range sol.Point[i] {
			sol.Point[i][j] = m.x[i][j].SolutionValue()
		}
	}
	log.V(1).Infof("master: objective %g after %d pivots", sol.Objective, m.solver.Iterations())
	return sol, nil
}

// AddCut adds cut as a row of the master LP.
func (m *Model) AddCut(cut *oracle.Cut, kind CutKind) error {
	expr := lp.NewLinearExpr()
	for _, t := range cut.Terms() {
		if t.From < 0 || t.From >= m.n || t.To < 0 || t.To >= m.n {
			return fmt.Errorf("cut term x[%d][%d] outside a %d-node model", t.From, t.To, m.n)
		}
		expr.AddTerm(m.x[t.From][t.To], t.Coeff)
	}
	var name string
	switch kind {
	case LazyConstraint:
		m.lazyCuts++
		name = fmt.Sprintf("lazy.%d", m.lazyCuts)
	default:
		m.userCuts++
		name = fmt.Sprintf("user.%d", m.userCuts)
	}
	_, err := m.solver.AddConstraint(expr, cut.Rhs, math.Inf(1), name)
	return err
}

// TourCost returns the cost of visiting the nodes in the order of tour and
// returning to the first one.
func (m *Model) TourCost(tour []int) float64 {
	c := 0.0
	for t := range tour {
		c += m.costs[tour[t]][tour[(t+1)%len(tour)]]
	}
	return c
}

// ExportModelAsLpFormat returns the current master LP, cuts included, in LP
// format.
func (m *Model) ExportModelAsLpFormat() (string, error) {
	return m.solver.ExportModelAsLpFormat()
}
