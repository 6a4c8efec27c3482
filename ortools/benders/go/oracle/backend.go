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
	"fmt"

	lp "github.com/ortools-benders/benders/ortools/linear_solver/go"
)

// RayComponent is one non-zero entry of an unbounded ray, keyed by the handle
// MakeVar returned for the variable.
type RayComponent struct {
	Var   int
	Value float64
}

// Backend is the part of an LP solver the oracle relies on. Implementations
// need not be safe for concurrent use.
type Backend interface {
	// MakeVar adds a continuous variable and returns its handle.
	MakeVar(lb, ub float64, name string) (int, error)
	// AddLessOrEqual adds the row sum(coeffs[t] * vars[t]) <= rhs.
	AddLessOrEqual(vars []int, coeffs []float64, rhs float64, name string) error
	// SetObjective replaces the objective by the minimization of
	// sum(coeffs[t] * vars[t]).
	SetObjective(vars []int, coeffs []float64)
	// Solve solves the current model from scratch.
	Solve() lp.Status
	// UnboundedRay returns the ray of the last solve, which must have been
	// UNBOUNDED.
	UnboundedRay() ([]RayComponent, error)
	// StructureFingerprint encodes the variables and rows, not the objective.
	StructureFingerprint() []byte
	// Close releases the model.
	Close()
}

// BackendFactory creates an empty backend.
type BackendFactory func(name string, params lp.Parameters) (Backend, error)

// linearSolverBackend adapts *lp.LinearSolver to Backend.
type linearSolverBackend struct {
	solver *lp.LinearSolver
	params lp.Parameters
	vars   []*lp.Variable
}

// NewLinearSolverBackend is the default BackendFactory. Tolerances and the
// iteration limit are taken from params; presolve is always off and the LP
// algorithm always primal simplex, so that unbounded rays are kept.
func NewLinearSolverBackend(name string, params lp.Parameters) (Backend, error) {
	solver, err := lp.New(name, lp.SIMPLEX_LINEAR_PROGRAMMING)
	if err != nil {
		return nil, err
	}
	p := lp.NewParameters()
	p.SetDoubleParam(lp.PRIMAL_TOLERANCE, params.GetDoubleParam(lp.PRIMAL_TOLERANCE))
	p.SetDoubleParam(lp.DUAL_TOLERANCE, params.GetDoubleParam(lp.DUAL_TOLERANCE))
	p.SetIntegerParam(lp.ITERATION_LIMIT_PARAM, params.GetIntegerParam(lp.ITERATION_LIMIT_PARAM))
	p.SetIntegerParam(lp.PRESOLVE, lp.PRESOLVE_OFF)
	p.SetIntegerParam(lp.LP_ALGORITHM, lp.PRIMAL)
	return &linearSolverBackend{solver: solver, params: p}, nil
}

func (b *linearSolverBackend) MakeVar(lb, ub float64, name string) (int, error) {
	v, err := b.solver.MakeNumVar(lb, ub, name)
	if err != nil {
		return 0, err
	}
	b.vars = append(b.vars, v)
	return v.Index(), nil
}

func (b *linearSolverBackend) AddLessOrEqual(vars []int, coeffs []float64, rhs float64, name string) error {
	if len(vars) != len(coeffs) {
		return fmt.Errorf("row %q has %d variables and %d coefficients", name, len(vars), len(coeffs))
	}
	expr := lp.NewLinearExpr()
	for t, h := range vars {
		v, err := b.variable(h)
		if err != nil {
			return err
		}
		expr.AddTerm(v, coeffs[t])
	}
	_, err := b.solver.AddConstraint(expr, negInf, rhs, name)
	return err
}

func (b *linearSolverBackend) SetObjective(vars []int, coeffs []float64) {
	o := b.solver.Objective()
	o.Clear()
	for t, h := range vars {
		o.SetCoefficient(b.vars[h], o.Coefficient(b.vars[h])+coeffs[t])
	}
	o.SetMinimization()
}

func (b *linearSolverBackend) Solve() lp.Status {
	return b.solver.SolveWithParameters(b.params)
}

func (b *linearSolverBackend) UnboundedRay() ([]RayComponent, error) {
	ray, err := b.solver.UnboundedRay()
	if err != nil {
		return nil, err
	}
	out := make([]RayComponent, len(ray))
	for t, e := range ray {
		out[t] = RayComponent{Var: e.Variable.Index(), Value: e.Value}
	}
	return out, nil
}

func (b *linearSolverBackend) StructureFingerprint() []byte {
	return b.solver.StructureFingerprint()
}

func (b *linearSolverBackend) Close() {
	b.solver.Clear()
	b.vars = nil
}

func (b *linearSolverBackend) variable(h int) (*lp.Variable, error) {
	if h < 0 || h >= len(b.vars) {
		return nil, fmt.Errorf("unknown variable handle %d", h)
	}
	return b.vars[h], nil
}
