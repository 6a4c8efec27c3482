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

// Package oracle separates Benders cuts for the asymmetric travelling salesman
// problem.
//
// For a master point x over the arcs of an N-node graph, the worker LP is the
// dual of one unit flow from node 0 to every node k in 1..N-1 under arc
// capacities x:
//
//	minimize   sum_k sum_ij x[i][j]*v[k][i][j] - sum_k u[k][0] + sum_k u[k][k]
//	subject to u[k][i] - u[k][j] - v[k][i][j] <= 0   for all k and i != j
//	           v >= 0, v[k][i][i] = 0, u free.
//
// The feasible region is a cone, so the LP is either optimal with value 0 (every
// flow is routable, no cut) or unbounded. An unbounded ray (u, v) gives the cut
//
//	sum_ij (sum_k v[k][i][j]) * x[i][j] >= sum_k (u[k][0] - u[k][k])
//
// which x violates and every Hamiltonian circuit satisfies.
package oracle

import (
	"fmt"
	"math"
	"time"

	log "github.com/golang/glog"
	lp "github.com/ortools-benders/benders/ortools/linear_solver/go"
)

var negInf = math.Inf(-1)

// family tells the two worker variable groups apart.
type family int

const (
	familyU family = iota
	familyV
)

// varKey is the structural identity of a worker variable: u[k][i] or v[k][i][j].
type varKey struct {
	family  family
	k, i, j int
}

type options struct {
	name    string
	factory BackendFactory
	params  lp.Parameters
}

// Option configures New.
type Option func(*options)

// WithName sets the name given to the backend model.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithBackendFactory replaces the default pure Go LP backend.
func WithBackendFactory(f BackendFactory) Option {
	return func(o *options) { o.factory = f }
}

// WithSolverParameters sets the tolerances and the iteration limit of the
// worker solves.
func WithSolverParameters(p lp.Parameters) Option {
	return func(o *options) { o.params = p }
}

// Oracle holds the worker LP of one graph and separates cuts against it.
//
// An Oracle is not safe for concurrent use: give each worker goroutine its own,
// for instance through a Pool.
type Oracle struct {
	n       int
	name    string
	backend Backend

	u    [][]int   // u[k][i], k in 1..n-1, row 0 unused
	v    [][][]int // v[k][i][j]
	keys map[int]varKey

	objVars   []int
	objCoeffs []float64
}

// New builds the worker LP for numNodes nodes. The constraint set is created
// once here and never changes afterwards.
func New(numNodes int, opts ...Option) (*Oracle, error) {
	if numNodes < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidNodeCount, numNodes)
	}
	o := options{
		name:    fmt.Sprintf("atsp_worker_%d", numNodes),
		factory: NewLinearSolverBackend,
		params:  lp.NewParameters(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	backend, err := o.factory(o.name, o.params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendInit, err)
	}
	or := &Oracle{
		n:       numNodes,
		name:    o.name,
		backend: backend,
		keys:    make(map[int]varKey),
	}
	if err := or.build(); err != nil {
		backend.Close()
		return nil, fmt.Errorf("%w: %v", ErrBackendInit, err)
	}
	log.V(1).Infof("oracle %q: worker LP with %d variables for %d nodes", or.name, len(or.keys), numNodes)
	return or, nil
}

func (or *Oracle) build() error {
	n := or.n
	or.u = make([][]int, n)
	or.v = make([][][]int, n)
	for k := 1; k < n; k++ {
		or.v[k] = make([][]int, n)
		for i := 0; i < n; i++ {
			or.v[k][i] = make([]int, n)
			for j := 0; j < n; j++ {
				ub := math.Inf(1)
				if i == j {
					ub = 0
				}
				h, err := or.backend.MakeVar(0, ub, fmt.Sprintf("v.%d.%d.%d", k, i, j))
				if err != nil {
					return err
				}
				or.v[k][i][j] = h
				or.keys[h] = varKey{family: familyV, k: k, i: i, j: j}
			}
		}
	}
	for k := 1; k < n; k++ {
		or.u[k] = make([]int, n)
		for i := 0; i < n; i++ {
			h, err := or.backend.MakeVar(negInf, math.Inf(1), fmt.Sprintf("u.%d.%d", k, i))
			if err != nil {
				return err
			}
			or.u[k][i] = h
			or.keys[h] = varKey{family: familyU, k: k, i: i}
		}
	}
	if len(or.keys) != (n-1)*(n*n+n) {
		return fmt.Errorf("backend reused variable handles: %d distinct for %d variables", len(or.keys), (n-1)*(n*n+n))
	}
	for k := 1; k < n; k++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				err := or.backend.AddLessOrEqual(
					[]int{or.u[k][i], or.u[k][j], or.v[k][i][j]},
					[]float64{1, -1, -1},
					0,
					fmt.Sprintf("cap.%d.%d.%d", k, i, j))
				if err != nil {
					return err
				}
			}
		}
	}
	or.backend.SetObjective(nil, nil)
	return nil
}

// NumNodes returns the node count the oracle was built for.
func (or *Oracle) NumNodes() int { return or.n }

// Name returns the backend model name.
func (or *Oracle) Name() string { return or.name }

// StructureFingerprint returns the backend encoding of the worker variables and
// constraints. It is identical before and after any number of separations.
func (or *Oracle) StructureFingerprint() []byte { return or.backend.StructureFingerprint() }

// Close releases the backend. The oracle must not be used afterwards.
func (or *Oracle) Close() { or.backend.Close() }

// Separate looks for a cut violated by point, an N×N matrix of arc values.
//
// It returns (nil, nil) when every flow from node 0 is routable under point, a
// cut violated by point when some flow is not, and an error wrapping
// ErrOracleFailure when the worker solve ends any other way. Values outside
// [0,1] are accepted.
func (or *Oracle) Separate(point [][]float64) (*Cut, error) {
	if err := or.checkPoint(point); err != nil {
		separations.WithLabelValues(resultInvalid).Inc()
		return nil, err
	}
	or.setObjective(point)

	start := time.Now()
	status := or.backend.Solve()
	solveSeconds.Observe(time.Since(start).Seconds())

	switch status {
	case lp.OPTIMAL:
		separations.WithLabelValues(resultNoCut).Inc()
		log.V(2).Infof("oracle %q: no cut", or.name)
		return nil, nil
	case lp.UNBOUNDED:
		ray, err := or.backend.UnboundedRay()
		if err != nil {
			separations.WithLabelValues(resultFailure).Inc()
			return nil, &FailureError{Status: status, Err: err}
		}
		cut, err := or.decode(ray)
		if err != nil {
			separations.WithLabelValues(resultFailure).Inc()
			return nil, err
		}
		separations.WithLabelValues(resultCut).Inc()
		if log.V(2) {
			log.Infof("oracle %q: cut %v", or.name, cut)
		}
		return cut, nil
	default:
		separations.WithLabelValues(resultFailure).Inc()
		log.Warningf("oracle %q: worker LP status %v", or.name, status)
		return nil, &FailureError{Status: status}
	}
}

func (or *Oracle) checkPoint(point [][]float64) error {
	if len(point) != or.n {
		return fmt.Errorf("%w: %d rows, want %d", ErrInvalidPoint, len(point), or.n)
	}
	for i, row := range point {
		if len(row) != or.n {
			return fmt.Errorf("%w: row %d has %d entries, want %d", ErrInvalidPoint, i, len(row), or.n)
		}
		for j, x := range row {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return fmt.Errorf("%w: entry (%d,%d) is %v", ErrInvalidPoint, i, j, x)
			}
		}
	}
	return nil
}

func (or *Oracle) setObjective(point [][]float64) {
	or.objVars = or.objVars[:0]
	or.objCoeffs = or.objCoeffs[:0]
	for k := 1; k < or.n; k++ {
		for i := 0; i < or.n; i++ {
			for j := 0; j < or.n; j++ {
				if i == j || point[i][j] == 0 {
					continue
				}
				or.objVars = append(or.objVars, or.v[k][i][j])
				or.objCoeffs = append(or.objCoeffs, point[i][j])
			}
		}
		or.objVars = append(or.objVars, or.u[k][0], or.u[k][k])
		or.objCoeffs = append(or.objCoeffs, -1, 1)
	}
	or.backend.SetObjective(or.objVars, or.objCoeffs)
}

// decode turns a ray into a cut through the handle index built at construction.
func (or *Oracle) decode(ray []RayComponent) (*Cut, error) {
	cut := newCut(or.n)
	for _, e := range ray {
		key, ok := or.keys[e.Var]
		if !ok {
			return nil, fmt.Errorf("%w: handle %d", ErrInconsistentRay, e.Var)
		}
		switch key.family {
		case familyV:
			cut.Coeffs[key.i][key.j] += e.Value
		case familyU:
			if key.i == 0 {
				cut.Rhs += e.Value
			}
			if key.i == key.k {
				cut.Rhs -= e.Value
			}
		}
	}
	return cut, nil
}
