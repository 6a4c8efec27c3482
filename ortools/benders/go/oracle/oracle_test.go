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
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	lp "github.com/ortools-benders/benders/ortools/linear_solver/go"
)

const violationTol = 1e-6

// successorPoint returns the 0/1 point with x[i][succ[i]] = 1.
func successorPoint(succ []int) [][]float64 {
	point := make([][]float64, len(succ))
	for i := range point {
		point[i] = make([]float64, len(succ))
		point[i][succ[i]] = 1
	}
	return point
}

// tours enumerates all Hamiltonian circuits of n nodes as successor lists.
func tours(n int) [][]int {
	var out [][]int
	order := []int{0}
	used := make([]bool, n)
	used[0] = true
	var rec func()
	rec = func() {
		if len(order) == n {
			succ := make([]int, n)
			for t := range order {
				succ[order[t]] = order[(t+1)%n]
			}
			out = append(out, succ)
			return
		}
		for j := 1; j < n; j++ {
			if !used[j] {
				used[j] = true
				order = append(order, j)
				rec()
				order = order[:len(order)-1]
				used[j] = false
			}
		}
	}
	rec()
	return out
}

func newOracle(t *testing.T, n int, opts ...Option) *Oracle {
	t.Helper()
	o, err := New(n, opts...)
	if err != nil {
		t.Fatalf("New(%d) err = %v, want nil", n, err)
	}
	t.Cleanup(o.Close)
	return o
}

func checkValid(t *testing.T, cut *Cut, n int) {
	t.Helper()
	for _, succ := range tours(n) {
		if v := cut.Violation(successorPoint(succ)); v > violationTol {
			t.Errorf("cut %v is violated by tour %v by %g", cut, succ, v)
		}
	}
}

func TestNewInvalidNodeCount(t *testing.T) {
	for _, n := range []int{-1, 0, 1} {
		if _, err := New(n); !errors.Is(err, ErrInvalidNodeCount) {
			t.Errorf("New(%d) err = %v, want %v", n, err, ErrInvalidNodeCount)
		}
	}
}

func TestSeparateFourNodes(t *testing.T) {
	o := newOracle(t, 4)

	cut, err := o.Separate(successorPoint([]int{1, 2, 3, 0}))
	if err != nil {
		t.Fatalf("Separate(tour) err = %v, want nil", err)
	}
	if cut != nil {
		t.Errorf("Separate(tour) = %v, want no cut", cut)
	}

	twoCycles := successorPoint([]int{1, 0, 3, 2})
	cut, err = o.Separate(twoCycles)
	if err != nil {
		t.Fatalf("Separate(two 2-cycles) err = %v, want nil", err)
	}
	if cut == nil {
		t.Fatal("Separate(two 2-cycles) = no cut, want a cut")
	}
	if !cut.IsViolatedBy(twoCycles, violationTol) {
		t.Errorf("cut %v has violation %g at its point, want > %g", cut, cut.Violation(twoCycles), violationTol)
	}
	checkValid(t, cut, 4)
}

func TestSeparateTwoNodes(t *testing.T) {
	o := newOracle(t, 2)
	if cut, err := o.Separate(successorPoint([]int{1, 0})); err != nil || cut != nil {
		t.Errorf("Separate(tour) = %v, %v, want no cut", cut, err)
	}
	empty := [][]float64{{0, 0}, {0, 0}}
	cut, err := o.Separate(empty)
	if err != nil {
		t.Fatalf("Separate(empty) err = %v, want nil", err)
	}
	if cut == nil || !cut.IsViolatedBy(empty, violationTol) {
		t.Fatalf("Separate(empty) = %v, want a violated cut", cut)
	}
	checkValid(t, cut, 2)
}

func TestSeparateFractional(t *testing.T) {
	o := newOracle(t, 4)
	half := successorPoint([]int{1, 0, 3, 2})
	for i, succ := range []int{1, 2, 3, 0} {
		half[i][succ] += 0.5
	}
	for i := range half {
		for j := range half[i] {
			half[i][j] *= 0.5
		}
	}
	cut, err := o.Separate(half)
	if err != nil {
		t.Fatalf("Separate(fractional) err = %v, want nil", err)
	}
	if cut != nil {
		if !cut.IsViolatedBy(half, violationTol) {
			t.Errorf("cut %v is not violated by its fractional point", cut)
		}
		checkValid(t, cut, 4)
	}

	low := make([][]float64, 4)
	for i := range low {
		low[i] = make([]float64, 4)
		for j := range low[i] {
			if i != j {
				low[i][j] = 0.1
			}
		}
	}
	cut, err = o.Separate(low)
	if err != nil {
		t.Fatalf("Separate(low capacities) err = %v, want nil", err)
	}
	if cut == nil || !cut.IsViolatedBy(low, violationTol) {
		t.Fatalf("Separate(low capacities) = %v, want a violated cut", cut)
	}
	checkValid(t, cut, 4)
}

func TestCutsAreGloballyValid(t *testing.T) {
	points := map[int][][]int{
		4: {{1, 0, 3, 2}, {2, 3, 0, 1}, {3, 2, 1, 0}, {0, 2, 1, 3}},
		5: {{1, 0, 3, 4, 2}, {1, 2, 0, 4, 3}, {4, 2, 1, 0, 3}, {2, 3, 0, 1, 4}},
	}
	for n, succs := range points {
		o := newOracle(t, n)
		for _, succ := range succs {
			point := successorPoint(succ)
			cut, err := o.Separate(point)
			if err != nil {
				t.Fatalf("Separate(%v) err = %v, want nil", succ, err)
			}
			if cut == nil {
				t.Errorf("Separate(%v) = no cut, want a cut for a point with subtours", succ)
				continue
			}
			if !cut.IsViolatedBy(point, violationTol) {
				t.Errorf("cut %v is not violated by %v", cut, succ)
			}
			checkValid(t, cut, n)
		}
		for _, succ := range tours(n) {
			if cut, err := o.Separate(successorPoint(succ)); err != nil || cut != nil {
				t.Errorf("Separate(tour %v) = %v, %v, want no cut", succ, cut, err)
			}
		}
	}
}

func TestSeparateIsIdempotent(t *testing.T) {
	o := newOracle(t, 5)
	tour := successorPoint([]int{2, 0, 4, 1, 3})
	for r := 0; r < 3; r++ {
		if cut, err := o.Separate(tour); err != nil || cut != nil {
			t.Errorf("round %d: Separate(tour) = %v, %v, want no cut", r, cut, err)
		}
	}

	point := successorPoint([]int{1, 0, 3, 4, 2})
	first, err := o.Separate(point)
	if err != nil || first == nil {
		t.Fatalf("Separate(point) = %v, %v, want a cut", first, err)
	}
	again, err := o.Separate(point)
	if err != nil {
		t.Fatalf("Separate(point) again err = %v, want nil", err)
	}
	if diff := cmp.Diff(first, again, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Separate(point) again returned with unexpected diff (-first+again):\n%s", diff)
	}
}

func TestStructureIsInvariant(t *testing.T) {
	o := newOracle(t, 4)
	before := o.StructureFingerprint()
	if len(before) == 0 {
		t.Fatal("StructureFingerprint() is empty")
	}
	for _, succ := range [][]int{{1, 0, 3, 2}, {1, 2, 3, 0}, {3, 2, 1, 0}} {
		if _, err := o.Separate(successorPoint(succ)); err != nil {
			t.Fatalf("Separate(%v) err = %v", succ, err)
		}
	}
	if after := o.StructureFingerprint(); !bytes.Equal(before, after) {
		t.Error("StructureFingerprint() changed across separations")
	}
}

func TestSeparateInvalidPoint(t *testing.T) {
	o := newOracle(t, 3)
	for name, point := range map[string][][]float64{
		"too few rows": {{0, 1, 0}, {0, 0, 1}},
		"ragged":       {{0, 1, 0}, {0, 0}, {1, 0, 0}},
		"NaN":          {{0, 1, 0}, {0, 0, math.NaN()}, {1, 0, 0}},
		"Inf":          {{0, math.Inf(1), 0}, {0, 0, 1}, {1, 0, 0}},
	} {
		if _, err := o.Separate(point); !errors.Is(err, ErrInvalidPoint) {
			t.Errorf("Separate(%s) err = %v, want %v", name, err, ErrInvalidPoint)
		}
	}
	outside := [][]float64{{0, 2, 0}, {0, 0, 1.5}, {-1, 0, 0}}
	if _, err := o.Separate(outside); err != nil {
		t.Errorf("Separate(values outside [0,1]) err = %v, want nil", err)
	}
}

func TestDecode(t *testing.T) {
	o := newOracle(t, 3)
	ray := []RayComponent{
		{Var: o.v[1][0][1], Value: 2},
		{Var: o.v[2][0][1], Value: 0.5},
		{Var: o.v[2][2][0], Value: 1},
		{Var: o.u[1][0], Value: 1},
		{Var: o.u[1][1], Value: -1},
		{Var: o.u[2][2], Value: 0.25},
		{Var: o.u[2][1], Value: 7},
	}
	got, err := o.decode(ray)
	if err != nil {
		t.Fatalf("decode() err = %v, want nil", err)
	}
	want := &Cut{
		Coeffs: [][]float64{{0, 2.5, 0}, {0, 0, 0}, {1, 0, 0}},
		Rhs:    1.75,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decode() returned with unexpected diff (-want+got):\n%s", diff)
	}

	if _, err := o.decode([]RayComponent{{Var: 1 << 20, Value: 1}}); !errors.Is(err, ErrInconsistentRay) {
		t.Errorf("decode(unknown handle) err = %v, want %v", err, ErrInconsistentRay)
	}
}

// stubBackend forwards to a real backend but can force the solve status and
// the ray.
type stubBackend struct {
	Backend
	status  lp.Status
	ray     []RayComponent
	rayErr  error
	failVar bool
	closed  bool
}

func (b *stubBackend) MakeVar(lb, ub float64, name string) (int, error) {
	if b.failVar {
		return 0, errors.New("out of memory")
	}
	return b.Backend.MakeVar(lb, ub, name)
}

func (b *stubBackend) Solve() lp.Status {
	if b.status != lp.NOT_SOLVED {
		return b.status
	}
	return b.Backend.Solve()
}

func (b *stubBackend) UnboundedRay() ([]RayComponent, error) {
	if b.ray != nil || b.rayErr != nil {
		return b.ray, b.rayErr
	}
	return b.Backend.UnboundedRay()
}

func (b *stubBackend) Close() {
	b.closed = true
	b.Backend.Close()
}

func stubFactory(stub *stubBackend) BackendFactory {
	return func(name string, p lp.Parameters) (Backend, error) {
		inner, err := NewLinearSolverBackend(name, p)
		if err != nil {
			return nil, err
		}
		stub.Backend = inner
		return stub, nil
	}
}

func TestSeparateFailure(t *testing.T) {
	point := successorPoint([]int{1, 0, 3, 2})
	for _, test := range []struct {
		name string
		stub *stubBackend
		want lp.Status
	}{
		{name: "iteration limit", stub: &stubBackend{status: lp.ITERATION_LIMIT}, want: lp.ITERATION_LIMIT},
		{name: "infeasible", stub: &stubBackend{status: lp.INFEASIBLE}, want: lp.INFEASIBLE},
		{name: "abnormal", stub: &stubBackend{status: lp.ABNORMAL}, want: lp.ABNORMAL},
		{name: "ray unavailable", stub: &stubBackend{status: lp.UNBOUNDED, rayErr: lp.ErrRayUnavailable}, want: lp.UNBOUNDED},
	} {
		t.Run(test.name, func(t *testing.T) {
			o := newOracle(t, 4, WithBackendFactory(stubFactory(test.stub)))
			cut, err := o.Separate(point)
			if !errors.Is(err, ErrOracleFailure) {
				t.Fatalf("Separate() = %v, %v, want %v", cut, err, ErrOracleFailure)
			}
			var fe *FailureError
			if !errors.As(err, &fe) || fe.Status != test.want {
				t.Errorf("Separate() err = %v, want a FailureError with status %v", err, test.want)
			}
		})
	}
}

func TestSeparateIterationLimit(t *testing.T) {
	p := lp.NewParameters()
	p.SetIntegerParam(lp.ITERATION_LIMIT_PARAM, 1)
	o := newOracle(t, 4, WithSolverParameters(p))
	if _, err := o.Separate(successorPoint([]int{1, 0, 3, 2})); !errors.Is(err, ErrOracleFailure) {
		t.Errorf("Separate() err = %v, want %v", err, ErrOracleFailure)
	}
}

func TestSeparateInconsistentRay(t *testing.T) {
	stub := &stubBackend{status: lp.UNBOUNDED, ray: []RayComponent{{Var: -5, Value: 1}}}
	o := newOracle(t, 3, WithBackendFactory(stubFactory(stub)))
	if _, err := o.Separate(successorPoint([]int{1, 2, 0})); !errors.Is(err, ErrInconsistentRay) {
		t.Errorf("Separate() err = %v, want %v", err, ErrInconsistentRay)
	}
}

func TestNewBackendInit(t *testing.T) {
	failing := func(string, lp.Parameters) (Backend, error) { return nil, errors.New("no license") }
	if _, err := New(3, WithBackendFactory(failing)); !errors.Is(err, ErrBackendInit) {
		t.Errorf("New() err = %v, want %v", err, ErrBackendInit)
	}

	stub := &stubBackend{failVar: true}
	if _, err := New(3, WithBackendFactory(stubFactory(stub))); !errors.Is(err, ErrBackendInit) {
		t.Errorf("New() err = %v, want %v", err, ErrBackendInit)
	}
	if !stub.closed {
		t.Error("New() did not release the backend after a failed build")
	}
}
