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
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	lp "github.com/ortools-benders/benders/ortools/linear_solver/go"
	"github.com/ortools-benders/benders/ortools/benders/go/oracle"
)

func newLoop(t *testing.T, costs [][]float64, opts Options, oracleOpts ...oracle.Option) *CutLoop {
	t.Helper()
	m, err := NewModel(costs, lp.NewParameters())
	if err != nil {
		t.Fatalf("NewModel() err = %v, want nil", err)
	}
	pool, err := oracle.NewPool(len(costs), 2, oracleOpts...)
	if err != nil {
		t.Fatalf("NewPool() err = %v, want nil", err)
	}
	t.Cleanup(pool.Close)
	l, err := NewCutLoop(m, pool, opts)
	if err != nil {
		t.Fatalf("NewCutLoop() err = %v, want nil", err)
	}
	return l
}

func TestRunThreeNodes(t *testing.T) {
	costs := [][]float64{
		{0, 1, 10},
		{10, 0, 1},
		{1, 10, 0},
	}
	res, err := newLoop(t, costs, DefaultOptions()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() err = %v, want nil", err)
	}
	if !res.Optimal() || res.Inconclusive() {
		t.Fatalf("Run() = %+v, want an optimal tour", res)
	}
	if diff := cmp.Diff([]int{0, 1, 2}, res.Tour); diff != "" {
		t.Errorf("Run() tour returned with unexpected diff (-want+got):\n%s", diff)
	}
	if res.Rounds != 1 || res.LazyCuts+res.UserCuts != 0 {
		t.Errorf("Run() took %d rounds and %d cuts, want 1 round and no cut", res.Rounds, res.LazyCuts+res.UserCuts)
	}
}

func TestRunEliminatesSubtours(t *testing.T) {
	for _, rounded := range []bool{false, true} {
		opts := DefaultOptions()
		opts.SeparateRounded = rounded
		res, err := newLoop(t, twoCycleCosts(), opts).Run(context.Background())
		if err != nil {
			t.Fatalf("Run(rounded=%v) err = %v, want nil", rounded, err)
		}
		if !res.Optimal() {
			t.Fatalf("Run(rounded=%v) stopped with %v, want an optimal tour", rounded, res.Stop)
		}
		if diff := cmp.Diff([]int{0, 1, 2, 3}, res.Tour); diff != "" {
			t.Errorf("Run(rounded=%v) tour returned with unexpected diff (-want+got):\n%s", rounded, diff)
		}
		if math.Abs(res.Objective-6) > 1e-6 {
			t.Errorf("Run(rounded=%v) objective = %g, want 6", rounded, res.Objective)
		}
		if res.LazyCuts < 1 {
			t.Errorf("Run(rounded=%v) added %d lazy constraints, want at least 1", rounded, res.LazyCuts)
		}
		if len(res.Failures) != 0 {
			t.Errorf("Run(rounded=%v) failures = %v, want none", rounded, res.Failures)
		}
	}
}

func TestRunRoundLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxRounds = 1
	res, err := newLoop(t, twoCycleCosts(), opts).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() err = %v, want nil", err)
	}
	if res.Stop != StopRoundLimit || !res.Inconclusive() {
		t.Errorf("Run() stop = %v, want %v", res.Stop, StopRoundLimit)
	}
	if res.Rounds != 1 || res.LazyCuts != 1 || res.UserCuts != 0 {
		t.Errorf("Run() = %d rounds, %d lazy, %d user, want 1, 1, 0", res.Rounds, res.LazyCuts, res.UserCuts)
	}
	if math.Abs(res.Objective-4) > 1e-9 {
		t.Errorf("Run() objective = %g, want 4", res.Objective)
	}
	if len(res.Cuts) != 1 || res.Cuts[0].Kind != LazyConstraint || res.Cuts[0].Round != 1 {
		t.Fatalf("Run() cuts = %+v, want one lazy constraint from round 1", res.Cuts)
	}
	if !res.Cuts[0].Cut.IsViolatedBy(res.Point, 1e-6) {
		t.Errorf("cut %v is not violated by the point it was separated from", res.Cuts[0].Cut)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newLoop(t, twoCycleCosts(), DefaultOptions()).Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run(cancelled) err = %v, want %v", err, context.Canceled)
	}
}

// failingBackend forces the status of every worker solve.
type failingBackend struct {
	oracle.Backend
	status lp.Status
	ray    []oracle.RayComponent
}

func (b *failingBackend) Solve() lp.Status { return b.status }

func (b *failingBackend) UnboundedRay() ([]oracle.RayComponent, error) { return b.ray, nil }

func failingFactory(status lp.Status, ray []oracle.RayComponent) oracle.BackendFactory {
	return func(name string, p lp.Parameters) (oracle.Backend, error) {
		inner, err := oracle.NewLinearSolverBackend(name, p)
		if err != nil {
			return nil, err
		}
		return &failingBackend{Backend: inner, status: status, ray: ray}, nil
	}
}

func TestRunOracleFailure(t *testing.T) {
	l := newLoop(t, twoCycleCosts(), DefaultOptions(), oracle.WithBackendFactory(failingFactory(lp.ITERATION_LIMIT, nil)))
	res, err := l.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() err = %v, want nil", err)
	}
	if res.Stop != StopOracleFailure || !res.Inconclusive() || res.Tour != nil {
		t.Errorf("Run() = %+v, want an inconclusive stop on oracle failure", res)
	}
	if len(res.Failures) != 1 || !errors.Is(res.Failures[0], oracle.ErrOracleFailure) {
		t.Errorf("Run() failures = %v, want one %v", res.Failures, oracle.ErrOracleFailure)
	}
}

func TestRunInconsistentRay(t *testing.T) {
	ray := []oracle.RayComponent{{Var: -1, Value: 1}}
	l := newLoop(t, twoCycleCosts(), DefaultOptions(), oracle.WithBackendFactory(failingFactory(lp.UNBOUNDED, ray)))
	if _, err := l.Run(context.Background()); !errors.Is(err, oracle.ErrInconsistentRay) {
		t.Errorf("Run() err = %v, want %v", err, oracle.ErrInconsistentRay)
	}
}

func TestNewCutLoopNodeMismatch(t *testing.T) {
	m, err := NewModel(twoCycleCosts(), lp.NewParameters())
	if err != nil {
		t.Fatalf("NewModel() err = %v, want nil", err)
	}
	pool, err := oracle.NewPool(3, 1)
	if err != nil {
		t.Fatalf("NewPool() err = %v, want nil", err)
	}
	defer pool.Close()
	if _, err := NewCutLoop(m, pool, DefaultOptions()); err == nil {
		t.Error("NewCutLoop() err = nil, want node count mismatch")
	}
}
