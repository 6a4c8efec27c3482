// Copyright 2010-2024 Google LLC
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

package linearsolver

import (
	"testing"
)

func TestLinearExpr(t *testing.T) {
	solver := newLP(t)
	x, _ := solver.MakeNumVar(0, 10, "x")
	y, _ := solver.MakeNumVar(0, 10, "y")

	e := NewConstant(1).AddWeightedSum([]*Variable{x, y}, []float64{2, 0}).AddTerm(x, 0)
	if e.Len() != 1 {
		t.Errorf("Len() = %d, want 1", e.Len())
	}
	sum := NewLinearExpr().AddSum(x, y).AddExpr(e, -2)
	if sum.Offset() != -2 {
		t.Errorf("Offset() = %g, want -2", sum.Offset())
	}
	if got := sum.Evaluate([]float64{3, 4}); got != 3+4-2*(1+2*3) {
		t.Errorf("Evaluate() = %g, want %g", got, float64(3+4-2*(1+2*3)))
	}
}
