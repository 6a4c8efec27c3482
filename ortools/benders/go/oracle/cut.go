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
	"strings"

	"google.golang.org/protobuf/types/known/structpb"
)

// Cut is the linear inequality sum_ij Coeffs[i][j] * x[i][j] >= Rhs over the
// master arc variables.
type Cut struct {
	Coeffs [][]float64
	Rhs    float64
}

func newCut(n int) *Cut {
	c := &Cut{Coeffs: make([][]float64, n)}
	for i := range c.Coeffs {
		c.Coeffs[i] = make([]float64, n)
	}
	return c
}

// Term is one non-zero coefficient of a cut.
type Term struct {
	From, To int
	Coeff    float64
}

// Activity returns the left-hand side of the cut at point.
func (c *Cut) Activity(point [][]float64) float64 {
	a := 0.0
	for i, row := range c.Coeffs {
		for j, coeff := range row {
			if coeff != 0 {
				a += coeff * point[i][j]
			}
		}
	}
	return a
}

// Violation returns Rhs minus the activity at point. It is positive when point
// violates the cut.
func (c *Cut) Violation(point [][]float64) float64 {
	return c.Rhs - c.Activity(point)
}

// IsViolatedBy reports whether point violates the cut by more than tol.
func (c *Cut) IsViolatedBy(point [][]float64, tol float64) bool {
	return c.Violation(point) > tol
}

// Terms returns the non-zero coefficients in row-major order.
func (c *Cut) Terms() []Term {
	var terms []Term
	for i, row := range c.Coeffs {
		for j, coeff := range row {
			if coeff != 0 {
				terms = append(terms, Term{From: i, To: j, Coeff: coeff})
			}
		}
	}
	return terms
}

func (c *Cut) String() string {
	var sb strings.Builder
	terms := c.Terms()
	if len(terms) == 0 {
		sb.WriteString("0")
	}
	for t, term := range terms {
		if t > 0 {
			sb.WriteString(" + ")
		}
		fmt.Fprintf(&sb, "%g*x[%d][%d]", term.Coeff, term.From, term.To)
	}
	fmt.Fprintf(&sb, " >= %g", c.Rhs)
	return sb.String()
}

// AsStruct returns the cut as a protobuf Struct:
//
//	{"rhs": ..., "terms": [{"from": i, "to": j, "coeff": c}, ...]}
func (c *Cut) AsStruct() (*structpb.Struct, error) {
	terms := []any{}
	for _, t := range c.Terms() {
		terms = append(terms, map[string]any{
			"from":  t.From,
			"to":    t.To,
			"coeff": t.Coeff,
		})
	}
	return structpb.NewStruct(map[string]any{
		"rhs":   c.Rhs,
		"terms": terms,
	})
}
