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
	"errors"

	log "github.com/golang/glog"
)

// ErrMixedModels holds the error when elements added to a model are different.
var ErrMixedModels = errors.New("elements are not part of the same model")

// LinearExpr is a container for a linear expression over the variables of one
// LinearSolver.
type LinearExpr struct {
	terms  []varCoeff
	offset float64
}

type varCoeff struct {
	v     *Variable
	coeff float64
}

// NewLinearExpr creates a new empty LinearExpr.
func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// NewConstant creates and returns a LinearExpr containing the constant `c`.
func NewConstant(c float64) *LinearExpr {
	return &LinearExpr{offset: c}
}

// Add adds the variable with coefficient 1 and returns itself.
func (l *LinearExpr) Add(v *Variable) *LinearExpr {
	return l.AddTerm(v, 1)
}

// AddConstant adds the constant to the LinearExpr and returns itself.
func (l *LinearExpr) AddConstant(c float64) *LinearExpr {
	l.offset += c
	return l
}

// AddTerm adds the variable with the given coefficient and returns itself.
// Zero coefficients are dropped.
func (l *LinearExpr) AddTerm(v *Variable, coeff float64) *LinearExpr {
	if coeff != 0 {
		l.terms = append(l.terms, varCoeff{v: v, coeff: coeff})
	}
	return l
}

// AddSum adds the sum of the variables and returns itself.
func (l *LinearExpr) AddSum(vs ...*Variable) *LinearExpr {
	for _, v := range vs {
		l.Add(v)
	}
	return l
}

// AddWeightedSum adds the variables with the corresponding coefficients and
// returns itself.
func (l *LinearExpr) AddWeightedSum(vs []*Variable, coeffs []float64) *LinearExpr {
	if len(coeffs) != len(vs) {
		log.Fatalf("vs and coeffs must be the same length: %v != %v", len(vs), len(coeffs))
	}
	for i, v := range vs {
		l.AddTerm(v, coeffs[i])
	}
	return l
}

// AddExpr adds `c` times `e` and returns itself.
func (l *LinearExpr) AddExpr(e *LinearExpr, c float64) *LinearExpr {
	for _, t := range e.terms {
		l.AddTerm(t.v, t.coeff*c)
	}
	l.offset += e.offset * c
	return l
}

// Offset returns the constant of the expression.
func (l *LinearExpr) Offset() float64 { return l.offset }

// Len returns the number of terms, before merging repeated variables.
func (l *LinearExpr) Len() int { return len(l.terms) }

// Evaluate returns the value of the expression for the given variable values,
// indexed like the model's variables.
func (l *LinearExpr) Evaluate(values []float64) float64 {
	result := l.offset
	for _, t := range l.terms {
		result += t.coeff * values[t.v.index]
	}
	return result
}
