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
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/testing/protocmp"
	"google.golang.org/protobuf/types/known/structpb"
)

func sampleCut() *Cut {
	return &Cut{
		Coeffs: [][]float64{{0, 1, 0}, {0, 0, 2}, {0.5, 0, 0}},
		Rhs:    1,
	}
}

func TestCutActivity(t *testing.T) {
	c := sampleCut()
	point := [][]float64{{0, 1, 0}, {0, 0, 0}, {1, 0, 0}}
	if got := c.Activity(point); got != 1.5 {
		t.Errorf("Activity() = %g, want 1.5", got)
	}
	if got := c.Violation(point); got != -0.5 {
		t.Errorf("Violation() = %g, want -0.5", got)
	}
	if c.IsViolatedBy(point, 1e-6) {
		t.Error("IsViolatedBy() = true, want false")
	}
	empty := [][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}}
	if !c.IsViolatedBy(empty, 1e-6) {
		t.Error("IsViolatedBy(empty) = false, want true")
	}
}

func TestCutTerms(t *testing.T) {
	want := []Term{
		{From: 0, To: 1, Coeff: 1},
		{From: 1, To: 2, Coeff: 2},
		{From: 2, To: 0, Coeff: 0.5},
	}
	if diff := cmp.Diff(want, sampleCut().Terms()); diff != "" {
		t.Errorf("Terms() returned with unexpected diff (-want+got):\n%s", diff)
	}
	if got, want := sampleCut().String(), "1*x[0][1] + 2*x[1][2] + 0.5*x[2][0] >= 1"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := newCut(2).String(), "0 >= 0"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestCutAsStruct(t *testing.T) {
	got, err := sampleCut().AsStruct()
	if err != nil {
		t.Fatalf("AsStruct() err = %v, want nil", err)
	}
	term := func(from, to int, coeff float64) *structpb.Value {
		return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"from":  structpb.NewNumberValue(float64(from)),
			"to":    structpb.NewNumberValue(float64(to)),
			"coeff": structpb.NewNumberValue(coeff),
		}})
	}
	want := &structpb.Struct{Fields: map[string]*structpb.Value{
		"rhs": structpb.NewNumberValue(1),
		"terms": structpb.NewListValue(&structpb.ListValue{Values: []*structpb.Value{
			term(0, 1, 1), term(1, 2, 2), term(2, 0, 0.5),
		}}),
	}}
	if diff := cmp.Diff(want, got, protocmp.Transform()); diff != "" {
		t.Errorf("AsStruct() returned with unexpected diff (-want+got):\n%s", diff)
	}
}
