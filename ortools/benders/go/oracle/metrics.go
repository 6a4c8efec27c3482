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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultCut     = "cut"
	resultNoCut   = "no_cut"
	resultFailure = "failure"
	resultInvalid = "invalid_point"
)

var (
	// separations counts Separate calls by result.
	separations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "benders_oracle_separations_total",
		Help: "Total worker separations by result",
	}, []string{"result"})

	solveSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "benders_oracle_solve_duration_seconds",
		Help:    "Worker LP solve duration",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
	})

	poolBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "benders_oracle_pool_batch_points",
		Help:    "Number of points per SeparateAll call",
		Buckets: []float64{1, 2, 5, 10, 20, 50},
	})
)
