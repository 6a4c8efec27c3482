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
	"fmt"

	log "github.com/golang/glog"
	"github.com/ortools-benders/benders/ortools/benders/go/oracle"
)

// ErrWeakCut is recorded when the oracle returns a cut that its own point does
// not violate.
var ErrWeakCut = errors.New("master: cut is not violated by its point")

// Options configures a CutLoop.
type Options struct {
	// MaxRounds bounds the number of master solves; 0 means no bound.
	MaxRounds int
	// SeparateFractional also separates fractional master points. Without it
	// the loop stops at the first fractional point.
	SeparateFractional bool
	// SeparateRounded also separates the greedy rounding of a fractional point,
	// concurrently with the point itself.
	SeparateRounded bool
	IntegralityTol  float64
	ViolationTol    float64
}

// DefaultOptions returns the options used by the sample program.
func DefaultOptions() Options {
	return Options{
		MaxRounds:          1000,
		SeparateFractional: true,
		IntegralityTol:     1e-6,
		ViolationTol:       1e-6,
	}
}

// StopReason says why Run returned.
type StopReason int

const (
	// StopNoCut means the last master point was separated and no cut exists.
	StopNoCut StopReason = iota
	// StopFractional means the last master point is fractional and was not
	// separated, or no cut exists for it.
	StopFractional
	// StopRoundLimit means Options.MaxRounds was reached.
	StopRoundLimit
	// StopOracleFailure means the oracle could not separate the last point.
	StopOracleFailure
)

func (s StopReason) String() string {
	switch s {
	case StopNoCut:
		return "no cut"
	case StopFractional:
		return "fractional"
	case StopRoundLimit:
		return "round limit"
	case StopOracleFailure:
		return "oracle failure"
	}
	return fmt.Sprintf("StopReason(%d)", int(s))
}

// Result summarizes a Run.
type Result struct {
	Stop      StopReason
	Rounds    int
	LazyCuts  int
	UserCuts  int
	Objective float64
	Point     [][]float64
	// Tour is set when the last point is an integral tour the oracle accepted.
	Tour []int
	// Cuts lists the cuts added to the master, in order.
	Cuts []AddedCut
	// Failures holds the separation errors that were tolerated.
	Failures []error
}

// AddedCut is a cut together with the way it was added.
type AddedCut struct {
	Kind  CutKind
	Round int
	Cut   *oracle.Cut
}

// Optimal reports whether Tour is proven optimal: the master LP optimum is
// integral and the oracle found no cut for it.
func (r *Result) Optimal() bool { return r.Stop == StopNoCut && r.Tour != nil }

// Inconclusive reports whether the loop ended before the oracle accepted the
// master point. Objective is then only a lower bound.
func (r *Result) Inconclusive() bool { return !r.Optimal() }

// CutLoop alternates master solves and separations until no cut is found.
type CutLoop struct {
	model *Model
	pool  *oracle.Pool
	opts  Options
}

// NewCutLoop returns a loop over model that separates with pool.
func NewCutLoop(model *Model, pool *oracle.Pool, opts Options) (*CutLoop, error) {
	if model.NumNodes() != pool.NumNodes() {
		return nil, fmt.Errorf("master has %d nodes, oracle pool %d", model.NumNodes(), pool.NumNodes())
	}
	return &CutLoop{model: model, pool: pool, opts: opts}, nil
}

// Run executes the loop. It returns an error only when ctx is done, the master
// LP fails, or the oracle reports an inconsistent ray; oracle failures end the
// loop with the cuts found so far and are listed in Result.Failures.
func (l *CutLoop) Run(ctx context.Context) (*Result, error) {
	res := &Result{}
	for {
		if l.opts.MaxRounds > 0 && res.Rounds >= l.opts.MaxRounds {
			res.Stop = StopRoundLimit
			log.Warningf("cut loop: round limit %d reached, objective %g is a lower bound", l.opts.MaxRounds, res.Objective)
			return res, nil
		}
		sol, err := l.model.Solve(ctx)
		if err != nil {
			return res, err
		}
		res.Rounds++
		res.Objective = sol.Objective
		res.Point = sol.Point

		sctx := Classify(sol.Point, l.opts.IntegralityTol)
		if sctx == Relaxation && !l.opts.SeparateFractional {
			res.Stop = StopFractional
			log.Infof("cut loop: round %d: fractional master point, stopping with bound %g", res.Rounds, res.Objective)
			return res, nil
		}

		points := [][][]float64{sol.Point}
		contexts := []SeparationContext{sctx}
		if sctx == Relaxation && l.opts.SeparateRounded {
			if succ := RoundSuccessors(sol.Point); succ != nil {
				points = append(points, IncidenceMatrix(succ))
				contexts = append(contexts, Candidate)
			}
		}
		results := l.pool.SeparateAll(ctx, points)

		for t, r := range results {
			switch {
			case r.Err == nil:
			case errors.Is(r.Err, oracle.ErrInconsistentRay):
				return res, r.Err
			case ctx.Err() != nil:
				return res, ctx.Err()
			default:
				log.Warningf("cut loop: round %d: %v separation failed: %v", res.Rounds, contexts[t], r.Err)
				res.Failures = append(res.Failures, r.Err)
				continue
			}
			if r.Cut == nil {
				continue
			}
			kind := contexts[t].CutKind()
			if err := l.model.AddCut(r.Cut, kind); err != nil {
				return res, err
			}
			res.Cuts = append(res.Cuts, AddedCut{Kind: kind, Round: res.Rounds, Cut: r.Cut})
			if kind == LazyConstraint {
				res.LazyCuts++
			} else {
				res.UserCuts++
			}
			log.V(1).Infof("cut loop: round %d: %v cut, violation %g", res.Rounds, kind, r.Cut.Violation(points[t]))
		}

		first := results[0]
		switch {
		case first.Err != nil:
			res.Stop = StopOracleFailure
			log.Warningf("cut loop: round %d: continuing without the oracle, %d lazy and %d user cuts found so far",
				res.Rounds, res.LazyCuts, res.UserCuts)
			return res, nil
		case first.Cut == nil && sctx == Relaxation:
			res.Stop = StopFractional
			log.Infof("cut loop: round %d: no cut for the fractional point, bound %g", res.Rounds, res.Objective)
			return res, nil
		case first.Cut == nil:
			succ, err := SuccessorsFromPoint(sol.Point, l.opts.IntegralityTol)
			if err != nil {
				return res, err
			}
			tour, err := TourFromSuccessors(succ)
			if err != nil {
				return res, fmt.Errorf("oracle accepted a point with subtours: %w", err)
			}
			res.Stop = StopNoCut
			res.Tour = tour
			log.Infof("cut loop: optimal tour of cost %g after %d rounds", res.Objective, res.Rounds)
			return res, nil
		case !first.Cut.IsViolatedBy(sol.Point, l.opts.ViolationTol):
			err := fmt.Errorf("%w: round %d, violation %g", ErrWeakCut, res.Rounds, first.Cut.Violation(sol.Point))
			log.Warning(err)
			res.Failures = append(res.Failures, err)
			res.Stop = StopOracleFailure
			return res, nil
		}
		if log.V(1) && sctx == Candidate {
			if succ, err := SuccessorsFromPoint(sol.Point, l.opts.IntegralityTol); err == nil {
				if cycles, err := Subtours(succ); err == nil {
					log.Infof("cut loop: round %d: candidate has %d subtours, smallest %v", res.Rounds, len(cycles), cycles[0])
				}
			}
		}
	}
}
