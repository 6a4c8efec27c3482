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

// Package config loads the TOML configuration of the Benders ATSP solver.
//
// Every key is optional:
//
//	[solver]
//	primal_tolerance = 1e-9
//	dual_tolerance = 1e-9
//	iteration_limit = 0          # worker and master pivots, 0 means none
//
//	[separation]
//	fractional = true            # also separate fractional master points
//	rounded = false              # also separate their greedy rounding
//	max_rounds = 1000
//	workers = 0                  # oracles in the pool, 0 means one per CPU
//	integrality_tolerance = 1e-6
//	violation_tolerance = 1e-6
package config

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
	lp "github.com/ortools-benders/benders/ortools/linear_solver/go"
	"github.com/ortools-benders/benders/ortools/benders/go/master"
)

// ErrInvalid is wrapped by validation errors.
var ErrInvalid = errors.New("config: invalid value")

// Config is the whole configuration file.
type Config struct {
	Solver     SolverConfig     `toml:"solver"`
	Separation SeparationConfig `toml:"separation"`
}

// SolverConfig holds the LP parameters shared by the master and the workers.
type SolverConfig struct {
	PrimalTolerance float64 `toml:"primal_tolerance"`
	DualTolerance   float64 `toml:"dual_tolerance"`
	IterationLimit  int     `toml:"iteration_limit"`
}

// SeparationConfig drives the cut loop and the oracle pool.
type SeparationConfig struct {
	Fractional           bool    `toml:"fractional"`
	Rounded              bool    `toml:"rounded"`
	MaxRounds            int     `toml:"max_rounds"`
	Workers              int     `toml:"workers"`
	IntegralityTolerance float64 `toml:"integrality_tolerance"`
	ViolationTolerance   float64 `toml:"violation_tolerance"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	p := lp.NewParameters()
	loop := master.DefaultOptions()
	return &Config{
		Solver: SolverConfig{
			PrimalTolerance: p.GetDoubleParam(lp.PRIMAL_TOLERANCE),
			DualTolerance:   p.GetDoubleParam(lp.DUAL_TOLERANCE),
			IterationLimit:  p.GetIntegerParam(lp.ITERATION_LIMIT_PARAM),
		},
		Separation: SeparationConfig{
			Fractional:           loop.SeparateFractional,
			Rounded:              loop.SeparateRounded,
			MaxRounds:            loop.MaxRounds,
			IntegralityTolerance: loop.IntegralityTol,
			ViolationTolerance:   loop.ViolationTol,
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	c := Default()
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown key %q in %s", ErrInvalid, undecoded[0].String(), path)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate checks ranges.
func (c *Config) Validate() error {
	switch {
	case c.Solver.PrimalTolerance <= 0:
		return fmt.Errorf("%w: solver.primal_tolerance = %g, want > 0", ErrInvalid, c.Solver.PrimalTolerance)
	case c.Solver.DualTolerance <= 0:
		return fmt.Errorf("%w: solver.dual_tolerance = %g, want > 0", ErrInvalid, c.Solver.DualTolerance)
	case c.Solver.IterationLimit < 0:
		return fmt.Errorf("%w: solver.iteration_limit = %d, want >= 0", ErrInvalid, c.Solver.IterationLimit)
	case c.Separation.MaxRounds < 0:
		return fmt.Errorf("%w: separation.max_rounds = %d, want >= 0", ErrInvalid, c.Separation.MaxRounds)
	case c.Separation.Workers < 0:
		return fmt.Errorf("%w: separation.workers = %d, want >= 0", ErrInvalid, c.Separation.Workers)
	case c.Separation.IntegralityTolerance <= 0 || c.Separation.IntegralityTolerance >= 0.5:
		return fmt.Errorf("%w: separation.integrality_tolerance = %g, want in (0, 0.5)", ErrInvalid, c.Separation.IntegralityTolerance)
	case c.Separation.ViolationTolerance < 0:
		return fmt.Errorf("%w: separation.violation_tolerance = %g, want >= 0", ErrInvalid, c.Separation.ViolationTolerance)
	}
	return nil
}

// Parameters returns the LP parameters for the master and the worker solves.
func (c *Config) Parameters() lp.Parameters {
	p := lp.NewParameters()
	p.SetDoubleParam(lp.PRIMAL_TOLERANCE, c.Solver.PrimalTolerance)
	p.SetDoubleParam(lp.DUAL_TOLERANCE, c.Solver.DualTolerance)
	p.SetIntegerParam(lp.ITERATION_LIMIT_PARAM, c.Solver.IterationLimit)
	return p
}

// LoopOptions returns the cut loop options.
func (c *Config) LoopOptions() master.Options {
	return master.Options{
		MaxRounds:          c.Separation.MaxRounds,
		SeparateFractional: c.Separation.Fractional,
		SeparateRounded:    c.Separation.Rounded,
		IntegralityTol:     c.Separation.IntegralityTolerance,
		ViolationTol:       c.Separation.ViolationTolerance,
	}
}
