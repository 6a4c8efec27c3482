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

// The benders_atsp command solves an asymmetric travelling salesman instance
// with Benders cuts: a master LP over the arcs with degree constraints, and a
// worker LP per separation that proves every node reachable from node 0 or
// returns a violated cut.
//
// Usage:
//
//	benders_atsp [-config benders.toml] [-separate_fractional=false] [instance.dat]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	log "github.com/golang/glog"
	"github.com/ortools-benders/benders/ortools/benders/go/atspdata"
	"github.com/ortools-benders/benders/ortools/benders/go/config"
	"github.com/ortools-benders/benders/ortools/benders/go/master"
	"github.com/ortools-benders/benders/ortools/benders/go/oracle"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	configFile         = flag.String("config", "", "Path to a TOML configuration file; defaults are used if empty")
	separateFractional = flag.Bool("separate_fractional", true, "Also separate fractional master points with user cuts")
	exportLP           = flag.String("export_lp", "", "If set, write the final master LP in LP format to this file")
	jsonOutput         = flag.Bool("json", false, "Print the result and the cuts as JSON")
)

const defaultInstance = "ortools/benders/go/atspdata/testdata/atsp.dat"

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			return nil, err
		}
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "separate_fractional" {
			cfg.Separation.Fractional = *separateFractional
		}
	})
	return cfg, nil
}

func resultAsJSON(res *master.Result) (string, error) {
	cuts := []any{}
	for _, c := range res.Cuts {
		s, err := c.Cut.AsStruct()
		if err != nil {
			return "", err
		}
		s.Fields["kind"] = structpb.NewStringValue(c.Kind.String())
		s.Fields["round"] = structpb.NewNumberValue(float64(c.Round))
		cuts = append(cuts, s.AsMap())
	}
	tour := []any{}
	for _, node := range res.Tour {
		tour = append(tour, node)
	}
	s, err := structpb.NewStruct(map[string]any{
		"stop":      res.Stop.String(),
		"optimal":   res.Optimal(),
		"objective": res.Objective,
		"rounds":    res.Rounds,
		"lazy_cuts": res.LazyCuts,
		"user_cuts": res.UserCuts,
		"tour":      tour,
		"cuts":      cuts,
	})
	if err != nil {
		return "", err
	}
	b, err := protojson.MarshalOptions{Multiline: true}.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func bendersATSP(ctx context.Context, instance string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	costs, err := atspdata.ReadFile(instance)
	if err != nil {
		return fmt.Errorf("failed to read the instance: %w", err)
	}
	if cfg.Separation.Fractional {
		fmt.Println("Integer and fractional infeasible solutions.")
	} else {
		fmt.Println("Only integer infeasible solutions.")
	}

	model, err := master.NewModel(costs, cfg.Parameters())
	if err != nil {
		return fmt.Errorf("failed to build the master LP: %w", err)
	}
	pool, err := oracle.NewPool(len(costs), cfg.Separation.Workers, oracle.WithSolverParameters(cfg.Parameters()))
	if err != nil {
		return fmt.Errorf("failed to build the worker oracles: %w", err)
	}
	defer pool.Close()
	log.Infof("%d nodes, %d worker oracles", len(costs), pool.Size())

	loop, err := master.NewCutLoop(model, pool, cfg.LoopOptions())
	if err != nil {
		return err
	}
	res, err := loop.Run(ctx)
	if err != nil {
		return fmt.Errorf("cut loop failed: %w", err)
	}

	if *exportLP != "" {
		text, err := model.ExportModelAsLpFormat()
		if err != nil {
			return fmt.Errorf("failed to export the master LP: %w", err)
		}
		if err := os.WriteFile(*exportLP, []byte(text), 0o644); err != nil {
			return err
		}
	}

	if *jsonOutput {
		text, err := resultAsJSON(res)
		if err != nil {
			return fmt.Errorf("failed to encode the result: %w", err)
		}
		fmt.Println(text)
		return nil
	}

	fmt.Printf("Solution status: %v\n", res.Stop)
	fmt.Printf("Objective value: %g\n", res.Objective)
	fmt.Printf("Rounds: %d, lazy constraints: %d, user cuts: %d\n", res.Rounds, res.LazyCuts, res.UserCuts)
	for _, err := range res.Failures {
		fmt.Printf("Separation failure: %v\n", err)
	}
	if !res.Optimal() {
		fmt.Println("Solution status is not Optimal")
		return nil
	}
	nodes := make([]string, len(res.Tour))
	for i, node := range res.Tour {
		nodes[i] = fmt.Sprint(node)
	}
	fmt.Println("Optimal tour:")
	fmt.Println(strings.Join(nodes, ", "))
	fmt.Printf("Tour cost: %g\n", model.TourCost(res.Tour))
	return nil
}

func main() {
	flag.Parse()
	instance := defaultInstance
	if flag.NArg() > 0 {
		instance = flag.Arg(0)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := bendersATSP(ctx, instance); err != nil {
		log.Exitf("bendersATSP returned with error: %v", err)
	}
}
