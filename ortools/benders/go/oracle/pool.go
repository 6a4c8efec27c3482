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
	"context"
	"fmt"
	"sync"

	log "github.com/golang/glog"
	"github.com/panjf2000/ants/v2"
	"github.com/shirou/gopsutil/v3/cpu"
)

// DefaultWorkers returns the number of logical CPUs, or 1 if it cannot be read.
func DefaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		log.Warningf("cannot read logical CPU count (%v), using 1 worker", err)
		return 1
	}
	return n
}

// Pool owns a fixed set of oracles for the same node count. An oracle is used
// by at most one goroutine at a time: it is handed out over a channel and must
// be handed back after use.
type Pool struct {
	n       int
	all     []*Oracle
	oracles chan *Oracle
	workers *ants.PoolWithFunc
}

// Result is the outcome of one separation of SeparateAll.
type Result struct {
	Cut *Cut
	Err error
}

type task struct {
	ctx   context.Context
	point [][]float64
	out   *Result
	wg    *sync.WaitGroup
}

// NewPool builds size oracles for numNodes nodes. A size below 1 means
// DefaultWorkers().
func NewPool(numNodes, size int, opts ...Option) (*Pool, error) {
	if size < 1 {
		size = DefaultWorkers()
	}
	p := &Pool{n: numNodes, oracles: make(chan *Oracle, size)}
	for w := 0; w < size; w++ {
		wopts := append([]Option{WithName(fmt.Sprintf("atsp_worker_%d_%d", numNodes, w))}, opts...)
		o, err := New(numNodes, wopts...)
		if err != nil {
			p.closeOracles()
			return nil, err
		}
		p.all = append(p.all, o)
		p.oracles <- o
	}
	workers, err := ants.NewPoolWithFunc(size, p.run)
	if err != nil {
		p.closeOracles()
		return nil, fmt.Errorf("%w: %v", ErrBackendInit, err)
	}
	p.workers = workers
	return p, nil
}

// Size returns the number of oracles.
func (p *Pool) Size() int { return len(p.all) }

// NumNodes returns the node count shared by all oracles.
func (p *Pool) NumNodes() int { return p.n }

// Acquire waits for a free oracle. The caller owns it until Release.
func (p *Pool) Acquire(ctx context.Context) (*Oracle, error) {
	select {
	case o := <-p.oracles:
		return o, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release hands an oracle obtained from Acquire back to the pool.
func (p *Pool) Release(o *Oracle) { p.oracles <- o }

// Separate runs one separation on a free oracle.
func (p *Pool) Separate(ctx context.Context, point [][]float64) (*Cut, error) {
	o, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(o)
	return o.Separate(point)
}

// SeparateAll separates every point concurrently and returns the results in the
// order of points.
func (p *Pool) SeparateAll(ctx context.Context, points [][][]float64) []Result {
	poolBatchSize.Observe(float64(len(points)))
	results := make([]Result, len(points))
	var wg sync.WaitGroup
	for i := range points {
		wg.Add(1)
		t := &task{ctx: ctx, point: points[i], out: &results[i], wg: &wg}
		if err := p.workers.Invoke(t); err != nil {
			results[i].Err = err
			wg.Done()
		}
	}
	wg.Wait()
	return results
}

func (p *Pool) run(arg interface{}) {
	t := arg.(*task)
	defer t.wg.Done()
	t.out.Cut, t.out.Err = p.Separate(t.ctx, t.point)
}

// Close stops the workers and releases every oracle. Oracles must have been
// released before.
func (p *Pool) Close() {
	if p.workers != nil {
		p.workers.Release()
	}
	p.closeOracles()
}

func (p *Pool) closeOracles() {
	for _, o := range p.all {
		o.Close()
	}
	p.all = nil
}
