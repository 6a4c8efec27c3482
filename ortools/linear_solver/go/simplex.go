package linearsolver

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// pivotTol is the smallest column entry accepted as a pivot in the ratio test.
	pivotTol = 1e-9
	// rayZeroTol drops ray components that are round-off noise.
	rayZeroTol = 1e-12
)

type simplexOptions struct {
	primalTol float64
	dualTol   float64
	maxIter   int
	stop      *atomic.Bool
}

type simplexResult struct {
	status     Status
	y          []float64 // standard form values, valid when OPTIMAL
	ray        []float64 // standard form ray, valid when UNBOUNDED
	iterations int
}

// colCoef is one standard-form column in the image of an original variable.
type colCoef struct {
	col  int
	sign float64
}

// colMap writes an original variable as shift + sum(sign * y[col]).
type colMap struct {
	shift float64
	cols  []colCoef
}

// rowSense is the sense of a standard-form row before slacks are added.
type rowSense int

const (
	senseLE rowSense = iota
	senseGE
	senseEQ
)

type stdRow struct {
	coeffs map[int]float64
	sense  rowSense
	rhs    float64
}

// standardForm is the model rewritten as
//
//	minimize cost.y  s.t.  rows over y, y >= 0.
type standardForm struct {
	ls   *LinearSolver
	maps []colMap
	ny   int
	rows []stdRow
	cost []float64
}

// newStandardForm maps the model of ls to a standard form. It returns a status
// other than NOT_SOLVED when the model is trivially infeasible.
func newStandardForm(ls *LinearSolver) (*standardForm, Status) {
	sf := &standardForm{ls: ls, maps: make([]colMap, len(ls.vars))}
	newCol := func() int {
		sf.ny++
		return sf.ny - 1
	}

	for j, v := range ls.vars {
		lbFinite, ubFinite := !math.IsInf(v.lb, -1), !math.IsInf(v.ub, 1)
		switch {
		case lbFinite && ubFinite && v.lb > v.ub:
			return nil, INFEASIBLE
		case lbFinite && ubFinite && v.lb == v.ub:
			sf.maps[j] = colMap{shift: v.lb}
		case lbFinite:
			c := newCol()
			sf.maps[j] = colMap{shift: v.lb, cols: []colCoef{{c, 1}}}
			if ubFinite {
				sf.rows = append(sf.rows, stdRow{coeffs: map[int]float64{c: 1}, sense: senseLE, rhs: v.ub - v.lb})
			}
		case ubFinite:
			c := newCol()
			sf.maps[j] = colMap{shift: v.ub, cols: []colCoef{{c, -1}}}
		default:
			pos, neg := newCol(), newCol()
			sf.maps[j] = colMap{cols: []colCoef{{pos, 1}, {neg, -1}}}
		}
	}

	for _, c := range ls.cons {
		if !math.IsInf(c.lb, -1) && !math.IsInf(c.ub, 1) && c.lb > c.ub {
			return nil, INFEASIBLE
		}
		coeffs := make(map[int]float64)
		k := 0.0
		for _, j := range sortedKeys(c.coeffs) {
			a := c.coeffs[j]
			m := sf.maps[j]
			k += a * m.shift
			for _, cc := range m.cols {
				coeffs[cc.col] += a * cc.sign
			}
		}
		for col, a := range coeffs {
			if a == 0 {
				delete(coeffs, col)
			}
		}
		if len(coeffs) == 0 {
			if k < c.lb || k > c.ub {
				return nil, INFEASIBLE
			}
			continue
		}
		switch {
		case c.lb == c.ub:
			sf.rows = append(sf.rows, stdRow{coeffs: coeffs, sense: senseEQ, rhs: c.lb - k})
		default:
			if !math.IsInf(c.ub, 1) {
				sf.rows = append(sf.rows, stdRow{coeffs: coeffs, sense: senseLE, rhs: c.ub - k})
			}
			if !math.IsInf(c.lb, -1) {
				sf.rows = append(sf.rows, stdRow{coeffs: coeffs, sense: senseGE, rhs: c.lb - k})
			}
		}
	}

	sf.cost = make([]float64, sf.ny)
	sign := 1.0
	if ls.obj.maximize {
		sign = -1
	}
	for j, a := range ls.obj.coeffs {
		for _, cc := range sf.maps[j].cols {
			sf.cost[cc.col] += sign * a * cc.sign
		}
	}
	return sf, NOT_SOLVED
}

// originalValues maps standard form values back to the model variables.
func (sf *standardForm) originalValues(y []float64) []float64 {
	x := make([]float64, len(sf.maps))
	for j, m := range sf.maps {
		x[j] = m.shift
		for _, cc := range m.cols {
			x[j] += cc.sign * y[cc.col]
		}
	}
	return x
}

// originalRay maps a standard form ray back to the model variables and keeps the
// non-zero components.
func (sf *standardForm) originalRay(ray []float64) []RayEntry {
	out := []RayEntry{}
	for j, m := range sf.maps {
		d := 0.0
		for _, cc := range m.cols {
			d += cc.sign * ray[cc.col]
		}
		if math.Abs(d) > rayZeroTol {
			out = append(out, RayEntry{Variable: &Variable{index: j, ls: sf.ls}, Value: d})
		}
	}
	return out
}

// tableau is a dense simplex tableau. Columns are the structural columns, then
// slacks, then artificials; the last column of t holds the right-hand side.
type tableau struct {
	t         *mat.Dense
	m, n      int
	firstArt  int
	basis     []int
	basicRow  []int
	d         []float64 // reduced costs, d[n] = -objective
	opts      simplexOptions
	iteration int
}

func (sf *standardForm) solve(opts simplexOptions) simplexResult {
	m := len(sf.rows)
	if m == 0 {
		return sf.solveUnconstrained(opts)
	}

	// Rows with a negative right-hand side are negated so that the initial basis
	// is primal feasible. A slack entering a row with +1 starts basic, other rows
	// get an artificial.
	type rowPlan struct {
		sign     float64
		slack    float64 // coefficient of the slack after negation, 0 if none
		needsArt bool
		slackCol int
		artCol   int
		rhs      float64
		coeffs   map[int]float64
	}
	plans := make([]rowPlan, m)
	nSlack := 0
	for i, r := range sf.rows {
		p := rowPlan{sign: 1, slackCol: -1, artCol: -1, rhs: r.rhs, coeffs: r.coeffs}
		switch r.sense {
		case senseLE:
			p.slack = 1
		case senseGE:
			p.slack = -1
		}
		if p.slack != 0 {
			p.slackCol = sf.ny + nSlack
			nSlack++
		}
		if r.rhs < 0 {
			p.sign = -1
			p.slack = -p.slack
			p.rhs = -r.rhs
		}
		p.needsArt = p.slack != 1
		plans[i] = p
	}
	firstArt := sf.ny + nSlack
	n := firstArt
	for i := range plans {
		if plans[i].needsArt {
			plans[i].artCol = n
			n++
		}
	}

	tb := &tableau{
		t:        mat.NewDense(m, n+1, nil),
		m:        m,
		n:        n,
		firstArt: firstArt,
		basis:    make([]int, m),
		basicRow: make([]int, n),
		d:        make([]float64, n+1),
		opts:     opts,
	}
	for j := range tb.basicRow {
		tb.basicRow[j] = -1
	}
	for i, p := range plans {
		row := tb.t.RawRowView(i)
		for col, a := range p.coeffs {
			row[col] = p.sign * a
		}
		if p.slackCol >= 0 {
			row[p.slackCol] = p.slack
		}
		row[n] = p.rhs
		basic := p.slackCol
		if p.needsArt {
			row[p.artCol] = 1
			basic = p.artCol
		}
		tb.basis[i] = basic
		tb.basicRow[basic] = i
	}

	if n > firstArt {
		// Phase I: minimize the sum of artificials.
		for j := firstArt; j < n; j++ {
			tb.d[j] = 1
		}
		bnorm := 0.0
		for i, p := range plans {
			bnorm = math.Max(bnorm, p.rhs)
			if p.needsArt {
				floats.AddScaled(tb.d, -1, tb.t.RawRowView(i))
			}
		}
		status, _ := tb.run(func(int) bool { return true })
		switch status {
		case OPTIMAL:
		case UNBOUNDED:
			return simplexResult{status: ABNORMAL, iterations: tb.iteration}
		default:
			return simplexResult{status: status, iterations: tb.iteration}
		}
		if -tb.d[n] > opts.primalTol*(1+bnorm) {
			return simplexResult{status: INFEASIBLE, iterations: tb.iteration}
		}
		tb.driveOutArtificials()
	}

	// Phase II.
	for j := range tb.d {
		tb.d[j] = 0
	}
	copy(tb.d, sf.cost)
	for i, b := range tb.basis {
		if b < sf.ny && sf.cost[b] != 0 {
			floats.AddScaled(tb.d, -sf.cost[b], tb.t.RawRowView(i))
		}
	}
	status, q := tb.run(func(j int) bool { return j < firstArt })
	res := simplexResult{status: status, iterations: tb.iteration}
	switch status {
	case OPTIMAL:
		res.y = make([]float64, sf.ny)
		for i, b := range tb.basis {
			if b < sf.ny {
				res.y[b] = math.Max(0, tb.t.At(i, n))
			}
		}
	case UNBOUNDED:
		res.ray = make([]float64, sf.ny)
		if q < sf.ny {
			res.ray[q] = 1
		}
		for i, b := range tb.basis {
			if b < sf.ny {
				res.ray[b] = -tb.t.At(i, q)
			}
		}
	}
	return res
}

// solveUnconstrained handles a model whose standard form has no rows: every
// column is only bounded below by zero.
func (sf *standardForm) solveUnconstrained(opts simplexOptions) simplexResult {
	for j, c := range sf.cost {
		if c < -opts.dualTol {
			ray := make([]float64, sf.ny)
			ray[j] = 1
			return simplexResult{status: UNBOUNDED, ray: ray}
		}
	}
	return simplexResult{status: OPTIMAL, y: make([]float64, sf.ny)}
}

// run pivots with Bland's rule until optimality or unboundedness. On UNBOUNDED
// it also returns the entering column.
func (tb *tableau) run(enterable func(int) bool) (Status, int) {
	for {
		if tb.opts.stop != nil && tb.opts.stop.Load() {
			return INTERRUPTED, -1
		}
		if tb.opts.maxIter > 0 && tb.iteration >= tb.opts.maxIter {
			return ITERATION_LIMIT, -1
		}
		q := -1
		for j := 0; j < tb.n; j++ {
			if tb.basicRow[j] < 0 && enterable(j) && tb.d[j] < -tb.opts.dualTol {
				q = j
				break
			}
		}
		if q < 0 {
			return OPTIMAL, -1
		}
		r := -1
		best := math.Inf(1)
		for i := 0; i < tb.m; i++ {
			a := tb.t.At(i, q)
			if a <= pivotTol {
				continue
			}
			ratio := math.Max(0, tb.t.At(i, tb.n)) / a
			switch {
			case r < 0 || ratio < best-tb.opts.primalTol:
				r, best = i, ratio
			case ratio <= best+tb.opts.primalTol && tb.basis[i] < tb.basis[r]:
				r = i
			}
		}
		if r < 0 {
			return UNBOUNDED, q
		}
		tb.pivot(r, q)
		tb.iteration++
	}
}

func (tb *tableau) pivot(r, q int) {
	row := tb.t.RawRowView(r)
	floats.Scale(1/row[q], row)
	for i := 0; i < tb.m; i++ {
		if i == r {
			continue
		}
		ri := tb.t.RawRowView(i)
		if f := ri[q]; f != 0 {
			floats.AddScaled(ri, -f, row)
			ri[q] = 0
		}
	}
	if f := tb.d[q]; f != 0 {
		floats.AddScaled(tb.d, -f, row)
		tb.d[q] = 0
	}
	tb.basicRow[tb.basis[r]] = -1
	tb.basis[r] = q
	tb.basicRow[q] = r
}

// driveOutArtificials pivots basic artificials, all at level zero after a
// feasible phase I, out of the basis. Rows where no other column is available
// are redundant and keep their artificial, which can never leave zero because no
// phase II column has a non-zero entry in that row.
func (tb *tableau) driveOutArtificials() {
	for i := 0; i < tb.m; i++ {
		if tb.basis[i] < tb.firstArt {
			continue
		}
		row := tb.t.RawRowView(i)
		row[tb.n] = 0
		for j := 0; j < tb.firstArt; j++ {
			if tb.basicRow[j] < 0 && math.Abs(row[j]) > pivotTol {
				tb.pivot(i, j)
				break
			}
		}
	}
}
