// Package linearsolver is a small pure-Go linear programming backend.
//
// It keeps the shape of the MPSolver API (variables, row constraints, one linear
// objective, parameters and a status enum) and solves with a dense primal
// simplex. When a problem is unbounded, the solver keeps the unbounded ray so that
// callers such as Benders separators can turn it into a cut.
package linearsolver

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	log "github.com/golang/glog"
)

// ProblemType selects the solving technology of a LinearSolver.
type ProblemType int

const (
	// SIMPLEX_LINEAR_PROGRAMMING is the only supported problem type.
	SIMPLEX_LINEAR_PROGRAMMING ProblemType = iota
	// MIXED_INTEGER_PROGRAMMING is recognized but not supported by this backend.
	MIXED_INTEGER_PROGRAMMING
)

func (t ProblemType) String() string {
	switch t {
	case SIMPLEX_LINEAR_PROGRAMMING:
		return "SIMPLEX_LINEAR_PROGRAMMING"
	case MIXED_INTEGER_PROGRAMMING:
		return "MIXED_INTEGER_PROGRAMMING"
	}
	return fmt.Sprintf("ProblemType(%d)", int(t))
}

// Status is the result of a solve.
type Status int

const (
	NOT_SOLVED Status = iota
	OPTIMAL
	INFEASIBLE
	UNBOUNDED
	ABNORMAL
	MODEL_INVALID
	ITERATION_LIMIT
	INTERRUPTED
)

var statusNames = map[Status]string{
	NOT_SOLVED:      "NOT_SOLVED",
	OPTIMAL:         "OPTIMAL",
	INFEASIBLE:      "INFEASIBLE",
	UNBOUNDED:       "UNBOUNDED",
	ABNORMAL:        "ABNORMAL",
	MODEL_INVALID:   "MODEL_INVALID",
	ITERATION_LIMIT: "ITERATION_LIMIT",
	INTERRUPTED:     "INTERRUPTED",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ErrRayUnavailable is returned by UnboundedRay when the last solve did not end
// with an unbounded status, or when presolve was on and the ray was discarded.
var ErrRayUnavailable = errors.New("linearsolver: no unbounded ray available")

// errIntegerOnly rejects integer variables at solve time; they can still be
// built and exported.
var errIntegerOnly = errors.New("integer variables are not supported, only continuous ones")

// ErrNoSolution is returned when solution values are requested without an
// optimal solve.
var ErrNoSolution = errors.New("linearsolver: no optimal solution available")

type (
	// DoubleParam names a floating point parameter.
	DoubleParam int
	// IntegerParam names an integer parameter.
	IntegerParam int
)

// Parameters holds the solve parameters.
//
// Use it like this:
//
//	p := NewParameters()
//	p.SetDoubleParam(PRIMAL_TOLERANCE, 1e-7)
//	p.SetIntegerParam(PRESOLVE, PRESOLVE_OFF)
//
// (See the block of constants defined below.)
type Parameters struct {
	doubles  map[DoubleParam]float64
	integers map[IntegerParam]int
}

// Constants used in Parameters getters/setters.
const (
	// Double params.
	PRIMAL_TOLERANCE DoubleParam = iota
	DUAL_TOLERANCE
)

const (
	// Integer params.
	PRESOLVE IntegerParam = iota
	LP_ALGORITHM
	// ITERATION_LIMIT_PARAM bounds the number of simplex pivots; 0 means no limit.
	ITERATION_LIMIT_PARAM
)

// Categorical parameter values.
const (
	PRESOLVE_OFF = 0
	PRESOLVE_ON  = 1

	DUAL    = 10
	PRIMAL  = 11
	BARRIER = 12
)

const (
	defaultPrimalTolerance = 1e-9
	defaultDualTolerance   = 1e-9
)

// NewParameters returns parameters holding the defaults: presolve on, primal
// simplex, tolerances of 1e-9 and no iteration limit.
func NewParameters() Parameters {
	return Parameters{
		doubles: map[DoubleParam]float64{
			PRIMAL_TOLERANCE: defaultPrimalTolerance,
			DUAL_TOLERANCE:   defaultDualTolerance,
		},
		integers: map[IntegerParam]int{
			PRESOLVE:              PRESOLVE_ON,
			LP_ALGORITHM:          PRIMAL,
			ITERATION_LIMIT_PARAM: 0,
		},
	}
}

// SetDoubleParam sets a floating point parameter.
func (p Parameters) SetDoubleParam(k DoubleParam, v float64) {
	p.doubles[k] = v
}

// GetDoubleParam returns a floating point parameter.
func (p Parameters) GetDoubleParam(k DoubleParam) float64 {
	return p.doubles[k]
}

// SetIntegerParam sets an integer parameter.
func (p Parameters) SetIntegerParam(k IntegerParam, v int) {
	p.integers[k] = v
}

// GetIntegerParam returns an integer parameter.
func (p Parameters) GetIntegerParam(k IntegerParam) int {
	return p.integers[k]
}

type varData struct {
	name    string
	lb, ub  float64
	integer bool
}

type consData struct {
	name   string
	lb, ub float64
	coeffs map[int]float64
}

type objData struct {
	coeffs   map[int]float64
	offset   float64
	maximize bool
}

// LinearSolver holds an LP model and the result of its last solve.
//
// A LinearSolver is not safe for concurrent use.
type LinearSolver struct {
	name        string
	problemType ProblemType
	output      bool

	vars      []varData
	varNames  map[string]int
	cons      []consData
	consNames map[string]int
	obj       objData

	status     Status
	values     []float64
	objValue   float64
	ray        []RayEntry
	iterations int
}

// New initializes a new linear solver, given a name and a problem type.
func New(name string, t ProblemType) (*LinearSolver, error) {
	if !SupportsProblemType(t) {
		return nil, fmt.Errorf("problem type %v not supported by the pure Go backend", t)
	}
	return &LinearSolver{
		name:        name,
		problemType: t,
		varNames:    make(map[string]int),
		consNames:   make(map[string]int),
		obj:         objData{coeffs: make(map[int]float64)},
	}, nil
}

// SupportsProblemType returns whether the given problem type is supported.
func SupportsProblemType(t ProblemType) bool {
	return t == SIMPLEX_LINEAR_PROGRAMMING
}

// Name returns the name given at creation.
func (ls *LinearSolver) Name() string { return ls.name }

// ProblemType returns the problem type selected.
func (ls *LinearSolver) ProblemType() ProblemType { return ls.problemType }

// EnableOutput turns on per-solve logging at glog level 1.
func (ls *LinearSolver) EnableOutput() { ls.output = true }

// SuppressOutput turns off per-solve logging.
func (ls *LinearSolver) SuppressOutput() { ls.output = false }

// OutputIsEnabled reports whether per-solve logging is on.
func (ls *LinearSolver) OutputIsEnabled() bool { return ls.output }

// NumVariables returns the number of variables in the model.
func (ls *LinearSolver) NumVariables() int { return len(ls.vars) }

// NumConstraints returns the number of constraints in the model.
func (ls *LinearSolver) NumConstraints() int { return len(ls.cons) }

// Iterations returns the number of simplex pivots of the last solve.
func (ls *LinearSolver) Iterations() int { return ls.iterations }

// Clear removes all variables, constraints and the objective.
func (ls *LinearSolver) Clear() {
	ls.vars = nil
	ls.cons = nil
	ls.varNames = make(map[string]int)
	ls.consNames = make(map[string]int)
	ls.obj = objData{coeffs: make(map[int]float64)}
	ls.Reset()
}

// Reset forgets the result of the last solve but keeps the model.
func (ls *LinearSolver) Reset() {
	ls.status = NOT_SOLVED
	ls.values = nil
	ls.objValue = 0
	ls.ray = nil
	ls.iterations = 0
}

// Variable is a reference to a variable of a LinearSolver.
type Variable struct {
	index int
	ls    *LinearSolver
}

// Constraint is a reference to a row constraint of a LinearSolver.
type Constraint struct {
	index int
	ls    *LinearSolver
}

// Objective is the linear objective of the model.
type Objective struct {
	ls *LinearSolver
}

// MakeVar creates and returns a new variable.
//
// Make `name` an empty string if you would like a unique variable name to be
// generated. Otherwise an error is returned if the provided `name` already
// exists as a variable name.
func (ls *LinearSolver) MakeVar(lb, ub float64, integer bool, name string) (*Variable, error) {
	if name != "" && ls.LookupVar(name) != nil {
		return nil, fmt.Errorf("variable with name %s already exists", name)
	}
	idx := len(ls.vars)
	if name == "" {
		name = fmt.Sprintf("auto_v_%09d", idx)
	}
	ls.vars = append(ls.vars, varData{name: name, lb: lb, ub: ub, integer: integer})
	ls.varNames[name] = idx
	return &Variable{index: idx, ls: ls}, nil
}

// MakeNumVar creates a continuous variable.
func (ls *LinearSolver) MakeNumVar(lb, ub float64, name string) (*Variable, error) {
	return ls.MakeVar(lb, ub, false, name)
}

// LookupVar returns the variable with the given name, or nil if not found.
func (ls *LinearSolver) LookupVar(name string) *Variable {
	idx, ok := ls.varNames[name]
	if !ok {
		return nil
	}
	return &Variable{index: idx, ls: ls}
}

// Variable returns the variable at index i, or nil if out of range.
func (ls *LinearSolver) Variable(i int) *Variable {
	if i < 0 || i >= len(ls.vars) {
		return nil
	}
	return &Variable{index: i, ls: ls}
}

// MakeConstraint creates and returns a new constraint `lb <= 0 <= ub` with no
// terms yet.
//
// Make `name` an empty string if you would like a unique constraint name to be
// generated. Otherwise an error is returned if the provided `name` already
// exists as a constraint name.
func (ls *LinearSolver) MakeConstraint(lb, ub float64, name string) (*Constraint, error) {
	if name != "" && ls.LookupConstraint(name) != nil {
		return nil, fmt.Errorf("constraint with name %s already exists", name)
	}
	idx := len(ls.cons)
	if name == "" {
		name = fmt.Sprintf("auto_c_%09d", idx)
	}
	ls.cons = append(ls.cons, consData{name: name, lb: lb, ub: ub, coeffs: make(map[int]float64)})
	ls.consNames[name] = idx
	return &Constraint{index: idx, ls: ls}, nil
}

// AddConstraint adds the constraint `lb <= expr <= ub`. The constant of `expr` is
// moved to the bounds.
func (ls *LinearSolver) AddConstraint(expr *LinearExpr, lb, ub float64, name string) (*Constraint, error) {
	for _, t := range expr.terms {
		if t.v.ls != ls {
			return nil, fmt.Errorf("constraint %q: %w", name, ErrMixedModels)
		}
	}
	c, err := ls.MakeConstraint(lb-expr.offset, ub-expr.offset, name)
	if err != nil {
		return nil, err
	}
	for _, t := range expr.terms {
		c.AddToCoefficient(t.v, t.coeff)
	}
	return c, nil
}

// LookupConstraint returns the constraint with the given name, or nil if not
// found.
func (ls *LinearSolver) LookupConstraint(name string) *Constraint {
	idx, ok := ls.consNames[name]
	if !ok {
		return nil
	}
	return &Constraint{index: idx, ls: ls}
}

// Objective returns the model's objective.
func (ls *LinearSolver) Objective() Objective {
	return Objective{ls: ls}
}

// Name returns the name of the variable.
func (v *Variable) Name() string { return v.ls.vars[v.index].name }

// Index returns the index of the variable in the model.
func (v *Variable) Index() int { return v.index }

// LB returns the lower bound.
func (v *Variable) LB() float64 { return v.ls.vars[v.index].lb }

// UB returns the upper bound.
func (v *Variable) UB() float64 { return v.ls.vars[v.index].ub }

// Integer reports whether the variable was declared integer.
func (v *Variable) Integer() bool { return v.ls.vars[v.index].integer }

// SetLB sets the lower bound.
func (v *Variable) SetLB(lb float64) { v.ls.vars[v.index].lb = lb }

// SetUB sets the upper bound.
func (v *Variable) SetUB(ub float64) { v.ls.vars[v.index].ub = ub }

// SetBounds sets both bounds.
func (v *Variable) SetBounds(lb, ub float64) {
	v.ls.vars[v.index].lb = lb
	v.ls.vars[v.index].ub = ub
}

// SolutionValue returns the value of the variable in the last optimal solution,
// or 0 if there is none.
func (v *Variable) SolutionValue() float64 {
	if v.ls.status != OPTIMAL || v.index >= len(v.ls.values) {
		return 0
	}
	return v.ls.values[v.index]
}

// Name returns the name of the constraint.
func (c *Constraint) Name() string { return c.ls.cons[c.index].name }

// Index returns the index of the constraint in the model.
func (c *Constraint) Index() int { return c.index }

// LB returns the lower bound.
func (c *Constraint) LB() float64 { return c.ls.cons[c.index].lb }

// UB returns the upper bound.
func (c *Constraint) UB() float64 { return c.ls.cons[c.index].ub }

// SetLB sets the lower bound.
func (c *Constraint) SetLB(lb float64) { c.ls.cons[c.index].lb = lb }

// SetUB sets the upper bound.
func (c *Constraint) SetUB(ub float64) { c.ls.cons[c.index].ub = ub }

// SetCoefficient sets the coefficient on a variable in a constraint.
func (c *Constraint) SetCoefficient(v *Variable, coef float64) {
	if coef == 0 {
		delete(c.ls.cons[c.index].coeffs, v.index)
		return
	}
	c.ls.cons[c.index].coeffs[v.index] = coef
}

// AddToCoefficient adds coef to the coefficient of v.
func (c *Constraint) AddToCoefficient(v *Variable, coef float64) {
	c.SetCoefficient(v, c.Coefficient(v)+coef)
}

// Coefficient gets the coefficient on a variable in a constraint.
func (c *Constraint) Coefficient(v *Variable) float64 {
	return c.ls.cons[c.index].coeffs[v.index]
}

// SetCoefficient sets the coefficient on a variable in the objective.
func (o Objective) SetCoefficient(v *Variable, coef float64) {
	if coef == 0 {
		delete(o.ls.obj.coeffs, v.index)
		return
	}
	o.ls.obj.coeffs[v.index] = coef
}

// Coefficient gets the coefficient on a variable in the objective.
func (o Objective) Coefficient(v *Variable) float64 {
	return o.ls.obj.coeffs[v.index]
}

// SetExpr replaces the objective terms and offset by those of expr. The
// optimization sense is kept.
func (o Objective) SetExpr(expr *LinearExpr) {
	o.ls.obj.coeffs = make(map[int]float64, len(expr.terms))
	for _, t := range expr.terms {
		o.ls.obj.coeffs[t.v.index] += t.coeff
	}
	o.ls.obj.offset = expr.offset
}

// Clear removes all terms and the offset and resets the sense to minimization.
func (o Objective) Clear() {
	o.ls.obj = objData{coeffs: make(map[int]float64)}
}

// Offset returns the constant term of the objective.
func (o Objective) Offset() float64 { return o.ls.obj.offset }

// SetOffset sets the constant term of the objective.
func (o Objective) SetOffset(v float64) { o.ls.obj.offset = v }

// SetMinimization makes the objective a minimization.
func (o Objective) SetMinimization() { o.ls.obj.maximize = false }

// SetMaximization makes the objective a maximization.
func (o Objective) SetMaximization() { o.ls.obj.maximize = true }

// Minimization reports whether the objective is minimized.
func (o Objective) Minimization() bool { return !o.ls.obj.maximize }

// Maximization reports whether the objective is maximized.
func (o Objective) Maximization() bool { return o.ls.obj.maximize }

// Value returns the objective value of the last optimal solution.
func (o Objective) Value() float64 { return o.ls.objValue }

// Solve solves the model with default parameters and returns a status.
func (ls *LinearSolver) Solve() Status {
	return ls.SolveWithParameters(NewParameters())
}

// SolveWithParameters is the same as Solve() except it takes a Parameters.
func (ls *LinearSolver) SolveWithParameters(p Parameters) Status {
	return ls.solve(p, nil)
}

// SolveInterruptible solves the model with the given parameters. The solve can
// be interrupted by closing or sending on `interrupt`, in which case the status
// is INTERRUPTED.
func (ls *LinearSolver) SolveInterruptible(p Parameters, interrupt <-chan struct{}) Status {
	var stop atomic.Bool

	solveDone := make(chan struct{})
	defer close(solveDone)
	go func() {
		select {
		case <-interrupt:
			stop.Store(true)
		case <-solveDone:
		}
	}()

	// The goroutine above may not be scheduled before the first pivot.
	select {
	case <-interrupt:
		stop.Store(true)
	default:
	}
	return ls.solve(p, &stop)
}

func (ls *LinearSolver) solve(p Parameters, stop *atomic.Bool) Status {
	ls.Reset()
	if alg := p.GetIntegerParam(LP_ALGORITHM); alg != PRIMAL {
		log.Errorf("linearsolver %q: LP algorithm %d is not implemented, only PRIMAL", ls.name, alg)
		ls.status = ABNORMAL
		return ls.status
	}
	if err := ls.validate(); err != nil {
		log.Errorf("linearsolver %q: invalid model: %v", ls.name, err)
		ls.status = MODEL_INVALID
		return ls.status
	}

	sf, status := newStandardForm(ls)
	if status != NOT_SOLVED {
		ls.status = status
		return ls.status
	}
	opts := simplexOptions{
		primalTol: p.GetDoubleParam(PRIMAL_TOLERANCE),
		dualTol:   p.GetDoubleParam(DUAL_TOLERANCE),
		maxIter:   p.GetIntegerParam(ITERATION_LIMIT_PARAM),
		stop:      stop,
	}
	res := sf.solve(opts)
	ls.status = res.status
	ls.iterations = res.iterations
	switch res.status {
	case OPTIMAL:
		ls.values = sf.originalValues(res.y)
		ls.objValue = ls.evalObjective(ls.values)
	case UNBOUNDED:
		if p.GetIntegerParam(PRESOLVE) == PRESOLVE_OFF {
			ls.ray = sf.originalRay(res.ray)
		}
	}
	if ls.output {
		log.Infof("linearsolver %q: %v after %d iterations (%d vars, %d rows)", ls.name, ls.status, ls.iterations, len(ls.vars), len(ls.cons))
	} else if log.V(2) {
		log.Infof("linearsolver %q: %v after %d iterations", ls.name, ls.status, ls.iterations)
	}
	return ls.status
}

func (ls *LinearSolver) validate() error {
	for i, v := range ls.vars {
		if v.integer {
			return fmt.Errorf("variable %q: %w", v.name, errIntegerOnly)
		}
		if math.IsNaN(v.lb) || math.IsNaN(v.ub) || math.IsInf(v.lb, 1) || math.IsInf(v.ub, -1) {
			return fmt.Errorf("variable %d (%q) has invalid bounds [%v, %v]", i, v.name, v.lb, v.ub)
		}
	}
	for _, c := range ls.cons {
		if math.IsNaN(c.lb) || math.IsNaN(c.ub) {
			return fmt.Errorf("constraint %q has NaN bounds", c.name)
		}
		for j, a := range c.coeffs {
			if math.IsNaN(a) || math.IsInf(a, 0) {
				return fmt.Errorf("constraint %q has invalid coefficient %v on variable %d", c.name, a, j)
			}
		}
	}
	for j, a := range ls.obj.coeffs {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return fmt.Errorf("objective has invalid coefficient %v on variable %d", a, j)
		}
	}
	return nil
}

func (ls *LinearSolver) evalObjective(x []float64) float64 {
	v := ls.obj.offset
	for j, a := range ls.obj.coeffs {
		v += a * x[j]
	}
	return v
}

// Status returns the status of the last solve.
func (ls *LinearSolver) Status() Status { return ls.status }

// Values returns a copy of the variable values of the last optimal solve.
func (ls *LinearSolver) Values() ([]float64, error) {
	if ls.status != OPTIMAL {
		return nil, ErrNoSolution
	}
	out := make([]float64, len(ls.values))
	copy(out, ls.values)
	return out, nil
}

// ConstraintActivities returns activities of all constraints for the last
// optimal solution.
func (ls *LinearSolver) ConstraintActivities() []float64 {
	if ls.status != OPTIMAL {
		return nil
	}
	act := make([]float64, len(ls.cons))
	for i, c := range ls.cons {
		for j, a := range c.coeffs {
			act[i] += a * ls.values[j]
		}
	}
	return act
}

// RayEntry is one non-zero component of an unbounded ray.
type RayEntry struct {
	Variable *Variable
	Value    float64
}

// UnboundedRay returns the ray found by the last solve, as the non-zero
// components sorted by variable index. Moving along the ray from any feasible
// point stays feasible and strictly improves the objective.
//
// The ray is only kept when the last solve returned UNBOUNDED with presolve off.
func (ls *LinearSolver) UnboundedRay() ([]RayEntry, error) {
	if ls.status != UNBOUNDED || ls.ray == nil {
		return nil, ErrRayUnavailable
	}
	out := make([]RayEntry, len(ls.ray))
	copy(out, ls.ray)
	return out, nil
}

// sortedKeys returns the keys of m in increasing order.
func sortedKeys(m map[int]float64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
