package linearsolver

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ExportModelAsLpFormat outputs the model as a string in CPLEX LP format.
//
// Ranged rows `lb <= expr <= ub` are written as two rows suffixed `_lb` and `_ub`.
func (ls *LinearSolver) ExportModelAsLpFormat() (string, error) {
	for _, v := range ls.vars {
		if strings.ContainsAny(v.name, " \t\n:") {
			return "", fmt.Errorf("cannot export variable name %q as LP format", v.name)
		}
	}
	if err := ls.validate(); err != nil && !errors.Is(err, errIntegerOnly) {
		return "", fmt.Errorf("cannot export an invalid model as LP format: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\\ Model %s\n", ls.name)
	if ls.obj.maximize {
		sb.WriteString("Maximize\n")
	} else {
		sb.WriteString("Minimize\n")
	}
	sb.WriteString(" obj:")
	ls.writeTerms(&sb, ls.obj.coeffs)
	if ls.obj.offset != 0 {
		sb.WriteString(" " + signedNumber(ls.obj.offset))
	}
	sb.WriteString("\nSubject To\n")
	for _, c := range ls.cons {
		switch {
		case c.lb == c.ub:
			ls.writeRow(&sb, c.name, c.coeffs, "=", c.lb)
		case math.IsInf(c.lb, -1) && math.IsInf(c.ub, 1):
			// Free rows carry no restriction.
		case math.IsInf(c.lb, -1):
			ls.writeRow(&sb, c.name, c.coeffs, "<=", c.ub)
		case math.IsInf(c.ub, 1):
			ls.writeRow(&sb, c.name, c.coeffs, ">=", c.lb)
		default:
			ls.writeRow(&sb, c.name+"_lb", c.coeffs, ">=", c.lb)
			ls.writeRow(&sb, c.name+"_ub", c.coeffs, "<=", c.ub)
		}
	}
	sb.WriteString("Bounds\n")
	var generals []string
	for _, v := range ls.vars {
		switch {
		case math.IsInf(v.lb, -1) && math.IsInf(v.ub, 1):
			fmt.Fprintf(&sb, " %s free\n", v.name)
		case v.lb == v.ub:
			fmt.Fprintf(&sb, " %s = %s\n", v.name, number(v.lb))
		default:
			fmt.Fprintf(&sb, " %s <= %s <= %s\n", bound(v.lb), v.name, bound(v.ub))
		}
		if v.integer {
			generals = append(generals, v.name)
		}
	}
	if len(generals) > 0 {
		sb.WriteString("Generals\n " + strings.Join(generals, " ") + "\n")
	}
	sb.WriteString("End\n")
	return sb.String(), nil
}

func (ls *LinearSolver) writeRow(sb *strings.Builder, name string, coeffs map[int]float64, op string, rhs float64) {
	fmt.Fprintf(sb, " %s:", name)
	ls.writeTerms(sb, coeffs)
	fmt.Fprintf(sb, " %s %s\n", op, number(rhs))
}

func (ls *LinearSolver) writeTerms(sb *strings.Builder, coeffs map[int]float64) {
	if len(coeffs) == 0 {
		sb.WriteString(" 0")
		return
	}
	for _, j := range sortedKeys(coeffs) {
		fmt.Fprintf(sb, " %s %s", signedNumber(coeffs[j]), ls.vars[j].name)
	}
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func signedNumber(v float64) string {
	if v < 0 {
		return "- " + number(-v)
	}
	return "+ " + number(v)
}

func bound(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return number(v)
}
