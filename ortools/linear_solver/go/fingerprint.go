package linearsolver

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the structure encoding. They follow the layout of
// MPModelProto: repeated variables, then repeated constraints.
const (
	fieldVariable   protowire.Number = 1
	fieldConstraint protowire.Number = 2

	fieldName    protowire.Number = 1
	fieldLB      protowire.Number = 2
	fieldUB      protowire.Number = 3
	fieldInteger protowire.Number = 4
	fieldVarIdx  protowire.Number = 4
	fieldCoeff   protowire.Number = 5
)

// StructureFingerprint returns a deterministic protobuf wire encoding of the
// variables (names, bounds, integrality) and the constraints (names, bounds,
// coefficients sorted by variable index). The objective is not part of it, so
// two models with the same feasible region description have identical bytes.
func (ls *LinearSolver) StructureFingerprint() []byte {
	var b []byte
	for _, v := range ls.vars {
		var vb []byte
		vb = appendString(vb, fieldName, v.name)
		vb = appendDouble(vb, fieldLB, v.lb)
		vb = appendDouble(vb, fieldUB, v.ub)
		if v.integer {
			vb = protowire.AppendTag(vb, fieldInteger, protowire.VarintType)
			vb = protowire.AppendVarint(vb, 1)
		}
		b = protowire.AppendTag(b, fieldVariable, protowire.BytesType)
		b = protowire.AppendBytes(b, vb)
	}
	for _, c := range ls.cons {
		var cb []byte
		cb = appendString(cb, fieldName, c.name)
		cb = appendDouble(cb, fieldLB, c.lb)
		cb = appendDouble(cb, fieldUB, c.ub)
		keys := sortedKeys(c.coeffs)
		var idx, coeffs []byte
		for _, j := range keys {
			idx = protowire.AppendVarint(idx, uint64(j))
			coeffs = protowire.AppendFixed64(coeffs, math.Float64bits(c.coeffs[j]))
		}
		if len(keys) > 0 {
			cb = protowire.AppendTag(cb, fieldVarIdx, protowire.BytesType)
			cb = protowire.AppendBytes(cb, idx)
			cb = protowire.AppendTag(cb, fieldCoeff, protowire.BytesType)
			cb = protowire.AppendBytes(cb, coeffs)
		}
		b = protowire.AppendTag(b, fieldConstraint, protowire.BytesType)
		b = protowire.AppendBytes(b, cb)
	}
	return b
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}
