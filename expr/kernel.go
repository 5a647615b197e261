package expr

import "github.com/chinifabio/renoir-go/row"

// binaryKernel applies op to a, b per §4.9's typed-operation semantics:
// int/int stays int, any float operand promotes the result to float,
// NaN is absorbing, None is absorbing (propagates rather than erroring),
// runtime division by zero traps to NaN instead of panicking.
func binaryKernel(op Op, a, b row.Cell) row.Cell {
	if a.IsNone() || b.IsNone() {
		return row.None()
	}
	if a.IsNaN() || b.IsNaN() {
		return row.NaNCell()
	}

	switch op {
	case And, Or:
		av, aok := a.AsBool()
		bv, bok := b.AsBool()
		if !aok || !bok {
			return row.NaNCell()
		}
		if op == And {
			return row.Bool(av && bv)
		}
		return row.Bool(av || bv)
	case Eq:
		return row.Bool(row.Equal(a, b))
	case Neq:
		return row.Bool(!row.Equal(a, b))
	case Lt:
		return row.Bool(row.Compare(a, b) < 0)
	case Lte:
		return row.Bool(row.Compare(a, b) <= 0)
	case Gt:
		return row.Bool(row.Compare(a, b) > 0)
	case Gte:
		return row.Bool(row.Compare(a, b) >= 0)
	}

	// Arithmetic: Add, Sub, Mul, Div.
	ai, aIsInt := a.AsInt32()
	bi, bIsInt := b.AsInt32()
	if aIsInt && bIsInt {
		if op == Div {
			if bi == 0 {
				return row.NaNCell()
			}
			return row.Int32(ai / bi)
		}
		return row.Int32(intArith(op, ai, bi))
	}

	af, aok := a.Float64()
	bf, bok := b.Float64()
	if !aok || !bok {
		return row.NaNCell()
	}
	if op == Div && bf == 0 {
		return row.NaNCell()
	}
	return row.Float32(float32(floatArith(op, af, bf)))
}

func intArith(op Op, a, b int32) int32 {
	switch op {
	case Add:
		return a + b
	case Sub:
		return a - b
	case Mul:
		return a * b
	default:
		return 0
	}
}

func floatArith(op Op, a, b float64) float64 {
	switch op {
	case Add:
		return a + b
	case Sub:
		return a - b
	case Mul:
		return a * b
	case Div:
		return a / b
	default:
		return 0
	}
}

// unaryKernel applies op to v.
func unaryKernel(op UnOp, v row.Cell) row.Cell {
	if v.IsNone() {
		return row.None()
	}
	if v.IsNaN() {
		return row.NaNCell()
	}
	switch op {
	case Not:
		b, ok := v.AsBool()
		if !ok {
			return row.NaNCell()
		}
		return row.Bool(!b)
	case Neg:
		if i, ok := v.AsInt32(); ok {
			return row.Int32(-i)
		}
		if f, ok := v.AsFloat32(); ok {
			return row.Float32(-f)
		}
		return row.NaNCell()
	default:
		return row.NaNCell()
	}
}
