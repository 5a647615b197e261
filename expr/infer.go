package expr

import (
	"github.com/chinifabio/renoir-go/errs"
	"github.com/chinifabio/renoir-go/row"
)

// InferKind computes the static result kind of e against schema, without
// evaluating it against any particular row; the optimizer's expression-
// compile pass (§4.8 step 4) uses this to build each plan node's output
// schema before JIT-compiling its expressions.
func InferKind(e Expr, schema row.Schema) (row.Kind, error) {
	switch n := e.(type) {
	case Literal:
		return n.Value.Kind(), nil
	case NthColumn:
		if n.Index < 0 || n.Index >= schema.Len() {
			return 0, errs.Newf(errs.CodeSchema, "column index %d out of range for schema of width %d", n.Index, schema.Len())
		}
		return schema.Kinds[n.Index], nil
	case UnaryOp:
		return InferKind(n.Inner, schema)
	case BinaryOp:
		l, err := InferKind(n.Left, schema)
		if err != nil {
			return 0, err
		}
		r, err := InferKind(n.Right, schema)
		if err != nil {
			return 0, err
		}
		return combineKind(n.Op, l, r), nil
	case AggLeaf:
		return aggResultKind(n, schema)
	default:
		return row.KindNone, nil
	}
}

func combineKind(op Op, l, r row.Kind) row.Kind {
	if l == row.KindNone || r == row.KindNone {
		return row.KindNone
	}
	if l == row.KindNaN || r == row.KindNaN {
		return row.KindNaN
	}
	switch op {
	case Eq, Neq, Lt, Lte, Gt, Gte, And, Or:
		return row.KindBool
	default: // Add, Sub, Mul, Div
		if l == row.KindInt32 && r == row.KindInt32 {
			return row.KindInt32
		}
		if (l == row.KindInt32 || l == row.KindFloat32) && (r == row.KindInt32 || r == row.KindFloat32) {
			return row.KindFloat32
		}
		return row.KindNaN
	}
}

func aggResultKind(leaf AggLeaf, schema row.Schema) (row.Kind, error) {
	switch leaf.Kind {
	case AggCount, AggMode:
		return row.KindInt32, nil
	case AggSum, AggAvg, AggQuantileApprox, AggCovariance, AggPearson, AggEntropy, AggSkewnessKurtosis:
		return row.KindFloat32, nil
	case AggMin, AggMax, AggVal:
		if len(leaf.Args) == 0 {
			return row.KindNone, nil
		}
		return InferKind(leaf.Args[0], schema)
	default:
		return row.KindNone, nil
	}
}
