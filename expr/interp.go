package expr

import "github.com/chinifabio/renoir-go/row"

// Eval walks e against r, indexing into the row's cells by position for
// NthColumn nodes. AggLeaf nodes are not evaluable in isolation (an
// aggregator threads state across many rows); evaluating one here
// returns the cell produced by evaluating its first argument, matching
// a degenerate single-row "Val" read.
func Eval(e Expr, r row.Row) row.Cell {
	switch n := e.(type) {
	case Literal:
		return n.Value
	case NthColumn:
		if n.Index < 0 || n.Index >= len(r.Cells) {
			return row.None()
		}
		return r.Cells[n.Index]
	case BinaryOp:
		return binaryKernel(n.Op, Eval(n.Left, r), Eval(n.Right, r))
	case UnaryOp:
		return unaryKernel(n.Op, Eval(n.Inner, r))
	case AggLeaf:
		if len(n.Args) == 0 {
			return row.None()
		}
		return Eval(n.Args[0], r)
	default:
		return row.None()
	}
}
