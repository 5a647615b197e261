package plan

import (
	"github.com/chinifabio/renoir-go/errs"
	"github.com/chinifabio/renoir-go/expr"
	"github.com/chinifabio/renoir-go/row"
)

// SchemaOf computes n's output schema, recursing into its input(s). The
// optimizer's expression-compile rule (§4.8 step 4) calls this on every
// node's input before JIT-compiling that node's own expressions.
func SchemaOf(n Node) (row.Schema, error) {
	switch t := n.(type) {
	case *TableScan:
		if t.Projections == nil {
			return t.Schema, nil
		}
		return t.Schema.Project(t.Projections)
	case *Filter:
		return SchemaOf(t.Input)
	case *Select:
		in, err := SchemaOf(t.Input)
		if err != nil {
			return row.Schema{}, err
		}
		kinds := make([]row.Kind, len(t.Exprs))
		for i, e := range t.Exprs {
			k, err := expr.InferKind(e, in)
			if err != nil {
				return row.Schema{}, err
			}
			kinds[i] = k
		}
		return row.Schema{Kinds: kinds}, nil
	case *Shuffle:
		return SchemaOf(t.Input)
	case *GroupBy:
		return SchemaOf(t.Input)
	case *GroupBySelect:
		in, err := SchemaOf(t.Input)
		if err != nil {
			return row.Schema{}, err
		}
		keySchema, err := in.Project(t.Keys)
		if err != nil {
			return row.Schema{}, err
		}
		aggKinds := make([]row.Kind, len(t.Aggs))
		for i, a := range t.Aggs {
			k, err := expr.InferKind(a, in)
			if err != nil {
				return row.Schema{}, err
			}
			aggKinds[i] = k
		}
		return keySchema.Extend(aggKinds...), nil
	case *DropKey:
		return SchemaOf(t.Input)
	case *DropColumns:
		in, err := SchemaOf(t.Input)
		if err != nil {
			return row.Schema{}, err
		}
		keep := make([]int, 0, in.Len())
		drop := make(map[int]bool, len(t.Indices))
		for _, i := range t.Indices {
			drop[i] = true
		}
		for i := 0; i < in.Len(); i++ {
			if !drop[i] {
				keep = append(keep, i)
			}
		}
		return in.Project(keep)
	case *CollectVec:
		return SchemaOf(t.Input)
	case *Join:
		left, err := SchemaOf(t.Left)
		if err != nil {
			return row.Schema{}, err
		}
		right, err := SchemaOf(t.Right)
		if err != nil {
			return row.Schema{}, err
		}
		return row.Merge(left, right), nil
	case *UpStream:
		return t.Schema, nil
	case *ParallelIterator:
		return t.Schema, nil
	default:
		return row.Schema{}, errs.Newf(errs.CodeInternal, "plan: unknown node %T", n)
	}
}
