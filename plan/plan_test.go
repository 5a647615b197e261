package plan_test

import (
	"testing"

	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/expr"
	"github.com/chinifabio/renoir-go/plan"
	"github.com/chinifabio/renoir-go/row"
	"github.com/stretchr/testify/require"
)

func zeroMeta() coord.ExecutionMetadata { return coord.ExecutionMetadata{Parallelism: 1} }

func twoIntSchema() row.Schema {
	return row.Schema{Kinds: []row.Kind{row.KindInt32, row.KindInt32}}
}

func TestSchemaOfSelectInfersResultKinds(t *testing.T) {
	scan := &plan.TableScan{Schema: twoIntSchema()}
	sel := &plan.Select{
		Input: scan,
		Exprs: []expr.Expr{
			expr.NthColumn{Index: 0},
			expr.BinaryOp{Left: expr.NthColumn{Index: 0}, Right: expr.NthColumn{Index: 1}, Op: expr.Gt},
		},
	}
	schema, err := plan.SchemaOf(sel)
	require.NoError(t, err)
	require.Equal(t, []row.Kind{row.KindInt32, row.KindBool}, schema.Kinds)
}

func TestSchemaOfGroupBySelectProjectsKeysThenAggs(t *testing.T) {
	scan := &plan.TableScan{Schema: twoIntSchema()}
	gbs := &plan.GroupBySelect{
		Input: scan,
		Keys:  []int{0},
		Aggs:  []expr.AggLeaf{{Kind: expr.AggSum, Args: []expr.Expr{expr.NthColumn{Index: 1}}}},
	}
	schema, err := plan.SchemaOf(gbs)
	require.NoError(t, err)
	require.Equal(t, []row.Kind{row.KindInt32, row.KindFloat32}, schema.Kinds)
}

func TestSchemaOfJoinMergesBothSides(t *testing.T) {
	left := &plan.TableScan{Schema: twoIntSchema()}
	right := &plan.TableScan{Schema: row.Schema{Kinds: []row.Kind{row.KindInt32}}}
	j := &plan.Join{Left: left, Right: right, LeftOn: 0, RightOn: 0}
	schema, err := plan.SchemaOf(j)
	require.NoError(t, err)
	require.Equal(t, []row.Kind{row.KindInt32, row.KindInt32, row.KindInt32}, schema.Kinds)
}

// TestPredicatePushdownMergesIntoTableScan covers §4.8 rule 1: a Filter
// sitting directly above a bare TableScan is absorbed into the scan's
// own Predicate rather than surviving as a separate node.
func TestPredicatePushdownMergesIntoTableScan(t *testing.T) {
	scan := &plan.TableScan{Schema: twoIntSchema()}
	pred := expr.BinaryOp{Left: expr.NthColumn{Index: 0}, Right: expr.Literal{Value: row.Int32(0)}, Op: expr.Gt}
	root := &plan.Filter{Input: scan, Predicate: pred}

	optimized, err := plan.Optimize(root)
	require.NoError(t, err)

	merged, ok := optimized.(*plan.TableScan)
	require.True(t, ok, "Filter over a bare TableScan must be merged away, got %T", optimized)
	require.NotNil(t, merged.Predicate)
}

// TestProjectionPushdownNarrowsScanAndRemapsSelect covers §4.8 rule 2:
// a Select reading only column 1 of a two-column scan should end up
// with the scan itself only ever reading that column.
func TestProjectionPushdownNarrowsScanAndRemapsSelect(t *testing.T) {
	scan := &plan.TableScan{Schema: twoIntSchema()}
	root := &plan.Select{
		Input: scan,
		Exprs: []expr.Expr{expr.NthColumn{Index: 1}},
	}

	optimized, err := plan.Optimize(root)
	require.NoError(t, err)

	sel, ok := optimized.(*plan.Select)
	require.True(t, ok)
	narrowed, ok := sel.Input.(*plan.TableScan)
	require.True(t, ok)
	require.Equal(t, []int{1}, narrowed.Projections)

	schema, err := plan.SchemaOf(optimized)
	require.NoError(t, err)
	require.Equal(t, []row.Kind{row.KindInt32}, schema.Kinds)
}

// TestStreamRewriteCollapsesSelectOverGroupBy covers §4.8 rule 3.
func TestStreamRewriteCollapsesSelectOverGroupBy(t *testing.T) {
	scan := &plan.TableScan{Schema: twoIntSchema()}
	gb := &plan.GroupBy{Input: scan, Keys: []int{0}}
	root := &plan.Select{
		Input: gb,
		Exprs: []expr.Expr{
			expr.NthColumn{Index: 0},
			expr.AggLeaf{Kind: expr.AggSum, Args: []expr.Expr{expr.NthColumn{Index: 1}}},
		},
	}

	optimized, err := plan.Optimize(root)
	require.NoError(t, err)

	gbs, ok := optimized.(*plan.GroupBySelect)
	require.True(t, ok, "Select(GroupBy) must collapse to GroupBySelect, got %T", optimized)
	require.Equal(t, []int{0}, gbs.Keys)
	require.Len(t, gbs.Aggs, 1)
}

func TestLowerTableScanFilterSelectProducesExpectedRows(t *testing.T) {
	scan := &plan.TableScan{Path: "nums", Schema: twoIntSchema()}
	filtered := &plan.Filter{
		Input:     scan,
		Predicate: expr.BinaryOp{Left: expr.NthColumn{Index: 0}, Right: expr.Literal{Value: row.Int32(1)}, Op: expr.Gt},
	}
	root := &plan.Select{
		Input: filtered,
		Exprs: []expr.Expr{expr.BinaryOp{Left: expr.NthColumn{Index: 0}, Right: expr.NthColumn{Index: 1}, Op: expr.Add}},
	}

	optimized, err := plan.Optimize(root)
	require.NoError(t, err)

	env := plan.Env{
		Tables: func(path string) ([]row.Row, error) {
			require.Equal(t, "nums", path)
			return []row.Row{
				row.New(row.Int32(1), row.Int32(10)),
				row.New(row.Int32(2), row.Int32(20)),
				row.New(row.Int32(3), row.Int32(30)),
			}, nil
		},
	}
	op, err := plan.Lower(optimized, env)
	require.NoError(t, err)

	var got []int32
	op.Setup(zeroMeta())
	for {
		e := op.Next()
		v, ok := e.Payload()
		if !ok {
			break
		}
		n, _ := v.Cells[0].AsInt32()
		got = append(got, n)
	}
	require.Equal(t, []int32{22, 33}, got)
}
