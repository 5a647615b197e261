package expr_test

import (
	"testing"

	"github.com/chinifabio/renoir-go/expr"
	"github.com/chinifabio/renoir-go/row"
	"github.com/stretchr/testify/require"
)

func schema2Int() row.Schema {
	return row.Schema{Kinds: []row.Kind{row.KindInt32, row.KindInt32}}
}

// TestInterpretedAndCompiledAgree covers spec §8 scenario 6: compiled
// and interpreted expression results agree on all rows of a
// schema-conforming input.
func TestInterpretedAndCompiledAgree(t *testing.T) {
	e := expr.BinaryOp{
		Left:  expr.NthColumn{Index: 0},
		Right: expr.BinaryOp{Left: expr.NthColumn{Index: 1}, Right: expr.Literal{Value: row.Int32(2)}, Op: expr.Mul},
		Op:    expr.Add,
	}
	thunk, err := expr.Compile(e, schema2Int())
	require.NoError(t, err)

	rows := []row.Row{
		row.New(row.Int32(1), row.Int32(2)),
		row.New(row.Int32(-3), row.Int32(10)),
		row.New(row.Int32(0), row.Int32(0)),
	}
	for _, r := range rows {
		require.True(t, row.Equal(expr.Eval(e, r), thunk(r)))
	}
}

func TestDivisionByLiteralZeroIsACompileError(t *testing.T) {
	e := expr.BinaryOp{Left: expr.NthColumn{Index: 0}, Right: expr.Literal{Value: row.Int32(0)}, Op: expr.Div}
	_, err := expr.Compile(e, schema2Int())
	require.Error(t, err)
}

func TestRuntimeDivisionByZeroTrapsToNaNRatherThanPanicking(t *testing.T) {
	e := expr.BinaryOp{Left: expr.NthColumn{Index: 0}, Right: expr.NthColumn{Index: 1}, Op: expr.Div}
	thunk, err := expr.Compile(e, schema2Int())
	require.NoError(t, err)

	result := thunk(row.New(row.Int32(5), row.Int32(0)))
	require.True(t, result.IsNaN())
}

func TestNoneAndNaNPropagateThroughArithmetic(t *testing.T) {
	e := expr.BinaryOp{Left: expr.NthColumn{Index: 0}, Right: expr.Literal{Value: row.Int32(1)}, Op: expr.Add}
	thunk, err := expr.Compile(e, schema2Int())
	require.NoError(t, err)

	require.True(t, thunk(row.New(row.None(), row.Int32(0))).IsNone())
	require.True(t, thunk(row.New(row.NaNCell(), row.Int32(0))).IsNaN())
}

func TestThunkCacheReturnsSameThunkOnHit(t *testing.T) {
	c := expr.NewCache(8)
	e := expr.NthColumn{Index: 0}
	s := schema2Int()

	t1, err := c.GetOrCompile(e, s)
	require.NoError(t, err)
	t2, err := c.GetOrCompile(e, s)
	require.NoError(t, err)

	r := row.New(row.Int32(42), row.Int32(0))
	require.True(t, row.Equal(t1(r), t2(r)))
}

func TestOutOfRangeColumnIsASchemaError(t *testing.T) {
	_, err := expr.Compile(expr.NthColumn{Index: 5}, schema2Int())
	require.Error(t, err)
}
