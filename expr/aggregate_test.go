package expr_test

import (
	"testing"

	"github.com/chinifabio/renoir-go/expr"
	"github.com/chinifabio/renoir-go/row"
	"github.com/stretchr/testify/require"
)

func TestSumCountAvgOverValues(t *testing.T) {
	values := []row.Cell{row.Int32(1), row.Int32(2), row.Int32(3), row.Int32(4)}

	sum := expr.Sum()
	count := expr.Count()
	avg := expr.Avg()
	for _, v := range values {
		sum.Accumulate(v)
		count.Accumulate(v)
		avg.Accumulate(v)
	}

	s, _ := sum.Finalize().Float64()
	require.Equal(t, float64(10), s)
	n, _ := count.Finalize().AsInt32()
	require.Equal(t, int32(4), n)
	a, _ := avg.Finalize().Float64()
	require.Equal(t, 2.5, a)
}

func TestMinMaxFollowTotalOrder(t *testing.T) {
	values := []row.Cell{row.Int32(3), row.NaNCell(), row.Int32(-1), row.Bool(true)}
	min := expr.Min()
	max := expr.Max()
	for _, v := range values {
		min.Accumulate(v)
		max.Accumulate(v)
	}
	require.True(t, row.Equal(row.NaNCell(), min.Finalize()), "NaN ranks below every typed value")
	require.True(t, row.Equal(row.Int32(3), max.Finalize()), "Int32 ranks above Bool")
}

func TestSumMergeIsAssociative(t *testing.T) {
	a := expr.Sum()
	b := expr.Sum()
	a.Accumulate(row.Int32(1))
	a.Accumulate(row.Int32(2))
	b.Accumulate(row.Int32(3))
	b.Accumulate(row.Int32(4))
	a.Merge(b)

	whole := expr.Sum()
	for _, v := range []row.Cell{row.Int32(1), row.Int32(2), row.Int32(3), row.Int32(4)} {
		whole.Accumulate(v)
	}

	got, _ := a.Finalize().Float64()
	want, _ := whole.Finalize().Float64()
	require.Equal(t, want, got)
}

func TestQuantileApproxOnUniformSample(t *testing.T) {
	q := expr.QuantileApprox(0.5, 100)()
	for i := 1; i <= 100; i++ {
		q.Accumulate(row.Int32(int32(i)))
	}
	median, _ := q.Finalize().Float64()
	require.InDelta(t, 50, median, 5)
}

func TestQuantileApproxMergeCombinesDigests(t *testing.T) {
	a := expr.QuantileApprox(0.5, 100)()
	b := expr.QuantileApprox(0.5, 100)()
	for i := 1; i <= 50; i++ {
		a.Accumulate(row.Int32(int32(i)))
	}
	for i := 51; i <= 100; i++ {
		b.Accumulate(row.Int32(int32(i)))
	}
	a.Merge(b)
	median, _ := a.Finalize().Float64()
	require.InDelta(t, 50, median, 5)
}

func TestCovarianceAndPearsonOfPerfectlyCorrelatedLine(t *testing.T) {
	cov := expr.Covariance()
	pear := expr.Pearson()
	for i := int32(0); i < 10; i++ {
		cov.Accumulate(row.Int32(i), row.Int32(2*i))
		pear.Accumulate(row.Int32(i), row.Int32(2*i))
	}
	c, _ := cov.Finalize().Float64()
	require.Greater(t, c, float64(0))
	p, _ := pear.Finalize().Float64()
	require.InDelta(t, 1.0, p, 1e-3)
}

func TestModeReturnsMostFrequentValue(t *testing.T) {
	mode := expr.Mode()
	for _, v := range []int32{1, 2, 2, 3, 2, 1} {
		mode.Accumulate(row.Int32(v))
	}
	got, _ := mode.Finalize().AsInt32()
	require.Equal(t, int32(2), got)
}

func TestEntropyOfUniformPairIsOneBit(t *testing.T) {
	ent := expr.Entropy()
	for _, v := range []int32{0, 1, 0, 1} {
		ent.Accumulate(row.Int32(v))
	}
	got, _ := ent.Finalize().Float64()
	require.InDelta(t, 1.0, got, 1e-9)
}
