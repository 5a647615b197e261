package expr

import (
	"math"

	"github.com/influxdata/tdigest"

	"github.com/chinifabio/renoir-go/row"
)

// Accumulator is the accumulate/merge/finalize shape spec §3 requires of
// every aggregator leaf: associative, with an identity (the zero value
// returned by a fresh Factory call before any Accumulate). Merge
// combines two replicas' partial state, the shape keyed.LocalFold and
// keyed.GlobalMerge's two-stage associative fold already assumes.
type Accumulator interface {
	// Accumulate folds one row's argument cells in (Covariance/Pearson
	// read two; every other aggregator reads only values[0]).
	Accumulate(values ...row.Cell)
	// Merge absorbs another same-kind accumulator's partial state.
	Merge(other Accumulator)
	// Finalize produces the aggregate's result cell.
	Finalize() row.Cell
}

// Factory builds a fresh, identity-valued accumulator.
type Factory func() Accumulator

// Val is the passthrough "aggregator": finalize returns the last value
// accumulated, with no combination across rows.
func Val() Accumulator { return &valAcc{last: row.None()} }

type valAcc struct{ last row.Cell }

func (a *valAcc) Accumulate(values ...row.Cell) {
	if len(values) > 0 {
		a.last = values[0]
	}
}
func (a *valAcc) Merge(other Accumulator) { a.last = other.(*valAcc).last }
func (a *valAcc) Finalize() row.Cell      { return a.last }

// Sum accumulates a running float64 total; None values are skipped.
func Sum() Accumulator { return &sumAcc{} }

type sumAcc struct{ total float64 }

func (a *sumAcc) Accumulate(values ...row.Cell) {
	if len(values) == 0 {
		return
	}
	if f, ok := values[0].Float64(); ok {
		a.total += f
	}
}
func (a *sumAcc) Merge(other Accumulator) { a.total += other.(*sumAcc).total }
func (a *sumAcc) Finalize() row.Cell      { return row.Float32(float32(a.total)) }

// Count counts non-None values accumulated.
func Count() Accumulator { return &countAcc{} }

type countAcc struct{ n int64 }

func (a *countAcc) Accumulate(values ...row.Cell) {
	if len(values) > 0 && !values[0].IsNone() {
		a.n++
	}
}
func (a *countAcc) Merge(other Accumulator) { a.n += other.(*countAcc).n }
func (a *countAcc) Finalize() row.Cell      { return row.Int32(int32(a.n)) }

// Min/Max track the running extreme by the total order of §4.9.
func Min() Accumulator { return &extremeAcc{pick: func(c int) bool { return c < 0 }} }
func Max() Accumulator { return &extremeAcc{pick: func(c int) bool { return c > 0 }} }

type extremeAcc struct {
	has  bool
	cell row.Cell
	pick func(cmp int) bool
}

func (a *extremeAcc) Accumulate(values ...row.Cell) {
	if len(values) == 0 {
		return
	}
	v := values[0]
	if !a.has || a.pick(row.Compare(v, a.cell)) {
		a.has = true
		a.cell = v
	}
}
func (a *extremeAcc) Merge(other Accumulator) {
	o := other.(*extremeAcc)
	if o.has {
		a.Accumulate(o.cell)
	}
}
func (a *extremeAcc) Finalize() row.Cell {
	if !a.has {
		return row.None()
	}
	return a.cell
}

// Avg is (sum, count) with finalize = sum/count, per §4.9.
func Avg() Accumulator { return &avgAcc{} }

type avgAcc struct {
	sum float64
	n   int64
}

func (a *avgAcc) Accumulate(values ...row.Cell) {
	if len(values) == 0 {
		return
	}
	if f, ok := values[0].Float64(); ok {
		a.sum += f
		a.n++
	}
}
func (a *avgAcc) Merge(other Accumulator) {
	o := other.(*avgAcc)
	a.sum += o.sum
	a.n += o.n
}
func (a *avgAcc) Finalize() row.Cell {
	if a.n == 0 {
		return row.None()
	}
	return row.Float32(float32(a.sum / float64(a.n)))
}

// QuantileApprox is a streaming t-digest based aggregator leaf.
func QuantileApprox(q, compression float64) Factory {
	return func() Accumulator {
		return &quantileAcc{q: q, digest: tdigest.NewWithCompression(compression)}
	}
}

type quantileAcc struct {
	q      float64
	digest *tdigest.TDigest
}

func (a *quantileAcc) Accumulate(values ...row.Cell) {
	if len(values) == 0 {
		return
	}
	if f, ok := values[0].Float64(); ok {
		a.digest.Add(f, 1)
	}
}
func (a *quantileAcc) Merge(other Accumulator) {
	a.digest.Merge(other.(*quantileAcc).digest)
}
func (a *quantileAcc) Finalize() row.Cell {
	return row.Float32(float32(a.digest.Quantile(a.q)))
}

// twoPassState is the (count, sum, sumSq, sumXY-style) running state
// shared by Covariance, Pearson, Entropy, Mode and SkewnessKurtosis —
// associative because every field, the power sums and the exact
// histogram alike, merges by addition.
type twoPassState struct {
	n              int64
	sumX, sumY     float64
	sumX2, sumY2   float64
	sumXY          float64
	sumX3, sumX4   float64
	histogram      map[int32]int64 // Mode and Entropy: exact counts over int32-valued inputs
}

func newTwoPassState() *twoPassState { return &twoPassState{histogram: make(map[int32]int64)} }

func (s *twoPassState) accumulate(values []row.Cell) {
	if len(values) == 0 {
		return
	}
	x, ok := values[0].Float64()
	if !ok {
		return
	}
	s.n++
	s.sumX += x
	s.sumX2 += x * x
	s.sumX3 += x * x * x
	s.sumX4 += x * x * x * x
	if v, ok := values[0].AsInt32(); ok {
		s.histogram[v]++
	}
	if len(values) > 1 {
		if y, ok := values[1].Float64(); ok {
			s.sumY += y
			s.sumY2 += y * y
			s.sumXY += x * y
		}
	}
}

func (s *twoPassState) merge(o *twoPassState) {
	s.n += o.n
	s.sumX += o.sumX
	s.sumY += o.sumY
	s.sumX2 += o.sumX2
	s.sumY2 += o.sumY2
	s.sumXY += o.sumXY
	s.sumX3 += o.sumX3
	s.sumX4 += o.sumX4
	for k, v := range o.histogram {
		s.histogram[k] += v
	}
}

// Covariance is population covariance(x, y) = E[xy] - E[x]E[y].
func Covariance() Accumulator { return &covarianceAcc{s: newTwoPassState()} }

type covarianceAcc struct{ s *twoPassState }

func (a *covarianceAcc) Accumulate(values ...row.Cell) { a.s.accumulate(values) }
func (a *covarianceAcc) Merge(other Accumulator)       { a.s.merge(other.(*covarianceAcc).s) }
func (a *covarianceAcc) Finalize() row.Cell {
	if a.s.n == 0 {
		return row.None()
	}
	n := float64(a.s.n)
	cov := a.s.sumXY/n - (a.s.sumX/n)*(a.s.sumY/n)
	return row.Float32(float32(cov))
}

// Pearson is the Pearson correlation coefficient, cov(x,y)/(stddev(x)*stddev(y)).
func Pearson() Accumulator { return &pearsonAcc{s: newTwoPassState()} }

type pearsonAcc struct{ s *twoPassState }

func (a *pearsonAcc) Accumulate(values ...row.Cell) { a.s.accumulate(values) }
func (a *pearsonAcc) Merge(other Accumulator)       { a.s.merge(other.(*pearsonAcc).s) }
func (a *pearsonAcc) Finalize() row.Cell {
	if a.s.n == 0 {
		return row.None()
	}
	n := float64(a.s.n)
	meanX, meanY := a.s.sumX/n, a.s.sumY/n
	cov := a.s.sumXY/n - meanX*meanY
	varX := a.s.sumX2/n - meanX*meanX
	varY := a.s.sumY2/n - meanY*meanY
	denom := math.Sqrt(varX * varY)
	if denom == 0 {
		return row.NaNCell()
	}
	return row.Float32(float32(cov / denom))
}

// Entropy is the Shannon entropy (base 2) of the exact int32-valued
// histogram observed.
func Entropy() Accumulator { return &entropyAcc{s: newTwoPassState()} }

type entropyAcc struct{ s *twoPassState }

func (a *entropyAcc) Accumulate(values ...row.Cell) { a.s.accumulate(values) }
func (a *entropyAcc) Merge(other Accumulator)       { a.s.merge(other.(*entropyAcc).s) }
func (a *entropyAcc) Finalize() row.Cell {
	if a.s.n == 0 {
		return row.None()
	}
	n := float64(a.s.n)
	var h float64
	for _, count := range a.s.histogram {
		p := float64(count) / n
		h -= p * math.Log2(p)
	}
	return row.Float32(float32(h))
}

// Mode is the most frequently observed exact int32 value, ties broken
// by smallest value.
func Mode() Accumulator { return &modeAcc{s: newTwoPassState()} }

type modeAcc struct{ s *twoPassState }

func (a *modeAcc) Accumulate(values ...row.Cell) { a.s.accumulate(values) }
func (a *modeAcc) Merge(other Accumulator)       { a.s.merge(other.(*modeAcc).s) }
func (a *modeAcc) Finalize() row.Cell {
	if len(a.s.histogram) == 0 {
		return row.None()
	}
	var best int32
	var bestCount int64 = -1
	for v, count := range a.s.histogram {
		if count > bestCount || (count == bestCount && v < best) {
			best, bestCount = v, count
		}
	}
	return row.Int32(best)
}

// SkewnessKurtosis finalizes to a 2-cell result not representable by a
// single Cell; Finalize returns the skewness and the caller should pull
// kurtosis via the accumulator's Kurtosis method after finalizing, since
// Accumulator.Finalize is single-valued by the shared interface's shape.
func SkewnessKurtosis() Accumulator { return &skewKurtAcc{s: newTwoPassState()} }

type skewKurtAcc struct{ s *twoPassState }

func (a *skewKurtAcc) Accumulate(values ...row.Cell) { a.s.accumulate(values) }
func (a *skewKurtAcc) Merge(other Accumulator)       { a.s.merge(other.(*skewKurtAcc).s) }
func (a *skewKurtAcc) Finalize() row.Cell {
	return row.Float32(float32(a.skewness()))
}

func (a *skewKurtAcc) skewness() float64 {
	n := float64(a.s.n)
	if n == 0 {
		return math.NaN()
	}
	mean := a.s.sumX / n
	m2 := a.s.sumX2/n - mean*mean
	m3 := a.s.sumX3/n - 3*mean*a.s.sumX2/n + 2*mean*mean*mean
	if m2 <= 0 {
		return 0
	}
	return m3 / math.Pow(m2, 1.5)
}

// Kurtosis returns the excess kurtosis (normal distribution = 0) of the
// same accumulator state Finalize summarized as skewness.
func (a *skewKurtAcc) Kurtosis() float64 {
	n := float64(a.s.n)
	if n == 0 {
		return math.NaN()
	}
	mean := a.s.sumX / n
	m2 := a.s.sumX2/n - mean*mean
	m4 := a.s.sumX4/n - 4*mean*a.s.sumX3/n + 6*mean*mean*a.s.sumX2/n - 3*mean*mean*mean*mean
	if m2 <= 0 {
		return 0
	}
	return m4/(m2*m2) - 3
}

// FactoryFor resolves an AggLeaf's Kind to its Factory, reading
// QuantileApprox's q/compression from Params.
func FactoryFor(leaf AggLeaf) Factory {
	switch leaf.Kind {
	case AggVal:
		return Val
	case AggSum:
		return Sum
	case AggCount:
		return Count
	case AggMin:
		return Min
	case AggMax:
		return Max
	case AggAvg:
		return Avg
	case AggQuantileApprox:
		q := leaf.Params["q"]
		compression := leaf.Params["compression"]
		if compression == 0 {
			compression = 1000
		}
		return QuantileApprox(q, compression)
	case AggCovariance:
		return Covariance
	case AggPearson:
		return Pearson
	case AggEntropy:
		return Entropy
	case AggMode:
		return Mode
	case AggSkewnessKurtosis:
		return SkewnessKurtosis
	default:
		return Val
	}
}
