package keyed_test

import (
	"testing"

	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/keyed"
	"github.com/chinifabio/renoir-go/operator"
	"github.com/chinifabio/renoir-go/row"
	"github.com/stretchr/testify/require"
)

// scriptOp replays a fixed sequence of elements, for driving downstream
// operators deterministically in tests.
type scriptOp struct {
	script []element.StreamElement[row.Row]
	idx    int
}

func (s *scriptOp) Setup(coord.ExecutionMetadata) {}
func (s *scriptOp) Structure() operator.Structure { return operator.Structure{Name: "script"} }
func (s *scriptOp) Next() element.StreamElement[row.Row] {
	if s.idx >= len(s.script) {
		return element.Terminate[row.Row]()
	}
	e := s.script[s.idx]
	s.idx++
	return e
}

func drain(op operator.Operator[row.Row]) []element.StreamElement[row.Row] {
	var out []element.StreamElement[row.Row]
	for {
		e := op.Next()
		out = append(out, e)
		if e.Tag() == element.TagTerminate {
			return out
		}
	}
}

func TestKeyByAbsorbsComputedKey(t *testing.T) {
	src := &scriptOp{script: []element.StreamElement[row.Row]{
		element.Item(row.New(row.Int32(7), row.Int32(100))),
	}}
	op := keyed.KeyBy(src, func(r row.Row) []row.Cell { return []row.Cell{r.Cells[0]} })
	op.Setup(coord.ExecutionMetadata{})

	e := op.Next()
	v, ok := e.Payload()
	require.True(t, ok)
	require.True(t, v.IsKeyed())
	require.Equal(t, 1, v.KeyLen)
	n, isInt32 := v.Key()[0].AsInt32()
	require.True(t, isInt32)
	require.Equal(t, int32(7), n)
}

func keyedRow(k int32, v int32) row.Row {
	r, err := row.New(row.Int32(v)).AbsorbKey([]row.Cell{row.Int32(k)})
	if err != nil {
		panic(err)
	}
	return r
}

func TestFoldSumsPerKeyAndEmitsOnFlushAndRestart(t *testing.T) {
	src := &scriptOp{script: []element.StreamElement[row.Row]{
		element.Item(keyedRow(1, 10)),
		element.Item(keyedRow(2, 1)),
		element.Item(keyedRow(1, 5)),
		element.FlushAndRestart[row.Row](),
		element.Item(keyedRow(1, 2)),
	}}

	op := keyed.Fold(src,
		func() int32 { return 0 },
		func(acc int32, r row.Row) int32 { n, _ := r.Value()[0].AsInt32(); return acc + n },
		func(key []row.Cell, acc int32) row.Row {
			out, _ := row.New(row.Int32(acc)).AbsorbKey(key)
			return out
		},
	)
	op.Setup(coord.ExecutionMetadata{})

	results := drain(op)

	sums := map[int32]int32{}
	sawFlushAndRestart := false
	for _, e := range results {
		if e.Tag() == element.TagFlushAndRestart {
			sawFlushAndRestart = true
			break
		}
		v, ok := e.Payload()
		if !ok {
			continue
		}
		k, _ := v.Key()[0].AsInt32()
		n, _ := v.Value()[0].AsInt32()
		sums[k] = n
	}
	require.True(t, sawFlushAndRestart)
	require.Equal(t, int32(15), sums[1], "pre-restart epoch: key 1 sums 10+5")
	require.Equal(t, int32(1), sums[2])
}

func TestAssociativeTwoStageFoldMatchesSinglePassSum(t *testing.T) {
	localSrc := &scriptOp{script: []element.StreamElement[row.Row]{
		element.Item(keyedRow(1, 3)),
		element.Item(keyedRow(1, 4)),
		element.Item(keyedRow(2, 9)),
		element.Terminate[row.Row](),
	}}
	local := keyed.LocalFold(localSrc,
		func() int32 { return 0 },
		func(acc int32, r row.Row) int32 { n, _ := r.Value()[0].AsInt32(); return acc + n },
		func(key []row.Cell, acc int32) row.Row {
			out, _ := row.New(row.Int32(acc)).AbsorbKey(key)
			return out
		},
	)
	local.Setup(coord.ExecutionMetadata{})
	partials := drain(local)

	// Add a hand-built partial for key 1 standing in for a peer replica's
	// local output, then merge it with the local stage's partials in one
	// global stage, as a hash-sharded two-stage fold would after collocation.
	var withoutTerminate []element.StreamElement[row.Row]
	for _, e := range partials {
		if e.Tag() != element.TagTerminate {
			withoutTerminate = append(withoutTerminate, e)
		}
	}
	withoutTerminate = append(withoutTerminate, element.Item(keyedRow(1, 100)))
	withoutTerminate = append(withoutTerminate, element.Terminate[row.Row]())

	merge := keyed.GlobalMerge(&scriptOp{script: withoutTerminate},
		func(r row.Row) int32 { n, _ := r.Value()[0].AsInt32(); return n },
		func(a, b int32) int32 { return a + b },
		func(key []row.Cell, acc int32) row.Row {
			out, _ := row.New(row.Int32(acc)).AbsorbKey(key)
			return out
		},
	)
	merge.Setup(coord.ExecutionMetadata{})
	results := drain(merge)

	sums := map[int32]int32{}
	for _, e := range results {
		v, ok := e.Payload()
		if !ok {
			continue
		}
		k, _ := v.Key()[0].AsInt32()
		n, _ := v.Value()[0].AsInt32()
		sums[k] = n
	}
	require.Equal(t, int32(3+4+100), sums[1])
	require.Equal(t, int32(9), sums[2])
}
