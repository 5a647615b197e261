package join_test

import (
	"testing"
	"time"

	"github.com/chinifabio/renoir-go/channel"
	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/join"
	"github.com/chinifabio/renoir-go/row"
	"github.com/stretchr/testify/require"
)

func startOf(t *testing.T, rows []row.Row) *channel.Start[any] {
	t.Helper()
	snd, rcv := channel.NewBounded[any](len(rows) + 2)
	go func() {
		for _, r := range rows {
			snd.Send(element.Item[any](r))
		}
		snd.Send(element.FlushAndRestart[any]())
		snd.Send(element.Terminate[any]())
		snd.Close()
	}()
	return channel.NewStart([]channel.Receiver[any]{rcv})
}

func keyed(k string, v string) row.Row {
	r, err := row.New(cellOf(v)).AbsorbKey([]row.Cell{cellOf(k)})
	if err != nil {
		panic(err)
	}
	return r
}

// cellOf packs a short ASCII string into an int32 cell so tests can use
// readable labels without needing a string cell kind.
func cellOf(s string) row.Cell {
	var n int32
	for _, c := range s {
		n = n*31 + int32(c)
	}
	return row.Int32(n)
}

func TestInnerJoinCrossProductsWithinKey(t *testing.T) {
	left := startOf(t, []row.Row{keyed("1", "a"), keyed("2", "b")})
	right := startOf(t, []row.Row{keyed("1", "x"), keyed("1", "y"), keyed("3", "z")})

	op := join.New(left, right, join.Inner,
		func(r row.Row) []row.Cell { return r.Key() },
		func(r row.Row) []row.Cell { return r.Key() },
		nil, nil,
	)
	op.Setup(coord.ExecutionMetadata{})

	results := drain(t, op)
	require.Len(t, results, 2, "only key 1 matches on both sides, twice (a,x) and (a,y)")
	for _, r := range results {
		require.True(t, row.Equal(cellOf("1"), r.Key()[0]))
	}
}

func TestLeftJoinEmitsUnmatchedWithNullRightAtEpochEnd(t *testing.T) {
	left := startOf(t, []row.Row{keyed("1", "a"), keyed("2", "b")})
	right := startOf(t, []row.Row{keyed("1", "x")})

	nullRight := func() row.Row { return row.New(row.None()) }
	op := join.New(left, right, join.Left,
		func(r row.Row) []row.Cell { return r.Key() },
		func(r row.Row) []row.Cell { return r.Key() },
		nullRight, nil,
	)
	op.Setup(coord.ExecutionMetadata{})

	results := drain(t, op)
	require.Len(t, results, 2, "key 1 matches once, key 2 is unmatched and paired with a null right")

	var sawUnmatched bool
	for _, r := range results {
		if r.Value()[0].IsNone() {
			sawUnmatched = true
		}
	}
	require.True(t, sawUnmatched)
}

func drain(t *testing.T, op interface {
	Next() element.StreamElement[row.Row]
}) []row.Row {
	t.Helper()
	done := make(chan []row.Row, 1)
	go func() {
		var out []row.Row
		for {
			e := op.Next()
			if e.Tag() == element.TagTerminate {
				done <- out
				return
			}
			if v, ok := e.Payload(); ok {
				out = append(out, v)
			}
		}
	}()

	select {
	case out := <-done:
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("join did not terminate in time")
		return nil
	}
}
