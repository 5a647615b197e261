package iterate_test

import (
	"testing"
	"time"

	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/iterate"
	"github.com/chinifabio/renoir-go/operator"
	"github.com/chinifabio/renoir-go/row"
	"github.com/stretchr/testify/require"
)

type fixedOp struct {
	rows []row.Row
	idx  int
}

func (f *fixedOp) Setup(coord.ExecutionMetadata) {}
func (f *fixedOp) Structure() operator.Structure { return operator.Structure{Name: "fixed"} }
func (f *fixedOp) Next() element.StreamElement[row.Row] {
	if f.idx >= len(f.rows) {
		return element.Terminate[row.Row]()
	}
	r := f.rows[f.idx]
	f.idx++
	return element.Item(r)
}

func edge(a, b int32) row.Row { return row.New(row.Int32(a), row.Int32(b)) }

// TestIterateConnectedComponentsConvergesPerScenario follows spec §8
// scenario 4: edges {(1,2),(2,3)}, seed {1}; after 2 rounds the
// reachable set is {1,2,3}, and a third round discovers nothing new so
// stop fires.
func TestIterateConnectedComponentsConvergesPerScenario(t *testing.T) {
	edges := &fixedOp{rows: []row.Row{edge(1, 2), edge(2, 3)}}

	type set = map[int32]bool
	clone := func(s set) set {
		out := make(set, len(s))
		for k := range s {
			out[k] = true
		}
		return out
	}

	cfg := iterate.Config[set]{
		Init: set{1: true},
		Body: func(r row.Row, state set) (row.Row, bool) {
			src, _ := r.Cells[0].AsInt32()
			dst, _ := r.Cells[1].AsInt32()
			if !state[src] || state[dst] {
				return row.Row{}, false
			}
			return row.New(row.Int32(dst)), true
		},
		LocalDelta: func(acc set, delta row.Row) set {
			v, _ := delta.Cells[0].AsInt32()
			acc = clone(acc)
			acc[v] = true
			return acc
		},
		GlobalApply: func(state set, acc set) set {
			merged := clone(state)
			for k := range acc {
				merged[k] = true
			}
			return merged
		},
	}
	prevLen := -1
	cfg.Stop = func(state set) bool {
		converged := len(state) == prevLen
		prevLen = len(state)
		return converged
	}

	primary, secondary := iterate.New[set](edges, cfg)
	primary.Setup(coord.ExecutionMetadata{})
	secondary.Setup(coord.ExecutionMetadata{})

	states := drainPrimary(t, primary)
	require.True(t, len(states) >= 2)
	require.Equal(t, set{1: true, 2: true}, states[0], "round 1 discovers vertex 2 via edge (1,2)")
	final := states[len(states)-1]
	require.Equal(t, set{1: true, 2: true, 3: true}, final, "round 2 discovers vertex 3 via edge (2,3)")

	drainSecondary(t, secondary)
}

func drainPrimary(t *testing.T, op operator.Operator[map[int32]bool]) []map[int32]bool {
	t.Helper()
	done := make(chan []map[int32]bool, 1)
	go func() {
		var out []map[int32]bool
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
		t.Fatal("iterate primary output did not terminate in time")
		return nil
	}
}

func drainSecondary(t *testing.T, op operator.Operator[row.Row]) {
	t.Helper()
	done := make(chan struct{}, 1)
	go func() {
		for {
			e := op.Next()
			if e.Tag() == element.TagTerminate {
				done <- struct{}{}
				return
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("iterate secondary output did not terminate in time")
	}
}
