package scheduler_test

import (
	"sync"
	"testing"
	"time"

	"github.com/chinifabio/renoir-go/block"
	"github.com/chinifabio/renoir-go/channel"
	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/operator"
	"github.com/chinifabio/renoir-go/scheduler"
	"github.com/chinifabio/renoir-go/ship"
	"github.com/stretchr/testify/require"
)

type genSource struct {
	items []any
	idx   int
}

func (g *genSource) Setup(coord.ExecutionMetadata) {}
func (g *genSource) Structure() operator.Structure { return operator.Structure{Name: "gen"} }
func (g *genSource) Next() element.StreamElement[any] {
	if g.idx >= len(g.items) {
		return element.Terminate[any]()
	}
	v := g.items[g.idx]
	g.idx++
	return element.Item[any](v)
}

type collectSink struct {
	in        *channel.Start[any]
	collected *[]any
	mu        *sync.Mutex
}

func (s *collectSink) Setup(coord.ExecutionMetadata) {}
func (s *collectSink) Structure() operator.Structure { return operator.Structure{Name: "collect"} }
func (s *collectSink) Next() element.StreamElement[any] {
	e, _ := s.in.Next()
	if v, ok := e.Payload(); ok {
		s.mu.Lock()
		*s.collected = append(*s.collected, v)
		s.mu.Unlock()
	}
	return e
}

func TestRunWiresSingleReplicaPipelineEndToEnd(t *testing.T) {
	a := block.NewArena()

	srcID := a.Add(&block.Block{
		Strategy:    ship.Random{},
		Replication: block.Fixed(1),
		Materialize: func(ctx block.BlockContext) operator.Boxed {
			return operator.Box[any](&genSource{items: []any{1, 2, 3}})
		},
	})

	var collected []any
	var mu sync.Mutex
	a.Add(&block.Block{
		Upstream:    []coord.BlockID{srcID},
		Strategy:    ship.Random{},
		Replication: block.Fixed(1),
		Materialize: func(ctx block.BlockContext) operator.Boxed {
			return operator.Box[any](&collectSink{in: ctx.Inputs[0], collected: &collected, mu: &mu})
		},
	})

	ex, err := scheduler.Run(a, scheduler.Options{Parallelism: 1, ChannelCapacity: 4})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- ex.Wait() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("execution did not complete in time")
	}

	require.Equal(t, []any{1, 2, 3}, collected)

	snap := ex.Registry.Probe()
	require.True(t, snap.AllTerminated)
	require.False(t, snap.AnyCrashed)
}

func TestRunReportsPanicAsError(t *testing.T) {
	a := block.NewArena()
	a.Add(&block.Block{
		Strategy:    ship.Random{},
		Replication: block.Fixed(1),
		Materialize: func(ctx block.BlockContext) operator.Boxed {
			return operator.Box[any](&panickingOp{})
		},
	})

	ex, err := scheduler.Run(a, scheduler.Options{Parallelism: 1})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- ex.Wait() }()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("execution did not complete in time")
	}

	snap := ex.Registry.Probe()
	require.True(t, snap.AnyCrashed)
}

type panickingOp struct{}

func (panickingOp) Setup(coord.ExecutionMetadata)  {}
func (panickingOp) Structure() operator.Structure { return operator.Structure{Name: "panics"} }
func (panickingOp) Next() element.StreamElement[any] {
	panic("boom")
}
