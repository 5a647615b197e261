package block_test

import (
	"testing"

	"github.com/chinifabio/renoir-go/block"
	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/ship"
	"github.com/stretchr/testify/require"
)

func TestArenaDetectsCycleExceptOnDeclaredBackEdge(t *testing.T) {
	a := block.NewArena()
	b0 := &block.Block{Strategy: ship.Random{}, Replication: block.Unlimited()}
	id0 := a.Add(b0)
	b1 := &block.Block{Upstream: []coord.BlockID{id0}, Strategy: ship.Random{}, Replication: block.Unlimited()}
	id1 := a.Add(b1)

	// Introduce a back-edge from b0 to b1, forming a cycle.
	a.Get(id0).Upstream = append(a.Get(id0).Upstream, id1)

	require.True(t, a.HasCycle(nil), "undeclared back-edge should be reported as a cycle")
	require.False(t, a.HasCycle(map[coord.BlockID]bool{id0: true}), "declared iterate back-edge should not count as a cycle")
}

func TestReplicationResolve(t *testing.T) {
	require.Equal(t, 1, block.Singleton().Resolve(8))
	require.Equal(t, 3, block.Fixed(3).Resolve(8))
	require.Equal(t, 8, block.Unlimited().Resolve(8))
	require.Equal(t, 1, block.Unlimited().Resolve(0))
}
