package ship_test

import (
	"testing"

	"github.com/chinifabio/renoir-go/ship"
	"github.com/stretchr/testify/require"
)

func TestGroupByHashDeterministic(t *testing.T) {
	var rr uint64
	key := []uint64{1, 2, 3}
	_ = key
	rc := ship.RouteContext{NumReceivers: 4, KeyHash: 123456789}
	a := ship.GroupByHash{}.Route(rc, &rr)
	b := ship.GroupByHash{}.Route(rc, &rr)
	require.Equal(t, a, b)
	require.Len(t, a, 1)
}

func TestRandomRoundRobins(t *testing.T) {
	var rr uint64
	rc := ship.RouteContext{NumReceivers: 3}
	seen := map[int]bool{}
	for i := 0; i < 3; i++ {
		targets := ship.Random{}.Route(rc, &rr)
		require.Len(t, targets, 1)
		seen[targets[0]] = true
	}
	require.Len(t, seen, 3, "round robin should visit every receiver once over a full cycle")
}

func TestBroadcastTargetsEveryReceiver(t *testing.T) {
	var rr uint64
	rc := ship.RouteContext{NumReceivers: 5}
	targets := ship.Broadcast{}.Route(rc, &rr)
	require.Len(t, targets, 5)
}

func TestDirectMapsSenderToSameIndex(t *testing.T) {
	var rr uint64
	rc := ship.RouteContext{NumReceivers: 4, SenderReplicaIdx: 2}
	targets := ship.Direct{}.Route(rc, &rr)
	require.Equal(t, []int{2}, targets)
}
