// Package ship implements the strategies that route items between
// blocks at a shuffle boundary: random, group-by-hash, broadcast and
// direct, per §4.3. Strategies only ever decide routing for items
// (Item/Timestamped elements); watermarks and control signals are always
// broadcast by the block's sending end regardless of strategy, which is
// enforced by the caller (channel package), not here.
package ship

// RouteContext carries everything a Strategy needs to pick receivers
// for one item.
type RouteContext struct {
	NumReceivers     int
	SenderReplicaIdx int
	KeyHash          uint64
	HasKey           bool
}

// Strategy routes a single item to one or more of numReceivers targets.
// rr is a per-sender round-robin counter, owned and persisted by the
// caller across calls (only Random mutates it).
type Strategy interface {
	Name() string
	Route(rc RouteContext, rr *uint64) []int
}

// Random is the default strategy: round-robin over receivers. It
// preserves watermark broadcast because watermarks never go through
// Route at all.
type Random struct{}

func (Random) Name() string { return "random" }

func (Random) Route(rc RouteContext, rr *uint64) []int {
	if rc.NumReceivers <= 0 {
		return nil
	}
	idx := int(*rr % uint64(rc.NumReceivers))
	*rr++
	return []int{idx}
}

// GroupByHash deterministically partitions by hash(key) mod R so every
// occurrence of a key reaches the same receiver (§8 invariant 3).
type GroupByHash struct{}

func (GroupByHash) Name() string { return "group-by-hash" }

func (GroupByHash) Route(rc RouteContext, _ *uint64) []int {
	if rc.NumReceivers <= 0 {
		return nil
	}
	return []int{int(rc.KeyHash % uint64(rc.NumReceivers))}
}

// Broadcast sends every item to every receiver; also the implicit
// strategy for watermarks and control signals irrespective of the
// item-level strategy in force.
type Broadcast struct{}

func (Broadcast) Name() string { return "broadcast" }

func (Broadcast) Route(rc RouteContext, _ *uint64) []int {
	out := make([]int, rc.NumReceivers)
	for i := range out {
		out[i] = i
	}
	return out
}

// Direct routes replica i of the sending block to replica i of the
// receiving block, used when both blocks share a replication factor and
// the user asked for co-location.
type Direct struct{}

func (Direct) Name() string { return "direct" }

func (Direct) Route(rc RouteContext, _ *uint64) []int {
	if rc.NumReceivers <= 0 {
		return nil
	}
	return []int{rc.SenderReplicaIdx % rc.NumReceivers}
}
