// Package block defines the pipeline's unit of scheduling: a block is a
// maximal chain of operators with no intra-block shipping, per §3/§4.2.
package block

import (
	"github.com/chinifabio/renoir-go/channel"
	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/operator"
	"github.com/chinifabio/renoir-go/ship"
)

// ReplicationKind selects how many replicas a block gets.
type ReplicationKind int

const (
	// ReplicationUnlimited scales the block to the host's declared
	// parallelism (or the layer's max_parallelism, when bounded).
	ReplicationUnlimited ReplicationKind = iota
	// ReplicationFixed pins the block to an exact replica count.
	ReplicationFixed
	// ReplicationSingleton pins the block to exactly one replica, as
	// required by an iterate loop's global-apply reducer.
	ReplicationSingleton
)

// Replication describes a block's replication factor.
type Replication struct {
	Kind  ReplicationKind
	Fixed int // meaningful only when Kind == ReplicationFixed
}

// Unlimited returns the unlimited replication descriptor.
func Unlimited() Replication { return Replication{Kind: ReplicationUnlimited} }

// Fixed returns a replication descriptor pinned to n replicas.
func Fixed(n int) Replication { return Replication{Kind: ReplicationFixed, Fixed: n} }

// Singleton returns a replication descriptor pinned to one replica.
func Singleton() Replication { return Replication{Kind: ReplicationSingleton} }

// Resolve computes the concrete replica count given the environment's
// declared parallelism (e.g. host count * per-host parallelism, or a
// layer's max_parallelism when bounded).
func (r Replication) Resolve(declaredParallelism int) int {
	switch r.Kind {
	case ReplicationFixed:
		return r.Fixed
	case ReplicationSingleton:
		return 1
	default:
		if declaredParallelism < 1 {
			return 1
		}
		return declaredParallelism
	}
}

// BlockContext is everything a block's Materialize function needs to
// build one replica's operator chain: its wired input merges, its wired
// output routers, and the replica's execution metadata.
type BlockContext struct {
	Meta coord.ExecutionMetadata
	// Inputs holds one merging Start per entry in Block.Upstream, in the
	// same order; empty for a source block.
	Inputs []*channel.Start[any]
	// Outputs holds one routing End per downstream block that declares
	// this block in its own Upstream list, in block-id order; empty for
	// a terminal (sink) block. A block with more than one entry here is
	// a genuine DAG fan-out: the same element stream is shipped,
	// independently ship-strategy-routed, to each downstream block.
	Outputs []*channel.End[any]
}

// MaterializeFunc builds one replica's operator chain, wired to the
// inputs/output described by ctx. It is type-erased via operator.Boxed
// since block does not know the payload type T of the chain it builds;
// the scheduler recovers T at the point it invokes the chain.
type MaterializeFunc func(ctx BlockContext) operator.Boxed

// Block is a maximal pipeline segment: an ordered operator chain ending
// in either a sink or an "end" that ships into the next block's
// receivers. Blocks reference each other only by id (coord.BlockID), so
// a back-edge introduced by iterate is just an index, not an owning
// reference, and is safe to store in an arena alongside forward edges.
type Block struct {
	ID          coord.BlockID
	Upstream    []coord.BlockID
	Strategy    ship.Strategy
	Replication Replication

	// KeyFunc extracts the shipping key from this block's own output
	// payload; required when Strategy is ship.GroupByHash, ignored
	// otherwise (the wiring layer never calls it for a keyless strategy).
	KeyFunc channel.KeyFunc[any]

	// Materialize builds one fresh, unset-up copy of this block's
	// operator chain for one replica.
	Materialize MaterializeFunc
}
