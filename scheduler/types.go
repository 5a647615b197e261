// Package scheduler implements the block/replica scheduling model: it
// walks the block graph (already assigned leaves-first by the builder),
// wires bounded channels between blocks per their ship strategy, and
// launches one worker goroutine per (block, replica) with a
// crash-catching guard and pull-based health reporting, per §4.2.
package scheduler

import (
	"github.com/chinifabio/renoir-go/block"
	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/health"
	"go.uber.org/zap"
)

// BlockContext and MaterializeFunc live in the block package: block.Block
// references MaterializeFunc directly in its own field, and block cannot
// import scheduler without a cycle. Aliased here so scheduler code can
// keep writing the short names.
type BlockContext = block.BlockContext
type MaterializeFunc = block.MaterializeFunc

// Options configures one execution.
type Options struct {
	// Hosts lists the declared remote hosts and their per-host
	// replication, per the runtime config's `hosts` table. A nil/empty
	// Hosts means single-host execution with Parallelism replicas.
	Hosts []HostSpec
	// Parallelism is the declared parallelism used to resolve
	// block.ReplicationUnlimited when Hosts is empty.
	Parallelism int
	// ChannelCapacity bounds every inter-block channel (backpressure).
	ChannelCapacity int
	// Registry collects per-worker health status; if nil, a private
	// registry with no prometheus registration is created.
	Registry *health.Registry
	// Logger receives per-worker lifecycle and crash events; defaults to
	// zap.NewNop() when nil.
	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// HostSpec is one entry of the runtime config's `hosts` table.
type HostSpec struct {
	Address     string
	Replication int
}

func (o Options) declaredParallelism() int {
	if len(o.Hosts) > 0 {
		total := 0
		for _, h := range o.Hosts {
			total += h.Replication
		}
		return total
	}
	if o.Parallelism > 0 {
		return o.Parallelism
	}
	return 1
}

func (o Options) channelCapacity() int {
	if o.ChannelCapacity > 0 {
		return o.ChannelCapacity
	}
	return 64
}

// hostForReplica assigns a HostID to replica index i of a block, round
// robin over declared hosts (or HostID(0) for single-host execution).
func (o Options) hostForReplica(i int) coord.HostID {
	if len(o.Hosts) == 0 {
		return 0
	}
	return coord.HostID(i % len(o.Hosts))
}
