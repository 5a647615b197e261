// Package coord identifies replicas within an execution: the
// (block, host, replica) triple referenced throughout the scheduler,
// ship strategies and layer connector.
package coord

import (
	"fmt"

	"github.com/google/uuid"
)

// BlockID identifies a block within the pipeline graph, assigned
// leaves-first by the scheduler.
type BlockID int

// HostID identifies a physical or logical host running one or more
// replicas of a block.
type HostID int

// ReplicaID identifies one replica of a block on its host.
type ReplicaID int

// Coord is the triple that uniquely names a replica within an execution.
// The zero value names replica 0 of block 0 on host 0.
type Coord struct {
	BlockID   BlockID
	HostID    HostID
	ReplicaID ReplicaID
}

func (c Coord) String() string {
	return fmt.Sprintf("block(%d)/host(%d)/replica(%d)", c.BlockID, c.HostID, c.ReplicaID)
}

// GlobalID is a process-unique identifier for a replica across the whole
// execution, independent of block/host/replica numbering collisions that
// can occur across separately-materialized blocks.
type GlobalID uint64

// Global computes a stable, globally-unique id for a coord by packing its
// three components; this is used as the channel-registration and
// thread-local storage key for the replica.
func (c Coord) Global() GlobalID {
	return GlobalID(uint64(c.BlockID)<<42 | uint64(c.HostID)<<21 | uint64(c.ReplicaID))
}

// Fingerprint is an opaque, process-unique token identifying one replica
// to a remote layer, carried in MessageMetadata across the layer
// connector. It is a random UUID rather than a coord because cross-tier
// replica numbering is not guaranteed comparable between deployment
// tiers.
type Fingerprint string

// NewFingerprint mints a fresh replica fingerprint.
func NewFingerprint() Fingerprint {
	return Fingerprint(uuid.NewString())
}

// ExecutionMetadata is bound to a replica during setup(): its coord, the
// declared parallelism of its block, and iteration-state handles when the
// replica sits on an iterate back-edge.
type ExecutionMetadata struct {
	Coord            Coord
	Parallelism      int
	Fingerprint      Fingerprint
	IterationHandles IterationHandles
}

// IterationHandles exposes the current iteration round and a way to read
// the previous iteration's broadcast state snapshot. Populated only for
// replicas inside an iterate block; zero value elsewhere.
type IterationHandles struct {
	Round     int
	StateRead func() interface{}
}
