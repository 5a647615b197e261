package scheduler

import (
	"github.com/chinifabio/renoir-go/block"
	"github.com/chinifabio/renoir-go/channel"
	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/errs"
)

// WiredGraph is the fully-channeled form of a block arena: one
// BlockContext per (block, replica), ready to be handed to that
// block's Materialize function.
type WiredGraph struct {
	arena         *block.Arena
	replicaCounts map[coord.BlockID]int
	contexts      map[coord.BlockID][]block.BlockContext
}

// ReplicaCount reports the resolved replica count for a block.
func (g *WiredGraph) ReplicaCount(id coord.BlockID) int { return g.replicaCounts[id] }

// Context returns the wired BlockContext for replica idx of block id.
func (g *WiredGraph) Context(id coord.BlockID, idx int) block.BlockContext {
	return g.contexts[id][idx]
}

// Wire walks the block arena and builds every inter-replica channel the
// graph needs. For each block, in id order, it visits that block's own
// Upstream list positionally: for edge i (from a.Get(down.Upstream[i])
// into down) it allocates a full replica_up x replica_down matrix of
// bounded channels, folds each upstream replica's row into a routing End
// (using the upstream block's own ship strategy) appended to that
// replica's Outputs, and each downstream replica's column into a merging
// Start stored at Inputs[i] — so Inputs stays aligned with Upstream as
// BlockContext documents.
//
// Blocks must already be topologically assignable leaves-first (the
// order Arena.Add was called in) so that every upstream block's replica
// count is resolved before its downstream edges are wired; Wire does not
// itself validate acyclicity beyond what the caller already checked with
// Arena.HasCycle.
func Wire(a *block.Arena, opts Options) (*WiredGraph, error) {
	if a.Len() == 0 {
		return nil, errs.New(errs.CodeInvalid, "cannot wire an empty block graph")
	}

	declared := opts.declaredParallelism()
	capacity := opts.channelCapacity()

	g := &WiredGraph{
		arena:         a,
		replicaCounts: make(map[coord.BlockID]int, a.Len()),
		contexts:      make(map[coord.BlockID][]block.BlockContext, a.Len()),
	}

	for _, b := range a.Blocks() {
		n := b.Replication.Resolve(declared)
		if n < 1 {
			return nil, errs.Newf(errs.CodeInvalid, "block %d resolved to a non-positive replica count %d", b.ID, n)
		}
		g.replicaCounts[b.ID] = n
		g.contexts[b.ID] = make([]block.BlockContext, n)
	}

	for _, down := range a.Blocks() {
		rd := g.replicaCounts[down.ID]
		ctxs := g.contexts[down.ID]
		for i := range ctxs {
			ctxs[i].Inputs = make([]*channel.Start[any], len(down.Upstream))
		}

		for slot, upID := range down.Upstream {
			up := a.Get(upID)
			ru := g.replicaCounts[up.ID]

			// Matrix of ru x rd bounded channels for this single edge.
			senderRows := make([][]channel.Sender[any], ru)
			recvCols := make([][]channel.Receiver[any], rd)
			for d := 0; d < rd; d++ {
				recvCols[d] = make([]channel.Receiver[any], ru)
			}
			for s := 0; s < ru; s++ {
				senderRows[s] = make([]channel.Sender[any], rd)
				for d := 0; d < rd; d++ {
					snd, rcv := channel.NewBounded[any](capacity)
					senderRows[s][d] = snd
					recvCols[d][s] = rcv
				}
			}

			for s := 0; s < ru; s++ {
				end := channel.NewEnd(senderRows[s], up.Strategy, s, up.KeyFunc)
				g.contexts[up.ID][s].Outputs = append(g.contexts[up.ID][s].Outputs, end)
			}
			for d := 0; d < rd; d++ {
				ctxs[d].Inputs[slot] = channel.NewStart(recvCols[d])
			}
		}
	}

	return g, nil
}
