package block

import "github.com/chinifabio/renoir-go/coord"

// Arena owns every block in an execution graph by index, so that
// iterate's back-edge can reference a block built earlier in the walk
// without an owning Go pointer cycle.
type Arena struct {
	blocks []*Block
}

// NewArena returns an empty block arena.
func NewArena() *Arena { return &Arena{} }

// Add assigns the next block id (leaves-first, per the scheduler's
// walk order) and stores the block.
func (a *Arena) Add(b *Block) coord.BlockID {
	id := coord.BlockID(len(a.blocks))
	b.ID = id
	a.blocks = append(a.blocks, b)
	return id
}

// Get returns the block for id.
func (a *Arena) Get(id coord.BlockID) *Block { return a.blocks[id] }

// Blocks returns every block in id order.
func (a *Arena) Blocks() []*Block { return a.blocks }

// Len reports the number of blocks in the arena.
func (a *Arena) Len() int { return len(a.blocks) }

// HasCycle reports whether the block graph (ignoring edges explicitly
// marked as iterate back-edges via backEdges) contains a cycle, so a
// caller can reject a malformed pipeline before launching workers;
// scheduler.Run does not call it.
func (a *Arena) HasCycle(backEdges map[coord.BlockID]bool) bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[coord.BlockID]int, len(a.blocks))
	var visit func(id coord.BlockID) bool
	visit = func(id coord.BlockID) bool {
		color[id] = gray
		for _, up := range a.Get(id).Upstream {
			if backEdges[id] {
				continue
			}
			switch color[up] {
			case gray:
				return true
			case white:
				if visit(up) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}
	for _, b := range a.blocks {
		if color[b.ID] == white {
			if visit(b.ID) {
				return true
			}
		}
	}
	return false
}
