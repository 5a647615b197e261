// Package plan implements the logical plan IR, optimizer rules and
// plan-to-block lowering of spec §4.8: predicate pushdown, projection
// pushdown, the Select(GroupBy) -> GroupBySelect stream rewrite, and
// expression compilation, run to a fixed point before lowering to
// operator chains.
package plan

import (
	"github.com/chinifabio/renoir-go/expr"
	"github.com/chinifabio/renoir-go/row"
)

// Node is a logical plan node. Only the types in this file implement it.
type Node interface {
	planNode()
}

// TableScan reads rows from a named source, optionally filtering by
// Predicate and restricting to Projections at the source boundary —
// both fields start nil and are filled in by the optimizer's pushdown
// rules. Schema describes the source's full, unprojected row layout.
type TableScan struct {
	Path        string
	Predicate   expr.Expr
	Projections []int
	Schema      row.Schema

	compiledPredicate expr.Thunk
}

// Filter drops rows where Predicate does not evaluate to Bool(true).
type Filter struct {
	Input     Node
	Predicate expr.Expr

	compiled expr.Thunk
}

// Select projects Input's rows through Exprs, producing one output
// column per expression.
type Select struct {
	Input Node
	Exprs []expr.Expr

	compiled []expr.Thunk
}

// Shuffle ships rows by Key to redistribute them across the next
// block's replicas (lowered to keyed.KeyBy on Key; the hash routing itself
// is done by a ship.GroupByHash edge between blocks, not by Lower).
type Shuffle struct {
	Input Node
	Key   expr.Expr
}

// GroupBy keys rows by the columns at Keys, without yet aggregating
// (lowered to keyed.KeyBy).
type GroupBy struct {
	Input Node
	Keys  []int
}

// GroupBySelect is the fused form the stream-rewrite rule produces when
// a Select directly above a GroupBy lists the grouping columns first and
// aggregator leaves after them: Keys names the grouping columns (by index
// into Input's schema) and Aggs the aggregator leaves to compute per group.
type GroupBySelect struct {
	Input Node
	Keys  []int
	Aggs  []expr.AggLeaf
}

// DropKey zeroes the key prefix of every row (lowered to row.DropKey
// via a thin map operator).
type DropKey struct{ Input Node }

// DropColumns removes the columns at Indices.
type DropColumns struct {
	Input   Node
	Indices []int
}

// CollectVec is a terminal sink materializing the stream into memory.
type CollectVec struct{ Input Node }

// JoinType selects Join's output semantics, mirroring join.Type.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinOuter
)

// Join combines Left and Right on the column at LeftOn/RightOn.
type Join struct {
	Left, Right     Node
	LeftOn, RightOn int
	Type            JoinType
}

// UpStream is a leaf referencing an externally-materialized stream by
// opaque Handle (e.g. a layer connector source), typed by Schema.
type UpStream struct {
	Handle string
	Schema row.Schema
}

// ParallelIterator is a leaf generating rows from Gen, typed by Schema;
// it is the plan-level counterpart of a programmatic in-memory source.
type ParallelIterator struct {
	Gen    func() []row.Row
	Schema row.Schema
}

func (*TableScan) planNode()        {}
func (*Filter) planNode()           {}
func (*Select) planNode()           {}
func (*Shuffle) planNode()          {}
func (*GroupBy) planNode()          {}
func (*GroupBySelect) planNode()    {}
func (*DropKey) planNode()          {}
func (*DropColumns) planNode()      {}
func (*CollectVec) planNode()       {}
func (*Join) planNode()             {}
func (*UpStream) planNode()         {}
func (*ParallelIterator) planNode() {}
