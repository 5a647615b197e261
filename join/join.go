// Package join implements the two-stream join orchestration of spec
// §4.5: inner, left and outer variants over rows already ship-routed so
// that equal keys land on the same replica (hash ship) or are fully
// replicated (broadcast-right ship); this package only implements the
// local, per-replica matching logic, not the ship selection itself.
package join

import (
	"github.com/chinifabio/renoir-go/channel"
	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/operator"
	"github.com/chinifabio/renoir-go/row"
)

// Type selects the join's output semantics.
type Type int

const (
	// Inner emits only rows with a match on both sides.
	Inner Type = iota
	// Left emits every left row; unmatched ones pair with NullRight.
	Left
	// Outer emits every row from both sides; unmatched ones pair with
	// the opposite side's null row.
	Outer
)

// KeyFunc extracts the join key cells from a row (already keyed by a
// prior KeyBy, or computed fresh from column positions named at
// pipeline-build time).
type KeyFunc func(row.Row) []row.Cell

// tagged pairs one side's element with the side index (0=left, 1=right).
type tagged struct {
	side int
	elem element.StreamElement[any]
}

type joinOp struct {
	typ   Type
	left  *channel.Start[any]
	right *channel.Start[any]

	leftKey  KeyFunc
	rightKey KeyFunc

	// nullRight/nullLeft supply the value-shaped cells substituted for
	// the missing side of an unmatched row; only their Value() portion
	// is used. Unused (nil) for Inner.
	nullRight func() row.Row
	nullLeft  func() row.Row

	leftRows  map[string][]row.Row
	rightRows map[string][]row.Row

	merged  chan tagged
	pending []element.StreamElement[row.Row]

	wm            *element.WatermarkMerger
	flushSeen     int
	terminateSeen int
}

// New builds a join operator reading its two sides from ctx.Inputs[0]
// (left) and ctx.Inputs[1] (right) of the block it is materialized into.
// leftKey/rightKey compute the join key from each side's rows; nullRight
// and nullLeft are required for Left and Outer respectively (ignored for
// Inner) and must return a row whose Value() has the width of that
// side's schema.
func New(left, right *channel.Start[any], typ Type, leftKey, rightKey KeyFunc, nullRight, nullLeft func() row.Row) operator.Operator[row.Row] {
	return &joinOp{
		typ:       typ,
		left:      left,
		right:     right,
		leftKey:   leftKey,
		rightKey:  rightKey,
		nullRight: nullRight,
		nullLeft:  nullLeft,
		leftRows:  make(map[string][]row.Row),
		rightRows: make(map[string][]row.Row),
		merged:    make(chan tagged, 16),
		wm:        element.NewWatermarkMerger(2),
	}
}

func (j *joinOp) Setup(meta coord.ExecutionMetadata) {
	pump := func(side int, s *channel.Start[any]) {
		for {
			e, _ := s.Next()
			j.merged <- tagged{side: side, elem: e}
			if e.Tag() == element.TagTerminate {
				return
			}
		}
	}
	go pump(0, j.left)
	go pump(1, j.right)
}

func (j *joinOp) Next() element.StreamElement[row.Row] {
	for {
		if len(j.pending) > 0 {
			e := j.pending[0]
			j.pending = j.pending[1:]
			return e
		}

		t := <-j.merged
		switch t.elem.Tag() {
		case element.TagItem, element.TagTimestamped:
			v, _ := t.elem.Payload()
			j.observe(t.side, v.(row.Row))
			continue
		case element.TagWatermark:
			if ts, release := j.wm.Observe(t.side, t.elem.Timestamp()); release {
				j.pending = append(j.pending, element.Watermark[row.Row](ts))
			}
			continue
		case element.TagFlushBatch:
			continue
		case element.TagFlushAndRestart:
			j.flushSeen++
			if j.flushSeen < 2 {
				continue
			}
			j.flushSeen = 0
			j.emitUnmatchedAndClear()
			j.pending = append(j.pending, element.FlushAndRestart[row.Row]())
			continue
		case element.TagTerminate:
			j.terminateSeen++
			if j.terminateSeen < 2 {
				continue
			}
			j.emitUnmatchedAndClear()
			j.pending = append(j.pending, element.Terminate[row.Row]())
			continue
		}
	}
}

func (j *joinOp) observe(side int, v row.Row) {
	if side == 0 {
		k := row.KeyString(j.leftKey(v))
		j.leftRows[k] = append(j.leftRows[k], v)
		for _, r := range j.rightRows[k] {
			j.pending = append(j.pending, element.Item(j.combine(v, r)))
		}
		return
	}
	k := row.KeyString(j.rightKey(v))
	j.rightRows[k] = append(j.rightRows[k], v)
	for _, l := range j.leftRows[k] {
		j.pending = append(j.pending, element.Item(j.combine(l, v)))
	}
}

// emitUnmatchedAndClear is called at an epoch boundary (FlushAndRestart
// observed from both sides) or at final Terminate: it emits unmatched
// rows per the join type, then clears per-key state for the next epoch.
func (j *joinOp) emitUnmatchedAndClear() {
	if j.typ != Inner {
		for k, ls := range j.leftRows {
			if len(j.rightRows[k]) > 0 {
				continue
			}
			for _, l := range ls {
				j.pending = append(j.pending, element.Item(j.combine(l, row.Row{})))
			}
		}
	}
	if j.typ == Outer {
		for k, rs := range j.rightRows {
			if len(j.leftRows[k]) > 0 {
				continue
			}
			for _, r := range rs {
				j.pending = append(j.pending, element.Item(j.combine(row.Row{}, r)))
			}
		}
	}
	j.leftRows = make(map[string][]row.Row)
	j.rightRows = make(map[string][]row.Row)
}

// combine merges one matched (or unmatched, via a zero-value row.Row on
// the missing side) pair into the joined output row: the key prefix
// (from whichever side is present) followed by left's value cells then
// right's value cells.
func (j *joinOp) combine(l, r row.Row) row.Row {
	var key []row.Cell
	var lVal, rVal []row.Cell

	if l.Cells != nil {
		key = l.Key()
		lVal = l.Value()
	} else if j.nullLeft != nil {
		lVal = j.nullLeft().Value()
	}
	if r.Cells != nil {
		if key == nil {
			key = r.Key()
		}
		rVal = r.Value()
	} else if j.nullRight != nil {
		rVal = j.nullRight().Value()
	}

	cells := make([]row.Cell, 0, len(key)+len(lVal)+len(rVal))
	cells = append(cells, key...)
	cells = append(cells, lVal...)
	cells = append(cells, rVal...)
	return row.Row{Cells: cells, KeyLen: len(key)}
}

func (j *joinOp) Structure() operator.Structure {
	name := map[Type]string{Inner: "join_inner", Left: "join_left", Outer: "join_outer"}[j.typ]
	return operator.Structure{Name: name, Kind: "join"}
}
