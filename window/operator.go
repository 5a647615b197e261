package window

import (
	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/operator"
	"github.com/chinifabio/renoir-go/row"
)

// Aggregator reduces one fired window's buffered rows, plus the key it
// fired under, into the row emitted downstream.
type Aggregator func(key []row.Cell, items []row.Row) row.Row

// windowOp applies a Generator per key, driven by the predecessor's
// Timestamped items and Watermark elements, per spec §4.7: an item is
// buffered into its key's generator, a watermark advances every tracked
// key's generator and drains whatever fired, and FlushAndRestart or
// Terminate force-closes every still-open window before propagating.
type windowOp struct {
	pred operator.Operator[row.Row]
	desc Description
	key  func(row.Row) []row.Cell
	agg  Aggregator

	gens map[string]*Generator[row.Row]
	keys map[string][]row.Cell

	pending []element.StreamElement[row.Row]
}

// New builds a windowing operator. key extracts the grouping cells for
// each row (use a constant empty slice for window_all, giving every row
// the same singleton key).
func New(pred operator.Operator[row.Row], desc Description, key func(row.Row) []row.Cell, agg Aggregator) operator.Operator[row.Row] {
	return &windowOp{
		pred: pred,
		desc: desc,
		key:  key,
		agg:  agg,
		gens: make(map[string]*Generator[row.Row]),
		keys: make(map[string][]row.Cell),
	}
}

func (w *windowOp) Setup(meta coord.ExecutionMetadata) { w.pred.Setup(meta) }

func (w *windowOp) Next() element.StreamElement[row.Row] {
	for {
		if len(w.pending) > 0 {
			e := w.pending[0]
			w.pending = w.pending[1:]
			return e
		}

		e := w.pred.Next()
		switch e.Tag() {
		case element.TagItem, element.TagTimestamped:
			v, _ := e.Payload()
			ks := row.KeyString(w.key(v))
			g, ok := w.gens[ks]
			if !ok {
				g = NewGenerator[row.Row](w.desc)
				w.gens[ks] = g
				w.keys[ks] = append([]row.Cell{}, w.key(v)...)
			}
			g.Add(v, e.Timestamp())
			w.drainReady(ks, g)
			continue
		case element.TagWatermark:
			for ks, g := range w.gens {
				g.Advance(e.Timestamp())
				w.drainReady(ks, g)
			}
			w.pending = append(w.pending, e)
			continue
		case element.TagFlushBatch:
			for ks, g := range w.gens {
				g.Flush()
				w.drainReady(ks, g)
			}
			w.pending = append(w.pending, e)
			continue
		case element.TagFlushAndRestart:
			for ks, g := range w.gens {
				g.Flush()
				w.drainReady(ks, g)
			}
			w.gens = make(map[string]*Generator[row.Row])
			w.keys = make(map[string][]row.Cell)
			w.pending = append(w.pending, e)
			continue
		case element.TagTerminate:
			for ks, g := range w.gens {
				g.Flush()
				w.drainReady(ks, g)
			}
			w.pending = append(w.pending, e)
			continue
		default:
			return e
		}
	}
}

func (w *windowOp) drainReady(ks string, g *Generator[row.Row]) {
	for {
		win, ok := g.NextWindow()
		if !ok {
			return
		}
		w.pending = append(w.pending, element.Item(w.agg(w.keys[ks], win.Items)))
	}
}

func (w *windowOp) Structure() operator.Structure {
	s := w.pred.Structure()
	return operator.Structure{Name: "window", Kind: "window", Predecessor: &s}
}
