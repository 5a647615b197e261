package keyed

import (
	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/operator"
	"github.com/chinifabio/renoir-go/row"
)

// LocalFold is the first stage of an associative two-stage fold (§4.4):
// it runs identically to Fold, but Finalize is expected to produce a
// partial, not-yet-finalized row (typically the key plus an encoded
// accumulator), since its output is shipped on to a GlobalMerge stage
// rather than consumed directly. It exists as a distinct constructor
// from Fold purely to name the two-stage intent at the call site.
func LocalFold[S any](pred operator.Operator[row.Row], init func() S, acc func(S, row.Row) S, encode func(key []row.Cell, state S) row.Row) operator.Operator[row.Row] {
	return Fold(pred, init, acc, encode)
}

// globalMergeOp is the second stage of an associative two-stage fold:
// it receives partial rows already collocated by key (the upstream edge
// must ship via ship.GroupByHash), decodes each into the accumulator
// type, merges same-key partials with Merge, and emits the finalized
// result at the same flush boundaries as Fold.
type globalMergeOp struct {
	pred     operator.Operator[row.Row]
	decode   func(row.Row) any
	merge    func(any, any) any
	finalize func(key []row.Cell, state any) row.Row

	states  map[string]entry[any]
	pending []element.StreamElement[row.Row]
}

// GlobalMerge builds the second stage of an associative fold. decode
// recovers the partial accumulator a LocalFold stage encoded into a row;
// merge combines two partials for the same key (must be associative);
// finalize converts the merged accumulator into the output row.
func GlobalMerge[S any](pred operator.Operator[row.Row], decode func(row.Row) S, merge func(a, b S) S, finalize func(key []row.Cell, state S) row.Row) operator.Operator[row.Row] {
	return &globalMergeOp{
		pred:   pred,
		decode: func(r row.Row) any { return decode(r) },
		merge:  func(a, b any) any { return merge(a.(S), b.(S)) },
		finalize: func(key []row.Cell, s any) row.Row {
			return finalize(key, s.(S))
		},
		states: make(map[string]entry[any]),
	}
}

func (g *globalMergeOp) Setup(meta coord.ExecutionMetadata) { g.pred.Setup(meta) }

func (g *globalMergeOp) Next() element.StreamElement[row.Row] {
	for {
		if len(g.pending) > 0 {
			e := g.pending[0]
			g.pending = g.pending[1:]
			return e
		}

		e := g.pred.Next()
		switch e.Tag() {
		case element.TagItem, element.TagTimestamped:
			v, _ := e.Payload()
			ks := row.KeyString(v.Key())
			partial := g.decode(v)
			ent, ok := g.states[ks]
			if !ok {
				g.states[ks] = entry[any]{key: append([]row.Cell{}, v.Key()...), state: partial}
			} else {
				ent.state = g.merge(ent.state, partial)
				g.states[ks] = ent
			}
			continue
		case element.TagFlushBatch:
			g.flush(false)
			g.pending = append(g.pending, element.FlushBatch[row.Row]())
			continue
		case element.TagFlushAndRestart:
			g.flush(true)
			g.pending = append(g.pending, element.FlushAndRestart[row.Row]())
			continue
		case element.TagTerminate:
			g.flush(false)
			g.pending = append(g.pending, element.Terminate[row.Row]())
			continue
		default:
			return e
		}
	}
}

func (g *globalMergeOp) flush(clear bool) {
	for ks, ent := range g.states {
		g.pending = append(g.pending, element.Item(g.finalize(ent.key, ent.state)))
		if clear {
			delete(g.states, ks)
		}
	}
}

func (g *globalMergeOp) Structure() operator.Structure {
	return operator.Structure{Name: "global_merge", Kind: "keyed", Predecessor: predStruct(g.pred)}
}
