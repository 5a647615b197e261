package keyed

import (
	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/operator"
	"github.com/chinifabio/renoir-go/row"
)

// entry is one key's accumulator state, remembering the key cells
// themselves so Finalize can re-attach them to the emitted row.
type entry[S any] struct {
	key   []row.Cell
	state S
}

// foldOp is the per-key stateful accumulator of spec §4.4: the user
// supplies Init, Acc and Finalize; state is created lazily on first
// occurrence of a key and emitted only at a flush boundary, matching
// "FlushAndRestart clears caches only where semantically appropriate."
type foldOp struct {
	pred     operator.Operator[row.Row]
	init     func() any
	acc      func(any, row.Row) any
	finalize func(key []row.Cell, state any) row.Row

	states  map[string]entry[any]
	pending []element.StreamElement[row.Row]
}

// Fold builds a per-key fold operator. init produces a fresh zero state
// for a key seen for the first time; acc folds one row's value into the
// running state; finalize converts the accumulated state plus the key
// cells into the row emitted downstream. State for a key is emitted (via
// finalize) whenever a FlushBatch or FlushAndRestart or Terminate control
// element is observed; FlushAndRestart additionally clears every key's
// state afterward, starting a fresh epoch.
func Fold[S any](pred operator.Operator[row.Row], init func() S, acc func(S, row.Row) S, finalize func(key []row.Cell, state S) row.Row) operator.Operator[row.Row] {
	return &foldOp{
		pred: pred,
		init: func() any { return init() },
		acc:  func(s any, r row.Row) any { return acc(s.(S), r) },
		finalize: func(key []row.Cell, s any) row.Row {
			return finalize(key, s.(S))
		},
		states: make(map[string]entry[any]),
	}
}

// Reduce is Fold specialized so the payload type and the accumulator
// type coincide: rows of the same key are combined pairwise by combine,
// with the first row seen for a key becoming the initial state.
func Reduce(pred operator.Operator[row.Row], combine func(acc, next row.Row) row.Row) operator.Operator[row.Row] {
	return &foldOp{
		pred: pred,
		init: func() any { return (*row.Row)(nil) },
		acc: func(s any, r row.Row) any {
			cur := s.(*row.Row)
			if cur == nil {
				v := r
				return &v
			}
			merged := combine(*cur, r)
			return &merged
		},
		finalize: func(key []row.Cell, s any) row.Row {
			cur := s.(*row.Row)
			if cur == nil {
				return row.Row{KeyLen: len(key), Cells: append([]row.Cell{}, key...)}
			}
			return *cur
		},
		states: make(map[string]entry[any]),
	}
}

func (f *foldOp) Setup(meta coord.ExecutionMetadata) { f.pred.Setup(meta) }

func (f *foldOp) Next() element.StreamElement[row.Row] {
	for {
		if len(f.pending) > 0 {
			e := f.pending[0]
			f.pending = f.pending[1:]
			return e
		}

		e := f.pred.Next()
		switch e.Tag() {
		case element.TagItem, element.TagTimestamped:
			v, _ := e.Payload()
			ks := row.KeyString(v.Key())
			ent, ok := f.states[ks]
			if !ok {
				ent = entry[any]{key: append([]row.Cell{}, v.Key()...), state: f.init()}
			}
			ent.state = f.acc(ent.state, v)
			f.states[ks] = ent
			continue
		case element.TagFlushBatch:
			f.flush(false)
			f.pending = append(f.pending, element.FlushBatch[row.Row]())
			continue
		case element.TagFlushAndRestart:
			f.flush(true)
			f.pending = append(f.pending, element.FlushAndRestart[row.Row]())
			continue
		case element.TagTerminate:
			f.flush(false)
			f.pending = append(f.pending, element.Terminate[row.Row]())
			continue
		default:
			return e
		}
	}
}

// flush enqueues a finalized row for every tracked key, in no
// particular cross-key order (keys are independent); when clear is true
// the state map is emptied afterward so the next epoch starts fresh.
func (f *foldOp) flush(clear bool) {
	for ks, ent := range f.states {
		f.pending = append(f.pending, element.Item(f.finalize(ent.key, ent.state)))
		if clear {
			delete(f.states, ks)
		}
	}
}

func (f *foldOp) Structure() operator.Structure {
	return operator.Structure{Name: "fold", Kind: "keyed", Predecessor: predStruct(f.pred)}
}
