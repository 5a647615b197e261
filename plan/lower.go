package plan

import (
	"github.com/chinifabio/renoir-go/channel"
	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/errs"
	"github.com/chinifabio/renoir-go/expr"
	"github.com/chinifabio/renoir-go/join"
	"github.com/chinifabio/renoir-go/keyed"
	"github.com/chinifabio/renoir-go/operator"
	"github.com/chinifabio/renoir-go/row"
)

// Env resolves the leaves of a plan to concrete data: TableScan.Path is
// resolved through Tables; ParallelIterator's Gen is called directly by
// the node; UpStream's opaque Handle is resolved through Resolve, which a caller wires to its
// layer connector sources (§4.10) or any other externally-materialized
// stream.
type Env struct {
	Tables  func(path string) ([]row.Row, error)
	Resolve func(handle string) (operator.Operator[row.Row], error)
}

// Lower turns an already-Optimize'd plan into a runnable operator chain.
// Shuffle is lowered as a local passthrough: choosing a replica for a
// shipped row is the scheduler/channel layer's job once this chain is
// wired into a block graph (§4.3), not something a bare Operator[T]
// chain can express by itself, so Lower only prepares the key-hash
// the eventual ship edge will route on (KeyBy), leaving the actual
// cross-replica routing to whatever wires this chain into a Block.
func Lower(n Node, env Env) (operator.Operator[row.Row], error) {
	switch t := n.(type) {
	case *TableScan:
		rows, err := env.Tables(t.Path)
		if err != nil {
			return nil, err
		}
		return newTableScanOp(t, rows), nil
	case *Filter:
		in, err := Lower(t.Input, env)
		if err != nil {
			return nil, err
		}
		return &filterOp{pred: in, thunk: t.compiled}, nil
	case *Select:
		in, err := Lower(t.Input, env)
		if err != nil {
			return nil, err
		}
		return &selectOp{pred: in, thunks: t.compiled}, nil
	case *Shuffle:
		in, err := Lower(t.Input, env)
		if err != nil {
			return nil, err
		}
		return keyed.KeyBy(in, shuffleKeyFunc(t.Key)), nil
	case *GroupBy:
		in, err := Lower(t.Input, env)
		if err != nil {
			return nil, err
		}
		return keyed.KeyBy(in, indexKeyFunc(t.Keys)), nil
	case *GroupBySelect:
		in, err := Lower(t.Input, env)
		if err != nil {
			return nil, err
		}
		return lowerGroupBySelect(t, in)
	case *DropKey:
		in, err := Lower(t.Input, env)
		if err != nil {
			return nil, err
		}
		return &mapOp{pred: in, f: row.Row.DropKey}, nil
	case *DropColumns:
		in, err := Lower(t.Input, env)
		if err != nil {
			return nil, err
		}
		return &mapOp{pred: in, f: dropColumnsFunc(t.Indices)}, nil
	case *CollectVec:
		return Lower(t.Input, env)
	case *Join:
		left, err := Lower(t.Left, env)
		if err != nil {
			return nil, err
		}
		right, err := Lower(t.Right, env)
		if err != nil {
			return nil, err
		}
		leftSchema, err := SchemaOf(t.Left)
		if err != nil {
			return nil, err
		}
		rightSchema, err := SchemaOf(t.Right)
		if err != nil {
			return nil, err
		}
		return lowerJoin(t, left, right, leftSchema, rightSchema), nil
	case *UpStream:
		return env.Resolve(t.Handle)
	case *ParallelIterator:
		return newTableScanOp(&TableScan{Schema: t.Schema}, t.Gen()), nil
	default:
		return nil, errs.Newf(errs.CodeInternal, "plan: cannot lower node %T", n)
	}
}

func indexKeyFunc(indices []int) keyed.KeyFunc {
	return func(r row.Row) []row.Cell {
		key := make([]row.Cell, len(indices))
		for i, idx := range indices {
			key[i] = r.Cells[idx]
		}
		return key
	}
}

func shuffleKeyFunc(e expr.Expr) keyed.KeyFunc {
	return func(r row.Row) []row.Cell {
		return []row.Cell{expr.Eval(e, r)}
	}
}

func dropColumnsFunc(indices []int) func(row.Row) row.Row {
	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		drop[i] = true
	}
	return func(r row.Row) row.Row {
		cells := make([]row.Cell, 0, len(r.Cells))
		for i, c := range r.Cells {
			if !drop[i] {
				cells = append(cells, c)
			}
		}
		return row.Row{Cells: cells}
	}
}

// ---- TableScan / ParallelIterator source ----

type tableScanOp struct {
	node *TableScan
	rows []row.Row
	idx  int
}

func newTableScanOp(node *TableScan, rows []row.Row) *tableScanOp {
	return &tableScanOp{node: node, rows: rows}
}

func (s *tableScanOp) Setup(coord.ExecutionMetadata) {}

func (s *tableScanOp) Next() element.StreamElement[row.Row] {
	for s.idx < len(s.rows) {
		r := s.rows[s.idx]
		s.idx++
		if s.node.compiledPredicate != nil {
			b, ok := s.node.compiledPredicate(r).AsBool()
			if !ok || !b {
				continue
			}
		}
		if s.node.Projections != nil {
			proj := make([]row.Cell, len(s.node.Projections))
			for i, c := range s.node.Projections {
				proj[i] = r.Cells[c]
			}
			r = row.Row{Cells: proj}
		}
		return element.Item(r)
	}
	return element.Terminate[row.Row]()
}

func (s *tableScanOp) Structure() operator.Structure {
	return operator.Structure{Name: "table_scan", Kind: "source"}
}

func (s *tableScanOp) Clone() operator.Operator[row.Row] {
	return &tableScanOp{node: s.node, rows: s.rows}
}

// ---- Filter / Select / map ----

type filterOp struct {
	pred  operator.Operator[row.Row]
	thunk expr.Thunk
}

func (f *filterOp) Setup(meta coord.ExecutionMetadata) { f.pred.Setup(meta) }

func (f *filterOp) Next() element.StreamElement[row.Row] {
	for {
		e := f.pred.Next()
		v, ok := e.Payload()
		if !ok {
			return e
		}
		b, ok := f.thunk(v).AsBool()
		if ok && b {
			return e
		}
	}
}

func (f *filterOp) Structure() operator.Structure {
	s := f.pred.Structure()
	return operator.Structure{Name: "filter", Kind: "filter", Predecessor: &s}
}

func (f *filterOp) Clone() operator.Operator[row.Row] {
	return &filterOp{pred: clonePred(f.pred), thunk: f.thunk}
}

type selectOp struct {
	pred   operator.Operator[row.Row]
	thunks []expr.Thunk
}

func (s *selectOp) Setup(meta coord.ExecutionMetadata) { s.pred.Setup(meta) }

func (s *selectOp) Next() element.StreamElement[row.Row] {
	e := s.pred.Next()
	v, ok := e.Payload()
	if !ok {
		return e
	}
	cells := make([]row.Cell, len(s.thunks))
	for i, th := range s.thunks {
		cells[i] = th(v)
	}
	out := row.Row{Cells: cells}
	if e.Tag() == element.TagTimestamped {
		return element.Timestamped(out, e.Timestamp())
	}
	return element.Item(out)
}

func (s *selectOp) Structure() operator.Structure {
	p := s.pred.Structure()
	return operator.Structure{Name: "select", Kind: "map", Predecessor: &p}
}

func (s *selectOp) Clone() operator.Operator[row.Row] {
	return &selectOp{pred: clonePred(s.pred), thunks: s.thunks}
}

type mapOp struct {
	pred operator.Operator[row.Row]
	f    func(row.Row) row.Row
}

func (m *mapOp) Setup(meta coord.ExecutionMetadata) { m.pred.Setup(meta) }

func (m *mapOp) Next() element.StreamElement[row.Row] {
	e := m.pred.Next()
	v, ok := e.Payload()
	if !ok {
		return e
	}
	out := m.f(v)
	if e.Tag() == element.TagTimestamped {
		return element.Timestamped(out, e.Timestamp())
	}
	return element.Item(out)
}

func (m *mapOp) Structure() operator.Structure {
	p := m.pred.Structure()
	return operator.Structure{Name: "map", Kind: "map", Predecessor: &p}
}

func (m *mapOp) Clone() operator.Operator[row.Row] {
	return &mapOp{pred: clonePred(m.pred), f: m.f}
}

func clonePred(pred operator.Operator[row.Row]) operator.Operator[row.Row] {
	if c, ok := pred.(operator.Cloner[row.Row]); ok {
		return c.Clone()
	}
	return pred
}

// ---- GroupBySelect ----

// lowerGroupBySelect keys its input by t.Keys, then folds each group
// through one expr.Accumulator per t.Aggs entry, emitting key||results
// at every flush boundary (keyed.Fold's own semantics, §4.4).
func lowerGroupBySelect(t *GroupBySelect, in operator.Operator[row.Row]) (operator.Operator[row.Row], error) {
	keyed_ := keyed.KeyBy(in, indexKeyFunc(t.Keys))
	factories := make([]expr.Factory, len(t.Aggs))
	for i, a := range t.Aggs {
		factories[i] = expr.FactoryFor(a)
	}
	init := func() []expr.Accumulator {
		accs := make([]expr.Accumulator, len(factories))
		for i, f := range factories {
			accs[i] = f()
		}
		return accs
	}
	acc := func(accs []expr.Accumulator, r row.Row) []expr.Accumulator {
		in := r.DropKey()
		for i, a := range t.Aggs {
			args := make([]row.Cell, len(a.Args))
			for j, ae := range a.Args {
				args[j] = expr.Eval(ae, in)
			}
			accs[i].Accumulate(args...)
		}
		return accs
	}
	finalize := func(key []row.Cell, accs []expr.Accumulator) row.Row {
		cells := make([]row.Cell, 0, len(key)+len(accs))
		cells = append(cells, key...)
		for _, a := range accs {
			cells = append(cells, a.Finalize())
		}
		return row.Row{Cells: cells}
	}
	return keyed.Fold(keyed_, init, acc, finalize), nil
}

// ---- Join ----

func lowerJoin(t *Join, left, right operator.Operator[row.Row], leftSchema, rightSchema row.Schema) operator.Operator[row.Row] {
	leftStart := operatorToStart(left)
	rightStart := operatorToStart(right)
	leftKey := func(r row.Row) []row.Cell { return []row.Cell{r.Cells[t.LeftOn]} }
	rightKey := func(r row.Row) []row.Cell { return []row.Cell{r.Cells[t.RightOn]} }
	nullRight := func() row.Row { return row.Row{Cells: make([]row.Cell, rightSchema.Len())} }
	nullLeft := func() row.Row { return row.Row{Cells: make([]row.Cell, leftSchema.Len())} }

	var jt join.Type
	switch t.Type {
	case JoinLeft:
		jt = join.Left
	case JoinOuter:
		jt = join.Outer
	default:
		jt = join.Inner
	}
	return join.New(leftStart, rightStart, jt, leftKey, rightKey, nullRight, nullLeft)
}

// operatorToStart runs op on a background goroutine, forwarding every
// element it produces (boxed as any) onto a bounded channel, and returns
// the receiving Start join.New expects as one of its two input sides.
func operatorToStart(op operator.Operator[row.Row]) *channel.Start[any] {
	sender, receiver := channel.NewBounded[any](64)
	go func() {
		op.Setup(coord.ExecutionMetadata{Parallelism: 1})
		for {
			e := op.Next()
			v, ok := e.Payload()
			if ok {
				sender.Send(element.Item[any](v))
			} else {
				sender.Send(element.Map(e, func(row.Row) any { return nil }))
			}
			if e.Tag() == element.TagTerminate {
				sender.Close()
				return
			}
		}
	}()
	return channel.NewStart([]channel.Receiver[any]{receiver})
}
