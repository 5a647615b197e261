// Package iterate implements the feedback-loop construct of spec §4.6:
// iterate(n, init_state, body, local_delta, global_apply, stop) runs body
// against the same materialized input once per round, combines the
// deltas it emits into a per-round accumulator via local_delta, folds
// that into the global state via global_apply (the loop's singleton
// reducer — see block.Singleton), and stops on either the bound n or a
// true stop predicate, emitting FlushAndRestart as the barrier between
// rounds and Terminate at the end on both outputs.
package iterate

import (
	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/operator"
	"github.com/chinifabio/renoir-go/row"
)

// Body computes one input row's contribution to the next round's state,
// given the previous round's snapshot; ok is false when the row
// contributes nothing this round (e.g. an edge whose source vertex
// isn't in the frontier yet).
type Body[S any] func(item row.Row, state S) (delta row.Row, ok bool)

// LocalDelta folds one body-produced delta into a replica's running
// accumulator for the round. Real deployments run this once per replica
// before shipping the accumulator to the global-apply reducer; this
// package runs a single logical replica over the whole materialized
// input, so there is exactly one accumulator per round.
type LocalDelta[S any] func(acc S, delta row.Row) S

// GlobalApply merges a round's accumulator into the state carried into
// the next round.
type GlobalApply[S any] func(state S, acc S) S

// Stop reports whether the loop has converged; checked after every
// round's GlobalApply.
type Stop[S any] func(state S) bool

// Config bundles iterate's parameters. Bound of 0 means unbounded
// (Stop must eventually return true, or the loop runs forever).
type Config[S any] struct {
	Bound       int
	Init        S
	Body        Body[S]
	LocalDelta  LocalDelta[S]
	GlobalApply GlobalApply[S]
	Stop        Stop[S]
}

// New drains input to a static row set on first Setup, then drives the
// round loop on a background goroutine, publishing onto two independent
// output operators: primary carries the state snapshot after each
// round, secondary carries every delta row body emitted during that
// round. Both emit FlushAndRestart at every round boundary and
// Terminate once the loop halts, mirroring the back-edge protocol of
// §4.6. Both outputs share one driver goroutine, so a caller that wires
// only one of them downstream and never drains the other will eventually
// stall the driver once that output's buffer fills — same as any other
// block with multiple fan-out consumers (§5), both must be read.
func New[S any](input operator.Operator[row.Row], cfg Config[S]) (primary operator.Operator[S], secondary operator.Operator[row.Row]) {
	d := &driver[S]{
		input:     input,
		cfg:       cfg,
		primaryCh: make(chan element.StreamElement[S], 8),
		secondCh:  make(chan element.StreamElement[row.Row], 64),
	}
	return &primaryOp[S]{d: d}, &secondaryOp[S]{d: d}
}

type driver[S any] struct {
	input     operator.Operator[row.Row]
	cfg       Config[S]
	primaryCh chan element.StreamElement[S]
	secondCh  chan element.StreamElement[row.Row]
	started   bool
}

func (d *driver[S]) start(meta coord.ExecutionMetadata) {
	if d.started {
		return
	}
	d.started = true
	d.input.Setup(meta)
	go d.run()
}

func (d *driver[S]) run() {
	defer close(d.primaryCh)
	defer close(d.secondCh)

	var rows []row.Row
	for {
		e := d.input.Next()
		if e.Tag() == element.TagTerminate {
			break
		}
		if v, ok := e.Payload(); ok {
			rows = append(rows, v)
		}
	}

	state := d.cfg.Init
	round := 0
	for {
		acc := d.cfg.Init
		var deltas []row.Row
		for _, r := range rows {
			delta, ok := d.cfg.Body(r, state)
			if !ok {
				continue
			}
			deltas = append(deltas, delta)
			acc = d.cfg.LocalDelta(acc, delta)
		}
		state = d.cfg.GlobalApply(state, acc)
		round++

		for _, delta := range deltas {
			d.secondCh <- element.Item(delta)
		}
		d.primaryCh <- element.Item(state)

		halt := (d.cfg.Stop != nil && d.cfg.Stop(state)) || (d.cfg.Bound > 0 && round >= d.cfg.Bound)

		d.secondCh <- element.FlushAndRestart[row.Row]()
		d.primaryCh <- element.FlushAndRestart[S]()

		if halt {
			d.secondCh <- element.Terminate[row.Row]()
			d.primaryCh <- element.Terminate[S]()
			return
		}
	}
}

type primaryOp[S any] struct{ d *driver[S] }

func (p *primaryOp[S]) Setup(meta coord.ExecutionMetadata) { p.d.start(meta) }
func (p *primaryOp[S]) Next() element.StreamElement[S] {
	e, ok := <-p.d.primaryCh
	if !ok {
		return element.Terminate[S]()
	}
	return e
}
func (p *primaryOp[S]) Structure() operator.Structure {
	return operator.Structure{Name: "iterate_state", Kind: "iterate"}
}

type secondaryOp[S any] struct{ d *driver[S] }

func (s *secondaryOp[S]) Setup(meta coord.ExecutionMetadata) { s.d.start(meta) }
func (s *secondaryOp[S]) Next() element.StreamElement[row.Row] {
	e, ok := <-s.d.secondCh
	if !ok {
		return element.Terminate[row.Row]()
	}
	return e
}
func (s *secondaryOp[S]) Structure() operator.Structure {
	return operator.Structure{Name: "iterate_stream", Kind: "iterate"}
}
