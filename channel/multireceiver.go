package channel

import (
	"reflect"

	"github.com/chinifabio/renoir-go/element"
)

// Tagged pairs a received element with the index of the sender it came
// from, so a multi-input start can track per-sender watermark state.
type Tagged[T any] struct {
	Sender int
	Elem   element.StreamElement[T]
}

// MultiReceiver selects across several Receivers (one per upstream
// replica shipping into this start) without imposing any ordering
// across senders, matching the non-deterministic cross-sender ordering
// guarantee of §5.
type MultiReceiver[T any] struct {
	cases []reflect.SelectCase
	live  int
}

// NewMultiReceiver builds a selectable receiver set over recvs.
func NewMultiReceiver[T any](recvs []Receiver[T]) *MultiReceiver[T] {
	cases := make([]reflect.SelectCase, len(recvs))
	for i, r := range recvs {
		cases[i] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(r.raw())}
	}
	return &MultiReceiver[T]{cases: cases, live: len(recvs)}
}

// Recv blocks until any live sender has an element ready, returning it
// tagged with the sender index. When a sender's channel is closed, that
// sender is retired (its case is replaced with a permanently-blocking
// nil channel) and Recv automatically selects among the rest; Live()
// then reports a smaller remaining count. Recv returns ok=false only
// once every sender has been retired.
func (m *MultiReceiver[T]) Recv() (Tagged[T], bool) {
	for m.live > 0 {
		chosen, recv, ok := reflect.Select(m.cases)
		if !ok {
			m.retire(chosen)
			continue
		}
		e := recv.Interface().(element.StreamElement[T])
		return Tagged[T]{Sender: chosen, Elem: e}, true
	}
	return Tagged[T]{}, false
}

func (m *MultiReceiver[T]) retire(idx int) {
	var nilCh chan element.StreamElement[T]
	m.cases[idx].Chan = reflect.ValueOf(nilCh)
	m.live--
}

// Live reports how many senders have not yet closed.
func (m *MultiReceiver[T]) Live() int { return m.live }

// NumSenders reports the total number of senders this receiver was
// built with, including retired ones, for indexing watermark/tally state.
func (m *MultiReceiver[T]) NumSenders() int { return len(m.cases) }
