package channel

import (
	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/row"
	"github.com/chinifabio/renoir-go/ship"
)

// KeyFunc extracts the key cells of a payload, when the payload is
// keyed; the second return reports whether a key was present.
type KeyFunc[T any] func(T) ([]row.Cell, bool)

// End is the shipping end of a block: it routes Item/Timestamped
// elements across a set of downstream senders according to a ship
// strategy, while watermarks, FlushBatch, FlushAndRestart and Terminate
// are always broadcast to every sender regardless of strategy (§4.3).
type End[T any] struct {
	senders    []Sender[T]
	strategy   ship.Strategy
	replicaIdx int
	rr         uint64
	keyFunc    KeyFunc[T]
}

// NewEnd builds a shipping end over the given downstream senders.
// keyFunc may be nil when the strategy never needs a key (Random,
// Broadcast, Direct); GroupByHash requires a non-nil keyFunc.
func NewEnd[T any](senders []Sender[T], strategy ship.Strategy, replicaIdx int, keyFunc KeyFunc[T]) *End[T] {
	return &End[T]{senders: senders, strategy: strategy, replicaIdx: replicaIdx, keyFunc: keyFunc}
}

// Send routes and delivers one stream element.
func (e *End[T]) Send(el element.StreamElement[T]) {
	if el.IsControl() {
		for _, s := range e.senders {
			s.Send(el)
		}
		return
	}

	rc := ship.RouteContext{NumReceivers: len(e.senders), SenderReplicaIdx: e.replicaIdx}
	if e.keyFunc != nil {
		if v, ok := el.Payload(); ok {
			if key, hasKey := e.keyFunc(v); hasKey {
				rc.KeyHash = ship.HashKey(key)
				rc.HasKey = true
			}
		}
	}
	for _, t := range e.strategy.Route(rc, &e.rr) {
		if t >= 0 && t < len(e.senders) {
			e.senders[t].Send(el)
		}
	}
}

// Close closes every downstream sender; called once the predecessor
// chain has produced Terminate and forwarded it.
func (e *End[T]) Close() {
	for _, s := range e.senders {
		s.Close()
	}
}
