// Package channel implements the intra-host and inter-host network
// layer: bounded mpsc channels with typed framing, selectable sources,
// and backpressure via blocking send, per §2/§5.
package channel

import "github.com/chinifabio/renoir-go/element"

// Sender is the write half of a bounded channel carrying one upstream
// replica's stream elements to one downstream replica.
type Sender[T any] struct {
	ch chan element.StreamElement[T]
}

// Receiver is the read half of a bounded channel.
type Receiver[T any] struct {
	ch chan element.StreamElement[T]
}

// NewBounded creates a bounded channel of the given capacity. A send on
// a full channel blocks, which is the engine's only backpressure
// mechanism (§5).
func NewBounded[T any](capacity int) (Sender[T], Receiver[T]) {
	ch := make(chan element.StreamElement[T], capacity)
	return Sender[T]{ch: ch}, Receiver[T]{ch: ch}
}

// Send blocks until the element is accepted by the channel buffer.
func (s Sender[T]) Send(e element.StreamElement[T]) {
	s.ch <- e
}

// Close closes the underlying channel; receivers observe this as the
// channel yielding a zero StreamElement with ok=false from raw receives,
// which MultiReceiver translates into permanently skipping that sender.
func (s Sender[T]) Close() {
	close(s.ch)
}

// Recv blocks for the next element, returning ok=false if the channel
// has been closed and drained.
func (r Receiver[T]) Recv() (element.StreamElement[T], bool) {
	e, ok := <-r.ch
	return e, ok
}

// raw exposes the underlying Go channel for use by MultiReceiver's
// reflect-based select loop.
func (r Receiver[T]) raw() chan element.StreamElement[T] { return r.ch }
