// Package none implements the "none" layer connector transport of spec
// §4.10: a single-process loopback for layer boundaries that do not
// actually cross a tier (e.g. local development, or a layer whose
// config names no remote transport). Send/Broadcast and Recv/RecvTimeout
// share one in-memory bounded queue; there is no framing or network
// round-trip to fail transiently, so this transport never returns a
// CodeTransportTransient error.
package none

import (
	"time"

	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/layer"
	"github.com/chinifabio/renoir-go/row"
)

type frame struct {
	meta layer.MessageMetadata
	elem element.StreamElement[row.Row]
}

// Channel is both ends of a none-transport link: construct one and hand
// the same *Channel to both the producer and consumer side of the
// layer boundary under test.
type Channel struct {
	ch chan frame
}

// New builds a loopback channel with the given buffer capacity.
func New(capacity int) *Channel {
	return &Channel{ch: make(chan frame, capacity)}
}

func (c *Channel) Send(meta layer.MessageMetadata, e element.StreamElement[row.Row]) error {
	c.ch <- frame{meta: meta, elem: e}
	return nil
}

// Broadcast behaves exactly like Send: with a single in-memory queue
// and no consumer-shard fan-out to replicate across, broadcasting is a
// regular send that every reader of this channel observes.
func (c *Channel) Broadcast(meta layer.MessageMetadata, e element.StreamElement[row.Row]) error {
	return c.Send(meta, e)
}

func (c *Channel) Close() error {
	close(c.ch)
	return nil
}

func (c *Channel) Recv() (layer.MessageMetadata, element.StreamElement[row.Row], error) {
	f, ok := <-c.ch
	if !ok {
		return layer.MessageMetadata{}, element.Terminate[row.Row](), nil
	}
	return f.meta, f.elem, nil
}

func (c *Channel) RecvTimeout(timeout time.Duration) (layer.MessageMetadata, element.StreamElement[row.Row], bool, error) {
	select {
	case f, ok := <-c.ch:
		if !ok {
			return layer.MessageMetadata{}, element.Terminate[row.Row](), true, nil
		}
		return f.meta, f.elem, true, nil
	case <-time.After(timeout):
		return layer.MessageMetadata{}, element.StreamElement[row.Row]{}, false, nil
	}
}
