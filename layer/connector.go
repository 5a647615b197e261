package layer

import (
	"time"

	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/row"
)

// Sink is the producer end of a layer channel (§4.10). Send carries
// items and timestamped items to one partition/shard, preserving the
// per-sender order guarantee of §5; Broadcast carries watermarks and
// control signals and must reach every partition/consumer-shard so the
// consumer's LayoutFrontier can tally them.
type Sink interface {
	Send(meta MessageMetadata, e element.StreamElement[row.Row]) error
	Broadcast(meta MessageMetadata, e element.StreamElement[row.Row]) error
	Close() error
}

// Source is the consumer end of a layer channel. Recv blocks until a
// frame is available; RecvTimeout returns ok=false without error if no
// frame arrived within timeout, per §4.10's failure model ("receiver
// timeouts return None from recv_timeout; the source loop re-enters
// without producing an element").
type Source interface {
	Recv() (MessageMetadata, element.StreamElement[row.Row], error)
	RecvTimeout(timeout time.Duration) (MessageMetadata, element.StreamElement[row.Row], bool, error)
	Close() error
}
