// Package layer implements the cross-tier layer connector of spec
// §4.10: a LayerConnectorSink/LayerConnectorSource pair bridging
// pipeline segments running in different deployment tiers, a frontier
// reconciling broadcast counts across senders, and the wire codec and
// concrete transports (Kafka-like, Redis-like, none) those two ends run
// over.
package layer

import "github.com/chinifabio/renoir-go/coord"

// MessageMetadata identifies the sending replica group of a cross-layer
// message: which named tier sent it, that replica's fingerprint, and
// the declared parallelism of its block — the frontier needs the last
// of these to know how many copies of a broadcast element to expect
// from that sender before releasing it downstream.
type MessageMetadata struct {
	LayerName   string
	Fingerprint coord.Fingerprint
	Parallelism int
}
