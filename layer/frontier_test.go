package layer_test

import (
	"testing"
	"time"

	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/layer"
	"github.com/stretchr/testify/require"
)

// TestFrontierReleasesWatermarkOnceEverySenderContributes covers §8
// scenario 6: two senders of parallelism 2 in the source layer each
// emit Watermark(10); the frontier must release exactly one Watermark
// downstream, only once both have contributed their full parallelism.
func TestFrontierReleasesWatermarkOnceEverySenderContributes(t *testing.T) {
	f := layer.NewLayoutFrontier(time.Minute)
	now := time.Now()
	variant := layer.ElementVariant{Kind: element.TagWatermark, Timestamp: 10}

	a := layer.MessageMetadata{LayerName: "edge", Fingerprint: coord.NewFingerprint(), Parallelism: 2}
	b := layer.MessageMetadata{LayerName: "edge", Fingerprint: coord.NewFingerprint(), Parallelism: 2}
	f.Heartbeat(a, now)
	f.Heartbeat(b, now)

	require.False(t, f.Observe(a, variant, now))
	require.True(t, f.Observe(b, variant, now), "release once both senders' full parallelism is tallied")

	// The counter resets on release: a fresh occurrence of the same
	// variant must go through the same two-sender cycle again.
	require.False(t, f.Observe(a, variant, now))
	require.True(t, f.Observe(b, variant, now))
}

func TestFrontierDuplicateDeliveryIsIdempotent(t *testing.T) {
	f := layer.NewLayoutFrontier(time.Minute)
	now := time.Now()
	variant := layer.ElementVariant{Kind: element.TagFlushAndRestart}
	a := layer.MessageMetadata{LayerName: "edge", Fingerprint: coord.NewFingerprint(), Parallelism: 1}
	b := layer.MessageMetadata{LayerName: "edge", Fingerprint: coord.NewFingerprint(), Parallelism: 1}
	f.Heartbeat(a, now)
	f.Heartbeat(b, now)

	require.False(t, f.Observe(a, variant, now))
	require.False(t, f.Observe(a, variant, now), "a redelivered copy from the same sender must not double-count toward release")
	require.True(t, f.Observe(b, variant, now), "only b's distinct contribution completes the tally")
}

func TestFrontierForgetsSilentSender(t *testing.T) {
	f := layer.NewLayoutFrontier(10 * time.Second)
	base := time.Now()
	a := layer.MessageMetadata{LayerName: "edge", Fingerprint: coord.NewFingerprint(), Parallelism: 1}
	b := layer.MessageMetadata{LayerName: "edge", Fingerprint: coord.NewFingerprint(), Parallelism: 1}

	f.Heartbeat(a, base)
	f.Heartbeat(b, base)
	require.Equal(t, 2, f.LiveSenders(base))

	later := base.Add(time.Minute)
	f.Heartbeat(a, later) // a stays live; b never heartbeats again
	require.Equal(t, 1, f.LiveSenders(later), "b has gone silent past heartbeatInterval and is forgotten")
}
