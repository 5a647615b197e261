package none_test

import (
	"testing"
	"time"

	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/layer"
	"github.com/chinifabio/renoir-go/layer/transport/none"
	"github.com/chinifabio/renoir-go/row"
	"github.com/stretchr/testify/require"
)

func TestLoopbackSendIsObservedByRecv(t *testing.T) {
	ch := none.New(4)
	meta := layer.MessageMetadata{LayerName: "edge", Fingerprint: coord.NewFingerprint(), Parallelism: 1}

	require.NoError(t, ch.Send(meta, element.Item(row.New(row.Int32(9)))))

	gotMeta, gotElem, err := ch.Recv()
	require.NoError(t, err)
	require.Equal(t, meta, gotMeta)
	v, ok := gotElem.Payload()
	require.True(t, ok)
	n, _ := v.Cells[0].AsInt32()
	require.Equal(t, int32(9), n)
}

func TestLoopbackRecvTimeoutReturnsFalseWithoutError(t *testing.T) {
	ch := none.New(1)
	_, _, ok, err := ch.RecvTimeout(20 * time.Millisecond)
	require.NoError(t, err)
	require.False(t, ok)
}
