package layer_test

import (
	"testing"

	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/layer"
	"github.com/chinifabio/renoir-go/row"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTripsItemElement(t *testing.T) {
	meta := layer.MessageMetadata{LayerName: "site", Fingerprint: coord.NewFingerprint(), Parallelism: 3}
	r := row.New(row.Int32(7), row.Bool(true), row.NaNCell(), row.None(), row.Float32(1.5))
	e := element.Item(r)

	frame := layer.EncodeFrame(meta, e)
	gotMeta, gotElem, err := layer.DecodeFrame(frame)
	require.NoError(t, err)
	require.Equal(t, meta, gotMeta)
	require.Equal(t, element.TagItem, gotElem.Tag())
	v, ok := gotElem.Payload()
	require.True(t, ok)
	require.Equal(t, len(r.Cells), len(v.Cells))
	for i := range r.Cells {
		require.True(t, row.Equal(r.Cells[i], v.Cells[i]))
	}
}

func TestCodecRoundTripsControlElements(t *testing.T) {
	meta := layer.MessageMetadata{LayerName: "cloud", Fingerprint: coord.NewFingerprint(), Parallelism: 1}
	for _, e := range []element.StreamElement[row.Row]{
		element.Watermark[row.Row](42),
		element.FlushBatch[row.Row](),
		element.FlushAndRestart[row.Row](),
		element.Terminate[row.Row](),
	} {
		frame := layer.EncodeFrame(meta, e)
		_, got, err := layer.DecodeFrame(frame)
		require.NoError(t, err)
		require.Equal(t, e.Tag(), got.Tag())
		if e.Tag() == element.TagWatermark {
			require.Equal(t, e.Timestamp(), got.Timestamp())
		}
	}
}
