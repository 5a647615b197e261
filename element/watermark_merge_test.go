package element_test

import (
	"testing"

	"github.com/chinifabio/renoir-go/element"
	"github.com/stretchr/testify/require"
)

func TestWatermarkMergerReleasesMinimumOnlyWhenAllAdvance(t *testing.T) {
	m := element.NewWatermarkMerger(2)

	_, released := m.Observe(0, 10)
	require.False(t, released, "only one of two senders advanced")

	ts, released := m.Observe(1, 5)
	require.True(t, released)
	require.Equal(t, element.Timestamp(5), ts)

	_, released = m.Observe(0, 10)
	require.False(t, released, "minimum unchanged")

	ts, released = m.Observe(1, 12)
	require.True(t, released)
	require.Equal(t, element.Timestamp(10), ts)
}

func TestWatermarkMergerForgetRecomputesMinimum(t *testing.T) {
	m := element.NewWatermarkMerger(2)
	m.Observe(0, 3)
	m.Observe(1, 100)

	ts, released := m.Forget(0)
	require.True(t, released)
	require.Equal(t, element.Timestamp(100), ts)
}

func TestBroadcastTallyResetsAfterRelease(t *testing.T) {
	tally := element.NewBroadcastTally(2)
	require.False(t, tally.Observe(0))
	require.True(t, tally.Observe(1))
	// Tally reset; a fresh round needs both senders again.
	require.False(t, tally.Observe(0))
	require.True(t, tally.Observe(1))
}
