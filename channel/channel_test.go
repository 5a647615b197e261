package channel_test

import (
	"testing"
	"time"

	"github.com/chinifabio/renoir-go/channel"
	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/row"
	"github.com/chinifabio/renoir-go/ship"
	"github.com/stretchr/testify/require"
)

// tryRecv attempts one receive with a short timeout, returning ok=false
// if nothing arrived in time.
func tryRecv[T any](r channel.Receiver[T], timeout time.Duration) (element.StreamElement[T], bool) {
	type result struct {
		e  element.StreamElement[T]
		ok bool
	}
	out := make(chan result, 1)
	go func() {
		e, ok := r.Recv()
		out <- result{e, ok}
	}()
	select {
	case res := <-out:
		return res.e, res.ok
	case <-time.After(timeout):
		return element.StreamElement[T]{}, false
	}
}

func TestEndGroupByHashRoutesSameKeyToSameReceiver(t *testing.T) {
	const receivers = 3
	senders := make([]channel.Sender[row.Row], receivers)
	recvs := make([]channel.Receiver[row.Row], receivers)
	for i := 0; i < receivers; i++ {
		senders[i], recvs[i] = channel.NewBounded[row.Row](16)
	}
	keyFunc := func(r row.Row) ([]row.Cell, bool) {
		if !r.IsKeyed() {
			return nil, false
		}
		return r.Key(), true
	}
	end := channel.NewEnd(senders, ship.GroupByHash{}, 0, keyFunc)

	keyed, _ := row.New(row.Int32(42)).AbsorbKey([]row.Cell{row.Int32(7)})
	target := int(ship.HashKey(keyed.Key()) % receivers)

	for i := 0; i < 10; i++ {
		end.Send(element.Item(keyed))
	}

	count := 0
	for {
		_, ok := tryRecv(recvs[target], 20*time.Millisecond)
		if !ok {
			break
		}
		count++
	}
	require.Equal(t, 10, count)

	for i := 0; i < receivers; i++ {
		if i == target {
			continue
		}
		_, ok := tryRecv(recvs[i], 20*time.Millisecond)
		require.False(t, ok, "non-target receiver %d should see nothing", i)
	}
}

func TestEndBroadcastsControlRegardlessOfStrategy(t *testing.T) {
	const receivers = 3
	senders := make([]channel.Sender[row.Row], receivers)
	recvs := make([]channel.Receiver[row.Row], receivers)
	for i := 0; i < receivers; i++ {
		senders[i], recvs[i] = channel.NewBounded[row.Row](4)
	}
	end := channel.NewEnd[row.Row](senders, ship.GroupByHash{}, 0, nil)
	end.Send(element.Watermark[row.Row](42))

	for i := 0; i < receivers; i++ {
		e, ok := tryRecv(recvs[i], 20*time.Millisecond)
		require.True(t, ok)
		require.Equal(t, element.TagWatermark, e.Tag())
		require.Equal(t, element.Timestamp(42), e.Timestamp())
	}
}

func TestStartMergesWatermarksAsMinimum(t *testing.T) {
	s1, r1 := channel.NewBounded[row.Row](4)
	s2, r2 := channel.NewBounded[row.Row](4)
	start := channel.NewStart([]channel.Receiver[row.Row]{r1, r2})

	s1.Send(element.Watermark[row.Row](10))
	s2.Send(element.Watermark[row.Row](4))

	e, ok := start.Next()
	require.True(t, ok)
	require.Equal(t, element.TagWatermark, e.Tag())
	require.Equal(t, element.Timestamp(4), e.Timestamp())
}
