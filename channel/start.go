package channel

import "github.com/chinifabio/renoir-go/element"

// Start is the receiving end of a block that merges one or more
// upstream ends. It implements the per-sender high-watermark tracking
// and broadcast tallying of §4.3: items and timestamped items pass
// through as soon as any sender produces one; a watermark is only
// emitted once every sender has reached at least that timestamp, and
// the emitted value is the minimum across senders; FlushBatch,
// FlushAndRestart and Terminate are released once every live sender has
// produced that exact variant, and the per-variant tally resets after
// release so it can track the signal's next occurrence.
type Start[T any] struct {
	recv    *MultiReceiver[T]
	wm      *element.WatermarkMerger
	flush   *element.BroadcastTally
	restart *element.BroadcastTally
	done    *element.BroadcastTally
	retired map[int]bool
	pending []element.Timestamp
}

// NewStart builds a merging start over recvs.
func NewStart[T any](recvs []Receiver[T]) *Start[T] {
	n := len(recvs)
	return &Start[T]{
		recv:    NewMultiReceiver(recvs),
		wm:      element.NewWatermarkMerger(n),
		flush:   element.NewBroadcastTally(n),
		restart: element.NewBroadcastTally(n),
		done:    element.NewBroadcastTally(n),
		retired: make(map[int]bool, n),
	}
}

// Next returns the next element to emit downstream, or ok=false once
// every sender has terminated and been forgotten (the start itself is
// then done). A watermark or broadcast-control arrival that does not yet
// satisfy the release condition is consumed without producing an
// element; Next loops internally until it has something to emit or runs
// out of live senders.
func (s *Start[T]) Next() (element.StreamElement[T], bool) {
	for {
		if len(s.pending) > 0 {
			ts := s.pending[0]
			s.pending = s.pending[1:]
			return element.Watermark[T](ts), true
		}
		tagged, ok := s.recv.Recv()
		if !ok {
			return element.Terminate[T](), false
		}
		sender, e := tagged.Sender, tagged.Elem
		switch e.Tag() {
		case element.TagItem, element.TagTimestamped:
			return e, true
		case element.TagWatermark:
			if ts, release := s.wm.Observe(sender, e.Timestamp()); release {
				return element.Watermark[T](ts), true
			}
		case element.TagFlushBatch:
			if s.flush.Observe(sender) {
				return element.FlushBatch[T](), true
			}
		case element.TagFlushAndRestart:
			if s.restart.Observe(sender) {
				return element.FlushAndRestart[T](), true
			}
		case element.TagTerminate:
			s.forgetSender(sender)
			if s.done.Observe(sender) {
				return element.Terminate[T](), true
			}
		}
	}
}

func (s *Start[T]) forgetSender(sender int) {
	if s.retired[sender] {
		return
	}
	s.retired[sender] = true
	remaining := s.recv.NumSenders() - len(s.retired)
	if ts, release := s.wm.Forget(sender); release {
		// Forgetting a sender can itself cause the cross-sender minimum
		// to advance; queue it so the next Next() call emits it.
		s.pending = append(s.pending, ts)
	}
	s.flush.Resize(remaining)
	s.restart.Resize(remaining)
}
