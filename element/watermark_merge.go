package element

// WatermarkMerger tracks, for a start operator receiving from multiple
// upstream senders, the highest watermark timestamp seen from each
// sender. It only releases a merged watermark downstream when every
// known sender has advanced to at least that timestamp; the released
// value is the minimum across senders, per §4.3.
type WatermarkMerger struct {
	total     int
	highWater map[int]Timestamp
	released  Timestamp
	started   bool
}

// NewWatermarkMerger builds a merger for the given number of senders,
// indexed 0..n-1. No watermark is released until all `senders` of them
// have reported at least once.
func NewWatermarkMerger(senders int) *WatermarkMerger {
	return &WatermarkMerger{total: senders, highWater: make(map[int]Timestamp, senders)}
}

// Observe records a watermark timestamp from the given sender index and
// reports the new merged watermark to release downstream, if every
// sender has now reported and the minimum across all of them advanced
// past what was last released.
func (m *WatermarkMerger) Observe(sender int, ts Timestamp) (Timestamp, bool) {
	if prev, ok := m.highWater[sender]; ok && ts < prev {
		ts = prev // watermarks are non-decreasing per channel; ignore regressions
	}
	m.highWater[sender] = ts
	return m.tryRelease()
}

// Forget drops a sender from the tally, e.g. when it terminates, and
// lowers the number of senders required to release a merged watermark;
// the minimum is recomputed over the remaining senders.
func (m *WatermarkMerger) Forget(sender int) (Timestamp, bool) {
	delete(m.highWater, sender)
	if m.total > 0 {
		m.total--
	}
	return m.tryRelease()
}

func (m *WatermarkMerger) tryRelease() (Timestamp, bool) {
	if m.total == 0 || len(m.highWater) < m.total {
		return 0, false
	}
	min, ok := m.minimum()
	if !ok || (m.started && min <= m.released) {
		return 0, false
	}
	m.started = true
	m.released = min
	return min, true
}

func (m *WatermarkMerger) minimum() (Timestamp, bool) {
	if len(m.highWater) == 0 {
		return 0, false
	}
	first := true
	var min Timestamp
	for _, ts := range m.highWater {
		if first || ts < min {
			min = ts
			first = false
		}
	}
	return min, true
}

// BroadcastTally counts arrivals of a broadcast control element (flush,
// flush-and-restart, terminate) across senders so a start operator can
// wait for every live sender before propagating it exactly once. This is
// the local, single-block counterpart of the layer connector's
// LayoutFrontier (§4.10), which performs the same tally across tiers.
type BroadcastTally struct {
	expected int
	seen     map[int]bool
}

// NewBroadcastTally builds a tally expecting arrivals from `expected`
// distinct senders.
func NewBroadcastTally(expected int) *BroadcastTally {
	return &BroadcastTally{expected: expected, seen: make(map[int]bool, expected)}
}

// Observe records an arrival from sender and reports whether every
// expected sender has now been seen; on that transition the tally resets
// so it can track the next occurrence of the broadcast variant.
func (t *BroadcastTally) Observe(sender int) bool {
	t.seen[sender] = true
	if len(t.seen) < t.expected {
		return false
	}
	for k := range t.seen {
		delete(t.seen, k)
	}
	return true
}

// Resize adjusts the expected sender count, e.g. when a sender
// terminates and should no longer be waited on.
func (t *BroadcastTally) Resize(expected int) {
	t.expected = expected
}
