package layer

import (
	"sync"
	"time"

	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/element"
)

// ElementVariant identifies one broadcast-element kind for tallying
// purposes; Timestamp only distinguishes variants when Kind is
// TagWatermark (two watermarks at different timestamps are tracked
// independently, matching §8 invariant 1's non-decreasing requirement).
type ElementVariant struct {
	Kind      element.Tag
	Timestamp element.Timestamp
}

type senderState struct {
	parallelism int
	lastSeen    time.Time
}

// LayoutFrontier reconciles broadcast counts across the senders of one
// target layer (§4.10): a broadcast element is released downstream only
// once every currently-live sender has contributed its full parallelism
// worth of copies, and a sender silent past heartbeatInterval is
// dropped from both the live set and any in-flight tally.
type LayoutFrontier struct {
	heartbeatInterval time.Duration

	mu      sync.Mutex
	senders map[coord.Fingerprint]*senderState
	tally   map[ElementVariant]map[coord.Fingerprint]bool
}

// NewLayoutFrontier builds a frontier that forgets a sender once it has
// gone silent for longer than heartbeatInterval.
func NewLayoutFrontier(heartbeatInterval time.Duration) *LayoutFrontier {
	return &LayoutFrontier{
		heartbeatInterval: heartbeatInterval,
		senders:           make(map[coord.Fingerprint]*senderState),
		tally:             make(map[ElementVariant]map[coord.Fingerprint]bool),
	}
}

// Heartbeat registers meta's sender as live as of now, refreshing its
// last-seen time and declared parallelism.
func (f *LayoutFrontier) Heartbeat(meta MessageMetadata, now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeatLocked(meta, now)
}

func (f *LayoutFrontier) heartbeatLocked(meta MessageMetadata, now time.Time) {
	st, ok := f.senders[meta.Fingerprint]
	if !ok {
		st = &senderState{}
		f.senders[meta.Fingerprint] = st
	}
	st.parallelism = meta.Parallelism
	st.lastSeen = now
}

// pruneLocked drops any sender silent past heartbeatInterval from both
// the live set and every in-flight tally, per §7's frontier-starvation
// policy ("sender forgotten; watermark tally recomputed").
func (f *LayoutFrontier) pruneLocked(now time.Time) {
	for fp, st := range f.senders {
		if now.Sub(st.lastSeen) > f.heartbeatInterval {
			delete(f.senders, fp)
			for _, counted := range f.tally {
				delete(counted, fp)
			}
		}
	}
}

// Observe records that meta's sender produced one copy of variant, and
// reports whether the count now equals the sum of parallelism over
// every currently-live sender — the release condition of §4.10. A
// duplicate Observe from the same sender for the same variant before
// release is a no-op (the tally is a set keyed by fingerprint, not a
// counter), matching the idempotency requirement for duplicate
// deliveries. On release the tally for that variant is cleared so it
// can track the variant's next occurrence.
func (f *LayoutFrontier) Observe(meta MessageMetadata, variant ElementVariant, now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pruneLocked(now)
	f.heartbeatLocked(meta, now)

	counted, ok := f.tally[variant]
	if !ok {
		counted = make(map[coord.Fingerprint]bool)
		f.tally[variant] = counted
	}
	counted[meta.Fingerprint] = true

	required := 0
	for _, st := range f.senders {
		required += st.parallelism
	}
	have := 0
	for fp := range counted {
		if st, ok := f.senders[fp]; ok {
			have += st.parallelism
		}
	}
	if required > 0 && have >= required {
		delete(f.tally, variant)
		return true
	}
	return false
}

// LiveSenders reports how many distinct senders the frontier currently
// considers live, for diagnostics and tests.
func (f *LayoutFrontier) LiveSenders(now time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruneLocked(now)
	return len(f.senders)
}
