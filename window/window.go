// Package window implements the per-key window generators of spec §4.7:
// tumbling, sliding, session and count-based windows. Tumbling and
// sliding windows fire on an event-time watermark, a session closes when
// a later item exceeds its gap, and a count window fires at its
// buffer-size threshold; there is no processing-time timer.
package window

import (
	"sort"

	"github.com/chinifabio/renoir-go/element"
)

// Kind selects a window generator's assignment and firing policy.
type Kind int

const (
	// Tumbling assigns each timestamp to exactly one fixed-size,
	// non-overlapping window.
	Tumbling Kind = iota
	// Sliding assigns each timestamp to every overlapping window of
	// the given size advancing by Slide.
	Sliding
	// Session groups consecutive events into one window as long as the
	// gap between them stays within Gap; a larger gap starts a new
	// window.
	Session
	// Count closes a window once its buffer reaches Threshold items,
	// irrespective of event time.
	Count
)

// Description parameterizes a generator; only the fields relevant to
// Kind are read.
type Description struct {
	Kind      Kind
	Size      element.Timestamp // Tumbling, Sliding
	Slide     element.Timestamp // Sliding
	Gap       element.Timestamp // Session
	Threshold int               // Count
}

// Window borrows a generator's buffer for one firing: [Start, End) in
// event time (zero for Count windows, which have no time bounds).
type Window[T any] struct {
	Start, End element.Timestamp
	Items      []T
}

type openWindow[T any] struct {
	start, end element.Timestamp
	items      []T
}

// Generator tracks one key's (or, for window_all, the whole stream's)
// open windows and the ones that have fired but not yet been consumed
// via NextWindow. It is not safe for concurrent use; callers serialize
// access per key, matching the single-threaded-per-replica execution
// model of §5.
type Generator[T any] struct {
	desc Description

	open  map[element.Timestamp]*openWindow[T] // keyed by window Start, Tumbling/Sliding
	order []element.Timestamp                  // Start values in insertion order

	session *openWindow[T] // Session: the one currently open window
	lastTs  element.Timestamp

	count *openWindow[T] // Count: the one currently filling buffer

	ready []*Window[T]
}

// NewGenerator builds a generator for one key (or the singleton
// window_all key) per desc.
func NewGenerator[T any](desc Description) *Generator[T] {
	return &Generator[T]{
		desc: desc,
		open: make(map[element.Timestamp]*openWindow[T]),
	}
}

// Add assigns item to whichever window(s) its timestamp belongs to,
// per Kind, opening new windows as needed. Count windows ignore ts.
func (g *Generator[T]) Add(item T, ts element.Timestamp) {
	switch g.desc.Kind {
	case Tumbling:
		start := tumblingStart(ts, g.desc.Size)
		g.appendTo(start, start+g.desc.Size, item)
	case Sliding:
		for _, start := range slidingStarts(ts, g.desc.Size, g.desc.Slide) {
			g.appendTo(start, start+g.desc.Size, item)
		}
	case Session:
		if g.session != nil && ts-g.lastTs > g.desc.Gap {
			g.closeSession()
		}
		if g.session == nil {
			g.session = &openWindow[T]{start: ts, end: ts}
		}
		g.session.items = append(g.session.items, item)
		if ts > g.session.end {
			g.session.end = ts
		}
		g.lastTs = ts
	case Count:
		if g.count == nil {
			g.count = &openWindow[T]{}
		}
		g.count.items = append(g.count.items, item)
		if len(g.count.items) >= g.desc.Threshold {
			g.ready = append(g.ready, &Window[T]{Items: g.count.items})
			g.count = nil
		}
	}
}

func (g *Generator[T]) appendTo(start, end element.Timestamp, item T) {
	w, ok := g.open[start]
	if !ok {
		w = &openWindow[T]{start: start, end: end}
		g.open[start] = w
		g.order = append(g.order, start)
	}
	w.items = append(w.items, item)
}

func (g *Generator[T]) closeSession() {
	if g.session == nil {
		return
	}
	g.ready = append(g.ready, &Window[T]{Start: g.session.start, End: g.session.end, Items: g.session.items})
	g.session = nil
}

// Advance closes every Tumbling/Sliding window whose End is at or
// before watermark, in ascending End order, moving them onto the ready
// queue; called when a Watermark element is observed on this key's
// channel (§4.7's event-time firing policy).
func (g *Generator[T]) Advance(watermark element.Timestamp) {
	var remaining []element.Timestamp
	var closing []*openWindow[T]
	for _, start := range g.order {
		w := g.open[start]
		if w.end <= watermark {
			closing = append(closing, w)
			delete(g.open, start)
		} else {
			remaining = append(remaining, start)
		}
	}
	g.order = remaining

	sort.Slice(closing, func(i, j int) bool { return closing[i].end < closing[j].end })
	for _, w := range closing {
		g.ready = append(g.ready, &Window[T]{Start: w.start, End: w.end, Items: w.items})
	}
}

// Flush force-closes every currently open window (Tumbling/Sliding and
// any in-progress Session), used at FlushAndRestart/Terminate rather
// than waiting for a watermark that will never arrive.
func (g *Generator[T]) Flush() {
	for _, start := range g.order {
		w := g.open[start]
		g.ready = append(g.ready, &Window[T]{Start: w.start, End: w.end, Items: w.items})
	}
	g.open = make(map[element.Timestamp]*openWindow[T])
	g.order = nil
	g.closeSession()
	if g.count != nil && len(g.count.items) > 0 {
		g.ready = append(g.ready, &Window[T]{Items: g.count.items})
		g.count = nil
	}
}

// NextWindow pops the oldest fired-but-unconsumed window, if any.
func (g *Generator[T]) NextWindow() (*Window[T], bool) {
	if len(g.ready) == 0 {
		return nil, false
	}
	w := g.ready[0]
	g.ready = g.ready[1:]
	return w, true
}

// Buffer returns every item currently held in an open (not yet fired)
// window, Tumbling/Sliding windows in Start order followed by any
// in-progress session or count buffer.
func (g *Generator[T]) Buffer() []T {
	var out []T
	for _, start := range g.order {
		out = append(out, g.open[start].items...)
	}
	if g.session != nil {
		out = append(out, g.session.items...)
	}
	if g.count != nil {
		out = append(out, g.count.items...)
	}
	return out
}

func tumblingStart(ts, size element.Timestamp) element.Timestamp {
	if size <= 0 {
		return ts
	}
	q := ts / size
	if ts < 0 && ts%size != 0 {
		q--
	}
	return q * size
}

func slidingStarts(ts, size, slide element.Timestamp) []element.Timestamp {
	if slide <= 0 || size <= 0 {
		return []element.Timestamp{tumblingStart(ts, size)}
	}
	last := tumblingStart(ts, slide)
	var starts []element.Timestamp
	for start := last; start > ts-size; start -= slide {
		if start <= ts && ts < start+size {
			starts = append(starts, start)
		}
	}
	return starts
}
