package tt

import (
	"sync"
	"sync/atomic"
	"time"
)

// -----------------------------------------------------------------------------
// Recorder - ordered, concurrency-safe log of labels
// -----------------------------------------------------------------------------

// Recorder collects labels in the order they were recorded. Callbacks use it
// to prove invocation order.
type Recorder struct {
	mu      sync.Mutex
	entries []string
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends label.
func (r *Recorder) Record(label string) {
	r.mu.Lock()
	r.entries = append(r.entries, label)
	r.mu.Unlock()
}

// Entries returns a copy of the recorded labels.
func (r *Recorder) Entries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.entries...)
}

// Reset drops every label.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}

// -----------------------------------------------------------------------------
// SpanRecorder - wall-clock intervals of concurrent callbacks
// -----------------------------------------------------------------------------

// Span is the interval during which a labelled callback ran.
type Span struct {
	Label string
	Start time.Time
	End   time.Time
}

// SpanRecorder records spans and tracks how many are open at once.
type SpanRecorder struct {
	mu      sync.Mutex
	spans   []Span
	open    atomic.Int64
	maxOpen atomic.Int64
}

// NewSpanRecorder creates an empty SpanRecorder.
func NewSpanRecorder() *SpanRecorder {
	return &SpanRecorder{}
}

// Begin opens a span for label and returns the function that closes it:
//
//	defer spans.Begin("A")()
func (r *SpanRecorder) Begin(label string) func() {
	start := time.Now()
	n := r.open.Add(1)
	for {
		m := r.maxOpen.Load()
		if n <= m || r.maxOpen.CompareAndSwap(m, n) {
			break
		}
	}
	return func() {
		end := time.Now()
		r.open.Add(-1)
		r.mu.Lock()
		r.spans = append(r.spans, Span{Label: label, Start: start, End: end})
		r.mu.Unlock()
	}
}

// Spans returns the closed spans in closing order.
func (r *SpanRecorder) Spans() []Span {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Span(nil), r.spans...)
}

// Get returns the span with the given label.
func (r *SpanRecorder) Get(label string) (Span, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.spans {
		if s.Label == label {
			return s, true
		}
	}
	return Span{}, false
}

// MaxOpen returns the highest number of simultaneously open spans seen.
func (r *SpanRecorder) MaxOpen() int {
	return int(r.maxOpen.Load())
}

// -----------------------------------------------------------------------------
// Latch - rendezvous for proving concurrency
// -----------------------------------------------------------------------------

// Latch releases every waiter once n parties have arrived. Callbacks that
// must run concurrently each call Arrive; if they were serialized the first
// one would time out.
type Latch struct {
	remaining atomic.Int64
	done      chan struct{}
}

// NewLatch creates a latch for n parties.
func NewLatch(n int) *Latch {
	l := &Latch{done: make(chan struct{})}
	l.remaining.Store(int64(n))
	if n <= 0 {
		close(l.done)
	}
	return l
}

// Arrive registers one party and waits up to timeout for the rest. It
// reports whether every party arrived in time.
func (l *Latch) Arrive(timeout time.Duration) bool {
	if l.remaining.Add(-1) == 0 {
		close(l.done)
	}
	select {
	case <-l.done:
		return true
	case <-time.After(timeout):
		return false
	}
}
