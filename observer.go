package hookable

import (
	"context"
	"time"
)

// -----------------------------------------------------------------------------
// Dispatch Events
// -----------------------------------------------------------------------------

// CallKind names the dispatch discipline of a collection.
type CallKind string

const (
	// KindBail is the first-answer-wins discipline of [SyncBailHook].
	KindBail CallKind = "bail"

	// KindSeries is the sequential discipline of [AsyncSeriesHook].
	KindSeries CallKind = "series"

	// KindParallel is the staged concurrent discipline of [AsyncParallelHook].
	KindParallel CallKind = "parallel"
)

// CallStartEvent is emitted when a collection's Call begins.
type CallStartEvent struct {
	Hook string
	Kind CallKind

	// Key is the bail map key, empty for other collections.
	Key string

	// Taps is the number of registered callbacks.
	Taps int

	StartTime time.Time
}

// CallEndEvent is emitted when a collection's Call returns. When a callback
// panicked, Err is a [*PanicError] and the panic continues after the event.
type CallEndEvent struct {
	Hook string
	Kind CallKind
	Key  string
	Taps int

	// Invoked is how many callbacks were started.
	Invoked int

	// BailedBy names the callback that answered a bail call, empty otherwise.
	BailedBy string

	// Err is the error returned by Call, if any.
	Err error

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Bailed reports whether a bail callback answered.
func (e *CallEndEvent) Bailed() bool {
	return e.BailedBy != ""
}

// TapStartEvent is emitted before a callback runs.
type TapStartEvent struct {
	Hook string
	Kind CallKind
	Key  string
	Tap  TapInfo

	// Group is the 0-based stage group of a parallel call; 0 otherwise.
	Group int

	StartTime time.Time
}

// TapEndEvent is emitted after a callback returns. A panicking callback
// reports a [*PanicError] in Err.
type TapEndEvent struct {
	Hook  string
	Kind  CallKind
	Key   string
	Tap   TapInfo
	Group int

	// Bailed is true when a bail callback answered.
	Bailed bool

	// Err is the error returned by a series or parallel callback.
	Err error

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// -----------------------------------------------------------------------------
// Observer Interfaces
// -----------------------------------------------------------------------------
//
// Observers watch dispatch without taking part in it. Implement any
// combination of the interfaces below and register the value with an
// [Observers] registry:
//
//	type SlowTapLogger struct{}
//
//	func (SlowTapLogger) OnTapEnd(ctx context.Context, e *hookable.TapEndEvent) {
//	    if e.Duration > time.Second {
//	        log.Printf("%s/%s took %v", e.Hook, e.Tap.Name, e.Duration)
//	    }
//	}
//
//	obs := hookable.NewObservers().Register(SlowTapLogger{})
//	makeHook := hookable.NewAsyncParallelHook(Make, hookable.WithObservers(obs))
//
// Tap events of a parallel group are emitted from the group's goroutines, so
// observers must be safe for concurrent use.
// -----------------------------------------------------------------------------

// CallStartObserver is notified when a Call begins. The returned context is
// passed to the callbacks and to later observers; returning nil keeps ctx.
type CallStartObserver interface {
	OnCallStart(ctx context.Context, event *CallStartEvent) context.Context
}

// CallEndObserver is notified when a Call returns.
type CallEndObserver interface {
	OnCallEnd(ctx context.Context, event *CallEndEvent)
}

// TapStartObserver is notified before each callback. The returned context is
// passed to that callback only; returning nil keeps ctx.
type TapStartObserver interface {
	OnTapStart(ctx context.Context, event *TapStartEvent) context.Context
}

// TapEndObserver is notified after each callback.
type TapEndObserver interface {
	OnTapEnd(ctx context.Context, event *TapEndEvent)
}

// -----------------------------------------------------------------------------
// Observers Registry
// -----------------------------------------------------------------------------

// Observers holds registered observers and fans dispatch events out to them.
// A nil *Observers is valid and observes nothing.
//
// # Thread Safety
//
// Observers is NOT safe for concurrent Register. Register all observers before
// the collections using it are called. Dispatching to the registered
// observers is safe from any number of goroutines.
type Observers struct {
	observers []any
}

// NewObservers creates an empty registry.
func NewObservers() *Observers {
	return &Observers{observers: make([]any, 0)}
}

// Register adds an observer. It may implement any combination of the
// observer interfaces; observers are notified in registration order.
func (o *Observers) Register(observer any) *Observers {
	o.observers = append(o.observers, observer)
	return o
}

// Len returns the number of registered observers.
func (o *Observers) Len() int {
	if o == nil {
		return 0
	}
	return len(o.observers)
}

func (o *Observers) empty() bool {
	return o == nil || len(o.observers) == 0
}

func (o *Observers) fireCallStart(ctx context.Context, event *CallStartEvent) context.Context {
	for _, ob := range o.observers {
		if obs, ok := ob.(CallStartObserver); ok {
			if next := obs.OnCallStart(ctx, event); next != nil {
				ctx = next
			}
		}
	}
	return ctx
}

func (o *Observers) fireCallEnd(ctx context.Context, event *CallEndEvent) {
	for _, ob := range o.observers {
		if obs, ok := ob.(CallEndObserver); ok {
			obs.OnCallEnd(ctx, event)
		}
	}
}

func (o *Observers) fireTapStart(ctx context.Context, event *TapStartEvent) context.Context {
	for _, ob := range o.observers {
		if obs, ok := ob.(TapStartObserver); ok {
			if next := obs.OnTapStart(ctx, event); next != nil {
				ctx = next
			}
		}
	}
	return ctx
}

func (o *Observers) fireTapEnd(ctx context.Context, event *TapEndEvent) {
	for _, ob := range o.observers {
		if obs, ok := ob.(TapEndObserver); ok {
			obs.OnTapEnd(ctx, event)
		}
	}
}

// -----------------------------------------------------------------------------
// Call Scope
// -----------------------------------------------------------------------------

// callScope carries the observer bookkeeping of one Call. With no observers
// registered every method is a cheap no-op.
type callScope struct {
	s     *settings
	hook  string
	kind  CallKind
	key   string
	taps  int
	start time.Time

	// panicked is set by a bail or series tap that panicked. Parallel taps
	// re-panic with the *PanicError itself instead.
	panicked *PanicError
}

func (s *settings) beginCall(
	ctx context.Context,
	hook string,
	kind CallKind,
	key string,
	taps int,
) (context.Context, *callScope) {
	sc := &callScope{s: s, hook: hook, kind: kind, key: key, taps: taps}
	if s.observers.empty() {
		return ctx, sc
	}
	sc.start = s.clock.Now()
	ctx = s.observers.fireCallStart(ctx, &CallStartEvent{
		Hook:      hook,
		Kind:      kind,
		Key:       key,
		Taps:      taps,
		StartTime: sc.start,
	})
	return ctx, sc
}

func (sc *callScope) end(ctx context.Context, invoked int, bailedBy string, err error) {
	if sc.s.observers.empty() {
		return
	}
	now := sc.s.clock.Now()
	sc.s.observers.fireCallEnd(ctx, &CallEndEvent{
		Hook:      sc.hook,
		Kind:      sc.kind,
		Key:       sc.key,
		Taps:      sc.taps,
		Invoked:   invoked,
		BailedBy:  bailedBy,
		Err:       err,
		StartTime: sc.start,
		EndTime:   now,
		Duration:  now.Sub(sc.start),
	})
}

// endPanicked is deferred by Call. If a callback panicked it fires the end
// event with a *PanicError and lets the panic continue.
func (sc *callScope) endPanicked(ctx context.Context, invoked *int) {
	if sc.s.observers.empty() {
		return
	}
	r := recover()
	if r == nil {
		return
	}
	pe, ok := r.(*PanicError)
	if !ok {
		pe = sc.panicked
		if pe == nil {
			pe = newPanicError(sc.hook, "", r)
		}
	}
	sc.end(ctx, *invoked, "", pe)
	panic(r)
}

// tapScope is the per-callback counterpart of callScope.
type tapScope struct {
	call  *callScope
	tap   TapInfo
	group int
	start time.Time
}

func (sc *callScope) beginTap(ctx context.Context, tap TapInfo, group int) (context.Context, *tapScope) {
	ts := &tapScope{call: sc, tap: tap, group: group}
	if sc.s.observers.empty() {
		return ctx, ts
	}
	ts.start = sc.s.clock.Now()
	ctx = sc.s.observers.fireTapStart(ctx, &TapStartEvent{
		Hook:      sc.hook,
		Kind:      sc.kind,
		Key:       sc.key,
		Tap:       tap,
		Group:     group,
		StartTime: ts.start,
	})
	return ctx, ts
}

func (ts *tapScope) end(ctx context.Context, bailed bool, err error) {
	sc := ts.call
	if sc.s.observers.empty() {
		return
	}
	now := sc.s.clock.Now()
	sc.s.observers.fireTapEnd(ctx, &TapEndEvent{
		Hook:      sc.hook,
		Kind:      sc.kind,
		Key:       sc.key,
		Tap:       ts.tap,
		Group:     ts.group,
		Bailed:    bailed,
		Err:       err,
		StartTime: ts.start,
		EndTime:   now,
		Duration:  now.Sub(ts.start),
	})
}

// endPanicked is deferred around a bail or series callback. If the callback
// panicked it fires the tap end event, remembers the *PanicError for the
// call's end event and re-raises the original value.
func (ts *tapScope) endPanicked(ctx context.Context) {
	sc := ts.call
	if sc.s.observers.empty() {
		return
	}
	r := recover()
	if r == nil {
		return
	}
	pe := newPanicError(sc.hook, ts.tap.Name, r)
	sc.panicked = pe
	ts.end(ctx, false, pe)
	panic(r)
}
