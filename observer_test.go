package hookable

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventLog is an observer that records every event as a short string.
type eventLog struct {
	mu     sync.Mutex
	events []string
	ends   []*CallEndEvent
	taps   []*TapEndEvent
}

type ctxMarker struct{}

func (l *eventLog) add(s string) {
	l.mu.Lock()
	l.events = append(l.events, s)
	l.mu.Unlock()
}

func (l *eventLog) OnCallStart(ctx context.Context, e *CallStartEvent) context.Context {
	l.add(fmt.Sprintf("call-start %s %s taps=%d", e.Hook, e.Kind, e.Taps))
	return context.WithValue(ctx, ctxMarker{}, "from-observer")
}

func (l *eventLog) OnCallEnd(ctx context.Context, e *CallEndEvent) {
	l.add(fmt.Sprintf("call-end %s invoked=%d bailedBy=%q err=%v", e.Hook, e.Invoked, e.BailedBy, e.Err != nil))
	l.mu.Lock()
	l.ends = append(l.ends, e)
	l.mu.Unlock()
}

func (l *eventLog) OnTapStart(ctx context.Context, e *TapStartEvent) context.Context {
	l.add(fmt.Sprintf("tap-start %s", e.Tap.Name))
	return nil
}

func (l *eventLog) OnTapEnd(ctx context.Context, e *TapEndEvent) {
	l.add(fmt.Sprintf("tap-end %s bailed=%v", e.Tap.Name, e.Bailed))
	l.mu.Lock()
	l.taps = append(l.taps, e)
	l.mu.Unlock()
}

func TestObservers_BailCall(t *testing.T) {
	log := &eventLog{}
	clock := NewMockTimeProvider(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	clock.SetStep(time.Second)
	h := NewSyncBailHook(
		Define[int, string]("canRename"),
		WithObservers(NewObservers().Register(log)),
		WithTimeProvider(clock),
	)

	var seen any
	h.TapFunc(func(ctx context.Context, in int) (string, bool) {
		seen = ctx.Value(ctxMarker{})
		return "", false
	}, WithTapName("Pass"))
	h.TapFunc(func(ctx context.Context, in int) (string, bool) { return "yes", true }, WithTapName("Answer"))
	h.TapFunc(func(ctx context.Context, in int) (string, bool) { return "never", true }, WithTapName("Never"))

	_, ok := h.Call(context.Background(), 0)

	require.True(t, ok)
	assert.Equal(t, "from-observer", seen)
	assert.Equal(t, []string{
		"call-start canRename bail taps=3",
		"tap-start Pass",
		"tap-end Pass bailed=false",
		"tap-start Answer",
		"tap-end Answer bailed=true",
		`call-end canRename invoked=2 bailedBy="Answer" err=false`,
	}, log.events)

	require.Len(t, log.ends, 1)
	assert.True(t, log.ends[0].Bailed())
	// Six clock reads one second apart: call start, two taps, call end.
	assert.Equal(t, 5*time.Second, log.ends[0].Duration)
	assert.Equal(t, time.Second, log.taps[0].Duration)
}

func TestObservers_BailMapKey(t *testing.T) {
	log := &eventLog{}
	m := NewSyncBailHookMap(Define[string, int]("evaluate"), WithObservers(NewObservers().Register(log)))
	m.TapFunc("binary", func(ctx context.Context, in string) (int, bool) { return 1, true })

	m.Call(context.Background(), "binary", "1+1")
	m.Call(context.Background(), "unknown", "x")

	require.Len(t, log.ends, 1)
	assert.Equal(t, "binary", log.ends[0].Key)
	assert.Equal(t, "evaluate[binary]", log.ends[0].Hook)
}

func TestObservers_ParallelGroups(t *testing.T) {
	log := &eventLog{}
	h := NewAsyncParallelHook(Define[int, Void]("make"), WithObservers(NewObservers().Register(log)))
	noop := func(ctx context.Context, in int) error { return nil }
	h.TapFunc(noop, WithTapName("A"))
	h.TapFunc(noop, WithTapName("B"))
	h.Tap(ParallelAt(noop, -100), WithTapName("C"))

	require.NoError(t, h.Call(context.Background(), 0))

	groups := map[string]int{}
	for _, e := range log.taps {
		groups[e.Tap.Name] = e.Group
	}
	assert.Equal(t, map[string]int{"C": 0, "A": 1, "B": 1}, groups)
	require.Len(t, log.ends, 1)
	assert.Equal(t, 3, log.ends[0].Invoked)
}

func TestObservers_NilAndEmpty(t *testing.T) {
	var nilObs *Observers
	assert.Equal(t, 0, nilObs.Len())
	assert.Equal(t, 2, NewObservers().Register(1).Register("not an observer").Len())

	h := NewAsyncSeriesHook(Define[int, Void]("series"), WithObservers(nilObs))
	h.TapFunc(func(ctx context.Context, in int) error { return nil })
	assert.NoError(t, h.Call(context.Background(), 0))
}

func TestDispatchStats(t *testing.T) {
	stats := NewDispatchStats()
	obs := NewObservers().Register(stats)

	bail := NewSyncBailHook(Define[int, bool]("canRename"), WithObservers(obs))
	bail.TapFunc(func(ctx context.Context, in int) (bool, bool) { return false, false }, WithTapName("Skip"))
	bail.TapFunc(func(ctx context.Context, in int) (bool, bool) { return true, in > 0 }, WithTapName("Positive"))

	series := NewAsyncSeriesHook(Define[int, Void]("processAssets"), WithObservers(obs))
	series.TapFunc(func(ctx context.Context, in int) error {
		if in < 0 {
			return errAssetMissing
		}
		return nil
	}, WithTapName("Check"))

	par := NewAsyncParallelHook(Define[int, Void]("make"), WithObservers(obs))
	par.TapFunc(func(ctx context.Context, in int) error { return nil }, WithTapName("A"))
	par.TapFunc(func(ctx context.Context, in int) error { return nil }, WithTapName("B"))

	bail.Call(context.Background(), 1)
	bail.Call(context.Background(), -1)
	assert.NoError(t, series.Call(context.Background(), 1))
	assert.Error(t, series.Call(context.Background(), -1))
	assert.NoError(t, par.Call(context.Background(), 0))

	tests := []struct {
		key      StatKey
		expected int64
	}{
		{key: KeyCalls, expected: 5},
		{key: KeyCallsFor.For("canRename"), expected: 2},
		{key: KeyCallsFor.For("make"), expected: 1},
		{key: KeyTaps, expected: 8},
		{key: KeyTapsFor.For("canRename/Skip"), expected: 2},
		{key: KeyTapsFor.For("make/A"), expected: 1},
		{key: KeyBails, expected: 1},
		{key: KeyBailsFor.For("canRename/Positive"), expected: 1},
		{key: KeyErrors, expected: 1},
		{key: KeyErrorsFor.For("processAssets"), expected: 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, stats.GetCounter(tt.key), string(tt.key))
	}

	assert.Equal(t, int64(2), stats.GetCalls("processAssets"))
	assert.Equal(t, int64(2), stats.GetTapRuns("canRename", "Positive"))
	assert.Equal(t, int64(1), stats.GetErrors("processAssets"))
	assert.Zero(t, stats.GetGauge(KeyInFlightCalls))
	assert.Zero(t, stats.GetGauge(KeyInFlightTaps))

	stats.Reset()
	assert.Empty(t, stats.Counters())
}

func TestDispatchStats_CustomKeys(t *testing.T) {
	stats := NewDispatchStats()

	stats.IncrCounter("myapp:assets", 3)
	stats.IncrGauge("myapp:queue", 2)
	stats.IncrGauge("myapp:queue", -0.5)
	stats.SetGauge("myapp:ratio", 0.25)

	assert.Equal(t, int64(3), stats.GetCounter("myapp:assets"))
	assert.Equal(t, 1.5, stats.GetGauge("myapp:queue"))
	assert.Equal(t, map[string]float64{"myapp:queue": 1.5, "myapp:ratio": 0.25}, stats.Gauges())
	stats.ResetGauge("myapp:queue")
	assert.Zero(t, stats.GetGauge("myapp:queue"))
	assert.Panics(t, func() { stats.IncrCounter("myapp:assets", -1) })
}

func TestDispatchStats_BailsPerHook(t *testing.T) {
	stats := NewDispatchStats()
	obs := NewObservers().Register(stats)

	rename := NewSyncBailHook(Define[int, bool]("canRename"), WithObservers(obs))
	rename.TapFunc(func(ctx context.Context, in int) (bool, bool) { return true, true }, WithTapName("Answer"))
	inline := NewSyncBailHook(Define[int, bool]("canInline"), WithObservers(obs))
	inline.TapFunc(func(ctx context.Context, in int) (bool, bool) { return false, true }, WithTapName("Answer"))

	rename.Call(context.Background(), 1)
	rename.Call(context.Background(), 2)
	inline.Call(context.Background(), 3)

	assert.Equal(t, int64(3), stats.GetCounter(KeyBails))
	assert.Equal(t, int64(2), stats.GetCounter(KeyBailsFor.For("canRename/Answer")))
	assert.Equal(t, int64(1), stats.GetCounter(KeyBailsFor.For("canInline/Answer")))
	assert.Zero(t, stats.GetCounter(KeyBailsFor.For("Answer")))
}

func TestObservers_PanickingCallbackEndsCall(t *testing.T) {
	boom := func() { panic("boom") }

	type expected struct {
		hook        string
		panicErrors bool
	}

	tests := []struct {
		name     string
		call     func(obs *Observers)
		expected expected
	}{
		{
			name: "bail",
			call: func(obs *Observers) {
				h := NewSyncBailHook(Define[int, bool]("canRename"), WithObservers(obs))
				h.TapFunc(func(ctx context.Context, in int) (bool, bool) {
					boom()
					return false, false
				}, WithTapName("Boom"))
				h.Call(context.Background(), 0)
			},
			expected: expected{hook: "canRename"},
		},
		{
			name: "series",
			call: func(obs *Observers) {
				h := NewAsyncSeriesHook(Define[int, Void]("processAssets"), WithObservers(obs))
				h.TapFunc(func(ctx context.Context, in int) error {
					boom()
					return nil
				}, WithTapName("Boom"))
				_ = h.Call(context.Background(), 0)
			},
			expected: expected{hook: "processAssets"},
		},
		{
			name: "parallel",
			call: func(obs *Observers) {
				h := NewAsyncParallelHook(Define[int, Void]("make"), WithObservers(obs))
				h.TapFunc(func(ctx context.Context, in int) error {
					boom()
					return nil
				}, WithTapName("Boom"))
				_ = h.Call(context.Background(), 0)
			},
			expected: expected{hook: "make", panicErrors: true},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stats := NewDispatchStats()
			traces := NewTraceCollector()
			log := &eventLog{}
			obs := NewObservers().Register(stats).Register(traces).Register(log)

			recovered := func() (r any) {
				defer func() { r = recover() }()
				tc.call(obs)
				return nil
			}()

			if tc.expected.panicErrors {
				pe, ok := recovered.(*PanicError)
				require.True(t, ok, "expected *PanicError, got %T", recovered)
				assert.Equal(t, "boom", pe.Value)
			} else {
				assert.Equal(t, "boom", recovered)
			}

			assert.Zero(t, stats.GetGauge(KeyInFlightCalls))
			assert.Zero(t, stats.GetGauge(KeyInFlightTaps))
			assert.Equal(t, int64(1), stats.GetErrors(tc.expected.hook))

			require.Len(t, log.ends, 1)
			var pe *PanicError
			require.True(t, errors.As(log.ends[0].Err, &pe))
			assert.Equal(t, "Boom", pe.Tap)
			assert.Equal(t, 1, log.ends[0].Invoked)
			require.Len(t, log.taps, 1)
			assert.ErrorAs(t, log.taps[0].Err, &pe)

			calls := traces.GetCalls()
			require.Len(t, calls, 1)
			assert.Contains(t, calls[0].Error, `tap "Boom" panicked: boom`)
			require.Len(t, calls[0].Taps, 1)
			assert.Contains(t, calls[0].Taps[0].Error, "panicked")
		})
	}
}

func TestTraceCollector(t *testing.T) {
	traces := NewTraceCollector()
	clock := NewMockTimeProvider(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	clock.SetStep(time.Millisecond)
	h := NewAsyncSeriesHook(
		Define[int, Void]("processAssets"),
		WithObservers(NewObservers().Register(traces)),
		WithTimeProvider(clock),
	)
	h.TapFunc(func(ctx context.Context, in int) error { return nil }, WithTapName("Minify"))
	h.Tap(SeriesAt(func(ctx context.Context, in int) error {
		if in < 0 {
			return errAssetMissing
		}
		return nil
	}, 10), WithTapName("Hash"))

	require.NoError(t, h.Call(context.Background(), 1))
	require.Error(t, h.Call(context.Background(), -1))

	calls := traces.GetCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, KindSeries, calls[0].Kind)
	assert.Equal(t, 2, calls[0].Invoked)
	assert.Empty(t, calls[0].Error)
	require.Len(t, calls[1].Taps, 2)
	assert.Equal(t, "Hash", calls[1].Taps[1].Name)
	assert.Equal(t, 10, calls[1].Taps[1].Stage)
	assert.Contains(t, calls[1].Taps[1].Error, "asset missing")
	assert.Contains(t, calls[1].Error, `tap "Hash"`)
	assert.Equal(t, time.Millisecond, calls[1].Taps[0].Duration)

	var buf bytes.Buffer
	require.NoError(t, traces.WriteYAML(&buf))
	assert.Contains(t, buf.String(), "hook: processAssets")
	assert.Contains(t, buf.String(), "name: Minify")

	assert.Len(t, traces.GetCallsFor("processAssets"), 2)
	assert.Empty(t, traces.GetCallsFor("make"))
	traces.Clear()
	assert.Empty(t, traces.GetCalls())
}

func TestMockTimeProvider(t *testing.T) {
	start := time.Date(2026, 6, 15, 14, 30, 0, 0, time.UTC)
	tp := NewMockTimeProvider(start)

	assert.Equal(t, start, tp.Now())
	assert.Equal(t, start, tp.Now())

	tp.Advance(time.Minute)
	assert.Equal(t, start.Add(time.Minute), tp.Now())

	tp.SetStep(time.Second)
	assert.Equal(t, start.Add(time.Minute), tp.Now())
	assert.Equal(t, start.Add(time.Minute+time.Second), tp.Now())

	tp.SetTime(start)
	tp.SetStep(0)
	assert.Equal(t, start, tp.Now())
}

func TestDefaultTimeProvider_Now(t *testing.T) {
	before := time.Now()
	got := NewDefaultTimeProvider().Now()
	after := time.Now()

	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}
