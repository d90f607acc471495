package hookable

import (
	"context"
	"maps"
	"sync"
)

// DispatchStats contains counters and gauges describing dispatch activity.
// All standard keys are prefixed with "hookable:" (see stats_keys.go).
//
// DispatchStats is an observer: register it with [Observers] and every
// collection sharing that registry feeds it.
//
//	stats := hookable.NewDispatchStats()
//	obs := hookable.NewObservers().Register(stats)
//	...
//	stats.GetCounter(hookable.KeyCallsFor.For("make"))
//
// # Counters vs Gauges
//
// Counters only go up. Gauges go up and down; the in-flight gauges return to
// zero once every running call has finished.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type DispatchStats struct {
	mu       sync.RWMutex
	counters map[string]int64
	gauges   map[string]float64
}

// NewDispatchStats creates an empty DispatchStats.
func NewDispatchStats() *DispatchStats {
	return &DispatchStats{
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
	}
}

// IncrCounter increments a counter by delta. Creates the counter if
// it doesn't exist.
//
// Panics if delta is negative (counters only go up).
func (s *DispatchStats) IncrCounter(key StatKey, delta int64) {
	if delta < 0 {
		panic("hookable: IncrCounter called with negative delta")
	}
	s.mu.Lock()
	s.counters[string(key)] += delta
	s.mu.Unlock()
}

// GetCounter returns the current value of a counter, or 0 if not set.
func (s *DispatchStats) GetCounter(key StatKey) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters[string(key)]
}

// IncrGauge increments a gauge by delta (positive or negative).
func (s *DispatchStats) IncrGauge(key StatKey, delta float64) {
	s.mu.Lock()
	s.gauges[string(key)] += delta
	s.mu.Unlock()
}

// SetGauge sets a gauge to a specific value.
func (s *DispatchStats) SetGauge(key StatKey, value float64) {
	s.mu.Lock()
	s.gauges[string(key)] = value
	s.mu.Unlock()
}

// GetGauge returns the current value of a gauge, or 0.0 if not set.
func (s *DispatchStats) GetGauge(key StatKey) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gauges[string(key)]
}

// ResetGauge sets a gauge to 0.0.
func (s *DispatchStats) ResetGauge(key StatKey) {
	s.mu.Lock()
	s.gauges[string(key)] = 0
	s.mu.Unlock()
}

// Counters returns a copy of all counters.
func (s *DispatchStats) Counters() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.counters)
}

// Gauges returns a copy of all gauges.
func (s *DispatchStats) Gauges() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.gauges)
}

// Reset clears every counter and gauge.
func (s *DispatchStats) Reset() {
	s.mu.Lock()
	clear(s.counters)
	clear(s.gauges)
	s.mu.Unlock()
}

// GetCalls returns the number of calls made to hook.
func (s *DispatchStats) GetCalls(hook string) int64 {
	return s.GetCounter(KeyCallsFor.For(hook))
}

// GetTapRuns returns how many times the named callback of hook was invoked.
func (s *DispatchStats) GetTapRuns(hook, tap string) int64 {
	return s.GetCounter(KeyTapsFor.For(tapStatName(hook, tap)))
}

// GetErrors returns the number of calls of hook that returned an error.
func (s *DispatchStats) GetErrors(hook string) int64 {
	return s.GetCounter(KeyErrorsFor.For(hook))
}

// -----------------------------------------------------------------------------
// Observer
// -----------------------------------------------------------------------------

// OnCallStart implements [CallStartObserver].
func (s *DispatchStats) OnCallStart(ctx context.Context, e *CallStartEvent) context.Context {
	s.mu.Lock()
	s.counters[string(KeyCalls)]++
	s.counters[string(KeyCallsFor.For(e.Hook))]++
	s.gauges[string(KeyInFlightCalls)]++
	s.mu.Unlock()
	return ctx
}

// OnCallEnd implements [CallEndObserver].
func (s *DispatchStats) OnCallEnd(_ context.Context, e *CallEndEvent) {
	s.mu.Lock()
	s.gauges[string(KeyInFlightCalls)]--
	if e.Bailed() {
		s.counters[string(KeyBails)]++
		s.counters[string(KeyBailsFor.For(tapStatName(e.Hook, e.BailedBy)))]++
	}
	if e.Err != nil {
		s.counters[string(KeyErrors)]++
		s.counters[string(KeyErrorsFor.For(e.Hook))]++
	}
	s.mu.Unlock()
}

// OnTapStart implements [TapStartObserver].
func (s *DispatchStats) OnTapStart(ctx context.Context, e *TapStartEvent) context.Context {
	s.mu.Lock()
	s.counters[string(KeyTaps)]++
	s.counters[string(KeyTapsFor.For(tapStatName(e.Hook, e.Tap.Name)))]++
	s.gauges[string(KeyInFlightTaps)]++
	s.mu.Unlock()
	return ctx
}

// OnTapEnd implements [TapEndObserver].
func (s *DispatchStats) OnTapEnd(_ context.Context, _ *TapEndEvent) {
	s.mu.Lock()
	s.gauges[string(KeyInFlightTaps)]--
	s.mu.Unlock()
}

var (
	_ CallStartObserver = (*DispatchStats)(nil)
	_ CallEndObserver   = (*DispatchStats)(nil)
	_ TapStartObserver  = (*DispatchStats)(nil)
	_ TapEndObserver    = (*DispatchStats)(nil)
)
