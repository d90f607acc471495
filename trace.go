package hookable

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Dispatch Trace
// -----------------------------------------------------------------------------

// CallTrace stores trace data for one completed Call.
type CallTrace struct {
	Hook string   `yaml:"hook"`
	Kind CallKind `yaml:"kind"`
	Key  string   `yaml:"key,omitempty"`

	StartTime time.Time     `yaml:"start_time"`
	EndTime   time.Time     `yaml:"end_time"`
	Duration  time.Duration `yaml:"duration"`

	// Invoked is how many callbacks were started.
	Invoked int `yaml:"invoked"`

	// BailedBy names the callback that answered a bail call.
	BailedBy string `yaml:"bailed_by,omitempty"`

	// Error is the error returned by Call, empty if successful.
	Error string `yaml:"error,omitempty"`

	// Taps lists the completed callbacks in completion order.
	Taps []TapTrace `yaml:"taps,omitempty"`
}

// TapTrace stores trace data for one callback invocation.
type TapTrace struct {
	Name  string `yaml:"name"`
	Stage int    `yaml:"stage"`

	// Group is the stage group of a parallel call.
	Group int `yaml:"group"`

	StartTime time.Time     `yaml:"start_time"`
	EndTime   time.Time     `yaml:"end_time"`
	Duration  time.Duration `yaml:"duration"`

	Bailed bool   `yaml:"bailed,omitempty"`
	Error  string `yaml:"error,omitempty"`
}

// -----------------------------------------------------------------------------
// Trace Collector
// -----------------------------------------------------------------------------

// TraceCollector is an observer that records every completed Call together
// with its callbacks. Calls are kept in completion order, so a nested call
// appears before the call that triggered it.
//
// A Call whose callback panicked is recorded with the panic as its error.
type TraceCollector struct {
	mu    sync.Mutex
	calls []CallTrace
}

// NewTraceCollector creates a new TraceCollector.
func NewTraceCollector() *TraceCollector {
	return &TraceCollector{calls: make([]CallTrace, 0)}
}

type traceKey struct{}

// pendingCall collects the taps of a call that is still running. Parallel
// taps append to it concurrently.
type pendingCall struct {
	mu   sync.Mutex
	taps []TapTrace
}

// OnCallStart implements [CallStartObserver].
func (tc *TraceCollector) OnCallStart(ctx context.Context, _ *CallStartEvent) context.Context {
	return context.WithValue(ctx, traceKey{}, &pendingCall{})
}

// OnTapEnd implements [TapEndObserver].
func (tc *TraceCollector) OnTapEnd(ctx context.Context, e *TapEndEvent) {
	pc, ok := ctx.Value(traceKey{}).(*pendingCall)
	if !ok {
		return
	}
	tt := TapTrace{
		Name:      e.Tap.Name,
		Stage:     e.Tap.Stage,
		Group:     e.Group,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
		Duration:  e.Duration,
		Bailed:    e.Bailed,
	}
	if e.Err != nil {
		tt.Error = e.Err.Error()
	}
	pc.mu.Lock()
	pc.taps = append(pc.taps, tt)
	pc.mu.Unlock()
}

// OnCallEnd implements [CallEndObserver].
func (tc *TraceCollector) OnCallEnd(ctx context.Context, e *CallEndEvent) {
	ct := CallTrace{
		Hook:      e.Hook,
		Kind:      e.Kind,
		Key:       e.Key,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
		Duration:  e.Duration,
		Invoked:   e.Invoked,
		BailedBy:  e.BailedBy,
	}
	if e.Err != nil {
		ct.Error = e.Err.Error()
	}
	if pc, ok := ctx.Value(traceKey{}).(*pendingCall); ok {
		pc.mu.Lock()
		ct.Taps = append([]TapTrace(nil), pc.taps...)
		pc.mu.Unlock()
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.calls = append(tc.calls, ct)
}

// GetCalls returns all recorded call traces.
func (tc *TraceCollector) GetCalls() []CallTrace {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	result := make([]CallTrace, len(tc.calls))
	copy(result, tc.calls)
	return result
}

// GetCallsFor returns the recorded traces of one hook.
func (tc *TraceCollector) GetCallsFor(hook string) []CallTrace {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	var result []CallTrace
	for _, c := range tc.calls {
		if c.Hook == hook {
			result = append(result, c)
		}
	}
	return result
}

// Clear resets the trace collector for reuse.
func (tc *TraceCollector) Clear() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.calls = make([]CallTrace, 0)
}

// WriteYAML dumps the recorded calls as a YAML sequence.
func (tc *TraceCollector) WriteYAML(w io.Writer) error {
	data, err := yaml.Marshal(tc.GetCalls())
	if err != nil {
		return fmt.Errorf("hookable: marshal trace: %w", err)
	}
	_, err = w.Write(data)
	return err
}

var (
	_ CallStartObserver = (*TraceCollector)(nil)
	_ CallEndObserver   = (*TraceCollector)(nil)
	_ TapEndObserver    = (*TraceCollector)(nil)
)
