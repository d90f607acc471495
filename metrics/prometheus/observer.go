package prometheus

import (
	"context"

	"github.com/rickchristie/hookable"
)

// Status constants for metric labels.
const (
	statusSuccess    = "success"
	statusError      = "error"
	statusBailed     = "bailed"
	statusUnanswered = "unanswered"
	statusPassed     = "passed"
)

// Observer records dispatch events as Prometheus metrics. It holds no state;
// every Observer feeds the same package-level collectors.
type Observer struct{}

// NewObserver creates a new Observer.
func NewObserver() *Observer {
	return &Observer{}
}

// OnCallStart implements [hookable.CallStartObserver].
func (o *Observer) OnCallStart(ctx context.Context, e *hookable.CallStartEvent) context.Context {
	callsActive.WithLabelValues(e.Hook).Inc()
	return ctx
}

// OnCallEnd implements [hookable.CallEndObserver].
func (o *Observer) OnCallEnd(_ context.Context, e *hookable.CallEndEvent) {
	callsActive.WithLabelValues(e.Hook).Dec()
	callDuration.WithLabelValues(e.Hook, string(e.Kind)).Observe(e.Duration.Seconds())
	callsTotal.WithLabelValues(e.Hook, string(e.Kind), callStatus(e)).Inc()
}

// OnTapEnd implements [hookable.TapEndObserver].
func (o *Observer) OnTapEnd(_ context.Context, e *hookable.TapEndEvent) {
	tapDuration.WithLabelValues(e.Hook, e.Tap.Name).Observe(e.Duration.Seconds())
	tapsTotal.WithLabelValues(e.Hook, e.Tap.Name, tapStatus(e)).Inc()
}

func callStatus(e *hookable.CallEndEvent) string {
	switch {
	case e.Err != nil:
		return statusError
	case e.Kind != hookable.KindBail:
		return statusSuccess
	case e.Bailed():
		return statusBailed
	default:
		return statusUnanswered
	}
}

func tapStatus(e *hookable.TapEndEvent) string {
	switch {
	case e.Err != nil:
		return statusError
	case e.Kind != hookable.KindBail:
		return statusSuccess
	case e.Bailed:
		return statusBailed
	default:
		return statusPassed
	}
}

var (
	_ hookable.CallStartObserver = (*Observer)(nil)
	_ hookable.CallEndObserver   = (*Observer)(nil)
	_ hookable.TapEndObserver    = (*Observer)(nil)
)
