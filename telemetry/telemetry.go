// Package telemetry turns hook dispatch into OpenTelemetry spans.
//
// Every Call becomes a span named "hookable.call <hook>" and every callback a
// child span named "hookable.tap <tap>". Spans started by a callback, such
// as nested hook calls, are parented under the callback's span.
//
//	obs := hookable.NewObservers().Register(telemetry.NewObserver(telemetry.Tracer(tp)))
package telemetry

import (
	"context"

	"github.com/rickchristie/hookable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// InstrumentationName is the OTel instrumentation scope name.
	InstrumentationName = "github.com/rickchristie/hookable"

	// InstrumentationVersion is the OTel instrumentation scope version.
	InstrumentationVersion = "0.1.0"
)

// Attribute keys set on dispatch spans.
const (
	AttrHook    = attribute.Key("hookable.hook")
	AttrKind    = attribute.Key("hookable.kind")
	AttrKey     = attribute.Key("hookable.key")
	AttrTaps    = attribute.Key("hookable.taps")
	AttrInvoked = attribute.Key("hookable.invoked")
	AttrBailed  = attribute.Key("hookable.bailed_by")
	AttrTap     = attribute.Key("hookable.tap")
	AttrStage   = attribute.Key("hookable.stage")
	AttrGroup   = attribute.Key("hookable.group")
)

// Tracer returns a named tracer from the given TracerProvider.
// If tp is nil the global provider is used.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(InstrumentationName, trace.WithInstrumentationVersion(InstrumentationVersion))
}

type callSpanKey struct{}

type tapSpanKey struct{}

// Observer creates spans for calls and callbacks. It is safe for concurrent
// use.
type Observer struct {
	tracer trace.Tracer
}

// NewObserver creates an Observer. A nil tracer uses the global provider.
func NewObserver(tracer trace.Tracer) *Observer {
	if tracer == nil {
		tracer = Tracer(nil)
	}
	return &Observer{tracer: tracer}
}

// OnCallStart implements [hookable.CallStartObserver].
func (o *Observer) OnCallStart(ctx context.Context, e *hookable.CallStartEvent) context.Context {
	attrs := []attribute.KeyValue{
		AttrHook.String(e.Hook),
		AttrKind.String(string(e.Kind)),
		AttrTaps.Int(e.Taps),
	}
	if e.Key != "" {
		attrs = append(attrs, AttrKey.String(e.Key))
	}
	ctx, span := o.tracer.Start(ctx, "hookable.call "+e.Hook,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(e.StartTime),
		trace.WithAttributes(attrs...),
	)
	return context.WithValue(ctx, callSpanKey{}, span)
}

// OnCallEnd implements [hookable.CallEndObserver].
func (o *Observer) OnCallEnd(ctx context.Context, e *hookable.CallEndEvent) {
	span, ok := ctx.Value(callSpanKey{}).(trace.Span)
	if !ok {
		return
	}
	span.SetAttributes(AttrInvoked.Int(e.Invoked))
	if e.Bailed() {
		span.SetAttributes(AttrBailed.String(e.BailedBy))
	}
	if e.Err != nil {
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
	}
	span.End(trace.WithTimestamp(e.EndTime))
}

// OnTapStart implements [hookable.TapStartObserver].
func (o *Observer) OnTapStart(ctx context.Context, e *hookable.TapStartEvent) context.Context {
	attrs := []attribute.KeyValue{
		AttrHook.String(e.Hook),
		AttrTap.String(e.Tap.Name),
		AttrStage.Int(e.Tap.Stage),
	}
	if e.Kind == hookable.KindParallel {
		attrs = append(attrs, AttrGroup.Int(e.Group))
	}
	ctx, span := o.tracer.Start(ctx, "hookable.tap "+e.Tap.Name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(e.StartTime),
		trace.WithAttributes(attrs...),
	)
	return context.WithValue(ctx, tapSpanKey{}, span)
}

// OnTapEnd implements [hookable.TapEndObserver].
func (o *Observer) OnTapEnd(ctx context.Context, e *hookable.TapEndEvent) {
	span, ok := ctx.Value(tapSpanKey{}).(trace.Span)
	if !ok {
		return
	}
	if e.Bailed {
		span.AddEvent("bailed")
	}
	if e.Err != nil {
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
	}
	span.End(trace.WithTimestamp(e.EndTime))
}

var (
	_ hookable.CallStartObserver = (*Observer)(nil)
	_ hookable.CallEndObserver   = (*Observer)(nil)
	_ hookable.TapStartObserver  = (*Observer)(nil)
	_ hookable.TapEndObserver    = (*Observer)(nil)
)
