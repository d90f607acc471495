package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/rickchristie/hookable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func newTestObserver(t *testing.T) (hookable.Option, *tracetest.InMemoryExporter) {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	obs := hookable.NewObservers().Register(NewObserver(Tracer(tp)))
	return hookable.WithObservers(obs), exp
}

func findSpan(t *testing.T, spans tracetest.SpanStubs, name string) tracetest.SpanStub {
	t.Helper()
	for _, s := range spans {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("span %q not found", name)
	return tracetest.SpanStub{}
}

func attr(span tracetest.SpanStub, key string) (string, bool) {
	for _, kv := range span.Attributes {
		if string(kv.Key) == key {
			return kv.Value.Emit(), true
		}
	}
	return "", false
}

func TestObserver_SeriesSpans(t *testing.T) {
	opt, exp := newTestObserver(t)
	h := hookable.NewAsyncSeriesHook(hookable.Define[int, hookable.Void]("processAssets"), opt)
	h.TapFunc(func(ctx context.Context, in int) error { return nil }, hookable.WithTapName("Minify"))
	h.Tap(hookable.SeriesAt(func(ctx context.Context, in int) error {
		return errors.New("disk full")
	}, 5), hookable.WithTapName("Emit"))

	require.Error(t, h.Call(context.Background(), 0))

	spans := exp.GetSpans()
	require.Len(t, spans, 3)
	call := findSpan(t, spans, "hookable.call processAssets")
	minify := findSpan(t, spans, "hookable.tap Minify")
	emit := findSpan(t, spans, "hookable.tap Emit")

	assert.Equal(t, call.SpanContext.SpanID(), minify.Parent.SpanID())
	assert.Equal(t, call.SpanContext.SpanID(), emit.Parent.SpanID())
	assert.Equal(t, codes.Error, emit.Status.Code)
	assert.Equal(t, codes.Error, call.Status.Code)
	assert.Equal(t, codes.Unset, minify.Status.Code)

	tests := []struct {
		span     tracetest.SpanStub
		key      string
		expected string
	}{
		{span: call, key: "hookable.kind", expected: "series"},
		{span: call, key: "hookable.invoked", expected: "2"},
		{span: emit, key: "hookable.stage", expected: "5"},
		{span: minify, key: "hookable.tap", expected: "Minify"},
	}
	for _, tt := range tests {
		got, ok := attr(tt.span, tt.key)
		assert.True(t, ok, tt.key)
		assert.Equal(t, tt.expected, got, tt.key)
	}
}

func TestObserver_PanickingTapEndsSpans(t *testing.T) {
	opt, exp := newTestObserver(t)
	h := hookable.NewAsyncParallelHook(hookable.Define[int, hookable.Void]("make"), opt)
	h.TapFunc(func(ctx context.Context, in int) error { panic("boom") }, hookable.WithTapName("Boom"))

	assert.Panics(t, func() { _ = h.Call(context.Background(), 0) })

	spans := exp.GetSpans()
	require.Len(t, spans, 2)
	call := findSpan(t, spans, "hookable.call make")
	tap := findSpan(t, spans, "hookable.tap Boom")
	assert.Equal(t, codes.Error, call.Status.Code)
	assert.Equal(t, codes.Error, tap.Status.Code)
	assert.Equal(t, call.SpanContext.SpanID(), tap.Parent.SpanID())
}

func TestObserver_NestedCallIsChildOfTap(t *testing.T) {
	opt, exp := newTestObserver(t)
	inner := hookable.NewSyncBailHook(hookable.Define[int, int]("evaluate"), opt)
	inner.TapFunc(func(ctx context.Context, in int) (int, bool) { return in, true }, hookable.WithTapName("Eval"))

	outer := hookable.NewAsyncParallelHook(hookable.Define[int, hookable.Void]("make"), opt)
	outer.TapFunc(func(ctx context.Context, in int) error {
		inner.Call(ctx, in)
		return nil
	}, hookable.WithTapName("Build"))

	require.NoError(t, outer.Call(context.Background(), 7))

	spans := exp.GetSpans()
	require.Len(t, spans, 4)
	build := findSpan(t, spans, "hookable.tap Build")
	evalCall := findSpan(t, spans, "hookable.call evaluate")
	evalTap := findSpan(t, spans, "hookable.tap Eval")

	assert.Equal(t, build.SpanContext.SpanID(), evalCall.Parent.SpanID())
	assert.Equal(t, evalCall.SpanContext.SpanID(), evalTap.Parent.SpanID())
	group, ok := attr(build, "hookable.group")
	assert.True(t, ok)
	assert.Equal(t, "0", group)
	bailedBy, _ := attr(evalCall, "hookable.bailed_by")
	assert.Equal(t, "Eval", bailedBy)
	require.Len(t, evalTap.Events, 1)
	assert.Equal(t, "bailed", evalTap.Events[0].Name)
}

func TestObserver_NoopTracer(t *testing.T) {
	obs := hookable.NewObservers().Register(NewObserver(noop.NewTracerProvider().Tracer("test")))
	h := hookable.NewAsyncSeriesHook(hookable.Define[int, hookable.Void]("series"), hookable.WithObservers(obs))
	ran := false
	h.TapFunc(func(ctx context.Context, in int) error {
		ran = true
		return nil
	})

	require.NoError(t, h.Call(context.Background(), 0))
	assert.True(t, ran)
}

func TestTracer_NilProvider(t *testing.T) {
	assert.NotNil(t, Tracer(nil))
	assert.NotNil(t, NewObserver(nil))
}
