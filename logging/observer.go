package logging

import (
	"context"
	"log/slog"

	"github.com/rickchristie/hookable"
)

// Observer logs dispatch activity. Call boundaries and successful callbacks
// are logged at debug, failed callbacks and calls at error.
type Observer struct {
	logger *slog.Logger
}

// NewObserver creates an Observer. A nil logger uses slog.Default().
func NewObserver(logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{logger: logger}
}

func callAttrs(hook string, kind hookable.CallKind, key string) []any {
	attrs := []any{"hook", hook, "kind", string(kind)}
	if key != "" {
		attrs = append(attrs, "key", key)
	}
	return attrs
}

// OnCallStart implements [hookable.CallStartObserver].
func (o *Observer) OnCallStart(ctx context.Context, e *hookable.CallStartEvent) context.Context {
	o.logger.DebugContext(ctx, "hook call started",
		append(callAttrs(e.Hook, e.Kind, e.Key), "taps", e.Taps)...)
	return ctx
}

// OnCallEnd implements [hookable.CallEndObserver].
func (o *Observer) OnCallEnd(ctx context.Context, e *hookable.CallEndEvent) {
	attrs := append(callAttrs(e.Hook, e.Kind, e.Key),
		"invoked", e.Invoked,
		"duration", e.Duration,
	)
	if e.Bailed() {
		attrs = append(attrs, "bailed_by", e.BailedBy)
	}
	if e.Err != nil {
		o.logger.ErrorContext(ctx, "hook call failed", append(attrs, "error", e.Err)...)
		return
	}
	o.logger.DebugContext(ctx, "hook call finished", attrs...)
}

// OnTapEnd implements [hookable.TapEndObserver].
func (o *Observer) OnTapEnd(ctx context.Context, e *hookable.TapEndEvent) {
	attrs := append(callAttrs(e.Hook, e.Kind, e.Key),
		"tap", e.Tap.Name,
		"stage", e.Tap.Stage,
		"duration", e.Duration,
	)
	if e.Kind == hookable.KindParallel {
		attrs = append(attrs, "group", e.Group)
	}
	if e.Err != nil {
		o.logger.ErrorContext(ctx, "tap failed", append(attrs, "error", e.Err)...)
		return
	}
	if e.Bailed {
		attrs = append(attrs, "bailed", true)
	}
	o.logger.DebugContext(ctx, "tap finished", attrs...)
}

var (
	_ hookable.CallStartObserver = (*Observer)(nil)
	_ hookable.CallEndObserver   = (*Observer)(nil)
	_ hookable.TapEndObserver    = (*Observer)(nil)
)
