package hookable

import "context"

// AsyncSeriesHook runs its callbacks one at a time in stage order. Each
// callback returns before the next starts, so later callbacks observe every
// mutation made by earlier ones.
//
//	processAssets := hookable.NewAsyncSeriesHook(ProcessAssets)
//	processAssets.Tap(hookable.SeriesAt(minify, 100), hookable.WithTapName("Minify"))
//	processAssets.TapFunc(hash, hookable.WithTapName("Hash"))
//
//	if err := processAssets.Call(ctx, compilation); err != nil {
//	    return err
//	}
//
// There is no way for a callback to stop the series early other than
// returning an error, which aborts the call and is returned to the caller.
//
// # Thread Safety
//
// Same contract as [SyncBailHook]: register first, then call.
type AsyncSeriesHook[In any] struct {
	name     string
	settings settings
	taps     []tapEntry[Series[In]]
	count    int
}

// NewAsyncSeriesHook creates an empty series hook for the given descriptor.
func NewAsyncSeriesHook[In any](desc Hook[In, Void], opts ...Option) *AsyncSeriesHook[In] {
	return &AsyncSeriesHook[In]{name: desc.Name(), settings: newSettings(opts)}
}

// Name returns the hook name.
func (h *AsyncSeriesHook[In]) Name() string {
	return h.name
}

// Tap registers a callback.
func (h *AsyncSeriesHook[In]) Tap(s Series[In], opts ...TapOption) {
	info := resolveTap(s, s.Stage(), h.count, &h.settings, opts)
	h.count++
	h.taps = insertStable(h.taps, tapEntry[Series[In]]{cb: s, info: info})
}

// TapFunc registers a plain function.
func (h *AsyncSeriesHook[In]) TapFunc(fn SeriesFunc[In], opts ...TapOption) {
	h.Tap(fn, opts...)
}

// Call runs every callback in stage order, ties in registration order. The
// first error stops the series and is returned as a [*CallbackError].
func (h *AsyncSeriesHook[In]) Call(ctx context.Context, in In) error {
	ctx, sc := h.settings.beginCall(ctx, h.name, KindSeries, "", len(h.taps))
	invoked := 0
	defer sc.endPanicked(ctx, &invoked)

	for _, t := range h.taps {
		invoked++
		if err := h.runTap(ctx, sc, t, in); err != nil {
			cbErr := &CallbackError{Hook: h.name, Tap: t.info.Name, Stage: t.info.Stage, Err: err}
			sc.end(ctx, invoked, "", cbErr)
			return cbErr
		}
	}

	sc.end(ctx, invoked, "", nil)
	return nil
}

func (h *AsyncSeriesHook[In]) runTap(ctx context.Context, sc *callScope, t tapEntry[Series[In]], in In) error {
	tctx, ts := sc.beginTap(ctx, t.info, 0)
	defer ts.endPanicked(tctx)
	err := t.cb.Run(tctx, in)
	ts.end(tctx, false, err)
	return err
}

// Len returns the number of registered callbacks.
func (h *AsyncSeriesHook[In]) Len() int {
	return len(h.taps)
}

// Taps describes the registered callbacks in invocation order.
func (h *AsyncSeriesHook[In]) Taps() []TapInfo {
	return tapInfos(h.taps)
}
