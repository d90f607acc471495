package hookable

import "context"

// SyncBailHook asks its callbacks, in stage order, until one answers.
//
// Use it for yes/no and first-match questions:
//
//	canRename := hookable.NewSyncBailHook(CanRename)
//	canRename.TapFunc(func(ctx context.Context, id *Identifier) (bool, bool) {
//	    if id.Name == "require" {
//	        return false, true // answer: no
//	    }
//	    return false, false // pass
//	}, hookable.WithTapName("RequirePlugin"))
//
//	allowed, answered := canRename.Call(ctx, ident)
//
// The zero value is an empty hook with no name and no observers.
//
// # Thread Safety
//
// Tap is NOT safe for concurrent use. Register every callback before the
// first Call; Call itself does not mutate the hook and may run concurrently.
type SyncBailHook[In, Out any] struct {
	name     string
	settings settings
	taps     []tapEntry[Bail[In, Out]]
	count    int
}

// NewSyncBailHook creates an empty bail hook for the given descriptor.
func NewSyncBailHook[In, Out any](desc Hook[In, Out], opts ...Option) *SyncBailHook[In, Out] {
	return newSyncBailHook[In, Out](desc.Name(), newSettings(opts))
}

func newSyncBailHook[In, Out any](name string, s settings) *SyncBailHook[In, Out] {
	return &SyncBailHook[In, Out]{name: name, settings: s}
}

// Name returns the hook name.
func (h *SyncBailHook[In, Out]) Name() string {
	return h.name
}

// Tap registers a callback.
func (h *SyncBailHook[In, Out]) Tap(b Bail[In, Out], opts ...TapOption) {
	info := resolveTap(b, b.Stage(), h.count, &h.settings, opts)
	h.count++
	h.taps = insertStable(h.taps, tapEntry[Bail[In, Out]]{cb: b, info: info})
}

// TapFunc registers a plain function. Use [WithTapStage] or [BailAt] to give
// it a stage.
func (h *SyncBailHook[In, Out]) TapFunc(fn BailFunc[In, Out], opts ...TapOption) {
	h.Tap(fn, opts...)
}

// Call invokes the callbacks in stage order, ties in registration order, and
// returns the first answer. Callbacks after the answering one are not
// invoked. If no callback answers, Call returns the zero Out and false.
func (h *SyncBailHook[In, Out]) Call(ctx context.Context, in In) (Out, bool) {
	return h.call(ctx, "", in)
}

func (h *SyncBailHook[In, Out]) call(ctx context.Context, key string, in In) (Out, bool) {
	ctx, sc := h.settings.beginCall(ctx, h.name, KindBail, key, len(h.taps))
	invoked := 0
	defer sc.endPanicked(ctx, &invoked)

	for _, t := range h.taps {
		invoked++
		if out, ok := h.runTap(ctx, sc, t, in); ok {
			sc.end(ctx, invoked, t.info.Name, nil)
			return out, true
		}
	}

	sc.end(ctx, invoked, "", nil)
	var zero Out
	return zero, false
}

func (h *SyncBailHook[In, Out]) runTap(ctx context.Context, sc *callScope, t tapEntry[Bail[In, Out]], in In) (Out, bool) {
	tctx, ts := sc.beginTap(ctx, t.info, 0)
	defer ts.endPanicked(tctx)
	out, ok := t.cb.Run(tctx, in)
	ts.end(tctx, ok, nil)
	return out, ok
}

// Len returns the number of registered callbacks.
func (h *SyncBailHook[In, Out]) Len() int {
	return len(h.taps)
}

// Taps describes the registered callbacks in invocation order.
func (h *SyncBailHook[In, Out]) Taps() []TapInfo {
	return tapInfos(h.taps)
}
