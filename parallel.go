package hookable

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// errTapPanicked cancels the siblings of a panicking callback. Callers never
// see it: the panic is re-raised after the group is joined.
var errTapPanicked = errors.New("hookable: tap panicked")

// AsyncParallelHook runs its callbacks in stage groups. Callbacks that share a
// stage run concurrently, each in its own goroutine; a group starts only after
// every callback of the previous group has returned.
//
//	mk := hookable.NewAsyncParallelHook(Make)
//	mk.TapFunc(fetchA)                        // stage 0
//	mk.TapFunc(fetchB)                        // stage 0, concurrent with fetchA
//	mk.Tap(hookable.ParallelAt(link, 10))     // runs after both fetches
//
//	err := mk.Call(ctx, compilation)
//
// Callbacks of one group share in concurrently and must not mutate it.
//
// # Failure
//
// The first error cancels the context passed to the rest of its group; the
// group is still joined before Call returns the error as a [*CallbackError],
// and later groups never start. A panic is recovered in its goroutine, the
// group is joined, and the panic is re-raised on the caller's goroutine with
// a [*PanicError] value.
//
// # Thread Safety
//
// Same contract as [SyncBailHook]: register first, then call.
type AsyncParallelHook[In any] struct {
	name     string
	settings settings
	taps     []tapEntry[Parallel[In]]
	count    int
}

// NewAsyncParallelHook creates an empty parallel hook for the given descriptor.
func NewAsyncParallelHook[In any](desc Hook[In, Void], opts ...Option) *AsyncParallelHook[In] {
	return &AsyncParallelHook[In]{name: desc.Name(), settings: newSettings(opts)}
}

// Name returns the hook name.
func (h *AsyncParallelHook[In]) Name() string {
	return h.name
}

// Tap registers a callback.
func (h *AsyncParallelHook[In]) Tap(p Parallel[In], opts ...TapOption) {
	info := resolveTap(p, p.Stage(), h.count, &h.settings, opts)
	h.count++
	h.taps = insertStable(h.taps, tapEntry[Parallel[In]]{cb: p, info: info})
}

// TapFunc registers a plain function.
func (h *AsyncParallelHook[In]) TapFunc(fn ParallelFunc[In], opts ...TapOption) {
	h.Tap(fn, opts...)
}

// Call runs the stage groups in ascending stage order and waits for each to
// finish before starting the next.
func (h *AsyncParallelHook[In]) Call(ctx context.Context, in In) error {
	ctx, sc := h.settings.beginCall(ctx, h.name, KindParallel, "", len(h.taps))
	invoked := 0
	defer sc.endPanicked(ctx, &invoked)

	for g, group := range stageGroups(h.taps) {
		invoked += len(group)
		if err := h.runGroup(ctx, sc, g, group, in); err != nil {
			sc.end(ctx, invoked, "", err)
			return err
		}
	}

	sc.end(ctx, invoked, "", nil)
	return nil
}

func (h *AsyncParallelHook[In]) runGroup(
	ctx context.Context,
	sc *callScope,
	g int,
	group []tapEntry[Parallel[In]],
	in In,
) error {
	eg, gctx := errgroup.WithContext(ctx)
	if h.settings.maxConcurrency > 0 {
		eg.SetLimit(h.settings.maxConcurrency)
	}

	var (
		mu       sync.Mutex
		panicked *PanicError
	)

	for _, t := range group {
		eg.Go(func() (err error) {
			tctx, ts := sc.beginTap(gctx, t.info, g)
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				pe, ok := r.(*PanicError)
				if !ok {
					pe = newPanicError(h.name, t.info.Name, r)
				}
				ts.end(tctx, false, pe)
				mu.Lock()
				if panicked == nil {
					panicked = pe
				}
				mu.Unlock()
				err = errTapPanicked
			}()

			runErr := t.cb.Run(tctx, in)
			ts.end(tctx, false, runErr)
			if runErr != nil {
				return &CallbackError{Hook: h.name, Tap: t.info.Name, Stage: t.info.Stage, Err: runErr}
			}
			return nil
		})
	}

	err := eg.Wait()
	if panicked != nil {
		panic(panicked)
	}
	return err
}

// Len returns the number of registered callbacks.
func (h *AsyncParallelHook[In]) Len() int {
	return len(h.taps)
}

// Taps describes the registered callbacks in invocation order. Callbacks of
// one stage group are listed in registration order but run concurrently.
func (h *AsyncParallelHook[In]) Taps() []TapInfo {
	return tapInfos(h.taps)
}

// Groups returns the stages of the registered groups in execution order.
func (h *AsyncParallelHook[In]) Groups() []int {
	groups := stageGroups(h.taps)
	stages := make([]int, len(groups))
	for i, group := range groups {
		stages[i] = group[0].info.Stage
	}
	return stages
}

// stageGroups splits stage-sorted entries into maximal runs of equal stage.
func stageGroups[T any](entries []tapEntry[T]) [][]tapEntry[T] {
	var groups [][]tapEntry[T]
	for i := 0; i < len(entries); {
		j := i + 1
		for j < len(entries) && entries[j].info.Stage == entries[i].info.Stage {
			j++
		}
		groups = append(groups, entries[i:j])
		i = j
	}
	return groups
}
