package hookable

import (
	"context"
	"fmt"
	"sort"
)

// DefaultStage is the stage of any callback that does not declare one.
const DefaultStage = 0

// -----------------------------------------------------------------------------
// Callback Interfaces
// -----------------------------------------------------------------------------

// Bail is a callback for a [SyncBailHook]. Run answers with (out, true) to stop
// the call and make out its result, or with (zero, false) to pass.
//
// Run may mutate in: bail callbacks run one at a time.
type Bail[In, Out any] interface {
	Run(ctx context.Context, in In) (Out, bool)
	Stage() int
}

// Series is a callback for an [AsyncSeriesHook]. Run may block; the next
// callback does not start until it returns. Run has exclusive access to in.
type Series[In any] interface {
	Run(ctx context.Context, in In) error
	Stage() int
}

// Parallel is a callback for an [AsyncParallelHook]. Callbacks sharing a stage
// run concurrently and must treat in as read-only unless in synchronises its
// own state.
type Parallel[In any] interface {
	Run(ctx context.Context, in In) error
	Stage() int
}

// Named is implemented by callbacks that want a stable name in stats, logs,
// traces and stage overrides. See also [WithTapName].
type Named interface {
	Name() string
}

// -----------------------------------------------------------------------------
// Func Adapters
// -----------------------------------------------------------------------------

// BailFunc adapts a plain function to [Bail] at [DefaultStage].
type BailFunc[In, Out any] func(ctx context.Context, in In) (Out, bool)

// Run calls f.
func (f BailFunc[In, Out]) Run(ctx context.Context, in In) (Out, bool) { return f(ctx, in) }

// Stage returns [DefaultStage].
func (f BailFunc[In, Out]) Stage() int { return DefaultStage }

// SeriesFunc adapts a plain function to [Series] at [DefaultStage].
type SeriesFunc[In any] func(ctx context.Context, in In) error

// Run calls f.
func (f SeriesFunc[In]) Run(ctx context.Context, in In) error { return f(ctx, in) }

// Stage returns [DefaultStage].
func (f SeriesFunc[In]) Stage() int { return DefaultStage }

// ParallelFunc adapts a plain function to [Parallel] at [DefaultStage].
type ParallelFunc[In any] func(ctx context.Context, in In) error

// Run calls f.
func (f ParallelFunc[In]) Run(ctx context.Context, in In) error { return f(ctx, in) }

// Stage returns [DefaultStage].
func (f ParallelFunc[In]) Stage() int { return DefaultStage }

// -----------------------------------------------------------------------------
// Staged Adapters
// -----------------------------------------------------------------------------

type stagedBail[In, Out any] struct {
	fn    BailFunc[In, Out]
	stage int
}

func (s stagedBail[In, Out]) Run(ctx context.Context, in In) (Out, bool) { return s.fn(ctx, in) }
func (s stagedBail[In, Out]) Stage() int                                 { return s.stage }

// BailAt pairs fn with an explicit stage.
func BailAt[In, Out any](fn BailFunc[In, Out], stage int) Bail[In, Out] {
	return stagedBail[In, Out]{fn: fn, stage: stage}
}

type stagedSeries[In any] struct {
	fn    SeriesFunc[In]
	stage int
}

func (s stagedSeries[In]) Run(ctx context.Context, in In) error { return s.fn(ctx, in) }
func (s stagedSeries[In]) Stage() int                           { return s.stage }

// SeriesAt pairs fn with an explicit stage.
func SeriesAt[In any](fn SeriesFunc[In], stage int) Series[In] {
	return stagedSeries[In]{fn: fn, stage: stage}
}

type stagedParallel[In any] struct {
	fn    ParallelFunc[In]
	stage int
}

func (s stagedParallel[In]) Run(ctx context.Context, in In) error { return s.fn(ctx, in) }
func (s stagedParallel[In]) Stage() int                           { return s.stage }

// ParallelAt pairs fn with an explicit stage.
func ParallelAt[In any](fn ParallelFunc[In], stage int) Parallel[In] {
	return stagedParallel[In]{fn: fn, stage: stage}
}

// -----------------------------------------------------------------------------
// Tap Options
// -----------------------------------------------------------------------------

// TapOption configures a single registration.
type TapOption func(*tapConfig)

type tapConfig struct {
	name     string
	stage    int
	hasStage bool
}

// WithTapName names the registered callback. It takes precedence over
// [Named].
func WithTapName(name string) TapOption {
	return func(c *tapConfig) {
		c.name = name
	}
}

// WithTapStage overrides the stage reported by the callback itself.
func WithTapStage(stage int) TapOption {
	return func(c *tapConfig) {
		c.stage = stage
		c.hasStage = true
	}
}

// TapInfo describes one registered callback.
type TapInfo struct {
	// Name is the tap name, or "tap#<index>" when none was given.
	Name string

	// Stage is the resolved stage used for ordering.
	Stage int

	// Index is the registration index within the collection (0-based).
	Index int
}

// tapEntry is a registered callback owned by exactly one collection.
type tapEntry[T any] struct {
	cb   T
	info TapInfo
}

// resolveTap computes the name and stage of a new registration.
//
// Stage precedence: configured override by name, then WithTapStage, then the
// callback's own Stage().
func resolveTap(cb any, ownStage, index int, s *settings, opts []TapOption) TapInfo {
	cfg := tapConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	name := cfg.name
	if name == "" {
		if n, ok := cb.(Named); ok {
			name = n.Name()
		}
	}
	if name == "" {
		name = fmt.Sprintf("tap#%d", index)
	}

	stage := ownStage
	if cfg.hasStage {
		stage = cfg.stage
	}
	if override, ok := s.stageOverrides[name]; ok {
		stage = override
	}

	return TapInfo{Name: name, Stage: stage, Index: index}
}

// insertStable inserts e after every entry whose stage is <= e's stage. The
// slice therefore stays sorted by stage with ties in registration order,
// which is exactly what a stable sort of the registrations would produce.
func insertStable[T any](entries []tapEntry[T], e tapEntry[T]) []tapEntry[T] {
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].info.Stage > e.info.Stage
	})
	entries = append(entries, tapEntry[T]{})
	copy(entries[i+1:], entries[i:])
	entries[i] = e
	return entries
}

// tapInfos returns the infos of entries in invocation order.
func tapInfos[T any](entries []tapEntry[T]) []TapInfo {
	infos := make([]TapInfo, len(entries))
	for i, e := range entries {
		infos[i] = e.info
	}
	return infos
}
