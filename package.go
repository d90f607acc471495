// Package hookable provides typed extension points ("hooks") for plugin-based
// hosts in Go.
//
// A host declares hooks, plugins attach callbacks ("taps") to them, and the
// host later calls each hook under one of three dispatch disciplines:
//
//   - [SyncBailHook]: callbacks are asked in order until one answers.
//     [SyncBailHookMap] keeps one independent bail hook per string key.
//   - [AsyncSeriesHook]: callbacks run one after another, each with exclusive
//     access to the input.
//   - [AsyncParallelHook]: callbacks sharing a stage run concurrently; stage
//     groups run one after another with a barrier in between.
//
// # Quick Start
//
//	// 1. Describe the hooks
//	var (
//	    Make          = hookable.Define[*Compilation, hookable.Void]("make")
//	    ProcessAssets = hookable.Define[*Compilation, hookable.Void]("processAssets")
//	)
//
//	// 2. Build a container the plugins can see
//	type CompilationHooks struct {
//	    Make          *hookable.AsyncParallelHook[*Compilation]
//	    ProcessAssets *hookable.AsyncSeriesHook[*Compilation]
//	}
//
//	hooks := &CompilationHooks{
//	    Make:          hookable.NewAsyncParallelHook(Make),
//	    ProcessAssets: hookable.NewAsyncSeriesHook(ProcessAssets),
//	}
//
//	// 3. Let plugins tap
//	hookable.Apply[*CompilationHooks](hooks, APlugin{}, BPlugin{})
//
//	// 4. Call
//	if err := hooks.Make.Call(ctx, compilation); err != nil {
//	    return err
//	}
//	if err := hooks.ProcessAssets.Call(ctx, compilation); err != nil {
//	    return err
//	}
//
// # Stages
//
// Every callback has an integer stage, [DefaultStage] unless stated. Callbacks
// run in ascending stage order; callbacks with equal stages run in
// registration order. A stage may be set by the callback itself
// ([BailAt], [SeriesAt], [ParallelAt] or a custom Stage method), per
// registration with [WithTapStage], or by name from configuration with
// [WithStageOverrides]. The last one wins.
//
// # Observing Dispatch
//
// [Observers] fan dispatch events out to anything that implements
// [CallStartObserver], [CallEndObserver], [TapStartObserver] or
// [TapEndObserver]. The package ships [DispatchStats] and [TraceCollector];
// the logging, metrics/prometheus and telemetry packages add slog, Prometheus
// and OpenTelemetry observers.
//
// # Thread Safety
//
// Registration is not thread-safe and must finish before the first Call.
// After that, Call never mutates a collection, so any number of goroutines
// may call the same hook.
package hookable
