package compilation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rickchristie/hookable"
	"github.com/rickchristie/hookable/config"
	"github.com/rickchristie/hookable/logging"
)

// Options configures a Compiler.
type Options struct {
	// Config supplies stage overrides and the parallel concurrency bound.
	// Defaults to config.Default().
	Config *config.Config

	// Logger, when set, receives dispatch logs.
	Logger *slog.Logger

	// Observers are registered after the built-in stats, trace and logging
	// observers.
	Observers []any

	// Clock timestamps dispatch events. Defaults to the system clock.
	Clock hookable.TimeProvider
}

// Compiler owns the hook containers and the plugins applied to them.
type Compiler struct {
	Hooks   *CompilationHooks
	Parser  *ParserHooks
	Plugins *hookable.PluginRegistry
	Stats   *hookable.DispatchStats
	Traces  *hookable.TraceCollector
}

// New creates a Compiler and applies the built-in steps followed by plugins.
func New(opts Options, plugins ...any) *Compiler {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	c := &Compiler{
		Plugins: hookable.NewPluginRegistry(),
		Stats:   hookable.NewDispatchStats(),
		Traces:  hookable.NewTraceCollector(),
	}

	obs := hookable.NewObservers().Register(c.Stats).Register(c.Traces)
	if opts.Logger != nil {
		obs.Register(logging.NewObserver(opts.Logger))
	}
	for _, o := range opts.Observers {
		obs.Register(o)
	}

	hookOpts := func(name string) []hookable.Option {
		o := append(cfg.HookOptions(name), hookable.WithObservers(obs))
		if opts.Clock != nil {
			o = append(o, hookable.WithTimeProvider(opts.Clock))
		}
		return o
	}

	c.Hooks = &CompilationHooks{
		Make:          hookable.NewAsyncParallelHook(Make, hookOpts(Make.Name())...),
		ProcessAssets: hookable.NewAsyncSeriesHook(ProcessAssets, hookOpts(ProcessAssets.Name())...),
	}
	c.Parser = &ParserHooks{
		Evaluate: hookable.NewSyncBailHookMap(Evaluate, hookOpts(Evaluate.Name())...),
	}

	c.Plugins.
		Register(parsePlugin{}).
		Register(evaluatePlugin{parser: c.Parser}).
		Register(emitPlugin{})
	for _, p := range plugins {
		c.Plugins.Register(p)
	}

	hookable.ApplyTo(c.Plugins, c.Hooks)
	hookable.ApplyTo(c.Plugins, c.Parser)
	return c
}

// Compile runs make and then processAssets over sources.
func (c *Compiler) Compile(ctx context.Context, sources map[string]string) (*Compilation, error) {
	comp := NewCompilation(sources)
	if err := c.Hooks.Make.Call(ctx, comp); err != nil {
		return comp, fmt.Errorf("make: %w", err)
	}
	if err := c.Hooks.ProcessAssets.Call(ctx, comp); err != nil {
		return comp, fmt.Errorf("process assets: %w", err)
	}
	return comp, nil
}

// Eval parses and evaluates a single expression.
func (c *Compiler) Eval(ctx context.Context, src string) (float64, error) {
	x, err := Parse(src)
	if err != nil {
		return 0, err
	}
	return c.Parser.Eval(ctx, x)
}
