package compilation

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/rickchristie/hookable"
)

// logTap logs "<plugin>: <hook> <stage>" when run. It serves as both a
// parallel and a series callback.
type logTap struct {
	plugin string
	hook   string
	stage  int
}

func (t logTap) Name() string { return t.plugin }
func (t logTap) Stage() int   { return t.stage }

func (t logTap) Run(ctx context.Context, c *Compilation) error {
	c.Logf("%s: %s %d", t.plugin, t.hook, t.stage)
	return nil
}

// APlugin logs from make and processAssets at the default stage.
type APlugin struct{}

func (APlugin) Apply(h *CompilationHooks) {
	h.Make.Tap(logTap{plugin: "APlugin", hook: "make"})
	h.ProcessAssets.Tap(logTap{plugin: "APlugin", hook: "processAssets"})
}

// BPlugin logs from make at the default stage and from processAssets at
// stage -100, ahead of every default-stage callback.
type BPlugin struct{}

func (BPlugin) Apply(h *CompilationHooks) {
	h.Make.Tap(logTap{plugin: "BPlugin", hook: "make"})
	h.ProcessAssets.Tap(logTap{plugin: "BPlugin", hook: "processAssets", stage: -100})
}

// -----------------------------------------------------------------------------
// Built-in build steps
// -----------------------------------------------------------------------------

// Stages of the built-in steps.
const (
	StageParse    = 0
	StageEvaluate = 10
	StageEmit     = -50
)

type parsePlugin struct{}

func (parsePlugin) Apply(h *CompilationHooks) {
	h.Make.Tap(hookable.ParallelAt(func(ctx context.Context, c *Compilation) error {
		for _, name := range slices.Sorted(maps.Keys(c.Sources)) {
			src := c.Sources[name]
			x, err := Parse(src)
			if err != nil {
				return fmt.Errorf("module %q: %w", name, err)
			}
			// AddModule locks c; callbacks sharing this stage may write too.
			c.AddModule(&Module{Name: name, Source: src, Expr: x})
		}
		return nil
	}, StageParse), hookable.WithTapName("Parse"))
}

type evaluatePlugin struct {
	parser *ParserHooks
}

func (p evaluatePlugin) Apply(h *CompilationHooks) {
	h.Make.Tap(hookable.ParallelAt(func(ctx context.Context, c *Compilation) error {
		for _, m := range c.Modules() {
			v, err := p.parser.Eval(ctx, m.Expr)
			if err != nil {
				return fmt.Errorf("module %q: %w", m.Name, err)
			}
			// Stores a new Module; the one returned by Modules is left untouched.
			c.AddModule(&Module{Name: m.Name, Source: m.Source, Expr: m.Expr, Value: v})
		}
		return nil
	}, StageEvaluate), hookable.WithTapName("Evaluate"))
}

type emitPlugin struct{}

func (emitPlugin) Apply(h *CompilationHooks) {
	h.ProcessAssets.Tap(hookable.SeriesAt(func(ctx context.Context, c *Compilation) error {
		for _, m := range c.Modules() {
			c.EmitAsset(m.Name+".txt", fmt.Sprintf("%s = %g\n", m.Source, m.Value))
		}
		return nil
	}, StageEmit), hookable.WithTapName("Emit"))
}

// -----------------------------------------------------------------------------
// Evaluators
// -----------------------------------------------------------------------------

// ArithmeticPlugin evaluates numbers, negation and the four basic operators.
type ArithmeticPlugin struct{}

func (ArithmeticPlugin) Apply(h *ParserHooks) {
	h.Evaluate.TapFunc(KindNumber, func(ctx context.Context, r *EvalRequest) (float64, bool) {
		n, ok := r.Expr.(*Number)
		if !ok {
			return 0, false
		}
		return n.Value, true
	}, hookable.WithTapName("Arithmetic"))

	h.Evaluate.TapFunc(KindUnary, func(ctx context.Context, r *EvalRequest) (float64, bool) {
		u, ok := r.Expr.(*Unary)
		if !ok || u.Op != '-' {
			return 0, false
		}
		x, ok := r.Sub(ctx, u.X)
		return -x, ok
	}, hookable.WithTapName("Arithmetic"))

	h.Evaluate.TapFunc(KindBinary, func(ctx context.Context, r *EvalRequest) (float64, bool) {
		b, ok := r.Expr.(*Binary)
		if !ok {
			return 0, false
		}
		left, ok := r.Sub(ctx, b.Left)
		if !ok {
			return 0, false
		}
		right, ok := r.Sub(ctx, b.Right)
		if !ok {
			return 0, false
		}
		switch b.Op {
		case '+':
			return left + right, true
		case '-':
			return left - right, true
		case '*':
			return left * right, true
		case '/':
			return left / right, true
		}
		return 0, false
	}, hookable.WithTapName("Arithmetic"))
}

// DivisionGuardPlugin answers NaN for division by zero before the
// arithmetic evaluator would produce an infinity.
type DivisionGuardPlugin struct{}

func (DivisionGuardPlugin) Apply(h *ParserHooks) {
	h.Evaluate.Tap(KindBinary, hookable.BailAt(func(ctx context.Context, r *EvalRequest) (float64, bool) {
		b, ok := r.Expr.(*Binary)
		if !ok || b.Op != '/' {
			return 0, false
		}
		if right, ok := r.Sub(ctx, b.Right); ok && right == 0 {
			return math.NaN(), true
		}
		return 0, false
	}, -10), hookable.WithTapName("DivisionGuard"))
}

// ConstantsPlugin resolves named constants and writes them to a
// constants.txt asset. It extends both hook containers.
type ConstantsPlugin struct {
	Values map[string]float64
}

// NewConstantsPlugin creates a ConstantsPlugin knowing pi and e.
func NewConstantsPlugin() *ConstantsPlugin {
	return &ConstantsPlugin{Values: map[string]float64{"pi": math.Pi, "e": math.E}}
}

// Plugins implements [hookable.Bundle].
func (p *ConstantsPlugin) Plugins() []any {
	return []any{
		hookable.PluginFunc[*ParserHooks](p.applyParser),
		hookable.PluginFunc[*CompilationHooks](p.applyCompilation),
	}
}

func (p *ConstantsPlugin) applyParser(h *ParserHooks) {
	h.Evaluate.TapFunc(KindIdentifier, func(ctx context.Context, r *EvalRequest) (float64, bool) {
		id, ok := r.Expr.(*Identifier)
		if !ok {
			return 0, false
		}
		v, ok := p.Values[id.Name]
		return v, ok
	}, hookable.WithTapName("Constants"))
}

func (p *ConstantsPlugin) applyCompilation(h *CompilationHooks) {
	h.ProcessAssets.Tap(hookable.SeriesAt(func(ctx context.Context, c *Compilation) error {
		var sb strings.Builder
		for _, name := range slices.Sorted(maps.Keys(p.Values)) {
			fmt.Fprintf(&sb, "%s = %g\n", name, p.Values[name])
		}
		c.EmitAsset("constants.txt", sb.String())
		return nil
	}, 50), hookable.WithTapName("Constants"))
}

// BannerPlugin prefixes every asset with a banner line. It runs last.
type BannerPlugin struct {
	Banner string
}

func (p BannerPlugin) Apply(h *CompilationHooks) {
	h.ProcessAssets.Tap(hookable.SeriesAt(func(ctx context.Context, c *Compilation) error {
		for _, a := range c.Assets {
			a.Content = p.Banner + "\n" + a.Content
		}
		return nil
	}, 100), hookable.WithTapName("Banner"))
}

// DefaultPlugins returns the plugins used by the CLI.
func DefaultPlugins() []any {
	return []any{
		APlugin{},
		BPlugin{},
		ArithmeticPlugin{},
		DivisionGuardPlugin{},
		NewConstantsPlugin(),
		BannerPlugin{Banner: "// built by hookable"},
	}
}
