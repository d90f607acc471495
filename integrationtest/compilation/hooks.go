package compilation

import (
	"context"
	"errors"
	"fmt"

	"github.com/rickchristie/hookable"
)

// Hook descriptors.
var (
	Make          = hookable.Define[*Compilation, hookable.Void]("make")
	ProcessAssets = hookable.Define[*Compilation, hookable.Void]("processAssets")
	Evaluate      = hookable.Define[*EvalRequest, float64]("evaluate")
)

// CompilationHooks are the build lifecycle hooks.
type CompilationHooks struct {
	// Make builds modules from sources. Callbacks of one stage run
	// concurrently.
	Make *hookable.AsyncParallelHook[*Compilation]

	// ProcessAssets edits the emitted assets, one callback at a time.
	ProcessAssets *hookable.AsyncSeriesHook[*Compilation]
}

// ParserHooks are the expression hooks.
type ParserHooks struct {
	// Evaluate computes an expression, keyed by its kind.
	Evaluate *hookable.SyncBailHookMap[*EvalRequest, float64]
}

// EvalRequest is the input of the Evaluate hooks. Evaluators of compound
// expressions evaluate their operands through Sub.
type EvalRequest struct {
	Expr Expr

	hooks *ParserHooks
}

// ErrUnresolved is returned when no evaluator answers for an expression.
var ErrUnresolved = errors.New("no evaluator answered")

// Sub evaluates a sub-expression with the same hooks.
func (r *EvalRequest) Sub(ctx context.Context, x Expr) (float64, bool) {
	return r.hooks.Evaluate.Call(ctx, x.Kind(), &EvalRequest{Expr: x, hooks: r.hooks})
}

// Eval evaluates x with the Evaluate hooks.
func (h *ParserHooks) Eval(ctx context.Context, x Expr) (float64, error) {
	v, ok := h.Evaluate.Call(ctx, x.Kind(), &EvalRequest{Expr: x, hooks: h})
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnresolved, x)
	}
	return v, nil
}
