package hookable

// Void is the output type of hooks that produce nothing. Series and parallel
// hooks are always declared with Void as their output.
type Void = struct{}

// Hook describes one extension point: its name and, at the type level, the
// input its callbacks receive and the output a bail callback may produce.
//
// A Hook carries no behavior. Hosts declare one per extension point, usually as
// package-level variables, and build collections from it:
//
//	var (
//	    Make          = hookable.Define[*Compilation, hookable.Void]("make")
//	    ProcessAssets = hookable.Define[*Compilation, hookable.Void]("processAssets")
//	    CanRename     = hookable.Define[*Identifier, bool]("canRename")
//	)
//
//	hooks := &CompilationHooks{
//	    Make:          hookable.NewAsyncParallelHook(Make),
//	    ProcessAssets: hookable.NewAsyncSeriesHook(ProcessAssets),
//	}
//
// Two descriptors may share input and output types and still be distinct
// extension points. Because the types are fixed here, a callback whose shape
// does not match the descriptor is rejected by the compiler at the Tap site.
type Hook[In, Out any] struct {
	name string
}

// Define declares a hook descriptor with the given name.
func Define[In, Out any](name string) Hook[In, Out] {
	return Hook[In, Out]{name: name}
}

// Name returns the descriptor name.
func (h Hook[In, Out]) Name() string {
	return h.name
}

// String implements fmt.Stringer.
func (h Hook[In, Out]) String() string {
	if h.name == "" {
		return "<anonymous hook>"
	}
	return h.name
}
