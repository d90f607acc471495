package hookable

// -----------------------------------------------------------------------------
// Plugin Capability
// -----------------------------------------------------------------------------
//
// A plugin is anything that taps hooks. The host owns hook containers (plain
// structs of hook collections) and hands each container to every plugin
// once, before the first Call:
//
//	type CompilationHooks struct {
//	    Make          *hookable.AsyncParallelHook[*Compilation]
//	    ProcessAssets *hookable.AsyncSeriesHook[*Compilation]
//	}
//
//	type MinifyPlugin struct{}
//
//	func (MinifyPlugin) Apply(h *CompilationHooks) {
//	    h.ProcessAssets.Tap(hookable.SeriesAt(minify, 100), hookable.WithTapName("Minify"))
//	}
//
//	hookable.Apply[*CompilationHooks](hooks, MinifyPlugin{})
//
// A plugin that extends more than one container cannot declare two Apply
// methods. It implements [Bundle] instead and returns one Plugin per
// container; [PluginRegistry] unpacks it and [ApplyTo] routes each part to
// the matching container.
// -----------------------------------------------------------------------------

// Plugin extends a hook container of type C.
type Plugin[C any] interface {
	Apply(container C)
}

// PluginFunc adapts a plain function to [Plugin].
type PluginFunc[C any] func(container C)

// Apply calls f.
func (f PluginFunc[C]) Apply(container C) { f(container) }

// Apply hands container to each plugin, in order.
func Apply[C any](container C, plugins ...Plugin[C]) {
	for _, p := range plugins {
		p.Apply(container)
	}
}

// Bundle is implemented by plugins that extend several containers. Each
// element of Plugins() should implement Plugin[C] for some container C;
// elements may themselves be bundles.
type Bundle interface {
	Plugins() []any
}

// PluginRegistry holds plugins for any number of container types.
//
// # Thread Safety
//
// PluginRegistry is NOT thread-safe. Register every plugin before applying.
type PluginRegistry struct {
	plugins []any
}

// NewPluginRegistry creates an empty registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{plugins: make([]any, 0)}
}

// Register adds a plugin. If plugin is a [Bundle], its parts are registered
// right after it, depth first. A bundle that is not itself a Plugin is
// simply never applied.
func (r *PluginRegistry) Register(plugin any) *PluginRegistry {
	r.plugins = append(r.plugins, plugin)
	if b, ok := plugin.(Bundle); ok {
		for _, p := range b.Plugins() {
			r.Register(p)
		}
	}
	return r
}

// Len returns the number of registered values, bundles included.
func (r *PluginRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.plugins)
}

// Plugins returns the flattened plugins in registration order.
func (r *PluginRegistry) Plugins() []any {
	if r == nil {
		return nil
	}
	return append([]any(nil), r.plugins...)
}

// ApplyTo hands container to every registered plugin that implements
// Plugin[C], in registration order, and returns how many were applied.
// Plugins for other containers are skipped.
func ApplyTo[C any](r *PluginRegistry, container C) int {
	if r == nil {
		return 0
	}
	applied := 0
	for _, p := range r.plugins {
		if plugin, ok := p.(Plugin[C]); ok {
			plugin.Apply(container)
			applied++
		}
	}
	return applied
}

// NewBundle groups plugins for different containers into one value.
func NewBundle(plugins ...any) Bundle {
	return bundle(plugins)
}

type bundle []any

func (b bundle) Plugins() []any { return b }
