package hookable

import (
	"context"
	"fmt"
	"slices"
)

// SyncBailHookMap is a set of independent [SyncBailHook]s selected by a
// string key known only at call time, such as an expression kind:
//
//	evaluate := hookable.NewSyncBailHookMap(Evaluate)
//	evaluate.TapFunc("binary", evalBinary, hookable.WithTapName("Arithmetic"))
//	evaluate.TapFunc("identifier", evalConstant, hookable.WithTapName("Constants"))
//
//	value, ok := evaluate.Call(ctx, expr.Kind(), expr)
//
// The first Tap for a key creates that key's hook; keys are never removed.
// Calling a key that was never tapped is not an error: nothing runs and the
// result is empty.
//
// Options given to NewSyncBailHookMap apply to every per-key hook, which is
// named "<name>[<key>]".
//
// # Thread Safety
//
// Same contract as [SyncBailHook]: register first, then call.
type SyncBailHookMap[In, Out any] struct {
	name     string
	settings settings
	hooks    map[string]*SyncBailHook[In, Out]
}

// NewSyncBailHookMap creates an empty bail hook map for the given descriptor.
func NewSyncBailHookMap[In, Out any](desc Hook[In, Out], opts ...Option) *SyncBailHookMap[In, Out] {
	return &SyncBailHookMap[In, Out]{
		name:     desc.Name(),
		settings: newSettings(opts),
		hooks:    make(map[string]*SyncBailHook[In, Out]),
	}
}

// Name returns the map name.
func (m *SyncBailHookMap[In, Out]) Name() string {
	return m.name
}

// For returns the hook for key, creating it on first use.
func (m *SyncBailHookMap[In, Out]) For(key string) *SyncBailHook[In, Out] {
	if m.hooks == nil {
		m.hooks = make(map[string]*SyncBailHook[In, Out])
	}
	h, ok := m.hooks[key]
	if !ok {
		h = newSyncBailHook[In, Out](fmt.Sprintf("%s[%s]", m.name, key), m.settings)
		m.hooks[key] = h
	}
	return h
}

// Tap registers a callback under key.
func (m *SyncBailHookMap[In, Out]) Tap(key string, b Bail[In, Out], opts ...TapOption) {
	m.For(key).Tap(b, opts...)
}

// TapFunc registers a plain function under key.
func (m *SyncBailHookMap[In, Out]) TapFunc(key string, fn BailFunc[In, Out], opts ...TapOption) {
	m.For(key).Tap(fn, opts...)
}

// Call dispatches to the hook registered for key. An unknown key yields the
// zero Out and false without invoking anything.
func (m *SyncBailHookMap[In, Out]) Call(ctx context.Context, key string, in In) (Out, bool) {
	h, ok := m.hooks[key]
	if !ok {
		var zero Out
		return zero, false
	}
	return h.call(ctx, key, in)
}

// Has reports whether key has been tapped.
func (m *SyncBailHookMap[In, Out]) Has(key string) bool {
	_, ok := m.hooks[key]
	return ok
}

// Keys returns the tapped keys in sorted order.
func (m *SyncBailHookMap[In, Out]) Keys() []string {
	keys := make([]string, 0, len(m.hooks))
	for k := range m.hooks {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of keys.
func (m *SyncBailHookMap[In, Out]) Len() int {
	return len(m.hooks)
}
