// Package compilation is a small build host used to exercise hookable end
// to end. A Compiler turns named expression sources into evaluated modules
// during make, then into text assets during processAssets. Plugins decide
// how expressions are evaluated and what ends up in the assets.
package compilation

import (
	"fmt"
	"slices"
	"sync"
)

// Module is one parsed and evaluated source.
type Module struct {
	Name   string
	Source string
	Expr   Expr
	Value  float64
}

// Asset is an output file.
type Asset struct {
	Name    string
	Content string
}

// Compilation is the state of one build. It is the input of every
// compilation hook.
//
// During make, callbacks of one stage share the Compilation concurrently:
// they read Sources and add modules through AddModule. During
// processAssets callbacks run one at a time and may edit Assets directly.
type Compilation struct {
	// Sources maps module names to expression sources.
	Sources map[string]string

	// Assets are the build outputs, in emission order.
	Assets []*Asset

	mu      sync.Mutex
	modules map[string]*Module
	log     []string
}

// NewCompilation creates a Compilation for the given sources.
func NewCompilation(sources map[string]string) *Compilation {
	return &Compilation{
		Sources: sources,
		modules: make(map[string]*Module),
	}
}

// AddModule stores m, replacing any module with the same name.
func (c *Compilation) AddModule(m *Module) {
	c.mu.Lock()
	c.modules[m.Name] = m
	c.mu.Unlock()
}

// Module returns the module with the given name.
func (c *Compilation) Module(name string) (*Module, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.modules[name]
	return m, ok
}

// Modules returns every module sorted by name.
func (c *Compilation) Modules() []*Module {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Module, 0, len(c.modules))
	for _, m := range c.modules {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b *Module) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

// EmitAsset appends an asset.
func (c *Compilation) EmitAsset(name, content string) {
	c.Assets = append(c.Assets, &Asset{Name: name, Content: content})
}

// Asset returns the asset with the given name.
func (c *Compilation) Asset(name string) (*Asset, bool) {
	for _, a := range c.Assets {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// Logf appends a line to the build log. Safe for concurrent use.
func (c *Compilation) Logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	c.mu.Lock()
	c.log = append(c.log, line)
	c.mu.Unlock()
}

// Log returns the build log.
func (c *Compilation) Log() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.log)
}
