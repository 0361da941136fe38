package out

import (
	"context"
	"fmt"
	"sync"

	"plugdir/internal/modules/discovery/domain"
	discoveryout "plugdir/internal/modules/discovery/port/out"
)

// StaticModuleCatalog serves a module's plugins straight from its probed
// metadata. Nothing is ever executed; hosts that only need discovery-level
// information get a catalog with zero load risk.
type StaticModuleCatalog struct {
	path   string
	source discoveryout.MetadataSource

	mu          sync.RWMutex
	initialized bool
	plugins     []domain.Plugin
}

func NewStaticModuleCatalog(path string, source discoveryout.MetadataSource) *StaticModuleCatalog {
	return &StaticModuleCatalog{path: path, source: source}
}

func (c *StaticModuleCatalog) Path() string {
	return c.path
}

func (c *StaticModuleCatalog) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return nil
	}
	md, err := c.source.Read(ctx, c.path)
	if err != nil {
		return fmt.Errorf("load module %s: %w", c.path, err)
	}
	var plugins []domain.Plugin
	for _, t := range md.Plugins() {
		plugins = append(plugins, domain.Plugin{
			Name:             t.PluginName,
			Version:          domain.CanonicalVersion(t.PluginVer),
			SourceModulePath: c.path,
			TypeName:         t.Name,
		})
	}
	c.plugins = plugins
	c.initialized = true
	return nil
}

func (c *StaticModuleCatalog) List() []domain.Plugin {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Plugin, len(c.plugins))
	copy(out, c.plugins)
	return out
}

func (c *StaticModuleCatalog) Get(name, version string) (domain.Plugin, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.plugins {
		if p.Matches(name, version) {
			return p, true
		}
	}
	return domain.Plugin{}, false
}
