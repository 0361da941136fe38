package out

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	pluginrpc "plugdir/internal/modules/discovery/adapter/out/rpc"
	"plugdir/internal/modules/discovery/domain"
	discoveryout "plugdir/internal/modules/discovery/port/out"
)

const (
	defaultStartTimeout = 3 * time.Second
	defaultCallTimeout  = 5 * time.Second
)

// GRPCModuleCatalog performs the real, executing load of one accepted
// module: the binary runs as an isolated go-plugin subprocess owned
// exclusively by this catalog, its manifest is fetched once during
// Initialize, and the subprocess is torn down before Initialize returns.
// List and Get serve from the snapshot.
type GRPCModuleCatalog struct {
	path string

	mu          sync.RWMutex
	initialized bool
	plugins     []domain.Plugin
}

func NewGRPCModuleCatalog(path string) *GRPCModuleCatalog {
	return &GRPCModuleCatalog{path: path}
}

func (c *GRPCModuleCatalog) Path() string {
	return c.path
}

func (c *GRPCModuleCatalog) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return nil
	}

	manifest, err := c.fetchManifest(ctx)
	if err != nil {
		return fmt.Errorf("load module %s: %w", c.path, err)
	}
	plugins := make([]domain.Plugin, 0, len(manifest.Plugins))
	for _, entry := range manifest.Plugins {
		if entry.Name == "" {
			return fmt.Errorf("load module %s: manifest entry without a name", c.path)
		}
		plugins = append(plugins, domain.Plugin{
			Name:             entry.Name,
			Version:          domain.CanonicalVersion(entry.Version),
			SourceModulePath: c.path,
			TypeName:         entry.TypeName,
		})
	}
	c.plugins = plugins
	c.initialized = true
	return nil
}

func (c *GRPCModuleCatalog) fetchManifest(ctx context.Context) (*pluginrpc.Manifest, error) {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  pluginrpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          pluginrpc.PluginMap(nil),
		Cmd:              exec.Command(c.path),
		Managed:          true,
		StartTimeout:     defaultStartTimeout,
		Logger:           hclog.New(&hclog.LoggerOptions{Output: io.Discard, Level: hclog.NoLevel}),
	})
	defer client.Kill()

	rpcClient, err := client.Client()
	if err != nil {
		return nil, fmt.Errorf("start plugin client: %w", err)
	}
	raw, err := rpcClient.Dispense(pluginrpc.PluginMapKey)
	if err != nil {
		return nil, fmt.Errorf("dispense plugin: %w", err)
	}
	typed, ok := raw.(pluginrpc.ModuleManifestClient)
	if !ok {
		return nil, fmt.Errorf("plugin rpc client type mismatch")
	}

	callCtx, cancel := callContext(ctx, defaultCallTimeout)
	defer cancel()
	manifest, err := typed.GetManifest(callCtx)
	if err != nil {
		return nil, fmt.Errorf("get manifest: %w", err)
	}
	return manifest, nil
}

func (c *GRPCModuleCatalog) List() []domain.Plugin {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Plugin, len(c.plugins))
	copy(out, c.plugins)
	return out
}

func (c *GRPCModuleCatalog) Get(name, version string) (domain.Plugin, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.plugins {
		if p.Matches(name, version) {
			return p, true
		}
	}
	return domain.Plugin{}, false
}

func callContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

// ModuleCatalogFactory picks the catalog implementation the options ask
// for: executing gRPC load or metadata-only static load.
type ModuleCatalogFactory struct {
	source discoveryout.MetadataSource
}

func NewModuleCatalogFactory(source discoveryout.MetadataSource) discoveryout.ModuleCatalogFactory {
	return &ModuleCatalogFactory{source: source}
}

func (f *ModuleCatalogFactory) New(path string, opts domain.Options) discoveryout.ModuleCatalog {
	if opts.LoadMode == domain.LoadModeGRPC {
		return NewGRPCModuleCatalog(path)
	}
	return NewStaticModuleCatalog(path, f.source)
}
