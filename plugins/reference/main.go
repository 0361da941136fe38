// The reference plugin module: embeds a plugdir metadata blob for
// execution-free probing and serves the module manifest over go-plugin
// gRPC once a host decides to load it for real.
package main

//go:generate go run plugdir/cmd/plugdir genmeta --in plugin-meta.yaml --out meta_blob.go --package main

import (
	"context"

	"github.com/hashicorp/go-plugin"

	pluginrpc "plugdir/internal/modules/discovery/adapter/out/rpc"
)

type server struct{}

func (s *server) GetManifest(_ context.Context, _ *pluginrpc.Empty) (*pluginrpc.Manifest, error) {
	return &pluginrpc.Manifest{
		Module: "plugdir/plugins/reference",
		Plugins: []pluginrpc.PluginEntry{
			{Name: "echo", Version: "1.0.0", TypeName: "plugdir/plugins/reference.Echo"},
			{Name: "wordcount", Version: "0.3.0", TypeName: "plugdir/plugins/reference.WordCount"},
		},
	}, nil
}

func main() {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: pluginrpc.HandshakeConfig,
		Plugins:         pluginrpc.PluginMap(&server{}),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}
