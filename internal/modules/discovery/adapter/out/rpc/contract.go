package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	PluginMapKey      = "plugdir"
	serviceName       = "plugdir.module.v1.ModuleManifest"
	jsonCodecName     = "json"
	methodGetManifest = "/" + serviceName + "/GetManifest"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "PLUGDIR_PLUGIN",
	MagicCookieValue: "plugdir",
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type PluginEntry struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	TypeName string `json:"type_name"`
}

type Manifest struct {
	Module  string        `json:"module"`
	Plugins []PluginEntry `json:"plugins"`
}

type ModuleManifestServer interface {
	GetManifest(ctx context.Context, in *Empty) (*Manifest, error)
}

type ModuleManifestClient interface {
	GetManifest(ctx context.Context) (*Manifest, error)
}

type moduleManifestClient struct {
	conn *grpc.ClientConn
}

func NewModuleManifestClient(conn *grpc.ClientConn) ModuleManifestClient {
	return &moduleManifestClient{conn: conn}
}

func (c *moduleManifestClient) GetManifest(ctx context.Context) (*Manifest, error) {
	out := &Manifest{}
	if err := c.conn.Invoke(ctx, methodGetManifest, &Empty{}, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func RegisterModuleManifestServer(server grpc.ServiceRegistrar, impl ModuleManifestServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*ModuleManifestServer)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "GetManifest",
				Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
					in := &Empty{}
					if err := dec(in); err != nil {
						return nil, err
					}
					if interceptor == nil {
						return impl.GetManifest(ctx, in)
					}
					info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetManifest}
					handler := func(ctx context.Context, req any) (any, error) {
						empty, ok := req.(*Empty)
						if !ok {
							return nil, fmt.Errorf("invalid request type")
						}
						return impl.GetManifest(ctx, empty)
					}
					return interceptor(ctx, in, info, handler)
				},
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "schemas/module-manifest-v1.proto",
	}, impl)
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl ModuleManifestServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterModuleManifestServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewModuleManifestClient(conn), nil
}

func PluginMap(impl ModuleManifestServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}
