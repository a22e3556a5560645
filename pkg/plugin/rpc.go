package plugin

import (
	"net/rpc"

	"github.com/hashicorp/go-plugin"
)

// Handshake is the plugin handshake config
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "STANZAROUTE_PLUGIN",
	MagicCookieValue: "stanzaroute",
}

// pluginName is the key under which providers are dispensed
const pluginName = "features"

// PluginMap is the plugin type map
var PluginMap = map[string]plugin.Plugin{
	pluginName: &FeatureProviderPlugin{},
}

// FeatureProviderPlugin is the net/rpc plugin implementation
type FeatureProviderPlugin struct {
	Impl FeatureProvider
}

// Server returns the RPC server
func (p *FeatureProviderPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &RPCServer{Impl: p.Impl}, nil
}

// Client returns the RPC client
func (p *FeatureProviderPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &RPCClient{client: c}, nil
}

// RPCClient is the host side of a provider
type RPCClient struct {
	client *rpc.Client
}

func (c *RPCClient) Name() string {
	var resp string
	if err := c.client.Call("Plugin.Name", new(interface{}), &resp); err != nil {
		return ""
	}
	return resp
}

func (c *RPCClient) Version() string {
	var resp string
	if err := c.client.Call("Plugin.Version", new(interface{}), &resp); err != nil {
		return ""
	}
	return resp
}

func (c *RPCClient) Info(req Request) (InfoResponse, error) {
	var resp InfoResponse
	err := c.client.Call("Plugin.Info", req, &resp)
	return resp, err
}

func (c *RPCClient) Items(req Request) (ItemsResponse, error) {
	var resp ItemsResponse
	err := c.client.Call("Plugin.Items", req, &resp)
	return resp, err
}

// RPCServer is the plugin side, wrapping the real provider
type RPCServer struct {
	Impl FeatureProvider
}

func (s *RPCServer) Name(args interface{}, resp *string) error {
	*resp = s.Impl.Name()
	return nil
}

func (s *RPCServer) Version(args interface{}, resp *string) error {
	*resp = s.Impl.Version()
	return nil
}

func (s *RPCServer) Info(req Request, resp *InfoResponse) error {
	out, err := s.Impl.Info(req)
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

func (s *RPCServer) Items(req Request, resp *ItemsResponse) error {
	out, err := s.Impl.Items(req)
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

// Serve runs impl as a plugin process; it is called from a plugin's main
func Serve(impl FeatureProvider) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]plugin.Plugin{
			pluginName: &FeatureProviderPlugin{Impl: impl},
		},
	})
}
