package plugin

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
	"mellium.im/xmpp/jid"

	"github.com/meszmate/stanzaroute/internal/logging"
	"github.com/meszmate/stanzaroute/internal/xmpp/disco"
	"github.com/meszmate/stanzaroute/internal/xmpp/features"
)

// Host manages plugin lifecycle
type Host struct {
	mu        sync.RWMutex
	plugins   map[string]*LoadedPlugin
	pluginDir string
	enabled   []string
	log       *logging.Logger
}

// LoadedPlugin represents a loaded plugin
type LoadedPlugin struct {
	Metadata
	Provider FeatureProvider
	Client   *plugin.Client
}

// NewHost creates a new plugin host. An empty enabled list loads every
// executable in pluginDir.
func NewHost(pluginDir string, enabled []string, logger *logging.Logger) *Host {
	if logger == nil {
		logger = logging.Default()
	}
	return &Host{
		plugins:   make(map[string]*LoadedPlugin),
		pluginDir: pluginDir,
		enabled:   enabled,
		log:       logger.Named("plugins"),
	}
}

// LoadAll loads all plugins from the plugin directory
func (h *Host) LoadAll() error {
	if h.pluginDir == "" {
		return nil
	}

	entries, err := os.ReadDir(h.pluginDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if len(h.enabled) > 0 && !slices.Contains(h.enabled, entry.Name()) {
			continue
		}

		path := filepath.Join(h.pluginDir, entry.Name())
		if err := h.Load(path); err != nil {
			h.log.Error("failed to load plugin %s: %v", entry.Name(), err)
		}
	}

	return nil
}

// Load loads a single plugin
func (h *Host) Load(path string) error {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: Handshake,
		Plugins:         PluginMap,
		Cmd:             exec.Command(path),
		AllowedProtocols: []plugin.Protocol{
			plugin.ProtocolNetRPC,
		},
		Logger: hclog.New(&hclog.LoggerOptions{
			Name:   "plugin",
			Output: h.log.Writer(),
			Level:  hclog.LevelFromString(h.log.GetLevel().String()),
		}),
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return fmt.Errorf("failed to connect to plugin: %w", err)
	}

	raw, err := rpcClient.Dispense(pluginName)
	if err != nil {
		client.Kill()
		return fmt.Errorf("failed to dispense plugin: %w", err)
	}

	p, ok := raw.(FeatureProvider)
	if !ok {
		client.Kill()
		return fmt.Errorf("plugin %s does not provide features", path)
	}

	return h.register(p, path, client)
}

// Register adds an in-process provider, mostly for tests and built-ins
func (h *Host) Register(p FeatureProvider) error {
	return h.register(p, "", nil)
}

func (h *Host) register(p FeatureProvider, path string, client *plugin.Client) error {
	name := p.Name()
	if name == "" {
		if client != nil {
			client.Kill()
		}
		return fmt.Errorf("plugin at %q has no name", path)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.plugins[name]; exists {
		if client != nil {
			client.Kill()
		}
		return fmt.Errorf("plugin already loaded: %s", name)
	}

	h.plugins[name] = &LoadedPlugin{
		Metadata: Metadata{Name: name, Version: p.Version(), Path: path},
		Provider: p,
		Client:   client,
	}
	h.log.Info("loaded plugin %s %s", name, p.Version())
	return nil
}

// Unload unloads a plugin
func (h *Host) Unload(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	lp := h.plugins[name]
	if lp == nil {
		return nil
	}

	if lp.Client != nil {
		lp.Client.Kill()
	}
	delete(h.plugins, name)

	return nil
}

// UnloadAll unloads all plugins
func (h *Host) UnloadAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for name, lp := range h.plugins {
		if lp.Client != nil {
			lp.Client.Kill()
		}
		delete(h.plugins, name)
	}
}

// List returns metadata of all loaded plugins, sorted by name
func (h *Host) List() []Metadata {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]Metadata, 0, len(h.plugins))
	for _, lp := range h.plugins {
		result = append(result, lp.Metadata)
	}
	slices.SortFunc(result, func(a, b Metadata) int {
		return strings.Compare(a.Name, b.Name)
	})
	return result
}

// Get returns a specific plugin
func (h *Host) Get(name string) *LoadedPlugin {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.plugins[name]
}

// Providers adapts every loaded plugin for the disco responder
func (h *Host) Providers() []features.Provider {
	h.mu.RLock()
	defer h.mu.RUnlock()

	providers := make([]features.Provider, 0, len(h.plugins))
	for _, lp := range h.plugins {
		providers = append(providers, providerAdapter{name: lp.Name, impl: lp.Provider})
	}
	return providers
}

// providerAdapter bounds plugin calls by the caller's context
type providerAdapter struct {
	name string
	impl FeatureProvider
}

func (a providerAdapter) Name() string {
	return a.name
}

func (a providerAdapter) Info(ctx context.Context, target jid.JID, node string) (disco.Info, error) {
	resp, err := call(ctx, func() (InfoResponse, error) {
		return a.impl.Info(Request{Target: target.String(), Node: node})
	})
	if err != nil {
		return disco.Info{}, err
	}

	info := disco.Info{}
	for _, id := range resp.Identities {
		info.Identities = append(info.Identities, disco.Identity{
			Category: id.Category,
			Type:     id.Type,
			Name:     id.Name,
			Lang:     id.Lang,
		})
	}
	for _, f := range resp.Features {
		info.Features = append(info.Features, disco.Feature(f))
	}
	return info, nil
}

func (a providerAdapter) Items(ctx context.Context, target jid.JID, node string) ([]disco.Item, error) {
	resp, err := call(ctx, func() (ItemsResponse, error) {
		return a.impl.Items(Request{Target: target.String(), Node: node})
	})
	if err != nil {
		return nil, err
	}

	items := make([]disco.Item, 0, len(resp.Items))
	for _, item := range resp.Items {
		j, err := jid.Parse(item.JID)
		if err != nil {
			return nil, fmt.Errorf("plugin %s returned invalid item jid %q: %w", a.name, item.JID, err)
		}
		items = append(items, disco.Item{JID: j, Name: item.Name, Node: item.Node})
	}
	return items, nil
}

func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type outcome struct {
		value T
		err   error
	}

	done := make(chan outcome, 1)
	go func() {
		v, err := fn()
		done <- outcome{v, err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
