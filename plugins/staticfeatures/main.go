package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/meszmate/stanzaroute/pkg/plugin"
)

// StaticFeaturesPlugin answers disco queries from a TOML file. The file is
// named by STANZAROUTE_STATIC_FEATURES and looks like:
//
//	[[entity]]
//	jid = "irc.example.com"
//	features = ["urn:xmpp:receipts"]
//
//	[[entity.identity]]
//	category = "gateway"
//	type = "irc"
//
//	[[entity.item]]
//	jid = "#go@irc.example.com"
type StaticFeaturesPlugin struct {
	mu       sync.RWMutex
	entities map[string]entity
}

type entity struct {
	JID        string            `toml:"jid"`
	Node       string            `toml:"node"`
	Features   []string          `toml:"features"`
	Identities []plugin.Identity `toml:"identity"`
	Items      []plugin.Item     `toml:"item"`
}

type file struct {
	Entities []entity `toml:"entity"`
}

func key(target, node string) string {
	return strings.ToLower(target) + "#" + node
}

// load reads the entity file at path
func (p *StaticFeaturesPlugin) load(path string) error {
	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	entities := make(map[string]entity, len(f.Entities))
	for _, e := range f.Entities {
		entities[key(e.JID, e.Node)] = e
	}

	p.mu.Lock()
	p.entities = entities
	p.mu.Unlock()
	return nil
}

func (p *StaticFeaturesPlugin) lookup(req plugin.Request) (entity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entities[key(req.Target, req.Node)]
	return e, ok
}

// Name returns the plugin name
func (p *StaticFeaturesPlugin) Name() string {
	return "staticfeatures"
}

// Version returns the plugin version
func (p *StaticFeaturesPlugin) Version() string {
	return "1.0.0"
}

// Info answers disco#info for configured entities
func (p *StaticFeaturesPlugin) Info(req plugin.Request) (plugin.InfoResponse, error) {
	e, ok := p.lookup(req)
	if !ok {
		return plugin.InfoResponse{}, nil
	}
	return plugin.InfoResponse{Identities: e.Identities, Features: e.Features}, nil
}

// Items answers disco#items for configured entities
func (p *StaticFeaturesPlugin) Items(req plugin.Request) (plugin.ItemsResponse, error) {
	e, ok := p.lookup(req)
	if !ok {
		return plugin.ItemsResponse{}, nil
	}
	return plugin.ItemsResponse{Items: e.Items}, nil
}

func main() {
	p := &StaticFeaturesPlugin{entities: map[string]entity{}}

	if path := os.Getenv("STANZAROUTE_STATIC_FEATURES"); path != "" {
		if err := p.load(path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	plugin.Serve(p)
}
