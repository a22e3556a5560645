package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/meszmate/stanzaroute/pkg/plugin"
)

func TestLoadAndAnswer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.toml")
	content := `
[[entity]]
jid = "irc.example.com"
features = ["urn:xmpp:receipts"]

[[entity.identity]]
category = "gateway"
type = "irc"

[[entity.item]]
jid = "#go@irc.example.com"
name = "go"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	p := &StaticFeaturesPlugin{}
	if err := p.load(path); err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	info, err := p.Info(plugin.Request{Target: "IRC.example.com"})
	if err != nil {
		t.Fatalf("Info returned error: %v", err)
	}
	if len(info.Identities) != 1 || info.Identities[0].Type != "irc" || len(info.Features) != 1 {
		t.Fatalf("unexpected info %+v", info)
	}

	items, _ := p.Items(plugin.Request{Target: "irc.example.com"})
	if len(items.Items) != 1 || items.Items[0].Name != "go" {
		t.Fatalf("unexpected items %+v", items)
	}

	unknown, _ := p.Info(plugin.Request{Target: "other.example.com"})
	if len(unknown.Identities) != 0 || len(unknown.Features) != 0 {
		t.Fatalf("expected empty answer for unknown target, got %+v", unknown)
	}
}
