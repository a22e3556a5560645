package plugin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hashicorp/go-plugin"
	"mellium.im/xmpp/jid"

	"github.com/meszmate/stanzaroute/internal/logging"
)

type staticProvider struct {
	name  string
	delay time.Duration
}

func (p staticProvider) Name() string    { return p.name }
func (p staticProvider) Version() string { return "0.1.0" }

func (p staticProvider) Info(req Request) (InfoResponse, error) {
	time.Sleep(p.delay)
	if req.Target != "gateway.example.com" {
		return InfoResponse{}, nil
	}
	return InfoResponse{
		Identities: []Identity{{Category: "gateway", Type: "irc", Name: "bridge"}},
		Features:   []string{"urn:example:bridge"},
	}, nil
}

func (p staticProvider) Items(req Request) (ItemsResponse, error) {
	if req.Node == "broken" {
		return ItemsResponse{Items: []Item{{JID: "@@"}}}, nil
	}
	return ItemsResponse{Items: []Item{{JID: "lobby@conference.example.com", Name: "Lobby"}}}, nil
}

func TestRPCRoundTrip(t *testing.T) {
	client, _ := plugin.TestPluginRPCConn(t, map[string]plugin.Plugin{
		pluginName: &FeatureProviderPlugin{Impl: staticProvider{name: "static"}},
	}, nil)
	defer client.Close()

	raw, err := client.Dispense(pluginName)
	if err != nil {
		t.Fatalf("Dispense returned error: %v", err)
	}
	p := raw.(FeatureProvider)

	if p.Name() != "static" || p.Version() != "0.1.0" {
		t.Fatalf("unexpected metadata %q %q", p.Name(), p.Version())
	}

	info, err := p.Info(Request{Target: "gateway.example.com"})
	if err != nil {
		t.Fatalf("Info returned error: %v", err)
	}
	if len(info.Identities) != 1 || info.Features[0] != "urn:example:bridge" {
		t.Fatalf("unexpected info %+v", info)
	}

	items, err := p.Items(Request{Target: "gateway.example.com"})
	if err != nil {
		t.Fatalf("Items returned error: %v", err)
	}
	if len(items.Items) != 1 || items.Items[0].Name != "Lobby" {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestHostProviders(t *testing.T) {
	h := NewHost("", nil, logging.Discard())
	if err := h.Register(staticProvider{name: "static"}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := h.Register(staticProvider{name: "static"}); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}

	providers := h.Providers()
	if len(providers) != 1 {
		t.Fatalf("expected one provider, got %d", len(providers))
	}

	info, err := providers[0].Info(context.Background(), jid.MustParse("gateway.example.com"), "")
	if err != nil {
		t.Fatalf("Info returned error: %v", err)
	}
	if len(info.Identities) != 1 || !info.HasFeature("urn:example:bridge") {
		t.Fatalf("unexpected info %+v", info)
	}

	items, err := providers[0].Items(context.Background(), jid.MustParse("gateway.example.com"), "")
	if err != nil {
		t.Fatalf("Items returned error: %v", err)
	}
	if len(items) != 1 || items[0].JID.String() != "lobby@conference.example.com" {
		t.Fatalf("unexpected items %+v", items)
	}

	if _, err := providers[0].Items(context.Background(), jid.MustParse("gateway.example.com"), "broken"); err == nil {
		t.Fatalf("expected invalid item jid to fail")
	}

	if list := h.List(); len(list) != 1 || list[0].Name != "static" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestProviderHonoursContext(t *testing.T) {
	h := NewHost("", nil, logging.Discard())
	if err := h.Register(staticProvider{name: "slow", delay: time.Second}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := h.Providers()[0].Info(ctx, jid.MustParse("gateway.example.com"), "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestLoadAllMissingDir(t *testing.T) {
	h := NewHost(t.TempDir()+"/missing", nil, logging.Discard())
	if err := h.LoadAll(); err != nil {
		t.Fatalf("LoadAll returned error: %v", err)
	}
	if len(h.List()) != 0 {
		t.Fatalf("expected no plugins")
	}
}
