package presence

import (
	"testing"

	"mellium.im/xmpp/jid"

	"github.com/meszmate/stanzaroute/internal/bus"
	"github.com/meszmate/stanzaroute/internal/event"
	"github.com/meszmate/stanzaroute/internal/identity"
)

func header(t *testing.T, from string) event.Header {
	t.Helper()
	sender, err := identity.Resolve(from)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	recipient, err := identity.Resolve("gateway.example.com")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	return event.Header{Sender: sender, Recipient: recipient}
}

func TestManagerTracksAvailability(t *testing.T) {
	b := bus.New()
	m := NewManager()
	m.Attach(b)

	b.Emit(event.NamePresenceAvailability, nil, event.PresenceAvailability{
		Header:    header(t, "alice@example.com/phone"),
		Available: true,
		Show:      "away",
		Statuses:  map[string]string{"": "lunch"},
	})

	alice := jid.MustParse("alice@example.com")
	if !m.IsOnline(alice) {
		t.Fatalf("expected alice to be online")
	}
	status := m.Get(alice)
	if status == nil || status.Show != ShowAway || status.Status != "lunch" {
		t.Fatalf("unexpected status %+v", status)
	}

	b.Emit(event.NamePresenceAvailability, nil, event.PresenceAvailability{
		Header:    header(t, "alice@example.com/phone"),
		Available: false,
	})

	if m.IsOnline(alice) {
		t.Fatalf("expected alice to be offline")
	}
}

func TestManagerRecordsProbes(t *testing.T) {
	b := bus.New()
	m := NewManager()
	m.Attach(b)

	b.Emit(event.NamePresenceProbe, nil, event.PresenceProbe{Header: header(t, "carol@example.com/tab")})

	if _, ok := m.LastProbe(jid.MustParse("carol@example.com")); !ok {
		t.Fatalf("expected probe to be recorded")
	}
}

func TestRemoveSingleResource(t *testing.T) {
	m := NewManager()
	m.Set(Status{JID: jid.MustParse("bob@example.com/a")})
	m.Set(Status{JID: jid.MustParse("bob@example.com/b")})

	m.Remove(jid.MustParse("bob@example.com/a"))

	if got := len(m.GetResources(jid.MustParse("bob@example.com"))); got != 1 {
		t.Fatalf("expected one resource left, got %d", got)
	}
}

func TestShowToString(t *testing.T) {
	if ShowToString(ShowOnline) != "online" || ShowToString(ShowDND) != "dnd" {
		t.Fatalf("unexpected show strings")
	}
}
