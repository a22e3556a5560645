package chat

import (
	"testing"

	"mellium.im/xmpp/jid"

	"github.com/meszmate/stanzaroute/internal/bus"
	"github.com/meszmate/stanzaroute/internal/event"
	"github.com/meszmate/stanzaroute/internal/identity"
	"github.com/meszmate/stanzaroute/internal/inbound"
)

func header(t *testing.T, id string) event.Header {
	t.Helper()
	sender, err := identity.Resolve("alice@example.com/phone")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	recipient, err := identity.Resolve("bob@example.com")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	return event.Header{Sender: sender, Recipient: recipient, ID: id}
}

func TestManagerFollowsConversation(t *testing.T) {
	b := bus.New()
	m := NewManager(0)
	m.Attach(b)

	alice := jid.MustParse("alice@example.com")

	b.Emit(event.NameComposingIndication, nil, event.ComposingIndication{Header: header(t, ""), State: "composing"})
	if m.State(alice) != StateComposing {
		t.Fatalf("expected composing, got %q", m.State(alice))
	}

	b.Emit(event.NameChatMessage, nil, event.ChatMessage{
		Header:     header(t, "m1"),
		Body:       inbound.Text("hello"),
		UseReceipt: true,
	})
	if m.State(alice) != StateActive {
		t.Fatalf("expected active after a message, got %q", m.State(alice))
	}

	history := m.GetHistory(alice, 0)
	if len(history) != 1 || history[0].Body != "hello" || !history[0].WantsAck {
		t.Fatalf("unexpected history %+v", history)
	}

	b.Emit(event.NameReceipt, nil, event.ReceiptAcknowledgement{Header: header(t, "m1")})
	if !m.GetHistory(alice, 0)[0].Received {
		t.Fatalf("expected message to be marked received")
	}
}

func TestManagerRecordsErrors(t *testing.T) {
	b := bus.New()
	m := NewManager(0)
	m.Attach(b)

	conditions := []event.Condition{{Name: "item-not-found", Namespace: "urn:ietf:params:xml:ns:xmpp-stanzas"}}
	b.Emit(event.NameErrorMessage, nil, event.ErrorMessage{Header: header(t, "e1"), Conditions: conditions})

	session := m.GetSession(jid.MustParse("alice@example.com"))
	if len(session.LastError) != 1 || session.LastError[0].Name != "item-not-found" {
		t.Fatalf("unexpected last error %+v", session.LastError)
	}
}

func TestManagerLimit(t *testing.T) {
	m := NewManager(2)
	from := jid.MustParse("carol@example.com/a")

	for _, id := range []string{"1", "2", "3"} {
		m.AddMessage(Message{ID: id, From: from})
	}

	history := m.GetHistory(from, 0)
	if len(history) != 2 || history[0].ID != "2" {
		t.Fatalf("expected last two messages, got %+v", history)
	}
}

func TestMarkReceivedUnknown(t *testing.T) {
	m := NewManager(0)
	if m.MarkReceived(jid.MustParse("nobody@example.com"), "x") {
		t.Fatalf("did not expect unknown session to be marked")
	}
}
