package classify

import (
	"testing"

	"mellium.im/xmpp/stanza"

	"github.com/meszmate/stanzaroute/internal/event"
	"github.com/meszmate/stanzaroute/internal/inbound"
)

const room = "lobby@conference.example.com/alice"

func roomMessage(typ stanza.MessageType, body string) inbound.Message {
	return inbound.Message{
		From: room,
		To:   bob,
		Type: typ,
		ID:   "g1",
		Body: inbound.Text(body),
	}
}

func TestGroupChatMessage(t *testing.T) {
	c, rec := newGroupClassifier()

	if err := c.Message(roomMessage(stanza.GroupChatMessage, "hi")); err != nil {
		t.Fatalf("Message returned error: %v", err)
	}

	got := rec.only(t)
	if got.name != event.NameGroupChat {
		t.Fatalf("expected %s, got %s", event.NameGroupChat, got.name)
	}
	msg, ok := got.payload.(event.GroupMessage)
	if !ok {
		t.Fatalf("expected GroupMessage, got %T", got.payload)
	}
	if msg.Body == nil || *msg.Body != "hi" {
		t.Fatalf("expected body hi, got %v", msg.Body)
	}
	if msg.Sender.Resource() != "alice" {
		t.Fatalf("expected occupant nick alice, got %q", msg.Sender.Resource())
	}
}

func TestGroupPrivateMessagesDropped(t *testing.T) {
	for _, typ := range []stanza.MessageType{stanza.NormalMessage, stanza.ChatMessage, "", "bogus", stanza.HeadlineMessage} {
		c, rec := newGroupClassifier()
		if err := c.Message(roomMessage(typ, "psst")); err != nil {
			t.Fatalf("type %q: Message returned error: %v", typ, err)
		}
		rec.none(t)
	}
}

func TestGroupErrorAndHandledDropped(t *testing.T) {
	c, rec := newGroupClassifier()

	if err := c.Message(roomMessage(stanza.ErrorMessage, "")); err != nil {
		t.Fatalf("Message returned error: %v", err)
	}

	handled := roomMessage(stanza.GroupChatMessage, "hi")
	handled.Handled = true
	if err := c.Message(handled); err != nil {
		t.Fatalf("Message returned error: %v", err)
	}

	rec.none(t)
}

func TestGroupDroppedMessageSkipsAddressResolution(t *testing.T) {
	msg := roomMessage(stanza.ChatMessage, "psst")
	msg.From = ""

	ev, err := ClassifyGroupMessage(msg)
	if err != nil || ev != nil {
		t.Fatalf("expected silent drop, got %v %v", ev, err)
	}
}

func TestGroupPresence(t *testing.T) {
	tests := []struct {
		typ       stanza.PresenceType
		available bool
	}{
		{stanza.AvailablePresence, true},
		{stanza.UnavailablePresence, false},
	}

	for _, tt := range tests {
		c, rec := newGroupClassifier()

		p := inbound.Presence{From: room, To: bob, Type: tt.typ, ID: "j1", Show: "dnd"}
		if err := c.Presence(p); err != nil {
			t.Fatalf("type %q: Presence returned error: %v", tt.typ, err)
		}

		got := rec.only(t)
		if got.name != event.NameGroupPresenceAvailability {
			t.Fatalf("expected %s, got %s", event.NameGroupPresenceAvailability, got.name)
		}
		avail, ok := got.payload.(event.GroupPresenceAvailability)
		if !ok {
			t.Fatalf("expected GroupPresenceAvailability, got %T", got.payload)
		}
		if avail.Available != tt.available {
			t.Fatalf("type %q: expected available=%v", tt.typ, tt.available)
		}
		if avail.ID != "j1" {
			t.Fatalf("expected id j1, got %q", avail.ID)
		}
	}
}

func TestGroupPresenceOtherTypes(t *testing.T) {
	c, rec := newGroupClassifier()

	for _, typ := range []stanza.PresenceType{stanza.SubscribePresence, stanza.ProbePresence, stanza.ErrorPresence} {
		p := inbound.Presence{From: room, To: bob, Type: typ}
		if err := c.Presence(p); err != nil {
			t.Fatalf("type %q: Presence returned error: %v", typ, err)
		}
	}
	rec.none(t)
}

func TestGroupAvailableUnavailableEntryPoints(t *testing.T) {
	c, rec := newGroupClassifier()

	p := inbound.Presence{From: room, To: bob}
	if err := c.Available(p); err != nil {
		t.Fatalf("Available returned error: %v", err)
	}
	if err := c.Unavailable(p); err != nil {
		t.Fatalf("Unavailable returned error: %v", err)
	}

	if len(rec.events) != 2 {
		t.Fatalf("expected two events, got %d", len(rec.events))
	}
	if !rec.events[0].payload.(event.GroupPresenceAvailability).Available {
		t.Fatalf("expected first event to be a join")
	}
	if rec.events[1].payload.(event.GroupPresenceAvailability).Available {
		t.Fatalf("expected second event to be a leave")
	}
}

func TestGroupMessageBodyDoesNotAliasStanza(t *testing.T) {
	msg := roomMessage(stanza.GroupChatMessage, "hi")

	ev, err := ClassifyGroupMessage(msg)
	if err != nil {
		t.Fatalf("ClassifyGroupMessage returned error: %v", err)
	}
	*msg.Body = "changed"

	if got := *ev.(event.GroupMessage).Body; got != "hi" {
		t.Fatalf("expected body hi, got %q", got)
	}
}
