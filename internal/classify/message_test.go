package classify

import (
	"encoding/xml"
	"errors"
	"testing"

	"mellium.im/xmpp/stanza"

	"github.com/meszmate/stanzaroute/internal/event"
	"github.com/meszmate/stanzaroute/internal/identity"
	"github.com/meszmate/stanzaroute/internal/inbound"
	"github.com/meszmate/stanzaroute/internal/namespace"
)

const (
	alice = "alice@example.com/phone"
	bob   = "bob@example.com/desk"
)

func chatMessage(body string, children ...inbound.Element) inbound.Message {
	return inbound.Message{
		From:     alice,
		To:       bob,
		Type:     stanza.ChatMessage,
		ID:       "m1",
		Body:     inbound.Text(body),
		Children: children,
	}
}

func TestHandledMessageProducesNothing(t *testing.T) {
	types := []stanza.MessageType{
		"", stanza.NormalMessage, stanza.ChatMessage, stanza.HeadlineMessage,
		stanza.GroupChatMessage, stanza.ErrorMessage, "bogus",
	}

	for _, typ := range types {
		c, rec := newMessageClassifier()
		msg := chatMessage("hello", el(namespace.Receipts, "request"))
		msg.Type = typ
		msg.Handled = true

		if err := c.Handle(msg); err != nil {
			t.Fatalf("type %q: Handle returned error: %v", typ, err)
		}
		rec.none(t)
	}
}

func TestChatMessageWithReceiptRequest(t *testing.T) {
	c, rec := newMessageClassifier()

	if err := c.Handle(chatMessage("hello", el(namespace.Receipts, "request"))); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	got := rec.only(t)
	if got.name != event.NameChatMessage {
		t.Fatalf("expected %s, got %s", event.NameChatMessage, got.name)
	}
	if got.source != testSource {
		t.Fatalf("expected source %q, got %v", testSource, got.source)
	}

	msg, ok := got.payload.(event.ChatMessage)
	if !ok {
		t.Fatalf("expected ChatMessage, got %T", got.payload)
	}
	if !msg.UseReceipt {
		t.Fatalf("expected UseReceipt to be true")
	}
	if msg.Body == nil || *msg.Body != "hello" {
		t.Fatalf("unexpected body %v", msg.Body)
	}
	if msg.ID != "m1" {
		t.Fatalf("expected id m1, got %q", msg.ID)
	}

	sender, _ := identity.Resolve(alice)
	recipient, _ := identity.Resolve(bob)
	if !msg.Sender.Equal(sender) || !msg.Recipient.Equal(recipient) {
		t.Fatalf("unexpected addresses %s -> %s", msg.Sender, msg.Recipient)
	}
}

func TestChatMessageWithoutReceiptRequest(t *testing.T) {
	c, rec := newMessageClassifier()

	if err := c.Handle(chatMessage("hello")); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	msg, ok := rec.only(t).payload.(event.ChatMessage)
	if !ok {
		t.Fatalf("expected ChatMessage")
	}
	if msg.UseReceipt {
		t.Fatalf("expected UseReceipt to be false")
	}
}

func TestUseReceiptRequiresSingleReceiptsChild(t *testing.T) {
	ev, err := ClassifyMessage(chatMessage("hello",
		el(namespace.Receipts, "request"),
		el(namespace.Receipts, "received"),
	))
	if err != nil {
		t.Fatalf("ClassifyMessage returned error: %v", err)
	}
	if ev.(event.ChatMessage).UseReceipt {
		t.Fatalf("expected UseReceipt to be false with two receipts children")
	}

	ev, err = ClassifyMessage(chatMessage("hello", el(namespace.Receipts, "received")))
	if err != nil {
		t.Fatalf("ClassifyMessage returned error: %v", err)
	}
	if ev.(event.ChatMessage).UseReceipt {
		t.Fatalf("expected UseReceipt to be false for a received child")
	}
}

func TestNormalAndUnknownTypes(t *testing.T) {
	for _, typ := range []stanza.MessageType{"", stanza.NormalMessage, "bogus"} {
		msg := chatMessage("hi")
		msg.Type = typ

		ev, err := ClassifyMessage(msg)
		if err != nil {
			t.Fatalf("type %q: ClassifyMessage returned error: %v", typ, err)
		}
		if _, ok := ev.(event.NormalMessage); !ok {
			t.Fatalf("type %q: expected NormalMessage, got %T", typ, ev)
		}
		if msg.Type != typ {
			t.Fatalf("classification mutated the input type")
		}
	}
}

func TestHTMLOnlyMessageIsNotEmpty(t *testing.T) {
	msg := chatMessage("")
	msg.Body = nil
	msg.HTML = inbound.Text("<html xmlns='http://jabber.org/protocol/xhtml-im'><body/></html>")

	ev, err := ClassifyMessage(msg)
	if err != nil {
		t.Fatalf("ClassifyMessage returned error: %v", err)
	}
	chat, ok := ev.(event.ChatMessage)
	if !ok {
		t.Fatalf("expected ChatMessage, got %T", ev)
	}
	if chat.Body != nil || chat.HTMLBody == nil {
		t.Fatalf("expected only html body, got body=%v html=%v", chat.Body, chat.HTMLBody)
	}
}

func TestHeadlineAndGroupchatProduceNothing(t *testing.T) {
	for _, typ := range []stanza.MessageType{stanza.HeadlineMessage, stanza.GroupChatMessage} {
		msg := chatMessage("news")
		msg.Type = typ

		ev, err := ClassifyMessage(msg)
		if err != nil {
			t.Fatalf("type %q: ClassifyMessage returned error: %v", typ, err)
		}
		if ev != nil {
			t.Fatalf("type %q: expected no event, got %T", typ, ev)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	c, rec := newMessageClassifier()

	errEl := el(namespace.Client, "error",
		el(namespace.Stanza, "service-unavailable"),
		el(namespace.Stanza, "text"),
	)
	errEl.Attrs = []xml.Attr{{Name: xml.Name{Local: "type"}, Value: "cancel"}}

	msg := chatMessage("still has a body", el(namespace.Receipts, "request"))
	msg.Type = stanza.ErrorMessage
	msg.Error = &errEl

	if err := c.Handle(msg); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	got := rec.only(t)
	errMsg, ok := got.payload.(event.ErrorMessage)
	if !ok {
		t.Fatalf("expected ErrorMessage, got %T", got.payload)
	}
	if got.name != event.NameErrorMessage {
		t.Fatalf("expected %s, got %s", event.NameErrorMessage, got.name)
	}
	if errMsg.ErrorType != stanza.ErrorType("cancel") {
		t.Fatalf("expected cancel, got %q", errMsg.ErrorType)
	}
	if len(errMsg.Conditions) != len(errEl.Children) {
		t.Fatalf("expected %d conditions, got %d", len(errEl.Children), len(errMsg.Conditions))
	}
	want := event.Condition{Name: "service-unavailable", Namespace: namespace.Stanza}
	if errMsg.Conditions[0] != want {
		t.Fatalf("expected %+v, got %+v", want, errMsg.Conditions[0])
	}
}

func TestErrorMessageWithoutErrorElement(t *testing.T) {
	msg := chatMessage("")
	msg.Body = nil
	msg.Type = stanza.ErrorMessage

	ev, err := ClassifyMessage(msg)
	if err != nil {
		t.Fatalf("ClassifyMessage returned error: %v", err)
	}
	errMsg, ok := ev.(event.ErrorMessage)
	if !ok {
		t.Fatalf("expected ErrorMessage, got %T", ev)
	}
	if len(errMsg.Conditions) != 0 || errMsg.ErrorType != "" {
		t.Fatalf("expected empty error details, got %+v", errMsg)
	}
}

func TestComposingIndication(t *testing.T) {
	c, rec := newMessageClassifier()

	msg := chatMessage("", el(namespace.ChatStates, "composing"))
	msg.Body = nil

	if err := c.Handle(msg); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	got := rec.only(t)
	indication, ok := got.payload.(event.ComposingIndication)
	if !ok {
		t.Fatalf("expected ComposingIndication, got %T", got.payload)
	}
	if indication.State != "composing" {
		t.Fatalf("expected composing, got %q", indication.State)
	}
	if got.name != event.NameComposingIndication {
		t.Fatalf("expected %s, got %s", event.NameComposingIndication, got.name)
	}
}

func TestFirstChatStateWins(t *testing.T) {
	msg := chatMessage("",
		el(namespace.Receipts, "received"),
		el(namespace.ChatStates, "paused"),
		el(namespace.ChatStates, "active"),
	)
	msg.Body = nil

	ev, err := ClassifyMessage(msg)
	if err != nil {
		t.Fatalf("ClassifyMessage returned error: %v", err)
	}
	indication, ok := ev.(event.ComposingIndication)
	if !ok {
		t.Fatalf("expected ComposingIndication to win over receipt, got %T", ev)
	}
	if indication.State != "paused" {
		t.Fatalf("expected paused, got %q", indication.State)
	}
}

func TestChatMessageWithBodyIsNotComposing(t *testing.T) {
	ev, err := ClassifyMessage(chatMessage("typing done", el(namespace.ChatStates, "active")))
	if err != nil {
		t.Fatalf("ClassifyMessage returned error: %v", err)
	}
	if _, ok := ev.(event.ChatMessage); !ok {
		t.Fatalf("expected ChatMessage, got %T", ev)
	}
}

func TestReceiptAcknowledgement(t *testing.T) {
	c, rec := newMessageClassifier()

	msg := chatMessage("", el(namespace.Receipts, "received"))
	msg.Body = nil

	if err := c.Handle(msg); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	got := rec.only(t)
	receipt, ok := got.payload.(event.ReceiptAcknowledgement)
	if !ok {
		t.Fatalf("expected ReceiptAcknowledgement, got %T", got.payload)
	}
	if receipt.ID != "m1" {
		t.Fatalf("expected id m1, got %q", receipt.ID)
	}
	if got.name != event.NameReceipt {
		t.Fatalf("expected %s, got %s", event.NameReceipt, got.name)
	}
}

func TestReceiptOnAnyTypeWhenEmpty(t *testing.T) {
	msg := chatMessage("", el(namespace.Receipts, "received"))
	msg.Body = nil
	msg.Type = stanza.HeadlineMessage

	ev, err := ClassifyMessage(msg)
	if err != nil {
		t.Fatalf("ClassifyMessage returned error: %v", err)
	}
	if _, ok := ev.(event.ReceiptAcknowledgement); !ok {
		t.Fatalf("expected ReceiptAcknowledgement, got %T", ev)
	}
}

func TestReceiptRequiresID(t *testing.T) {
	c, rec := newMessageClassifier()

	msg := chatMessage("", el(namespace.Receipts, "received"))
	msg.Body = nil
	msg.ID = ""

	if err := c.Handle(msg); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	rec.none(t)
}

func TestEmptyChatWithoutExtensionsProducesNothing(t *testing.T) {
	c, rec := newMessageClassifier()

	msg := chatMessage("", el(namespace.Receipts, "request"))
	msg.Body = nil

	if err := c.Handle(msg); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	rec.none(t)
}

func TestMessageAddressErrorPropagates(t *testing.T) {
	c, rec := newMessageClassifier()

	msg := chatMessage("hello")
	msg.From = ""

	err := c.Handle(msg)
	var parseErr *identity.AddressParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected AddressParseError, got %v", err)
	}
	rec.none(t)
}

func TestEmittedBodiesDoNotAliasStanza(t *testing.T) {
	msg := chatMessage("original")
	msg.HTML = inbound.Text("<p>original</p>")

	ev, err := ClassifyMessage(msg)
	if err != nil {
		t.Fatalf("ClassifyMessage returned error: %v", err)
	}
	*msg.Body = "changed"
	*msg.HTML = "<p>changed</p>"

	chat := ev.(event.ChatMessage)
	if *chat.Body != "original" || *chat.HTMLBody != "<p>original</p>" {
		t.Fatalf("event changed with the stanza: body=%q html=%q", *chat.Body, *chat.HTMLBody)
	}
}
