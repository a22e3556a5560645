package classify

import (
	"mellium.im/xmpp/stanza"

	"github.com/meszmate/stanzaroute/internal/event"
	"github.com/meszmate/stanzaroute/internal/inbound"
	"github.com/meszmate/stanzaroute/internal/logging"
	"github.com/meszmate/stanzaroute/internal/namespace"
)

var messageTypes = map[stanza.MessageType]bool{
	stanza.NormalMessage:    true,
	stanza.ChatMessage:      true,
	stanza.HeadlineMessage:  true,
	stanza.GroupChatMessage: true,
	stanza.ErrorMessage:     true,
}

// normalizeMessageType maps absent and unknown types to normal
func normalizeMessageType(t stanza.MessageType) stanza.MessageType {
	if messageTypes[t] {
		return t
	}
	return stanza.NormalMessage
}

// ClassifyMessage decides which event a one-to-one message stanza
// represents. The checks run in order and the first match wins. A nil
// event with a nil error means the stanza carries nothing to report.
func ClassifyMessage(m inbound.Message) (event.Event, error) {
	if m.Handled {
		return nil, nil
	}

	typ := normalizeMessageType(m.Type)

	h, err := resolveHeader(m.From, m.To, m.ID)
	if err != nil {
		return nil, err
	}

	if typ == stanza.ErrorMessage {
		return errorMessage(h, m.Error), nil
	}

	empty := m.Empty()

	if (typ == stanza.NormalMessage || typ == stanza.ChatMessage) && !empty {
		useReceipt := false
		if m.CountChildren(namespace.Receipts) == 1 {
			receipt, _ := m.FirstChild(namespace.Receipts)
			useReceipt = receipt.Local() == "request"
		}

		if typ == stanza.ChatMessage {
			return event.ChatMessage{
				Header:     h,
				Body:       event.CopyText(m.Body),
				HTMLBody:   event.CopyText(m.HTML),
				UseReceipt: useReceipt,
			}, nil
		}
		return event.NormalMessage{
			Header:     h,
			Body:       event.CopyText(m.Body),
			HTMLBody:   event.CopyText(m.HTML),
			UseReceipt: useReceipt,
		}, nil
	}

	if typ == stanza.ChatMessage && empty {
		if state, ok := m.FirstChild(namespace.ChatStates); ok {
			return event.ComposingIndication{Header: h, State: state.Local()}, nil
		}
	}

	if empty && m.ID != "" {
		if receipt, ok := m.FirstChild(namespace.Receipts); ok && receipt.Local() == "received" {
			return event.ReceiptAcknowledgement{Header: h}, nil
		}
	}

	return nil, nil
}

func errorMessage(h event.Header, el *inbound.Element) event.ErrorMessage {
	msg := event.ErrorMessage{Header: h, Conditions: []event.Condition{}}
	if el == nil {
		return msg
	}

	if typ, ok := el.Attr("type"); ok {
		msg.ErrorType = stanza.ErrorType(typ)
	}
	for _, child := range el.Children {
		msg.Conditions = append(msg.Conditions, event.Condition{
			Name:      child.Local(),
			Namespace: child.Space(),
		})
	}
	return msg
}

// MessageClassifier emits the event for each one-to-one message stanza
type MessageClassifier struct {
	base
}

// NewMessageClassifier creates a message classifier emitting to d
func NewMessageClassifier(d Dispatcher, source any, logger *logging.Logger) *MessageClassifier {
	return &MessageClassifier{base: newBase(d, source, logger, "message")}
}

// Handle classifies m and emits at most one event. Address errors are
// returned and nothing is emitted.
func (c *MessageClassifier) Handle(m inbound.Message) error {
	ev, err := ClassifyMessage(m)
	if err != nil {
		return err
	}
	if ev == nil {
		c.log.Debug("no event for message id=%q type=%q from %s", m.ID, m.Type, m.From)
		return nil
	}
	c.emit(ev)
	return nil
}
