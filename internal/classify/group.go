package classify

import (
	"mellium.im/xmpp/stanza"

	"github.com/meszmate/stanzaroute/internal/event"
	"github.com/meszmate/stanzaroute/internal/inbound"
	"github.com/meszmate/stanzaroute/internal/logging"
)

var groupMessageTypes = map[stanza.MessageType]bool{
	stanza.NormalMessage:    true,
	stanza.ChatMessage:      true,
	stanza.GroupChatMessage: true,
}

// ClassifyGroupMessage decides what a message sent inside a room means.
// Errors are not reported and private messages (normal or chat) are
// dropped: only groupchat messages produce an event.
func ClassifyGroupMessage(m inbound.Message) (event.Event, error) {
	if m.Handled || m.Type == stanza.ErrorMessage {
		return nil, nil
	}

	typ := m.Type
	if !groupMessageTypes[typ] {
		typ = stanza.NormalMessage
	}
	if typ != stanza.GroupChatMessage {
		return nil, nil
	}

	h, err := resolveHeader(m.From, m.To, m.ID)
	if err != nil {
		return nil, err
	}
	return event.GroupMessage{Header: h, Body: event.CopyText(m.Body), HTMLBody: event.CopyText(m.HTML)}, nil
}

// ClassifyGroupAvailable builds the join event for an occupant
func ClassifyGroupAvailable(p inbound.Presence) (event.Event, error) {
	return groupAvailability(p, true)
}

// ClassifyGroupUnavailable builds the leave event for an occupant
func ClassifyGroupUnavailable(p inbound.Presence) (event.Event, error) {
	return groupAvailability(p, false)
}

func groupAvailability(p inbound.Presence, available bool) (event.Event, error) {
	if p.Handled {
		return nil, nil
	}
	h, err := resolveHeader(p.From, p.To, p.ID)
	if err != nil {
		return nil, err
	}
	return event.GroupPresenceAvailability{Header: h, Available: available}, nil
}

// ClassifyGroupPresence selects join or leave from the presence type.
// Other presence types inside a room produce no event.
func ClassifyGroupPresence(p inbound.Presence) (event.Event, error) {
	switch p.Type {
	case stanza.AvailablePresence:
		return ClassifyGroupAvailable(p)
	case stanza.UnavailablePresence:
		return ClassifyGroupUnavailable(p)
	default:
		return nil, nil
	}
}

// GroupClassifier emits events for multi-user chat traffic
type GroupClassifier struct {
	base
}

// NewGroupClassifier creates a group classifier emitting to d
func NewGroupClassifier(d Dispatcher, source any, logger *logging.Logger) *GroupClassifier {
	return &GroupClassifier{base: newBase(d, source, logger, "muc")}
}

// Message handles a message addressed to a room
func (c *GroupClassifier) Message(m inbound.Message) error {
	ev, err := ClassifyGroupMessage(m)
	if err != nil {
		return err
	}
	if ev == nil {
		// TODO: answer private room messages with a not-acceptable error once outbound stanzas exist
		c.log.Debug("dropping room message id=%q type=%q from %s", m.ID, m.Type, m.From)
		return nil
	}
	c.emit(ev)
	return nil
}

// Available handles an occupant joining
func (c *GroupClassifier) Available(p inbound.Presence) error {
	return c.deliver(ClassifyGroupAvailable(p))
}

// Unavailable handles an occupant leaving
func (c *GroupClassifier) Unavailable(p inbound.Presence) error {
	return c.deliver(ClassifyGroupUnavailable(p))
}

// Presence dispatches p by type
func (c *GroupClassifier) Presence(p inbound.Presence) error {
	return c.deliver(ClassifyGroupPresence(p))
}
