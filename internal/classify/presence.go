package classify

import (
	"mellium.im/xmpp/stanza"

	"github.com/meszmate/stanzaroute/internal/event"
	"github.com/meszmate/stanzaroute/internal/inbound"
	"github.com/meszmate/stanzaroute/internal/logging"
)

// ClassifyAvailable builds the availability event for an available presence
func ClassifyAvailable(p inbound.Presence) (event.Event, error) {
	if p.Handled {
		return nil, nil
	}
	h, err := resolveHeader(p.From, p.To, p.ID)
	if err != nil {
		return nil, err
	}
	return event.PresenceAvailability{
		Header:    h,
		Available: true,
		Show:      p.Show,
		Statuses:  event.CopyStatuses(p.Statuses),
	}, nil
}

// ClassifyUnavailable builds the availability event for an unavailable
// presence. Show and statuses are never carried over.
func ClassifyUnavailable(p inbound.Presence) (event.Event, error) {
	if p.Handled {
		return nil, nil
	}
	h, err := resolveHeader(p.From, p.To, p.ID)
	if err != nil {
		return nil, err
	}
	return event.PresenceAvailability{
		Header:    h,
		Available: false,
		Statuses:  map[string]string{},
	}, nil
}

// ClassifySubscription handles subscribe, unsubscribe, subscribed and
// unsubscribed alike; only the type label differs.
func ClassifySubscription(p inbound.Presence) (event.Event, error) {
	if p.Handled {
		return nil, nil
	}
	h, err := resolveHeader(p.From, p.To, p.ID)
	if err != nil {
		return nil, err
	}
	return event.PresenceSubscription{Header: h, SubscriptionType: p.Type}, nil
}

// ClassifyProbe builds the probe event
func ClassifyProbe(p inbound.Presence) (event.Event, error) {
	if p.Handled {
		return nil, nil
	}
	h, err := resolveHeader(p.From, p.To, p.ID)
	if err != nil {
		return nil, err
	}
	return event.PresenceProbe{Header: h}, nil
}

// ClassifyPresence selects the entry point from the presence type.
// Error presences and unknown types produce no event.
func ClassifyPresence(p inbound.Presence) (event.Event, error) {
	switch p.Type {
	case stanza.AvailablePresence:
		return ClassifyAvailable(p)
	case stanza.UnavailablePresence:
		return ClassifyUnavailable(p)
	case stanza.SubscribePresence, stanza.UnsubscribePresence,
		stanza.SubscribedPresence, stanza.UnsubscribedPresence:
		return ClassifySubscription(p)
	case stanza.ProbePresence:
		return ClassifyProbe(p)
	default:
		return nil, nil
	}
}

// PresenceClassifier emits the event for each one-to-one presence stanza
type PresenceClassifier struct {
	base
}

// NewPresenceClassifier creates a presence classifier emitting to d
func NewPresenceClassifier(d Dispatcher, source any, logger *logging.Logger) *PresenceClassifier {
	return &PresenceClassifier{base: newBase(d, source, logger, "presence")}
}

// Available handles an available presence
func (c *PresenceClassifier) Available(p inbound.Presence) error {
	return c.deliver(ClassifyAvailable(p))
}

// Unavailable handles an unavailable presence
func (c *PresenceClassifier) Unavailable(p inbound.Presence) error {
	return c.deliver(ClassifyUnavailable(p))
}

// Subscription handles the four subscription presence types
func (c *PresenceClassifier) Subscription(p inbound.Presence) error {
	return c.deliver(ClassifySubscription(p))
}

// Probe handles a probe presence
func (c *PresenceClassifier) Probe(p inbound.Presence) error {
	return c.deliver(ClassifyProbe(p))
}

// Route dispatches p to the entry point for its type
func (c *PresenceClassifier) Route(p inbound.Presence) error {
	ev, err := ClassifyPresence(p)
	if err != nil {
		return err
	}
	if ev == nil {
		c.log.Debug("no event for presence type=%q from %s", p.Type, p.From)
		return nil
	}
	c.emit(ev)
	return nil
}
