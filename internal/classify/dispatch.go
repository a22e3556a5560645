// Package classify turns inbound stanzas into semantic events.
//
// Each stanza kind has a pure Classify function returning the single event
// the stanza represents, or nil when it carries nothing actionable, and a
// classifier type that runs the function and hands the result to a
// Dispatcher.
package classify

import (
	"github.com/meszmate/stanzaroute/internal/event"
	"github.com/meszmate/stanzaroute/internal/identity"
	"github.com/meszmate/stanzaroute/internal/logging"
)

// Dispatcher receives classified events. Emit has no result: delivery is
// fire-and-forget from the classifier's point of view.
type Dispatcher interface {
	Emit(name string, source any, payload event.Event)
}

// DispatcherFunc adapts a function to the Dispatcher interface
type DispatcherFunc func(name string, source any, payload event.Event)

// Emit calls f
func (f DispatcherFunc) Emit(name string, source any, payload event.Event) {
	f(name, source, payload)
}

// base holds what every classifier needs to emit
type base struct {
	dispatcher Dispatcher
	source     any
	log        *logging.Logger
}

func newBase(d Dispatcher, source any, logger *logging.Logger, component string) base {
	if logger == nil {
		logger = logging.Default()
	}
	return base{
		dispatcher: d,
		source:     source,
		log:        logger.Named(component),
	}
}

func (b base) emit(ev event.Event) {
	b.dispatcher.Emit(ev.Name(), b.source, ev)
}

// deliver emits ev if the classification produced one
func (b base) deliver(ev event.Event, err error) error {
	if err != nil {
		return err
	}
	if ev != nil {
		b.emit(ev)
	}
	return nil
}

func resolveHeader(from, to, id string) (event.Header, error) {
	sender, err := identity.Resolve(from)
	if err != nil {
		return event.Header{}, err
	}
	recipient, err := identity.Resolve(to)
	if err != nil {
		return event.Header{}, err
	}
	return event.Header{Sender: sender, Recipient: recipient, ID: id}, nil
}
