package classify

import (
	"testing"

	"github.com/meszmate/stanzaroute/internal/event"
	"github.com/meszmate/stanzaroute/internal/inbound"
	"github.com/meszmate/stanzaroute/internal/logging"
)

type emitted struct {
	name    string
	source  any
	payload event.Event
}

type recorder struct {
	events []emitted
}

func (r *recorder) Emit(name string, source any, payload event.Event) {
	r.events = append(r.events, emitted{name: name, source: source, payload: payload})
}

func (r *recorder) only(t *testing.T) emitted {
	t.Helper()
	if len(r.events) != 1 {
		t.Fatalf("expected exactly one event, got %d: %+v", len(r.events), r.events)
	}
	return r.events[0]
}

func (r *recorder) none(t *testing.T) {
	t.Helper()
	if len(r.events) != 0 {
		t.Fatalf("expected no events, got %+v", r.events)
	}
}

const testSource = "gateway"

func newMessageClassifier() (*MessageClassifier, *recorder) {
	rec := &recorder{}
	return NewMessageClassifier(rec, testSource, logging.Discard()), rec
}

func newPresenceClassifier() (*PresenceClassifier, *recorder) {
	rec := &recorder{}
	return NewPresenceClassifier(rec, testSource, logging.Discard()), rec
}

func newGroupClassifier() (*GroupClassifier, *recorder) {
	rec := &recorder{}
	return NewGroupClassifier(rec, testSource, logging.Discard()), rec
}

func el(space, local string, children ...inbound.Element) inbound.Element {
	e := inbound.Element{Children: children}
	e.XMLName.Space = space
	e.XMLName.Local = local
	return e
}
