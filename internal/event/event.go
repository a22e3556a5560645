// Package event defines the semantic events produced from inbound stanzas.
// Every payload is built once by a classifier and never modified afterwards.
package event

import (
	"maps"

	"mellium.im/xmpp/stanza"

	"github.com/meszmate/stanzaroute/internal/identity"
	"github.com/meszmate/stanzaroute/internal/promise"
	"github.com/meszmate/stanzaroute/internal/xmpp/disco"
)

// Event names, as seen by subscribers
const (
	NameErrorMessage              = "GotErrorMessage"
	NameChatMessage               = "GotChatMessage"
	NameNormalMessage             = "GotNormalMessage"
	NameComposingIndication       = "GotComposingIndication"
	NameReceipt                   = "GotReceipt"
	NamePresenceAvailability      = "GotPresenceAvailability"
	NamePresenceSubscription      = "GotPresenceSubscriptionStatus"
	NamePresenceProbe             = "GotPresenceProbe"
	NameGroupChat                 = "MucGotGroupChat"
	NameGroupPresenceAvailability = "MucGotPresenceAvailability"
	NameDiscoInfoRequest          = "GotDiscoInfoRequest"
	NameDiscoItemsRequest         = "GotDiscoItemsRequest"
)

// Names lists every event name in a stable order
var Names = []string{
	NameErrorMessage,
	NameChatMessage,
	NameNormalMessage,
	NameComposingIndication,
	NameReceipt,
	NamePresenceAvailability,
	NamePresenceSubscription,
	NamePresenceProbe,
	NameGroupChat,
	NameGroupPresenceAvailability,
	NameDiscoInfoRequest,
	NameDiscoItemsRequest,
}

// Event is one classified stanza
type Event interface {
	// Name returns the event name subscribers listen for
	Name() string

	// From returns the originating address
	From() identity.Identity
}

// Header is carried by every stanza event
type Header struct {
	Sender    identity.Identity
	Recipient identity.Identity

	// ID is the stanza id, empty when the stanza had none
	ID string
}

func (h Header) From() identity.Identity {
	return h.Sender
}

// Envelope returns the header of any payload embedding it
func (h Header) Envelope() Header {
	return h
}

// Condition is one child of a stanza error element
type Condition struct {
	Name      string
	Namespace string
}

type ErrorMessage struct {
	Header
	ErrorType  stanza.ErrorType
	Conditions []Condition
}

func (ErrorMessage) Name() string { return NameErrorMessage }

type ChatMessage struct {
	Header
	Body       *string
	HTMLBody   *string
	UseReceipt bool
}

func (ChatMessage) Name() string { return NameChatMessage }

type NormalMessage struct {
	Header
	Body       *string
	HTMLBody   *string
	UseReceipt bool
}

func (NormalMessage) Name() string { return NameNormalMessage }

// ComposingIndication carries a chat state such as composing or paused
type ComposingIndication struct {
	Header
	State string
}

func (ComposingIndication) Name() string { return NameComposingIndication }

// ReceiptAcknowledgement confirms delivery of the message with Header.ID
type ReceiptAcknowledgement struct {
	Header
}

func (ReceiptAcknowledgement) Name() string { return NameReceipt }

type PresenceAvailability struct {
	Header
	Available bool
	Show      string
	Statuses  map[string]string
}

func (PresenceAvailability) Name() string { return NamePresenceAvailability }

// Status returns the status text for lang, falling back to the untagged one
func (p PresenceAvailability) Status(lang string) string {
	if s, ok := p.Statuses[lang]; ok {
		return s
	}
	return p.Statuses[""]
}

type PresenceSubscription struct {
	Header
	SubscriptionType stanza.PresenceType
}

func (PresenceSubscription) Name() string { return NamePresenceSubscription }

type PresenceProbe struct {
	Header
}

func (PresenceProbe) Name() string { return NamePresenceProbe }

type GroupMessage struct {
	Header
	Body     *string
	HTMLBody *string
}

func (GroupMessage) Name() string { return NameGroupChat }

// GroupPresenceAvailability reports an occupant joining or leaving a room
type GroupPresenceAvailability struct {
	Header
	Available bool
}

func (GroupPresenceAvailability) Name() string { return NameGroupPresenceAvailability }

// DiscoRequest is carried by both disco request events
type DiscoRequest struct {
	Sender    identity.Identity
	Target    identity.Identity
	Node      string
	RequestID string
}

func (d DiscoRequest) From() identity.Identity {
	return d.Sender
}

// DiscoInfoRequested must have its Result settled by exactly one subscriber
type DiscoInfoRequested struct {
	DiscoRequest
	Result *promise.Result[disco.Info] `json:"-"`
}

func (DiscoInfoRequested) Name() string { return NameDiscoInfoRequest }

// DiscoItemsRequested must have its Result settled by exactly one subscriber
type DiscoItemsRequested struct {
	DiscoRequest
	Result *promise.Result[[]disco.Item] `json:"-"`
}

func (DiscoItemsRequested) Name() string { return NameDiscoItemsRequest }

// CopyStatuses returns an independent copy; never nil
func CopyStatuses(statuses map[string]string) map[string]string {
	if len(statuses) == 0 {
		return map[string]string{}
	}
	return maps.Clone(statuses)
}

// CopyText returns a pointer to a copy of *s, or nil
func CopyText(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
