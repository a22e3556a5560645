package classify

import (
	"github.com/google/uuid"
	"mellium.im/xmpp/jid"

	"github.com/meszmate/stanzaroute/internal/event"
	"github.com/meszmate/stanzaroute/internal/identity"
	"github.com/meszmate/stanzaroute/internal/logging"
	"github.com/meszmate/stanzaroute/internal/promise"
	"github.com/meszmate/stanzaroute/internal/xmpp/disco"
)

// DiscoBridge turns service discovery requests into events carrying a
// result slot. Some subscriber must settle the slot; the bridge neither
// waits for nor inspects the answer.
type DiscoBridge struct {
	base
	newID func() string
}

// NewDiscoBridge creates a disco bridge emitting to d
func NewDiscoBridge(d Dispatcher, source any, logger *logging.Logger) *DiscoBridge {
	return &DiscoBridge{
		base:  newBase(d, source, logger, "disco"),
		newID: uuid.NewString,
	}
}

func (b *DiscoBridge) request(requestor, target jid.JID, node string) event.DiscoRequest {
	return event.DiscoRequest{
		Sender:    identity.FromJID(requestor),
		Target:    identity.FromJID(target),
		Node:      node,
		RequestID: b.newID(),
	}
}

// RequestInfo emits a disco#info request and returns its pending result
func (b *DiscoBridge) RequestInfo(requestor, target jid.JID, node string) *promise.Result[disco.Info] {
	result := promise.New[disco.Info]()
	req := b.request(requestor, target, node)

	b.log.Debug("info request %s from %s to %s node=%q", req.RequestID, requestor, target, node)
	b.emit(event.DiscoInfoRequested{DiscoRequest: req, Result: result})
	return result
}

// RequestItems emits a disco#items request and returns its pending result
func (b *DiscoBridge) RequestItems(requestor, target jid.JID, node string) *promise.Result[[]disco.Item] {
	result := promise.New[[]disco.Item]()
	req := b.request(requestor, target, node)

	b.log.Debug("items request %s from %s to %s node=%q", req.RequestID, requestor, target, node)
	b.emit(event.DiscoItemsRequested{DiscoRequest: req, Result: result})
	return result
}
