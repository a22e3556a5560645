// Package features answers service discovery requests raised on the bus.
package features

import (
	"context"
	"errors"
	"time"

	"mellium.im/xmpp/jid"

	"github.com/meszmate/stanzaroute/internal/bus"
	"github.com/meszmate/stanzaroute/internal/event"
	"github.com/meszmate/stanzaroute/internal/logging"
	"github.com/meszmate/stanzaroute/internal/xmpp/disco"
)

// ErrNotFound settles a request nobody can answer
var ErrNotFound = errors.New("features: no disco information for target")

// Provider contributes disco answers, typically from a plugin. A provider
// that knows nothing about a target returns empty results and no error.
type Provider interface {
	Name() string
	Info(ctx context.Context, target jid.JID, node string) (disco.Info, error)
	Items(ctx context.Context, target jid.JID, node string) ([]disco.Item, error)
}

// Responder settles every disco request slot exactly once, combining the
// static cache with the registered providers
type Responder struct {
	cache     *disco.Cache
	providers []Provider
	timeout   time.Duration
	log       *logging.Logger
}

// NewResponder creates a responder answering from cache and providers
func NewResponder(cache *disco.Cache, timeout time.Duration, logger *logging.Logger, providers ...Provider) *Responder {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Responder{
		cache:     cache,
		providers: providers,
		timeout:   timeout,
		log:       logger.Named("features"),
	}
}

// Attach subscribes the responder to disco request events. Only one
// responder may be attached to a bus.
func (r *Responder) Attach(b *bus.EventBus) {
	b.Subscribe(event.NameDiscoInfoRequest, r.handle)
	b.Subscribe(event.NameDiscoItemsRequest, r.handle)
}

func (r *Responder) handle(n bus.Notification) {
	switch ev := n.Payload.(type) {
	case event.DiscoInfoRequested:
		go r.answerInfo(ev)
	case event.DiscoItemsRequested:
		go r.answerItems(ev)
	}
}

func (r *Responder) answerInfo(ev event.DiscoInfoRequested) {
	info, err := r.Info(ev.Target.JID(), ev.Node)
	if err != nil {
		r.log.Debug("info request %s: %v", ev.RequestID, err)
		ev.Result.Reject(err)
		return
	}
	ev.Result.Resolve(info)
}

func (r *Responder) answerItems(ev event.DiscoItemsRequested) {
	items, err := r.Items(ev.Target.JID(), ev.Node)
	if err != nil {
		r.log.Debug("items request %s: %v", ev.RequestID, err)
		ev.Result.Reject(err)
		return
	}
	ev.Result.Resolve(items)
}

// Info gathers disco#info for target and node
func (r *Responder) Info(target jid.JID, node string) (disco.Info, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	var answers []disco.Info
	if cached := r.cache.GetInfo(target, node); cached != nil {
		answers = append(answers, *cached)
	}
	for _, p := range r.providers {
		info, err := p.Info(ctx, target, node)
		if err != nil {
			r.log.Warn("provider %s failed for %s: %v", p.Name(), target, err)
			continue
		}
		if len(info.Identities) > 0 || len(info.Features) > 0 {
			answers = append(answers, info)
		}
	}

	if len(answers) == 0 {
		return disco.Info{}, ErrNotFound
	}
	return disco.MergeInfo(answers...), nil
}

// Items gathers disco#items for target and node. An empty list is a
// valid answer when the target itself is known.
func (r *Responder) Items(target jid.JID, node string) ([]disco.Item, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	lists := [][]disco.Item{r.cache.GetItems(target, node)}
	for _, p := range r.providers {
		items, err := p.Items(ctx, target, node)
		if err != nil {
			r.log.Warn("provider %s failed for %s: %v", p.Name(), target, err)
			continue
		}
		lists = append(lists, items)
	}

	items := disco.MergeItems(lists...)
	if len(items) == 0 && r.cache.GetInfo(target, "") == nil {
		return nil, ErrNotFound
	}
	if items == nil {
		items = []disco.Item{}
	}
	return items, nil
}
