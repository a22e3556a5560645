package xmpp

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"github.com/meszmate/stanzaroute/internal/classify"
	"github.com/meszmate/stanzaroute/internal/inbound"
	"github.com/meszmate/stanzaroute/internal/logging"
	"github.com/meszmate/stanzaroute/internal/namespace"
	"github.com/meszmate/stanzaroute/internal/xmpp/disco"
)

// DiscoResult is the settled outcome of one inbound disco query
type DiscoResult struct {
	Query inbound.IQ
	Node  string
	Info  *disco.Info
	Items []disco.Item
	Err   error

	// Elapsed is the time spent waiting for the answer
	Elapsed time.Duration
}

// RouterConfig contains routing settings
type RouterConfig struct {
	// MUCDomains are service domains whose presences take the group path
	MUCDomains []string

	// DiscoTimeout bounds the wait for a disco answer
	DiscoTimeout time.Duration
}

// Router decodes top-level stanzas and hands them to the classifiers
type Router struct {
	messages  *classify.MessageClassifier
	presences *classify.PresenceClassifier
	groups    *classify.GroupClassifier
	bridge    *classify.DiscoBridge

	mucDomains   map[string]struct{}
	discoTimeout time.Duration
	log          *logging.Logger

	mu            sync.RWMutex
	onDiscoResult func(DiscoResult)
	pending       sync.WaitGroup
}

// NewRouter creates a router emitting every classified event to d
func NewRouter(d classify.Dispatcher, cfg RouterConfig, logger *logging.Logger) *Router {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.DiscoTimeout <= 0 {
		cfg.DiscoTimeout = 5 * time.Second
	}

	domains := make(map[string]struct{}, len(cfg.MUCDomains))
	for _, domain := range cfg.MUCDomains {
		domains[strings.ToLower(domain)] = struct{}{}
	}

	return &Router{
		messages:     classify.NewMessageClassifier(d, "message", logger),
		presences:    classify.NewPresenceClassifier(d, "presence", logger),
		groups:       classify.NewGroupClassifier(d, "group", logger),
		bridge:       classify.NewDiscoBridge(d, "disco", logger),
		mucDomains:   domains,
		discoTimeout: cfg.DiscoTimeout,
		log:          logger.Named("router"),
	}
}

// SetDiscoResultHandler sets the hook called once per answered disco query.
// It runs on a per-query goroutine.
func (r *Router) SetDiscoResultHandler(handler func(DiscoResult)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDiscoResult = handler
}

// Route consumes the element opened by start. Disco queries return as soon
// as the request is emitted; the outcome goes to the disco result handler
// once the answer settles or the timeout passes.
func (r *Router) Route(ctx context.Context, d *xml.Decoder, start xml.StartElement) error {
	switch start.Name.Local {
	case "message":
		m, err := inbound.DecodeMessage(d, &start)
		if err != nil {
			return err
		}
		if m.Type == stanza.GroupChatMessage || r.isGroupAddress(m.From) {
			return r.groups.Message(m)
		}
		return r.messages.Handle(m)

	case "presence":
		p, err := inbound.DecodePresence(d, &start)
		if err != nil {
			return err
		}
		if r.isGroupPresence(p) {
			return r.groups.Presence(p)
		}
		return r.presences.Route(p)

	case "iq":
		iq, err := inbound.DecodeIQ(d, &start)
		if err != nil {
			return err
		}
		return r.routeIQ(ctx, iq)
	}

	r.log.Debug("skipping unknown element %s", start.Name.Local)
	return d.Skip()
}

func (r *Router) isGroupPresence(p inbound.Presence) bool {
	return r.isGroupAddress(p.To)
}

// isGroupAddress reports whether raw belongs to a configured MUC service
func (r *Router) isGroupAddress(raw string) bool {
	if len(r.mucDomains) == 0 || raw == "" {
		return false
	}
	j, err := jid.Parse(raw)
	if err != nil {
		return false
	}
	_, ok := r.mucDomains[strings.ToLower(j.Domainpart())]
	return ok
}

func (r *Router) routeIQ(ctx context.Context, iq inbound.IQ) error {
	if iq.Type != stanza.GetIQ || iq.Query == nil || iq.Query.Local() != "query" {
		return nil
	}

	space := iq.Query.Space()
	if space != namespace.DiscoInfo && space != namespace.DiscoItems {
		return nil
	}

	requestor, err := jid.Parse(iq.From)
	if err != nil {
		return fmt.Errorf("invalid disco requestor %q: %w", iq.From, err)
	}
	target, err := jid.Parse(iq.To)
	if err != nil {
		return fmt.Errorf("invalid disco target %q: %w", iq.To, err)
	}
	node, _ := iq.Query.Attr("node")

	result := DiscoResult{Query: iq, Node: node}
	started := time.Now()

	if space == namespace.DiscoInfo {
		slot := r.bridge.RequestInfo(requestor, target, node)
		r.await(ctx, result, started, func(ctx context.Context, res *DiscoResult) {
			info, err := slot.Wait(ctx)
			if err == nil {
				res.Info = &info
			}
			res.Err = err
		})
		return nil
	}

	slot := r.bridge.RequestItems(requestor, target, node)
	r.await(ctx, result, started, func(ctx context.Context, res *DiscoResult) {
		items, err := slot.Wait(ctx)
		if err == nil {
			res.Items = items
		}
		res.Err = err
	})
	return nil
}

// await waits for one disco slot on its own goroutine so the stanza reader
// keeps going, then hands the outcome to the disco result handler
func (r *Router) await(ctx context.Context, result DiscoResult, started time.Time, wait func(context.Context, *DiscoResult)) {
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()

		ctx, cancel := context.WithTimeout(ctx, r.discoTimeout)
		defer cancel()

		wait(ctx, &result)
		result.Elapsed = time.Since(started)

		if errors.Is(result.Err, context.DeadlineExceeded) {
			r.log.Warn("disco query %s from %s timed out", result.Query.ID, result.Query.From)
		}

		r.mu.RLock()
		handler := r.onDiscoResult
		r.mu.RUnlock()
		if handler != nil {
			handler(result)
		}
	}()
}

// Wait blocks until every disco query in flight has been handed to the
// result handler
func (r *Router) Wait() {
	r.pending.Wait()
}
