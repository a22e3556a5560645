package xmpp

import (
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"net"
	"sync"
	"time"

	"mellium.im/sasl"
	"mellium.im/xmlstream"
	"mellium.im/xmpp"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"github.com/meszmate/stanzaroute/internal/classify"
	"github.com/meszmate/stanzaroute/internal/logging"
)

// Gateway wraps the Mellium XMPP session and feeds inbound stanzas to a
// Router
type Gateway struct {
	session   *xmpp.Session
	jid       jid.JID
	password  string
	server    string
	port      int
	connected bool
	mu        sync.RWMutex

	router *Router
	log    *logging.Logger

	// Handlers
	onConnect    func()
	onDisconnect func(err error)
	onError      func(err error)

	// cancels the current connection's context
	cancel context.CancelFunc
}

// GatewayConfig contains configuration for the gateway session
type GatewayConfig struct {
	JID      string
	Password string
	Server   string
	Port     int
	Resource string

	Router RouterConfig
}

// NewGateway creates a gateway whose classified events go to d
func NewGateway(cfg GatewayConfig, d classify.Dispatcher, logger *logging.Logger) (*Gateway, error) {
	j, err := jid.Parse(cfg.JID)
	if err != nil {
		return nil, fmt.Errorf("invalid JID: %w", err)
	}

	if cfg.Resource != "" {
		j, err = j.WithResource(cfg.Resource)
		if err != nil {
			return nil, fmt.Errorf("invalid resource: %w", err)
		}
	}

	if cfg.Port == 0 {
		cfg.Port = 5222
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &Gateway{
		jid:      j,
		password: cfg.Password,
		server:   cfg.Server,
		port:     cfg.Port,
		router:   NewRouter(d, cfg.Router, logger),
		log:      logger.Named("gateway"),
	}, nil
}

// Router returns the router the gateway feeds
func (g *Gateway) Router() *Router {
	return g.router
}

// Connect establishes a connection to the XMPP server and starts serving
// inbound stanzas. The connect handler runs after the gateway lock is
// released, so it may call back into the gateway.
func (g *Gateway) Connect() error {
	session, ctx, cancel, err := g.open()
	if err != nil || session == nil {
		return err
	}

	if err := session.Encode(ctx, stanza.Presence{}); err != nil {
		g.log.Warn("failed to send initial presence: %v", err)
	}

	go g.serve(ctx, cancel, session)

	g.notifyConnect()
	return nil
}

// open dials and negotiates under the gateway lock. A nil session with a
// nil error means the gateway was already connected.
func (g *Gateway) open() (*xmpp.Session, context.Context, context.CancelFunc, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.connected {
		return nil, nil, nil, nil
	}

	server := g.server
	if server == "" {
		server = g.jid.Domain().String()
	}

	addr := net.JoinHostPort(server, fmt.Sprintf("%d", g.port))

	conn, err := net.DialTimeout("tcp", addr, 30*time.Second)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to dial server: %w", err)
	}

	tlsConfig := &tls.Config{
		ServerName: g.jid.Domain().String(),
		MinVersion: tls.VersionTLS12,
	}

	negotiator := xmpp.NewNegotiator(func(_ *xmpp.Session, _ *xmpp.StreamConfig) xmpp.StreamConfig {
		return xmpp.StreamConfig{
			Features: []xmpp.StreamFeature{
				xmpp.StartTLS(tlsConfig),
				xmpp.SASL("", g.password, sasl.ScramSha256Plus, sasl.ScramSha256, sasl.ScramSha1Plus, sasl.ScramSha1, sasl.Plain),
				xmpp.BindResource(),
			},
		}
	})

	ctx, cancel := g.newSessionContext()

	session, err := xmpp.NewSession(
		ctx,
		g.jid.Domain(),
		g.jid,
		conn,
		0,
		negotiator,
	)
	if err != nil {
		cancel()
		conn.Close()
		return nil, nil, nil, fmt.Errorf("failed to negotiate session: %w", err)
	}

	g.session = session
	g.connected = true

	// Update JID with resource from server
	g.jid = session.LocalAddr()
	g.log.Info("connected as %s", g.jid)

	return session, ctx, cancel, nil
}

// newSessionContext replaces the per-connection context. Callers hold g.mu.
func (g *Gateway) newSessionContext() (context.Context, context.CancelFunc) {
	if g.cancel != nil {
		g.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	return ctx, cancel
}

func (g *Gateway) notifyConnect() {
	g.mu.RLock()
	handler := g.onConnect
	g.mu.RUnlock()

	if handler != nil {
		handler()
	}
}

func (g *Gateway) notifyDisconnect(err error) {
	g.mu.RLock()
	onError, onDisconnect := g.onError, g.onDisconnect
	g.mu.RUnlock()

	if err != nil && onError != nil {
		onError(err)
	}
	if onDisconnect != nil {
		onDisconnect(err)
	}
}

// Disconnect closes the XMPP connection
func (g *Gateway) Disconnect() error {
	g.mu.Lock()
	if !g.connected {
		g.mu.Unlock()
		return nil
	}

	if g.cancel != nil {
		g.cancel()
	}

	if g.session != nil {
		_ = g.session.Encode(context.Background(), stanza.Presence{Type: stanza.UnavailablePresence})
		_ = g.session.Close()
	}

	g.connected = false
	g.session = nil
	g.mu.Unlock()

	g.log.Info("disconnected")
	g.notifyDisconnect(nil)
	return nil
}

func (g *Gateway) serve(ctx context.Context, cancel context.CancelFunc, session *xmpp.Session) {
	err := session.Serve(xmpp.HandlerFunc(func(t xmlstream.TokenReadEncoder, start *xml.StartElement) error {
		return g.handleStanza(ctx, t, start)
	}))
	cancel()
	g.router.Wait()

	g.mu.Lock()
	wasConnected := g.connected && g.session == session
	if wasConnected {
		g.connected = false
		g.session = nil
	}
	g.mu.Unlock()

	if !wasConnected {
		return
	}

	if err != nil {
		g.log.Error("session ended: %v", err)
	}
	g.notifyDisconnect(err)
}

// handleStanza processes one top-level element. Malformed stanzas are
// logged and dropped so one bad peer cannot end the session.
func (g *Gateway) handleStanza(ctx context.Context, t xmlstream.TokenReadEncoder, start *xml.StartElement) error {
	d := xml.NewTokenDecoder(t)

	if err := g.router.Route(ctx, d, *start); err != nil {
		g.log.Warn("dropped %s stanza: %v", start.Name.Local, err)
	}
	return nil
}

// IsConnected returns whether the gateway is connected
func (g *Gateway) IsConnected() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.connected
}

// JID returns the gateway's JID
func (g *Gateway) JID() jid.JID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.jid
}

// SetConnectHandler sets the connect handler
func (g *Gateway) SetConnectHandler(handler func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onConnect = handler
}

// SetDisconnectHandler sets the disconnect handler
func (g *Gateway) SetDisconnectHandler(handler func(err error)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onDisconnect = handler
}

// SetErrorHandler sets the error handler
func (g *Gateway) SetErrorHandler(handler func(err error)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onError = handler
}
