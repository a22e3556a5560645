// Package app assembles the gateway: event bus, classifiers, trackers,
// journal, plugins, metrics and the optional monitor.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"mellium.im/xmpp/jid"

	"github.com/meszmate/stanzaroute/internal/bus"
	"github.com/meszmate/stanzaroute/internal/config"
	"github.com/meszmate/stanzaroute/internal/logging"
	"github.com/meszmate/stanzaroute/internal/metrics"
	"github.com/meszmate/stanzaroute/internal/storage/sqlite"
	"github.com/meszmate/stanzaroute/internal/ui"
	"github.com/meszmate/stanzaroute/internal/xmpp"
	"github.com/meszmate/stanzaroute/internal/xmpp/chat"
	"github.com/meszmate/stanzaroute/internal/xmpp/disco"
	"github.com/meszmate/stanzaroute/internal/xmpp/features"
	"github.com/meszmate/stanzaroute/internal/xmpp/presence"
	"github.com/meszmate/stanzaroute/pkg/plugin"
)

// chatHistoryLimit bounds the messages kept per conversation
const chatHistoryLimit = 500

// App owns every long-lived component of a running gateway
type App struct {
	cfg *config.Config
	log *logging.Logger

	bus       *bus.EventBus
	cache     *disco.Cache
	responder *features.Responder
	presence  *presence.Manager
	chats     *chat.Manager
	plugins   *plugin.Host
	gateway   *xmpp.Gateway
	metrics   *metrics.Metrics
	server    *http.Server

	// SQLite journal, nil when disabled
	storage *sqlite.DB

	mu      sync.RWMutex
	program *tea.Program

	closeOnce sync.Once
}

// New creates a new App instance. The gateway is only built when an
// account JID is configured.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	a := &App{
		cfg:      cfg,
		log:      logger.Named("app"),
		bus:      bus.New(),
		cache:    disco.NewCache(),
		presence: presence.NewManager(),
		chats:    chat.NewManager(chatHistoryLimit),
		metrics:  metrics.New(),
	}

	if cfg.Journal.Enabled {
		storage, err := sqlite.New(cfg.General.DataDir)
		if err != nil {
			return nil, err
		}
		a.storage = storage
		if removed, err := storage.Prune(cfg.Journal.RetentionDays); err != nil {
			a.log.Warn("failed to prune journal: %v", err)
		} else if removed > 0 {
			a.log.Info("pruned %d journal entries", removed)
		}
		storage.Attach(a.bus, logger)
	}

	a.presence.Attach(a.bus)
	a.chats.Attach(a.bus)
	a.metrics.Attach(a.bus)

	a.plugins = plugin.NewHost(cfg.Plugins.PluginDir, cfg.Plugins.Enabled, logger)
	if err := a.plugins.LoadAll(); err != nil {
		a.log.Warn("failed to load plugins: %v", err)
	}

	a.responder = features.NewResponder(a.cache, cfg.Disco.Timeout.Duration, logger, a.plugins.Providers()...)
	a.responder.Attach(a.bus)

	if cfg.Account.JID != "" {
		if err := a.buildGateway(logger); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

func (a *App) buildGateway(logger *logging.Logger) error {
	gw, err := xmpp.NewGateway(xmpp.GatewayConfig{
		JID:      a.cfg.Account.JID,
		Password: a.cfg.Account.Password,
		Server:   a.cfg.Account.Server,
		Port:     a.cfg.Account.Port,
		Resource: a.cfg.Account.Resource,
		Router: xmpp.RouterConfig{
			MUCDomains:   a.cfg.MUC.Domains,
			DiscoTimeout: a.cfg.Disco.Timeout.Duration,
		},
	}, a.bus, logger)
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}
	a.gateway = gw

	a.publishIdentity(gw.JID())

	gw.Router().SetDiscoResultHandler(a.onDiscoResult)
	gw.SetConnectHandler(func() {
		a.metrics.SetConnected(true)
		a.publishIdentity(gw.JID())
		a.send(ui.ConnectionMsg{Connected: true, JID: gw.JID().String()})
	})
	gw.SetDisconnectHandler(func(err error) {
		a.metrics.SetConnected(false)
		a.presence.Clear()
		a.send(ui.ConnectionMsg{Connected: false, Err: err})
	})
	gw.SetErrorHandler(func(err error) {
		a.log.Error("gateway error: %v", err)
	})

	return nil
}

// publishIdentity stores the configured disco#info under j and its bare and
// domain forms
func (a *App) publishIdentity(j jid.JID) {
	info := a.cfg.DiscoInfo()
	a.cache.SetInfo(j, "", info)
	a.cache.SetInfo(j.Bare(), "", info)
	a.cache.SetInfo(j.Domain(), "", info)
}

func (a *App) onDiscoResult(r xmpp.DiscoResult) {
	a.metrics.ObserveDisco(r)
	if r.Err != nil {
		a.log.Debug("disco query %s from %s: %s (%v)", r.Query.ID, r.Query.From, metrics.Outcome(r.Err), r.Err)
		return
	}
	a.log.Debug("disco query %s from %s answered in %s", r.Query.ID, r.Query.From, r.Elapsed)
}

// Gateway returns the gateway, nil without a configured account
func (a *App) Gateway() *xmpp.Gateway {
	return a.gateway
}

// SetProgram sets the Bubble Tea program and forwards bus events to it
func (a *App) SetProgram(p *tea.Program) {
	a.mu.Lock()
	a.program = p
	a.mu.Unlock()
	ui.Attach(a.bus, p.Send)
}

func (a *App) send(msg tea.Msg) {
	a.mu.RLock()
	p := a.program
	a.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

// Start serves metrics when enabled and connects the gateway
func (a *App) Start() error {
	if a.cfg.Metrics.Enabled {
		a.startMetrics()
	}

	if a.gateway == nil {
		return errors.New("no account configured")
	}
	if err := a.gateway.Connect(); err != nil {
		a.send(ui.ConnectionMsg{Err: err})
		return err
	}
	return nil
}

func (a *App) startMetrics() {
	a.server = &http.Server{
		Addr:              a.cfg.Metrics.Listen,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.log.Info("serving metrics on %s", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server: %v", err)
		}
	}()
}

// Close disconnects the gateway and releases every resource. Calling it
// again is a no-op.
func (a *App) Close() {
	a.closeOnce.Do(a.close)
}

func (a *App) close() {
	if a.gateway != nil {
		if err := a.gateway.Disconnect(); err != nil {
			a.log.Warn("failed to disconnect: %v", err)
		}
		a.gateway.Router().Wait()
	}

	// Nothing may reach the journal or the monitor after this point
	a.bus.Clear()

	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			a.log.Warn("metrics server did not shut down cleanly: %v", err)
		}
	}

	if a.plugins != nil {
		a.plugins.UnloadAll()
	}

	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.log.Warn("failed to close journal: %v", err)
		}
	}
}
