package presence

import (
	"sort"
	"sync"
	"time"

	"mellium.im/xmpp/jid"

	"github.com/meszmate/stanzaroute/internal/bus"
	"github.com/meszmate/stanzaroute/internal/event"
)

// Show represents the presence show state
type Show string

const (
	ShowOnline Show = ""
	ShowAway   Show = "away"
	ShowChat   Show = "chat"
	ShowDND    Show = "dnd"
	ShowXA     Show = "xa"
)

// Status represents the last availability seen for one full JID
type Status struct {
	JID      jid.JID
	Show     Show
	Status   string
	Statuses map[string]string
	Updated  time.Time
}

// Manager tracks availability announced to the gateway
type Manager struct {
	mu       sync.RWMutex
	statuses map[string]map[string]*Status // bare JID -> resource -> status
	probes   map[string]time.Time
	now      func() time.Time
}

// NewManager creates a new presence manager
func NewManager() *Manager {
	return &Manager{
		statuses: make(map[string]map[string]*Status),
		probes:   make(map[string]time.Time),
		now:      time.Now,
	}
}

// Attach subscribes the manager to availability and probe events
func (m *Manager) Attach(b *bus.EventBus) {
	b.Subscribe(event.NamePresenceAvailability, m.handle)
	b.Subscribe(event.NamePresenceProbe, m.handle)
}

func (m *Manager) handle(n bus.Notification) {
	switch ev := n.Payload.(type) {
	case event.PresenceAvailability:
		from := ev.Sender.JID()
		if !ev.Available {
			m.Remove(from)
			return
		}
		m.Set(Status{
			JID:      from,
			Show:     Show(ev.Show),
			Status:   ev.Status(""),
			Statuses: ev.Statuses,
		})
	case event.PresenceProbe:
		m.mu.Lock()
		m.probes[ev.Sender.Bare().JID().String()] = m.now()
		m.mu.Unlock()
	}
}

// Set sets the presence for a JID
func (m *Manager) Set(status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bare := status.JID.Bare().String()
	resource := status.JID.Resourcepart()

	if status.Updated.IsZero() {
		status.Updated = m.now()
	}
	if m.statuses[bare] == nil {
		m.statuses[bare] = make(map[string]*Status)
	}
	m.statuses[bare][resource] = &status
}

// Remove removes presence for a JID (all resources or specific resource)
func (m *Manager) Remove(j jid.JID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bare := j.Bare().String()
	resource := j.Resourcepart()

	if resource == "" {
		delete(m.statuses, bare)
	} else if m.statuses[bare] != nil {
		delete(m.statuses[bare], resource)
		if len(m.statuses[bare]) == 0 {
			delete(m.statuses, bare)
		}
	}
}

// Get returns the most recently updated presence for a bare JID
func (m *Manager) Get(j jid.JID) *Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *Status
	for _, status := range m.statuses[j.Bare().String()] {
		if best == nil || status.Updated.After(best.Updated) {
			best = status
		}
	}
	return best
}

// GetResources returns all resources for a bare JID
func (m *Manager) GetResources(j jid.JID) []*Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	resources := m.statuses[j.Bare().String()]
	result := make([]*Status, 0, len(resources))
	for _, status := range resources {
		result = append(result, status)
	}
	return result
}

// IsOnline returns whether a JID has any online resources
func (m *Manager) IsOnline(j jid.JID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.statuses[j.Bare().String()]) > 0
}

// LastProbe returns when the bare JID last probed us
func (m *Manager) LastProbe(j jid.JID) (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.probes[j.Bare().String()]
	return t, ok
}

// Contacts returns every bare JID with a known presence or probe, sorted
func (m *Manager) Contacts() []jid.JID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]jid.JID, len(m.statuses)+len(m.probes))
	for _, resources := range m.statuses {
		for _, status := range resources {
			seen[status.JID.Bare().String()] = status.JID.Bare()
			break
		}
	}
	for bare := range m.probes {
		if _, ok := seen[bare]; ok {
			continue
		}
		if j, err := jid.Parse(bare); err == nil {
			seen[bare] = j
		}
	}

	out := make([]jid.JID, 0, len(seen))
	for _, j := range seen {
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].String() < out[b].String()
	})
	return out
}

// Clear clears all presence information
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = make(map[string]map[string]*Status)
	m.probes = make(map[string]time.Time)
}

// ShowToString converts a Show value to a human-readable string
func ShowToString(show Show) string {
	switch show {
	case ShowOnline:
		return "online"
	case ShowAway:
		return "away"
	case ShowChat:
		return "chat"
	case ShowDND:
		return "dnd"
	case ShowXA:
		return "xa"
	default:
		return string(show)
	}
}
