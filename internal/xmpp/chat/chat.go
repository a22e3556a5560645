package chat

import (
	"sort"
	"sync"
	"time"

	"mellium.im/xmpp/jid"

	"github.com/meszmate/stanzaroute/internal/bus"
	"github.com/meszmate/stanzaroute/internal/event"
)

// Message represents a chat message seen by the gateway
type Message struct {
	ID        string
	From      jid.JID
	To        jid.JID
	Body      string
	HTML      string
	Type      string // chat or normal
	Timestamp time.Time
	WantsAck  bool
	Received  bool // a receipt came back for it
}

// ChatState represents the chat state (typing, etc.)
type ChatState string

const (
	StateActive    ChatState = "active"
	StateComposing ChatState = "composing"
	StatePaused    ChatState = "paused"
	StateInactive  ChatState = "inactive"
	StateGone      ChatState = "gone"
)

// Session represents the conversation with one bare JID
type Session struct {
	JID       jid.JID
	State     ChatState
	Messages  []Message
	LastError []event.Condition
}

// Manager keeps conversations built from message events
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	limit    int
}

// NewManager creates a new chat manager keeping at most limit messages per
// session; limit <= 0 keeps everything
func NewManager(limit int) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		limit:    limit,
	}
}

// Attach subscribes the manager to one-to-one message events
func (m *Manager) Attach(b *bus.EventBus) {
	for _, name := range []string{
		event.NameChatMessage,
		event.NameNormalMessage,
		event.NameComposingIndication,
		event.NameReceipt,
		event.NameErrorMessage,
	} {
		b.Subscribe(name, m.handle)
	}
}

func (m *Manager) handle(n bus.Notification) {
	switch ev := n.Payload.(type) {
	case event.ChatMessage:
		m.AddMessage(newMessage(ev.Header, "chat", ev.Body, ev.HTMLBody, ev.UseReceipt))
	case event.NormalMessage:
		m.AddMessage(newMessage(ev.Header, "normal", ev.Body, ev.HTMLBody, ev.UseReceipt))
	case event.ComposingIndication:
		m.SetChatState(ev.Sender.JID(), ChatState(ev.State))
	case event.ReceiptAcknowledgement:
		m.MarkReceived(ev.Sender.JID(), ev.ID)
	case event.ErrorMessage:
		session := m.GetSession(ev.Sender.JID())
		m.mu.Lock()
		session.LastError = ev.Conditions
		m.mu.Unlock()
	}
}

func newMessage(h event.Header, typ string, body, html *string, wantsAck bool) Message {
	msg := Message{
		ID:        h.ID,
		From:      h.Sender.JID(),
		To:        h.Recipient.JID(),
		Type:      typ,
		Timestamp: time.Now(),
		WantsAck:  wantsAck,
	}
	if body != nil {
		msg.Body = *body
	}
	if html != nil {
		msg.HTML = *html
	}
	return msg
}

// GetSession gets or creates a session for a JID
func (m *Manager) GetSession(j jid.JID) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	bare := j.Bare().String()
	if session, ok := m.sessions[bare]; ok {
		return session
	}

	session := &Session{
		JID:      j.Bare(),
		State:    StateActive,
		Messages: []Message{},
	}
	m.sessions[bare] = session
	return session
}

// AddMessage adds a message to the sender's session. A new message
// resets the sender's chat state to active.
func (m *Manager) AddMessage(msg Message) {
	session := m.GetSession(msg.From)

	m.mu.Lock()
	defer m.mu.Unlock()

	session.Messages = append(session.Messages, msg)
	if m.limit > 0 && len(session.Messages) > m.limit {
		session.Messages = session.Messages[len(session.Messages)-m.limit:]
	}
	session.State = StateActive
}

// SetChatState sets the chat state for a session
func (m *Manager) SetChatState(j jid.JID, state ChatState) {
	session := m.GetSession(j)

	m.mu.Lock()
	defer m.mu.Unlock()
	session.State = state
}

// GetHistory returns the message history for a JID
func (m *Manager) GetHistory(j jid.JID, limit int) []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[j.Bare().String()]
	if !ok {
		return nil
	}

	messages := session.Messages
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	out := make([]Message, len(messages))
	copy(out, messages)
	return out
}

// State returns the current chat state for a JID
func (m *Manager) State(j jid.JID) ChatState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if session, ok := m.sessions[j.Bare().String()]; ok {
		return session.State
	}
	return StateActive
}

// MarkReceived marks a message as received (delivery receipt)
func (m *Manager) MarkReceived(j jid.JID, messageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[j.Bare().String()]
	if !ok {
		return false
	}

	for i := len(session.Messages) - 1; i >= 0; i-- {
		if session.Messages[i].ID == messageID {
			session.Messages[i].Received = true
			return true
		}
	}
	return false
}

// GetAllSessions returns a snapshot of every session, sorted by JID
func (m *Manager) GetAllSessions() []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		snapshot := *session
		snapshot.Messages = append([]Message(nil), session.Messages...)
		snapshot.LastError = append([]event.Condition(nil), session.LastError...)
		sessions = append(sessions, snapshot)
	}
	sort.Slice(sessions, func(a, b int) bool {
		return sessions[a].JID.String() < sessions[b].JID.String()
	})
	return sessions
}
