package app

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/meszmate/stanzaroute/internal/xmpp/presence"
)

// ContactStatus is what the gateway knows about one contact's presence
type ContactStatus struct {
	JID       string     `json:"jid"`
	Online    bool       `json:"online"`
	Show      string     `json:"show,omitempty"`
	Status    string     `json:"status,omitempty"`
	Resources int        `json:"resources"`
	LastProbe *time.Time `json:"last_probe,omitempty"`
}

// ConversationStatus summarizes one tracked conversation
type ConversationStatus struct {
	JID         string     `json:"jid"`
	State       string     `json:"state,omitempty"`
	Messages    int        `json:"messages"`
	Unreceipted int        `json:"unreceipted"`
	LastMessage string     `json:"last_message,omitempty"`
	LastAt      *time.Time `json:"last_at,omitempty"`
}

// Status is the live view served at /status
type Status struct {
	Connected     bool                 `json:"connected"`
	JID           string               `json:"jid,omitempty"`
	Contacts      []ContactStatus      `json:"contacts"`
	Conversations []ConversationStatus `json:"conversations"`
}

// Snapshot reads the presence and conversation trackers
func (a *App) Snapshot() Status {
	st := Status{
		Contacts:      []ContactStatus{},
		Conversations: []ConversationStatus{},
	}
	if a.gateway != nil {
		st.Connected = a.gateway.IsConnected()
		st.JID = a.gateway.JID().String()
	}

	for _, j := range a.presence.Contacts() {
		cs := ContactStatus{
			JID:       j.String(),
			Online:    a.presence.IsOnline(j),
			Resources: len(a.presence.GetResources(j)),
		}
		if best := a.presence.Get(j); best != nil {
			cs.Show = presence.ShowToString(best.Show)
			cs.Status = best.Status
		}
		if at, ok := a.presence.LastProbe(j); ok {
			cs.LastProbe = &at
		}
		st.Contacts = append(st.Contacts, cs)
	}

	for _, session := range a.chats.GetAllSessions() {
		cs := ConversationStatus{
			JID:      session.JID.String(),
			State:    string(session.State),
			Messages: len(session.Messages),
		}
		for _, msg := range session.Messages {
			if msg.WantsAck && !msg.Received {
				cs.Unreceipted++
			}
		}
		if n := len(session.Messages); n > 0 {
			last := session.Messages[n-1]
			cs.LastMessage = last.Body
			cs.LastAt = &last.Timestamp
		}
		st.Conversations = append(st.Conversations, cs)
	}

	return st
}

// Handler serves metrics, health and /status
func (a *App) Handler() http.Handler {
	r := a.metrics.Handler(func() bool {
		return a.gateway != nil && a.gateway.IsConnected()
	})
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(a.Snapshot()); err != nil {
			a.log.Warn("failed to encode status: %v", err)
		}
	})
	return r
}
