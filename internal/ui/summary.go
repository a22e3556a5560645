package ui

import (
	"fmt"
	"strings"

	"github.com/meszmate/stanzaroute/internal/event"
)

// Category groups event names for coloring and filtering
type Category int

const (
	CategoryAll Category = iota
	CategoryMessage
	CategoryPresence
	CategoryGroup
	CategoryDisco
)

var categoryNames = map[Category]string{
	CategoryAll:      "all",
	CategoryMessage:  "messages",
	CategoryPresence: "presence",
	CategoryGroup:    "groups",
	CategoryDisco:    "disco",
}

func (c Category) String() string {
	return categoryNames[c]
}

func (c Category) next() Category {
	return (c + 1) % Category(len(categoryNames))
}

// CategoryOf returns the category of an event name
func CategoryOf(name string) Category {
	switch name {
	case event.NameErrorMessage, event.NameChatMessage, event.NameNormalMessage,
		event.NameComposingIndication, event.NameReceipt:
		return CategoryMessage
	case event.NamePresenceAvailability, event.NamePresenceSubscription, event.NamePresenceProbe:
		return CategoryPresence
	case event.NameGroupChat, event.NameGroupPresenceAvailability:
		return CategoryGroup
	case event.NameDiscoInfoRequest, event.NameDiscoItemsRequest:
		return CategoryDisco
	}
	return CategoryAll
}

// Summarize renders the interesting part of an event on one line
func Summarize(ev event.Event) string {
	switch e := ev.(type) {
	case event.ErrorMessage:
		names := make([]string, 0, len(e.Conditions))
		for _, c := range e.Conditions {
			names = append(names, c.Name)
		}
		return fmt.Sprintf("error type=%s %s", e.ErrorType, strings.Join(names, ","))
	case event.ChatMessage:
		return bodyLine(e.Body, e.UseReceipt)
	case event.NormalMessage:
		return bodyLine(e.Body, e.UseReceipt)
	case event.ComposingIndication:
		return e.State
	case event.ReceiptAcknowledgement:
		return "receipt for " + e.ID
	case event.PresenceAvailability:
		if !e.Available {
			return "unavailable"
		}
		line := "available"
		if e.Show != "" {
			line += " (" + e.Show + ")"
		}
		if status := e.Status(""); status != "" {
			line += " " + quote(status)
		}
		return line
	case event.PresenceSubscription:
		return string(e.SubscriptionType)
	case event.PresenceProbe:
		return "probe"
	case event.GroupMessage:
		return bodyLine(e.Body, false)
	case event.GroupPresenceAvailability:
		if e.Available {
			return "joined"
		}
		return "left"
	case event.DiscoInfoRequested:
		return discoLine("info", e.DiscoRequest)
	case event.DiscoItemsRequested:
		return discoLine("items", e.DiscoRequest)
	}
	return ""
}

func bodyLine(body *string, receipt bool) string {
	line := "(no body)"
	if body != nil {
		line = quote(*body)
	}
	if receipt {
		line += " [receipt requested]"
	}
	return line
}

func discoLine(kind string, req event.DiscoRequest) string {
	line := kind + " -> " + req.Target.JID().String()
	if req.Node != "" {
		line += " node=" + req.Node
	}
	return line
}

func quote(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return fmt.Sprintf("%q", s)
}
