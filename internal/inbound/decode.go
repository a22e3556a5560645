package inbound

import (
	"encoding/xml"
	"fmt"
	"strings"

	"mellium.im/xmpp/stanza"

	"github.com/meszmate/stanzaroute/internal/namespace"
)

type wireMessage struct {
	XMLName  xml.Name
	From     string    `xml:"from,attr"`
	To       string    `xml:"to,attr"`
	ID       string    `xml:"id,attr"`
	Type     string    `xml:"type,attr"`
	Children []Element `xml:",any"`
}

type wireStatus struct {
	Lang string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
	Text string `xml:",chardata"`
}

type wirePresence struct {
	XMLName  xml.Name
	From     string       `xml:"from,attr"`
	To       string       `xml:"to,attr"`
	ID       string       `xml:"id,attr"`
	Type     string       `xml:"type,attr"`
	Show     string       `xml:"show"`
	Statuses []wireStatus `xml:"status"`
	Children []Element    `xml:",any"`
}

type wireIQ struct {
	XMLName  xml.Name
	From     string    `xml:"from,attr"`
	To       string    `xml:"to,attr"`
	ID       string    `xml:"id,attr"`
	Type     string    `xml:"type,attr"`
	Children []Element `xml:",any"`
}

// DecodeMessage decodes the message element opened by start
func DecodeMessage(d *xml.Decoder, start *xml.StartElement) (Message, error) {
	if start.Name.Local != "message" {
		return Message{}, fmt.Errorf("expected message, got %s", start.Name.Local)
	}

	var w wireMessage
	if err := d.DecodeElement(&w, start); err != nil {
		return Message{}, fmt.Errorf("failed to decode message: %w", err)
	}

	msg := Message{
		From:     w.From,
		To:       w.To,
		ID:       w.ID,
		Type:     stanza.MessageType(w.Type),
		Children: w.Children,
	}

	for i := range w.Children {
		child := w.Children[i]
		switch {
		case child.Local() == "body" && isClientSpace(child.Space()):
			if msg.Body == nil {
				msg.Body = Text(child.Text)
			}
		case child.Local() == "html" && child.Space() == namespace.XHTMLIM:
			if msg.HTML == nil {
				msg.HTML = Text(fmt.Sprintf("<html xmlns='%s'>%s</html>", namespace.XHTMLIM, child.Inner))
			}
		case child.Local() == "error" && isClientSpace(child.Space()):
			if msg.Error == nil {
				msg.Error = &child
			}
		}
	}

	return msg, nil
}

// DecodePresence decodes the presence element opened by start
func DecodePresence(d *xml.Decoder, start *xml.StartElement) (Presence, error) {
	if start.Name.Local != "presence" {
		return Presence{}, fmt.Errorf("expected presence, got %s", start.Name.Local)
	}

	var w wirePresence
	if err := d.DecodeElement(&w, start); err != nil {
		return Presence{}, fmt.Errorf("failed to decode presence: %w", err)
	}

	p := Presence{
		From:     w.From,
		To:       w.To,
		ID:       w.ID,
		Type:     stanza.PresenceType(w.Type),
		Show:     strings.TrimSpace(w.Show),
		Children: w.Children,
	}

	if len(w.Statuses) > 0 {
		p.Statuses = make(map[string]string, len(w.Statuses))
		for _, s := range w.Statuses {
			p.Statuses[s.Lang] = s.Text
		}
	}

	return p, nil
}

// DecodeIQ decodes the iq element opened by start
func DecodeIQ(d *xml.Decoder, start *xml.StartElement) (IQ, error) {
	if start.Name.Local != "iq" {
		return IQ{}, fmt.Errorf("expected iq, got %s", start.Name.Local)
	}

	var w wireIQ
	if err := d.DecodeElement(&w, start); err != nil {
		return IQ{}, fmt.Errorf("failed to decode iq: %w", err)
	}

	iq := IQ{
		From: w.From,
		To:   w.To,
		ID:   w.ID,
		Type: stanza.IQType(w.Type),
	}
	if len(w.Children) > 0 {
		iq.Query = &w.Children[0]
	}

	return iq, nil
}

func isClientSpace(space string) bool {
	return space == "" || space == namespace.Client
}
