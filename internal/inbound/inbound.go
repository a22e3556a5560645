// Package inbound holds read-only views of parsed stanzas as they arrive
// from the stream layer.
package inbound

import (
	"encoding/xml"

	"mellium.im/xmpp/stanza"
)

// Element is a child element of a stanza
type Element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Inner    string     `xml:",innerxml"`
	Children []Element  `xml:",any"`
}

// Space returns the element namespace
func (e Element) Space() string {
	return e.XMLName.Space
}

// Local returns the element local name
func (e Element) Local() string {
	return e.XMLName.Local
}

// Attr returns the value of the first attribute with the given local name
func (e Element) Attr(local string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == local && a.Name.Space != "xmlns" {
			return a.Value, true
		}
	}
	return "", false
}

// Message is an inbound message stanza
type Message struct {
	From string
	To   string
	Type stanza.MessageType
	ID   string

	// Body and HTML are nil when the stanza carries no such child
	Body *string
	HTML *string

	// Handled is set by an earlier stage that already consumed the stanza
	Handled bool

	Error    *Element
	Children []Element
}

// Empty reports whether the message has neither a text nor an HTML body
func (m Message) Empty() bool {
	return m.Body == nil && m.HTML == nil
}

// FirstChild returns the first child in the given namespace
func (m Message) FirstChild(space string) (Element, bool) {
	for _, c := range m.Children {
		if c.Space() == space {
			return c, true
		}
	}
	return Element{}, false
}

// CountChildren returns the number of children in the given namespace
func (m Message) CountChildren(space string) int {
	n := 0
	for _, c := range m.Children {
		if c.Space() == space {
			n++
		}
	}
	return n
}

// Presence is an inbound presence stanza
type Presence struct {
	From string
	To   string
	Type stanza.PresenceType
	ID   string
	Show string

	// Statuses maps a language tag ("" when untagged) to status text
	Statuses map[string]string

	Handled  bool
	Children []Element
}

// IQ is an inbound info/query stanza
type IQ struct {
	From  string
	To    string
	Type  stanza.IQType
	ID    string
	Query *Element
}

// Text returns a pointer to s, for building optional bodies
func Text(s string) *string {
	return &s
}
