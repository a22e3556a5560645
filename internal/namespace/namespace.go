package namespace

const (
	Client     = "jabber:client"
	Stanza     = "urn:ietf:params:xml:ns:xmpp-stanzas"
	Receipts   = "urn:xmpp:receipts"
	ChatStates = "http://jabber.org/protocol/chatstates"
	XHTMLIM    = "http://jabber.org/protocol/xhtml-im"
	XHTML      = "http://www.w3.org/1999/xhtml"
	DiscoInfo  = "http://jabber.org/protocol/disco#info"
	DiscoItems = "http://jabber.org/protocol/disco#items"
	MUC        = "http://jabber.org/protocol/muc"
	MUCUser    = "http://jabber.org/protocol/muc#user"
)
