package identity

import (
	"fmt"
	"strings"

	"mellium.im/xmpp/jid"
)

// Scheme is the URI scheme every resolved address carries
const Scheme = "xmpp"

const schemePrefix = Scheme + ":"

// AddressParseError is returned when a raw address cannot be resolved
type AddressParseError struct {
	Raw string
	Err error
}

func (e *AddressParseError) Error() string {
	return fmt.Sprintf("invalid address %q: %v", e.Raw, e.Err)
}

func (e *AddressParseError) Unwrap() error {
	return e.Err
}

// Identity is an immutable, structured XMPP address
type Identity struct {
	scheme string
	addr   jid.JID
}

// Resolve parses a raw address taken from a stanza attribute
func Resolve(raw string) (Identity, error) {
	id, err := ParseURI(schemePrefix + raw)
	if err != nil {
		return Identity{}, &AddressParseError{Raw: raw, Err: err}
	}
	return id, nil
}

// ParseURI parses an address in xmpp: URI form
func ParseURI(uri string) (Identity, error) {
	rest, ok := strings.CutPrefix(uri, schemePrefix)
	if !ok {
		return Identity{}, fmt.Errorf("unsupported scheme in %q", uri)
	}
	if rest == "" {
		return Identity{}, fmt.Errorf("empty address")
	}

	j, err := jid.Parse(rest)
	if err != nil {
		return Identity{}, err
	}
	return Identity{scheme: Scheme, addr: j}, nil
}

// FromJID wraps an already parsed address
func FromJID(j jid.JID) Identity {
	return Identity{scheme: Scheme, addr: j}
}

// Scheme returns the URI scheme
func (i Identity) Scheme() string {
	return i.scheme
}

// User returns the localpart
func (i Identity) User() string {
	return i.addr.Localpart()
}

// Host returns the domainpart
func (i Identity) Host() string {
	return i.addr.Domainpart()
}

// Resource returns the resourcepart
func (i Identity) Resource() string {
	return i.addr.Resourcepart()
}

// JID returns the wrapped address
func (i Identity) JID() jid.JID {
	return i.addr
}

// Bare returns the identity without its resource
func (i Identity) Bare() Identity {
	return Identity{scheme: i.scheme, addr: i.addr.Bare()}
}

// IsZero reports whether the identity was never resolved
func (i Identity) IsZero() bool {
	return i.scheme == ""
}

// Equal reports structural equality
func (i Identity) Equal(other Identity) bool {
	return i.scheme == other.scheme && i.addr.Equal(other.addr)
}

// String returns the identity in URI form
func (i Identity) String() string {
	if i.IsZero() {
		return ""
	}
	return i.scheme + ":" + i.addr.String()
}

// MarshalText encodes the identity in URI form
func (i Identity) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText parses the URI form written by MarshalText
func (i *Identity) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*i = Identity{}
		return nil
	}
	parsed, err := ParseURI(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
