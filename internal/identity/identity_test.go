package identity

import (
	"errors"
	"testing"

	"mellium.im/xmpp/jid"
)

func TestResolve(t *testing.T) {
	id, err := Resolve("alice@example.com/phone")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if id.User() != "alice" {
		t.Fatalf("expected user alice, got %q", id.User())
	}
	if id.Host() != "example.com" {
		t.Fatalf("expected host example.com, got %q", id.Host())
	}
	if id.Resource() != "phone" {
		t.Fatalf("expected resource phone, got %q", id.Resource())
	}
	if id.Scheme() != Scheme {
		t.Fatalf("expected scheme %s, got %q", Scheme, id.Scheme())
	}
	if id.String() != "xmpp:alice@example.com/phone" {
		t.Fatalf("unexpected string form %q", id.String())
	}
}

func TestResolveInvalid(t *testing.T) {
	for _, raw := range []string{"", "alice@"} {
		_, err := Resolve(raw)
		if err == nil {
			t.Fatalf("expected error for %q", raw)
		}

		var parseErr *AddressParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("expected AddressParseError for %q, got %T", raw, err)
		}
		if parseErr.Raw != raw {
			t.Fatalf("expected raw %q, got %q", raw, parseErr.Raw)
		}
	}
}

func TestParseURIRequiresScheme(t *testing.T) {
	if _, err := ParseURI("sip:alice@example.com"); err == nil {
		t.Fatalf("expected error for foreign scheme")
	}
}

func TestEqual(t *testing.T) {
	a, err := Resolve("bob@example.com/desk")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	b := FromJID(jid.MustParse("bob@example.com/desk"))

	if !a.Equal(b) {
		t.Fatalf("expected %s to equal %s", a, b)
	}
	if a.Equal(a.Bare()) {
		t.Fatalf("did not expect full and bare identities to be equal")
	}
	if a.Bare().String() != "xmpp:bob@example.com" {
		t.Fatalf("unexpected bare form %q", a.Bare().String())
	}
}

func TestZeroIdentity(t *testing.T) {
	var id Identity
	if !id.IsZero() {
		t.Fatalf("expected zero identity")
	}
	if id.String() != "" {
		t.Fatalf("expected empty string, got %q", id.String())
	}
}
