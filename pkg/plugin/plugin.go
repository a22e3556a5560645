package plugin

// FeatureProvider is the interface that all plugins must implement. A
// provider answers service discovery queries for targets it knows about and
// returns empty responses for the rest.
type FeatureProvider interface {
	// Name returns the plugin name
	Name() string

	// Version returns the plugin version
	Version() string

	// Info answers a disco#info query
	Info(req Request) (InfoResponse, error)

	// Items answers a disco#items query
	Items(req Request) (ItemsResponse, error)
}

// Request names the entity and node a query is about
type Request struct {
	Target string
	Node   string
}

// Identity is a disco identity on the wire
type Identity struct {
	Category string
	Type     string
	Name     string
	Lang     string
}

// InfoResponse carries identities and feature namespaces
type InfoResponse struct {
	Identities []Identity
	Features   []string
}

// Item is a disco item on the wire
type Item struct {
	JID  string
	Name string
	Node string
}

// ItemsResponse carries the items of an entity
type ItemsResponse struct {
	Items []Item
}

// Metadata contains plugin metadata
type Metadata struct {
	Name    string
	Version string
	Path    string
}
