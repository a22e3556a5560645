package disco

import (
	"sort"
	"sync"

	"mellium.im/xmpp/jid"

	"github.com/meszmate/stanzaroute/internal/namespace"
)

// Identity represents a disco identity
type Identity struct {
	Category string `toml:"category"`
	Type     string `toml:"type"`
	Name     string `toml:"name"`
	Lang     string `toml:"lang"`
}

// Feature represents a disco feature
type Feature string

// Features advertised by the gateway itself
const (
	FeatureDisco      Feature = namespace.DiscoInfo
	FeatureDiscoItems Feature = namespace.DiscoItems
	FeatureMUC        Feature = namespace.MUC
	FeatureChatStates Feature = namespace.ChatStates
	FeatureReceipts   Feature = namespace.Receipts
	FeatureXHTMLIM    Feature = namespace.XHTMLIM
)

// DefaultFeatures are the features every answer carries
var DefaultFeatures = []Feature{
	FeatureDisco,
	FeatureDiscoItems,
	FeatureChatStates,
	FeatureReceipts,
	FeatureXHTMLIM,
}

// Info represents disco info response
type Info struct {
	Identities []Identity
	Features   []Feature
}

// HasFeature reports whether the info lists a feature
func (i Info) HasFeature(feature Feature) bool {
	for _, f := range i.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// Item represents a disco item
type Item struct {
	JID  jid.JID
	Name string
	Node string
}

// MergeInfo combines several answers, dropping duplicate identities and
// features. Features come back sorted.
func MergeInfo(infos ...Info) Info {
	var merged Info
	seenIdentity := make(map[Identity]bool)
	seenFeature := make(map[Feature]bool)

	for _, info := range infos {
		for _, id := range info.Identities {
			if !seenIdentity[id] {
				seenIdentity[id] = true
				merged.Identities = append(merged.Identities, id)
			}
		}
		for _, f := range info.Features {
			if !seenFeature[f] {
				seenFeature[f] = true
				merged.Features = append(merged.Features, f)
			}
		}
	}

	sort.Slice(merged.Features, func(a, b int) bool {
		return merged.Features[a] < merged.Features[b]
	})
	return merged
}

// MergeItems concatenates item lists, dropping duplicates by JID and node
func MergeItems(lists ...[]Item) []Item {
	var merged []Item
	seen := make(map[string]bool)

	for _, items := range lists {
		for _, item := range items {
			key := item.JID.String() + "#" + item.Node
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, item)
		}
	}
	return merged
}

// Cache holds the disco answers the gateway knows for its own addresses
type Cache struct {
	mu    sync.RWMutex
	info  map[string]*Info
	items map[string][]Item
}

// NewCache creates a new disco cache
func NewCache() *Cache {
	return &Cache{
		info:  make(map[string]*Info),
		items: make(map[string][]Item),
	}
}

func cacheKey(j jid.JID, node string) string {
	return j.String() + "#" + node
}

// SetInfo sets disco info for a JID and node
func (c *Cache) SetInfo(j jid.JID, node string, info *Info) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info[cacheKey(j, node)] = info
}

// GetInfo gets disco info for a JID and node
func (c *Cache) GetInfo(j jid.JID, node string) *Info {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.info[cacheKey(j, node)]
}

// SetItems sets disco items for a JID and node
func (c *Cache) SetItems(j jid.JID, node string, items []Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[cacheKey(j, node)] = items
}

// GetItems gets disco items for a JID and node
func (c *Cache) GetItems(j jid.JID, node string) []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.items[cacheKey(j, node)]
}

// HasFeature checks if a JID supports a feature on the root node
func (c *Cache) HasFeature(j jid.JID, feature Feature) bool {
	info := c.GetInfo(j, "")
	if info == nil {
		return false
	}
	return info.HasFeature(feature)
}

// Clear clears the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info = make(map[string]*Info)
	c.items = make(map[string][]Item)
}
