// Package identity classifies player ids observed on the game server into
// "known" (linked to a registered member) and "unknown" (awaiting manual
// linking). The partition lives only for the lifetime of the process and
// is repopulated lazily as players are observed.
package identity

import (
	"sort"
	"strings"
	"sync"
)

// MaxSuggestions caps autocomplete results at the platform limit.
const MaxSuggestions = 25

// Registry is the lookup the classifier consults for ids it has not seen.
type Registry interface {
	// UserExistsByBohemiaID reports whether a registered member is linked
	// to the external id.
	UserExistsByBohemiaID(bohemiaID string) (bool, error)
}

// Suggestion is one autocomplete candidate from the unknown partition.
type Suggestion struct {
	BohemiaID string
	Name      string
}

// Cache holds the known/unknown partition. A given id lives in at most one
// of the two maps at any time. Safe for concurrent use.
type Cache struct {
	reg Registry

	mu      sync.RWMutex
	known   map[string]string
	unknown map[string]string
}

func New(reg Registry) *Cache {
	return &Cache{
		reg:     reg,
		known:   make(map[string]string),
		unknown: make(map[string]string),
	}
}

// Classify places an observed player into a partition. The first
// classification sticks: ids already present in either map are left alone,
// only Link moves entries afterwards. Registry errors leave the id
// unclassified so the next observation retries.
func (c *Cache) Classify(bohemiaID, name string) error {
	c.mu.RLock()
	_, inKnown := c.known[bohemiaID]
	_, inUnknown := c.unknown[bohemiaID]
	c.mu.RUnlock()
	if inKnown || inUnknown {
		return nil
	}

	exists, err := c.reg.UserExistsByBohemiaID(bohemiaID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// re-check under the write lock; a concurrent Classify may have won
	if _, ok := c.known[bohemiaID]; ok {
		return nil
	}
	if _, ok := c.unknown[bohemiaID]; ok {
		return nil
	}
	if exists {
		c.known[bohemiaID] = name
	} else {
		c.unknown[bohemiaID] = name
	}
	return nil
}

// Link marks an id as belonging to a registered member. This is the only
// path that moves an entry between partitions.
func (c *Cache) Link(bohemiaID, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.unknown, bohemiaID)
	c.known[bohemiaID] = name
}

// IsKnown reports whether the id is linked to a registered member.
func (c *Cache) IsKnown(bohemiaID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.known[bohemiaID]
	return ok
}

// Unknown returns a copy of the unknown partition.
func (c *Cache) Unknown() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.unknown))
	for k, v := range c.unknown {
		out[k] = v
	}
	return out
}

// Suggest filters the unknown partition by case-insensitive substring
// match on the display name, for the link-player autocomplete. Results are
// sorted by name and capped at MaxSuggestions.
func (c *Cache) Suggest(query string) []Suggestion {
	query = strings.ToLower(query)

	c.mu.RLock()
	var out []Suggestion
	for id, name := range c.unknown {
		if query == "" || strings.Contains(strings.ToLower(name), query) {
			out = append(out, Suggestion{BohemiaID: id, Name: name})
		}
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}
