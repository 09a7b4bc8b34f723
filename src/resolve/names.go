// Package resolve labels the numeric ids found in listings: items (reagents) and zones.
package resolve

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// LookupFunc fetches the name of an item. It may be slow (a network fetch) and may fail.
type LookupFunc func(itemID int) (string, error)

// ItemFallback is the label used when an item name can't be looked up.
func ItemFallback(itemID int) string {
	return fmt.Sprintf("Item %d", itemID)
}

// NameCache memoizes item names for the lifetime of a run.
// It is safe for concurrent use; concurrent lookups of the same id share one call.
// Failed lookups are cached as their fallback label so they aren't retried.
type NameCache struct {
	lookup LookupFunc
	mu     sync.RWMutex
	names  map[int]string
	group  singleflight.Group
}

// NewNameCache creates a cache in front of lookup.
func NewNameCache(lookup LookupFunc) *NameCache {
	return &NameCache{
		lookup: lookup,
		names:  make(map[int]string),
	}
}

// ResolveName returns the name of an item, or "Item <id>" if it can't be found.
func (c *NameCache) ResolveName(itemID int) string {
	c.mu.RLock()
	name, ok := c.names[itemID]
	c.mu.RUnlock()
	if ok {
		return name
	}

	value, _, _ := c.group.Do(strconv.Itoa(itemID), func() (any, error) {
		name := ItemFallback(itemID)
		if c.lookup != nil {
			if found, err := c.lookup(itemID); err != nil {
				slog.Warn("failed to look up item name", "item-id", itemID, "error", err)
			} else if found != "" {
				name = found
			}
		}

		c.mu.Lock()
		c.names[itemID] = name
		c.mu.Unlock()
		return name, nil
	})
	return value.(string)
}

// Put seeds the cache with a known name.
func (c *NameCache) Put(itemID int, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[itemID] = name
}

// Len is the number of cached names.
func (c *NameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}
