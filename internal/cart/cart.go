package cart

import (
	"sync"
	"time"

	"portmarket/internal/models"
)

// PriceLookup resolves a listing id to its price. The second return value is
// false when the listing no longer exists.
type PriceLookup func(listingID string) (float64, bool)

// Cart is the buyer's working selection of listings prior to checkout.
// Entries reference listings by id only; the cart does not track listing
// status itself.
type Cart struct {
	mu      sync.RWMutex
	entries []models.CartEntry
}

// New creates an empty cart
func New() *Cart {
	return &Cart{}
}

// Add appends an entry for the listing. Adding an id already in the cart is
// a no-op. The listing's status is deliberately not checked here; checkout
// re-validates it.
func (c *Cart) Add(listingID string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		if e.ListingID == listingID {
			return
		}
	}
	c.entries = append(c.entries, models.CartEntry{ListingID: listingID, AddedAt: now})
}

// Remove drops the entry for the listing if present.
func (c *Cart) Remove(listingID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, e := range c.entries {
		if e.ListingID == listingID {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return
		}
	}
}

// Clear empties the cart unconditionally.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}

// Entries returns a copy of the cart contents in insertion order.
func (c *Cart) Entries() []models.CartEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.CartEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Contains reports whether the listing is in the cart.
func (c *Cart) Contains(listingID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, e := range c.entries {
		if e.ListingID == listingID {
			return true
		}
	}
	return false
}

// Total sums the prices of the referenced listings. Entries whose listing
// cannot be resolved contribute nothing. An empty cart totals 0.
func (c *Cart) Total(priceOf PriceLookup) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total float64
	for _, e := range c.entries {
		if price, ok := priceOf(e.ListingID); ok {
			total += price
		}
	}
	return total
}

// Restore replaces the cart contents with previously persisted entries.
func (c *Cart) Restore(entries []models.CartEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make([]models.CartEntry, len(entries))
	copy(c.entries, entries)
}
