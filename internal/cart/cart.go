package cart

import (
	"errors"
	"time"
)

// MaxItemQty caps the quantity of a single cart line. Merging past the cap
// is an error, never a silent clamp.
const MaxItemQty = 10

var (
	ErrNotFound      = errors.New("cart not found")
	ErrItemNotFound  = errors.New("item not in cart")
	ErrCartLocked    = errors.New("cart is locked by a checkout in progress")
	ErrQuantityLimit = errors.New("quantity exceeds the per-item limit")
)

// CartItem is a (variant, quantity) pair. Prices are never stored on the
// cart; they are recomputed from the live variant on every read.
type CartItem struct {
	VariantID int `json:"variantID"`
	Quantity  int `json:"quantity"`
}

// Cart is the single mutable cart document of one customer. The version
// counter bumps on every item mutation; the lock flag serializes checkout
// attempts and goes stale after the configured TTL.
type Cart struct {
	UserID   int        `json:"userId"`
	Items    []CartItem `json:"items"`
	Version  int        `json:"version"`
	Locked   bool       `json:"locked"`
	LockedAt *time.Time `json:"lockedAt,omitempty"`
}

func (c Cart) find(variantID int) int {
	for i, it := range c.Items {
		if it.VariantID == variantID {
			return i
		}
	}
	return -1
}

// lockStale reports whether a held lock is older than ttl and may be
// treated as abandoned.
func lockStale(lockedAt *time.Time, ttl time.Duration, now time.Time) bool {
	return lockedAt == nil || now.Sub(*lockedAt) > ttl
}
