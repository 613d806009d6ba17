package cart

import (
	"sync"
	"time"
)

// Repository persists one cart per customer. Item mutations and Lock are
// conditional single-document writes: the "not locked, or lock stale"
// check belongs to the write itself, not to a read that precedes it,
// because other server processes share the store.
//
// ReplaceItems and Clear are engine-internal writes that ignore the lock:
// the validator strips invalid items and the orchestrator empties the cart
// while holding the lock itself.
type Repository interface {
	Get(userID int) (Cart, error)
	AddItem(userID, variantID, qty int) (Cart, error)
	UpdateItem(userID, variantID, qty int) (Cart, error)
	RemoveItem(userID, variantID int) (Cart, error)
	ReplaceItems(userID int, items []CartItem) (Cart, error)
	Clear(userID int) (Cart, error)
	Lock(userID int) (Cart, error)
	Unlock(userID int) error
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu      sync.Mutex
	carts   map[int]*Cart
	lockTTL time.Duration
	now     func() time.Time
}

func NewInMemoryRepository(lockTTL time.Duration) *InMemoryRepository {
	return &InMemoryRepository{
		carts:   make(map[int]*Cart),
		lockTTL: lockTTL,
		now:     time.Now,
	}
}

// SetClock replaces the time source so tests can age a lock past the TTL.
func (r *InMemoryRepository) SetClock(now func() time.Time) { r.now = now }

func (r *InMemoryRepository) get(userID int) *Cart {
	c, ok := r.carts[userID]
	if !ok {
		c = &Cart{UserID: userID, Items: []CartItem{}}
		r.carts[userID] = c
	}
	return c
}

func (r *InMemoryRepository) lockedFresh(c *Cart) bool {
	return c.Locked && !lockStale(c.LockedAt, r.lockTTL, r.now())
}

func (r *InMemoryRepository) Get(userID int) (Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.get(userID)
	// a stale lock is abandoned; any read may clear it
	if c.Locked && !r.lockedFresh(c) {
		c.Locked = false
		c.LockedAt = nil
	}
	return *c, nil
}

func (r *InMemoryRepository) AddItem(userID, variantID, qty int) (Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.get(userID)
	if r.lockedFresh(c) {
		return Cart{}, ErrCartLocked
	}
	if i := c.find(variantID); i >= 0 {
		if c.Items[i].Quantity+qty > MaxItemQty {
			return Cart{}, ErrQuantityLimit
		}
		c.Items[i].Quantity += qty
	} else {
		if qty > MaxItemQty {
			return Cart{}, ErrQuantityLimit
		}
		c.Items = append(c.Items, CartItem{VariantID: variantID, Quantity: qty})
	}
	c.Version++
	return *c, nil
}

func (r *InMemoryRepository) UpdateItem(userID, variantID, qty int) (Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.get(userID)
	if r.lockedFresh(c) {
		return Cart{}, ErrCartLocked
	}
	i := c.find(variantID)
	if i < 0 {
		return Cart{}, ErrItemNotFound
	}
	if qty == 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	} else {
		if qty > MaxItemQty {
			return Cart{}, ErrQuantityLimit
		}
		c.Items[i].Quantity = qty
	}
	c.Version++
	return *c, nil
}

func (r *InMemoryRepository) RemoveItem(userID, variantID int) (Cart, error) {
	return r.UpdateItem(userID, variantID, 0)
}

func (r *InMemoryRepository) ReplaceItems(userID int, items []CartItem) (Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.get(userID)
	c.Items = append([]CartItem{}, items...)
	c.Version++
	return *c, nil
}

func (r *InMemoryRepository) Clear(userID int) (Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.get(userID)
	if r.lockedFresh(c) {
		return Cart{}, ErrCartLocked
	}
	c.Items = []CartItem{}
	c.Version++
	return *c, nil
}

func (r *InMemoryRepository) Lock(userID int) (Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[userID]
	if !ok {
		return Cart{}, ErrNotFound
	}
	if r.lockedFresh(c) {
		return Cart{}, ErrCartLocked
	}
	now := r.now()
	c.Locked = true
	c.LockedAt = &now
	return *c, nil
}

func (r *InMemoryRepository) Unlock(userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.carts[userID]; ok {
		c.Locked = false
		c.LockedAt = nil
	}
	return nil
}
