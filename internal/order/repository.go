package order

import (
	"sort"
	"sync"
)

// Repository defines persistence operations for orders. Orders are never
// deleted; Update only ever touches status, paymentStatus, the history
// log and the return/refund metadata. Transition is the conditional form
// of Update: it writes only while the stored status still matches the one
// the caller read, so concurrent status movers cannot both win.
type Repository interface {
	Create(o Order) (Order, error)
	GetByNumber(number string) (Order, error)
	ListByUser(userID int) ([]Order, error)
	FindByIntentID(intentID string) (Order, error)
	Update(o Order) error
	Transition(o Order, from Status) error
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu     sync.Mutex
	orders map[string]Order
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{orders: make(map[string]Order)}
}

func (r *InMemoryRepository) Create(o Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.OrderNumber] = o
	return o, nil
}

func (r *InMemoryRepository) GetByNumber(number string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[number]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (r *InMemoryRepository) ListByUser(userID int) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Order, 0)
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (r *InMemoryRepository) FindByIntentID(intentID string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.IntentID != nil && *o.IntentID == intentID {
			return o, nil
		}
	}
	return Order{}, ErrNotFound
}

func (r *InMemoryRepository) Transition(o Order, from Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.orders[o.OrderNumber]
	if !ok {
		return ErrNotFound
	}
	if cur.Status != from {
		return ErrStatusChanged
	}
	r.orders[o.OrderNumber] = o
	return nil
}

func (r *InMemoryRepository) Update(o Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.OrderNumber]; !ok {
		return ErrNotFound
	}
	r.orders[o.OrderNumber] = o
	return nil
}
