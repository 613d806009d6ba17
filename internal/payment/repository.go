package payment

import (
	"sync"
	"time"
)

// Repository persists the local Payment records keyed by gateway intent id.
type Repository interface {
	Create(p Payment) (Payment, error)
	GetByIntentID(intentID string) (Payment, error)
	MarkPaid(intentID, paymentID, orderNumber string) error
	UpdateStatus(intentID string, status Status) error
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu       sync.Mutex
	payments map[string]Payment
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{payments: make(map[string]Payment)}
}

func (r *InMemoryRepository) Create(p Payment) (Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	p.UpdatedAt = p.CreatedAt
	r.payments[p.IntentID] = p
	return p, nil
}

func (r *InMemoryRepository) GetByIntentID(intentID string) (Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[intentID]
	if !ok {
		return Payment{}, ErrNotFound
	}
	return p, nil
}

func (r *InMemoryRepository) MarkPaid(intentID, paymentID, orderNumber string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[intentID]
	if !ok {
		return ErrNotFound
	}
	p.Status = StatusPaid
	p.PaymentID = &paymentID
	p.OrderNumber = &orderNumber
	p.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	r.payments[intentID] = p
	return nil
}

func (r *InMemoryRepository) UpdateStatus(intentID string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[intentID]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	r.payments[intentID] = p
	return nil
}
