package stock

import (
	"sync"
	"time"

	"github.com/storefrontlab/storefront-backend/internal/catalog"
)

// Repository owns per-variant quantity. Reserve is the oversell-prevention
// primitive: the stock check and the decrement are one indivisible update
// at the storage layer, never a read followed by a write.
type Repository interface {
	Reserve(variantID, qty int, ref string) (Movement, error)
	Release(variantID, qty int, typ MovementType, ref string) (Movement, error)
	Adjust(variantID, delta int, ref string) (Movement, error)
	Available(variantID int) (int, error)
	Movements(variantID, limit int) ([]Movement, error)
	LowStock() ([]catalog.Variant, error)
}

// InMemoryRepository journals movements over the shared in-memory catalog
// so stock reads and ledger writes see the same quantities in tests.
type InMemoryRepository struct {
	mu        sync.Mutex
	catalog   *catalog.InMemoryRepository
	movements []Movement
	seq       int
}

func NewInMemoryRepository(cat *catalog.InMemoryRepository) *InMemoryRepository {
	return &InMemoryRepository{catalog: cat}
}

func (r *InMemoryRepository) journal(variantID int, typ MovementType, qty, before, after int, ref string) Movement {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	m := Movement{
		ID:          r.seq,
		VariantID:   variantID,
		Type:        typ,
		Quantity:    qty,
		StockBefore: before,
		StockAfter:  after,
		OrderRef:    ref,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	r.movements = append(r.movements, m)
	return m
}

func (r *InMemoryRepository) Reserve(variantID, qty int, ref string) (Movement, error) {
	before, after, ok, err := r.catalog.AdjustStock(variantID, -qty, true)
	if err != nil {
		return Movement{}, ErrVariantNotFound
	}
	if !ok {
		return Movement{}, ErrInsufficientStock
	}
	return r.journal(variantID, MovementSale, qty, before, after, ref), nil
}

func (r *InMemoryRepository) Release(variantID, qty int, typ MovementType, ref string) (Movement, error) {
	before, after, _, err := r.catalog.AdjustStock(variantID, qty, false)
	if err != nil {
		return Movement{}, ErrVariantNotFound
	}
	return r.journal(variantID, typ, qty, before, after, ref), nil
}

func (r *InMemoryRepository) Adjust(variantID, delta int, ref string) (Movement, error) {
	before, after, ok, err := r.catalog.AdjustStock(variantID, delta, true)
	if err != nil {
		return Movement{}, ErrVariantNotFound
	}
	if !ok {
		return Movement{}, ErrInsufficientStock
	}
	qty := delta
	if qty < 0 {
		qty = -qty
	}
	return r.journal(variantID, MovementAdjustment, qty, before, after, ref), nil
}

func (r *InMemoryRepository) Available(variantID int) (int, error) {
	v, err := r.catalog.GetByID(variantID)
	if err != nil {
		return 0, ErrVariantNotFound
	}
	return v.Stock, nil
}

func (r *InMemoryRepository) Movements(variantID, limit int) ([]Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Movement, 0)
	for i := len(r.movements) - 1; i >= 0; i-- {
		if variantID != 0 && r.movements[i].VariantID != variantID {
			continue
		}
		out = append(out, r.movements[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *InMemoryRepository) LowStock() ([]catalog.Variant, error) {
	all, err := r.catalog.List()
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Variant, 0)
	for _, v := range all {
		if v.IsActive && v.Stock <= v.LowStockAt {
			out = append(out, v)
		}
	}
	return out, nil
}
