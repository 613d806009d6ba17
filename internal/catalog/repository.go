package catalog

import (
	"sort"
	"sync"
)

// Repository provides read/write access to variants. Stock quantities are
// read here but only ever mutated through the stock ledger.
type Repository interface {
	List() ([]Variant, error)
	GetByID(id int) (Variant, error)
	ListByIDs(ids []int) ([]Variant, error)
	Create(v Variant) (Variant, error)
	Update(id int, v Variant) (Variant, error)
}

// InMemoryRepository is used for tests and local scenarios. The stock
// ledger's in-memory implementation shares it so both views of stock agree.
type InMemoryRepository struct {
	mu       sync.RWMutex
	variants map[int]Variant
	seq      int
}

func NewInMemoryRepository(seed []Variant) *InMemoryRepository {
	r := &InMemoryRepository{variants: make(map[int]Variant, len(seed))}
	for _, v := range seed {
		r.variants[v.ID] = v
		if v.ID > r.seq {
			r.seq = v.ID
		}
	}
	return r
}

func (r *InMemoryRepository) List() ([]Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Variant, 0, len(r.variants))
	for _, v := range r.variants {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) GetByID(id int) (Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variants[id]
	if !ok {
		return Variant{}, ErrNotFound
	}
	return v, nil
}

func (r *InMemoryRepository) ListByIDs(ids []int) ([]Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Variant, 0, len(ids))
	for _, id := range ids {
		if v, ok := r.variants[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) Create(v Variant) (Variant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	v.ID = r.seq
	r.variants[v.ID] = v
	return v, nil
}

func (r *InMemoryRepository) Update(id int, v Variant) (Variant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.variants[id]
	if !ok {
		return Variant{}, ErrNotFound
	}
	v.ID = id
	v.Stock = cur.Stock // stock only moves through the ledger
	r.variants[id] = v
	return v, nil
}

// AdjustStock applies delta to a variant's stock, refusing to go below
// zero when conditional is set. It reports the before/after counts so the
// ledger can journal the movement. Exported for the in-memory stock ledger.
func (r *InMemoryRepository) AdjustStock(id, delta int, conditional bool) (before, after int, ok bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, found := r.variants[id]
	if !found {
		return 0, 0, false, ErrNotFound
	}
	before = v.Stock
	after = before + delta
	if conditional && after < 0 {
		return before, before, false, nil
	}
	v.Stock = after
	r.variants[id] = v
	return before, after, true, nil
}
