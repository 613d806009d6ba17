package stock

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefrontlab/storefront-backend/internal/apperr"
	"github.com/storefrontlab/storefront-backend/internal/catalog"
)

func newLedger(t *testing.T, seed []catalog.Variant) (*Service, *catalog.InMemoryRepository) {
	t.Helper()
	cat := catalog.NewInMemoryRepository(seed)
	return NewService(NewInMemoryRepository(cat)), cat
}

func TestReserve_DecrementsAndJournals(t *testing.T) {
	svc, cat := newLedger(t, []catalog.Variant{{ID: 1, ProductName: "Hoodie M", Stock: 5, IsActive: true}})

	m, err := svc.Reserve(1, 2, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, MovementSale, m.Type)
	assert.Equal(t, 5, m.StockBefore)
	assert.Equal(t, 3, m.StockAfter)

	v, _ := cat.GetByID(1)
	assert.Equal(t, 3, v.Stock)
}

func TestReserve_FailsClosedOnInsufficientStock(t *testing.T) {
	svc, cat := newLedger(t, []catalog.Variant{{ID: 1, Stock: 1}})

	_, err := svc.Reserve(1, 2, "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindStock, apperr.KindOf(err))

	v, _ := cat.GetByID(1)
	assert.Equal(t, 1, v.Stock, "failed reservation must not move stock")
}

func TestReserve_UnknownVariant(t *testing.T) {
	svc, _ := newLedger(t, nil)
	_, err := svc.Reserve(99, 1, "")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

// The sum of successful reservations against a variant with stock S never
// exceeds S, no matter how the callers interleave.
func TestReserve_StockNeverNegativeUnderContention(t *testing.T) {
	const initial = 10
	svc, cat := newLedger(t, []catalog.Variant{{ID: 1, Stock: initial}})

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Reserve(1, 1, ""); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, initial, succeeded)
	v, _ := cat.GetByID(1)
	assert.Equal(t, 0, v.Stock)
}

func TestReserveAll_AllOrNothing(t *testing.T) {
	svc, cat := newLedger(t, []catalog.Variant{
		{ID: 1, Stock: 5},
		{ID: 2, Stock: 5},
		{ID: 3, Stock: 1},
	})

	err := svc.ReserveAll([]ReservationItem{
		{VariantID: 1, Quantity: 2},
		{VariantID: 2, Quantity: 3},
		{VariantID: 3, Quantity: 2}, // fails, only 1 left
	}, "ORD-2")
	require.Error(t, err)
	assert.Equal(t, apperr.KindStock, apperr.KindOf(err))

	// every applied reservation was compensated
	for id, want := range map[int]int{1: 5, 2: 5, 3: 1} {
		v, _ := cat.GetByID(id)
		assert.Equal(t, want, v.Stock, "variant %d", id)
	}
}

// journalFailRepo applies the stock delta but reports the movement row as
// lost for one variant, the failure mode of a partial database outage.
type journalFailRepo struct {
	Repository
	failVariant int
}

func (r *journalFailRepo) Reserve(variantID, qty int, ref string) (Movement, error) {
	m, err := r.Repository.Reserve(variantID, qty, ref)
	if err == nil && variantID == r.failVariant {
		return m, fmt.Errorf("%w for variant %d: connection reset", ErrJournal, variantID)
	}
	return m, err
}

func TestReserveAll_JournalFailureStillReleasesTheDecrement(t *testing.T) {
	cat := catalog.NewInMemoryRepository([]catalog.Variant{
		{ID: 1, Stock: 5},
		{ID: 2, Stock: 5},
	})
	svc := NewService(&journalFailRepo{Repository: NewInMemoryRepository(cat), failVariant: 2})

	err := svc.ReserveAll([]ReservationItem{
		{VariantID: 1, Quantity: 2},
		{VariantID: 2, Quantity: 1},
	}, "ORD-9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrJournal))

	// the journal-failed line held its units, so the rollback must
	// return them along with every earlier reservation
	for id, want := range map[int]int{1: 5, 2: 5} {
		v, _ := cat.GetByID(id)
		assert.Equal(t, want, v.Stock, "variant %d", id)
	}
}

func TestReserveAll_Success(t *testing.T) {
	svc, cat := newLedger(t, []catalog.Variant{{ID: 1, Stock: 5}, {ID: 2, Stock: 5}})

	err := svc.ReserveAll([]ReservationItem{
		{VariantID: 1, Quantity: 1},
		{VariantID: 2, Quantity: 4},
	}, "ORD-3")
	require.NoError(t, err)

	v1, _ := cat.GetByID(1)
	v2, _ := cat.GetByID(2)
	assert.Equal(t, 4, v1.Stock)
	assert.Equal(t, 1, v2.Stock)
}

func TestCanFulfill(t *testing.T) {
	svc, _ := newLedger(t, []catalog.Variant{{ID: 1, Stock: 3}})

	assert.Empty(t, svc.CanFulfill([]ReservationItem{{VariantID: 1, Quantity: 3}}))

	short := svc.CanFulfill([]ReservationItem{
		{VariantID: 1, Quantity: 4},
		{VariantID: 9, Quantity: 1},
	})
	require.Len(t, short, 2)
	assert.Equal(t, "insufficient stock", short[0].Reason)
	assert.Equal(t, "variant not found", short[1].Reason)
}

func TestRelease_AppendsReturnMovement(t *testing.T) {
	svc, cat := newLedger(t, []catalog.Variant{{ID: 1, Stock: 0}})

	m, err := svc.Release(1, 2, MovementReturn, "ORD-4")
	require.NoError(t, err)
	assert.Equal(t, MovementReturn, m.Type)
	assert.Equal(t, 0, m.StockBefore)
	assert.Equal(t, 2, m.StockAfter)

	v, _ := cat.GetByID(1)
	assert.Equal(t, 2, v.Stock)

	moves, err := svc.Movements(1, 10)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, MovementReturn, moves[0].Type)
}
