package checkout

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefrontlab/storefront-backend/internal/address"
	"github.com/storefrontlab/storefront-backend/internal/apperr"
	"github.com/storefrontlab/storefront-backend/internal/cart"
	"github.com/storefrontlab/storefront-backend/internal/catalog"
	"github.com/storefrontlab/storefront-backend/internal/order"
	"github.com/storefrontlab/storefront-backend/internal/payment"
	"github.com/storefrontlab/storefront-backend/internal/pricing"
	"github.com/storefrontlab/storefront-backend/internal/stock"
)

const testSecret = "test-secret"

type rig struct {
	svc    *Service
	carts  *cart.InMemoryRepository
	cat    *catalog.InMemoryRepository
	orders *order.InMemoryRepository
	gw     *payment.FakeGateway
	pays   *payment.InMemoryRepository
}

func newRig(t *testing.T) *rig {
	t.Helper()
	cat := catalog.NewInMemoryRepository([]catalog.Variant{
		{ID: 1, ProductName: "Hoodie", Size: "M", Color: "black", UnitPrice: 100, DiscountPct: 10, Stock: 10, IsActive: true},
		{ID: 2, ProductName: "Poster", UnitPrice: 30, Stock: 1, IsActive: true},
		{ID: 3, ProductName: "Discontinued Mug", UnitPrice: 15, Stock: 5, IsActive: false},
	})
	catSvc := catalog.NewService(cat)
	carts := cart.NewInMemoryRepository(5 * time.Minute)
	ledger := stock.NewService(stock.NewInMemoryRepository(cat))
	gw := payment.NewFakeGateway()
	pays := payment.NewInMemoryRepository()
	orepo := order.NewInMemoryRepository()
	addrs := address.NewService(address.NewInMemoryRepository(map[int][]address.Address{
		7: {{AddressID: 1, UserID: 7, AddressName: "Home", Phone: "555-0007", AddressDesc: "1 Main St"}},
		8: {{AddressID: 1, UserID: 8, AddressName: "Work", Phone: "555-0008", AddressDesc: "2 Side St"}},
	}))

	svc := NewService(Deps{
		Carts:     carts,
		Validator: cart.NewValidator(carts, catSvc),
		Catalog:   catSvc,
		Stock:     ledger,
		Orders:    order.NewService(orepo, ledger, gw, pays),
		Gateway:   gw,
		Payments:  pays,
		Addresses: addrs,
		Rates:     pricing.Rates{TaxRate: 0.07, ShippingFee: 50, FreeShippingMin: 500},
		Secret:    testSecret,
		Currency:  "THB",
	})
	return &rig{svc: svc, carts: carts, cat: cat, orders: orepo, gw: gw, pays: pays}
}

func addToCart(t *testing.T, r *rig, userID, variantID, qty int) {
	t.Helper()
	_, err := r.carts.AddItem(userID, variantID, qty)
	require.NoError(t, err)
}

func stockOf(t *testing.T, r *rig, variantID int) int {
	t.Helper()
	v, err := r.cat.GetByID(variantID)
	require.NoError(t, err)
	return v.Stock
}

// one Hoodie: 90 after discount, 6.30 tax, 50 shipping
const oneHoodieTotal = 146.3

func TestBeginCheckout_GatewayOpensIntentAndHoldsLock(t *testing.T) {
	r := newRig(t)
	addToCart(t, r, 7, 1, 1)

	res, err := r.svc.BeginCheckout(7, MethodGateway, 1)
	require.NoError(t, err)
	require.NotNil(t, res.Intent)
	assert.Nil(t, res.Order)
	assert.Equal(t, oneHoodieTotal, res.Totals.Total)

	// intent recorded as pending
	rec, err := r.pays.GetByIntentID(res.Intent.IntentID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, rec.Status)
	assert.Equal(t, oneHoodieTotal, rec.Amount)

	// nothing committed yet
	assert.Equal(t, 10, stockOf(t, r, 1))

	// cart stays locked until the intent resolves
	_, err = r.carts.Lock(7)
	assert.Equal(t, cart.ErrCartLocked, err)
}

func TestBeginCheckout_CODCommitsImmediately(t *testing.T) {
	r := newRig(t)
	addToCart(t, r, 7, 1, 1)

	res, err := r.svc.BeginCheckout(7, MethodCOD, 1)
	require.NoError(t, err)
	require.NotNil(t, res.Order)
	assert.Nil(t, res.Intent)

	o := *res.Order
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, payment.StatusPending, o.PaymentStatus)
	assert.Equal(t, MethodCOD, o.PaymentMethod)
	assert.Equal(t, oneHoodieTotal, o.Breakdown.Total)
	assert.Equal(t, "Home", o.ShippingAddress.Name)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 90.0, o.Items[0].FinalPrice)

	assert.Equal(t, 9, stockOf(t, r, 1))

	// cart emptied and unlocked
	c, _ := r.carts.Get(7)
	assert.Empty(t, c.Items)
	assert.False(t, c.Locked)
}

func TestBeginCheckout_EmptyCartRejectsAndReleasesLock(t *testing.T) {
	r := newRig(t)
	addToCart(t, r, 7, 1, 1)
	_, err := r.carts.ReplaceItems(7, []cart.CartItem{})
	require.NoError(t, err)

	_, err = r.svc.BeginCheckout(7, MethodCOD, 0)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// the failed attempt must not leave the cart locked
	_, err = r.carts.Lock(7)
	assert.NoError(t, err)
}

func TestBeginCheckout_SecondAttemptConflictsWhileLocked(t *testing.T) {
	r := newRig(t)
	addToCart(t, r, 7, 1, 1)

	_, err := r.svc.BeginCheckout(7, MethodGateway, 1)
	require.NoError(t, err)

	_, err = r.svc.BeginCheckout(7, MethodGateway, 1)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestBeginCheckout_InactiveItemRemovedAndReported(t *testing.T) {
	r := newRig(t)
	addToCart(t, r, 7, 1, 1)
	addToCart(t, r, 7, 3, 2) // inactive variant

	_, err := r.svc.BeginCheckout(7, MethodCOD, 1)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	require.Len(t, ae.Items, 1)
	assert.Equal(t, 3, ae.Items[0].VariantID)

	// the dead line was stripped so a retry goes through
	c, _ := r.carts.Get(7)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 1, c.Items[0].VariantID)

	res, err := r.svc.BeginCheckout(7, MethodCOD, 1)
	require.NoError(t, err)
	require.NotNil(t, res.Order)
}

func TestBeginCheckout_LastUnitSingleWinner(t *testing.T) {
	r := newRig(t)
	addToCart(t, r, 7, 2, 1)
	addToCart(t, r, 8, 2, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, uid := range []int{7, 8} {
		wg.Add(1)
		go func(i, uid int) {
			defer wg.Done()
			_, errs[i] = r.svc.BeginCheckout(uid, MethodCOD, 1)
		}(i, uid)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			// the loser is turned away either by validation or by the
			// conditional decrement, depending on interleaving
			assert.Contains(t, []apperr.Kind{apperr.KindStock, apperr.KindValidation}, apperr.KindOf(err))
		}
	}
	assert.Equal(t, 1, wins, "exactly one shopper gets the last unit")
	assert.Equal(t, 0, stockOf(t, r, 2))
}

func TestBeginCheckout_GatewayDownDegradesToPendingOrder(t *testing.T) {
	r := newRig(t)
	r.gw.FailIntents = true
	addToCart(t, r, 7, 1, 1)

	res, err := r.svc.BeginCheckout(7, MethodGateway, 1)
	require.NoError(t, err)
	require.NotNil(t, res.Order)
	assert.Nil(t, res.Intent)
	assert.Equal(t, payment.StatusPending, res.Order.PaymentStatus)
	assert.Equal(t, MethodGateway, res.Order.PaymentMethod)
	assert.Equal(t, 9, stockOf(t, r, 1))

	c, _ := r.carts.Get(7)
	assert.False(t, c.Locked)
}

func TestVerifyAndCommit_HappyPath(t *testing.T) {
	r := newRig(t)
	addToCart(t, r, 7, 1, 2)

	res, err := r.svc.BeginCheckout(7, MethodGateway, 1)
	require.NoError(t, err)
	intentID := res.Intent.IntentID

	payID := r.gw.SettlePayment(intentID)
	sig := payment.Sign(testSecret, intentID, payID)

	o, err := r.svc.VerifyAndCommit(7, intentID, payID, sig, 1)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, payment.StatusPaid, o.PaymentStatus)
	require.NotNil(t, o.IntentID)
	assert.Equal(t, intentID, *o.IntentID)
	assert.Equal(t, "Home", o.ShippingAddress.Name)

	assert.Equal(t, 8, stockOf(t, r, 1))

	rec, err := r.pays.GetByIntentID(intentID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, rec.Status)
	require.NotNil(t, rec.OrderNumber)
	assert.Equal(t, o.OrderNumber, *rec.OrderNumber)

	c, _ := r.carts.Get(7)
	assert.Empty(t, c.Items)
	assert.False(t, c.Locked)
}

func TestVerifyAndCommit_TamperedSignatureCreatesNothing(t *testing.T) {
	r := newRig(t)
	addToCart(t, r, 7, 1, 1)

	res, err := r.svc.BeginCheckout(7, MethodGateway, 1)
	require.NoError(t, err)
	intentID := res.Intent.IntentID
	payID := r.gw.SettlePayment(intentID)

	forged := payment.Sign("wrong-secret", intentID, payID)
	_, err = r.svc.VerifyAndCommit(7, intentID, payID, forged, 1)
	require.Error(t, err)
	assert.Equal(t, apperr.KindSecurity, apperr.KindOf(err))

	// no order, no stock movement
	_, err = r.orders.FindByIntentID(intentID)
	assert.Error(t, err)
	assert.Equal(t, 10, stockOf(t, r, 1))

	rec, _ := r.pays.GetByIntentID(intentID)
	assert.Equal(t, payment.StatusFailed, rec.Status)

	// the customer is not stranded behind the lock
	_, err = r.carts.Lock(7)
	assert.NoError(t, err)
}

func TestVerifyAndCommit_ReplayReturnsSameOrder(t *testing.T) {
	r := newRig(t)
	addToCart(t, r, 7, 1, 1)

	res, err := r.svc.BeginCheckout(7, MethodGateway, 1)
	require.NoError(t, err)
	intentID := res.Intent.IntentID
	payID := r.gw.SettlePayment(intentID)
	sig := payment.Sign(testSecret, intentID, payID)

	first, err := r.svc.VerifyAndCommit(7, intentID, payID, sig, 1)
	require.NoError(t, err)

	second, err := r.svc.VerifyAndCommit(7, intentID, payID, sig, 1)
	require.NoError(t, err)
	assert.Equal(t, first.OrderNumber, second.OrderNumber)

	// stock decremented exactly once
	assert.Equal(t, 9, stockOf(t, r, 1))
}

func TestVerifyAndCommit_ReplayByAnotherUserRevealsNothing(t *testing.T) {
	r := newRig(t)
	addToCart(t, r, 7, 1, 1)

	res, err := r.svc.BeginCheckout(7, MethodGateway, 1)
	require.NoError(t, err)
	intentID := res.Intent.IntentID
	payID := r.gw.SettlePayment(intentID)
	sig := payment.Sign(testSecret, intentID, payID)

	committed, err := r.svc.VerifyAndCommit(7, intentID, payID, sig, 1)
	require.NoError(t, err)

	// another account replaying the committed intent learns nothing,
	// whether the confirmation is forged or copied verbatim
	leaked, err := r.svc.VerifyAndCommit(8, intentID, "bogus-payment", "forged-signature", 0)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Empty(t, leaked.OrderNumber)
	assert.Empty(t, leaked.Items)

	leaked, err = r.svc.VerifyAndCommit(8, intentID, payID, sig, 0)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Empty(t, leaked.OrderNumber)

	assert.Equal(t, 9, stockOf(t, r, 1))

	// the owner still gets the same order back
	same, err := r.svc.VerifyAndCommit(7, intentID, payID, sig, 1)
	require.NoError(t, err)
	assert.Equal(t, committed.OrderNumber, same.OrderNumber)
}

func TestVerifyAndCommit_UnknownIntent(t *testing.T) {
	r := newRig(t)
	_, err := r.svc.VerifyAndCommit(7, "intent_missing", "pay_x", "sig", 0)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestVerifyAndCommit_UncapturedPaymentRejected(t *testing.T) {
	r := newRig(t)
	addToCart(t, r, 7, 1, 1)

	res, err := r.svc.BeginCheckout(7, MethodGateway, 1)
	require.NoError(t, err)
	intentID := res.Intent.IntentID

	// signature is valid but the gateway never saw this payment
	sig := payment.Sign(testSecret, intentID, "pay_ghost")
	_, err = r.svc.VerifyAndCommit(7, intentID, "pay_ghost", sig, 1)
	require.Error(t, err)
	assert.Equal(t, 10, stockOf(t, r, 1))
}

func TestVerifyAndCommit_PriceChangeSincePaymentConflicts(t *testing.T) {
	r := newRig(t)
	addToCart(t, r, 7, 1, 1)

	res, err := r.svc.BeginCheckout(7, MethodGateway, 1)
	require.NoError(t, err)
	intentID := res.Intent.IntentID
	payID := r.gw.SettlePayment(intentID)
	sig := payment.Sign(testSecret, intentID, payID)

	v, _ := r.cat.GetByID(1)
	v.UnitPrice = 150
	_, err = r.cat.Update(1, v)
	require.NoError(t, err)

	_, err = r.svc.VerifyAndCommit(7, intentID, payID, sig, 1)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, 10, stockOf(t, r, 1))
}

func TestStaleLockTakeover(t *testing.T) {
	r := newRig(t)
	addToCart(t, r, 7, 1, 1)

	// first attempt opens an intent and walks away
	_, err := r.svc.BeginCheckout(7, MethodGateway, 1)
	require.NoError(t, err)

	// before the TTL the lock still holds
	_, err = r.svc.BeginCheckout(7, MethodCOD, 1)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// six minutes later the abandoned lock is stale and falls to the retry
	r.carts.SetClock(func() time.Time { return time.Now().Add(6 * time.Minute) })
	res, err := r.svc.BeginCheckout(7, MethodCOD, 1)
	require.NoError(t, err)
	require.NotNil(t, res.Order)
}

func TestBeginCheckout_InsufficientStockReportsShortLines(t *testing.T) {
	r := newRig(t)
	addToCart(t, r, 7, 2, 1)

	// someone else takes the last unit first
	addToCart(t, r, 8, 2, 1)
	_, err := r.svc.BeginCheckout(8, MethodCOD, 1)
	require.NoError(t, err)

	_, err = r.svc.BeginCheckout(7, MethodCOD, 1)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// the auto-remove pass already dropped the dead line
	c, _ := r.carts.Get(7)
	assert.Empty(t, c.Items)
}
