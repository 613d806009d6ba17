package checkout

import (
	"fmt"
	"strconv"

	"github.com/storefrontlab/storefront-backend/internal/address"
	"github.com/storefrontlab/storefront-backend/internal/apperr"
	"github.com/storefrontlab/storefront-backend/internal/cart"
	"github.com/storefrontlab/storefront-backend/internal/catalog"
	"github.com/storefrontlab/storefront-backend/internal/order"
	"github.com/storefrontlab/storefront-backend/internal/payment"
	"github.com/storefrontlab/storefront-backend/internal/pricing"
	"github.com/storefrontlab/storefront-backend/internal/stock"
)

const (
	MethodGateway = "gateway"
	MethodCOD     = "cod"
)

// AddressBook is satisfied by the address service.
type AddressBook interface {
	GetByID(userID, addressID int) (address.Address, error)
}

// Deps collects everything the orchestrator coordinates. The checkout flow
// owns no state of its own; every step delegates to one of these.
type Deps struct {
	Carts     cart.Repository
	Validator *cart.Validator
	Catalog   catalog.ServiceInterface
	Stock     stock.ServiceInterface
	Orders    *order.Service
	Gateway   payment.Gateway
	Payments  payment.Repository
	Addresses AddressBook
	Rates     pricing.Rates
	Secret    string
	Currency  string
}

type Service struct {
	d Deps
}

func NewService(d Deps) *Service {
	return &Service{d: d}
}

// BeginResult is what a checkout attempt hands back. Exactly one of Intent
// and Order is set: Intent when the customer still has to pay through the
// gateway, Order when the purchase committed immediately.
type BeginResult struct {
	Intent *payment.Intent   `json:"intent,omitempty"`
	Order  *order.Order      `json:"order,omitempty"`
	Totals pricing.Breakdown `json:"totals"`
}

// BeginCheckout locks the cart, validates it, prices it and either opens a
// payment intent (gateway) or commits the purchase on the spot (cod).
//
// The lock is held for the gateway path until VerifyAndCommit resolves the
// intent. Every other exit, success or failure, releases it.
func (s *Service) BeginCheckout(userID int, method string, addressID int) (BeginResult, error) {
	if method != MethodGateway && method != MethodCOD {
		return BeginResult{}, apperr.New(apperr.KindValidation, "unknown payment method")
	}

	c, err := s.d.Carts.Lock(userID)
	if err != nil {
		switch err {
		case cart.ErrNotFound:
			return BeginResult{}, apperr.New(apperr.KindNotFound, "cart not found")
		case cart.ErrCartLocked:
			return BeginResult{}, apperr.New(apperr.KindConflict, "checkout already in progress")
		default:
			return BeginResult{}, apperr.Wrap(apperr.KindInternal, "lock cart", err)
		}
	}

	keepLock := false
	defer func() {
		if keepLock {
			return
		}
		if uerr := s.d.Carts.Unlock(userID); uerr != nil {
			fmt.Printf("[WARN] checkout: release cart lock for user %d: %v\n", userID, uerr)
		}
	}()

	if len(c.Items) == 0 {
		return BeginResult{}, apperr.New(apperr.KindValidation, "cart is empty")
	}

	vres, err := s.d.Validator.ValidateCart(c, true)
	if err != nil {
		return BeginResult{}, apperr.Wrap(apperr.KindInternal, "validate cart", err)
	}
	if !vres.IsValid {
		return BeginResult{}, apperr.New(apperr.KindValidation, "cart contained unavailable items, they have been removed").WithItems(vres.InvalidItems)
	}

	items := reservationItems(vres.ValidItems)
	if short := s.d.Stock.CanFulfill(items); len(short) > 0 {
		return BeginResult{}, apperr.New(apperr.KindStock, "insufficient stock").WithItems(short)
	}

	lines, assembleLines, err := s.priceLines(vres.ValidItems)
	if err != nil {
		return BeginResult{}, err
	}
	bd := pricing.ComputeBreakdown(lines, s.d.Rates)

	ship, err := s.snapshotAddress(userID, addressID)
	if err != nil {
		return BeginResult{}, err
	}

	if method == MethodCOD {
		o, err := s.commit(userID, assembleLines, bd, MethodCOD, payment.StatusPending, nil, ship)
		if err != nil {
			return BeginResult{}, err
		}
		return BeginResult{Order: &o, Totals: bd}, nil
	}

	intent, err := s.d.Gateway.CreateIntent(bd.Total, s.d.Currency, "user-"+strconv.Itoa(userID))
	if err != nil {
		if apperr.Is(err, apperr.KindGateway) {
			// legacy single-phase behaviour: the order still goes through
			// with its payment left pending for later collection
			fmt.Printf("[WARN] checkout: gateway unreachable for user %d, committing with payment pending: %v\n", userID, err)
			o, cerr := s.commit(userID, assembleLines, bd, MethodGateway, payment.StatusPending, nil, ship)
			if cerr != nil {
				return BeginResult{}, cerr
			}
			return BeginResult{Order: &o, Totals: bd}, nil
		}
		return BeginResult{}, err
	}

	rec := payment.Payment{
		IntentID: intent.IntentID,
		Amount:   bd.Total,
		Currency: s.d.Currency,
		Method:   MethodGateway,
		Status:   payment.StatusPending,
	}
	if _, err := s.d.Payments.Create(rec); err != nil {
		return BeginResult{}, apperr.Wrap(apperr.KindInternal, "record payment intent", err)
	}

	keepLock = true
	return BeginResult{Intent: &intent, Totals: bd}, nil
}

// VerifyAndCommit resolves an open payment intent into an order. The
// confirmation is never trusted as presented: the signature is recomputed
// locally and the payment status re-fetched from the gateway before any
// order exists. Replays of an already-committed intent return the same
// order without touching stock again.
func (s *Service) VerifyAndCommit(userID int, intentID, paymentID, signature string, addressID int) (order.Order, error) {
	if existing, err := s.d.Orders.FindByIntentID(intentID); err == nil {
		// replays only hand the order back to the customer who placed it;
		// anyone else learns nothing from the intent id
		if existing.UserID != userID {
			return order.Order{}, apperr.New(apperr.KindNotFound, "unknown payment intent")
		}
		return existing, nil
	}

	rec, err := s.d.Payments.GetByIntentID(intentID)
	if err != nil {
		return order.Order{}, apperr.New(apperr.KindNotFound, "unknown payment intent")
	}

	defer func() {
		if uerr := s.d.Carts.Unlock(userID); uerr != nil {
			fmt.Printf("[WARN] checkout: release cart lock for user %d: %v\n", userID, uerr)
		}
	}()

	if !payment.VerifySignature(s.d.Secret, intentID, paymentID, signature) {
		if uerr := s.d.Payments.UpdateStatus(intentID, payment.StatusFailed); uerr != nil {
			fmt.Printf("[WARN] checkout: mark payment %s failed: %v\n", intentID, uerr)
		}
		return order.Order{}, apperr.New(apperr.KindSecurity, "payment confirmation signature mismatch")
	}

	gp, err := s.d.Gateway.FetchPayment(paymentID)
	if err != nil {
		return order.Order{}, err
	}
	if !gp.Captured() {
		if uerr := s.d.Payments.UpdateStatus(intentID, payment.StatusFailed); uerr != nil {
			fmt.Printf("[WARN] checkout: mark payment %s failed: %v\n", intentID, uerr)
		}
		return order.Order{}, apperr.New(apperr.KindValidation, "payment was not captured")
	}
	if gp.Amount != rec.Amount {
		return order.Order{}, apperr.New(apperr.KindSecurity, "captured amount does not match the quoted total")
	}

	c, err := s.d.Carts.Get(userID)
	if err != nil {
		return order.Order{}, apperr.Wrap(apperr.KindInternal, "load cart", err)
	}
	if len(c.Items) == 0 {
		return order.Order{}, apperr.New(apperr.KindConflict, "payment received but the cart is empty")
	}

	vres, err := s.d.Validator.ValidateCart(c, false)
	if err != nil {
		return order.Order{}, apperr.Wrap(apperr.KindInternal, "validate cart", err)
	}
	if !vres.IsValid {
		return order.Order{}, apperr.New(apperr.KindStock, "items became unavailable after payment").WithItems(vres.InvalidItems)
	}

	lines, assembleLines, err := s.priceLines(vres.ValidItems)
	if err != nil {
		return order.Order{}, err
	}
	bd := pricing.ComputeBreakdown(lines, s.d.Rates)
	if bd.Total != rec.Amount {
		return order.Order{}, apperr.New(apperr.KindConflict, "order total changed since payment was authorized")
	}

	ship, err := s.snapshotAddress(userID, addressID)
	if err != nil {
		return order.Order{}, err
	}

	intentRef := intentID
	o, err := s.commit(userID, assembleLines, bd, rec.Method, payment.StatusPaid, &intentRef, ship)
	if err != nil {
		return order.Order{}, err
	}

	if err := s.d.Payments.MarkPaid(intentID, paymentID, o.OrderNumber); err != nil {
		fmt.Printf("[WARN] checkout: link payment %s to order %s: %v\n", intentID, o.OrderNumber, err)
	}
	return o, nil
}

// commit reserves stock for every line, persists the order and empties the
// cart. Reservation is all-or-nothing; an order that cannot be persisted
// returns its reservations before reporting the failure.
func (s *Service) commit(userID int, lines []order.AssembleLine, bd pricing.Breakdown, method string, ps payment.Status, intentID *string, ship order.AddressSnapshot) (order.Order, error) {
	o := order.Assemble(order.AssembleInput{
		UserID:          userID,
		Lines:           lines,
		Breakdown:       bd,
		PaymentMethod:   method,
		PaymentStatus:   ps,
		IntentID:        intentID,
		ShippingAddress: ship,
		BillingAddress:  ship,
		Actor:           "customer",
	})

	items := make([]stock.ReservationItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, stock.ReservationItem{VariantID: l.Variant.ID, Quantity: l.Quantity})
	}
	if err := s.d.Stock.ReserveAll(items, o.OrderNumber); err != nil {
		return order.Order{}, err
	}

	created, err := s.d.Orders.Create(o)
	if err != nil {
		for _, it := range items {
			if _, rerr := s.d.Stock.Release(it.VariantID, it.Quantity, stock.MovementRestock, o.OrderNumber); rerr != nil {
				fmt.Printf("[WARN] checkout: return reservation for variant %d: %v\n", it.VariantID, rerr)
			}
		}
		return order.Order{}, apperr.Wrap(apperr.KindInternal, "persist order", err)
	}

	if _, err := s.d.Carts.ReplaceItems(userID, []cart.CartItem{}); err != nil {
		fmt.Printf("[WARN] checkout: empty cart for user %d: %v\n", userID, err)
	}
	return created, nil
}

func (s *Service) priceLines(items []cart.CartItem) ([]pricing.Line, []order.AssembleLine, error) {
	ids := make([]int, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.VariantID)
	}
	variants, err := s.d.Catalog.ListByIDs(ids)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "load variants", err)
	}
	byID := make(map[int]catalog.Variant, len(variants))
	for _, v := range variants {
		byID[v.ID] = v
	}

	lines := make([]pricing.Line, 0, len(items))
	assembleLines := make([]order.AssembleLine, 0, len(items))
	for _, it := range items {
		v, ok := byID[it.VariantID]
		if !ok {
			return nil, nil, apperr.New(apperr.KindStock, "variant disappeared during checkout").
				WithItems([]apperr.LineRef{{VariantID: it.VariantID, Quantity: it.Quantity, Reason: "variant not found"}})
		}
		lines = append(lines, pricing.Line{Quote: pricing.Compute(v.UnitPrice, v.DiscountPct), Quantity: it.Quantity})
		assembleLines = append(assembleLines, order.AssembleLine{Variant: v, Quantity: it.Quantity})
	}
	return lines, assembleLines, nil
}

func (s *Service) snapshotAddress(userID, addressID int) (order.AddressSnapshot, error) {
	if s.d.Addresses == nil || addressID <= 0 {
		return order.AddressSnapshot{}, nil
	}
	a, err := s.d.Addresses.GetByID(userID, addressID)
	if err != nil {
		return order.AddressSnapshot{}, apperr.New(apperr.KindNotFound, "address not found")
	}
	return order.AddressSnapshot{Name: a.AddressName, Phone: a.Phone, Detail: a.AddressDesc}, nil
}

func reservationItems(items []cart.CartItem) []stock.ReservationItem {
	out := make([]stock.ReservationItem, 0, len(items))
	for _, it := range items {
		out = append(out, stock.ReservationItem{VariantID: it.VariantID, Quantity: it.Quantity})
	}
	return out
}
