package order

import (
	"fmt"
	"time"

	"github.com/storefrontlab/storefront-backend/internal/apperr"
	"github.com/storefrontlab/storefront-backend/internal/payment"
	"github.com/storefrontlab/storefront-backend/internal/stock"
)

// Service enforces the order status state machine and runs its
// compensating actions: restocking on cancellation or return, and
// initiating refunds for paid orders.
type Service struct {
	repo     Repository
	stock    stock.ServiceInterface
	gateway  payment.Gateway
	payments payment.Repository
}

func NewService(repo Repository, st stock.ServiceInterface, gw payment.Gateway, payments payment.Repository) *Service {
	return &Service{repo: repo, stock: st, gateway: gw, payments: payments}
}

func (s *Service) Create(o Order) (Order, error) {
	return s.repo.Create(o)
}

func (s *Service) GetByNumber(number string) (Order, error) {
	o, err := s.repo.GetByNumber(number)
	if err == ErrNotFound {
		return Order{}, apperr.New(apperr.KindNotFound, "order not found")
	}
	return o, err
}

// GetForUser loads an order and refuses to expose someone else's.
func (s *Service) GetForUser(userID int, number string) (Order, error) {
	o, err := s.GetByNumber(number)
	if err != nil {
		return Order{}, err
	}
	if o.UserID != userID {
		return Order{}, apperr.New(apperr.KindNotFound, "order not found")
	}
	return o, nil
}

func (s *Service) ListByUser(userID int) ([]Order, error) {
	return s.repo.ListByUser(userID)
}

// FindByIntentID supports the idempotent verify-and-commit path: an order
// already referencing a gateway intent means the commit already happened.
func (s *Service) FindByIntentID(intentID string) (Order, error) {
	return s.repo.FindByIntentID(intentID)
}

// Transition moves an order to a new status. Illegal moves are rejected
// without touching the order. Moving into cancelled from a pre-shipment
// state (or into returned) restocks every line; if the order was paid, a
// refund is initiated against the gateway as well.
func (s *Service) Transition(number string, to Status, actor, note string) (Order, error) {
	o, err := s.repo.GetByNumber(number)
	if err == ErrNotFound {
		return Order{}, apperr.New(apperr.KindNotFound, "order not found")
	}
	if err != nil {
		return Order{}, err
	}

	from := o.Status
	if !CanTransition(from, to) {
		return Order{}, apperr.New(apperr.KindValidation, fmt.Sprintf("cannot transition order from %s to %s", from, to))
	}

	o.Status = to
	o.History = append(o.History, HistoryEntry{
		Status: to,
		At:     time.Now().UTC().Format(time.RFC3339),
		Actor:  actor,
		Note:   note,
	})
	if to == StatusReturned {
		o.ReturnReason = note
	}

	// the conditional write decides between concurrent movers; compensations
	// run only after this call has won the status change
	switch err := s.repo.Transition(o, from); err {
	case nil:
	case ErrStatusChanged:
		return Order{}, apperr.New(apperr.KindConflict, "order status changed concurrently")
	case ErrNotFound:
		return Order{}, apperr.New(apperr.KindNotFound, "order not found")
	default:
		return Order{}, err
	}

	if (to == StatusCancelled && preShipment(from)) || to == StatusReturned {
		for _, it := range o.Items {
			if _, rerr := s.stock.Release(it.VariantID, it.Quantity, stock.MovementReturn, o.OrderNumber); rerr != nil {
				fmt.Printf("warning: restock of variant %d for order %s failed: %v\n", it.VariantID, o.OrderNumber, rerr)
			}
		}
		if o.PaymentStatus == payment.StatusPaid {
			if refundID, rerr := s.refund(o); rerr != nil {
				fmt.Printf("warning: refund initiation for order %s failed: %v\n", o.OrderNumber, rerr)
			} else {
				o.PaymentStatus = payment.StatusRefunded
				o.RefundID = refundID
				if uerr := s.repo.Update(o); uerr != nil {
					fmt.Printf("warning: could not persist refund metadata for order %s: %v\n", o.OrderNumber, uerr)
				}
			}
		}
	}
	return o, nil
}

func (s *Service) refund(o Order) (string, error) {
	if o.IntentID == nil {
		return "", fmt.Errorf("order %s has no payment intent", o.OrderNumber)
	}
	rec, err := s.payments.GetByIntentID(*o.IntentID)
	if err != nil {
		return "", err
	}
	if rec.PaymentID == nil {
		return "", fmt.Errorf("intent %s has no captured payment", *o.IntentID)
	}
	refund, err := s.gateway.CreateRefund(*rec.PaymentID, o.Breakdown.Total)
	if err != nil {
		return "", err
	}
	if err := s.payments.UpdateStatus(*o.IntentID, payment.StatusRefunded); err != nil {
		fmt.Printf("warning: could not mark payment %s refunded: %v\n", *o.IntentID, err)
	}
	return refund.RefundID, nil
}

// Cancel is the customer-facing cancellation: ownership is checked and
// the actor recorded as the customer.
func (s *Service) Cancel(userID int, number, note string) (Order, error) {
	o, err := s.GetForUser(userID, number)
	if err != nil {
		return Order{}, err
	}
	return s.Transition(o.OrderNumber, StatusCancelled, "customer", note)
}
