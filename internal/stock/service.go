package stock

import (
	"errors"
	"fmt"

	"github.com/storefrontlab/storefront-backend/internal/apperr"
	"github.com/storefrontlab/storefront-backend/internal/catalog"
)

// ServiceInterface is what the checkout orchestrator and the order state
// machine consume.
type ServiceInterface interface {
	Reserve(variantID, qty int, ref string) (Movement, error)
	Release(variantID, qty int, typ MovementType, ref string) (Movement, error)
	ReserveAll(items []ReservationItem, ref string) error
	CanFulfill(items []ReservationItem) []apperr.LineRef
	Adjust(variantID, delta int, ref string) (Movement, error)
	Movements(variantID, limit int) ([]Movement, error)
	LowStock() ([]catalog.Variant, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Reserve(variantID, qty int, ref string) (Movement, error) {
	if qty <= 0 {
		return Movement{}, apperr.New(apperr.KindValidation, "quantity must be positive")
	}
	m, err := s.repo.Reserve(variantID, qty, ref)
	switch err {
	case nil:
		return m, nil
	case ErrInsufficientStock:
		return Movement{}, apperr.New(apperr.KindStock, "insufficient stock").WithItems([]apperr.LineRef{{VariantID: variantID, Quantity: qty, Reason: "insufficient stock"}})
	case ErrVariantNotFound:
		return Movement{}, apperr.New(apperr.KindNotFound, fmt.Sprintf("variant %d not found", variantID))
	default:
		return Movement{}, err
	}
}

func (s *Service) Release(variantID, qty int, typ MovementType, ref string) (Movement, error) {
	if qty <= 0 {
		return Movement{}, apperr.New(apperr.KindValidation, "quantity must be positive")
	}
	m, err := s.repo.Release(variantID, qty, typ, ref)
	if err == ErrVariantNotFound {
		return Movement{}, apperr.New(apperr.KindNotFound, fmt.Sprintf("variant %d not found", variantID))
	}
	return m, err
}

// ReserveAll applies a batch of reservations all-or-nothing. Reservations
// run sequentially; on the first failure every reservation already applied
// is released again before the error is returned, so a half-fulfillable
// cart never eats stock.
func (s *Service) ReserveAll(items []ReservationItem, ref string) error {
	applied := make([]ReservationItem, 0, len(items))
	for _, it := range items {
		_, err := s.Reserve(it.VariantID, it.Quantity, ref)
		if err == nil {
			applied = append(applied, it)
			continue
		}
		if errors.Is(err, ErrJournal) {
			// the decrement landed even though its journal row did not,
			// so the rollback has to return these units too
			applied = append(applied, it)
		}
		for _, undo := range applied {
			if _, rerr := s.repo.Release(undo.VariantID, undo.Quantity, MovementRestock, ref); rerr != nil {
				// compensation failed; the movement journal still has the sale entry
				fmt.Printf("warning: failed to release %d of variant %d during rollback: %v\n", undo.Quantity, undo.VariantID, rerr)
			}
		}
		return err
	}
	return nil
}

// CanFulfill is the non-mutating pre-check used before the payment window
// opens. It reports every line that cannot be satisfied right now.
func (s *Service) CanFulfill(items []ReservationItem) []apperr.LineRef {
	short := make([]apperr.LineRef, 0)
	for _, it := range items {
		avail, err := s.repo.Available(it.VariantID)
		if err != nil {
			short = append(short, apperr.LineRef{VariantID: it.VariantID, Quantity: it.Quantity, Reason: "variant not found"})
			continue
		}
		if avail < it.Quantity {
			short = append(short, apperr.LineRef{VariantID: it.VariantID, Quantity: it.Quantity, Reason: "insufficient stock"})
		}
	}
	return short
}

func (s *Service) Adjust(variantID, delta int, ref string) (Movement, error) {
	m, err := s.repo.Adjust(variantID, delta, ref)
	switch err {
	case ErrInsufficientStock:
		return Movement{}, apperr.New(apperr.KindStock, "adjustment would make stock negative")
	case ErrVariantNotFound:
		return Movement{}, apperr.New(apperr.KindNotFound, fmt.Sprintf("variant %d not found", variantID))
	}
	return m, err
}

func (s *Service) Movements(variantID, limit int) ([]Movement, error) {
	return s.repo.Movements(variantID, limit)
}

func (s *Service) LowStock() ([]catalog.Variant, error) {
	return s.repo.LowStock()
}
