package cart

import (
	"github.com/storefrontlab/storefront-backend/internal/apperr"
	"github.com/storefrontlab/storefront-backend/internal/catalog"
)

// ValidationResult reconciles a cart against live catalog and stock state.
type ValidationResult struct {
	IsValid      bool             `json:"isValid"`
	ValidItems   []CartItem       `json:"validItems"`
	InvalidItems []apperr.LineRef `json:"invalidItems"`
}

// Validator checks each cart line against the live catalog: the variant
// must exist, be active, and hold enough stock. With autoRemove it also
// strips the invalid lines from the persisted cart, which is how checkout
// guarantees the customer is shown exactly what will be purchased.
type Validator struct {
	repo    Repository
	catalog catalog.ServiceInterface
}

func NewValidator(repo Repository, cat catalog.ServiceInterface) *Validator {
	return &Validator{repo: repo, catalog: cat}
}

func (v *Validator) Validate(userID int, autoRemove bool) (ValidationResult, error) {
	c, err := v.repo.Get(userID)
	if err != nil {
		return ValidationResult{}, err
	}
	return v.ValidateCart(c, autoRemove)
}

// ValidateCart validates an already-loaded cart, so the orchestrator can
// re-check the exact snapshot it holds under the lock.
func (v *Validator) ValidateCart(c Cart, autoRemove bool) (ValidationResult, error) {
	res := ValidationResult{
		ValidItems:   make([]CartItem, 0, len(c.Items)),
		InvalidItems: make([]apperr.LineRef, 0),
	}

	for _, it := range c.Items {
		variant, err := v.catalog.GetByID(it.VariantID)
		switch {
		case err != nil:
			res.InvalidItems = append(res.InvalidItems, apperr.LineRef{VariantID: it.VariantID, Quantity: it.Quantity, Reason: "variant not found"})
		case !variant.IsActive:
			res.InvalidItems = append(res.InvalidItems, apperr.LineRef{VariantID: it.VariantID, Quantity: it.Quantity, Reason: "variant inactive"})
		case variant.Stock < it.Quantity:
			res.InvalidItems = append(res.InvalidItems, apperr.LineRef{VariantID: it.VariantID, Quantity: it.Quantity, Reason: "insufficient stock"})
		default:
			res.ValidItems = append(res.ValidItems, it)
		}
	}
	res.IsValid = len(res.InvalidItems) == 0

	if autoRemove && !res.IsValid {
		if _, err := v.repo.ReplaceItems(c.UserID, res.ValidItems); err != nil {
			return ValidationResult{}, err
		}
	}
	return res, nil
}
