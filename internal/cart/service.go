package cart

import (
	"fmt"
	"time"

	"github.com/storefrontlab/storefront-backend/internal/apperr"
	"github.com/storefrontlab/storefront-backend/internal/catalog"
	"github.com/storefrontlab/storefront-backend/internal/pricing"
)

// EnrichedItem is a cart line with its price derived from the current
// variant at read time. Nothing here is persisted: two reads of the same
// cart may legitimately disagree if catalog prices changed in between.
type EnrichedItem struct {
	CartItem
	ProductName string  `json:"productName"`
	Size        string  `json:"size,omitempty"`
	Color       string  `json:"color,omitempty"`
	Available   bool    `json:"available"`
	Stock       int     `json:"stock"`
	UnitPrice   float64 `json:"unitPrice"`
	DiscountPct float64 `json:"discountPercent"`
	FinalPrice  float64 `json:"finalPrice"`
	LineTotal   float64 `json:"lineTotal"`
}

type EnrichedCart struct {
	UserID   int               `json:"userId"`
	Items    []EnrichedItem    `json:"items"`
	Version  int               `json:"version"`
	Locked   bool              `json:"locked"`
	LockedAt *time.Time        `json:"lockedAt,omitempty"`
	Totals   pricing.Breakdown `json:"totals"`
}

type Service struct {
	repo    Repository
	catalog catalog.ServiceInterface
	rates   pricing.Rates
}

func NewService(repo Repository, cat catalog.ServiceInterface, rates pricing.Rates) *Service {
	return &Service{repo: repo, catalog: cat, rates: rates}
}

// Repo exposes the underlying repository for the checkout orchestrator,
// which drives the lock protocol directly.
func (s *Service) Repo() Repository { return s.repo }

func classify(err error) error {
	switch err {
	case nil:
		return nil
	case ErrCartLocked:
		return apperr.Wrap(apperr.KindConflict, "cart is locked by a checkout in progress, retry shortly", err)
	case ErrQuantityLimit:
		return apperr.New(apperr.KindValidation, fmt.Sprintf("quantity per item is limited to %d", MaxItemQty))
	case ErrItemNotFound:
		return apperr.New(apperr.KindNotFound, "item not in cart")
	case ErrNotFound:
		return apperr.New(apperr.KindNotFound, "cart not found")
	default:
		return err
	}
}

func (s *Service) AddItem(userID, variantID, qty int) (EnrichedCart, error) {
	if qty < 1 || qty > MaxItemQty {
		return EnrichedCart{}, apperr.New(apperr.KindValidation, fmt.Sprintf("quantity must be between 1 and %d", MaxItemQty))
	}
	v, err := s.catalog.GetByID(variantID)
	if err != nil {
		return EnrichedCart{}, apperr.New(apperr.KindNotFound, "variant not found")
	}
	if !v.IsActive {
		return EnrichedCart{}, apperr.New(apperr.KindValidation, "variant is no longer available")
	}
	c, err := s.repo.AddItem(userID, variantID, qty)
	if err != nil {
		return EnrichedCart{}, classify(err)
	}
	return s.enrich(c)
}

func (s *Service) UpdateItem(userID, variantID, qty int) (EnrichedCart, error) {
	if qty < 0 || qty > MaxItemQty {
		return EnrichedCart{}, apperr.New(apperr.KindValidation, fmt.Sprintf("quantity must be between 0 and %d", MaxItemQty))
	}
	c, err := s.repo.UpdateItem(userID, variantID, qty)
	if err != nil {
		return EnrichedCart{}, classify(err)
	}
	return s.enrich(c)
}

func (s *Service) RemoveItem(userID, variantID int) (EnrichedCart, error) {
	c, err := s.repo.RemoveItem(userID, variantID)
	if err != nil {
		return EnrichedCart{}, classify(err)
	}
	return s.enrich(c)
}

func (s *Service) Clear(userID int) error {
	_, err := s.repo.Clear(userID)
	return classify(err)
}

// Read returns the cart with every price derived from the current catalog
// through the pricing oracle. Totals cover available items only.
func (s *Service) Read(userID int) (EnrichedCart, error) {
	c, err := s.repo.Get(userID)
	if err != nil {
		return EnrichedCart{}, classify(err)
	}
	return s.enrich(c)
}

func (s *Service) enrich(c Cart) (EnrichedCart, error) {
	out := EnrichedCart{
		UserID:   c.UserID,
		Items:    make([]EnrichedItem, 0, len(c.Items)),
		Version:  c.Version,
		Locked:   c.Locked,
		LockedAt: c.LockedAt,
	}
	if len(c.Items) == 0 {
		return out, nil
	}

	ids := make([]int, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.VariantID)
	}
	variants, err := s.catalog.ListByIDs(ids)
	if err != nil {
		return EnrichedCart{}, err
	}
	byID := make(map[int]catalog.Variant, len(variants))
	for _, v := range variants {
		byID[v.ID] = v
	}

	lines := make([]pricing.Line, 0, len(c.Items))
	for _, it := range c.Items {
		item := EnrichedItem{CartItem: it}
		if v, ok := byID[it.VariantID]; ok {
			q := pricing.Compute(v.UnitPrice, v.DiscountPct)
			item.ProductName = v.ProductName
			item.Size = v.Size
			item.Color = v.Color
			item.Available = v.IsActive && v.Stock >= it.Quantity
			item.Stock = v.Stock
			item.UnitPrice = q.UnitPrice
			item.DiscountPct = q.DiscountPct
			item.FinalPrice = q.FinalPrice
			item.LineTotal = pricing.Round2(q.FinalPrice * float64(it.Quantity))
			if item.Available {
				lines = append(lines, pricing.Line{Quote: q, Quantity: it.Quantity})
			}
		}
		out.Items = append(out.Items, item)
	}
	out.Totals = pricing.ComputeBreakdown(lines, s.rates)
	return out, nil
}
