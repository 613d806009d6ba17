package order

import (
	"time"

	"github.com/storefrontlab/storefront-backend/internal/catalog"
	"github.com/storefrontlab/storefront-backend/internal/payment"
	"github.com/storefrontlab/storefront-backend/internal/pricing"
)

// AssembleLine pairs the variant as read under the cart lock with the
// quantity being purchased.
type AssembleLine struct {
	Variant  catalog.Variant
	Quantity int
}

// AssembleInput is everything the assembler freezes into an order.
type AssembleInput struct {
	UserID          int
	Lines           []AssembleLine
	Breakdown       pricing.Breakdown
	PaymentMethod   string
	PaymentStatus   payment.Status
	IntentID        *string
	ShippingAddress AddressSnapshot
	BillingAddress  AddressSnapshot
	Actor           string
}

// Assemble builds the immutable order snapshot. Line prices come from the
// pricing oracle against the variant at commit time, the same computation
// the cart showed the customer; they are copied here and never re-derived.
func Assemble(in AssembleInput) Order {
	now := time.Now().UTC().Format(time.RFC3339)
	items := make([]OrderItem, 0, len(in.Lines))
	for _, l := range in.Lines {
		q := pricing.Compute(l.Variant.UnitPrice, l.Variant.DiscountPct)
		items = append(items, OrderItem{
			VariantID:   l.Variant.ID,
			ProductName: l.Variant.ProductName,
			Size:        l.Variant.Size,
			Color:       l.Variant.Color,
			Quantity:    l.Quantity,
			UnitPrice:   q.UnitPrice,
			DiscountPct: q.DiscountPct,
			FinalPrice:  q.FinalPrice,
			LineTotal:   pricing.Round2(q.FinalPrice * float64(l.Quantity)),
		})
	}

	actor := in.Actor
	if actor == "" {
		actor = "system"
	}

	return Order{
		OrderNumber:     NewOrderNumber(),
		UserID:          in.UserID,
		Items:           items,
		Status:          StatusPending,
		PaymentStatus:   in.PaymentStatus,
		PaymentMethod:   in.PaymentMethod,
		IntentID:        in.IntentID,
		Breakdown:       in.Breakdown,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  in.BillingAddress,
		History: []HistoryEntry{{
			Status: StatusPending,
			At:     now,
			Actor:  actor,
			Note:   "order created",
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
